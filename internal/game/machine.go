// Package game is the per-session turn, clock, and terminal-state logic.
// All mutations of one session are serialized; the machine never holds a
// session lock across a broadcast call (broadcasting is the caller's job,
// done with the returned snapshot).
package game

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/indichess/arena/internal/domain"
	"github.com/indichess/arena/internal/msgcat"
	"github.com/indichess/arena/internal/obslog"
	"github.com/indichess/arena/internal/rules"
	"github.com/indichess/arena/internal/store"
)

var (
	ErrNotJoinable      = errors.New("session is not available to join")
	ErrAlreadyInSession = errors.New("already in this session")
	ErrNotInProgress    = errors.New("session is not in progress")
	ErrNotYourTurn      = errors.New("not your turn")
	ErrNotAPlayer       = errors.New("not part of this session")
	ErrNothingToUndo    = errors.New("no move to undo")
	ErrInvalidMove      = errors.New("invalid move")
)

// Config carries the machine's injectable pieces; zero values select
// production defaults.
type Config struct {
	Clock   clockwork.Clock
	Catalog *msgcat.Catalog
	Logger  *zap.Logger
}

type Machine struct {
	oracle rules.Oracle
	store  store.Gateway
	cat    *msgcat.Catalog
	clock  clockwork.Clock
	locks  keyedMutex
	log    *zap.Logger
}

func NewMachine(cfg Config, oracle rules.Oracle, st store.Gateway) *Machine {
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Logger == nil {
		cfg.Logger = obslog.L()
	}
	return &Machine{
		oracle: oracle,
		store:  st,
		cat:    cfg.Catalog,
		clock:  cfg.Clock,
		log:    cfg.Logger,
	}
}

// Create opens a WAITING session with the initiator as white and both
// clocks at the category's initial allotment.
func (m *Machine) Create(ctx context.Context, initiator string, tc domain.TimeControl) (*domain.Session, error) {
	initiator = strings.TrimSpace(initiator)
	if _, err := m.store.LoadPlayer(ctx, initiator); err != nil {
		return nil, err
	}
	now := m.clock.Now()
	s := &domain.Session{
		WhiteID:       initiator,
		Position:      m.oracle.InitialPosition(),
		Status:        domain.StatusWaiting,
		Turn:          domain.White,
		TimeControl:   tc,
		WhiteClockSec: tc.InitialSeconds(),
		BlackClockSec: tc.InitialSeconds(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	saved, err := m.store.Save(ctx, s)
	if err != nil {
		return nil, err
	}
	m.log.Info("session_create",
		zap.String("session_id", saved.ID),
		zap.String("white_id", saved.WhiteID),
		zap.String("category", string(tc)),
	)
	return saved, nil
}

// Join seats the second player as black, starts the game, and records the
// clock reference point.
func (m *Machine) Join(ctx context.Context, id, player string) (*domain.Session, error) {
	player = strings.TrimSpace(player)
	unlock := m.locks.lock(id)
	defer unlock()

	s, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if _, err := m.store.LoadPlayer(ctx, player); err != nil {
		return nil, err
	}
	if s.Status != domain.StatusWaiting {
		return nil, fmt.Errorf("%w: session %s is %s", ErrNotJoinable, s.ID, s.Status)
	}
	if s.WhiteID == player {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyInSession, s.ID)
	}

	now := m.clock.Now()
	s.BlackID = player
	s.Status = domain.StatusInProgress
	s.LastMoveAt = now
	s.UpdatedAt = now

	saved, err := m.store.Save(ctx, s)
	if err != nil {
		return nil, err
	}
	m.log.Info("session_join",
		zap.String("session_id", saved.ID),
		zap.String("black_id", player),
	)
	return saved, nil
}

// ApplyMove validates turn ownership, delegates legality to the oracle,
// charges the mover's clock, detects terminal positions and clock
// exhaustion, and flips the turn. A rejected move leaves the session
// untouched.
func (m *Machine) ApplyMove(ctx context.Context, id, player, from, to, promotion string) (*domain.Session, error) {
	unlock := m.locks.lock(id)
	defer unlock()

	s, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Status != domain.StatusInProgress {
		return nil, fmt.Errorf("%w: session %s is %s", ErrNotInProgress, s.ID, s.Status)
	}
	color := s.PlayerColor(player)
	if color == "" || color != s.Turn {
		return nil, fmt.Errorf("%w: session %s turn is %s", ErrNotYourTurn, s.ID, s.Turn)
	}

	newPos, err := m.oracle.Apply(s.Position, from, to, promotion)
	if err != nil {
		if errors.Is(err, rules.ErrIllegalMove) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidMove, err)
		}
		return nil, err
	}

	now := m.clock.Now()
	if !s.LastMoveAt.IsZero() {
		elapsed := int64(now.Sub(s.LastMoveAt) / time.Second)
		charged := Charge(s.ClockFor(color), elapsed, s.TimeControl.IncrementSeconds())
		if color == domain.White {
			s.WhiteClockSec = charged
		} else {
			s.BlackClockSec = charged
		}
	}
	s.LastMoveAt = now

	s.PrevPosition = s.Position
	s.Position = newPos

	res, terr := m.oracle.TerminalStatus(newPos)
	if terr != nil {
		// degrade to non-terminal; a malformed position must not kill
		// the session
		m.log.Warn("terminal_eval_error",
			zap.String("session_id", s.ID),
			zap.Error(terr),
		)
		res = rules.ResultInProgress
	}
	// The position result was computed from this exact move, so it takes
	// precedence over clock exhaustion.
	switch {
	case res == rules.ResultWhiteWins:
		m.complete(s, "session.completed.checkmate", domain.White, "White Wins by Checkmate!")
	case res == rules.ResultBlackWins:
		m.complete(s, "session.completed.checkmate", domain.Black, "Black Wins by Checkmate!")
	case res == rules.ResultDraw:
		s.Status = domain.StatusCompleted
		s.StatusMessage = m.cat.RenderOr("session.completed.draw", nil, "Draw / Stalemate")
	case !s.TimeControl.Untimed() && s.WhiteClockSec <= 0:
		m.complete(s, "session.completed.timeout", domain.Black, "Black Wins by Timeout!")
	case !s.TimeControl.Untimed() && s.BlackClockSec <= 0:
		m.complete(s, "session.completed.timeout", domain.White, "White Wins by Timeout!")
	}

	s.Turn = s.Turn.Other()
	s.Moves = append(s.Moves, moveToken(from, to, promotion))
	s.UpdatedAt = now

	saved, err := m.store.Save(ctx, s)
	if err != nil {
		return nil, err
	}
	m.log.Info("session_move",
		zap.String("session_id", saved.ID),
		zap.String("player", player),
		zap.String("move", moveToken(from, to, promotion)),
		zap.String("status", string(saved.Status)),
	)
	return saved, nil
}

// Resign completes the session in favor of the non-resigning side.
func (m *Machine) Resign(ctx context.Context, id, player string) (*domain.Session, error) {
	unlock := m.locks.lock(id)
	defer unlock()

	s, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.Status != domain.StatusInProgress {
		return nil, fmt.Errorf("%w: session %s is %s", ErrNotInProgress, s.ID, s.Status)
	}
	color := s.PlayerColor(player)
	if color == "" {
		return nil, fmt.Errorf("%w: %s in session %s", ErrNotAPlayer, player, s.ID)
	}

	winner := color.Other()
	s.Status = domain.StatusCompleted
	s.StatusMessage = m.cat.RenderOr("session.completed.resignation",
		map[string]string{"Winner": winner.Title()},
		winner.Title()+" wins by Resignation")
	s.UpdatedAt = m.clock.Now()

	saved, err := m.store.Save(ctx, s)
	if err != nil {
		return nil, err
	}
	m.log.Info("session_resign",
		zap.String("session_id", saved.ID),
		zap.String("resigner", player),
		zap.String("winner", string(winner)),
	)
	return saved, nil
}

// Undo rolls the session back one ply using the single undo slot,
// reversing any terminal determination the move had just made. Clocks are
// deliberately not restored.
func (m *Machine) Undo(ctx context.Context, id string) (*domain.Session, error) {
	unlock := m.locks.lock(id)
	defer unlock()

	s, err := m.store.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if s.PrevPosition == "" {
		return nil, fmt.Errorf("%w: session %s", ErrNothingToUndo, s.ID)
	}

	s.Position = s.PrevPosition
	s.PrevPosition = "" // exactly one undo, no stacking
	s.Status = domain.StatusInProgress
	s.StatusMessage = ""
	s.Turn = s.Turn.Other()
	s.UpdatedAt = m.clock.Now()

	saved, err := m.store.Save(ctx, s)
	if err != nil {
		return nil, err
	}
	m.log.Info("session_undo", zap.String("session_id", saved.ID))
	return saved, nil
}

func (m *Machine) complete(s *domain.Session, key string, winner domain.Color, fallback string) {
	s.Status = domain.StatusCompleted
	s.StatusMessage = m.cat.RenderOr(key, map[string]string{"Winner": winner.Title()}, fallback)
}

func moveToken(from, to, promotion string) string {
	return strings.ToLower(strings.TrimSpace(from) + strings.TrimSpace(to) + strings.TrimSpace(promotion))
}
