// Package arena wires the matchmaking queue and the session machine into
// one facade. Boundary layers (bots, HTTP, tests) talk to this package
// only; it owns event broadcasting and completed-game archival.
package arena

import (
	"context"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/indichess/arena/internal/broadcast"
	"github.com/indichess/arena/internal/domain"
	"github.com/indichess/arena/internal/game"
	"github.com/indichess/arena/internal/msgcat"
	"github.com/indichess/arena/internal/queue"
	"github.com/indichess/arena/internal/rules"
	"github.com/indichess/arena/internal/store"
	"github.com/indichess/arena/pkg/arenadto"
)

// Archiver persists completed sessions to long-term storage. Archival is
// best-effort; failures are logged and never surface to players.
type Archiver interface {
	ArchiveSession(ctx context.Context, s *domain.Session) error
}

// Config carries the injectable pieces shared by the queue and the
// machine. Zero values select production defaults.
type Config struct {
	QueueWindow time.Duration
	Clock       clockwork.Clock
	Catalog     *msgcat.Catalog
	Logger      *zap.Logger
}

type Service struct {
	queue   *queue.Manager
	machine *game.Machine
	store   store.Gateway
	notify  broadcast.Gateway
	archive Archiver
	log     *zap.Logger
}

func New(cfg Config, oracle rules.Oracle, st store.Gateway, notify broadcast.Gateway, arch Archiver) *Service {
	if cfg.Logger == nil {
		cfg.Logger = zap.L()
	}
	if notify == nil {
		notify = broadcast.Nop{}
	}
	s := &Service{
		store:   st,
		notify:  notify,
		archive: arch,
		log:     cfg.Logger,
	}
	s.machine = game.NewMachine(game.Config{
		Clock:   cfg.Clock,
		Catalog: cfg.Catalog,
		Logger:  cfg.Logger,
	}, oracle, st)
	s.queue = queue.NewManager(queue.Config{
		Window: cfg.QueueWindow,
		Clock:  cfg.Clock,
		Logger: cfg.Logger,
	}, s.pairSession, notify)
	return s
}

// JoinQueue enqueues the player or pairs them immediately. When a pair
// forms, both players receive a MatchFound notification and the session
// channel gets the first joined event.
func (s *Service) JoinQueue(ctx context.Context, player, category string) (*arenadto.QueueStatus, error) {
	return s.queue.Join(ctx, player, category)
}

func (s *Service) LeaveQueue(ctx context.Context, player string) (*arenadto.QueueStatus, error) {
	return s.queue.Leave(ctx, player)
}

func (s *Service) QueueStatus(ctx context.Context, player string) *arenadto.QueueStatus {
	return s.queue.Status(ctx, player)
}

// TotalQueued reports the number of waiting players across all
// categories. Monitoring only.
func (s *Service) TotalQueued() int {
	return s.queue.TotalQueued()
}

// CreateSession opens a waiting session with the creator as White.
func (s *Service) CreateSession(ctx context.Context, player, category string) (*domain.Session, error) {
	return s.machine.Create(ctx, player, domain.ParseTimeControl(category))
}

// JoinSession fills the black seat and starts the session.
func (s *Service) JoinSession(ctx context.Context, id, player string) (*domain.Session, error) {
	sess, err := s.machine.Join(ctx, id, player)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, sess, arenadto.EventJoined)
	return sess, nil
}

// ApplyMove executes one move for the player. A move that ends the
// session publishes a completed event and hands the session to the
// archiver.
func (s *Service) ApplyMove(ctx context.Context, id, player, from, to, promotion string) (*domain.Session, error) {
	sess, err := s.machine.ApplyMove(ctx, id, player, from, to, promotion)
	if err != nil {
		return nil, err
	}
	if sess.Status == domain.StatusCompleted {
		s.publish(ctx, sess, arenadto.EventCompleted)
		s.archiveCompleted(ctx, sess)
	} else {
		s.publish(ctx, sess, arenadto.EventMove)
	}
	return sess, nil
}

// Resign forfeits the session for the given player.
func (s *Service) Resign(ctx context.Context, id, player string) (*domain.Session, error) {
	sess, err := s.machine.Resign(ctx, id, player)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, sess, arenadto.EventResigned)
	s.archiveCompleted(ctx, sess)
	return sess, nil
}

// Undo rolls the session back one ply.
func (s *Service) Undo(ctx context.Context, id string) (*domain.Session, error) {
	sess, err := s.machine.Undo(ctx, id)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, sess, arenadto.EventUndo)
	return sess, nil
}

func (s *Service) GetSession(ctx context.Context, id string) (*domain.Session, error) {
	return s.store.Load(ctx, id)
}

// SessionsFor returns the player's sessions, most recent first.
func (s *Service) SessionsFor(ctx context.Context, player string) ([]*domain.Session, error) {
	return s.store.FindSessionsFor(ctx, player)
}

// PlayerStats tallies the player's completed sessions by outcome. The
// outcome is read back from the completion message, so sessions finished
// by checkmate, timeout and resignation all count the same way.
func (s *Service) PlayerStats(ctx context.Context, player string) (*arenadto.PlayerStats, error) {
	sessions, err := s.store.FindSessionsFor(ctx, player)
	if err != nil {
		return nil, err
	}
	stats := &arenadto.PlayerStats{}
	for _, sess := range sessions {
		if sess.Status != domain.StatusCompleted {
			continue
		}
		stats.Total++
		switch winnerOf(sess.StatusMessage) {
		case sess.PlayerColor(player):
			stats.Wins++
		case "":
			stats.Draws++
		default:
			stats.Losses++
		}
	}
	return stats, nil
}

// pairSession is the queue's PairFunc: it opens the session for the white
// player and immediately seats the black player. Colors are decided by
// the queue before this runs.
func (s *Service) pairSession(ctx context.Context, white, black string, tc domain.TimeControl) (*domain.Session, error) {
	sess, err := s.machine.Create(ctx, white, tc)
	if err != nil {
		return nil, err
	}
	sess, err = s.machine.Join(ctx, sess.ID, black)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, sess, arenadto.EventJoined)
	return sess, nil
}

func (s *Service) publish(ctx context.Context, sess *domain.Session, event string) {
	s.notify.PublishToSession(ctx, sess.ID, toEvent(sess, event))
}

func (s *Service) archiveCompleted(ctx context.Context, sess *domain.Session) {
	if s.archive == nil {
		return
	}
	if err := s.archive.ArchiveSession(ctx, sess); err != nil {
		s.log.Warn("archive_failed",
			zap.String("session_id", sess.ID),
			zap.Error(err),
		)
	}
}

func toEvent(sess *domain.Session, event string) arenadto.SessionEvent {
	return arenadto.SessionEvent{
		Type:          event,
		SessionID:     sess.ID,
		Status:        string(sess.Status),
		Turn:          string(sess.Turn),
		Position:      sess.Position,
		Moves:         sess.Moves,
		WhiteID:       sess.WhiteID,
		BlackID:       sess.BlackID,
		WhiteClockSec: sess.WhiteClockSec,
		BlackClockSec: sess.BlackClockSec,
		StatusMessage: sess.StatusMessage,
	}
}

// winnerOf extracts the winning color from a completion message, or ""
// for a draw or an unrecognized message.
func winnerOf(message string) domain.Color {
	switch {
	case strings.HasPrefix(message, "White"):
		return domain.White
	case strings.HasPrefix(message, "Black"):
		return domain.Black
	default:
		return ""
	}
}
