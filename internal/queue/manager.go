// Package queue pairs waiting players into sessions. One bucket per
// time-control category; a single manager instance owns every bucket and
// the timeout watchdogs, so tests construct isolated managers instead of
// sharing process-wide state.
package queue

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/indichess/arena/internal/broadcast"
	"github.com/indichess/arena/internal/domain"
	"github.com/indichess/arena/internal/obslog"
	"github.com/indichess/arena/pkg/arenadto"
)

// DefaultWindow is how long an entry waits before the watchdog removes it.
const DefaultWindow = 90 * time.Second

// PairFunc creates a session for a matched pair. Colors are already
// assigned by the manager. Called without holding any queue lock.
type PairFunc func(ctx context.Context, white, black string, tc domain.TimeControl) (*domain.Session, error)

// Config carries the injectable pieces. Zero values select production
// defaults (real clock, math/rand colors, 90s window).
type Config struct {
	Window time.Duration
	Clock  clockwork.Clock
	Intn   func(n int) int
	Logger *zap.Logger
}

type entry struct {
	player   string
	category domain.TimeControl
	queuedAt time.Time
	timer    clockwork.Timer
	cancel   chan struct{}
}

type Manager struct {
	mu      sync.Mutex
	buckets map[domain.TimeControl]map[string]*entry

	window time.Duration
	clock  clockwork.Clock
	intn   func(n int) int
	pair   PairFunc
	notify broadcast.Gateway
	log    *zap.Logger
}

func NewManager(cfg Config, pair PairFunc, notify broadcast.Gateway) *Manager {
	if cfg.Window <= 0 {
		cfg.Window = DefaultWindow
	}
	if cfg.Clock == nil {
		cfg.Clock = clockwork.NewRealClock()
	}
	if cfg.Intn == nil {
		cfg.Intn = rand.Intn
	}
	if cfg.Logger == nil {
		cfg.Logger = obslog.L()
	}
	if notify == nil {
		notify = broadcast.Nop{}
	}
	return &Manager{
		buckets: make(map[domain.TimeControl]map[string]*entry),
		window:  cfg.Window,
		clock:   cfg.Clock,
		intn:    cfg.Intn,
		pair:    pair,
		notify:  notify,
		log:     cfg.Logger,
	}
}

// Join enqueues the player in the category's bucket, or pairs immediately
// when another player is already waiting there. A player already queued
// anywhere gets an "already queued" status back, not an error.
func (m *Manager) Join(ctx context.Context, player, category string) (*arenadto.QueueStatus, error) {
	player = strings.TrimSpace(player)
	if player == "" {
		return nil, fmt.Errorf("player identity required")
	}
	tc := domain.ParseTimeControl(category)

	m.mu.Lock()
	if e := m.findLocked(player); e != nil {
		m.mu.Unlock()
		return &arenadto.QueueStatus{
			InQueue:  true,
			Category: string(e.category),
			Message:  "Already in queue",
		}, nil
	}

	// First non-self entry found wins. Deliberately not FIFO.
	var opponent *entry
	for _, e := range m.bucketLocked(tc) {
		if e.player != player {
			opponent = e
			break
		}
	}
	if opponent != nil {
		m.removeLocked(opponent)
		m.mu.Unlock()
		return m.createMatch(ctx, player, opponent.player, tc)
	}

	e := m.insertLocked(player, tc)
	m.mu.Unlock()

	m.log.Info("queue_join",
		zap.String("player", player),
		zap.String("category", string(tc)),
	)
	return &arenadto.QueueStatus{
		InQueue:      true,
		Category:     string(tc),
		QueuedAtMS:   e.queuedAt.UnixMilli(),
		RemainingSec: int64(m.window / time.Second),
		Message:      "Searching for opponent...",
	}, nil
}

// Leave removes the player's entry wherever it is. Idempotent: a player
// not in any bucket gets a "not queued" status.
func (m *Manager) Leave(ctx context.Context, player string) (*arenadto.QueueStatus, error) {
	m.mu.Lock()
	e := m.findLocked(player)
	if e == nil {
		m.mu.Unlock()
		return &arenadto.QueueStatus{InQueue: false, Message: "Not in queue"}, nil
	}
	m.removeLocked(e)
	m.mu.Unlock()

	m.log.Info("queue_leave",
		zap.String("player", player),
		zap.String("category", string(e.category)),
	)
	return &arenadto.QueueStatus{InQueue: false, Category: string(e.category), Message: "Left queue"}, nil
}

// Status is a read-only probe reporting the remaining wait estimate.
func (m *Manager) Status(ctx context.Context, player string) *arenadto.QueueStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.findLocked(player)
	if e == nil {
		return &arenadto.QueueStatus{InQueue: false, Message: "Not in queue"}
	}
	remaining := m.window - m.clock.Since(e.queuedAt)
	if remaining < 0 {
		remaining = 0
	}
	sec := int64(remaining / time.Second)
	return &arenadto.QueueStatus{
		InQueue:      true,
		Category:     string(e.category),
		QueuedAtMS:   e.queuedAt.UnixMilli(),
		RemainingSec: sec,
		Message:      fmt.Sprintf("Searching for opponent... (%ds remaining)", sec),
	}
}

// TotalQueued sums all bucket sizes. Monitoring only.
func (m *Manager) TotalQueued() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	total := 0
	for _, b := range m.buckets {
		total += len(b)
	}
	return total
}

func (m *Manager) createMatch(ctx context.Context, joiner, opponent string, tc domain.TimeControl) (*arenadto.QueueStatus, error) {
	// Uniform coin flip for colors, injectable for tests.
	white, black := joiner, opponent
	if m.intn(2) == 0 {
		white, black = opponent, joiner
	}

	s, err := m.pair(ctx, white, black, tc)
	if err != nil {
		m.log.Error("match_create_error",
			zap.String("white", white),
			zap.String("black", black),
			zap.String("category", string(tc)),
			zap.Error(err),
		)
		// Put both players back with fresh watchdogs.
		m.mu.Lock()
		for _, p := range []string{joiner, opponent} {
			if m.findLocked(p) == nil {
				m.insertLocked(p, tc)
			}
		}
		m.mu.Unlock()
		return &arenadto.QueueStatus{
			InQueue:  true,
			Category: string(tc),
			Message:  "Match creation failed, back in queue",
		}, nil
	}

	m.log.Info("match_created",
		zap.String("session_id", s.ID),
		zap.String("white", white),
		zap.String("black", black),
		zap.String("category", string(tc)),
	)
	m.notify.PublishToPlayer(ctx, white, arenadto.MatchFound{
		SessionID: s.ID, Opponent: black, Color: string(domain.White), Category: string(tc),
	})
	m.notify.PublishToPlayer(ctx, black, arenadto.MatchFound{
		SessionID: s.ID, Opponent: white, Color: string(domain.Black), Category: string(tc),
	})
	return &arenadto.QueueStatus{
		Matched:   true,
		SessionID: s.ID,
		Category:  string(tc),
		Message:   "Match found! Session " + s.ID,
	}, nil
}

func (m *Manager) bucketLocked(tc domain.TimeControl) map[string]*entry {
	b, ok := m.buckets[tc]
	if !ok {
		b = make(map[string]*entry)
		m.buckets[tc] = b
	}
	return b
}

func (m *Manager) findLocked(player string) *entry {
	for _, b := range m.buckets {
		if e, ok := b[player]; ok {
			return e
		}
	}
	return nil
}

func (m *Manager) insertLocked(player string, tc domain.TimeControl) *entry {
	e := &entry{
		player:   player,
		category: tc,
		queuedAt: m.clock.Now(),
		timer:    m.clock.NewTimer(m.window),
		cancel:   make(chan struct{}),
	}
	m.bucketLocked(tc)[player] = e
	go m.watch(e)
	return e
}

// removeLocked deletes the entry and stops its watchdog. The entry is
// only ever removed once; closing cancel here is safe.
func (m *Manager) removeLocked(e *entry) {
	delete(m.buckets[e.category], e.player)
	close(e.cancel)
}

func (m *Manager) watch(e *entry) {
	select {
	case <-e.timer.Chan():
		m.expire(e)
	case <-e.cancel:
		stopAndDrain(e.timer)
	}
}

// expire races against pairing and leave; it re-checks presence under the
// lock and becomes a no-op when the entry is already gone.
func (m *Manager) expire(e *entry) {
	m.mu.Lock()
	cur, ok := m.buckets[e.category][e.player]
	if !ok || cur != e {
		m.mu.Unlock()
		return
	}
	delete(m.buckets[e.category], e.player)
	m.mu.Unlock()

	m.log.Info("queue_timeout",
		zap.String("player", e.player),
		zap.String("category", string(e.category)),
	)
	m.notify.PublishToPlayer(context.Background(), e.player, arenadto.QueueStatus{
		InQueue: false,
		Message: "No opponent found. Please try again.",
	})
}

func stopAndDrain(t clockwork.Timer) {
	if !t.Stop() {
		select {
		case <-t.Chan():
		default:
		}
	}
}
