package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/indichess/arena/internal/domain"
)

// Memory is an in-process gateway used when no redis is configured and by
// tests that do not need a real store.
type Memory struct {
	mu sync.RWMutex

	sessions map[string]*domain.Session
	byPlayer map[string][]string // player id -> session ids, insertion order
	players  map[string]*domain.Player
}

func NewMemory() *Memory {
	return &Memory{
		sessions: make(map[string]*domain.Session),
		byPlayer: make(map[string][]string),
		players:  make(map[string]*domain.Player),
	}
}

func (m *Memory) Load(ctx context.Context, id string) (*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return s.Clone(), nil
}

func (m *Memory) Save(ctx context.Context, s *domain.Session) (*domain.Session, error) {
	if s == nil {
		return nil, fmt.Errorf("nil session")
	}
	cp := s.Clone()
	if strings.TrimSpace(cp.ID) == "" {
		cp.ID = uuid.NewString()
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[cp.ID] = cp
	for _, id := range []string{cp.WhiteID, cp.BlackID} {
		if id == "" || containsID(m.byPlayer[id], cp.ID) {
			continue
		}
		m.byPlayer[id] = append(m.byPlayer[id], cp.ID)
	}
	return cp.Clone(), nil
}

func (m *Memory) FindSessionsFor(ctx context.Context, player string) ([]*domain.Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var list []*domain.Session
	for _, id := range m.byPlayer[player] {
		if s, ok := m.sessions[id]; ok {
			list = append(list, s.Clone())
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].UpdatedAt.After(list[j].UpdatedAt) })
	return list, nil
}

func (m *Memory) LoadPlayer(ctx context.Context, id string) (*domain.Player, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.players[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPlayerNotFound, id)
	}
	cp := *p
	return &cp, nil
}

func (m *Memory) SavePlayer(ctx context.Context, p *domain.Player) error {
	if p == nil || strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("player id required")
	}
	cp := *p
	m.mu.Lock()
	m.players[cp.ID] = &cp
	m.mu.Unlock()
	return nil
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
