// Package store is the persistence boundary for sessions and players. The
// core treats it as a synchronous read/write store keyed by identity;
// archival and retention are the storage layer's concern.
package store

import (
	"context"
	"errors"

	"github.com/indichess/arena/internal/domain"
)

var (
	ErrNotFound       = errors.New("session not found")
	ErrPlayerNotFound = errors.New("player not found")
)

type Gateway interface {
	// Load returns the session by id, or an error wrapping ErrNotFound.
	Load(ctx context.Context, id string) (*domain.Session, error)
	// Save persists the session, assigning an id on first save, and
	// returns the stored copy.
	Save(ctx context.Context, s *domain.Session) (*domain.Session, error)
	// FindSessionsFor returns every session the player participates in,
	// most recently updated first.
	FindSessionsFor(ctx context.Context, player string) ([]*domain.Session, error)
	// LoadPlayer returns the player record, or an error wrapping
	// ErrPlayerNotFound.
	LoadPlayer(ctx context.Context, id string) (*domain.Player, error)
	// SavePlayer upserts a player record.
	SavePlayer(ctx context.Context, p *domain.Player) error
}
