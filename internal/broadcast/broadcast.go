// Package broadcast delivers notifications to players and session
// subscribers. Delivery is fire-and-forget: the core never observes
// whether a message arrived, and failures must not affect game state.
package broadcast

import (
	"context"
	"sync"
)

type Gateway interface {
	PublishToSession(ctx context.Context, sessionID string, message any)
	PublishToPlayer(ctx context.Context, playerID string, message any)
}

// Nop discards everything. Used when no broker is configured.
type Nop struct{}

func (Nop) PublishToSession(context.Context, string, any) {}
func (Nop) PublishToPlayer(context.Context, string, any)  {}

// Recorder keeps published messages in memory for inspection. It backs
// tests and single-process development runs.
type Recorder struct {
	mu       sync.Mutex
	sessions map[string][]any
	players  map[string][]any
}

func NewRecorder() *Recorder {
	return &Recorder{
		sessions: make(map[string][]any),
		players:  make(map[string][]any),
	}
}

func (r *Recorder) PublishToSession(_ context.Context, sessionID string, message any) {
	r.mu.Lock()
	r.sessions[sessionID] = append(r.sessions[sessionID], message)
	r.mu.Unlock()
}

func (r *Recorder) PublishToPlayer(_ context.Context, playerID string, message any) {
	r.mu.Lock()
	r.players[playerID] = append(r.players[playerID], message)
	r.mu.Unlock()
}

// SessionMessages returns a copy of everything published to a session.
func (r *Recorder) SessionMessages(sessionID string) []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]any(nil), r.sessions[sessionID]...)
}

// PlayerMessages returns a copy of everything published to a player.
func (r *Recorder) PlayerMessages(playerID string) []any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]any(nil), r.players[playerID]...)
}
