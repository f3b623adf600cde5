// Package arenadto holds the wire-neutral payloads the core hands to the
// boundary layer and to the broadcast gateway. It depends on nothing so
// transports can reuse it directly.
package arenadto

// QueueStatus reports the outcome of a queue operation or a status probe.
// AlreadyQueued and "not queued" are statuses, never errors.
type QueueStatus struct {
	InQueue      bool   `json:"in_queue"`
	Matched      bool   `json:"matched,omitempty"`
	SessionID    string `json:"session_id,omitempty"`
	Category     string `json:"category,omitempty"`
	QueuedAtMS   int64  `json:"queued_at_ms,omitempty"`
	RemainingSec int64  `json:"remaining_sec,omitempty"`
	Message      string `json:"message,omitempty"`
}

// MatchFound is the personal pairing notification delivered to each player.
type MatchFound struct {
	SessionID string `json:"session_id"`
	Opponent  string `json:"opponent"`
	Color     string `json:"color"`
	Category  string `json:"category"`
}

// SessionEvent is the session-channel notification published after a
// state change. It carries a flattened snapshot of the session.
type SessionEvent struct {
	Type          string   `json:"type"`
	SessionID     string   `json:"session_id"`
	Status        string   `json:"status"`
	Turn          string   `json:"turn"`
	Position      string   `json:"position"`
	Moves         []string `json:"moves,omitempty"`
	WhiteID       string   `json:"white_id"`
	BlackID       string   `json:"black_id,omitempty"`
	WhiteClockSec int64    `json:"white_clock_sec"`
	BlackClockSec int64    `json:"black_clock_sec"`
	StatusMessage string   `json:"status_message,omitempty"`
}

// Session event types.
const (
	EventJoined    = "joined"
	EventMove      = "move"
	EventResigned  = "resigned"
	EventUndo      = "undo"
	EventCompleted = "completed"
)

// PlayerStats is the win/loss/draw tally over a player's completed sessions.
type PlayerStats struct {
	Total  int `json:"total"`
	Wins   int `json:"wins"`
	Losses int `json:"losses"`
	Draws  int `json:"draws"`
}
