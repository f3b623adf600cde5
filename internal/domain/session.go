package domain

import "time"

// Color identifies a chess side.
type Color string

const (
	White Color = "WHITE"
	Black Color = "BLACK"
)

// Other returns the opposing side.
func (c Color) Other() Color {
	if c == White {
		return Black
	}
	return White
}

// Title returns the side name for user-facing messages ("White"/"Black").
func (c Color) Title() string {
	if c == White {
		return "White"
	}
	return "Black"
}

// Status represents a session lifecycle state.
// WAITING → IN_PROGRESS → COMPLETED; COMPLETED is terminal.
type Status string

const (
	StatusWaiting    Status = "WAITING"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

// Session is the persisted state of a two-player match. The position and
// undo slot are opaque encodings owned by the rules oracle; the core stores
// them verbatim.
type Session struct {
	ID            string      `json:"id"`
	WhiteID       string      `json:"white_id"`
	BlackID       string      `json:"black_id,omitempty"`
	Position      string      `json:"position"`
	Moves         []string    `json:"moves"`
	Status        Status      `json:"status"`
	Turn          Color       `json:"turn"`
	TimeControl   TimeControl `json:"time_control"`
	WhiteClockSec int64       `json:"white_clock_sec"`
	BlackClockSec int64       `json:"black_clock_sec"`
	LastMoveAt    time.Time   `json:"last_move_at,omitzero"`
	StatusMessage string      `json:"status_message,omitempty"`
	PrevPosition  string      `json:"prev_position,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// PlayerColor returns the side occupied by the given identity, or "" when
// the identity is not a participant.
func (s *Session) PlayerColor(player string) Color {
	switch {
	case player != "" && s.WhiteID == player:
		return White
	case player != "" && s.BlackID == player:
		return Black
	default:
		return ""
	}
}

// Opponent returns the other participant's identity, or "" for outsiders.
func (s *Session) Opponent(player string) string {
	switch player {
	case s.WhiteID:
		return s.BlackID
	case s.BlackID:
		return s.WhiteID
	default:
		return ""
	}
}

// ClockFor returns the remaining seconds for the given side.
func (s *Session) ClockFor(c Color) int64 {
	if c == White {
		return s.WhiteClockSec
	}
	return s.BlackClockSec
}

// Clone returns an independent copy safe to hand to callers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Moves = append([]string(nil), s.Moves...)
	return &cp
}

// Player is an account record known to the persistence gateway.
type Player struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name,omitempty"`
	Rating      int       `json:"rating,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
