package domain

import "strings"

// TimeControl is a named time-control category. It partitions the
// matchmaking queue and fixes the clock allotment and increment.
type TimeControl string

const (
	ControlStandard TimeControl = "STANDARD"
	ControlRapid    TimeControl = "RAPID"
	ControlBlitz    TimeControl = "BLITZ"
)

// ParseTimeControl normalizes a category name. Unknown or empty input
// falls back to STANDARD.
func ParseTimeControl(s string) TimeControl {
	switch TimeControl(strings.ToUpper(strings.TrimSpace(s))) {
	case ControlRapid:
		return ControlRapid
	case ControlBlitz:
		return ControlBlitz
	default:
		return ControlStandard
	}
}

// InitialSeconds returns the starting clock allotment per side.
func (tc TimeControl) InitialSeconds() int64 {
	switch tc {
	case ControlRapid:
		return 600
	case ControlBlitz:
		return 180
	default:
		return 0
	}
}

// IncrementSeconds returns the per-move bonus added after a completed move.
func (tc TimeControl) IncrementSeconds() int64 {
	if tc == ControlBlitz {
		return 1
	}
	return 0
}

// Untimed reports whether the category plays without clocks. An untimed
// session never completes by timeout.
func (tc TimeControl) Untimed() bool { return tc.InitialSeconds() == 0 }

// Description returns a short human-readable summary.
func (tc TimeControl) Description() string {
	switch tc {
	case ControlRapid:
		return "Rapid - 10 minutes"
	case ControlBlitz:
		return "Blitz - 3 minutes + 1 second increment"
	default:
		return "Standard - No time limit"
	}
}
