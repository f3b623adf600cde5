// Package rules defines the move-legality oracle consumed by the session
// machine. The core treats positions as opaque strings and never inspects
// them beyond what the oracle exposes.
package rules

import "errors"

// ErrIllegalMove marks a move the oracle rejected. The surrounding session
// state must be left untouched by callers.
var ErrIllegalMove = errors.New("illegal move")

// Result classifies a position.
type Result string

const (
	ResultInProgress Result = "IN_PROGRESS"
	ResultWhiteWins  Result = "WHITE_WINS"
	ResultBlackWins  Result = "BLACK_WINS"
	ResultDraw       Result = "DRAW"
)

// Terminal reports whether the result ends a game.
func (r Result) Terminal() bool { return r != ResultInProgress }

// Oracle decides move legality and classifies positions. Implementations
// must be deterministic and side-effect free so the session machine can
// call them while holding a session lock.
type Oracle interface {
	// InitialPosition returns the encoded starting position.
	InitialPosition() string
	// IsLegal reports whether moving from→to is legal in the position.
	IsLegal(position, from, to string) bool
	// Apply plays the candidate move and returns the resulting position,
	// or an error wrapping ErrIllegalMove when the move is rejected.
	Apply(position, from, to, promotion string) (string, error)
	// TerminalStatus classifies the position. A non-nil error means the
	// oracle could not evaluate the position; callers should degrade to
	// treating it as still in progress.
	TerminalStatus(position string) (Result, error)
}
