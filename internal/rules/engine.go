package rules

import (
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// Engine is the FEN-based oracle backed by the chess move generator.
type Engine struct{}

// NewEngine returns the production oracle.
func NewEngine() *Engine { return &Engine{} }

func (e *Engine) InitialPosition() string {
	return nchess.NewGame().FEN()
}

func (e *Engine) IsLegal(position, from, to string) bool {
	game, err := gameFromFEN(position)
	if err != nil {
		return false
	}
	uci := normalizeUCI(from, to, "")
	if _, derr := (nchess.UCINotation{}).Decode(game.Position(), uci); derr == nil {
		return true
	}
	// A bare from/to pair may still be a promotion push.
	_, derr := (nchess.UCINotation{}).Decode(game.Position(), uci+"q")
	return derr == nil
}

func (e *Engine) Apply(position, from, to, promotion string) (string, error) {
	game, err := gameFromFEN(position)
	if err != nil {
		return "", fmt.Errorf("parse position: %w", err)
	}
	uci := normalizeUCI(from, to, promotion)
	mv, err := (nchess.UCINotation{}).Decode(game.Position(), uci)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrIllegalMove, uci)
	}
	if err := game.Move(mv, nil); err != nil {
		return "", fmt.Errorf("%w: %s", ErrIllegalMove, uci)
	}
	return game.FEN(), nil
}

func (e *Engine) TerminalStatus(position string) (Result, error) {
	// A position without a king cannot be parsed by every FEN reader;
	// classify it before handing it to the library.
	if res, ok := missingKing(position); ok {
		return res, nil
	}
	game, err := gameFromFEN(position)
	if err != nil {
		return ResultInProgress, fmt.Errorf("parse position: %w", err)
	}
	pos := game.Position()
	switch pos.Status() {
	case nchess.Checkmate:
		if pos.Turn() == nchess.White {
			return ResultBlackWins, nil
		}
		return ResultWhiteWins, nil
	case nchess.Stalemate:
		return ResultDraw, nil
	}
	if game.Outcome() == nchess.Draw {
		return ResultDraw, nil
	}
	return ResultInProgress, nil
}

func gameFromFEN(fen string) (*nchess.Game, error) {
	opt, err := nchess.FEN(strings.TrimSpace(fen))
	if err != nil {
		return nil, err
	}
	return nchess.NewGame(opt), nil
}

func normalizeUCI(from, to, promotion string) string {
	return strings.ToLower(strings.TrimSpace(from) + strings.TrimSpace(to) + strings.TrimSpace(promotion))
}

func missingKing(fen string) (Result, bool) {
	placement, _, _ := strings.Cut(strings.TrimSpace(fen), " ")
	if placement == "" {
		return ResultInProgress, false
	}
	if !strings.Contains(placement, "K") {
		return ResultBlackWins, true
	}
	if !strings.Contains(placement, "k") {
		return ResultWhiteWins, true
	}
	return ResultInProgress, false
}
