package engine

import (
	"errors"
	"fmt"
)

// DefaultSelfPlayMoves bounds a self-play game when no limit is given
const DefaultSelfPlayMoves = 200

// SelfPlayStep is reported after each engine move
type SelfPlayStep struct {
	Ply   int // 1-based
	Move  Move
	Board Board // Position after Move
	Stats SearchStatistics
}

// SelfPlayCallback receives each step; returning false stops the game
type SelfPlayCallback func(step SelfPlayStep) bool

// SelfPlay lets the engine play both sides from board for up to maxMoves
// moves (0 = DefaultSelfPlayMoves). It stops early on a King capture, when
// the side to move has no legal move, or when fn returns false.
func (e *Engine) SelfPlay(board Board, maxMoves int, fn SelfPlayCallback) (Board, error) {
	if maxMoves <= 0 {
		maxMoves = DefaultSelfPlayMoves
	}
	for ply := 1; ply <= maxMoves; ply++ {
		if board.GameOver {
			return board, nil
		}
		m, err := e.FindBestMove(board)
		if errors.Is(err, ErrNoLegalMoves) {
			return board, nil
		}
		if err != nil {
			return board, err
		}
		next, err := ApplyMove(board, m)
		if err != nil {
			return board, fmt.Errorf("engine move %s at ply %d: %w", m, ply, err)
		}
		board = next

		if fn != nil && !fn(SelfPlayStep{Ply: ply, Move: m, Board: board, Stats: e.Statistics()}) {
			return board, nil
		}
	}
	return board, nil
}
