package engine

import (
	"errors"
	"fmt"
)

// Move application errors
var (
	ErrNoPiece         = errors.New("no piece at source")
	ErrUnstackKing     = errors.New("cannot unstack a King")
	ErrNoTopPiece      = errors.New("no top piece to unstack")
	ErrFriendlyBlocked = errors.New("destination holds a friendly piece that cannot take a top")
	ErrStackOnStack    = errors.New("a stack cannot be placed on another piece")
	ErrKingStack       = errors.New("a King cannot be stacked")
	ErrOutOfBounds     = errors.New("position off the board")
	ErrGameOver        = errors.New("game is over")
	ErrIllegalMove     = errors.New("move is not legal in this position")
)

// ErrNoLegalMoves is returned by searches when the side to move has no move
var ErrNoLegalMoves = errors.New("no legal moves available")

// MoveError reports why a move could not be applied
type MoveError struct {
	Move Move
	Err  error
}

func (e *MoveError) Error() string {
	return fmt.Sprintf("move %s: %v", e.Move, e.Err)
}

func (e *MoveError) Unwrap() error {
	return e.Err
}

func moveError(m Move, err error) error {
	return &MoveError{Move: m, Err: err}
}
