// Package engine provides the public API for the Arx engine: move
// generation, move application, evaluation and rollout search.
package engine

import (
	"github.com/yourusername/arxengine/internal/boardid"
)

// Board is an Arx position. See boardid.Board.
type Board = boardid.Board

// Piece is the content of one square
type Piece = boardid.Piece

// PieceType is a movement archetype
type PieceType = boardid.PieceType

// Color identifies a side
type Color = boardid.Color

// Position is a square on the board
type Position = boardid.Position

// Move is a concrete move
type Move = boardid.Move

// PotentialMove is a generated candidate before the unstack decision
type PotentialMove = boardid.PotentialMove

const (
	White = boardid.White
	Black = boardid.Black

	Soldier   = boardid.Soldier
	Jester    = boardid.Jester
	Commander = boardid.Commander
	Paladin   = boardid.Paladin
	Guard     = boardid.Guard
	Dragon    = boardid.Dragon
	Ballista  = boardid.Ballista
	King      = boardid.King
)

// StartingPosition returns the initial Arx position with White to move
func StartingPosition() Board {
	return boardid.NewBoard()
}

// MoveAnalysis describes a searched candidate
type MoveAnalysis struct {
	Move        Move    `json:"-"`
	Average     float64 `json:"average"`     // Mean rollout score from the mover's perspective
	StdDev      float64 `json:"std_dev"`     // Standard deviation of rollout scores
	Simulations int     `json:"simulations"` // Valid rollouts behind Average
}
