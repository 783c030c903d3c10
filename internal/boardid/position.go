package boardid

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidPosition is returned for coordinates or indices off the board
var ErrInvalidPosition = errors.New("invalid position")

// Position is a square given by column X and row Y, both in [0,8].
// Row 0 is Black's back rank.
type Position struct {
	X, Y int
}

// Pos is shorthand for Position{x, y}
func Pos(x, y int) Position {
	return Position{X: x, Y: y}
}

// PositionFromIndex converts an absolute index 0-80 to a position
func PositionFromIndex(i int) (Position, error) {
	if i < 0 || i >= NumSquares {
		return Position{}, fmt.Errorf("%w: index %d", ErrInvalidPosition, i)
	}
	return Position{X: i % Dimension, Y: i / Dimension}, nil
}

// Index returns the absolute index y*9+x
func (p Position) Index() int {
	return p.Y*Dimension + p.X
}

// Valid reports whether the position lies on the board
func (p Position) Valid() bool {
	return p.X >= 0 && p.X < Dimension && p.Y >= 0 && p.Y < Dimension
}

// Offset returns the position shifted by (dx, dy) and whether it is on the board
func (p Position) Offset(dx, dy int) (Position, bool) {
	n := Position{X: p.X + dx, Y: p.Y + dy}
	return n, n.Valid()
}

// String returns the square name, column A-I followed by row 1-9.
// A1 is (0,8) and I9 is (8,0).
func (p Position) String() string {
	if !p.Valid() {
		return fmt.Sprintf("(%d,%d)", p.X, p.Y)
	}
	return fmt.Sprintf("%c%d", 'A'+p.X, Dimension-p.Y)
}

// ParsePosition parses a square name such as "B4"
func ParsePosition(s string) (Position, error) {
	s = strings.TrimSpace(s)
	if len(s) != 2 {
		return Position{}, fmt.Errorf("%w: %q, use a square such as B4", ErrInvalidPosition, s)
	}
	col := s[0]
	if col >= 'a' && col <= 'z' {
		col -= 'a' - 'A'
	}
	if col < 'A' || col > 'I' {
		return Position{}, fmt.Errorf("%w: column %q, use letters A-I", ErrInvalidPosition, s[0])
	}
	row := s[1]
	if row < '1' || row > '9' {
		return Position{}, fmt.Errorf("%w: row %q, use numbers 1-9", ErrInvalidPosition, row)
	}
	return Position{X: int(col - 'A'), Y: Dimension - 1 - int(row-'1')}, nil
}
