// Package boardid implements the Arx board and move encodings.
//
// A board encodes to 82 bytes: one byte per square in row-major order
// (index = y*9+x) followed by a turn byte that is 1 when White is to move.
// Board IDs are the standard base64 form of those bytes and are used for
// import/export.
package boardid

import (
	"fmt"
	"strings"
)

const (
	// Dimension is the width and height of the board
	Dimension = 9
	// NumSquares is the number of squares on the board
	NumSquares = Dimension * Dimension
	// EncodedSize is the length of a binary board encoding
	EncodedSize = NumSquares + 1
)

// Color identifies a side
type Color uint8

const (
	Black Color = iota
	White
)

// Opponent returns the other side
func (c Color) Opponent() Color {
	if c == White {
		return Black
	}
	return White
}

func (c Color) String() string {
	if c == White {
		return "White"
	}
	return "Black"
}

// PieceType is a movement archetype. Codes 1-7 are the 3-bit wire codes;
// King is encoded with its own payload and never appears as a 3-bit code.
type PieceType uint8

const (
	None PieceType = iota
	Soldier
	Jester
	Commander
	Paladin
	Guard
	Dragon
	Ballista
	King
)

var pieceLetters = [...]string{"", "S", "J", "C", "P", "G", "D", "B", "K"}

var pieceNames = [...]string{"None", "Soldier", "Jester", "Commander", "Paladin", "Guard", "Dragon", "Ballista", "King"}

func (p PieceType) String() string {
	if int(p) < len(pieceNames) {
		return pieceNames[p]
	}
	return fmt.Sprintf("PieceType(%d)", uint8(p))
}

// Letter returns the one-letter board symbol for the piece type
func (p PieceType) Letter() string {
	if int(p) < len(pieceLetters) {
		return pieceLetters[p]
	}
	return "?"
}

// Piece is the content of a square. The zero value is an empty square.
// Top is None unless a second piece of the same color sits on Bottom.
type Piece struct {
	Color  Color
	Bottom PieceType
	Top    PieceType
}

// Single returns an unstacked piece
func Single(c Color, t PieceType) Piece {
	return Piece{Color: c, Bottom: t}
}

// Stack returns a two-piece stack with top resting on bottom
func Stack(c Color, bottom, top PieceType) Piece {
	return Piece{Color: c, Bottom: bottom, Top: top}
}

// IsEmpty reports whether the square holds no piece
func (p Piece) IsEmpty() bool {
	return p.Bottom == None
}

// HasTop reports whether the piece is a stack
func (p Piece) HasTop() bool {
	return p.Top != None
}

// Stackable reports whether another piece may be placed on top of this one
func (p Piece) Stackable() bool {
	return !p.IsEmpty() && p.Bottom != King && p.Top == None
}

// Symbol returns "T+B" for a stack and the bottom letter otherwise
func (p Piece) Symbol() string {
	if p.IsEmpty() {
		return "."
	}
	if p.HasTop() {
		return p.Top.Letter() + "+" + p.Bottom.Letter()
	}
	return p.Bottom.Letter()
}

// Board is an Arx position. GameOver is set by a king capture and is not
// part of the binary encoding.
type Board struct {
	Squares     [NumSquares]Piece
	WhiteToMove bool
	GameOver    bool
}

// initialHalf is the Black setup for rows 0-2. White mirrors it through the
// board center.
var initialHalf = [3 * Dimension]PieceType{
	Ballista, Dragon, Paladin, Guard, King, Guard, Paladin, Dragon, Ballista,
	None, None, Commander, None, None, None, Jester, None, None,
	Soldier, Soldier, Soldier, Soldier, Soldier, Soldier, Soldier, Soldier, Soldier,
}

// NewBoard returns the starting position with White to move
func NewBoard() Board {
	var b Board
	for i, t := range initialHalf {
		if t == None {
			continue
		}
		b.Squares[i] = Single(Black, t)
		b.Squares[NumSquares-1-i] = Single(White, t)
	}
	b.WhiteToMove = true
	return b
}

// SideToMove returns the color whose turn it is
func (b *Board) SideToMove() Color {
	if b.WhiteToMove {
		return White
	}
	return Black
}

// At returns the piece on p
func (b *Board) At(p Position) Piece {
	return b.Squares[p.Index()]
}

// Set places piece on p
func (b *Board) Set(p Position, piece Piece) {
	b.Squares[p.Index()] = piece
}

// String renders the board as text, rank 9 at the top
func (b Board) String() string {
	var sb strings.Builder
	sb.WriteString("    A   B   C   D   E   F   G   H   I\n")
	for y := 0; y < Dimension; y++ {
		fmt.Fprintf(&sb, "%d ", Dimension-y)
		for x := 0; x < Dimension; x++ {
			p := b.Squares[y*Dimension+x]
			sym := p.Symbol()
			if !p.IsEmpty() && p.Color == Black {
				sym = strings.ToLower(sym)
			}
			fmt.Fprintf(&sb, "%4s", sym)
		}
		fmt.Fprintf(&sb, "  %d\n", Dimension-y)
	}
	sb.WriteString("    A   B   C   D   E   F   G   H   I\n")
	fmt.Fprintf(&sb, "%s to move", b.SideToMove())
	if b.GameOver {
		sb.WriteString(" (game over)")
	}
	sb.WriteString("\n")
	return sb.String()
}

// CountKings returns the number of Kings on the board and the total number
// of occupied squares
func (b *Board) CountKings() (kings, occupied int) {
	for _, p := range b.Squares {
		if p.IsEmpty() {
			continue
		}
		occupied++
		if p.Bottom == King {
			kings++
		}
	}
	return kings, occupied
}
