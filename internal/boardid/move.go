package boardid

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

// Move and PotentialMove bit layout
const (
	indexMask        = 0x7F
	toShift          = 7
	unstackBit       = 1 << 14
	forceUnstackBit  = 1 << 15
	moveWireSize     = 2
	maxEncodedSquare = NumSquares - 1
)

var (
	// ErrInvalidMoveEncoding is returned when a 16-bit move does not name two squares
	ErrInvalidMoveEncoding = errors.New("invalid move encoding")
	// ErrCannotUnstack is returned when unstacking a candidate that has no top piece
	ErrCannotUnstack = errors.New("candidate is not unstackable")
	// ErrMustUnstack is returned when moving a whole stack where only the top may go
	ErrMustUnstack = errors.New("candidate must be unstacked")
	// ErrInvalidMoveNotation is returned by ParseMove
	ErrInvalidMoveNotation = errors.New("invalid move notation")
)

// Move is a concrete move. Unstack moves only the top piece of a stack.
type Move struct {
	From    Position
	To      Position
	Unstack bool
}

func (m Move) String() string {
	if m.Unstack {
		return m.From.String() + "^" + m.To.String()
	}
	return m.From.String() + "-" + m.To.String()
}

// ParseMove parses the String form: "A3-B4" moves the whole piece and
// "A3^B4" moves only the top of a stack
func ParseMove(s string) (Move, error) {
	s = strings.TrimSpace(s)
	if len(s) != 5 || (s[2] != '-' && s[2] != '^') {
		return Move{}, fmt.Errorf("%w: %q, use A3-B4 or A3^B4", ErrInvalidMoveNotation, s)
	}
	from, err := ParsePosition(s[:2])
	if err != nil {
		return Move{}, fmt.Errorf("%w: %w", ErrInvalidMoveNotation, err)
	}
	to, err := ParsePosition(s[3:])
	if err != nil {
		return Move{}, fmt.Errorf("%w: %w", ErrInvalidMoveNotation, err)
	}
	return Move{From: from, To: to, Unstack: s[2] == '^'}, nil
}

// Encode packs the move as from | to<<7 | unstack<<14
func (m Move) Encode() uint16 {
	v := uint16(m.From.Index()) | uint16(m.To.Index())<<toShift
	if m.Unstack {
		v |= unstackBit
	}
	return v
}

// DecodeMove unpacks a 15-bit move
func DecodeMove(v uint16) (Move, error) {
	if v&forceUnstackBit != 0 {
		return Move{}, fmt.Errorf("%w: reserved bit 15 set in %#04x", ErrInvalidMoveEncoding, v)
	}
	from, to, err := decodeSquares(v)
	if err != nil {
		return Move{}, err
	}
	return Move{From: from, To: to, Unstack: v&unstackBit != 0}, nil
}

// PotentialMove is a generated candidate before the unstack decision.
// Unstackable means the mover is the top of a stack and may go alone;
// ForceUnstack means only the top piece may make this move.
type PotentialMove struct {
	From         Position
	To           Position
	Unstackable  bool
	ForceUnstack bool
}

func (m PotentialMove) String() string {
	s := m.From.String() + "-" + m.To.String()
	switch {
	case m.ForceUnstack:
		s += " (forced unstack)"
	case m.Unstackable:
		s += " (unstackable)"
	}
	return s
}

// Encode packs the candidate as from | to<<7 | unstackable<<14 | force_unstack<<15
func (m PotentialMove) Encode() uint16 {
	v := uint16(m.From.Index()) | uint16(m.To.Index())<<toShift
	if m.Unstackable {
		v |= unstackBit
	}
	if m.ForceUnstack {
		v |= forceUnstackBit
	}
	return v
}

// DecodePotentialMove unpacks a 16-bit candidate
func DecodePotentialMove(v uint16) (PotentialMove, error) {
	from, to, err := decodeSquares(v)
	if err != nil {
		return PotentialMove{}, err
	}
	return PotentialMove{
		From:         from,
		To:           to,
		Unstackable:  v&unstackBit != 0,
		ForceUnstack: v&forceUnstackBit != 0,
	}, nil
}

// ToMove converts the candidate into a move. It fails rather than coerce
// when unstack contradicts the candidate's flags.
func (m PotentialMove) ToMove(unstack bool) (Move, error) {
	if unstack && !m.Unstackable {
		return Move{}, fmt.Errorf("%s: %w", m.From, ErrCannotUnstack)
	}
	if !unstack && m.ForceUnstack {
		return Move{}, fmt.Errorf("%s: %w", m.From, ErrMustUnstack)
	}
	return Move{From: m.From, To: m.To, Unstack: unstack}, nil
}

// Moves expands the candidate into every concrete move it allows
func (m PotentialMove) Moves() []Move {
	switch {
	case m.ForceUnstack:
		return []Move{{From: m.From, To: m.To, Unstack: true}}
	case m.Unstackable:
		return []Move{
			{From: m.From, To: m.To, Unstack: true},
			{From: m.From, To: m.To},
		}
	default:
		return []Move{{From: m.From, To: m.To}}
	}
}

func decodeSquares(v uint16) (Position, Position, error) {
	fromIdx := int(v & indexMask)
	toIdx := int((v >> toShift) & indexMask)
	if fromIdx > maxEncodedSquare || toIdx > maxEncodedSquare {
		return Position{}, Position{}, fmt.Errorf("%w: %#04x names square %d/%d", ErrInvalidMoveEncoding, v, fromIdx, toIdx)
	}
	from, _ := PositionFromIndex(fromIdx)
	to, _ := PositionFromIndex(toIdx)
	return from, to, nil
}

// AppendMove appends the 2-byte little-endian wire form of m
func AppendMove(dst []byte, m Move) []byte {
	return binary.LittleEndian.AppendUint16(dst, m.Encode())
}

// ReadMove parses a 2-byte little-endian move
func ReadMove(data []byte) (Move, error) {
	if len(data) != moveWireSize {
		return Move{}, fmt.Errorf("%w: move needs %d bytes, got %d", ErrBadLength, moveWireSize, len(data))
	}
	return DecodeMove(binary.LittleEndian.Uint16(data))
}

// AppendPotentialMoves appends each candidate as 2 little-endian bytes
func AppendPotentialMoves(dst []byte, moves []PotentialMove) []byte {
	for _, m := range moves {
		dst = binary.LittleEndian.AppendUint16(dst, m.Encode())
	}
	return dst
}

// ReadPotentialMoves parses a list written by AppendPotentialMoves
func ReadPotentialMoves(data []byte) ([]PotentialMove, error) {
	if len(data)%moveWireSize != 0 {
		return nil, fmt.Errorf("%w: candidate list has odd length %d", ErrBadLength, len(data))
	}
	moves := make([]PotentialMove, 0, len(data)/moveWireSize)
	for i := 0; i < len(data); i += moveWireSize {
		m, err := DecodePotentialMove(binary.LittleEndian.Uint16(data[i:]))
		if err != nil {
			return nil, fmt.Errorf("candidate %d: %w", i/moveWireSize, err)
		}
		moves = append(moves, m)
	}
	return moves, nil
}
