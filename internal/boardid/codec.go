package boardid

import (
	"errors"
	"fmt"
)

// Square byte layout: bit 6 is the color (1 = White), bits 5-3 the top code,
// bits 2-0 the bottom code.
const (
	colorBit    = 0x40
	payloadMask = 0x3F
	kingPayload = 0x38
	codeMask    = 0x07
)

// ErrBadLength is returned when a binary payload has the wrong size
var ErrBadLength = errors.New("bad length")

// EncodingError describes a byte that is not a valid square or turn encoding
type EncodingError struct {
	Index  int
	Value  byte
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("invalid board encoding at byte %d (0b%07b): %s", e.Index, e.Value, e.Reason)
}

// EncodeSquare returns the wire byte for a square
func EncodeSquare(p Piece) byte {
	if p.IsEmpty() {
		return 0
	}
	var b byte
	if p.Color == White {
		b = colorBit
	}
	if p.Bottom == King {
		return b | kingPayload
	}
	b |= byte(p.Bottom) & codeMask
	if p.Top != None && p.Top != King {
		b |= (byte(p.Top) & codeMask) << 3
	}
	return b
}

// DecodeSquare parses a square byte. The returned error is an
// *EncodingError with Index -1.
func DecodeSquare(v byte) (Piece, error) {
	if v == 0 {
		return Piece{}, nil
	}
	if v&^(colorBit|payloadMask) != 0 {
		return Piece{}, &EncodingError{Index: -1, Value: v, Reason: "bit 7 is set"}
	}
	color := Black
	if v&colorBit != 0 {
		color = White
	}
	payload := v & payloadMask
	if payload == kingPayload {
		return Single(color, King), nil
	}
	bottom := payload & codeMask
	top := (payload >> 3) & codeMask
	if bottom == 0 {
		return Piece{}, &EncodingError{Index: -1, Value: v, Reason: "bottom code is zero"}
	}
	return Piece{Color: color, Bottom: PieceType(bottom), Top: PieceType(top)}, nil
}

// Encode returns the 82-byte encoding of b
func Encode(b Board) [EncodedSize]byte {
	var out [EncodedSize]byte
	for i, p := range b.Squares {
		out[i] = EncodeSquare(p)
	}
	if b.WhiteToMove {
		out[NumSquares] = 1
	}
	return out
}

// Decode parses an 82-byte board encoding
func Decode(data [EncodedSize]byte) (Board, error) {
	var b Board
	for i := 0; i < NumSquares; i++ {
		p, err := DecodeSquare(data[i])
		if err != nil {
			var encErr *EncodingError
			if errors.As(err, &encErr) {
				encErr.Index = i
			}
			return Board{}, err
		}
		b.Squares[i] = p
	}
	switch data[NumSquares] {
	case 0:
	case 1:
		b.WhiteToMove = true
	default:
		return Board{}, &EncodingError{Index: NumSquares, Value: data[NumSquares], Reason: "turn byte must be 0 or 1"}
	}
	return b, nil
}

// DecodeBytes parses a board from a slice, which must be exactly
// EncodedSize bytes long
func DecodeBytes(data []byte) (Board, error) {
	if len(data) != EncodedSize {
		return Board{}, fmt.Errorf("%w: board needs %d bytes, got %d", ErrBadLength, EncodedSize, len(data))
	}
	var buf [EncodedSize]byte
	copy(buf[:], data)
	return Decode(buf)
}
