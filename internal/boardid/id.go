package boardid

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidBoardID is returned when a board ID is not valid base64
var ErrInvalidBoardID = errors.New("invalid board ID")

// BoardID returns the standard base64 form of the 82-byte encoding
func BoardID(b Board) string {
	data := Encode(b)
	return base64.StdEncoding.EncodeToString(data[:])
}

// BoardFromID decodes a board ID produced by BoardID
func BoardFromID(id string) (Board, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(id))
	if err != nil {
		return Board{}, fmt.Errorf("%w: %v", ErrInvalidBoardID, err)
	}
	b, err := DecodeBytes(data)
	if err != nil {
		return Board{}, fmt.Errorf("%w: %w", ErrInvalidBoardID, err)
	}
	return b, nil
}
