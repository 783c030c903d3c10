package gpu

import "encoding/binary"

// Host/device buffer layouts. All fields are little-endian 32-bit words and
// each record ends in three padding words.
//
//	board state  squares [81]u32 | white_to_move u32 | pad [3]u32      340 bytes
//	move buffer  moves [2048]u32 | count u32 | pad [3]u32              8208 bytes
//	batch item   board state | move u32 | score i32 | valid u32 | pad  364 bytes
const (
	numSquares  = 81
	encodedSize = numSquares + 1

	BoardStateSize = numSquares*4 + 4 + 3*4
	boardTurnOff   = numSquares * 4

	MaxMoves       = 2048
	MoveBufferSize = MaxMoves*4 + 4 + 3*4
	moveCountOff   = MaxMoves * 4

	MaxBatch           = 1024
	BatchWorkgroupSize = 64
	BatchItemSize      = BoardStateSize + 4 + 4 + 4 + 3*4
	itemMoveOff        = BoardStateSize
	itemScoreOff       = BoardStateSize + 4
	itemValidOff       = BoardStateSize + 8

	// piece values: [9]i32 indexed by 3-bit code, King at 8, then padding
	valuesSize = 12 * 4

	moveGenWorkgroupSize = numSquares
)

// putBoardState writes an 82-byte board encoding as a board-state record
func putBoardState(dst []byte, board *[encodedSize]byte) {
	for i := 0; i < numSquares; i++ {
		binary.LittleEndian.PutUint32(dst[i*4:], uint32(board[i]))
	}
	binary.LittleEndian.PutUint32(dst[boardTurnOff:], uint32(board[numSquares]))
	for off := boardTurnOff + 4; off < BoardStateSize; off += 4 {
		binary.LittleEndian.PutUint32(dst[off:], 0)
	}
}

// readBoardState converts a board-state record back to the 82-byte encoding
func readBoardState(src []byte) [encodedSize]byte {
	var board [encodedSize]byte
	for i := 0; i < numSquares; i++ {
		board[i] = byte(binary.LittleEndian.Uint32(src[i*4:]))
	}
	board[numSquares] = byte(binary.LittleEndian.Uint32(src[boardTurnOff:]))
	return board
}
