package gpu

import (
	"encoding/binary"
	"slices"
)

// Raw square codes used by the kernels
const (
	sqColorBit    = 0x40
	sqPayloadMask = 0x3F
	sqKingPayload = 0x38
	sqCodeMask    = 0x07

	codeSoldier   = 1
	codeJester    = 2
	codeCommander = 3
	codePaladin   = 4
	codeGuard     = 5
	codeDragon    = 6
	codeBallista  = 7
	codeKing      = 8

	unstackableBit  = 1 << 14
	forceUnstackBit = 1 << 15
)

var (
	orthogonal = [][2]int{{1, 0}, {0, 1}, {-1, 0}, {0, -1}}
	diagonal   = [][2]int{{1, 1}, {1, -1}, {-1, -1}, {-1, 1}}
	allDirs    = [][2]int{{1, 0}, {0, 1}, {-1, 0}, {0, -1}, {1, 1}, {1, -1}, {-1, -1}, {-1, 1}}
	knight     = [][2]int{{2, 1}, {2, -1}, {-2, 1}, {-2, -1}, {1, 2}, {1, -2}, {-1, 2}, {-1, -2}}
)

// moveGenKernel evaluates one square per invocation. Bindings: 0 board
// state, 1 move buffer.
type moveGenKernel struct{}

func (moveGenKernel) Label() string      { return "move generation" }
func (moveGenKernel) WorkgroupSize() int { return moveGenWorkgroupSize }

func (moveGenKernel) Invoke(id int, bindings []*Buffer) {
	if id >= numSquares {
		return
	}
	board, out := bindings[0], bindings[1]

	sq := board.u32(id * 4)
	if sq == 0 {
		return
	}
	white := sq&sqColorBit != 0
	if white != (board.u32(boardTurnOff) == 1) {
		return
	}
	payload := sq & sqPayloadMask
	if payload == sqKingPayload {
		scanPiece(board, out, id, white, codeKing, false, true)
		return
	}
	top := (payload >> 3) & sqCodeMask
	bottom := payload & sqCodeMask
	if bottom == 0 {
		return
	}
	if top != 0 {
		scanPiece(board, out, id, white, top, true, true)
	}
	scanPiece(board, out, id, white, bottom, false, top != 0)
}

func scanPiece(board, out *Buffer, from int, white bool, code uint32, isTop, hasTop bool) {
	forward := 1
	if white {
		forward = -1
	}
	switch code {
	case codeSoldier:
		scan(board, out, from, white, [][2]int{{1, forward}, {-1, forward}}, 1, isTop, hasTop)
	case codeJester:
		scan(board, out, from, white, diagonal, 9, isTop, hasTop)
	case codeCommander:
		scan(board, out, from, white, orthogonal, 9, isTop, hasTop)
	case codePaladin:
		scan(board, out, from, white, orthogonal, 2, isTop, hasTop)
	case codeGuard:
		scan(board, out, from, white, diagonal, 2, isTop, hasTop)
	case codeDragon:
		scan(board, out, from, white, knight, 1, isTop, hasTop)
	case codeBallista:
		scan(board, out, from, white, [][2]int{{0, forward}}, 9, isTop, hasTop)
	case codeKing:
		scan(board, out, from, white, allDirs, 1, isTop, hasTop)
	}
}

func scan(board, out *Buffer, from int, white bool, dirs [][2]int, maxDist int, isTop, hasTop bool) {
	fx, fy := from%9, from/9
	for _, d := range dirs {
		for step := 1; step <= maxDist; step++ {
			x, y := fx+d[0]*step, fy+d[1]*step
			if x < 0 || x > 8 || y < 0 || y > 8 {
				break
			}
			to := y*9 + x
			target := board.u32(to * 4)
			if target == 0 {
				emit(out, from, to, isTop, false)
				continue
			}
			if (target&sqColorBit != 0) != white {
				emit(out, from, to, isTop, false)
				break
			}
			// friendly: a locked bottom cannot stack, and only single
			// non-King pieces accept a top
			tp := target & sqPayloadMask
			if !isTop && hasTop {
				break
			}
			if tp == sqKingPayload || (tp>>3)&sqCodeMask != 0 {
				break
			}
			emit(out, from, to, isTop, isTop)
			break
		}
	}
}

func emit(out *Buffer, from, to int, unstackable, force bool) {
	mv := uint32(from) | uint32(to)<<7
	if unstackable {
		mv |= unstackableBit
	}
	if force {
		mv |= forceUnstackBit
	}
	slot := out.atomicAddU32(moveCountOff, 1)
	if slot < MaxMoves {
		out.putU32(int(slot)*4, mv)
	}
}

// MoveGenerator produces PotentialMove encodings for a board on the device
type MoveGenerator struct {
	ctx    *Context
	kernel moveGenKernel
}

// NewMoveGenerator prepares the move generation kernel on ctx
func NewMoveGenerator(ctx *Context) (*MoveGenerator, error) {
	if ctx == nil || ctx.device == nil {
		return nil, &Error{Op: "create move generator", Err: ErrNoAdapter}
	}
	return &MoveGenerator{ctx: ctx}, nil
}

// GenerateMoves returns the candidates for the side to move, sorted by
// encoding and capped at MaxMoves. Squares with invalid payloads produce
// no candidates.
func (g *MoveGenerator) GenerateMoves(board [encodedSize]byte) ([]uint16, error) {
	dev := g.ctx.device

	boardBuf, err := dev.CreateBuffer("board state", BoardStateSize, UsageStorage|UsageCopyDst)
	if err != nil {
		return nil, opError("create board buffer", err)
	}
	moveBuf, err := dev.CreateBuffer("move buffer", MoveBufferSize, UsageStorage|UsageCopySrc)
	if err != nil {
		return nil, opError("create move buffer", err)
	}
	staging, err := dev.CreateBuffer("move staging", MoveBufferSize, UsageMapRead|UsageCopyDst)
	if err != nil {
		return nil, opError("create staging buffer", err)
	}

	state := make([]byte, BoardStateSize)
	putBoardState(state, &board)
	if err := dev.WriteBuffer(boardBuf, 0, state); err != nil {
		return nil, opError("write board", err)
	}
	if err := dev.Dispatch(g.kernel, 1, boardBuf, moveBuf); err != nil {
		return nil, opError("dispatch move generation", err)
	}
	if err := dev.CopyBuffer(moveBuf, staging, MoveBufferSize); err != nil {
		return nil, opError("copy moves", err)
	}

	data, err := staging.MapRead()
	if err != nil {
		return nil, opError("map moves", err)
	}
	count := int(binary.LittleEndian.Uint32(data[moveCountOff:]))
	if count > MaxMoves {
		count = MaxMoves
	}
	moves := make([]uint16, count)
	for i := range moves {
		moves[i] = uint16(binary.LittleEndian.Uint32(data[i*4:]))
	}
	if err := staging.Unmap(); err != nil {
		return nil, opError("unmap moves", err)
	}

	slices.Sort(moves)
	g.ctx.log.Trace().Int("moves", count).Msg("generated moves")
	return moves, nil
}
