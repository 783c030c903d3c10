package gpu

import (
	"encoding/binary"
	"fmt"
)

// PieceValues holds material values indexed by 3-bit piece code, with the
// King's value at index 8. Index 0 is unused.
type PieceValues [9]int32

// DefaultPieceValues is the standard material table
var DefaultPieceValues = PieceValues{0, 1, 5, 5, 3, 3, 4, 4, 1000}

// BatchResult is the outcome of one (board, move) item
type BatchResult struct {
	Board [encodedSize]byte
	Score int32 // material balance for the side to move in Board
	Valid bool
}

// batchSimKernel applies one move per invocation with capture/replace
// semantics and scores the result. Bindings: 0 batch items, 1 piece values.
type batchSimKernel struct{}

func (batchSimKernel) Label() string      { return "batch simulation" }
func (batchSimKernel) WorkgroupSize() int { return BatchWorkgroupSize }

func (batchSimKernel) Invoke(id int, bindings []*Buffer) {
	items, values := bindings[0], bindings[1]
	base := id * BatchItemSize
	if base+BatchItemSize > items.Size() {
		return
	}

	mv := items.u32(base + itemMoveOff)
	from := int(mv & 0x7F)
	to := int((mv >> 7) & 0x7F)
	unstack := mv&unstackableBit != 0

	items.putU32(base+itemValidOff, 0)
	items.putU32(base+itemScoreOff, 0)
	if from >= numSquares || to >= numSquares {
		return
	}
	piece := items.u32(base + from*4)
	if piece == 0 {
		return
	}

	if unstack {
		payload := piece & sqPayloadMask
		top := (payload >> 3) & sqCodeMask
		if payload == sqKingPayload || top == 0 {
			return
		}
		color := piece & sqColorBit
		items.putU32(base+from*4, color|payload&sqCodeMask)
		items.putU32(base+to*4, color|top)
	} else {
		items.putU32(base+from*4, 0)
		items.putU32(base+to*4, piece)
	}

	turn := base + boardTurnOff
	whiteToMove := items.u32(turn) != 1
	if whiteToMove {
		items.putU32(turn, 1)
	} else {
		items.putU32(turn, 0)
	}

	var white, black int32
	for i := 0; i < numSquares; i++ {
		sq := items.u32(base + i*4)
		if sq == 0 {
			continue
		}
		v := squareValue(sq, values)
		if sq&sqColorBit != 0 {
			white += v
		} else {
			black += v
		}
	}
	score := black - white
	if whiteToMove {
		score = white - black
	}
	items.putU32(base+itemScoreOff, uint32(score))
	items.putU32(base+itemValidOff, 1)
}

func squareValue(sq uint32, values *Buffer) int32 {
	payload := sq & sqPayloadMask
	if payload == sqKingPayload {
		return int32(values.u32(codeKing * 4))
	}
	v := int32(values.u32(int(payload&sqCodeMask) * 4))
	if top := (payload >> 3) & sqCodeMask; top != 0 {
		v += int32(values.u32(int(top) * 4))
	}
	return v
}

// BatchSimulator applies moves to many boards in one dispatch
type BatchSimulator struct {
	ctx    *Context
	values [valuesSize]byte
	kernel batchSimKernel
}

// NewBatchSimulator prepares the batch kernel on ctx with the given
// material table
func NewBatchSimulator(ctx *Context, values PieceValues) (*BatchSimulator, error) {
	if ctx == nil || ctx.device == nil {
		return nil, &Error{Op: "create batch simulator", Err: ErrNoAdapter}
	}
	s := &BatchSimulator{ctx: ctx}
	for i, v := range values {
		binary.LittleEndian.PutUint32(s.values[i*4:], uint32(v))
	}
	return s, nil
}

// ProcessBatch applies moves[i] to boards[i] for every item. Items whose
// move has an empty source, an off-board index or an impossible unstack are
// returned with Valid false.
func (s *BatchSimulator) ProcessBatch(boards [][encodedSize]byte, moves []uint16) ([]BatchResult, error) {
	if len(boards) != len(moves) {
		return nil, &Error{Op: "process batch", Err: ErrLengthMismatch}
	}
	if len(boards) == 0 {
		return nil, nil
	}
	if len(boards) > MaxBatch {
		return nil, &Error{Op: "process batch", Err: fmt.Errorf("%w: %d items, max %d", ErrBatchTooLarge, len(boards), MaxBatch)}
	}

	dev := s.ctx.device
	size := len(boards) * BatchItemSize

	items, err := dev.CreateBuffer("batch items", size, UsageStorage|UsageCopyDst|UsageCopySrc)
	if err != nil {
		return nil, opError("create item buffer", err)
	}
	values, err := dev.CreateBuffer("piece values", valuesSize, UsageUniform|UsageCopyDst)
	if err != nil {
		return nil, opError("create value buffer", err)
	}
	staging, err := dev.CreateBuffer("batch staging", size, UsageMapRead|UsageCopyDst)
	if err != nil {
		return nil, opError("create staging buffer", err)
	}

	host := make([]byte, size)
	for i := range boards {
		base := i * BatchItemSize
		putBoardState(host[base:], &boards[i])
		binary.LittleEndian.PutUint32(host[base+itemMoveOff:], uint32(moves[i]))
	}
	if err := dev.WriteBuffer(items, 0, host); err != nil {
		return nil, opError("write items", err)
	}
	if err := dev.WriteBuffer(values, 0, s.values[:]); err != nil {
		return nil, opError("write values", err)
	}

	workgroups := (len(boards) + BatchWorkgroupSize - 1) / BatchWorkgroupSize
	if err := dev.Dispatch(s.kernel, workgroups, items, values); err != nil {
		return nil, opError("dispatch batch simulation", err)
	}
	if err := dev.CopyBuffer(items, staging, size); err != nil {
		return nil, opError("copy results", err)
	}

	data, err := staging.MapRead()
	if err != nil {
		return nil, opError("map results", err)
	}
	results := make([]BatchResult, len(boards))
	for i := range results {
		item := data[i*BatchItemSize : (i+1)*BatchItemSize]
		results[i] = BatchResult{
			Board: readBoardState(item),
			Score: int32(binary.LittleEndian.Uint32(item[itemScoreOff:])),
			Valid: binary.LittleEndian.Uint32(item[itemValidOff:]) != 0,
		}
	}
	if err := staging.Unmap(); err != nil {
		return nil, opError("unmap results", err)
	}

	s.ctx.log.Trace().Int("items", len(boards)).Int("workgroups", workgroups).Msg("processed batch")
	return results, nil
}
