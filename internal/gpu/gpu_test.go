package gpu

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContext(t *testing.T) *Context {
	t.Helper()
	t.Setenv(EnvBackend, "")
	nop := zerolog.Nop()
	ctx, err := NewContext(Options{Backend: "software", Workers: 4, Logger: &nop})
	require.NoError(t, err)
	return ctx
}

func TestLayoutSizes(t *testing.T) {
	assert.Equal(t, 340, BoardStateSize)
	assert.Equal(t, 8208, MoveBufferSize)
	assert.Equal(t, 364, BatchItemSize)
	assert.Zero(t, BoardStateSize%4)
	assert.Zero(t, BatchItemSize%4)
}

func TestBoardStateRoundTrip(t *testing.T) {
	var board [encodedSize]byte
	board[0] = 0b0111000
	board[40] = 0b1010100
	board[80] = 0b1000111
	board[numSquares] = 1

	buf := make([]byte, BoardStateSize)
	putBoardState(buf, &board)
	assert.Equal(t, byte(0b1010100), buf[40*4])
	assert.Equal(t, byte(1), buf[boardTurnOff])
	assert.Equal(t, board, readBoardState(buf))
}

func TestNewContextBackends(t *testing.T) {
	nop := zerolog.Nop()

	tests := []struct {
		name    string
		backend string
		env     string
		wantErr bool
	}{
		{"software", "software", "", false},
		{"auto", "", "", false},
		{"unknown falls back to auto", "vulkan", "", false},
		{"none", "none", "", true},
		{"env disables", "software", "none", true},
		{"env enables", "none", "SOFTWARE", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(EnvBackend, tt.env)
			ctx, err := NewContext(Options{Backend: tt.backend, Logger: &nop})
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrNoAdapter)
				var gpuErr *Error
				assert.True(t, errors.As(err, &gpuErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, BackendSoftware, ctx.Info().Backend)
		})
	}
}

func TestNilContextIsRecoverable(t *testing.T) {
	_, err := NewMoveGenerator(nil)
	assert.ErrorIs(t, err, ErrNoAdapter)

	_, err = NewBatchSimulator(nil, DefaultPieceValues)
	assert.ErrorIs(t, err, ErrNoAdapter)
}

func TestBufferMapping(t *testing.T) {
	dev := testContext(t).Device()

	staging, err := dev.CreateBuffer("staging", 16, UsageMapRead|UsageCopyDst)
	require.NoError(t, err)
	storage, err := dev.CreateBuffer("storage", 16, UsageStorage|UsageCopySrc)
	require.NoError(t, err)

	_, err = storage.MapRead()
	assert.ErrorIs(t, err, ErrMapFailed)

	_, err = staging.MapRead()
	require.NoError(t, err)
	_, err = staging.MapRead()
	assert.ErrorIs(t, err, ErrBufferMapped)
	assert.ErrorIs(t, dev.CopyBuffer(storage, staging, 16), ErrBufferMapped)

	require.NoError(t, staging.Unmap())
	assert.ErrorIs(t, staging.Unmap(), ErrBufferNotMapped)

	_, err = dev.CreateBuffer("odd", 6, UsageStorage)
	assert.Error(t, err)
}

type panicKernel struct{}

func (panicKernel) Label() string      { return "panic" }
func (panicKernel) WorkgroupSize() int { return 4 }
func (panicKernel) Invoke(id int, bindings []*Buffer) {
	bindings[0].putU32(id*4, 1) // out of range for id >= 1
}

func TestDispatchRecoversKernelFault(t *testing.T) {
	dev := testContext(t).Device()
	buf, err := dev.CreateBuffer("tiny", 4, UsageStorage)
	require.NoError(t, err)

	err = dev.Dispatch(panicKernel{}, 1, buf)
	assert.ErrorIs(t, err, ErrDeviceLost)
}
