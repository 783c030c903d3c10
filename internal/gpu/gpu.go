// Package gpu runs Arx move generation and batch move application on a
// compute device.
//
// A Context owns the one device used by the process and is passed to every
// kernel wrapper that needs it. Kernels exchange data with the host through
// byte-exact little-endian buffers whose layouts are defined in layout.go.
// Every failure is reported as an *Error; callers are expected to fall back
// to CPU execution.
//
// The only Device implementation is the software device, which runs each
// workgroup on a goroutine. BackendAuto and BackendSoftware both select it.
package gpu

import (
	"errors"
	"fmt"
)

var (
	// ErrNoAdapter is returned when no device matches the requested backend
	ErrNoAdapter = errors.New("no compute adapter available")
	// ErrDeviceLost is returned when a dispatch aborts
	ErrDeviceLost = errors.New("device lost")
	// ErrMapFailed is returned when a buffer cannot be mapped for reading
	ErrMapFailed = errors.New("buffer mapping failed")
	// ErrBufferMapped is returned when a mapped buffer is bound or mapped again
	ErrBufferMapped = errors.New("buffer is mapped")
	// ErrBufferNotMapped is returned by Unmap on an unmapped buffer
	ErrBufferNotMapped = errors.New("buffer is not mapped")
	// ErrBatchTooLarge is returned when a batch exceeds MaxBatch items
	ErrBatchTooLarge = errors.New("batch too large")
	// ErrLengthMismatch is returned when boards and moves differ in length
	ErrLengthMismatch = errors.New("boards and moves must have the same length")
)

// Error records the operation that failed on the device
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("gpu %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func opError(op string, err error) error {
	var gpuErr *Error
	if errors.As(err, &gpuErr) {
		return err
	}
	return &Error{Op: op, Err: err}
}
