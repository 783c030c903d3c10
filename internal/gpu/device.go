package gpu

import (
	"encoding/binary"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// BufferUsage flags describe how a buffer may be used
type BufferUsage uint32

const (
	UsageStorage BufferUsage = 1 << iota
	UsageUniform
	UsageCopySrc
	UsageCopyDst
	UsageMapRead
)

// Buffer is device memory. Kernels see it as raw little-endian words; the
// host reads it back through MapRead after copying into a staging buffer.
type Buffer struct {
	label string
	usage BufferUsage

	mu     sync.Mutex
	data   []byte
	mapped bool
}

// Label returns the debug label given at creation
func (b *Buffer) Label() string { return b.label }

// Size returns the buffer size in bytes
func (b *Buffer) Size() int { return len(b.data) }

// MapRead maps the buffer for host reads. The slice is valid until Unmap.
func (b *Buffer) MapRead() ([]byte, error) {
	if b.usage&UsageMapRead == 0 {
		return nil, fmt.Errorf("%w: %s lacks map-read usage", ErrMapFailed, b.label)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.mapped {
		return nil, fmt.Errorf("%w: %s", ErrBufferMapped, b.label)
	}
	b.mapped = true
	return b.data, nil
}

// Unmap releases a mapping made by MapRead
func (b *Buffer) Unmap() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.mapped {
		return fmt.Errorf("%w: %s", ErrBufferNotMapped, b.label)
	}
	b.mapped = false
	return nil
}

func (b *Buffer) isMapped() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mapped
}

func (b *Buffer) u32(off int) uint32 {
	return binary.LittleEndian.Uint32(b.data[off:])
}

func (b *Buffer) putU32(off int, v uint32) {
	binary.LittleEndian.PutUint32(b.data[off:], v)
}

// atomicAddU32 adds delta to the word at off and returns the old value
func (b *Buffer) atomicAddU32(off int, delta uint32) uint32 {
	b.mu.Lock()
	defer b.mu.Unlock()
	old := binary.LittleEndian.Uint32(b.data[off:])
	binary.LittleEndian.PutUint32(b.data[off:], old+delta)
	return old
}

// Kernel is a compute entry point. Invoke is called once per global
// invocation id and must stay within the bound buffers.
type Kernel interface {
	Label() string
	WorkgroupSize() int
	Invoke(id int, bindings []*Buffer)
}

// Device creates buffers and runs kernels. Dispatch and CopyBuffer block
// until the device has finished.
type Device interface {
	Info() AdapterInfo
	CreateBuffer(label string, size int, usage BufferUsage) (*Buffer, error)
	WriteBuffer(dst *Buffer, offset int, data []byte) error
	CopyBuffer(src, dst *Buffer, size int) error
	Dispatch(k Kernel, workgroups int, bindings ...*Buffer) error
}

// softwareDevice executes kernels on goroutines, one task per workgroup
type softwareDevice struct {
	workers int
}

func newSoftwareDevice(workers int) *softwareDevice {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &softwareDevice{workers: workers}
}

func (d *softwareDevice) Info() AdapterInfo {
	return AdapterInfo{Name: "software compute device", Backend: BackendSoftware, Workers: d.workers}
}

func (d *softwareDevice) CreateBuffer(label string, size int, usage BufferUsage) (*Buffer, error) {
	if size <= 0 || size%4 != 0 {
		return nil, fmt.Errorf("buffer %s: size %d is not a positive multiple of 4", label, size)
	}
	return &Buffer{label: label, usage: usage, data: make([]byte, size)}, nil
}

func (d *softwareDevice) WriteBuffer(dst *Buffer, offset int, data []byte) error {
	if dst.usage&UsageCopyDst == 0 {
		return fmt.Errorf("buffer %s lacks copy-dst usage", dst.label)
	}
	if dst.isMapped() {
		return fmt.Errorf("%w: %s", ErrBufferMapped, dst.label)
	}
	if offset < 0 || offset+len(data) > len(dst.data) {
		return fmt.Errorf("write of %d bytes at %d overflows %s", len(data), offset, dst.label)
	}
	copy(dst.data[offset:], data)
	return nil
}

func (d *softwareDevice) CopyBuffer(src, dst *Buffer, size int) error {
	if src.usage&UsageCopySrc == 0 || dst.usage&UsageCopyDst == 0 {
		return fmt.Errorf("copy %s -> %s: missing copy usage", src.label, dst.label)
	}
	if src.isMapped() || dst.isMapped() {
		return ErrBufferMapped
	}
	if size > len(src.data) || size > len(dst.data) {
		return fmt.Errorf("copy of %d bytes overflows %s -> %s", size, src.label, dst.label)
	}
	copy(dst.data[:size], src.data[:size])
	return nil
}

func (d *softwareDevice) Dispatch(k Kernel, workgroups int, bindings ...*Buffer) error {
	for _, b := range bindings {
		if b == nil {
			return fmt.Errorf("%s: nil binding", k.Label())
		}
		if b.isMapped() {
			return fmt.Errorf("%s: %w: %s", k.Label(), ErrBufferMapped, b.label)
		}
	}
	size := k.WorkgroupSize()

	var g errgroup.Group
	g.SetLimit(d.workers)
	for wg := 0; wg < workgroups; wg++ {
		base := wg * size
		g.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("%w: %s workgroup %d: %v", ErrDeviceLost, k.Label(), base/size, r)
				}
			}()
			for local := 0; local < size; local++ {
				k.Invoke(base+local, bindings)
			}
			return nil
		})
	}
	return g.Wait()
}
