package storage

import (
	"fmt"
	"math"
)

// DataPtr is one allocation handed out by an Allocator.
//
// Context carries whatever the allocator needs to free the block later
// (a GPU buffer, a file mapping). Deleter runs exactly once, when the owning
// storage is freed or resized away from this block.
type DataPtr struct {
	Data    []byte
	Context any
	Device  Device
	Deleter func(DataPtr) error
}

// free runs the deleter, if any.
func (p DataPtr) free() error {
	if p.Deleter == nil {
		return nil
	}
	return p.Deleter(p)
}

// Allocator produces DataPtrs for a device.
type Allocator interface {
	// Allocate returns a zeroed block of nbytes bytes.
	Allocate(nbytes int) (DataPtr, error)

	// Device reports the device the allocator serves.
	Device() Device
}

// DefaultAlignment is the capacity alignment of the CPU allocator.
const DefaultAlignment = 64

// MaxCPUAllocSize is the largest block the CPU allocator hands out. Larger
// requests fail with ErrTooLarge instead of reaching make.
const MaxCPUAllocSize = min(math.MaxInt>>1, 1<<46)

// CPUAllocator allocates host memory from the Go heap.
// Capacity is rounded up to Alignment so in-place growth within the
// rounded size does not reallocate.
type CPUAllocator struct {
	Alignment int
}

// NewCPUAllocator creates a CPU allocator with the given capacity alignment.
// A non-positive alignment falls back to DefaultAlignment.
func NewCPUAllocator(alignment int) *CPUAllocator {
	if alignment <= 0 {
		alignment = DefaultAlignment
	}
	return &CPUAllocator{Alignment: alignment}
}

// Allocate returns a zeroed block of nbytes bytes.
func (a *CPUAllocator) Allocate(nbytes int) (DataPtr, error) {
	if nbytes < 0 {
		return DataPtr{}, ErrNegativeSize
	}
	align := a.Alignment
	if align <= 0 {
		align = DefaultAlignment
	}
	if nbytes > MaxCPUAllocSize-align {
		return DataPtr{}, fmt.Errorf("%d bytes: %w", nbytes, ErrTooLarge)
	}
	capacity := (nbytes + align - 1) / align * align
	return DataPtr{
		Data:   make([]byte, nbytes, capacity),
		Device: CPU,
	}, nil
}

// Device returns CPU.
func (a *CPUAllocator) Device() Device {
	return CPU
}

var defaultAllocator Allocator = NewCPUAllocator(DefaultAlignment)

// DefaultAllocator returns the allocator used when none is given.
func DefaultAllocator() Allocator {
	return defaultAllocator
}

// SetDefaultAllocator replaces the allocator used when none is given.
// It must be called before storages are created concurrently.
func SetDefaultAllocator(a Allocator) {
	if a != nil {
		defaultAllocator = a
	}
}
