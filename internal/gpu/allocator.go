//go:build windows

package gpu

import (
	"errors"
	"fmt"
	"unsafe"

	"github.com/go-webgpu/webgpu/wgpu"
	"go.uber.org/zap"

	"github.com/born-ml/storagebridge/internal/storage"
)

// Errors returned by the GPU allocator.
var (
	ErrNotGPUStorage = errors.New("gpu: storage is not backed by a WebGPU buffer")
	ErrNilDevice     = errors.New("gpu: nil device or queue")
)

// storageUsage lets a storage buffer be bound by shaders and copied in both
// directions.
const storageUsage = wgpu.BufferUsageStorage | wgpu.BufferUsageCopySrc | wgpu.BufferUsageCopyDst

// Block is the allocator context of a GPU storage.
type Block struct {
	Buffer *wgpu.Buffer
	Size   uint64 // buffer size, nbytes rounded up to 4
}

// Option configures an Allocator.
type Option func(*Allocator)

// WithLogger sets the allocator's logger.
func WithLogger(l *zap.Logger) Option {
	return func(a *Allocator) {
		if l != nil {
			a.logger = l
		}
	}
}

// Allocator hands out storages backed by pooled WebGPU buffers. The device
// and queue stay owned by the caller.
type Allocator struct {
	device *wgpu.Device
	queue  *wgpu.Queue
	pool   *BufferPool
	logger *zap.Logger
}

// NewAllocator creates an allocator on device.
func NewAllocator(device *wgpu.Device, queue *wgpu.Queue, opts ...Option) (*Allocator, error) {
	if device == nil || queue == nil {
		return nil, ErrNilDevice
	}
	a := &Allocator{
		device: device,
		queue:  queue,
		pool:   NewBufferPool(device),
		logger: storage.Logger(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Allocate returns a zeroed host mirror of nbytes bytes and a device buffer
// of at least that size. The deleter returns the buffer to the pool.
func (a *Allocator) Allocate(nbytes int) (storage.DataPtr, error) {
	if nbytes < 0 {
		return storage.DataPtr{}, storage.ErrNegativeSize
	}

	size := bufferSize(nbytes)
	block := &Block{
		Buffer: a.pool.Acquire(size, storageUsage),
		Size:   size,
	}
	if block.Buffer == nil {
		return storage.DataPtr{}, fmt.Errorf("gpu: failed to create %d byte buffer", size)
	}

	return storage.DataPtr{
		Data:    make([]byte, nbytes),
		Context: block,
		Device:  storage.WebGPU,
		Deleter: func(storage.DataPtr) error {
			a.pool.Release(block.Buffer, block.Size, storageUsage)
			return nil
		},
	}, nil
}

// Device returns storage.WebGPU.
func (a *Allocator) Device() storage.Device {
	return storage.WebGPU
}

// Stats returns the buffer pool statistics.
func (a *Allocator) Stats() PoolStats {
	return a.pool.Stats()
}

// Close releases every pooled buffer. Storages still alive keep their
// buffers until they are freed.
func (a *Allocator) Close() {
	a.pool.Clear()
}

// BlockOf returns the device block behind s.
func BlockOf(s storage.Storage) (*Block, error) {
	block, ok := s.Context().(*Block)
	if !ok {
		return nil, ErrNotGPUStorage
	}
	return block, nil
}

// Upload copies the host mirror of s into its device buffer.
func (a *Allocator) Upload(s storage.Storage) error {
	block, err := BlockOf(s)
	if err != nil {
		return err
	}
	data := s.Data()

	staging := a.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage:            wgpu.BufferUsageCopySrc,
		Size:             block.Size,
		MappedAtCreation: wgpu.True,
	})
	defer staging.Release()

	mapped := staging.GetMappedRange(0, block.Size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	copy(unsafe.Slice((*byte)(mapped), block.Size), data)
	staging.Unmap()

	encoder := a.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(staging, 0, block.Buffer, 0, block.Size)
	a.queue.Submit(encoder.Finish(nil))

	a.logger.Debug("storage uploaded",
		zap.Stringer("id", s.ID()),
		zap.Int("nbytes", len(data)))
	return nil
}

// Download copies the device buffer of s back into its host mirror.
func (a *Allocator) Download(s storage.Storage) error {
	block, err := BlockOf(s)
	if err != nil {
		return err
	}

	staging := a.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: wgpu.BufferUsageMapRead | wgpu.BufferUsageCopyDst,
		Size:  block.Size,
	})
	defer staging.Release()

	encoder := a.device.CreateCommandEncoder(nil)
	encoder.CopyBufferToBuffer(block.Buffer, 0, staging, 0, block.Size)
	a.queue.Submit(encoder.Finish(nil))

	if err := staging.MapAsync(a.device, wgpu.MapModeRead, 0, block.Size); err != nil {
		return fmt.Errorf("failed to map staging buffer: %w", err)
	}
	mapped := staging.GetMappedRange(0, block.Size)
	//nolint:gosec // unsafe.Slice for zero-copy conversion from unsafe.Pointer
	copy(s.Data(), unsafe.Slice((*byte)(mapped), block.Size))
	staging.Unmap()

	a.logger.Debug("storage downloaded",
		zap.Stringer("id", s.ID()),
		zap.Uint64("nbytes", block.Size))
	return nil
}

// bufferSize rounds nbytes up to the 4-byte multiple WebGPU copies need,
// with a 4-byte minimum.
func bufferSize(nbytes int) uint64 {
	n := uint64(max(nbytes, 1)) //nolint:gosec // G115: nbytes checked non-negative
	return (n + 3) &^ 3
}
