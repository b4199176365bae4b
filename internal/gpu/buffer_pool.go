//go:build windows

package gpu

import (
	"sync"

	"github.com/go-webgpu/webgpu/wgpu"
)

// BufferSize represents the buffer size categories used for pooling.
type BufferSize int

const (
	// SmallBuffer for storages < 4KB.
	SmallBuffer BufferSize = iota
	// MediumBuffer for storages 4KB-1MB.
	MediumBuffer
	// LargeBuffer for storages > 1MB.
	LargeBuffer
)

const (
	smallThreshold  = 4 * 1024    // 4KB
	mediumThreshold = 1024 * 1024 // 1MB
	maxPoolSize     = 100         // Max buffers per category
)

// pooledBuffer wraps a GPU buffer with metadata.
type pooledBuffer struct {
	buffer *wgpu.Buffer
	size   uint64
	usage  wgpu.BufferUsage
}

// PoolStats reports buffer pool activity.
type PoolStats struct {
	Allocated uint64
	Released  uint64
	Hits      uint64
	Misses    uint64
	Pooled    int
}

// BufferPool reuses GPU buffers by size category and usage flags.
type BufferPool struct {
	device *wgpu.Device

	mu    sync.Mutex
	pools [3][]*pooledBuffer
	stats PoolStats
}

// NewBufferPool creates a buffer pool for device.
func NewBufferPool(device *wgpu.Device) *BufferPool {
	p := &BufferPool{device: device}
	for i := range p.pools {
		p.pools[i] = make([]*pooledBuffer, 0, maxPoolSize)
	}
	return p
}

// Acquire returns a pooled buffer of at least size bytes with every usage
// flag set, or creates one.
func (p *BufferPool) Acquire(size uint64, usage wgpu.BufferUsage) *wgpu.Buffer {
	p.mu.Lock()
	defer p.mu.Unlock()

	category := categorize(size)
	pool := p.pools[category]
	for i, pb := range pool {
		if pb.size >= size && pb.usage&usage == usage {
			p.pools[category] = append(pool[:i], pool[i+1:]...)
			p.stats.Hits++
			return pb.buffer
		}
	}

	p.stats.Misses++
	p.stats.Allocated++
	return p.device.CreateBuffer(&wgpu.BufferDescriptor{
		Usage: usage,
		Size:  size,
	})
}

// Release returns buffer to the pool, or releases it when the pool for its
// category is full.
func (p *BufferPool) Release(buffer *wgpu.Buffer, size uint64, usage wgpu.BufferUsage) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.Released++

	category := categorize(size)
	if len(p.pools[category]) >= maxPoolSize {
		buffer.Release()
		return
	}
	p.pools[category] = append(p.pools[category], &pooledBuffer{
		buffer: buffer,
		size:   size,
		usage:  usage,
	})
}

// Clear releases every pooled buffer.
func (p *BufferPool) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, pool := range p.pools {
		for _, pb := range pool {
			pb.buffer.Release()
		}
		p.pools[i] = pool[:0]
	}
}

// Stats returns a snapshot of pool activity.
func (p *BufferPool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.stats
	for _, pool := range p.pools {
		s.Pooled += len(pool)
	}
	return s
}

// categorize determines the size category for a buffer.
func categorize(size uint64) BufferSize {
	if size < smallThreshold {
		return SmallBuffer
	}
	if size < mediumThreshold {
		return MediumBuffer
	}
	return LargeBuffer
}
