// Package storage provides reference-counted untyped byte storages and the
// handle discipline around them.
package storage

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/born-ml/storagebridge/internal/parallel"
)

// storageImpl is the shared, reference-counted object behind every Storage
// handle. Its refcount only changes through Clone, Release and WeakStorage.Lock.
type storageImpl struct {
	id        uuid.UUID
	refCount  atomic.Int32
	weakCount atomic.Int32

	mu         sync.Mutex // guards everything below
	data       DataPtr
	allocator  Allocator
	resizable  bool
	released   bool
	shared     bool
	filename   string
	hostObject any
	observers  []func()
	parallel   parallel.Config
}

// Storage is a handle to a reference-counted block of bytes.
//
// Storage is a value type: copying the struct does NOT add a reference. Use
// Clone to share the storage and Release to drop a share. The zero value is
// the null handle.
//
// Example:
//
//	s, _ := storage.New(1024)
//	t := s.Clone()  // UseCount() == 2
//	t.Release()     // UseCount() == 1
//	s.Release()     // bytes freed
type Storage struct {
	impl *storageImpl
}

// Option configures a new storage.
type Option func(*options)

type options struct {
	allocator Allocator
	resizable bool
	parallel  parallel.Config
}

// WithAllocator allocates the storage's bytes from a.
func WithAllocator(a Allocator) Option {
	return func(o *options) {
		o.allocator = a
	}
}

// WithResizable controls whether Resize is allowed. Storages are resizable
// by default.
func WithResizable(resizable bool) Option {
	return func(o *options) {
		o.resizable = resizable
	}
}

// WithParallel sets how Fill and CopyFrom split work across goroutines.
func WithParallel(cfg parallel.Config) Option {
	return func(o *options) {
		o.parallel = cfg
	}
}

// minParallelBytes keeps small fills and copies on one goroutine.
const minParallelBytes = 1 << 16

func defaultOptions() options {
	cfg := parallel.DefaultConfig()
	cfg.MinChunkSize = minParallelBytes
	return options{
		allocator: DefaultAllocator(),
		resizable: true,
		parallel:  cfg,
	}
}

// New allocates a zeroed storage of nbytes bytes with a refcount of one.
func New(nbytes int, opts ...Option) (Storage, error) {
	if nbytes < 0 {
		return Storage{}, fmt.Errorf("new storage of %d bytes: %w", nbytes, ErrNegativeSize)
	}

	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	ptr, err := o.allocator.Allocate(nbytes)
	if err != nil {
		return Storage{}, fmt.Errorf("allocate %d bytes: %w", nbytes, err)
	}

	return newFromDataPtr(ptr, o.allocator, o.resizable, o.parallel), nil
}

// FromBytes creates a storage holding a copy of data.
func FromBytes(data []byte, opts ...Option) (Storage, error) {
	s, err := New(len(data), opts...)
	if err != nil {
		return Storage{}, err
	}
	copy(s.impl.data.Data, data)
	return s, nil
}

func newFromDataPtr(ptr DataPtr, alloc Allocator, resizable bool, cfg parallel.Config) Storage {
	impl := &storageImpl{
		id:        uuid.New(),
		data:      ptr,
		allocator: alloc,
		resizable: resizable,
		parallel:  cfg,
	}
	impl.refCount.Store(1)

	Logger().Debug("storage allocated",
		zap.Stringer("id", impl.id),
		zap.Int("nbytes", len(ptr.Data)),
		zap.Stringer("device", ptr.Device))

	return Storage{impl: impl}
}

// Defined reports whether s refers to a storage.
func (s Storage) Defined() bool {
	return s.impl != nil
}

// Clone returns a new handle sharing the same storage (refcount +1).
// Cloning the null handle returns the null handle.
func (s Storage) Clone() Storage {
	if s.impl == nil {
		return Storage{}
	}
	if s.impl.refCount.Add(1) <= 1 {
		panic("storage: clone of a released storage")
	}
	return Storage{impl: s.impl}
}

// Move transfers ownership to the returned handle and leaves s null.
// The refcount does not change.
func (s *Storage) Move() Storage {
	moved := Storage{impl: s.impl}
	s.impl = nil
	return moved
}

// Release drops this handle's share (refcount -1) and leaves s null.
// When the last share is dropped the bytes are freed and OnRelease
// observers run. Releasing the null handle is a no-op.
func (s *Storage) Release() {
	impl := s.impl
	if impl == nil {
		return
	}
	s.impl = nil

	n := impl.refCount.Add(-1)
	switch {
	case n == 0:
		impl.free()
	case n < 0:
		panic("storage: released too many times")
	}
}

// UnsafeReleaseImpl nulls the handle WITHOUT decrementing the refcount.
//
// This is the teardown for handles that never held a share (borrows).
// Calling it on an owning handle leaks one reference.
func (s *Storage) UnsafeReleaseImpl() {
	s.impl = nil
}

// UseCount returns the number of owning handles. It is zero for the null
// handle and for released storages.
func (s Storage) UseCount() int {
	if s.impl == nil {
		return 0
	}
	return int(s.impl.refCount.Load())
}

// IsUnique returns true if this is the only owning handle.
func (s Storage) IsUnique() bool {
	return s.UseCount() == 1
}

// Is reports whether s and other refer to the same underlying storage.
func (s Storage) Is(other Storage) bool {
	return s.impl == other.impl
}

// ID returns the storage's unique id, or uuid.Nil for the null handle.
func (s Storage) ID() uuid.UUID {
	if s.impl == nil {
		return uuid.Nil
	}
	return s.impl.id
}

// OnRelease registers fn to run once, when the last owning handle is
// released. Observers run in registration order.
func (s Storage) OnRelease(fn func()) {
	if s.impl == nil || fn == nil {
		return
	}
	s.impl.mu.Lock()
	defer s.impl.mu.Unlock()
	s.impl.observers = append(s.impl.observers, fn)
}

// SetHostObject records the host-visible object wrapping this storage.
func (s Storage) SetHostObject(obj any) {
	if s.impl == nil {
		return
	}
	s.impl.mu.Lock()
	defer s.impl.mu.Unlock()
	s.impl.hostObject = obj
}

// HostObject returns the host-visible object recorded for this storage.
func (s Storage) HostObject() any {
	if s.impl == nil {
		return nil
	}
	s.impl.mu.Lock()
	defer s.impl.mu.Unlock()
	return s.impl.hostObject
}

// ClearHostObject forgets the host object if it is still obj.
func (s Storage) ClearHostObject(obj any) {
	if s.impl == nil {
		return
	}
	s.impl.mu.Lock()
	defer s.impl.mu.Unlock()
	if s.impl.hostObject == obj {
		s.impl.hostObject = nil
	}
}

// free releases the bytes and notifies observers. Called once, when the
// refcount reaches zero.
func (impl *storageImpl) free() {
	impl.mu.Lock()
	ptr := impl.data
	observers := impl.observers
	impl.data = DataPtr{}
	impl.observers = nil
	impl.hostObject = nil
	impl.released = true
	impl.mu.Unlock()

	if err := ptr.free(); err != nil {
		Logger().Warn("storage deleter failed",
			zap.Stringer("id", impl.id),
			zap.Error(err))
	}

	Logger().Debug("storage freed",
		zap.Stringer("id", impl.id),
		zap.Int("nbytes", len(ptr.Data)))

	for _, fn := range observers {
		fn()
	}
}
