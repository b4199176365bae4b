package storage

import (
	"fmt"

	"github.com/born-ml/storagebridge/internal/parallel"
)

// Nbytes returns the storage size in bytes.
func (s Storage) Nbytes() int {
	if s.impl == nil {
		return 0
	}
	s.impl.mu.Lock()
	defer s.impl.mu.Unlock()
	return len(s.impl.data.Data)
}

// Data returns the raw bytes.
// WARNING: Direct access to underlying memory. The slice is invalidated by
// Resize, ShareFilename and the final Release.
func (s Storage) Data() []byte {
	if s.impl == nil {
		return nil
	}
	s.impl.mu.Lock()
	defer s.impl.mu.Unlock()
	return s.impl.data.Data
}

// Context returns the allocator context of the current allocation.
func (s Storage) Context() any {
	if s.impl == nil {
		return nil
	}
	s.impl.mu.Lock()
	defer s.impl.mu.Unlock()
	return s.impl.data.Context
}

// Device returns the device holding the bytes.
func (s Storage) Device() Device {
	if s.impl == nil {
		return CPU
	}
	s.impl.mu.Lock()
	defer s.impl.mu.Unlock()
	return s.impl.data.Device
}

// Resizable reports whether Resize is allowed.
func (s Storage) Resizable() bool {
	if s.impl == nil {
		return false
	}
	s.impl.mu.Lock()
	defer s.impl.mu.Unlock()
	return s.impl.resizable
}

// IsShared reports whether the bytes live in a shared file mapping.
func (s Storage) IsShared() bool {
	if s.impl == nil {
		return false
	}
	s.impl.mu.Lock()
	defer s.impl.mu.Unlock()
	return s.impl.shared
}

// Filename returns the backing file name of a file-mapped storage.
func (s Storage) Filename() string {
	if s.impl == nil {
		return ""
	}
	s.impl.mu.Lock()
	defer s.impl.mu.Unlock()
	return s.impl.filename
}

// Resize changes the storage size. The common prefix is kept and new bytes
// are zero. All handles observe the new size.
func (s Storage) Resize(nbytes int) error {
	if s.impl == nil {
		return ErrNullStorage
	}
	if nbytes < 0 {
		return fmt.Errorf("resize to %d bytes: %w", nbytes, ErrNegativeSize)
	}

	impl := s.impl
	impl.mu.Lock()
	defer impl.mu.Unlock()

	if !impl.resizable {
		return ErrNotResizable
	}

	old := impl.data
	if nbytes <= cap(old.Data) && old.Deleter == nil {
		grown := old.Data[:nbytes]
		if nbytes > len(old.Data) {
			clear(grown[len(old.Data):])
		}
		impl.data.Data = grown
		return nil
	}

	ptr, err := impl.allocator.Allocate(nbytes)
	if err != nil {
		return fmt.Errorf("resize to %d bytes: %w", nbytes, err)
	}
	copy(ptr.Data, old.Data)
	impl.data = ptr

	if err := old.free(); err != nil {
		return fmt.Errorf("free previous allocation: %w", err)
	}
	return nil
}

// Fill sets every byte to value.
func (s Storage) Fill(value byte) error {
	if s.impl == nil {
		return ErrNullStorage
	}
	s.impl.mu.Lock()
	defer s.impl.mu.Unlock()

	data := s.impl.data.Data
	parallel.ForRange(len(data), func(start, end int) {
		chunk := data[start:end]
		for i := range chunk {
			chunk[i] = value
		}
	}, s.impl.parallel)
	return nil
}

// CopyFrom copies src's bytes into s. Both storages must have the same size.
func (s Storage) CopyFrom(src Storage) error {
	if s.impl == nil || src.impl == nil {
		return ErrNullStorage
	}
	if s.impl == src.impl {
		return nil
	}

	srcData := src.Data()
	s.impl.mu.Lock()
	defer s.impl.mu.Unlock()

	dst := s.impl.data.Data
	if len(dst) != len(srcData) {
		return fmt.Errorf("copy %d bytes into %d: %w", len(srcData), len(dst), ErrSizeMismatch)
	}

	parallel.ForRange(len(dst), func(start, end int) {
		copy(dst[start:end], srcData[start:end])
	}, s.impl.parallel)
	return nil
}

// CopyData returns a new storage with a copy of the bytes (refcount one).
func (s Storage) CopyData(opts ...Option) (Storage, error) {
	if s.impl == nil {
		return Storage{}, ErrNullStorage
	}
	s.impl.mu.Lock()
	alloc := s.impl.allocator
	resizable := s.impl.resizable
	cfg := s.impl.parallel
	s.impl.mu.Unlock()

	base := []Option{WithAllocator(alloc), WithResizable(resizable), WithParallel(cfg)}
	dup, err := New(s.Nbytes(), append(base, opts...)...)
	if err != nil {
		return Storage{}, err
	}
	if err := dup.CopyFrom(s); err != nil {
		dup.Release()
		return Storage{}, err
	}
	return dup, nil
}
