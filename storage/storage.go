// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package storage provides reference-counted, untyped byte storages.
//
// A Storage is a handle to a shared buffer. Every live handle owns one
// reference: Clone adds one, Release drops one, and the buffer is freed
// when the last reference goes away.
//
// Example usage:
//
//	import "github.com/born-ml/storagebridge/storage"
//
//	s, err := storage.New(1024)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Release()
//
//	peer := s.Clone()     // UseCount() == 2
//	peer.Release()        // UseCount() == 1
//
// Storages can also be borrowed without touching the refcount:
//
//	m := storage.Borrowed(&s)
//	defer m.Release() // no-op for a borrow
package storage

import (
	"github.com/born-ml/storagebridge/internal/storage"
)

// Storage is a reference-counted handle to an untyped buffer.
// The zero value is the null storage.
type Storage = storage.Storage

// WeakStorage observes a storage without keeping its bytes alive.
type WeakStorage = storage.WeakStorage

// Device identifies where a storage's bytes live.
type Device = storage.Device

// Supported devices.
const (
	CPU    Device = storage.CPU
	WebGPU Device = storage.WebGPU
)

// Allocator produces the bytes of a storage.
type Allocator = storage.Allocator

// DataPtr is an allocation together with its device context and deleter.
type DataPtr = storage.DataPtr

// Option configures a new storage.
type Option = storage.Option

// MaybeOwned holds a storage that is either owned or borrowed.
type MaybeOwned = storage.MaybeOwned

// Exclusive holds the single reference to a storage.
type Exclusive = storage.Exclusive

// Errors returned by storage operations.
var (
	ErrNullStorage  = storage.ErrNullStorage
	ErrNegativeSize = storage.ErrNegativeSize
	ErrNotResizable = storage.ErrNotResizable
	ErrSizeMismatch = storage.ErrSizeMismatch
)

// New allocates a zeroed storage of nbytes bytes with a refcount of one.
func New(nbytes int, opts ...Option) (Storage, error) {
	return storage.New(nbytes, opts...)
}

// FromBytes allocates a storage holding a copy of data.
func FromBytes(data []byte, opts ...Option) (Storage, error) {
	return storage.FromBytes(data, opts...)
}

// FromFile maps nbytes of filename into a storage. A shared mapping writes
// through to the file; a private one is copy-on-write.
func FromFile(filename string, shared bool, nbytes int) (Storage, error) {
	return storage.FromFile(filename, shared, nbytes)
}

// WithAllocator sets the allocator of a new storage.
func WithAllocator(a Allocator) Option {
	return storage.WithAllocator(a)
}

// WithResizable controls whether Resize is allowed.
func WithResizable(resizable bool) Option {
	return storage.WithResizable(resizable)
}

// Owned wraps s as an owned MaybeOwned. The caller's reference moves in.
func Owned(s Storage) MaybeOwned {
	return storage.Owned(s)
}

// Borrowed wraps s as a borrow. The refcount is left alone.
func Borrowed(s *Storage) MaybeOwned {
	return storage.Borrowed(s)
}

// NewExclusive allocates a storage held exclusively.
func NewExclusive(nbytes int, opts ...Option) (Exclusive, error) {
	return storage.NewExclusive(nbytes, opts...)
}

// ToExclusive moves s into an Exclusive.
func ToExclusive(s Storage) Exclusive {
	return storage.ToExclusive(s)
}
