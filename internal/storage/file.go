package storage

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// sharedFilePrefix names the files created by ShareFilename.
const sharedFilePrefix = "born_storage_"

// FromFile creates a storage backed by a memory mapping of filename.
//
// With shared set, writes go through to the file and the file is grown to
// nbytes if needed. Otherwise the mapping is private copy-on-write and the
// file must hold at least nbytes bytes. nbytes == 0 maps the whole file.
// File-backed storages are not resizable.
func FromFile(filename string, shared bool, nbytes int) (Storage, error) {
	if nbytes < 0 {
		return Storage{}, fmt.Errorf("map %s: %w", filename, ErrNegativeSize)
	}

	flag := os.O_RDONLY
	if shared {
		flag = os.O_RDWR | os.O_CREATE
	}
	//nolint:gosec // G304: File path comes from the caller by design
	f, err := os.OpenFile(filename, flag, 0o600)
	if err != nil {
		return Storage{}, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return Storage{}, fmt.Errorf("failed to stat file: %w", err)
	}

	size := stat.Size()
	if nbytes == 0 {
		nbytes = int(size)
	}
	if int64(nbytes) > size {
		if !shared {
			return Storage{}, fmt.Errorf("map %s: file has %d bytes, want %d: %w",
				filename, size, nbytes, ErrSizeMismatch)
		}
		if err := f.Truncate(int64(nbytes)); err != nil {
			return Storage{}, fmt.Errorf("failed to grow file: %w", err)
		}
	}

	ptr, err := mapFile(f, nbytes, shared)
	if err != nil {
		return Storage{}, fmt.Errorf("mmap failed: %w", err)
	}

	s := newFromDataPtr(ptr, DefaultAllocator(), false, defaultOptions().parallel)
	s.impl.shared = shared
	s.impl.filename = filename
	return s, nil
}

// ShareFilename moves the bytes into a newly created shared file mapping in
// dir and returns the file name. The file is removed when the storage is
// freed. Calling it on an already shared storage returns the existing name.
func (s Storage) ShareFilename(dir string) (string, error) {
	if s.impl == nil {
		return "", ErrNullStorage
	}

	impl := s.impl
	impl.mu.Lock()
	defer impl.mu.Unlock()

	if impl.shared {
		return impl.filename, nil
	}
	if dir == "" {
		dir = os.TempDir()
	}

	name := filepath.Join(dir, sharedFilePrefix+uuid.NewString())
	//nolint:gosec // G304: name is generated above
	f, err := os.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("failed to create shared file: %w", err)
	}
	defer func() { _ = f.Close() }()

	nbytes := len(impl.data.Data)
	if err := f.Truncate(int64(nbytes)); err != nil {
		_ = os.Remove(name)
		return "", fmt.Errorf("failed to size shared file: %w", err)
	}

	ptr, err := mapFile(f, nbytes, true)
	if err != nil {
		_ = os.Remove(name)
		return "", fmt.Errorf("mmap failed: %w", err)
	}
	copy(ptr.Data, impl.data.Data)

	unmap := ptr.Deleter
	ptr.Deleter = func(p DataPtr) error {
		var err error
		if unmap != nil {
			err = unmap(p)
		}
		if rmErr := os.Remove(name); rmErr != nil && err == nil {
			err = rmErr
		}
		return err
	}

	old := impl.data
	impl.data = ptr
	impl.shared = true
	impl.resizable = false
	impl.filename = name

	if err := old.free(); err != nil {
		Logger().Warn("failed to free storage after sharing",
			zap.Stringer("id", impl.id),
			zap.Error(err))
	}
	return name, nil
}
