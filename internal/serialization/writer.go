package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"github.com/born-ml/storagebridge/internal/storage"
)

// Writer writes storages to a container file.
type Writer struct {
	file   *os.File
	closed bool
}

// NewWriter creates (or truncates) the container file at path.
func NewWriter(path string) (*Writer, error) {
	//nolint:gosec // G304: File path comes from the caller
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create file: %w", err)
	}
	return &Writer{file: file}, nil
}

// WriteStorages writes every storage in storages, in name order, together
// with metadata. The storages are only read; their refcounts do not change.
func (w *Writer) WriteStorages(storages map[string]storage.Storage, metadata map[string]string) error {
	if w.closed {
		return ErrClosed
	}
	return WriteTo(w.file, storages, metadata)
}

// Close closes the underlying file.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	return w.file.Close()
}

// WriteTo encodes storages to writer. This is useful for buffers or network
// connections.
func WriteTo(writer io.Writer, storages map[string]storage.Storage, metadata map[string]string) error {
	names := make([]string, 0, len(storages))
	for name := range storages {
		names = append(names, name)
	}
	sort.Strings(names)

	header := Header{
		FormatVersion: FormatVersion,
		Producer:      Producer,
		CreatedAt:     time.Now().UTC(),
		Storages:      make([]StorageMeta, 0, len(names)),
		Metadata:      metadata,
	}
	if header.Metadata == nil {
		header.Metadata = make(map[string]string)
	}

	var (
		offset int64
		parts  = make([][]byte, 0, len(names))
		flags  uint32
	)
	for _, name := range names {
		if err := ValidateStorageName(name); err != nil {
			return err
		}
		s := storages[name]
		if !s.Defined() {
			return fmt.Errorf("storage %q: %w", name, storage.ErrNullStorage)
		}
		if s.IsShared() {
			flags |= FlagHasShared
		}

		data := s.Data()
		header.Storages = append(header.Storages, StorageMeta{
			Name:   name,
			ID:     s.ID().String(),
			Device: s.Device().String(),
			Offset: offset,
			Size:   int64(len(data)),
		})
		parts = append(parts, data)
		offset += int64(len(data))
	}
	if len(header.Metadata) > 0 {
		flags |= FlagHasMetadata
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}

	checksum := checksumParts(parts)

	fixed := make([]byte, FixedHeaderSize)
	copy(fixed[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixed[4:8], uint32(FormatVersion))
	binary.LittleEndian.PutUint32(fixed[8:12], flags)
	// 0x0C-0x0F reserved
	binary.LittleEndian.PutUint64(fixed[16:24], uint64(len(headerJSON)))
	//nolint:gosec // G115: offset is a sum of slice lengths
	binary.LittleEndian.PutUint64(fixed[24:32], uint64(offset))
	copy(fixed[ChecksumOffset:ChecksumOffset+ChecksumSize], checksum[:])

	if _, err := writer.Write(fixed); err != nil {
		return fmt.Errorf("failed to write fixed header: %w", err)
	}
	if _, err := writer.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header JSON: %w", err)
	}

	headerEnd := int64(FixedHeaderSize) + int64(len(headerJSON))
	if padding := alignUp(headerEnd) - headerEnd; padding > 0 {
		if _, err := writer.Write(make([]byte, padding)); err != nil {
			return fmt.Errorf("failed to write padding: %w", err)
		}
	}

	for i, data := range parts {
		if _, err := writer.Write(data); err != nil {
			return fmt.Errorf("failed to write storage %s: %w", names[i], err)
		}
	}

	return nil
}
