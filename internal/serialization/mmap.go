package serialization

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/multierr"

	"github.com/born-ml/storagebridge/internal/storage"
)

// MmapReader provides memory-mapped access to container files. Only the
// header is parsed up front; storage bytes are paged in on demand.
type MmapReader struct {
	file       *os.File
	data       []byte // mmap'd region (read-only)
	size       int64
	header     Header
	index      map[string]int
	version    uint32
	flags      uint32
	dataOffset int64
	dataSize   int64
	checksum   [32]byte
	closed     bool
}

// NewMmapReader maps the container at path read-only and parses its header
// with strict validation.
//
// Important: Always call Close() when done to unmap the file (use defer).
func NewMmapReader(path string) (*MmapReader, error) {
	return NewMmapReaderWithLevel(path, ValidationStrict)
}

// NewMmapReaderWithLevel is NewMmapReader with a custom validation level.
func NewMmapReaderWithLevel(path string, level ValidationLevel) (*MmapReader, error) {
	//nolint:gosec // G304: File path comes from the caller
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	stat, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}
	if stat.Size() < FixedHeaderSize {
		_ = file.Close()
		return nil, fmt.Errorf("file too small: %d bytes (minimum %d bytes required)", stat.Size(), FixedHeaderSize)
	}

	data, err := mmapFile(file, stat.Size())
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("mmap failed: %w", err)
	}

	r := &MmapReader{
		file: file,
		data: data,
		size: stat.Size(),
	}

	if err := r.parseHeader(level); err != nil {
		_ = r.Close()
		return nil, fmt.Errorf("failed to parse header: %w", err)
	}

	return r, nil
}

// parseHeader reads the fixed header and the JSON header from the mapping.
func (r *MmapReader) parseHeader(level ValidationLevel) error {
	fixed, err := parseFixedHeader(r.data[:FixedHeaderSize])
	if err != nil {
		return err
	}
	r.version = fixed.version
	r.flags = fixed.flags
	r.checksum = fixed.checksum

	headerEnd := int64(FixedHeaderSize) + fixed.headerSize
	if headerEnd > r.size {
		return fmt.Errorf("header extends beyond file: header_end=%d, file_size=%d", headerEnd, r.size)
	}
	if err := json.Unmarshal(r.data[FixedHeaderSize:headerEnd], &r.header); err != nil {
		return fmt.Errorf("failed to parse header JSON: %w", err)
	}

	r.dataOffset = alignUp(headerEnd)
	r.dataSize = fixed.dataSize
	if r.dataSize > r.size-r.dataOffset {
		return fmt.Errorf("%w: data section [%d, %d) beyond file_size %d",
			ErrOutOfBounds, r.dataOffset, r.dataOffset+r.dataSize, r.size)
	}

	if err := ValidateHeader(&r.header, r.dataSize, level); err != nil {
		return fmt.Errorf("header validation failed: %w", err)
	}

	r.index = make(map[string]int, len(r.header.Storages))
	for i, s := range r.header.Storages {
		r.index[s.Name] = i
	}
	return nil
}

// fixedHeader is the decoded 64-byte prefix.
type fixedHeader struct {
	version    uint32
	flags      uint32
	headerSize int64
	dataSize   int64
	checksum   [32]byte
}

func parseFixedHeader(b []byte) (fixedHeader, error) {
	var h fixedHeader
	if string(b[0:4]) != MagicBytes {
		return h, ErrInvalidMagic
	}

	h.version = binary.LittleEndian.Uint32(b[4:8])
	if h.version != FormatVersion {
		return h, fmt.Errorf("%w: got %d, expected %d", ErrUnsupportedVersion, h.version, FormatVersion)
	}
	h.flags = binary.LittleEndian.Uint32(b[8:12])

	headerSize := binary.LittleEndian.Uint64(b[16:24])
	if headerSize > MaxHeaderSize {
		return h, ErrHeaderTooLarge
	}
	h.headerSize = int64(headerSize)

	dataSize := binary.LittleEndian.Uint64(b[24:32])
	if dataSize > 0x7FFFFFFFFFFFFFFF {
		return h, fmt.Errorf("data size too large: %d", dataSize)
	}
	h.dataSize = int64(dataSize)

	copy(h.checksum[:], b[ChecksumOffset:ChecksumOffset+ChecksumSize])
	return h, nil
}

// Close unmaps and closes the file.
func (r *MmapReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true

	var err error
	if r.data != nil {
		err = munmapFile(r.data)
		r.data = nil
	}
	return multierr.Append(err, r.file.Close())
}

// Header returns the JSON header.
func (r *MmapReader) Header() Header {
	return r.header
}

// Version returns the format version.
func (r *MmapReader) Version() uint32 {
	return r.version
}

// Flags returns the flags bitfield.
func (r *MmapReader) Flags() uint32 {
	return r.flags
}

// Checksum returns the stored SHA-256 checksum of the data section.
func (r *MmapReader) Checksum() [32]byte {
	return r.checksum
}

// DataSize returns the size of the data section.
func (r *MmapReader) DataSize() int64 {
	return r.dataSize
}

// Names returns the storage names in file order.
func (r *MmapReader) Names() []string {
	names := make([]string, len(r.header.Storages))
	for i, s := range r.header.Storages {
		names[i] = s.Name
	}
	return names
}

// Info returns the metadata of the named storage.
func (r *MmapReader) Info(name string) (*StorageMeta, error) {
	i, ok := r.index[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrStorageNotFound, name)
	}
	return &r.header.Storages[i], nil
}

// View returns a zero-copy slice of the named storage's bytes.
// The slice is valid only while the reader is open.
// WARNING: The data is read-only - writing to it will fault.
func (r *MmapReader) View(name string) ([]byte, error) {
	if r.closed {
		return nil, ErrClosed
	}

	meta, err := r.Info(name)
	if err != nil {
		return nil, err
	}

	if meta.Offset < 0 || meta.Size < 0 || meta.Size > r.dataSize || meta.Offset > r.dataSize-meta.Size {
		return nil, fmt.Errorf("%w: storage %q: offset %d + size %d > data_size %d",
			ErrOutOfBounds, name, meta.Offset, meta.Size, r.dataSize)
	}
	start := r.dataOffset + meta.Offset
	end := start + meta.Size
	return r.data[start:end:end], nil
}

// LoadStorage copies the named storage into a new storage with a refcount
// of one. The caller owns the returned share.
func (r *MmapReader) LoadStorage(name string, opts ...storage.Option) (storage.Storage, error) {
	view, err := r.View(name)
	if err != nil {
		return storage.Storage{}, err
	}
	s, err := storage.FromBytes(view, opts...)
	if err != nil {
		return storage.Storage{}, fmt.Errorf("failed to load storage %s: %w", name, err)
	}
	return s, nil
}

// LoadAll loads every storage. On error the storages loaded so far are
// released.
func (r *MmapReader) LoadAll(opts ...storage.Option) (map[string]storage.Storage, error) {
	if r.closed {
		return nil, ErrClosed
	}

	out := make(map[string]storage.Storage, len(r.header.Storages))
	for _, meta := range r.header.Storages {
		s, err := r.LoadStorage(meta.Name, opts...)
		if err != nil {
			ReleaseAll(out)
			return nil, err
		}
		out[meta.Name] = s
	}
	return out, nil
}

// VerifyChecksum hashes the data section and compares it with the stored
// checksum.
func (r *MmapReader) VerifyChecksum() error {
	if r.closed {
		return ErrClosed
	}
	section := r.data[r.dataOffset : r.dataOffset+r.dataSize]
	return ValidateChecksum(ComputeChecksum(section), r.checksum)
}

// ReleaseAll releases every storage in m and empties it.
func ReleaseAll(m map[string]storage.Storage) {
	for name, s := range m {
		s.Release()
		delete(m, name)
	}
}
