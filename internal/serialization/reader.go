package serialization

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/born-ml/storagebridge/internal/storage"
)

// ReadFrom decodes a container from r, for sources that cannot be mapped
// (network streams, buffers). Every storage is copied into a new storage
// the caller owns, and the checksum is verified while reading. On error
// nothing is returned and every storage created so far is released.
func ReadFrom(r io.Reader, opts ...storage.Option) (Header, map[string]storage.Storage, error) {
	fixedBuf := make([]byte, FixedHeaderSize)
	if _, err := io.ReadFull(r, fixedBuf); err != nil {
		return Header{}, nil, fmt.Errorf("failed to read fixed header: %w", err)
	}
	fixed, err := parseFixedHeader(fixedBuf)
	if err != nil {
		return Header{}, nil, err
	}

	headerJSON := make([]byte, fixed.headerSize)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return Header{}, nil, fmt.Errorf("failed to read header JSON: %w", err)
	}
	var header Header
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return Header{}, nil, fmt.Errorf("failed to parse header JSON: %w", err)
	}
	if err := ValidateHeader(&header, fixed.dataSize, ValidationStrict); err != nil {
		return Header{}, nil, fmt.Errorf("header validation failed: %w", err)
	}

	headerEnd := int64(FixedHeaderSize) + fixed.headerSize
	if _, err := io.CopyN(io.Discard, r, alignUp(headerEnd)-headerEnd); err != nil {
		return Header{}, nil, fmt.Errorf("failed to skip padding: %w", err)
	}

	metas := make([]StorageMeta, len(header.Storages))
	copy(metas, header.Storages)
	sort.Slice(metas, func(i, j int) bool {
		if metas[i].Offset != metas[j].Offset {
			return metas[i].Offset < metas[j].Offset
		}
		return metas[i].Size < metas[j].Size
	})

	hash := sha256.New()
	data := io.TeeReader(io.LimitReader(r, fixed.dataSize), hash)

	out := make(map[string]storage.Storage, len(metas))
	var pos int64
	for _, meta := range metas {
		if _, err := io.CopyN(io.Discard, data, meta.Offset-pos); err != nil {
			ReleaseAll(out)
			return Header{}, nil, fmt.Errorf("failed to skip to storage %s: %w", meta.Name, err)
		}

		// The declared size is only trusted as far as the stream backs it.
		buf, err := io.ReadAll(io.LimitReader(data, meta.Size))
		if err == nil && int64(len(buf)) != meta.Size {
			err = io.ErrUnexpectedEOF
		}
		if err != nil {
			ReleaseAll(out)
			return Header{}, nil, fmt.Errorf("failed to read storage %s: %w", meta.Name, err)
		}

		s, err := storage.FromBytes(buf, opts...)
		if err != nil {
			ReleaseAll(out)
			return Header{}, nil, fmt.Errorf("failed to allocate storage %s: %w", meta.Name, err)
		}
		out[meta.Name] = s
		pos = max(pos, meta.Offset+meta.Size)
	}
	if _, err := io.Copy(io.Discard, data); err != nil {
		ReleaseAll(out)
		return Header{}, nil, fmt.Errorf("failed to read data section: %w", err)
	}

	var sum [32]byte
	copy(sum[:], hash.Sum(nil))
	if err := ValidateChecksum(sum, fixed.checksum); err != nil {
		ReleaseAll(out)
		return Header{}, nil, err
	}

	return header, out, nil
}
