package serialization

import (
	"time"
)

// Format constants.
const (
	MagicBytes      = "BSTR"
	FormatVersion   = 2    // v2: fixed header with SHA-256 checksum
	HeaderAlignment = 64   // Align storage data to 64 bytes
	FixedHeaderSize = 64   // Fixed header size (0x40 bytes)
	ChecksumSize    = 32   // SHA-256 checksum size (32 bytes)
	ChecksumOffset  = 0x20 // Checksum offset in the fixed header
)

// Flags for the container format.
const (
	FlagHasMetadata uint32 = 1 << 0 // bit 0: custom metadata included
	FlagHasShared   uint32 = 1 << 1 // bit 1: at least one storage was file-shared when saved
)

// Producer identifies the writer in the JSON header.
const Producer = "born-storage/0.1.0"

// Header is the JSON header of a container file.
type Header struct {
	FormatVersion int               `json:"format_version"`
	Producer      string            `json:"producer"`
	CreatedAt     time.Time         `json:"created_at"`
	Storages      []StorageMeta     `json:"storages"`
	Metadata      map[string]string `json:"metadata"`
}

// StorageMeta describes one storage in the data section.
type StorageMeta struct {
	Name   string `json:"name"`   // e.g. "layer.0.weight"
	ID     string `json:"id"`     // id of the storage when it was saved
	Device string `json:"device"` // device the bytes lived on
	Offset int64  `json:"offset"` // bytes from the start of the data section
	Size   int64  `json:"size"`   // size in bytes
}

// alignUp rounds n up to HeaderAlignment.
func alignUp(n int64) int64 {
	return (n + HeaderAlignment - 1) / HeaderAlignment * HeaderAlignment
}
