package serialization

import (
	"fmt"
	"sort"
	"strings"
)

// Validation limits for security and resource protection.
const (
	MaxHeaderSize     = 100 * 1024 * 1024 // 100MB - maximum header size
	MaxStorageCount   = 100_000           // Maximum number of storages in a file
	MaxStorageNameLen = 4096              // Maximum storage name length
)

// ValidationLevel controls the strictness of validation.
type ValidationLevel int

const (
	// ValidationStrict performs all validation checks (default).
	ValidationStrict ValidationLevel = iota
	// ValidationNormal checks names and counts but not offsets.
	ValidationNormal
	// ValidationNone skips validation. Use only with trusted input.
	ValidationNone
)

// ValidateStorageOffsets checks for negative, overlapping and
// out-of-bounds regions. Malformed files could otherwise expose bytes of one
// storage through another.
func ValidateStorageOffsets(storages []StorageMeta, dataSize int64) error {
	if len(storages) > MaxStorageCount {
		return &ValidationError{
			Type:    "too_many_storages",
			Details: fmt.Sprintf("got %d, max %d", len(storages), MaxStorageCount),
		}
	}

	sorted := make([]StorageMeta, len(storages))
	copy(sorted, storages)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Offset < sorted[j].Offset
	})

	var prev *StorageMeta // last non-empty region
	for i := range sorted {
		s := &sorted[i]
		if s.Offset < 0 || s.Size < 0 {
			return &ValidationError{
				Type:    "negative_offset",
				Storage: s.Name,
				Details: fmt.Sprintf("offset=%d, size=%d", s.Offset, s.Size),
			}
		}

		if s.Size > dataSize || s.Offset > dataSize-s.Size {
			return &ValidationError{
				Type:    "out_of_bounds",
				Storage: s.Name,
				Details: fmt.Sprintf("offset %d + size %d > data_size %d", s.Offset, s.Size, dataSize),
			}
		}

		// Empty regions cannot overlap anything.
		if s.Size == 0 {
			continue
		}
		if prev != nil && prev.Offset+prev.Size > s.Offset {
			details := fmt.Sprintf("regions [%d-%d] and [%d-%d] overlap",
				prev.Offset, prev.Offset+prev.Size, s.Offset, s.Offset+s.Size)
			return &ValidationError{
				Type:     "offset_overlap",
				Storage:  prev.Name,
				Storage2: s.Name,
				Details:  details,
			}
		}
		if prev == nil || s.Offset+s.Size > prev.Offset+prev.Size {
			prev = s
		}
	}

	return nil
}

// ValidateStorageName rejects empty names, path separators, traversal
// sequences and null bytes.
func ValidateStorageName(name string) error {
	if name == "" {
		return &ValidationError{
			Type:    "invalid_name",
			Details: "empty name",
		}
	}

	if len(name) > MaxStorageNameLen {
		return &ValidationError{
			Type:    "name_too_long",
			Storage: name,
			Details: fmt.Sprintf("length %d > max %d", len(name), MaxStorageNameLen),
		}
	}

	if strings.Contains(name, "..") {
		return &ValidationError{
			Type:    "invalid_name",
			Storage: name,
			Details: "contains '..'",
		}
	}

	if strings.ContainsAny(name, "/\\") {
		return &ValidationError{
			Type:    "invalid_name",
			Storage: name,
			Details: "contains path separator (/ or \\)",
		}
	}

	if strings.Contains(name, "\x00") {
		return &ValidationError{
			Type:    "invalid_name",
			Storage: name,
			Details: "contains null byte",
		}
	}

	return nil
}

// ValidateHeader validates h against the data section size.
func ValidateHeader(h *Header, dataSize int64, level ValidationLevel) error {
	if level == ValidationNone {
		return nil
	}

	if len(h.Storages) > MaxStorageCount {
		return &ValidationError{
			Type:    "too_many_storages",
			Details: fmt.Sprintf("got %d, max %d", len(h.Storages), MaxStorageCount),
		}
	}

	seen := make(map[string]struct{}, len(h.Storages))
	for _, s := range h.Storages {
		if err := ValidateStorageName(s.Name); err != nil {
			return err
		}
		if _, dup := seen[s.Name]; dup {
			return &ValidationError{
				Type:    "duplicate_name",
				Storage: s.Name,
				Details: "name appears more than once",
			}
		}
		seen[s.Name] = struct{}{}
	}

	if level == ValidationStrict {
		if err := ValidateStorageOffsets(h.Storages, dataSize); err != nil {
			return err
		}
	}

	return nil
}
