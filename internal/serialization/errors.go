package serialization

import (
	"errors"
	"fmt"
)

// Common errors.
var (
	ErrChecksumMismatch   = errors.New("checksum mismatch: file may be corrupted")
	ErrOffsetOverlap      = errors.New("storage offsets overlap")
	ErrOutOfBounds        = errors.New("storage extends beyond data section")
	ErrNegativeOffset     = errors.New("negative offset or size")
	ErrTooManyStorages    = errors.New("too many storages in file")
	ErrStorageNameTooLong = errors.New("storage name too long")
	ErrInvalidStorageName = errors.New("invalid storage name")
	ErrDuplicateName      = errors.New("duplicate storage name")
	ErrHeaderTooLarge     = errors.New("header exceeds maximum size")
	ErrInvalidMagic       = errors.New("invalid magic bytes")
	ErrUnsupportedVersion = errors.New("unsupported format version")
	ErrStorageNotFound    = errors.New("storage not found")
	ErrClosed             = errors.New("file already closed")
)

// ValidationError provides detailed information about validation failures.
type ValidationError struct {
	Type     string // Type of error (e.g., "offset_overlap", "out_of_bounds")
	Storage  string // Primary storage name involved
	Storage2 string // Secondary storage name (for overlap errors)
	Details  string // Additional details
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Storage2 != "" {
		return fmt.Sprintf("%s: storages %q and %q: %s", e.Type, e.Storage, e.Storage2, e.Details)
	}
	if e.Storage != "" {
		return fmt.Sprintf("%s: storage %q: %s", e.Type, e.Storage, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Details)
}

// Unwrap maps the validation type to its sentinel error.
func (e *ValidationError) Unwrap() error {
	switch e.Type {
	case "offset_overlap":
		return ErrOffsetOverlap
	case "out_of_bounds":
		return ErrOutOfBounds
	case "negative_offset":
		return ErrNegativeOffset
	case "too_many_storages":
		return ErrTooManyStorages
	case "name_too_long":
		return ErrStorageNameTooLong
	case "invalid_name":
		return ErrInvalidStorageName
	case "duplicate_name":
		return ErrDuplicateName
	default:
		return nil
	}
}
