package storage

import "errors"

// Common errors.
var (
	ErrNullStorage      = errors.New("storage: null storage")
	ErrNotResizable     = errors.New("storage: storage is not resizable")
	ErrSizeMismatch     = errors.New("storage: size mismatch")
	ErrNegativeSize     = errors.New("storage: negative size")
	ErrTooLarge         = errors.New("storage: size exceeds allocator limit")
	ErrMmapNotSupported = errors.New("storage: memory mapping not supported on this platform")
)
