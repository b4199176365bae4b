package binding

import "errors"

// Common errors.
var (
	ErrAlreadyInitialized = errors.New("binding: already initialized")
	ErrNotInitialized     = errors.New("binding: not initialized")
	ErrNotStorageObject   = errors.New("binding: not a storage object")
)
