package host

import "errors"

// Common errors.
var (
	ErrTypeExists       = errors.New("host: type already registered")
	ErrUnknownType      = errors.New("host: unknown type")
	ErrInvalidType      = errors.New("host: type must have a name")
	ErrAttrExists       = errors.New("host: module attribute already set")
	ErrAlreadyTracked   = errors.New("host: object already tracked")
	ErrClosed           = errors.New("host: runtime closed")
	ErrInvalidCollector = errors.New("host: invalid collector")
)
