package host

import (
	"sync/atomic"

	"github.com/google/uuid"
)

// Object is a host-visible object. Implementations embed ObjectHeader as
// their first field and are always handled by pointer.
type Object interface {
	Header() *ObjectHeader
}

// TypeObject describes a class of host objects.
type TypeObject struct {
	Name string
	Doc  string

	// Dealloc tears the object down. The runtime calls it exactly once per
	// object, when the host reference count drops to zero (refcount
	// collector), when the Go garbage collector finalizes the object (gc
	// collector), or on Close.
	Dealloc func(Object) error
}

// ObjectHeader is the bookkeeping the runtime keeps inside every object.
type ObjectHeader struct {
	id   uuid.UUID
	refs atomic.Int64
	dead atomic.Bool
	typ  *TypeObject
	rt   *Runtime
}

// Header returns h, letting embedders satisfy Object.
func (h *ObjectHeader) Header() *ObjectHeader {
	return h
}

// ID returns the object id assigned by Track.
func (h *ObjectHeader) ID() uuid.UUID {
	return h.id
}

// Type returns the object's type, or nil before Track.
func (h *ObjectHeader) Type() *TypeObject {
	return h.typ
}

// Runtime returns the runtime tracking the object.
func (h *ObjectHeader) Runtime() *Runtime {
	return h.rt
}

// RefCount returns the host reference count.
func (h *ObjectHeader) RefCount() int {
	return int(h.refs.Load())
}

// Dead reports whether the object has been deallocated.
func (h *ObjectHeader) Dead() bool {
	return h.dead.Load()
}
