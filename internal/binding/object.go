package binding

import (
	"sync/atomic"
	"weak"

	"go.uber.org/zap"

	"github.com/born-ml/storagebridge/internal/host"
	"github.com/born-ml/storagebridge/internal/storage"
)

// StorageObject is the host-visible wrapper around one storage handle.
//
// It holds either an owned share (created by New or Wrap) or a borrow
// (created by NewBorrowed). The host runtime decides when it dies; teardown
// releases the share or drops the borrow exactly once.
type StorageObject struct {
	host.ObjectHeader

	state   atomic.Int32
	cdata   storage.MaybeOwned
	self    weak.Pointer[StorageObject]
	binding *Binding
}

// State returns the wrapper's lifecycle state.
func (o *StorageObject) State() State {
	return State(o.state.Load())
}

// Borrowed reports whether the wrapper holds a borrow rather than a share.
func (o *StorageObject) Borrowed() bool {
	return o.cdata.IsBorrowed()
}

// Storage returns the wrapped storage. Same as Unpack(o).
func (o *StorageObject) Storage() *storage.Storage {
	return Unpack(o)
}

// teardown moves the wrapper to Released and drops what it holds.
// A second call is logged and ignored.
func (o *StorageObject) teardown() {
	log := o.binding.logger.With(zap.Stringer("id", o.ID()))

	if !o.state.CompareAndSwap(int32(StateWrapping), int32(StateReleased)) {
		log.Warn("duplicate storage wrapper teardown ignored",
			zap.Stringer("state", o.State()))
		return
	}

	borrowed := o.cdata.IsBorrowed()
	if !borrowed {
		o.cdata.Get().ClearHostObject(o.self)
	}
	o.cdata.Release()

	log.Debug("storage wrapper released", zap.Bool("borrowed", borrowed))
}
