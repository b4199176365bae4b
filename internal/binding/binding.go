// Package binding exposes storages to the host runtime as
// born.UntypedStorage objects.
//
// The wrapper owns at most one refcount share of its storage. Construction
// consumes the caller's share, unwrapping lends the storage to native code
// without giving the share up, and the host's teardown hook releases the
// share exactly once.
//
// Typical setup:
//
//	mod, _ := rt.NewModule("born")
//	b, _ := binding.Init(rt, mod)
//	_ = rt.RunPostInit() // resolves the class
//
//	s, _ := storage.New(1024)
//	obj, _ := b.New(s) // obj now owns the share
//	defer rt.Decref(obj)
package binding

import (
	"errors"
	"fmt"
	"sync/atomic"
	"weak"

	"go.uber.org/zap"

	"github.com/born-ml/storagebridge/internal/host"
	"github.com/born-ml/storagebridge/internal/storage"
)

const (
	// TypeName is the registered host type name.
	TypeName = "born.UntypedStorage"

	// ClassName is the attribute under which the type is exposed in the
	// module namespace.
	ClassName = "UntypedStorage"
)

// Binding is the storage type registration for one runtime.
type Binding struct {
	rt     *host.Runtime
	typ    *host.TypeObject
	class  atomic.Pointer[host.TypeObject]
	logger *zap.Logger
}

// Init registers the storage type with rt and exposes it in module. It must
// be called once per runtime, during module setup. The class becomes usable
// after PostInit, which Init queues on the runtime's post-init hooks.
func Init(rt *host.Runtime, module *host.Module) (*Binding, error) {
	b := &Binding{
		rt:     rt,
		logger: rt.Logger().With(zap.String("type", TypeName)),
	}
	b.typ = &host.TypeObject{
		Name:    TypeName,
		Doc:     "Untyped reference-counted byte storage.",
		Dealloc: b.dealloc,
	}

	if err := rt.RegisterType(b.typ); err != nil {
		if errors.Is(err, host.ErrTypeExists) {
			return nil, fmt.Errorf("%w: %w", ErrAlreadyInitialized, err)
		}
		return nil, fmt.Errorf("register %s: %w", TypeName, err)
	}
	if err := module.AddObject(ClassName, b.typ); err != nil {
		rt.UnregisterType(b.typ)
		return nil, fmt.Errorf("expose %s: %w", ClassName, err)
	}
	rt.AddPostInit(func() error {
		return b.PostInit(module)
	})

	b.logger.Debug("storage type registered", zap.String("module", module.Name()))
	return b, nil
}

// PostInit resolves the storage class from the module namespace. It runs
// after every type has been registered.
func (b *Binding) PostInit(module *host.Module) error {
	v, ok := module.Attr(ClassName)
	if !ok {
		return fmt.Errorf("%s.%s missing: %w", module.Name(), ClassName, ErrNotInitialized)
	}
	typ, ok := v.(*host.TypeObject)
	if !ok || typ != b.typ {
		return fmt.Errorf("%s.%s is not %s: %w", module.Name(), ClassName, TypeName, ErrNotInitialized)
	}
	b.class.Store(typ)
	return nil
}

// Type returns the registered host type.
func (b *Binding) Type() *host.TypeObject {
	return b.typ
}

// New wraps s in a new host object that takes over the caller's share: the
// refcount does not change and the caller must not release s afterwards.
// On error the share is released.
func (b *Binding) New(s storage.Storage) (*StorageObject, error) {
	class := b.class.Load()
	if class == nil {
		s.Release()
		return nil, ErrNotInitialized
	}
	if !s.Defined() {
		return nil, storage.ErrNullStorage
	}

	obj := &StorageObject{binding: b}
	obj.self = weak.Make(obj)
	obj.cdata = storage.Owned(s)
	if err := b.track(obj, class); err != nil {
		obj.cdata.Release()
		return nil, err
	}
	obj.cdata.Get().SetHostObject(obj.self)
	return obj, nil
}

// NewBorrowed wraps *s without taking a share. *s must outlive the returned
// object; teardown never touches the refcount.
func (b *Binding) NewBorrowed(s *storage.Storage) (*StorageObject, error) {
	class := b.class.Load()
	if class == nil {
		return nil, ErrNotInitialized
	}
	if !s.Defined() {
		return nil, storage.ErrNullStorage
	}

	obj := &StorageObject{binding: b}
	obj.self = weak.Make(obj)
	obj.cdata = storage.Borrowed(s)
	if err := b.track(obj, class); err != nil {
		obj.cdata.Release()
		return nil, err
	}
	return obj, nil
}

// Wrap returns the live owning wrapper of s with a new host reference, if
// there is one, releasing the caller's now redundant share. Otherwise it
// behaves like New.
func (b *Binding) Wrap(s storage.Storage) (*StorageObject, error) {
	if wp, ok := s.HostObject().(weak.Pointer[StorageObject]); ok {
		obj := wp.Value()
		if obj != nil && obj.binding == b && obj.State() == StateWrapping && b.rt.TryIncref(obj) {
			s.Release()
			return obj, nil
		}
	}
	return b.New(s)
}

// Check reports whether obj is a storage object of this binding.
func (b *Binding) Check(obj host.Object) bool {
	so, ok := obj.(*StorageObject)
	return ok && so != nil && so.binding == b
}

// Unpack returns the storage held by obj for native use. The caller borrows
// it: obj keeps its share.
func Unpack(obj *StorageObject) *storage.Storage {
	if obj == nil {
		return nil
	}
	return obj.cdata.Get()
}

// UnpackObject is Unpack for a generic host object. It returns nil when obj
// is not a storage object.
func UnpackObject(obj host.Object) *storage.Storage {
	so, ok := obj.(*StorageObject)
	if !ok {
		return nil
	}
	return Unpack(so)
}

func (b *Binding) track(obj *StorageObject, class *host.TypeObject) error {
	obj.state.Store(int32(StateWrapping))
	if err := b.rt.Track(obj, class); err != nil {
		obj.state.Store(int32(StateUninitialized))
		return fmt.Errorf("track storage wrapper: %w", err)
	}

	b.logger.Debug("storage wrapper created",
		zap.Stringer("id", obj.ID()),
		zap.Stringer("storage", obj.cdata.Get().ID()),
		zap.Bool("borrowed", obj.cdata.IsBorrowed()))
	return nil
}

// dealloc is the host teardown hook.
func (b *Binding) dealloc(obj host.Object) error {
	so, ok := obj.(*StorageObject)
	if !ok {
		return fmt.Errorf("%T: %w", obj, ErrNotStorageObject)
	}
	so.teardown()
	return nil
}
