// Package host is an in-process model of a host language runtime: a type
// registry, module namespaces, and reference-counted objects whose lifetime
// the runtime controls.
package host

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Collection modes.
const (
	// CollectorRefcount deallocates an object when its host refcount
	// reaches zero.
	CollectorRefcount = "refcount"

	// CollectorGC leaves deallocation to the Go garbage collector. Host
	// refcounts are still kept but do not trigger teardown.
	CollectorGC = "gc"
)

// Config configures a Runtime.
type Config struct {
	Name      string `yaml:"name"`      // runtime name used in logs
	Collector string `yaml:"collector"` // "refcount" or "gc"
}

// DefaultConfig returns the default runtime configuration.
func DefaultConfig() Config {
	return Config{
		Name:      "born",
		Collector: CollectorRefcount,
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	switch c.Collector {
	case CollectorRefcount, CollectorGC:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrInvalidCollector, c.Collector)
	}
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the runtime's logger.
func WithLogger(l *zap.Logger) Option {
	return func(rt *Runtime) {
		if l != nil {
			rt.logger = l
		}
	}
}

// Runtime owns the host type system and the lifetime of host objects.
type Runtime struct {
	cfg    Config
	logger *zap.Logger

	mu       sync.Mutex
	types    map[string]*TypeObject
	modules  map[string]*Module
	objects  map[*ObjectHeader]Object // refcount collector only
	postInit []func() error
	closed   bool

	live atomic.Int64
}

// NewRuntime creates a runtime.
func NewRuntime(cfg Config, opts ...Option) (*Runtime, error) {
	if cfg.Collector == "" {
		cfg.Collector = CollectorRefcount
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	rt := &Runtime{
		cfg:     cfg,
		logger:  Logger(),
		types:   make(map[string]*TypeObject),
		modules: make(map[string]*Module),
		objects: make(map[*ObjectHeader]Object),
	}
	for _, opt := range opts {
		opt(rt)
	}
	rt.logger = rt.logger.With(zap.String("runtime", cfg.Name))
	return rt, nil
}

// Config returns the runtime configuration.
func (rt *Runtime) Config() Config {
	return rt.cfg
}

// Logger returns the runtime's logger.
func (rt *Runtime) Logger() *zap.Logger {
	return rt.logger
}

// NewModule returns the module called name, creating it on first use.
func (rt *Runtime) NewModule(name string) (*Module, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.closed {
		return nil, ErrClosed
	}
	if m, ok := rt.modules[name]; ok {
		return m, nil
	}
	m := newModule(name)
	rt.modules[name] = m
	return m, nil
}

// RegisterType adds typ to the type registry.
func (rt *Runtime) RegisterType(typ *TypeObject) error {
	if typ == nil || typ.Name == "" {
		return ErrInvalidType
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.closed {
		return ErrClosed
	}
	if _, ok := rt.types[typ.Name]; ok {
		return fmt.Errorf("%s: %w", typ.Name, ErrTypeExists)
	}
	rt.types[typ.Name] = typ

	rt.logger.Debug("type registered", zap.String("type", typ.Name))
	return nil
}

// UnregisterType removes typ from the registry and reports whether it was
// registered. Objects already tracked with typ keep it.
func (rt *Runtime) UnregisterType(typ *TypeObject) bool {
	if typ == nil {
		return false
	}

	rt.mu.Lock()
	defer rt.mu.Unlock()

	if rt.types[typ.Name] != typ {
		return false
	}
	delete(rt.types, typ.Name)

	rt.logger.Debug("type unregistered", zap.String("type", typ.Name))
	return true
}

// LookupType returns the registered type called name.
func (rt *Runtime) LookupType(name string) (*TypeObject, error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()

	typ, ok := rt.types[name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", name, ErrUnknownType)
	}
	return typ, nil
}

// Track hands obj over to the runtime with a host refcount of one.
// typ must be registered.
func (rt *Runtime) Track(obj Object, typ *TypeObject) error {
	h := obj.Header()

	rt.mu.Lock()
	if rt.closed {
		rt.mu.Unlock()
		return ErrClosed
	}
	if typ == nil || rt.types[typ.Name] != typ {
		rt.mu.Unlock()
		return ErrUnknownType
	}
	if h.rt != nil {
		rt.mu.Unlock()
		return ErrAlreadyTracked
	}

	h.id = uuid.New()
	h.typ = typ
	h.rt = rt
	h.refs.Store(1)
	if rt.cfg.Collector == CollectorRefcount {
		rt.objects[h] = obj
	}
	rt.mu.Unlock()

	if rt.cfg.Collector == CollectorGC {
		runtime.SetFinalizer(obj, func(o Object) {
			if err := rt.dealloc(o); err != nil {
				rt.logger.Warn("finalizer dealloc failed",
					zap.Stringer("id", o.Header().id),
					zap.Error(err))
			}
		})
	}

	rt.live.Add(1)
	rt.logger.Debug("object tracked",
		zap.String("type", typ.Name),
		zap.Stringer("id", h.id))
	return nil
}

// Incref adds a host reference to obj.
func (rt *Runtime) Incref(obj Object) {
	h := obj.Header()
	if h.refs.Add(1) <= 1 {
		panic("host: incref of a dead object")
	}
}

// TryIncref adds a host reference unless obj is already dead or its count
// has dropped to zero.
func (rt *Runtime) TryIncref(obj Object) bool {
	h := obj.Header()
	for {
		n := h.refs.Load()
		if n <= 0 || h.dead.Load() {
			return false
		}
		if h.refs.CompareAndSwap(n, n+1) {
			return true
		}
	}
}

// Decref drops a host reference. Under the refcount collector the object is
// deallocated when the count reaches zero; the returned error comes from
// the type's Dealloc.
func (rt *Runtime) Decref(obj Object) error {
	h := obj.Header()
	n := h.refs.Add(-1)
	switch {
	case n < 0:
		panic("host: object released too many times")
	case n > 0 || rt.cfg.Collector != CollectorRefcount:
		return nil
	}
	return rt.dealloc(obj)
}

// dealloc runs the type's Dealloc once per object.
func (rt *Runtime) dealloc(obj Object) error {
	h := obj.Header()
	if !h.dead.CompareAndSwap(false, true) {
		return nil
	}

	rt.mu.Lock()
	delete(rt.objects, h)
	rt.mu.Unlock()
	rt.live.Add(-1)

	rt.logger.Debug("object deallocated",
		zap.String("type", h.typ.Name),
		zap.Stringer("id", h.id))

	if h.typ.Dealloc == nil {
		return nil
	}
	if err := h.typ.Dealloc(obj); err != nil {
		return fmt.Errorf("dealloc %s: %w", h.typ.Name, err)
	}
	return nil
}

// AddPostInit queues fn to run once every type has been registered.
func (rt *Runtime) AddPostInit(fn func() error) {
	rt.mu.Lock()
	defer rt.mu.Unlock()
	rt.postInit = append(rt.postInit, fn)
}

// RunPostInit runs and clears the queued post-init hooks. Every hook runs
// even when an earlier one fails; the errors are combined.
func (rt *Runtime) RunPostInit() error {
	rt.mu.Lock()
	if rt.closed {
		rt.mu.Unlock()
		return ErrClosed
	}
	hooks := rt.postInit
	rt.postInit = nil
	rt.mu.Unlock()

	var err error
	for _, fn := range hooks {
		err = multierr.Append(err, fn())
	}
	return err
}

// Live returns the number of tracked objects not yet deallocated.
func (rt *Runtime) Live() int {
	return int(rt.live.Load())
}

// Close deallocates every object still tracked by the refcount collector
// and rejects further registrations. Objects under the gc collector are
// left to their finalizers. Closing twice is a no-op.
func (rt *Runtime) Close() error {
	rt.mu.Lock()
	if rt.closed {
		rt.mu.Unlock()
		return nil
	}
	rt.closed = true
	remaining := make([]Object, 0, len(rt.objects))
	for _, obj := range rt.objects {
		remaining = append(remaining, obj)
	}
	rt.mu.Unlock()

	if len(remaining) > 0 {
		rt.logger.Info("closing runtime with live objects", zap.Int("count", len(remaining)))
	}

	var err error
	for _, obj := range remaining {
		err = multierr.Append(err, rt.dealloc(obj))
	}
	return err
}
