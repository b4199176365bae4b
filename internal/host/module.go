package host

import (
	"fmt"
	"sort"
	"sync"
)

// Module is a named namespace that exposes types and values to host code.
type Module struct {
	name string

	mu    sync.RWMutex
	attrs map[string]any
}

func newModule(name string) *Module {
	return &Module{
		name:  name,
		attrs: make(map[string]any),
	}
}

// Name returns the module name.
func (m *Module) Name() string {
	return m.name
}

// AddObject binds value to name. Rebinding a name is an error.
func (m *Module) AddObject(name string, value any) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.attrs[name]; ok {
		return fmt.Errorf("%s.%s: %w", m.name, name, ErrAttrExists)
	}
	m.attrs[name] = value
	return nil
}

// Attr looks up name in the module namespace.
func (m *Module) Attr(name string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	v, ok := m.attrs[name]
	return v, ok
}

// Names returns the bound names in sorted order.
func (m *Module) Names() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.attrs))
	for name := range m.attrs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
