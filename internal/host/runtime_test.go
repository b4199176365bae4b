package host

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

type testObject struct {
	ObjectHeader
	name string
}

func newTestRuntime(t *testing.T, collector string) *Runtime {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Collector = collector
	rt, err := NewRuntime(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { _ = rt.Close() })
	return rt
}

func countingType(name string, deallocs *int) *TypeObject {
	return &TypeObject{
		Name: name,
		Dealloc: func(Object) error {
			*deallocs++
			return nil
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		collector string
		wantErr   bool
	}{
		{CollectorRefcount, false},
		{CollectorGC, false},
		{"arc", true},
	}

	for _, tt := range tests {
		t.Run(tt.collector, func(t *testing.T) {
			err := Config{Collector: tt.collector}.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidCollector)
			} else {
				assert.NoError(t, err)
			}
		})
	}

	_, err := NewRuntime(Config{Collector: "arc"})
	assert.ErrorIs(t, err, ErrInvalidCollector)
}

func TestRuntime_RegisterType(t *testing.T) {
	rt := newTestRuntime(t, CollectorRefcount)

	typ := &TypeObject{Name: "test.Thing"}
	require.NoError(t, rt.RegisterType(typ))
	assert.ErrorIs(t, rt.RegisterType(&TypeObject{Name: "test.Thing"}), ErrTypeExists)
	assert.ErrorIs(t, rt.RegisterType(&TypeObject{}), ErrInvalidType)

	got, err := rt.LookupType("test.Thing")
	require.NoError(t, err)
	assert.Same(t, typ, got)

	_, err = rt.LookupType("test.Missing")
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestRuntime_UnregisterType(t *testing.T) {
	rt := newTestRuntime(t, CollectorRefcount)

	typ := &TypeObject{Name: "test.Thing"}
	require.NoError(t, rt.RegisterType(typ))

	assert.False(t, rt.UnregisterType(&TypeObject{Name: "test.Thing"}), "only the registered object is removed")
	assert.False(t, rt.UnregisterType(nil))
	assert.True(t, rt.UnregisterType(typ))
	assert.False(t, rt.UnregisterType(typ))

	_, err := rt.LookupType("test.Thing")
	assert.ErrorIs(t, err, ErrUnknownType)
	require.NoError(t, rt.RegisterType(typ))
}

func TestRuntime_Modules(t *testing.T) {
	rt := newTestRuntime(t, CollectorRefcount)

	m, err := rt.NewModule("born")
	require.NoError(t, err)
	again, err := rt.NewModule("born")
	require.NoError(t, err)
	assert.Same(t, m, again)

	require.NoError(t, m.AddObject("Answer", 42))
	assert.ErrorIs(t, m.AddObject("Answer", 43), ErrAttrExists)

	v, ok := m.Attr("Answer")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	_, ok = m.Attr("Missing")
	assert.False(t, ok)
	assert.Equal(t, []string{"Answer"}, m.Names())
}

func TestRuntime_DecrefDeallocatesOnce(t *testing.T) {
	rt := newTestRuntime(t, CollectorRefcount)

	var deallocs int
	typ := countingType("test.Thing", &deallocs)
	require.NoError(t, rt.RegisterType(typ))

	obj := &testObject{name: "a"}
	require.NoError(t, rt.Track(obj, typ))
	assert.Equal(t, 1, obj.RefCount())
	assert.Equal(t, 1, rt.Live())
	assert.Same(t, rt, obj.Runtime())
	assert.Same(t, typ, obj.Type())

	rt.Incref(obj)
	require.NoError(t, rt.Decref(obj))
	assert.Zero(t, deallocs)

	require.NoError(t, rt.Decref(obj))
	assert.Equal(t, 1, deallocs)
	assert.True(t, obj.Dead())
	assert.Zero(t, rt.Live())

	assert.False(t, rt.TryIncref(obj))
	assert.Panics(t, func() { _ = rt.Decref(obj) })
}

func TestRuntime_TrackErrors(t *testing.T) {
	rt := newTestRuntime(t, CollectorRefcount)

	typ := &TypeObject{Name: "test.Thing"}
	assert.ErrorIs(t, rt.Track(&testObject{}, typ), ErrUnknownType)

	require.NoError(t, rt.RegisterType(typ))
	obj := &testObject{}
	require.NoError(t, rt.Track(obj, typ))
	assert.ErrorIs(t, rt.Track(obj, typ), ErrAlreadyTracked)
}

func TestRuntime_DeallocError(t *testing.T) {
	rt := newTestRuntime(t, CollectorRefcount)

	boom := errors.New("boom")
	typ := &TypeObject{
		Name:    "test.Failing",
		Dealloc: func(Object) error { return boom },
	}
	require.NoError(t, rt.RegisterType(typ))

	obj := &testObject{}
	require.NoError(t, rt.Track(obj, typ))
	assert.ErrorIs(t, rt.Decref(obj), boom)
}

func TestRuntime_RunPostInit(t *testing.T) {
	rt := newTestRuntime(t, CollectorRefcount)

	errA := errors.New("a")
	errB := errors.New("b")
	var ran int
	rt.AddPostInit(func() error { ran++; return errA })
	rt.AddPostInit(func() error { ran++; return nil })
	rt.AddPostInit(func() error { ran++; return errB })

	err := rt.RunPostInit()
	assert.Equal(t, 3, ran)
	assert.Len(t, multierr.Errors(err), 2)
	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)

	require.NoError(t, rt.RunPostInit())
	assert.Equal(t, 3, ran)
}

func TestRuntime_Close(t *testing.T) {
	rt, err := NewRuntime(DefaultConfig())
	require.NoError(t, err)

	var deallocs int
	typ := countingType("test.Thing", &deallocs)
	require.NoError(t, rt.RegisterType(typ))

	for i := 0; i < 3; i++ {
		require.NoError(t, rt.Track(&testObject{}, typ))
	}
	assert.Equal(t, 3, rt.Live())

	require.NoError(t, rt.Close())
	assert.Equal(t, 3, deallocs)
	assert.Zero(t, rt.Live())

	require.NoError(t, rt.Close())
	assert.ErrorIs(t, rt.RegisterType(&TypeObject{Name: "late"}), ErrClosed)
	assert.ErrorIs(t, rt.Track(&testObject{}, typ), ErrClosed)
	_, err = rt.NewModule("late")
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRuntime_GCCollector(t *testing.T) {
	rt := newTestRuntime(t, CollectorGC)

	deallocs := make(chan struct{}, 1)
	typ := &TypeObject{
		Name: "test.Collected",
		Dealloc: func(Object) error {
			deallocs <- struct{}{}
			return nil
		},
	}
	require.NoError(t, rt.RegisterType(typ))

	func() {
		obj := &testObject{name: "garbage"}
		require.NoError(t, rt.Track(obj, typ))
		require.NoError(t, rt.Decref(obj))
		assert.False(t, obj.Dead(), "gc collector must not dealloc on decref")
	}()

	assert.Eventually(t, func() bool {
		runtime.GC()
		select {
		case <-deallocs:
			return true
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
	assert.Zero(t, rt.Live())
}
