package storage

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/storagebridge/internal/parallel"
)

func TestStorage_NullHandle(t *testing.T) {
	var s Storage
	assert.False(t, s.Defined())
	assert.Zero(t, s.UseCount())
	assert.Zero(t, s.Nbytes())
	assert.Nil(t, s.Data())
	assert.False(t, s.Clone().Defined())

	s.Release() // no-op
	assert.ErrorIs(t, s.Fill(1), ErrNullStorage)
	assert.ErrorIs(t, s.Resize(4), ErrNullStorage)
}

func TestStorage_CloneAndRelease(t *testing.T) {
	s, err := New(16)
	require.NoError(t, err)
	assert.Equal(t, 1, s.UseCount())
	assert.True(t, s.IsUnique())

	var released int
	s.OnRelease(func() { released++ })

	c := s.Clone()
	assert.True(t, c.Is(s))
	assert.Equal(t, 2, s.UseCount())
	assert.False(t, s.IsUnique())

	c.Release()
	assert.False(t, c.Defined())
	assert.Equal(t, 1, s.UseCount())
	assert.Zero(t, released)

	w := s.Weak()
	s.Release()
	assert.Equal(t, 1, released)
	assert.True(t, w.Expired())
}

func TestStorage_MoveKeepsRefcount(t *testing.T) {
	s, err := New(8)
	require.NoError(t, err)

	m := s.Move()
	assert.False(t, s.Defined())
	assert.Equal(t, 1, m.UseCount())
	m.Release()
}

func TestStorage_UnsafeReleaseImplDoesNotDecrement(t *testing.T) {
	s, err := New(8)
	require.NoError(t, err)
	defer s.Release()

	alias := Storage{impl: s.impl}
	alias.UnsafeReleaseImpl()
	assert.False(t, alias.Defined())
	assert.Equal(t, 1, s.UseCount())
}

func TestStorage_OverReleasePanics(t *testing.T) {
	s, err := New(8)
	require.NoError(t, err)

	alias := Storage{impl: s.impl}
	s.Release()
	assert.Panics(t, func() { alias.Release() })
}

func TestStorage_FromBytes(t *testing.T) {
	src := []byte{1, 2, 3, 4}
	s, err := FromBytes(src)
	require.NoError(t, err)
	defer s.Release()

	src[0] = 9
	assert.Equal(t, []byte{1, 2, 3, 4}, s.Data())
	assert.Equal(t, CPU, s.Device())
}

func TestStorage_NegativeSize(t *testing.T) {
	_, err := New(-1)
	assert.ErrorIs(t, err, ErrNegativeSize)
}

func TestCPUAllocator_TooLarge(t *testing.T) {
	a := NewCPUAllocator(DefaultAlignment)
	for _, n := range []int{math.MaxInt, math.MaxInt - 1, MaxCPUAllocSize} {
		_, err := a.Allocate(n)
		assert.ErrorIs(t, err, ErrTooLarge, "nbytes=%d", n)
	}

	_, err := New(math.MaxInt)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestStorage_Resize(t *testing.T) {
	s, err := FromBytes([]byte{1, 2, 3})
	require.NoError(t, err)
	defer s.Release()

	alias := s.Clone()
	defer alias.Release()

	require.NoError(t, s.Resize(5))
	assert.Equal(t, []byte{1, 2, 3, 0, 0}, alias.Data())

	require.NoError(t, s.Resize(2))
	assert.Equal(t, []byte{1, 2}, s.Data())

	require.NoError(t, s.Resize(200))
	assert.Equal(t, 200, s.Nbytes())
	assert.Equal(t, []byte{1, 2}, s.Data()[:2])
	assert.Equal(t, make([]byte, 198), s.Data()[2:])
}

func TestStorage_ResizeNotResizable(t *testing.T) {
	s, err := New(4, WithResizable(false))
	require.NoError(t, err)
	defer s.Release()

	assert.False(t, s.Resizable())
	assert.ErrorIs(t, s.Resize(8), ErrNotResizable)
}

func TestStorage_FillAndCopy(t *testing.T) {
	cfg := parallel.Config{Enabled: true, NumWorkers: 4, MinChunkSize: 8}

	a, err := New(1000, WithParallel(cfg))
	require.NoError(t, err)
	defer a.Release()
	require.NoError(t, a.Fill(7))
	for i, v := range a.Data() {
		require.Equal(t, byte(7), v, "byte %d", i)
	}

	b, err := New(1000, WithParallel(cfg))
	require.NoError(t, err)
	defer b.Release()
	require.NoError(t, b.CopyFrom(a))
	assert.Equal(t, a.Data(), b.Data())

	c, err := New(10)
	require.NoError(t, err)
	defer c.Release()
	assert.ErrorIs(t, c.CopyFrom(a), ErrSizeMismatch)
}

func TestStorage_CopyData(t *testing.T) {
	s, err := FromBytes([]byte("hello"))
	require.NoError(t, err)
	defer s.Release()

	dup, err := s.CopyData()
	require.NoError(t, err)
	defer dup.Release()

	assert.False(t, dup.Is(s))
	assert.Equal(t, 1, dup.UseCount())
	assert.Equal(t, 1, s.UseCount())

	dup.Data()[0] = 'j'
	assert.Equal(t, "hello", string(s.Data()))
}

func TestStorage_DeleterRunsOnce(t *testing.T) {
	alloc := &countingAllocator{}
	s, err := New(32, WithAllocator(alloc))
	require.NoError(t, err)

	c := s.Clone()
	s.Release()
	assert.Zero(t, alloc.freed)
	c.Release()
	assert.Equal(t, 1, alloc.freed)
}

func TestStorage_HostObjectSlot(t *testing.T) {
	s, err := New(1)
	require.NoError(t, err)

	obj := &struct{ name string }{"wrapper"}
	s.SetHostObject(obj)
	assert.Same(t, obj, s.HostObject())

	s.ClearHostObject(&struct{ name string }{"other"})
	assert.Same(t, obj, s.HostObject())

	s.ClearHostObject(obj)
	assert.Nil(t, s.HostObject())

	s.SetHostObject(obj)
	w := s.Weak()
	s.Release()
	assert.True(t, w.Expired())
}

func TestWeakStorage_Lock(t *testing.T) {
	s, err := New(4)
	require.NoError(t, err)

	w := s.Weak()
	assert.Equal(t, 1, w.WeakCount())

	locked, ok := w.Lock()
	require.True(t, ok)
	assert.True(t, locked.Is(s))
	assert.Equal(t, 2, w.UseCount())
	locked.Release()

	s.Release()
	_, ok = w.Lock()
	assert.False(t, ok)

	w.Release()
	assert.Zero(t, w.WeakCount())
}

// countingAllocator counts deleter invocations.
type countingAllocator struct {
	allocated int
	freed     int
}

func (a *countingAllocator) Allocate(nbytes int) (DataPtr, error) {
	a.allocated++
	return DataPtr{
		Data:   make([]byte, nbytes),
		Device: CPU,
		Deleter: func(DataPtr) error {
			a.freed++
			return nil
		},
	}, nil
}

func (a *countingAllocator) Device() Device { return CPU }
