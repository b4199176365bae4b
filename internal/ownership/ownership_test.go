package ownership

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// resource is a test double with an observable refcount.
type resource struct {
	name  string
	refs  int
	freed int
}

// handle is a refcounted handle to a resource. The zero value is null.
type handle struct {
	r *resource
}

func newHandle(name string) handle {
	return handle{r: &resource{name: name, refs: 1}}
}

func (h handle) clone() handle {
	if h.r != nil {
		h.r.refs++
	}
	return h
}

func (h *handle) destroy() {
	if h.r == nil {
		return
	}
	h.r.refs--
	if h.r.refs == 0 {
		h.r.freed++
	}
	h.r = nil
}

type handleTraits struct{}

func (handleTraits) CreateBorrow(from *handle) handle { return handle{r: from.r} }
func (handleTraits) AssignBorrow(lhs, rhs *handle) {
	lhs.r = nil
	*lhs = handle{r: rhs.r}
}
func (handleTraits) DestroyBorrow(b *handle) { b.r = nil }
func (handleTraits) ReferenceFromBorrow(b *handle) *handle { return b }
func (handleTraits) PointerFromBorrow(b *handle) *handle { return b }
func (handleTraits) DebugBorrowIsValid(b *handle) bool { return b.r == nil || b.r.refs > 0 }
func (handleTraits) DestroyOwned(o *handle) { o.destroy() }
func (handleTraits) NullRepr() handle { return handle{} }
func (handleTraits) MoveToRepr(h handle) handle { return h }
func (handleTraits) GetImpl(r *handle) *handle { return r }
func (handleTraits) IsNull(r *handle) bool { return r.r == nil }
func (handleTraits) Take(r *handle) handle {
	h := *r
	r.r = nil
	return h
}

var (
	_ BorrowTraits[handle]            = handleTraits{}
	_ ExclusiveTraits[handle, handle] = handleTraits{}
)

type (
	maybe     = MaybeOwned[handle, handleTraits]
	exclusive = ExclusivelyOwned[handle, handle, handleTraits]
)

func TestMaybeOwned_BorrowDoesNotTouchRefcount(t *testing.T) {
	owner := newHandle("a")
	defer owner.destroy()

	m := Borrowed[handle, handleTraits](&owner)
	assert.True(t, m.IsBorrowed())
	assert.Equal(t, 1, owner.r.refs)
	assert.Same(t, owner.r, m.Get().r)
	assert.Same(t, owner.r, m.Ref().r)

	m.Release()
	assert.Equal(t, 1, owner.r.refs)
	assert.Zero(t, owner.r.freed)
	assert.False(t, m.IsBorrowed())
}

func TestMaybeOwned_OwnedReleaseDecrements(t *testing.T) {
	h := newHandle("a")
	r := h.r

	m := Owned[handle, handleTraits](h)
	assert.False(t, m.IsBorrowed())
	assert.Equal(t, 1, r.refs)

	m.Release()
	assert.Equal(t, 0, r.refs)
	assert.Equal(t, 1, r.freed)

	// A second release destroys a null handle.
	m.Release()
	assert.Equal(t, 1, r.freed)
}

func TestMaybeOwned_AssignBorrow(t *testing.T) {
	tests := []struct {
		name  string
		start func(prev *handle) maybe
	}{
		{"from borrow", func(prev *handle) maybe { return Borrowed[handle, handleTraits](prev) }},
		{"from owned", func(prev *handle) maybe { return Owned[handle, handleTraits](prev.clone()) }},
		{"from null", func(*handle) maybe { return maybe{} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prev := newHandle("prev")
			rhs := newHandle("rhs")
			defer prev.destroy()
			defer rhs.destroy()

			m := tt.start(&prev)
			m.AssignBorrow(&rhs)

			require.True(t, m.IsBorrowed())
			assert.Same(t, rhs.r, m.Ref().r)
			assert.Equal(t, 1, rhs.r.refs)
			assert.Equal(t, 1, prev.r.refs)

			m.Release()
			assert.Equal(t, 1, rhs.r.refs)
		})
	}
}

func TestMaybeOwned_AssignOwned(t *testing.T) {
	owner := newHandle("a")
	defer owner.destroy()

	m := Borrowed[handle, handleTraits](&owner)
	next := newHandle("b")
	r := next.r
	m.AssignOwned(next)

	assert.False(t, m.IsBorrowed())
	assert.Equal(t, 1, owner.r.refs)
	assert.Same(t, r, m.Get().r)

	m.Release()
	assert.Equal(t, 1, r.freed)
}

func TestExclusivelyOwned_Empty(t *testing.T) {
	e := Empty[handle, handle, handleTraits]()
	assert.True(t, e.IsEmpty())
	assert.Nil(t, e.Get())

	var zero exclusive
	assert.True(t, zero.IsEmpty())
}

func TestExclusivelyOwned_TakeLeavesEmpty(t *testing.T) {
	h := newHandle("a")
	r := h.r

	e := NewExclusivelyOwned[handle, handle, handleTraits](h)
	require.False(t, e.IsEmpty())
	assert.Same(t, r, e.Get().r)
	assert.Equal(t, 1, r.refs)

	got := e.Take()
	assert.Same(t, r, got.r)
	assert.True(t, e.IsEmpty())
	assert.Equal(t, 1, r.refs)

	// Taking again yields the null handle, not a second share.
	again := e.Take()
	assert.Nil(t, again.r)
	assert.Equal(t, 1, r.refs)

	got.destroy()
	assert.Equal(t, 1, r.freed)
}

func TestExclusivelyOwned_Release(t *testing.T) {
	h := newHandle("a")
	r := h.r

	e := FromRepr[handle, handle, handleTraits](h)
	e.Release()
	assert.True(t, e.IsEmpty())
	assert.Equal(t, 1, r.freed)

	e.Release()
	assert.Equal(t, 1, r.freed)
}
