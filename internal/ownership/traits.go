// Package ownership provides the borrow-or-own and exclusive-ownership wrappers
// used to pass refcounted handles around without redundant refcount traffic.
//
// The strategies are supplied as type parameters (zero-size traits types), so
// every call is bound at compile time and costs nothing beyond what the traits
// implementation itself does.
package ownership

// BorrowTraits describes how a handle type H is borrowed.
//
// A borrow is an H that aliases the same resource as an owned H but holds no
// refcount share. It must be torn down with DestroyBorrow, never DestroyOwned,
// and must not outlive the owned handle it was created from.
type BorrowTraits[H any] interface {
	// CreateBorrow returns an alias of from without incrementing its refcount.
	CreateBorrow(from *H) H

	// AssignBorrow discards lhs through the borrow-teardown path and stores an
	// alias of rhs in it.
	AssignBorrow(lhs, rhs *H)

	// DestroyBorrow drops b's local representation without decrementing.
	DestroyBorrow(b *H)

	// ReferenceFromBorrow exposes b as an ordinary owned handle reference.
	ReferenceFromBorrow(b *H) *H

	// PointerFromBorrow exposes b as an ordinary owned handle pointer.
	PointerFromBorrow(b *H) *H

	// DebugBorrowIsValid reports whether b's source is still alive.
	DebugBorrowIsValid(b *H) bool

	// DestroyOwned runs the owning destroy path on o (decrements).
	DestroyOwned(o *H)
}

// ExclusiveTraits describes how a uniquely owned H is stored in place inside
// a representation R.
type ExclusiveTraits[H, R any] interface {
	// NullRepr returns the empty representation. It must be equivalent to the
	// zero value of R.
	NullRepr() R

	// MoveToRepr wraps an owned handle without copying it.
	MoveToRepr(h H) R

	// Take moves the handle out of r, leaving r empty.
	Take(r *R) H

	// GetImpl returns a pointer into the handle embedded in r.
	GetImpl(r *R) *H

	// IsNull reports whether r is empty.
	IsNull(r *R) bool

	// DestroyOwned runs the owning destroy path on h.
	DestroyOwned(h *H)
}
