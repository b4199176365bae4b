package storage

import (
	"github.com/born-ml/storagebridge/internal/ownership"
)

// BorrowTraits borrows Storage handles without refcount traffic.
//
// A borrow is an ordinary Storage value that holds no share; it is torn down
// with UnsafeReleaseImpl, which is correct because the borrow never added a
// reference in the first place.
type BorrowTraits struct{}

// CreateBorrow aliases *from. No atomic operation is performed.
func (BorrowTraits) CreateBorrow(from *Storage) Storage {
	return Storage{impl: from.impl}
}

// AssignBorrow drops lhs (which may itself be a borrow) without
// decrementing, then aliases rhs.
func (BorrowTraits) AssignBorrow(lhs, rhs *Storage) {
	lhs.UnsafeReleaseImpl()
	*lhs = Storage{impl: rhs.impl}
}

// DestroyBorrow "leaks" the local handle; it was already +0.
func (BorrowTraits) DestroyBorrow(b *Storage) {
	b.UnsafeReleaseImpl()
}

// ReferenceFromBorrow returns the borrow as a plain storage reference.
func (BorrowTraits) ReferenceFromBorrow(b *Storage) *Storage {
	return b
}

// PointerFromBorrow returns the borrow as a plain storage pointer.
func (BorrowTraits) PointerFromBorrow(b *Storage) *Storage {
	return b
}

// DebugBorrowIsValid always reports true unless built with the storagedebug
// tag, in which case it checks that the borrowed storage is still alive.
func (BorrowTraits) DebugBorrowIsValid(b *Storage) bool {
	if !debugBorrows {
		return true
	}
	return borrowAlive(b)
}

// DestroyOwned releases an owning handle.
func (BorrowTraits) DestroyOwned(o *Storage) {
	o.Release()
}

// ExclusiveTraits stores a uniquely owned Storage directly in its slot. The
// representation is the handle itself and the null handle is the empty state.
type ExclusiveTraits struct{}

// NullRepr returns the null handle.
func (ExclusiveTraits) NullRepr() Storage {
	return Storage{}
}

// CreateInPlace allocates a new storage straight into the representation.
func (ExclusiveTraits) CreateInPlace(nbytes int, opts ...Option) (Storage, error) {
	return New(nbytes, opts...)
}

// MoveToRepr adopts x as the representation.
func (ExclusiveTraits) MoveToRepr(x Storage) Storage {
	return x
}

// Take moves the handle out of x, leaving x null.
func (ExclusiveTraits) Take(x *Storage) Storage {
	return x.Move()
}

// GetImpl returns a pointer to the embedded handle. For an empty
// representation it points at the null handle.
func (ExclusiveTraits) GetImpl(x *Storage) *Storage {
	return x
}

// IsNull reports whether x is empty.
func (ExclusiveTraits) IsNull(x *Storage) bool {
	return x.impl == nil
}

// DestroyOwned releases the handle.
func (ExclusiveTraits) DestroyOwned(x *Storage) {
	x.Release()
}

var (
	_ ownership.BorrowTraits[Storage]             = BorrowTraits{}
	_ ownership.ExclusiveTraits[Storage, Storage] = ExclusiveTraits{}
)

// MaybeOwned is a Storage that is either owned or borrowed.
type MaybeOwned = ownership.MaybeOwned[Storage, BorrowTraits]

// Exclusive is a slot holding at most one uniquely owned Storage.
type Exclusive = ownership.ExclusivelyOwned[Storage, Storage, ExclusiveTraits]

// Owned wraps s, taking over its share.
func Owned(s Storage) MaybeOwned {
	return ownership.Owned[Storage, BorrowTraits](s)
}

// Borrowed aliases *s without touching its refcount. *s must outlive the
// result.
func Borrowed(s *Storage) MaybeOwned {
	return ownership.Borrowed[Storage, BorrowTraits](s)
}

// NewExclusive allocates a storage directly into an Exclusive slot.
func NewExclusive(nbytes int, opts ...Option) (Exclusive, error) {
	repr, err := ExclusiveTraits{}.CreateInPlace(nbytes, opts...)
	if err != nil {
		return Exclusive{}, err
	}
	return ownership.FromRepr[Storage, Storage, ExclusiveTraits](repr), nil
}

// EmptyExclusive returns an empty Exclusive slot.
func EmptyExclusive() Exclusive {
	return ownership.Empty[Storage, Storage, ExclusiveTraits]()
}

// ToExclusive moves s into an Exclusive slot.
func ToExclusive(s Storage) Exclusive {
	return ownership.NewExclusivelyOwned[Storage, Storage, ExclusiveTraits](s)
}
