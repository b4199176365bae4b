package ownership

// MaybeOwned holds a handle that is either owned (it carries one refcount
// share) or borrowed (it aliases a handle owned elsewhere).
//
// The owns-a-share bit is checked at teardown time, so a single Release call
// always picks the right path:
//
//	m := ownership.Borrowed[storage.Storage, storage.BorrowTraits](&s)
//	defer m.Release() // never decrements s
//
// The zero value is an owned null handle. A MaybeOwned must not be used from
// several goroutines at once.
type MaybeOwned[H any, T BorrowTraits[H]] struct {
	h        H
	isBorrow bool
}

// Owned wraps h, taking over its refcount share.
func Owned[H any, T BorrowTraits[H]](h H) MaybeOwned[H, T] {
	return MaybeOwned[H, T]{h: h}
}

// Borrowed aliases *from without touching its refcount.
// from must stay valid for as long as the result is in use.
func Borrowed[H any, T BorrowTraits[H]](from *H) MaybeOwned[H, T] {
	var tr T
	return MaybeOwned[H, T]{h: tr.CreateBorrow(from), isBorrow: true}
}

// IsBorrowed reports whether m holds a borrow.
func (m *MaybeOwned[H, T]) IsBorrowed() bool {
	return m.isBorrow
}

// Get returns a pointer to the held handle.
func (m *MaybeOwned[H, T]) Get() *H {
	if !m.isBorrow {
		return &m.h
	}
	var tr T
	checkBorrow(tr, &m.h)
	return tr.PointerFromBorrow(&m.h)
}

// Ref returns the held handle as an owned-handle reference.
// It is the reference projection of Get and points at the same value.
func (m *MaybeOwned[H, T]) Ref() *H {
	if !m.isBorrow {
		return &m.h
	}
	var tr T
	checkBorrow(tr, &m.h)
	return tr.ReferenceFromBorrow(&m.h)
}

// AssignBorrow makes m a borrow of *from, tearing down whatever it held.
func (m *MaybeOwned[H, T]) AssignBorrow(from *H) {
	var tr T
	if m.isBorrow {
		tr.AssignBorrow(&m.h, from)
		return
	}
	tr.DestroyOwned(&m.h)
	m.h = tr.CreateBorrow(from)
	m.isBorrow = true
}

// AssignOwned makes m the owner of h, tearing down whatever it held.
func (m *MaybeOwned[H, T]) AssignOwned(h H) {
	m.Release()
	m.h = h
}

// Release tears m down through the path matching what it holds and leaves it
// an owned null handle. Releasing twice is harmless only because the second
// call destroys a null handle.
func (m *MaybeOwned[H, T]) Release() {
	var tr T
	if m.isBorrow {
		tr.DestroyBorrow(&m.h)
	} else {
		tr.DestroyOwned(&m.h)
	}
	var zero H
	m.h = zero
	m.isBorrow = false
}

func checkBorrow[H any, T BorrowTraits[H]](tr T, b *H) {
	if debugBorrows && !tr.DebugBorrowIsValid(b) {
		panic("ownership: borrow used after its owner was released")
	}
}
