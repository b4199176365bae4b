package ownership

// ExclusivelyOwned stores at most one uniquely owned handle in place, without
// a separate allocation for the "optional" part.
type ExclusivelyOwned[H, R any, T ExclusiveTraits[H, R]] struct {
	repr R
}

// Empty returns an ExclusivelyOwned holding nothing.
func Empty[H, R any, T ExclusiveTraits[H, R]]() ExclusivelyOwned[H, R, T] {
	var tr T
	return ExclusivelyOwned[H, R, T]{repr: tr.NullRepr()}
}

// NewExclusivelyOwned moves h into a new ExclusivelyOwned.
func NewExclusivelyOwned[H, R any, T ExclusiveTraits[H, R]](h H) ExclusivelyOwned[H, R, T] {
	var tr T
	return ExclusivelyOwned[H, R, T]{repr: tr.MoveToRepr(h)}
}

// FromRepr adopts a representation built by the traits, typically through an
// in-place constructor.
func FromRepr[H, R any, T ExclusiveTraits[H, R]](r R) ExclusivelyOwned[H, R, T] {
	return ExclusivelyOwned[H, R, T]{repr: r}
}

// IsEmpty reports whether e holds nothing.
func (e *ExclusivelyOwned[H, R, T]) IsEmpty() bool {
	var tr T
	return tr.IsNull(&e.repr)
}

// Get returns a pointer to the held handle, or nil when e is empty.
// The pointer is valid until e is mutated.
func (e *ExclusivelyOwned[H, R, T]) Get() *H {
	var tr T
	if tr.IsNull(&e.repr) {
		return nil
	}
	return tr.GetImpl(&e.repr)
}

// Take moves the handle out, leaving e empty. Taking from an empty e returns
// the null handle.
func (e *ExclusivelyOwned[H, R, T]) Take() H {
	var tr T
	return tr.Take(&e.repr)
}

// Release destroys the held handle, if any.
func (e *ExclusivelyOwned[H, R, T]) Release() {
	var tr T
	h := tr.Take(&e.repr)
	tr.DestroyOwned(&h)
}
