//go:build storagedebug

package storage

const debugBorrows = true

// borrowAlive reports whether a borrowed handle still points at a storage
// with at least one owner.
func borrowAlive(b *Storage) bool {
	if b.impl == nil {
		return true
	}
	if b.impl.refCount.Load() <= 0 {
		return false
	}
	b.impl.mu.Lock()
	defer b.impl.mu.Unlock()
	return !b.impl.released
}
