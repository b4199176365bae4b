package storage

// WeakStorage is a non-owning handle that can be upgraded to a Storage while
// at least one owning handle is alive.
type WeakStorage struct {
	impl *storageImpl
}

// Weak returns a weak handle to s.
func (s Storage) Weak() WeakStorage {
	if s.impl == nil {
		return WeakStorage{}
	}
	s.impl.weakCount.Add(1)
	return WeakStorage{impl: s.impl}
}

// Lock returns a new owning handle if the storage is still alive.
func (w WeakStorage) Lock() (Storage, bool) {
	if w.impl == nil {
		return Storage{}, false
	}
	for {
		n := w.impl.refCount.Load()
		if n <= 0 {
			return Storage{}, false
		}
		if w.impl.refCount.CompareAndSwap(n, n+1) {
			return Storage{impl: w.impl}, true
		}
	}
}

// Expired reports whether every owning handle has been released.
func (w WeakStorage) Expired() bool {
	return w.UseCount() == 0
}

// UseCount returns the number of owning handles of the storage.
func (w WeakStorage) UseCount() int {
	if w.impl == nil {
		return 0
	}
	return int(w.impl.refCount.Load())
}

// WeakCount returns the number of live weak handles.
func (w WeakStorage) WeakCount() int {
	if w.impl == nil {
		return 0
	}
	return int(w.impl.weakCount.Load())
}

// Release drops the weak handle and leaves w null.
func (w *WeakStorage) Release() {
	if w.impl == nil {
		return
	}
	if w.impl.weakCount.Add(-1) < 0 {
		panic("storage: weak handle released too many times")
	}
	w.impl = nil
}
