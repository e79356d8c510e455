package matching

import "sync"

// recordLocks serializes writes per record key so concurrent merges and
// decision updates against the same buyer, deal, or match never interleave.
// Writes to unrelated records proceed in parallel. Locks are kept for the
// process lifetime; the map is bounded by the number of distinct records
// touched.
type recordLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newRecordLocks() *recordLocks {
	return &recordLocks{locks: make(map[string]*sync.Mutex)}
}

// lock acquires the mutex for key and returns its unlock func.
func (r *recordLocks) lock(key string) func() {
	r.mu.Lock()
	m, ok := r.locks[key]
	if !ok {
		m = &sync.Mutex{}
		r.locks[key] = m
	}
	r.mu.Unlock()

	m.Lock()
	return m.Unlock
}
