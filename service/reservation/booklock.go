package reservation

import "sync"

// bookLocks serializes approvals per book. The catalog store only
// guarantees single-row atomicity, so allocation re-checks availability
// after taking the book's lock; two approvals for the same title can never
// interleave between that check and the loan insert.
type bookLocks struct {
	mu    sync.Mutex
	locks map[int64]*sync.Mutex
}

func newBookLocks() *bookLocks {
	return &bookLocks{locks: make(map[int64]*sync.Mutex)}
}

// acquire locks the mutex for bookID and returns its release func. Lock
// entries are kept for the process lifetime; the catalog is small and
// bounded, so no eviction.
func (b *bookLocks) acquire(bookID int64) func() {
	b.mu.Lock()
	l, ok := b.locks[bookID]
	if !ok {
		l = &sync.Mutex{}
		b.locks[bookID] = l
	}
	b.mu.Unlock()

	l.Lock()
	return l.Unlock
}
