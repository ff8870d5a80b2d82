package service

import "sync"

// slotLocks hands out one mutex per slot ID so allocation passes for
// the same slot serialize in-process while different slots proceed
// concurrently.  Entries are reference counted and dropped on release,
// keeping the map bounded by the number of in-flight allocations.
type slotLocks struct {
	mu    sync.Mutex
	locks map[uint64]*slotLockEntry
}

type slotLockEntry struct {
	mu   sync.Mutex
	refs int
}

func newSlotLocks() *slotLocks {
	return &slotLocks{locks: make(map[uint64]*slotLockEntry)}
}

// acquire blocks until the caller holds the slot's mutex.
func (l *slotLocks) acquire(slotID uint64) {
	l.mu.Lock()
	e, ok := l.locks[slotID]
	if !ok {
		e = &slotLockEntry{}
		l.locks[slotID] = e
	}
	e.refs++
	l.mu.Unlock()
	e.mu.Lock()
}

// release unlocks the slot's mutex and frees the entry when no other
// caller is waiting on it.
func (l *slotLocks) release(slotID uint64) {
	l.mu.Lock()
	e := l.locks[slotID]
	e.refs--
	if e.refs == 0 {
		delete(l.locks, slotID)
	}
	l.mu.Unlock()
	e.mu.Unlock()
}
