package session

import "sync"

// Locks serializes command processing per war. Two commands for the same
// war must never run their resolve sequence concurrently: each reads the
// prior snapshot and authority and writes new ones.
type Locks struct {
	mu sync.Mutex
	m  map[string]*sync.Mutex
}

// NewLocks creates an empty lock table.
func NewLocks() *Locks {
	return &Locks{m: make(map[string]*sync.Mutex)}
}

// Acquire takes the lock for the given war without blocking. It returns a
// release func on success, or ErrSessionBusy when another command holds
// it — the caller should retry, never silently drop a command.
func (l *Locks) Acquire(warID string) (func(), error) {
	l.mu.Lock()
	lk, ok := l.m[warID]
	if !ok {
		lk = &sync.Mutex{}
		l.m[warID] = lk
	}
	l.mu.Unlock()

	if !lk.TryLock() {
		return nil, ErrSessionBusy
	}
	return lk.Unlock, nil
}
