package engine

import "sync"

// accountLocks serializes settlement per challenge account. Two concurrent
// trade submissions against the same account must not interleave their equity
// read-modify-write; different accounts never contend.
type accountLocks struct {
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

// acquire blocks until the account's lock is held and returns the release func.
// Locks are kept for the process lifetime; the set is bounded by the number of
// distinct accounts traded on this instance.
func (l *accountLocks) acquire(accountID uint) func() {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[uint]*sync.Mutex)
	}
	lock, ok := l.locks[accountID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[accountID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}
