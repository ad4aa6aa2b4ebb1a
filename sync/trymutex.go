// Package sync supplements the standard sync package with locks that support
// non-blocking and timed acquisition, plus a deadlock-tolerant read/write
// lock used to bound how long a single caller may hold exclusive access to
// shared state.
package sync

import (
	stdsync "sync"
	"time"
)

// A TryMutex is a mutual exclusion lock that supports all of the
// functionality of a sync.Mutex, plus a TryLock and TryLockTimed method that
// allow a caller to attempt a lock acquisition without blocking forever.
type TryMutex struct {
	once stdsync.Once
	lock chan struct{}
}

func (tm *TryMutex) init() {
	tm.once.Do(func() {
		tm.lock = make(chan struct{}, 1)
	})
}

// Lock grabs a lock, blocking until the lock is available.
func (tm *TryMutex) Lock() {
	tm.init()
	tm.lock <- struct{}{}
}

// Unlock releases a lock that has been acquired through Lock, TryLock, or
// TryLockTimed.
func (tm *TryMutex) Unlock() {
	tm.init()
	<-tm.lock
}

// TryLock grabs a lock and returns true, or returns false if the lock is
// already held by someone else.
func (tm *TryMutex) TryLock() bool {
	tm.init()
	select {
	case tm.lock <- struct{}{}:
		return true
	default:
		return false
	}
}

// TryLockTimed grabs a lock and returns true, blocking up to 'timeout' for
// the lock to become available. If the lock cannot be acquired within the
// timeout, false is returned.
func (tm *TryMutex) TryLockTimed(timeout time.Duration) bool {
	tm.init()
	select {
	case tm.lock <- struct{}{}:
		return true
	case <-time.After(timeout):
		return false
	}
}
