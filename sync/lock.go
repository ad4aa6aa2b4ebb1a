package sync

import (
	stdsync "sync"
	"time"
)

// A SafeLock is a read/write lock that refuses to deadlock: any Lock or
// RLock call that cannot be satisfied within the configured timeout gives up
// waiting and returns anyway. It is intended for locks that guard a bounded
// window of exclusive access (e.g. "you may hold this for at most one
// second") rather than an unbounded critical section - a caller that never
// shows up to unlock cannot wedge every other caller forever. Whether the
// lock was actually acquired before returning can be read back with Held.
type SafeLock struct {
	timeout time.Duration

	idMu   stdsync.Mutex
	nextID uint64

	writer  chan struct{}
	readers chan struct{}
	rCount  int
	rMu     stdsync.Mutex

	heldMu stdsync.Mutex
	held   map[uint64]bool
}

// New creates a SafeLock that will wait at most 'timeout' for a contested
// lock before giving up. maxThreads is retained for interface compatibility
// with callers that size their waiter pools off of it; it does not bound the
// lock itself.
func New(timeout time.Duration, maxThreads int) *SafeLock {
	return &SafeLock{
		timeout: timeout,
		writer:  make(chan struct{}, 1),
		readers: make(chan struct{}, 1),
		held:    make(map[uint64]bool),
	}
}

func (sl *SafeLock) nextLockID() uint64 {
	sl.idMu.Lock()
	defer sl.idMu.Unlock()
	sl.nextID++
	return sl.nextID
}

func (sl *SafeLock) setHeld(id uint64, held bool) {
	sl.heldMu.Lock()
	sl.held[id] = held
	sl.heldMu.Unlock()
}

// Held reports whether the lock identified by id is actually held. A Lock or
// RLock call that timed out waiting for a deadlocked peer returns an id for
// which Held is false.
func (sl *SafeLock) Held(id uint64) bool {
	sl.heldMu.Lock()
	defer sl.heldMu.Unlock()
	return sl.held[id]
}

// Lock grabs a write lock, returning an opaque id that must be passed back
// to Unlock regardless of whether the lock was actually acquired.
func (sl *SafeLock) Lock() uint64 {
	id := sl.nextLockID()
	select {
	case sl.writer <- struct{}{}:
		sl.setHeld(id, true)
	case <-time.After(sl.timeout):
		sl.setHeld(id, false)
	}
	return id
}

// Unlock releases a write lock acquired through Lock. Unlocking an id that
// never actually acquired the lock (Held returned false) is a no-op.
func (sl *SafeLock) Unlock(id uint64) {
	if !sl.Held(id) {
		return
	}
	sl.setHeld(id, false)
	<-sl.writer
}

// RLock grabs a read lock, returning an opaque id that must be passed back
// to RUnlock.
func (sl *SafeLock) RLock() uint64 {
	id := sl.nextLockID()
	select {
	case sl.readers <- struct{}{}:
		sl.rMu.Lock()
		sl.rCount++
		sl.rMu.Unlock()
		<-sl.readers
		sl.setHeld(id, true)
	case <-time.After(sl.timeout):
		sl.setHeld(id, false)
	}
	return id
}

// RUnlock releases a read lock acquired through RLock.
func (sl *SafeLock) RUnlock(id uint64) {
	if !sl.Held(id) {
		return
	}
	sl.setHeld(id, false)
	sl.readers <- struct{}{}
	sl.rMu.Lock()
	sl.rCount--
	sl.rMu.Unlock()
	<-sl.readers
}
