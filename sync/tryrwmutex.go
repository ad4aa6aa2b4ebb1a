package sync

import (
	stdsync "sync"
)

// A TryRWMutex is a read/write mutual exclusion lock that additionally
// supports non-blocking acquisition via TryLock and TryRLock. Writers are
// exclusive; any number of readers may hold the lock concurrently provided
// no writer holds it.
type TryRWMutex struct {
	once     stdsync.Once
	writer   chan struct{}
	readers  chan struct{} // 1-buffered guard protecting readerCt
	readerCt int
}

func (tm *TryRWMutex) init() {
	tm.once.Do(func() {
		tm.writer = make(chan struct{}, 1)
		tm.readers = make(chan struct{}, 1)
		tm.readers <- struct{}{}
	})
}

// Lock grabs a write lock, blocking until no readers or writers hold the
// lock.
func (tm *TryRWMutex) Lock() {
	tm.init()
	tm.writer <- struct{}{}
}

// Unlock releases a write lock.
func (tm *TryRWMutex) Unlock() {
	tm.init()
	<-tm.writer
}

// TryLock attempts to grab a write lock without blocking, returning whether
// it succeeded.
func (tm *TryRWMutex) TryLock() bool {
	tm.init()
	select {
	case tm.writer <- struct{}{}:
		return true
	default:
		return false
	}
}

// RLock grabs a read lock. Multiple readers may hold the lock concurrently;
// a writer is blocked out until every reader has released.
func (tm *TryRWMutex) RLock() {
	tm.init()
	tm.writer <- struct{}{}
	<-tm.readers
	tm.readerCt++
	tm.readers <- struct{}{}
	<-tm.writer
}

// RUnlock releases a read lock.
func (tm *TryRWMutex) RUnlock() {
	tm.init()
	<-tm.readers
	tm.readerCt--
	tm.readers <- struct{}{}
}

// TryRLock attempts to grab a read lock without blocking, returning whether
// it succeeded.
func (tm *TryRWMutex) TryRLock() bool {
	tm.init()
	select {
	case tm.writer <- struct{}{}:
		<-tm.readers
		tm.readerCt++
		tm.readers <- struct{}{}
		<-tm.writer
		return true
	default:
		return false
	}
}
