package sync

import (
	"sync"

	"github.com/NebulousLabs/errors"
)

// ErrStopped is returned by Add and Stop when the ThreadGroup has
// already been stopped.
var ErrStopped = errors.New("thread group already stopped")

// ThreadGroup is used to manage the lifecycle of a set of goroutines. A
// caller calls Add before spawning a goroutine, and Done when that
// goroutine exits. Stop signals all functions registered with OnStop,
// waits for every outstanding Add to call Done, and then calls every
// function registered with AfterStop. Stop may only be called once; a
// zero-value ThreadGroup is ready to use.
type ThreadGroup struct {
	onStop    []func()
	afterStop []func()

	stopChan chan struct{}
	bmu      sync.Mutex // protects 'stopChan' initialization

	wg sync.WaitGroup
	mu sync.Mutex
}

// init lazily initializes the stopChan, allowing a zero-value
// ThreadGroup to be used without an explicit constructor.
func (tg *ThreadGroup) init() {
	tg.bmu.Lock()
	if tg.stopChan == nil {
		tg.stopChan = make(chan struct{})
	}
	tg.bmu.Unlock()
}

// StopChan returns a channel that is closed when Stop is called.
func (tg *ThreadGroup) StopChan() <-chan struct{} {
	tg.init()
	return tg.stopChan
}

// isStoppedLocked reports whether the stop channel has been closed.
// It does not lazily initialize the channel, so it must only be
// called after init.
func (tg *ThreadGroup) isStoppedLocked() bool {
	select {
	case <-tg.stopChan:
		return true
	default:
		return false
	}
}

// isStopped reports whether Stop has been called.
func (tg *ThreadGroup) isStopped() bool {
	tg.init()
	tg.mu.Lock()
	defer tg.mu.Unlock()
	return tg.isStoppedLocked()
}

// Add increments the ThreadGroup counter, indicating that a new thread
// has started. It returns ErrStopped if the ThreadGroup has already
// been stopped, in which case the caller should not start the thread.
func (tg *ThreadGroup) Add() error {
	tg.init()
	tg.mu.Lock()
	defer tg.mu.Unlock()
	if tg.isStoppedLocked() {
		return ErrStopped
	}
	tg.wg.Add(1)
	return nil
}

// Done decrements the ThreadGroup counter, indicating that a thread
// launched by Add has exited.
func (tg *ThreadGroup) Done() {
	tg.wg.Done()
}

// OnStop registers a function to be called when Stop is called. Stop
// calls every OnStop function in reverse order of registration, and
// blocks until each one returns before waiting for outstanding Add
// calls to finish. If Stop has already been called, fn is invoked
// immediately.
func (tg *ThreadGroup) OnStop(fn func()) {
	tg.init()
	tg.mu.Lock()
	if tg.isStoppedLocked() {
		tg.mu.Unlock()
		fn()
		return
	}
	tg.onStop = append(tg.onStop, fn)
	tg.mu.Unlock()
}

// AfterStop registers a function to be called after Stop has closed
// the stop channel, run every OnStop function, and waited for every
// outstanding Add to call Done. AfterStop functions run in reverse
// order of registration. If Stop has already been called, fn is
// invoked immediately.
func (tg *ThreadGroup) AfterStop(fn func()) {
	tg.init()
	tg.mu.Lock()
	if tg.isStoppedLocked() {
		tg.mu.Unlock()
		fn()
		return
	}
	tg.afterStop = append(tg.afterStop, fn)
	tg.mu.Unlock()
}

// Flush waits for every outstanding Add to call Done, without closing
// the stop channel or running the OnStop or AfterStop functions. It
// allows a caller to wait for in-flight work to settle without tearing
// down permanent resources. Flush does not prevent later calls to Add.
func (tg *ThreadGroup) Flush() error {
	tg.wg.Wait()
	return nil
}

// Stop closes the ThreadGroup's stop channel, calls every function
// registered with OnStop (in reverse order of registration), waits for
// every outstanding Add to call Done, and then calls every function
// registered with AfterStop (also in reverse order). Stop returns
// ErrStopped if it has already been called.
func (tg *ThreadGroup) Stop() error {
	tg.init()

	tg.mu.Lock()
	if tg.isStoppedLocked() {
		tg.mu.Unlock()
		return ErrStopped
	}
	close(tg.stopChan)
	onStop := tg.onStop
	tg.mu.Unlock()

	for i := len(onStop) - 1; i >= 0; i-- {
		onStop[i]()
	}

	tg.wg.Wait()

	tg.mu.Lock()
	afterStop := tg.afterStop
	tg.mu.Unlock()

	for i := len(afterStop) - 1; i >= 0; i-- {
		afterStop[i]()
	}

	return nil
}
