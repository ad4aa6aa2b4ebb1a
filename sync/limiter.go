package sync

import (
	stdsync "sync"
)

// A Limiter enforces a ceiling on the sum of concurrently outstanding unit
// counts; callers above the ceiling block in Request until enough units are
// Released, or until the supplied cancel channel fires. It is used to bound
// how much a bursty producer - e.g. chunk uploads, or notification fan-out -
// may have in flight at once without bounding its concurrency to a single
// fixed number of goroutines.
type Limiter struct {
	mu      stdsync.Mutex
	cond    *stdsync.Cond
	limit   int
	current int
}

// NewLimiter returns a Limiter with the given starting limit.
func NewLimiter(limit int) *Limiter {
	l := &Limiter{limit: limit}
	l.cond = stdsync.NewCond(&l.mu)
	return l
}

// SetLimit changes the limiter's ceiling and wakes any blocked requesters so
// they can reevaluate against the new limit.
func (l *Limiter) SetLimit(limit int) {
	l.mu.Lock()
	l.limit = limit
	l.mu.Unlock()
	l.cond.Broadcast()
}

// Request blocks until 'n' units are available, or until cancel fires, in
// which case Request returns true. Request always succeeds (returns false)
// once current == 0, even if n exceeds the limit, so that a single
// oversized request is never starved forever.
func (l *Limiter) Request(n int, cancel <-chan struct{}) (cancelled bool) {
	woken := make(chan struct{})
	if cancel != nil {
		go func() {
			select {
			case <-cancel:
				l.cond.Broadcast()
			case <-woken:
			}
		}()
	}
	defer close(woken)

	l.mu.Lock()
	defer l.mu.Unlock()
	for l.current != 0 && l.current+n > l.limit {
		if cancelled = isClosed(cancel); cancelled {
			return true
		}
		l.cond.Wait()
		if isClosed(cancel) {
			return true
		}
	}
	l.current += n
	return false
}

// Release returns 'n' units to the limiter and wakes any blocked requesters.
func (l *Limiter) Release(n int) {
	l.mu.Lock()
	l.current -= n
	l.mu.Unlock()
	l.cond.Broadcast()
}

func isClosed(c <-chan struct{}) bool {
	if c == nil {
		return false
	}
	select {
	case <-c:
		return true
	default:
		return false
	}
}
