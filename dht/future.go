package dht

import (
	"context"
	"sync"
)

// syncFuture is the Future implementation backing InMemoryOverlay's and
// BoltOverlay's PutUnblocked.
type syncFuture struct {
	done     chan struct{}
	once     sync.Once
	mu       sync.Mutex
	err      error
	settled  bool
	watchers []func(error)
	cancelCh chan struct{}
}

func newSyncFuture() *syncFuture {
	return &syncFuture{
		done:     make(chan struct{}),
		cancelCh: make(chan struct{}),
	}
}

func (f *syncFuture) settle(err error) {
	f.once.Do(func() {
		f.mu.Lock()
		f.err = err
		f.settled = true
		watchers := f.watchers
		f.mu.Unlock()
		close(f.done)
		for _, w := range watchers {
			w(err)
		}
	})
}

func (f *syncFuture) Await(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *syncFuture) Cancel() {
	select {
	case <-f.cancelCh:
	default:
		close(f.cancelCh)
	}
}

func (f *syncFuture) OnDone(fn func(error)) {
	f.mu.Lock()
	if f.settled {
		err := f.err
		f.mu.Unlock()
		fn(err)
		return
	}
	f.watchers = append(f.watchers, fn)
	f.mu.Unlock()
}
