package process

import (
	"sync"

	"github.com/hive2hive/h2h/modules"
)

// Sequential runs its children in order. If a child fails, Sequential
// rolls back the children that already succeeded, in reverse order,
// and finishes RolledBack with the failing child's error as reason.
type Sequential struct {
	lifecycle
	name     string
	children []Component

	once sync.Once
	done chan struct{}
}

// NewSequential returns a Sequential composite over children, executed
// in the given order.
func NewSequential(name string, children ...Component) *Sequential {
	return &Sequential{
		name:     name,
		children: children,
		done:     make(chan struct{}),
	}
}

func (s *Sequential) Name() string {
	return s.name
}

func (s *Sequential) Start() error {
	if err := s.transition(Running); err != nil {
		return err
	}
	go s.run()
	return nil
}

func (s *Sequential) run() {
	defer close(s.done)

	var failIdx = -1
	var failErr error

	for i, child := range s.children {
		if s.cancelRequested() {
			failIdx, failErr = i, modules.ErrAbortedByUser
			break
		}
		if err := child.ExecuteBlocking(); err != nil {
			failIdx, failErr = i, err
			break
		}
	}

	if failErr == nil {
		s.finish(Succeeded, nil)
		return
	}

	s.mu.Lock()
	s.state = Rollbacking
	s.mu.Unlock()

	for i := failIdx - 1; i >= 0; i-- {
		// best-effort: a rollback failure does not change the composite's
		// own outcome, which is already determined by failErr.
		s.children[i].Rollback(failErr)
	}

	s.finish(RolledBack, failErr)
}

// ExecuteBlocking starts the composite if Ready, then waits for its
// terminal state.
func (s *Sequential) ExecuteBlocking() error {
	if s.State() == Ready {
		if err := s.Start(); err != nil {
			return err
		}
	}
	<-s.done
	state := s.State()
	if state == Failed || state == RolledBack {
		return s.failureReason()
	}
	return nil
}

func (s *Sequential) failureReason() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// Rollback rolls back every child in reverse order. It is idempotent.
func (s *Sequential) Rollback(reason error) error {
	var rollbackErr error
	s.once.Do(func() {
		s.mu.Lock()
		s.state = Rollbacking
		s.mu.Unlock()

		for i := len(s.children) - 1; i >= 0; i-- {
			if err := s.children[i].Rollback(reason); err != nil && rollbackErr == nil {
				rollbackErr = err
			}
		}

		s.mu.Lock()
		s.state = RolledBack
		s.mu.Unlock()
	})
	return rollbackErr
}
