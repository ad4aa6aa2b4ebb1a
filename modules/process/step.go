package process

import "sync"

// Step is an atomic unit of process work: a function to execute and an
// optional compensating function to undo it. A Step with a nil rollback
// function is a no-op on Rollback — many steps have nothing worth
// undoing (e.g. a pure read).
type Step struct {
	lifecycle
	name     string
	execute  func() error
	rollback func(reason error) error

	once sync.Once
	done chan struct{}
}

// NewStep returns a Step named name. rollback may be nil.
func NewStep(name string, execute func() error, rollback func(reason error) error) *Step {
	return &Step{
		name:     name,
		execute:  execute,
		rollback: rollback,
		done:     make(chan struct{}),
	}
}

// Name returns the step's name, used in failure messages and logs.
func (s *Step) Name() string {
	return s.name
}

// Start transitions the step to Running and launches its execute
// function on a new goroutine.
func (s *Step) Start() error {
	if err := s.transition(Running); err != nil {
		return err
	}
	go s.run()
	return nil
}

func (s *Step) run() {
	var err error
	if s.execute != nil {
		err = s.execute()
	}
	if err != nil {
		s.finish(Failed, err)
	} else {
		s.finish(Succeeded, nil)
	}
	close(s.done)
}

// ExecuteBlocking starts the step if it is Ready, then blocks until it
// reaches Succeeded or Failed.
func (s *Step) ExecuteBlocking() error {
	if s.State() == Ready {
		if err := s.Start(); err != nil {
			return err
		}
	}
	<-s.done
	if s.State() == Failed {
		return s.failureReason()
	}
	return nil
}

func (s *Step) failureReason() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reason
}

// Rollback undoes the step's effects. It is a no-op if the step never
// ran (Ready) or has already been rolled back; it is safe to call
// concurrently and will only invoke the step's rollback function once.
func (s *Step) Rollback(reason error) error {
	var rollbackErr error
	s.once.Do(func() {
		s.mu.Lock()
		state := s.state
		s.state = Rollbacking
		s.mu.Unlock()

		if state != Ready && s.rollback != nil {
			rollbackErr = s.rollback(reason)
		}

		s.mu.Lock()
		s.state = RolledBack
		s.mu.Unlock()
	})
	return rollbackErr
}
