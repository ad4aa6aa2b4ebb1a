package process

import (
	h2hsync "github.com/hive2hive/h2h/sync"
)

// Engine runs top-level processes on workers and tracks them with a
// ThreadGroup so that a daemon shutdown can wait for every in-flight
// operation to finish (or be cancelled) before exiting.
type Engine struct {
	tg h2hsync.ThreadGroup
}

// NewEngine returns a ready-to-use Engine.
func NewEngine() *Engine {
	return &Engine{}
}

// Start registers c with the engine's ThreadGroup and starts it. It
// returns modules.ErrInvalidProcessState (via c.Start) if c is not
// Ready, and sync.ErrStopped if the engine itself has already been
// stopped.
func (e *Engine) Start(c Component) error {
	if err := e.tg.Add(); err != nil {
		return err
	}
	if err := c.Start(); err != nil {
		e.tg.Done()
		return err
	}
	c.Subscribe(engineDoneListener{e})
	return nil
}

// ExecuteBlocking starts c on the engine (if Ready) and blocks until it
// reaches a terminal state, returning its failure reason if any.
func (e *Engine) ExecuteBlocking(c Component) error {
	if c.State() == Ready {
		if err := e.Start(c); err != nil {
			return err
		}
	}
	return c.ExecuteBlocking()
}

// Stop waits for every process started on this engine to finish, then
// prevents any further Start calls.
func (e *Engine) Stop() error {
	return e.tg.Stop()
}

// engineDoneListener releases the engine's ThreadGroup slot once the
// subscribed component reaches a terminal state.
type engineDoneListener struct {
	e *Engine
}

func (engineDoneListener) OnSucceeded()  {}
func (engineDoneListener) OnFailed(error) {}

func (l engineDoneListener) OnFinished() {
	l.e.tg.Done()
}
