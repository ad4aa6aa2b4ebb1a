package process

import "sync"

// Listener receives lifecycle notifications from a Component. All three
// methods may be called from whatever goroutine finished the component;
// implementations must not block for long.
type Listener interface {
	OnSucceeded()
	OnFailed(reason error)
	OnFinished()
}

// Component is the capability set every process element implements,
// whether it is a single Step or a composite of many. Composites hold
// their children as the same Component interface; there is no separate
// base class for leaves vs. composites.
type Component interface {
	// Start transitions the component from Ready to Running and begins
	// execution. It returns modules.ErrInvalidProcessState if the
	// component is not Ready.
	Start() error

	// ExecuteBlocking starts the component (if Ready) and blocks until
	// it reaches a terminal state, returning the failure reason if any.
	ExecuteBlocking() error

	// Cancel requests cooperative cancellation. A component that has
	// not started treats Cancel as an immediate, rollback-free no-op;
	// a running component observes the request at its next suspension
	// point and unwinds via Rollback.
	Cancel()

	// Rollback unwinds a component that reached Failed, undoing
	// whatever it completed. Rollback on a component that never ran is
	// a no-op. Rollback is idempotent.
	Rollback(reason error) error

	// State returns the component's current lifecycle state.
	State() State

	// Subscribe registers l to receive this component's terminal
	// notification. If the component already reached a terminal state,
	// l is notified immediately.
	Subscribe(l Listener)
}

// lifecycle is embedded by every Component implementation. It owns the
// state machine transitions, the listener list, and the cancellation
// flag; it does not know how to execute or roll back — that is supplied
// by the embedding type.
type lifecycle struct {
	mu        sync.Mutex
	state     State
	cancelled bool
	listeners []Listener
	reason    error
}

func (l *lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *lifecycle) Cancel() {
	l.mu.Lock()
	l.cancelled = true
	l.mu.Unlock()
}

func (l *lifecycle) cancelRequested() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cancelled
}

// transition moves the state machine from its current state to to,
// failing with modules.ErrInvalidProcessState if the move is illegal.
func (l *lifecycle) transition(to State) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if !validTransition(l.state, to) {
		return invalidState()
	}
	l.state = to
	return nil
}

func (l *lifecycle) Subscribe(listener Listener) {
	l.mu.Lock()
	state := l.state
	reason := l.reason
	if !state.terminal() {
		l.listeners = append(l.listeners, listener)
	}
	l.mu.Unlock()

	if state.terminal() {
		notify(listener, state, reason)
	}
}

// finish records the terminal state and reason, then notifies every
// subscriber. It must only be called once per component.
func (l *lifecycle) finish(state State, reason error) {
	l.mu.Lock()
	l.state = state
	l.reason = reason
	listeners := l.listeners
	l.listeners = nil
	l.mu.Unlock()

	for _, listener := range listeners {
		notify(listener, state, reason)
	}
}

func notify(listener Listener, state State, reason error) {
	if listener == nil {
		return
	}
	switch state {
	case Succeeded:
		listener.OnSucceeded()
	case Failed, RolledBack:
		listener.OnFailed(reason)
	}
	listener.OnFinished()
}
