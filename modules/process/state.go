// Package process implements the step pipeline used by every high-level
// file operation (add, update, delete, move, share, recover, login,
// logout). A process component is polymorphic over a small capability
// set: start, cancel, rollback, and state observation. Components
// compose: a Sequential runs its children in order and rolls back
// already-succeeded children in reverse order on failure; a Parallel
// runs its children concurrently and cancels+rolls back the rest on
// any single failure.
package process

import "github.com/hive2hive/h2h/modules"

// State is a position in the process lifecycle state machine.
type State int

const (
	// Ready is the state of a component that has not yet been started.
	Ready State = iota
	// Running is the state of a component between Start and its
	// terminal state.
	Running
	// Succeeded is a terminal state: every step completed without
	// error.
	Succeeded
	// Failed is a terminal state: a step failed and no rollback was
	// requested (or rollback itself is not applicable to a leaf that
	// never ran).
	Failed
	// Rollbacking is the state of a component currently unwinding.
	Rollbacking
	// RolledBack is a terminal state: the component failed and has
	// since been rolled back.
	RolledBack
)

func (s State) String() string {
	switch s {
	case Ready:
		return "READY"
	case Running:
		return "RUNNING"
	case Succeeded:
		return "SUCCEEDED"
	case Failed:
		return "FAILED"
	case Rollbacking:
		return "ROLLBACKING"
	case RolledBack:
		return "ROLLED_BACK"
	default:
		return "UNKNOWN"
	}
}

// terminal reports whether s is one of the machine's terminal states.
func (s State) terminal() bool {
	return s == Succeeded || s == Failed || s == RolledBack
}

// validTransition reports whether the machine may move from from to
// to. Any other pair fails with modules.ErrInvalidProcessState.
func validTransition(from, to State) bool {
	switch from {
	case Ready:
		return to == Running
	case Running:
		return to == Succeeded || to == Failed || to == Rollbacking
	case Rollbacking:
		return to == RolledBack
	default:
		return false
	}
}

func invalidState() error {
	return modules.ErrInvalidProcessState
}
