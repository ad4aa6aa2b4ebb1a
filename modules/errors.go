package modules

import (
	"github.com/NebulousLabs/errors"
)

// Error kinds returned by the domain layer. Operations surface one of
// these (possibly wrapped with additional context via errors.AddContext)
// as the terminal failure reason of a process.
var (
	// ErrGetFailed indicates a DHT read failed: absence, decrypt failure,
	// or transport error.
	ErrGetFailed = errors.New("get failed")

	// ErrPutFailed indicates a DHT write was rejected: stale version
	// chain, protection-key mismatch, encrypt failure, transport error, or
	// a profile-manager modification-window timeout.
	ErrPutFailed = errors.New("put failed")

	// ErrNoPeerConnection indicates the local node has not joined the
	// overlay.
	ErrNoPeerConnection = errors.New("no peer connection")

	// ErrNoSession indicates no user is logged in on this peer.
	ErrNoSession = errors.New("no session")

	// ErrIllegalFileLocation indicates a path outside the user's root, or
	// a file/directory type mismatch.
	ErrIllegalFileLocation = errors.New("illegal file location")

	// ErrInvalidProcessState indicates a lifecycle violation in the
	// process engine's state machine.
	ErrInvalidProcessState = errors.New("invalid process state")

	// ErrProcessExecutionException indicates a domain failure surfaced by
	// a step, triggering rollback of its composite.
	ErrProcessExecutionException = errors.New("process execution exception")

	// ErrAbortedByUser indicates cooperative cancellation.
	ErrAbortedByUser = errors.New("aborted by user")
)

// PutFailed wraps ErrPutFailed with a human-readable reason, e.g. the
// "too long modification" timeout reported by the profile manager.
func PutFailed(reason string) error {
	return errors.AddContext(ErrPutFailed, reason)
}

// GetFailed wraps ErrGetFailed with a human-readable reason.
func GetFailed(reason string) error {
	return errors.AddContext(ErrGetFailed, reason)
}
