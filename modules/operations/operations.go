// Package operations builds the high-level file operations spec §4.6
// names - add, update, delete, move, share, recover, login, logout -
// out of modules/process steps, wiring the profile manager, the data
// manager, and the location registry/notifier together the way a
// client-facing API handler would.
package operations

import (
	"context"
	"encoding/hex"
	"sync"

	"github.com/hive2hive/h2h/crypto"
	"github.com/hive2hive/h2h/dht"
	"github.com/hive2hive/h2h/modules"
	"github.com/hive2hive/h2h/modules/locations"
	"github.com/hive2hive/h2h/modules/process"
	"github.com/hive2hive/h2h/modules/profilemanager"
	"github.com/hive2hive/h2h/modules/sidecar"
	"github.com/hive2hive/h2h/persist"
)

// DataManager is the subset of dht.Manager the operation pipelines use
// for chunk and meta-file I/O.
type DataManager interface {
	Get(ctx context.Context, p dht.Parameters) (dht.Content, error)
	Put(ctx context.Context, p dht.Parameters, c dht.Content) error
	Remove(ctx context.Context, p dht.Parameters) error
}

// Operations wires together the collaborators every pipeline in this
// package is built from.
type Operations struct {
	cfg       *modules.Configuration
	creds     modules.UserCredentials
	profiles  *profilemanager.Manager
	dm        DataManager
	locations *locations.Registry
	notifier  *locations.Notifier
	engine    *process.Engine

	// rootPath and sidecar are populated by Login and consumed by
	// Logout, which persists the in-memory sidecar state Login and the
	// intervening session accumulated (spec §4.6: login reads it,
	// logout writes it).
	mu       sync.Mutex
	rootPath string
	sidecar  *sidecar.Sidecar
	events   EventHandler
}

// New returns an Operations façade for one logged-in user.
func New(cfg *modules.Configuration, creds modules.UserCredentials, profiles *profilemanager.Manager, dm DataManager, registry *locations.Registry, notifier *locations.Notifier, engine *process.Engine) *Operations {
	return &Operations{cfg: cfg, creds: creds, profiles: profiles, dm: dm, locations: registry, notifier: notifier, engine: engine}
}

// EventHandler is notified of a pipeline's terminal state. op is the
// human-readable pipeline label given to NewSequential (e.g. "add file
// /docs/report.txt"); reason is nil on Succeeded.
type EventHandler func(op string, state process.State, reason error)

// SetEventHandler installs handler to be called once per pipeline
// invocation, after every subsequent AddFile/UpdateFile/DeleteFile/
// MoveFile/ShareFolder call reaches a terminal state. Intended for the
// control API's websocket event stream; nil disables event reporting.
func (o *Operations) SetEventHandler(handler EventHandler) {
	o.mu.Lock()
	o.events = handler
	o.mu.Unlock()
}

// execute runs seq on the engine, reporting its terminal state to the
// installed EventHandler (if any) before returning.
func (o *Operations) execute(op string, seq *process.Sequential) error {
	o.mu.Lock()
	handler := o.events
	o.mu.Unlock()
	if handler != nil {
		seq.Subscribe(&eventListener{op: op, handler: handler, seq: seq})
	}
	return o.engine.ExecuteBlocking(seq)
}

// eventListener adapts a Sequential's terminal notification to an
// EventHandler call. OnFailed fires before OnFinished (see
// modules/process.notify), so by the time OnFinished runs reason already
// holds whatever was reported.
type eventListener struct {
	op      string
	handler EventHandler
	seq     *process.Sequential
	reason  error
}

func (l *eventListener) OnSucceeded()         {}
func (l *eventListener) OnFailed(reason error) { l.reason = reason }
func (l *eventListener) OnFinished() {
	l.handler(l.op, l.seq.State(), l.reason)
}

// readProfile fetches a read-only snapshot of the current profile.
func (o *Operations) readProfile(ctx context.Context) (*modules.UserProfile, error) {
	return o.profiles.GetUserProfile(ctx, persist.RandomSuffix(), false)
}

// mutateProfile runs the claim → mutate → commit cycle every profile-
// tree-modifying pipeline needs: it claims the put slot, hands mutate a
// profile it is free to edit in place, and commits the result. If
// mutate returns an error, the claimed slot is released via Abort
// instead of committed.
func (o *Operations) mutateProfile(ctx context.Context, mutate func(*modules.UserProfile) error) error {
	pid := persist.RandomSuffix()
	profile, err := o.profiles.GetUserProfile(ctx, pid, true)
	if err != nil {
		return err
	}
	if err := mutate(profile); err != nil {
		o.profiles.Abort(pid)
		return err
	}
	if err := o.profiles.ReadyToPut(pid, profile); err != nil {
		return err
	}
	return o.profiles.WaitForPut(pid)
}

// metaFileKey derives the DHT location key a file's meta-file is stored
// under from the owning FileIndex's public key (modules.Index.PublicKey,
// a hex-encoded DER public key), mirroring the per-user derivation
// modules/locations uses for Locations objects.
func metaFileKey(nodePublicKey string) crypto.Hash {
	return crypto.HashBytes([]byte(nodePublicKey))
}

// nodePublicKeyString renders kp's public half the same way
// modules.Index.PublicKey does (hex-encoded DER), so a meta-file's
// NodeKey can be derived before the owning FileIndex exists.
func nodePublicKeyString(kp crypto.RSAKeyPair) (string, error) {
	der, err := kp.PublicKeyBytes()
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(der), nil
}
