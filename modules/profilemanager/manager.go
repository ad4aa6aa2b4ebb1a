// Package profilemanager serializes concurrent get/modify/put cycles on
// a single user's encrypted profile object, per spec §4.4. A single
// worker goroutine owns two FIFO queues (read-only gets and intend-to-
// put modifications); modifiers take priority over readers, and every
// reader already queued when a modification is dequeued piggy-backs the
// same fetched copy.
package profilemanager

import (
	"context"
	"sync"
	"time"

	"github.com/NebulousLabs/errors"
	"github.com/hive2hive/h2h/crypto"
	"github.com/hive2hive/h2h/dht"
	"github.com/hive2hive/h2h/modules"
	h2hsync "github.com/hive2hive/h2h/sync"
)

// ErrUnknownModifier is returned by WaitForPut when no modification with
// the given pid was ever enqueued.
var ErrUnknownModifier = errors.New("profilemanager: unknown modifier")

// DataManager is the subset of dht.Manager the profile manager needs.
// Defined locally so tests can substitute a fake without depending on
// dht's concrete Manager type.
type DataManager interface {
	Get(ctx context.Context, p dht.Parameters) (dht.Content, error)
	Put(ctx context.Context, p dht.Parameters, c dht.Content) error
}

type pendingGet struct {
	pid          string
	intendsToPut bool
	resultCh     chan getResult

	// readyCh and outcomeCh are only populated for intendsToPut
	// requests: readyCh carries the modifier's ReadyToPut/Abort signal,
	// outcomeCh carries the eventual put outcome back to WaitForPut.
	readyCh   chan readySignal
	outcomeCh chan error
}

type getResult struct {
	profile *modules.UserProfile
	err     error
}

type readySignal struct {
	profile *modules.UserProfile
	abort   bool
}

// Manager is the user-profile concurrency manager described in spec
// §4.4. The zero value is not usable; construct with NewManager.
type Manager struct {
	mu          sync.Mutex
	cond        *sync.Cond
	readQueue   []*pendingGet
	modifyQueue []*pendingGet
	byPid       map[string]*pendingGet
	active      *pendingGet
	closed      bool

	tg h2hsync.ThreadGroup

	dm          DataManager
	credentials modules.UserCredentials
	locationKey crypto.Hash
	aesKey      crypto.AESKey
	ttl         time.Duration
	maxModTime  time.Duration

	keyCacheMu    sync.Mutex
	cachedProtKey *crypto.RSAKeyPair
}

// NewManager returns a Manager for creds, backed by dm, and starts its
// worker goroutine. Callers must Stop it on logout.
func NewManager(cfg *modules.Configuration, creds modules.UserCredentials, dm DataManager) *Manager {
	m := &Manager{
		byPid:       make(map[string]*pendingGet),
		dm:          dm,
		credentials: creds,
		locationKey: creds.ProfileLocationKey(),
		aesKey:      creds.ProfileAESKey(),
		ttl:         cfg.TTL.UserProfile,
		maxModTime:  cfg.MaxModificationTime,
	}
	m.cond = sync.NewCond(&m.mu)
	m.tg.OnStop(func() {
		m.mu.Lock()
		m.closed = true
		m.cond.Broadcast()
		m.mu.Unlock()
	})
	m.tg.Add()
	go m.loop()
	return m
}

// Stop stops the worker, rejecting any further enqueue, and waits for
// it to exit. Per spec §4.6 this happens as part of Logout.
func (m *Manager) Stop() error {
	return m.tg.Stop()
}

// GetUserProfile enqueues a get (or, if intendsToPut, a modification
// request) under pid and blocks until the worker publishes a profile or
// an error.
func (m *Manager) GetUserProfile(ctx context.Context, pid string, intendsToPut bool) (*modules.UserProfile, error) {
	req := &pendingGet{pid: pid, intendsToPut: intendsToPut, resultCh: make(chan getResult, 1)}
	if intendsToPut {
		req.readyCh = make(chan readySignal, 1)
		req.outcomeCh = make(chan error, 1)
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, h2hsync.ErrStopped
	}
	if intendsToPut {
		m.modifyQueue = append(m.modifyQueue, req)
		m.byPid[pid] = req
	} else {
		m.readQueue = append(m.readQueue, req)
	}
	m.cond.Broadcast()
	m.mu.Unlock()

	select {
	case res := <-req.resultCh:
		return res.profile, res.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// ReadyToPut hands the mutated profile back to the manager for
// encryption and put. It fails with modules.PutFailed if pid is not
// the currently active modifier — its window has already elapsed, or
// it was never the current modifier.
func (m *Manager) ReadyToPut(pid string, profile *modules.UserProfile) error {
	return m.signal(pid, readySignal{profile: profile})
}

// Abort cooperatively cancels pid's modification window.
func (m *Manager) Abort(pid string) error {
	return m.signal(pid, readySignal{abort: true})
}

func (m *Manager) signal(pid string, sig readySignal) error {
	m.mu.Lock()
	active := m.active
	m.mu.Unlock()

	if active == nil || active.pid != pid {
		return modules.PutFailed("Not allowed to put anymore")
	}
	select {
	case active.readyCh <- sig:
		return nil
	default:
		return modules.PutFailed("Not allowed to put anymore")
	}
}

// WaitForPut blocks until the worker has resolved pid's modification
// (successfully put, aborted, or timed out), and returns that outcome.
// It may be called any time after GetUserProfile(pid, true) returns,
// whether or not ReadyToPut has been (or will be) called.
func (m *Manager) WaitForPut(pid string) error {
	m.mu.Lock()
	req, ok := m.byPid[pid]
	m.mu.Unlock()
	if !ok {
		return ErrUnknownModifier
	}

	err := <-req.outcomeCh

	m.mu.Lock()
	delete(m.byPid, pid)
	m.mu.Unlock()
	return err
}

// ProtectionKey returns the user's protection keypair, serving it from
// cache when available to avoid a decrypt for readers that need only
// this field (spec §4.4's caching note).
func (m *Manager) ProtectionKey(ctx context.Context, pid string) (*crypto.RSAKeyPair, error) {
	m.keyCacheMu.Lock()
	cached := m.cachedProtKey
	m.keyCacheMu.Unlock()
	if cached != nil {
		return cached, nil
	}

	profile, err := m.GetUserProfile(ctx, pid, false)
	if err != nil {
		return nil, err
	}
	return &profile.ProtectionKey, nil
}

func (m *Manager) cacheProtectionKey(key crypto.RSAKeyPair) {
	m.keyCacheMu.Lock()
	m.cachedProtKey = &key
	m.keyCacheMu.Unlock()
}
