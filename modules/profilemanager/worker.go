package profilemanager

import (
	"context"

	"github.com/NebulousLabs/errors"
	"github.com/NebulousLabs/fastrand"
	"github.com/hive2hive/h2h/build"
	"github.com/hive2hive/h2h/crypto"
	"github.com/hive2hive/h2h/dht"
	"github.com/hive2hive/h2h/modules"
)

// errPollPending is returned by the build.Retry callback in
// serveModification to mean "no signal yet, keep polling" - it never
// escapes this file.
var errPollPending = errors.New("profilemanager: still waiting for readyToPut")

func (m *Manager) loop() {
	defer m.tg.Done()

	for {
		m.mu.Lock()
		for len(m.modifyQueue) == 0 && len(m.readQueue) == 0 && !m.closed {
			m.cond.Wait()
		}
		if m.closed {
			m.mu.Unlock()
			return
		}

		if len(m.modifyQueue) > 0 {
			mod := m.modifyQueue[0]
			m.modifyQueue = m.modifyQueue[1:]
			readers := m.readQueue
			m.readQueue = nil
			m.mu.Unlock()

			m.serveModification(mod, readers)
			continue
		}

		readers := m.readQueue
		m.readQueue = nil
		m.mu.Unlock()

		m.serveReaders(readers)
	}
}

func (m *Manager) serveReaders(readers []*pendingGet) {
	if len(readers) == 0 {
		return
	}
	ctx := context.Background()
	profile, err := m.fetchAndDecrypt(ctx)
	for _, r := range readers {
		r.resultCh <- getResult{profile, err}
	}
}

func (m *Manager) serveModification(mod *pendingGet, readers []*pendingGet) {
	ctx := context.Background()
	profile, err := m.fetchAndDecrypt(ctx)
	if err == nil {
		m.mu.Lock()
		m.active = mod
		m.mu.Unlock()
	}

	mod.resultCh <- getResult{profile, err}
	for _, r := range readers {
		r.resultCh <- getResult{profile, err}
	}
	if err != nil {
		mod.outcomeCh <- err
		return
	}

	baseVersionKey := profile.VersionKey

	outcome := m.waitForModifier(ctx, mod, baseVersionKey)

	m.mu.Lock()
	m.active = nil
	m.mu.Unlock()

	mod.outcomeCh <- outcome
}

// waitForModifier polls for a readyToPut/abort signal in 10 slices of
// maxModTime/10 each (spec §5's "sleep-and-poll in 10x100ms slices"),
// returning modules.PutFailed on exhaustion.
func (m *Manager) waitForModifier(ctx context.Context, mod *pendingGet, baseVersionKey crypto.Hash) error {
	slice := m.maxModTime / 10
	var sig readySignal
	gotSignal := false

	build.Retry(11, slice, func() error {
		select {
		case sig = <-mod.readyCh:
			gotSignal = true
			return nil
		default:
			return errPollPending
		}
	})

	if !gotSignal {
		return modules.PutFailed("Too long modification. Only 1000ms are allowed.")
	}
	if sig.abort {
		return modules.ErrAbortedByUser
	}
	return m.putProfile(ctx, sig.profile, baseVersionKey)
}

func (m *Manager) fetchAndDecrypt(ctx context.Context) (*modules.UserProfile, error) {
	params := dht.Parameters{LocationKey: m.locationKey, ContentKey: dht.ContentKeyUserProfile}
	content, err := m.dm.Get(ctx, params)
	if err != nil {
		return nil, modules.GetFailed(err.Error())
	}
	profile, err := decryptProfile(content, m.aesKey)
	if err != nil {
		return nil, modules.GetFailed(err.Error())
	}
	m.cacheProtectionKey(profile.ProtectionKey)
	return profile, nil
}

func (m *Manager) putProfile(ctx context.Context, profile *modules.UserProfile, baseVersionKey crypto.Hash) error {
	profile.BasedOnKey = baseVersionKey
	profile.VersionKey = freshVersionKey()

	content, err := encryptProfile(profile, m.aesKey)
	if err != nil {
		return modules.PutFailed(err.Error())
	}

	protKey := profile.ProtectionKey
	params := dht.Parameters{
		LocationKey:   m.locationKey,
		ContentKey:    dht.ContentKeyUserProfile,
		VersionKey:    profile.VersionKey,
		BasedOnKey:    &baseVersionKey,
		HasBasedOnKey: true,
		ProtectionKey: &protKey,
		TTL:           m.ttl,
	}
	if err := m.dm.Put(ctx, params, content); err != nil {
		return modules.PutFailed(err.Error())
	}
	m.cacheProtectionKey(protKey)
	return nil
}

func freshVersionKey() crypto.Hash {
	return crypto.HashBytes(fastrand.Bytes(32))
}
