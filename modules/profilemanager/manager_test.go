package profilemanager

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/hive2hive/h2h/crypto"
	"github.com/hive2hive/h2h/dht"
	"github.com/hive2hive/h2h/modules"
)

func newTestProfile(t *testing.T) *modules.UserProfile {
	t.Helper()
	rootKP, err := crypto.GenerateRSAKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	protKP, err := crypto.GenerateRSAKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	return &modules.UserProfile{
		UserID:        "alice",
		Root:          modules.NewFolderIndex("", nil, rootKP),
		ProtectionKey: protKP,
	}
}

// seed writes profile directly to overlay under m's location/content key,
// bypassing the worker - used to establish the "profile already exists
// at registration" precondition the manager assumes.
func seed(t *testing.T, m *Manager, overlay *dht.InMemoryOverlay, profile *modules.UserProfile) {
	t.Helper()
	content, err := encryptProfile(profile, m.aesKey)
	if err != nil {
		t.Fatal(err)
	}
	params := dht.Parameters{LocationKey: m.locationKey, ContentKey: dht.ContentKeyUserProfile}
	if err := overlay.Put(context.Background(), params, content); err != nil {
		t.Fatal(err)
	}
}

func newTestManager(t *testing.T, maxModTime time.Duration) (*Manager, *dht.InMemoryOverlay) {
	t.Helper()
	cfg := modules.DefaultConfiguration()
	cfg.MaxModificationTime = maxModTime
	creds := modules.UserCredentials{UserID: "alice", Password: "hunter2", Pin: "4321"}
	overlay := dht.NewInMemoryOverlay()
	dm := dht.NewManager(overlay)
	m := NewManager(&cfg, creds, dm)
	t.Cleanup(func() { m.Stop() })
	return m, overlay
}

func TestGetUserProfileReadOnly(t *testing.T) {
	m, overlay := newTestManager(t, 300*time.Millisecond)
	want := newTestProfile(t)
	seed(t, m, overlay, want)

	got, err := m.GetUserProfile(context.Background(), "reader-1", false)
	if err != nil {
		t.Fatal(err)
	}
	if got.UserID != want.UserID {
		t.Fatalf("got UserID %q, want %q", got.UserID, want.UserID)
	}
}

func TestConcurrentReadersPiggyback(t *testing.T) {
	m, overlay := newTestManager(t, 300*time.Millisecond)
	seed(t, m, overlay, newTestProfile(t))

	const n = 5
	var wg sync.WaitGroup
	results := make([]*modules.UserProfile, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p, err := m.GetUserProfile(context.Background(), "reader", false)
			if err != nil {
				t.Error(err)
				return
			}
			results[i] = p
		}(i)
	}
	wg.Wait()
	for i, p := range results {
		if p == nil || p.UserID != "alice" {
			t.Fatalf("reader %d got unexpected result: %v", i, p)
		}
	}
}

func TestReadyToPutSucceeds(t *testing.T) {
	m, overlay := newTestManager(t, 300*time.Millisecond)
	seed(t, m, overlay, newTestProfile(t))

	profile, err := m.GetUserProfile(context.Background(), "modifier-1", true)
	if err != nil {
		t.Fatal(err)
	}
	childKP, err := crypto.GenerateRSAKeyPair()
	if err != nil {
		t.Fatal(err)
	}
	child := modules.NewFileIndex("report.txt", profile.Root, childKP)
	profile.Root.Children[child.Name()] = child

	if err := m.ReadyToPut("modifier-1", profile); err != nil {
		t.Fatal(err)
	}
	if err := m.WaitForPut("modifier-1"); err != nil {
		t.Fatal(err)
	}

	again, err := m.GetUserProfile(context.Background(), "reader-2", false)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := again.Root.Children["report.txt"]; !ok {
		t.Fatal("put did not persist the added file")
	}
	var zero crypto.Hash
	if again.BasedOnKey == zero {
		t.Fatal("expected BasedOnKey to record the version chain")
	}
}

func TestModifierTimeout(t *testing.T) {
	m, overlay := newTestManager(t, 150*time.Millisecond)
	seed(t, m, overlay, newTestProfile(t))

	if _, err := m.GetUserProfile(context.Background(), "slow-modifier", true); err != nil {
		t.Fatal(err)
	}

	err := m.WaitForPut("slow-modifier")
	if err == nil {
		t.Fatal("expected timeout to produce PutFailed")
	}

	// a subsequent modifier should succeed once the slot is free.
	profile, err := m.GetUserProfile(context.Background(), "next-modifier", true)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.ReadyToPut("next-modifier", profile); err != nil {
		t.Fatal(err)
	}
	if err := m.WaitForPut("next-modifier"); err != nil {
		t.Fatal(err)
	}
}

func TestReadyToPutRejectsWrongModifier(t *testing.T) {
	m, overlay := newTestManager(t, 300*time.Millisecond)
	seed(t, m, overlay, newTestProfile(t))

	profile, err := m.GetUserProfile(context.Background(), "owner", true)
	if err != nil {
		t.Fatal(err)
	}
	if err := m.ReadyToPut("impostor", profile); err == nil {
		t.Fatal("expected ReadyToPut from a non-active pid to fail")
	}
	// clean up the real modifier so Stop doesn't hang the test.
	if err := m.ReadyToPut("owner", profile); err != nil {
		t.Fatal(err)
	}
	m.WaitForPut("owner")
}
