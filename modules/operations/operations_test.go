package operations

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hive2hive/h2h/crypto"
	"github.com/hive2hive/h2h/dht"
	"github.com/hive2hive/h2h/modules"
	"github.com/hive2hive/h2h/modules/locations"
	"github.com/hive2hive/h2h/modules/process"
	"github.com/hive2hive/h2h/modules/profilemanager"
)

func setup(t *testing.T) (*Operations, *dht.InMemoryOverlay, modules.UserCredentials) {
	t.Helper()
	cfg := modules.DefaultConfiguration()
	cfg.ChunkSize = 8 // tiny, so test files split into several chunks
	creds := modules.UserCredentials{UserID: "alice", Password: "hunter2", Pin: "4321"}

	overlay := dht.NewInMemoryOverlay()
	ctx := context.Background()
	if err := profilemanager.Register(ctx, &cfg, creds, overlay); err != nil {
		t.Fatal(err)
	}

	pm := profilemanager.NewManager(&cfg, creds, overlay)
	t.Cleanup(func() { pm.Stop() })

	registry := locations.NewRegistry(overlay)
	peerAddr := dht.PeerAddress("self-peer")
	overlay.Register(peerAddr)
	if err := registry.Login(ctx, creds.UserID, string(peerAddr), time.Now()); err != nil {
		t.Fatal(err)
	}
	notifier := locations.NewNotifier(registry, overlay, creds.UserID, nil)

	ops := New(&cfg, creds, pm, overlay, registry, notifier, process.NewEngine())
	return ops, overlay, creds
}

// createFolder inserts a FolderIndex named name directly under root into
// the profile tree, bypassing AddFile's pipeline (there is no
// create-folder operation; a folder's existence is implied by the tree
// shape, not an operation in its own right).
func createFolder(t *testing.T, ops *Operations, name string) {
	t.Helper()
	err := ops.mutateProfile(context.Background(), func(profile *modules.UserProfile) error {
		kp, err := crypto.GenerateRSAKeyPair()
		if err != nil {
			return err
		}
		profile.Root.Children[name] = modules.NewFolderIndex(name, profile.Root, kp)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
}

// recoverTo is a small test helper: it recovers the version at index from
// path into a temp file under t's test directory and returns its content.
func recoverTo(t *testing.T, ops *Operations, path string, index int) []byte {
	t.Helper()
	dir := t.TempDir()
	dest := filepath.Join(dir, "out")
	selector := func(versions []modules.FileVersion) (int, string, error) {
		return index, dest, nil
	}
	if err := ops.RecoverFile(context.Background(), path, selector); err != nil {
		t.Fatal(err)
	}
	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatal(err)
	}
	return got
}

func TestAddFileRoundTrip(t *testing.T) {
	ops, _, _ := setup(t)
	ctx := context.Background()
	data := []byte("the quick brown fox jumps over the lazy dog")

	if err := ops.AddFile(ctx, "/report.txt", bytes.NewReader(data), int64(len(data))); err != nil {
		t.Fatal(err)
	}

	profile, err := ops.readProfile(ctx)
	if err != nil {
		t.Fatal(err)
	}
	_, fi, err := resolveFile(profile.Root, "/report.txt")
	if err != nil {
		t.Fatal(err)
	}
	mf, err := ops.getMetaFile(ctx, fi)
	if err != nil {
		t.Fatal(err)
	}
	newest, ok := mf.Newest()
	if !ok {
		t.Fatal("expected at least one version")
	}
	if len(newest.Chunks) < 2 {
		t.Fatalf("expected the 8-byte chunk size to split the file into several chunks, got %d", len(newest.Chunks))
	}
	if mf.TotalSize() != int64(len(data)) {
		t.Fatalf("got total size %d, want %d", mf.TotalSize(), len(data))
	}

	got := recoverTo(t, ops, "/report.txt", 0)
	if !bytes.Equal(got, data) {
		t.Fatalf("got %q, want %q", got, data)
	}
}

func TestAddFileAlreadyExists(t *testing.T) {
	ops, _, _ := setup(t)
	ctx := context.Background()
	data := []byte("hello")

	if err := ops.AddFile(ctx, "/note.txt", bytes.NewReader(data), int64(len(data))); err != nil {
		t.Fatal(err)
	}
	err := ops.AddFile(ctx, "/note.txt", bytes.NewReader(data), int64(len(data)))
	if err != ErrAlreadyExists {
		t.Fatalf("got %v, want ErrAlreadyExists", err)
	}
}

func TestAddFileMissingParent(t *testing.T) {
	ops, _, _ := setup(t)
	ctx := context.Background()
	data := []byte("hello")

	err := ops.AddFile(ctx, "/missing/note.txt", bytes.NewReader(data), int64(len(data)))
	if err != ErrNotFound {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

// writeVersion adds the file on its first call and appends a new version
// on every subsequent call for the same path.
func writeVersion(t *testing.T, ops *Operations, path, content string) {
	t.Helper()
	ctx := context.Background()
	profile, err := ops.readProfile(ctx)
	if err != nil {
		t.Fatal(err)
	}
	_, _, err = resolveFile(profile.Root, path)
	data := []byte(content)
	if err == ErrNotFound {
		if err := ops.AddFile(ctx, path, bytes.NewReader(data), int64(len(data))); err != nil {
			t.Fatal(err)
		}
		return
	}
	if err != nil {
		t.Fatal(err)
	}
	if err := ops.UpdateFile(ctx, path, bytes.NewReader(data), int64(len(data))); err != nil {
		t.Fatal(err)
	}
}

func TestUpdateFileRetentionPolicy(t *testing.T) {
	ops, overlay, _ := setup(t)
	ctx := context.Background()
	ops.cfg.MaxNumOfVersions = 2

	writeVersion(t, ops, "/doc.txt", "version zero is here")
	writeVersion(t, ops, "/doc.txt", "version one is here!")
	writeVersion(t, ops, "/doc.txt", "version two is here!!")

	profile, err := ops.readProfile(ctx)
	if err != nil {
		t.Fatal(err)
	}
	_, fi, err := resolveFile(profile.Root, "/doc.txt")
	if err != nil {
		t.Fatal(err)
	}
	mf, err := ops.getMetaFile(ctx, fi)
	if err != nil {
		t.Fatal(err)
	}
	if len(mf.Versions) != 2 {
		t.Fatalf("got %d retained versions, want 2", len(mf.Versions))
	}
	if mf.Versions[0].Index != 1 || mf.Versions[1].Index != 2 {
		t.Fatalf("expected version 0 evicted, got indices %d, %d", mf.Versions[0].Index, mf.Versions[1].Index)
	}

	for _, mc := range mf.Versions[0].Chunks {
		params := dht.Parameters{LocationKey: mc.ChunkID, ContentKey: dht.ContentKeyFileChunk}
		if _, err := overlay.Get(ctx, params); err != nil {
			t.Fatalf("retained version's chunk should still exist: %v", err)
		}
	}
}

func TestDeleteFile(t *testing.T) {
	ops, overlay, _ := setup(t)
	ctx := context.Background()
	data := []byte("goodbye")

	if err := ops.AddFile(ctx, "/bye.txt", bytes.NewReader(data), int64(len(data))); err != nil {
		t.Fatal(err)
	}
	profile, err := ops.readProfile(ctx)
	if err != nil {
		t.Fatal(err)
	}
	_, fi, err := resolveFile(profile.Root, "/bye.txt")
	if err != nil {
		t.Fatal(err)
	}
	mf, err := ops.getMetaFile(ctx, fi)
	if err != nil {
		t.Fatal(err)
	}
	publicKey, err := nodePublicKeyString(fi.Keypair)
	if err != nil {
		t.Fatal(err)
	}
	metaKey := metaFileKey(publicKey)

	if err := ops.DeleteFile(ctx, "/bye.txt"); err != nil {
		t.Fatal(err)
	}

	profile, err = ops.readProfile(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := resolveFile(profile.Root, "/bye.txt"); err != ErrNotFound {
		t.Fatalf("expected file gone from profile, got err=%v", err)
	}
	if _, err := overlay.Get(ctx, dht.Parameters{LocationKey: metaKey, ContentKey: dht.ContentKeyMetaFile}); err != dht.ErrNotFound {
		t.Fatalf("expected meta-file removed, got err=%v", err)
	}
	for _, mc := range mf.Versions[0].Chunks {
		if _, err := overlay.Get(ctx, dht.Parameters{LocationKey: mc.ChunkID, ContentKey: dht.ContentKeyFileChunk}); err != dht.ErrNotFound {
			t.Fatalf("expected chunk removed, got err=%v", err)
		}
	}
}

func TestMoveFile(t *testing.T) {
	ops, _, _ := setup(t)
	ctx := context.Background()
	data := []byte("moving along")

	if err := ops.AddFile(ctx, "/a.txt", bytes.NewReader(data), int64(len(data))); err != nil {
		t.Fatal(err)
	}
	if err := ops.MoveFile(ctx, "/a.txt", "/b.txt"); err != nil {
		t.Fatal(err)
	}

	profile, err := ops.readProfile(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := resolveFile(profile.Root, "/a.txt"); err != ErrNotFound {
		t.Fatalf("expected source gone, got err=%v", err)
	}
	_, fi, err := resolveFile(profile.Root, "/b.txt")
	if err != nil {
		t.Fatal(err)
	}
	if fi.Name() != "b.txt" {
		t.Fatalf("got name %q, want b.txt", fi.Name())
	}
}

func TestShareFolder(t *testing.T) {
	ops, overlay, _ := setup(t)
	ctx := context.Background()
	data := []byte("shared content")

	createFolder(t, ops, "team")
	if err := ops.AddFile(ctx, "/team/plan.txt", bytes.NewReader(data), int64(len(data))); err != nil {
		t.Fatal(err)
	}

	friendPeer := dht.PeerAddress("friend-peer")
	overlay.Register(friendPeer)
	friendRegistry := locations.NewRegistry(overlay)
	if err := friendRegistry.Login(ctx, "bob", string(friendPeer), time.Now()); err != nil {
		t.Fatal(err)
	}

	if err := ops.ShareFolder(ctx, "/team", "bob", []byte("fake-der-protection-key")); err != nil {
		t.Fatal(err)
	}

	profile, err := ops.readProfile(ctx)
	if err != nil {
		t.Fatal(err)
	}
	folder, err := resolveFolderPath(profile.Root, "/team")
	if err != nil {
		t.Fatal(err)
	}
	if _, shared := folder.Shared["bob"]; !shared {
		t.Fatal("expected bob to be a share participant")
	}

	if err := ops.ShareFolder(ctx, "/team", "bob", []byte("fake-der-protection-key")); err != ErrAlreadyExists {
		t.Fatalf("got %v, want ErrAlreadyExists on re-share", err)
	}
}

func TestRecoverFile(t *testing.T) {
	ops, _, _ := setup(t)

	writeVersion(t, ops, "/log.txt", "first revision")
	writeVersion(t, ops, "/log.txt", "second revision, longer than the first")

	got := recoverTo(t, ops, "/log.txt", 0)
	if string(got) != "first revision" {
		t.Fatalf("got %q, want %q", got, "first revision")
	}
}

func TestRecoverFileIndexOutOfRange(t *testing.T) {
	ops, _, _ := setup(t)
	writeVersion(t, ops, "/only.txt", "the only revision")

	dir := t.TempDir()
	selector := func(versions []modules.FileVersion) (int, string, error) {
		return 5, filepath.Join(dir, "out"), nil
	}
	if err := ops.RecoverFile(context.Background(), "/only.txt", selector); err != ErrNotFound {
		t.Fatalf("got %v, want ErrNotFound", err)
	}
}

func TestLoginReconcilesOfflineAdd(t *testing.T) {
	ops, _, _ := setup(t)
	ctx := context.Background()
	dir := t.TempDir()

	if err := os.WriteFile(filepath.Join(dir, "offline.txt"), []byte("written while logged out"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := ops.Login(ctx, dir, "relogin-peer"); err != nil {
		t.Fatal(err)
	}

	profile, err := ops.readProfile(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := resolveFile(profile.Root, "/offline.txt"); err != nil {
		t.Fatalf("expected offline addition reconciled into profile, got err=%v", err)
	}
}

func TestLogout(t *testing.T) {
	ops, _, creds := setup(t)
	ctx := context.Background()
	dir := t.TempDir()

	if err := ops.Login(ctx, dir, "logout-peer"); err != nil {
		t.Fatal(err)
	}
	if err := ops.Logout(ctx, "logout-peer"); err != nil {
		t.Fatal(err)
	}

	loc, err := ops.locations.Get(ctx, creds.UserID)
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range loc.Entries {
		if e.PeerAddress == "logout-peer" {
			t.Fatal("expected logout-peer removed from Locations")
		}
	}

	if _, err := os.Stat(filepath.Join(dir, ".H2H_meta")); err != nil {
		t.Fatalf("expected sidecar written on logout: %v", err)
	}
}
