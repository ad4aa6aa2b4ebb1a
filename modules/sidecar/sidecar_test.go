package sidecar

import (
	"testing"

	"github.com/hive2hive/h2h/crypto"
)

func TestLoadMissingReturnsEmpty(t *testing.T) {
	s, err := Load(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if len(s.FileTree) != 0 || len(s.PublicKeyCache) != 0 {
		t.Fatal("expected an empty sidecar for a root with no prior save")
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := New()
	s.RecordFile("docs/report.txt", crypto.MD5Bytes([]byte("v1")))
	s.CachePublicKey("bob", []byte{1, 2, 3})

	if err := s.Save(dir); err != nil {
		t.Fatal(err)
	}

	loaded, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if !loaded.FileTree["docs/report.txt"].Equal(crypto.MD5Bytes([]byte("v1"))) {
		t.Fatal("file tree entry did not round trip")
	}
	der, ok := loaded.CachedPublicKey("bob")
	if !ok || len(der) != 3 {
		t.Fatal("public key cache entry did not round trip")
	}
}

func TestReconcile(t *testing.T) {
	s := New()
	s.RecordFile("unchanged.txt", crypto.MD5Bytes([]byte("same")))
	s.RecordFile("edited.txt", crypto.MD5Bytes([]byte("old")))
	s.RecordFile("deleted.txt", crypto.MD5Bytes([]byte("gone")))

	current := map[string]crypto.MD5Digest{
		"unchanged.txt": crypto.MD5Bytes([]byte("same")),
		"edited.txt":    crypto.MD5Bytes([]byte("new")),
		"added.txt":     crypto.MD5Bytes([]byte("fresh")),
	}

	d := s.Reconcile(current)
	if len(d.Changed) != 1 || d.Changed[0] != "edited.txt" {
		t.Fatalf("got Changed %v, want [edited.txt]", d.Changed)
	}
	if len(d.Added) != 1 || d.Added[0] != "added.txt" {
		t.Fatalf("got Added %v, want [added.txt]", d.Added)
	}
	if len(d.Removed) != 1 || d.Removed[0] != "deleted.txt" {
		t.Fatalf("got Removed %v, want [deleted.txt]", d.Removed)
	}
}
