// Package sidecar persists the per-root ".H2H_meta" file spec §6
// describes: a local cache of each tracked file's last-known content
// digest, plus cached public keys for users whose shares this root
// participates in. Login uses it to detect changes made to the local
// tree while the client was offline.
package sidecar

import (
	"os"
	"path/filepath"

	"github.com/hive2hive/h2h/crypto"
	"github.com/hive2hive/h2h/persist"
)

const fileName = ".H2H_meta"

var metadata = persist.Metadata{Header: "Hive2Hive Sidecar", Version: "1.0"}

// Sidecar is the persisted shape of one root's metadata cache.
type Sidecar struct {
	// FileTree maps a path (relative to the root) to the MD5 digest it
	// held the last time this client observed it.
	FileTree map[string]crypto.MD5Digest

	// PublicKeyCache maps a userId to the DER encoding of their RSA
	// public key, avoiding a DHT round trip to re-fetch it on every
	// share-participant interaction.
	PublicKeyCache map[string][]byte
}

// New returns an empty Sidecar.
func New() *Sidecar {
	return &Sidecar{
		FileTree:       make(map[string]crypto.MD5Digest),
		PublicKeyCache: make(map[string][]byte),
	}
}

// Path returns the sidecar filename for the root at rootPath.
func Path(rootPath string) string {
	return filepath.Join(rootPath, fileName)
}

// Load reads the sidecar for rootPath, returning a fresh empty Sidecar
// if none has ever been written there.
func Load(rootPath string) (*Sidecar, error) {
	s := New()
	err := persist.LoadJSON(metadata, s, Path(rootPath))
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, err
	}
	if s.FileTree == nil {
		s.FileTree = make(map[string]crypto.MD5Digest)
	}
	if s.PublicKeyCache == nil {
		s.PublicKeyCache = make(map[string][]byte)
	}
	return s, nil
}

// Save writes s to rootPath's sidecar file.
func (s *Sidecar) Save(rootPath string) error {
	return persist.SaveJSON(metadata, s, Path(rootPath))
}

// RecordFile remembers digest as path's last-observed content.
func (s *Sidecar) RecordFile(path string, digest crypto.MD5Digest) {
	s.FileTree[path] = digest
}

// Forget removes path from the tracked tree, e.g. after a delete.
func (s *Sidecar) Forget(path string) {
	delete(s.FileTree, path)
}

// CachePublicKey remembers der as userId's RSA public key.
func (s *Sidecar) CachePublicKey(userID string, der []byte) {
	s.PublicKeyCache[userID] = der
}

// CachedPublicKey returns userId's cached RSA public key, if any.
func (s *Sidecar) CachedPublicKey(userID string) ([]byte, bool) {
	der, ok := s.PublicKeyCache[userID]
	return der, ok
}

// Diff is the result of reconciling a freshly-scanned tree against the
// sidecar's last-known state.
type Diff struct {
	// Changed holds paths present in both trees whose digest differs.
	Changed []string
	// Added holds paths present on disk but absent from the sidecar.
	Added []string
	// Removed holds paths the sidecar remembers that disk no longer has.
	Removed []string
}

// Reconcile compares current (freshly computed from the on-disk tree)
// against s's remembered digests, per spec §4.6's login step
// "reconcile differences into the profile". It does not mutate s;
// callers update FileTree themselves once the profile has absorbed the
// difference.
func (s *Sidecar) Reconcile(current map[string]crypto.MD5Digest) Diff {
	var d Diff
	for path, digest := range current {
		known, ok := s.FileTree[path]
		if !ok {
			d.Added = append(d.Added, path)
		} else if !known.Equal(digest) {
			d.Changed = append(d.Changed, path)
		}
	}
	for path := range s.FileTree {
		if _, ok := current[path]; !ok {
			d.Removed = append(d.Removed, path)
		}
	}
	return d
}
