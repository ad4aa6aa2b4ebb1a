package operations

import (
	"context"
	"crypto/md5"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/hive2hive/h2h/crypto"
	"github.com/hive2hive/h2h/modules/sidecar"
)

// Login implements spec §4.6's login step: fetch the current profile,
// register self as a logged-in peer, and reconcile any changes the
// local tree accumulated while this client was offline against the
// sidecar's last-known digests.
func (o *Operations) Login(ctx context.Context, rootPath, selfPeerAddress string) error {
	if _, err := o.readProfile(ctx); err != nil {
		return err
	}
	if err := o.locations.Login(ctx, o.creds.UserID, selfPeerAddress, time.Now().UTC()); err != nil {
		return err
	}

	side, err := sidecar.Load(rootPath)
	if err != nil {
		return err
	}
	current, err := scanTree(rootPath)
	if err != nil {
		return err
	}
	diff := side.Reconcile(current)
	if err := o.reconcileOfflineChanges(ctx, rootPath, diff, current, side); err != nil {
		return err
	}

	o.mu.Lock()
	o.rootPath, o.sidecar = rootPath, side
	o.mu.Unlock()
	return nil
}

// reconcileOfflineChanges folds the offline diff into the profile: added
// paths are treated as new files, changed paths as updates, removed
// paths as deletions. Individual reconciliation failures are collected
// and the first is returned after all are attempted, so one bad file
// does not block the rest of login.
func (o *Operations) reconcileOfflineChanges(ctx context.Context, rootPath string, diff sidecar.Diff, current map[string]crypto.MD5Digest, side *sidecar.Sidecar) error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	upload := func(path string, op func(context.Context, string, io.Reader, int64) error) {
		f, err := os.Open(filepath.Join(rootPath, path))
		if err != nil {
			record(err)
			return
		}
		defer f.Close()
		info, err := f.Stat()
		if err != nil {
			record(err)
			return
		}
		record(op(ctx, path, f, info.Size()))
		side.RecordFile(path, current[path])
	}

	for _, path := range diff.Added {
		upload(path, o.AddFile)
	}
	for _, path := range diff.Changed {
		upload(path, o.UpdateFile)
	}
	for _, path := range diff.Removed {
		record(o.DeleteFile(ctx, path))
		side.Forget(path)
	}
	return firstErr
}

// scanTree walks rootPath and computes the MD5 digest of every regular
// file, keyed by its path relative to rootPath.
func scanTree(rootPath string) (map[string]crypto.MD5Digest, error) {
	sidecarName := filepath.Base(sidecar.Path(rootPath))
	tree := make(map[string]crypto.MD5Digest)
	err := filepath.Walk(rootPath, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() || info.Name() == sidecarName {
			return nil
		}
		rel, err := filepath.Rel(rootPath, p)
		if err != nil {
			return err
		}
		f, err := os.Open(p)
		if err != nil {
			return err
		}
		defer f.Close()
		h := md5.New()
		if _, err := io.Copy(h, f); err != nil {
			return err
		}
		var digest crypto.MD5Digest
		copy(digest[:], h.Sum(nil))
		tree["/"+filepath.ToSlash(rel)] = digest
		return nil
	})
	if err != nil {
		return nil, err
	}
	return tree, nil
}
