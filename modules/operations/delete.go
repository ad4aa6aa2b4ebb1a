package operations

import (
	"context"

	"github.com/hive2hive/h2h/dht"
	"github.com/hive2hive/h2h/modules"
	"github.com/hive2hive/h2h/modules/process"
)

// DeleteFile implements spec §4.6's delete-file pipeline: remove the
// FileIndex from the profile, delete its meta-file, delete every chunk
// of every retained version, and notify co-owners.
func (o *Operations) DeleteFile(ctx context.Context, path string) error {
	var (
		fileIdx *modules.FileIndex
		mf      *modules.MetaFile
		parent  *modules.FolderIndex
	)

	resolve := process.NewStep("resolve file", func() error {
		profile, err := o.readProfile(ctx)
		if err != nil {
			return err
		}
		p, fi, err := resolveFile(profile.Root, path)
		if err != nil {
			return err
		}
		parent, fileIdx = p, fi
		m, err := o.getMetaFile(ctx, fi)
		if err != nil {
			return err
		}
		mf = m
		return nil
	}, nil)

	removeFromProfile := process.NewStep("remove from profile", func() error {
		return o.mutateProfile(ctx, func(profile *modules.UserProfile) error {
			par, fi, err := resolveFile(profile.Root, path)
			if err != nil {
				return err
			}
			delete(par.Children, fi.Name())
			return nil
		})
	}, nil)

	deleteMeta := process.NewStep("delete meta-file", func() error {
		params := dht.Parameters{LocationKey: metaFileKey(fileIdx.PublicKey()), ContentKey: dht.ContentKeyMetaFile}
		return o.dm.Remove(ctx, params)
	}, nil)

	deleteChunks := process.NewStep("delete all chunks", func() error {
		for _, v := range mf.Versions {
			if err := o.deleteChunks(ctx, v.Chunks); err != nil {
				return err
			}
		}
		return nil
	}, nil)

	notify := process.NewStep("notify co-owners", func() error {
		return o.notifier.Notify(ctx, o.shareRecipients(parent), func(recipient string) dht.Message {
			return dht.Message{Kind: "FILE_DELETED", Payload: []byte(path)}
		})
	}, nil)

	seq := process.NewSequential("delete file "+path, resolve, removeFromProfile, deleteMeta, deleteChunks, notify)
	return o.execute("delete file "+path, seq)
}
