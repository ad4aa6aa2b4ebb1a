package operations

import (
	"context"

	"github.com/hive2hive/h2h/dht"
	"github.com/hive2hive/h2h/modules"
	"github.com/hive2hive/h2h/modules/process"
)

// MoveFile implements spec §4.6's move-file pipeline: re-parent the
// FileIndex from srcPath to destPath within the profile tree. The
// underlying DHT objects (meta-file, chunks) are unchanged. Both the
// source and destination parent folders' share participants are
// notified.
func (o *Operations) MoveFile(ctx context.Context, srcPath, destPath string) error {
	var srcParent, destParent *modules.FolderIndex

	move := process.NewStep("re-parent file", func() error {
		return o.mutateProfile(ctx, func(profile *modules.UserProfile) error {
			sp, fi, err := resolveFile(profile.Root, srcPath)
			if err != nil {
				return err
			}
			destDirs, destName := splitPath(destPath)
			dp, ok := resolveFolder(profile.Root, destDirs)
			if !ok {
				return ErrNotFound
			}
			if _, exists := dp.Children[destName]; exists {
				return ErrAlreadyExists
			}
			delete(sp.Children, fi.Name())
			moved := modules.NewFileIndex(destName, dp, fi.Keypair)
			moved.MD5 = fi.MD5
			dp.Children[destName] = moved
			srcParent, destParent = sp, dp
			return nil
		})
	}, func(reason error) error {
		return o.mutateProfile(ctx, func(profile *modules.UserProfile) error {
			_, fi, err := resolveFile(profile.Root, destPath)
			if err != nil {
				return nil
			}
			destDirs, _ := splitPath(destPath)
			dp, ok := resolveFolder(profile.Root, destDirs)
			if !ok {
				return nil
			}
			srcDirs, srcName := splitPath(srcPath)
			sp, ok := resolveFolder(profile.Root, srcDirs)
			if !ok {
				return nil
			}
			delete(dp.Children, fi.Name())
			restored := modules.NewFileIndex(srcName, sp, fi.Keypair)
			restored.MD5 = fi.MD5
			sp.Children[srcName] = restored
			return nil
		})
	})

	notify := process.NewStep("notify co-owners", func() error {
		recipients := o.shareRecipients(srcParent)
		if destParent != srcParent {
			recipients = append(recipients, o.shareRecipients(destParent)...)
		}
		return o.notifier.Notify(ctx, recipients, func(recipient string) dht.Message {
			return dht.Message{Kind: "FILE_MOVED", Payload: []byte(destPath)}
		})
	}, nil)

	seq := process.NewSequential("move file "+srcPath, move, notify)
	return o.execute("move file "+srcPath+" -> "+destPath, seq)
}
