package operations

import (
	"context"
	"encoding/hex"

	"github.com/hive2hive/h2h/dht"
	"github.com/hive2hive/h2h/modules"
	"github.com/hive2hive/h2h/modules/process"
)

// ShareFolder implements spec §4.6's share-folder pipeline: add
// friendUserID to the folder's permission set under friendProtectionKey
// (the friend's DER-encoded RSA protection public key) and notify the
// friend. Per the Open Question decision recorded in DESIGN.md, the
// folder's existing meta-files are left encrypted under their own node
// keypairs rather than re-sealed per recipient - sharing grants the
// friend knowledge of the subtree's existence and a standing
// notification channel, not a second hybrid-sealed key on every file
// already in the folder.
func (o *Operations) ShareFolder(ctx context.Context, path, friendUserID string, friendProtectionKey []byte) error {
	friendKeyHex := hex.EncodeToString(friendProtectionKey)

	addParticipant := process.NewStep("add share participant", func() error {
		return o.mutateProfile(ctx, func(profile *modules.UserProfile) error {
			folder, err := resolveFolderPath(profile.Root, path)
			if err != nil {
				return err
			}
			if _, exists := folder.Shared[friendUserID]; exists {
				return ErrAlreadyExists
			}
			folder.Shared[friendUserID] = friendKeyHex
			return nil
		})
	}, func(reason error) error {
		return o.mutateProfile(ctx, func(profile *modules.UserProfile) error {
			folder, err := resolveFolderPath(profile.Root, path)
			if err != nil {
				return nil
			}
			delete(folder.Shared, friendUserID)
			return nil
		})
	})

	notify := process.NewStep("notify friend", func() error {
		return o.notifier.Notify(ctx, []string{friendUserID}, func(recipient string) dht.Message {
			return dht.Message{Kind: "FOLDER_SHARED", Payload: []byte(path)}
		})
	}, nil)

	seq := process.NewSequential("share folder "+path, addParticipant, notify)
	return o.execute("share folder "+path+" with "+friendUserID, seq)
}
