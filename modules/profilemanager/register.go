package profilemanager

import (
	"context"

	"github.com/hive2hive/h2h/crypto"
	"github.com/hive2hive/h2h/dht"
	"github.com/hive2hive/h2h/modules"
)

// Register creates the brand-new, empty UserProfile spec §3 says is
// "created at registration" and puts it to the DHT under creds'
// derived location key, establishing the precondition every later
// Manager.GetUserProfile call assumes: that something is already there
// to fetch. It fails if a profile is already registered at that
// location.
func Register(ctx context.Context, cfg *modules.Configuration, creds modules.UserCredentials, dm DataManager) error {
	locationKey := creds.ProfileLocationKey()
	if _, err := dm.Get(ctx, dht.Parameters{LocationKey: locationKey, ContentKey: dht.ContentKeyUserProfile}); err == nil {
		return modules.PutFailed("profile already registered")
	}

	rootKP, err := crypto.GenerateRSAKeyPair()
	if err != nil {
		return err
	}
	protKP, err := crypto.GenerateRSAKeyPair()
	if err != nil {
		return err
	}
	profile := &modules.UserProfile{
		UserID:        creds.UserID,
		Root:          modules.NewFolderIndex("", nil, rootKP),
		ProtectionKey: protKP,
		VersionKey:    freshVersionKey(),
	}

	content, err := encryptProfile(profile, creds.ProfileAESKey())
	if err != nil {
		return modules.PutFailed(err.Error())
	}
	params := dht.Parameters{
		LocationKey:   locationKey,
		ContentKey:    dht.ContentKeyUserProfile,
		VersionKey:    profile.VersionKey,
		ProtectionKey: &protKP,
		TTL:           cfg.TTL.UserProfile,
	}
	return dm.Put(ctx, params, content)
}
