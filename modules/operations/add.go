package operations

import (
	"context"
	"crypto/md5"
	"io"
	"time"

	"github.com/hive2hive/h2h/crypto"
	"github.com/hive2hive/h2h/dht"
	"github.com/hive2hive/h2h/modules"
	"github.com/hive2hive/h2h/modules/chunker"
	"github.com/hive2hive/h2h/modules/process"
)

// AddFile implements spec §4.6's add-file pipeline: chunk and upload
// content, create its meta-file, insert a FileIndex into the profile
// tree at path, and notify co-owners. content is read to completion and
// must total size bytes.
func (o *Operations) AddFile(ctx context.Context, path string, content io.Reader, size int64) error {
	if size > o.cfg.MaxFileSize {
		return modules.ErrIllegalFileLocation
	}

	var (
		chunkKey   crypto.RSAKeyPair
		metaChunks []modules.MetaChunk
		fileKey    string
	)

	precondition := process.NewStep("check preconditions", func() error {
		profile, err := o.readProfile(ctx)
		if err != nil {
			return err
		}
		dirs, name := splitPath(path)
		parent, ok := resolveFolder(profile.Root, dirs)
		if !ok {
			return ErrNotFound
		}
		if _, exists := parent.Children[name]; exists {
			return ErrAlreadyExists
		}
		return nil
	}, nil)

	var digest crypto.MD5Digest
	upload := process.NewStep("chunk and upload", func() error {
		kp, err := crypto.GenerateRSAKeyPair()
		if err != nil {
			return err
		}
		chunkKey = kp
		hasher := md5.New()
		splitter := chunker.NewSplitter(o.cfg.ChunkSize)
		cs, mcs, err := splitter.Split(io.TeeReader(content, hasher), chunkKey)
		if err != nil {
			return err
		}
		for i, c := range cs {
			params := dht.Parameters{LocationKey: mcs[i].ChunkID, ContentKey: dht.ContentKeyFileChunk, TTL: o.cfg.TTL.FileChunk}
			if err := o.dm.Put(ctx, params, chunker.EncodeChunk(c)); err != nil {
				return err
			}
		}
		metaChunks = mcs
		copy(digest[:], hasher.Sum(nil))
		return nil
	}, func(reason error) error {
		return o.deleteChunks(ctx, metaChunks)
	})

	var nodeKeypair crypto.RSAKeyPair
	createMeta := process.NewStep("create meta-file", func() error {
		kp, err := crypto.GenerateRSAKeyPair()
		if err != nil {
			return err
		}
		nodeKeypair = kp
		fileKey, err = nodePublicKeyString(nodeKeypair)
		if err != nil {
			return err
		}
		mf := &modules.MetaFile{
			NodeKey:  fileKey,
			ChunkKey: chunkKey,
			Versions: []modules.FileVersion{{Index: 0, Size: size, Timestamp: time.Now().UTC(), Chunks: metaChunks}},
		}
		encoded, err := EncodeMetaFile(mf, nodeKeypair)
		if err != nil {
			return err
		}
		params := dht.Parameters{LocationKey: metaFileKey(fileKey), ContentKey: dht.ContentKeyMetaFile, TTL: o.cfg.TTL.MetaFile}
		return o.dm.Put(ctx, params, encoded)
	}, func(reason error) error {
		if fileKey == "" {
			return nil
		}
		return o.dm.Remove(ctx, dht.Parameters{LocationKey: metaFileKey(fileKey), ContentKey: dht.ContentKeyMetaFile})
	})

	updateProfile := process.NewStep("insert into profile", func() error {
		dirs, name := splitPath(path)
		return o.mutateProfile(ctx, func(profile *modules.UserProfile) error {
			parent, ok := resolveFolder(profile.Root, dirs)
			if !ok {
				return ErrNotFound
			}
			fi := modules.NewFileIndex(name, parent, nodeKeypair)
			fi.MD5 = digest
			parent.Children[name] = fi
			return nil
		})
	}, func(reason error) error {
		dirs, name := splitPath(path)
		return o.mutateProfile(ctx, func(profile *modules.UserProfile) error {
			parent, ok := resolveFolder(profile.Root, dirs)
			if !ok {
				return nil
			}
			delete(parent.Children, name)
			return nil
		})
	})

	notify := process.NewStep("notify co-owners", func() error {
		profile, err := o.readProfile(ctx)
		if err != nil {
			return err
		}
		dirs, _ := splitPath(path)
		parent, ok := resolveFolder(profile.Root, dirs)
		if !ok {
			return nil
		}
		return o.notifier.Notify(ctx, o.shareRecipients(parent), func(recipient string) dht.Message {
			return dht.Message{Kind: "FILE_ADDED", Payload: []byte(path)}
		})
	}, nil)

	seq := process.NewSequential("add file "+path, precondition, upload, createMeta, updateProfile, notify)
	return o.execute("add file "+path, seq)
}

func (o *Operations) deleteChunks(ctx context.Context, metaChunks []modules.MetaChunk) error {
	for _, mc := range metaChunks {
		params := dht.Parameters{LocationKey: mc.ChunkID, ContentKey: dht.ContentKeyFileChunk}
		if err := o.dm.Remove(ctx, params); err != nil {
			return err
		}
	}
	return nil
}

// shareRecipients returns the userIds that should be notified of a
// change to folder: every share participant plus the owning user (whose
// other peers learn of the change via the Notifier's self-handling).
func (o *Operations) shareRecipients(folder *modules.FolderIndex) []string {
	recipients := []string{o.creds.UserID}
	for friend := range folder.Shared {
		recipients = append(recipients, friend)
	}
	return recipients
}
