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

// UpdateFile implements spec §4.6's update-file pipeline: upload a new
// version of content, append it to the file's meta-file, apply the
// retention policy, and notify co-owners.
func (o *Operations) UpdateFile(ctx context.Context, path string, content io.Reader, size int64) error {
	if size > o.cfg.MaxFileSize {
		return modules.ErrIllegalFileLocation
	}

	var (
		fileIdx   *modules.FileIndex
		mf        *modules.MetaFile
		newChunks []modules.MetaChunk
		evicted   []modules.FileVersion
		digest    crypto.MD5Digest
	)

	acquire := process.NewStep("acquire meta-file", func() error {
		profile, err := o.readProfile(ctx)
		if err != nil {
			return err
		}
		_, fi, err := resolveFile(profile.Root, path)
		if err != nil {
			return err
		}
		fileIdx = fi
		m, err := o.getMetaFile(ctx, fi)
		if err != nil {
			return err
		}
		mf = m
		return nil
	}, nil)

	upload := process.NewStep("chunk and upload new version", func() error {
		hasher := md5.New()
		splitter := chunker.NewSplitter(o.cfg.ChunkSize)
		cs, mcs, err := splitter.Split(io.TeeReader(content, hasher), mf.ChunkKey)
		if err != nil {
			return err
		}
		for i, c := range cs {
			params := dht.Parameters{LocationKey: mcs[i].ChunkID, ContentKey: dht.ContentKeyFileChunk, TTL: o.cfg.TTL.FileChunk}
			if err := o.dm.Put(ctx, params, chunker.EncodeChunk(c)); err != nil {
				return err
			}
		}
		newChunks = mcs
		copy(digest[:], hasher.Sum(nil))
		return nil
	}, func(reason error) error {
		return o.deleteChunks(ctx, newChunks)
	})

	appendVersion := process.NewStep("append version and apply retention", func() error {
		nextIndex := 0
		if newest, ok := mf.Newest(); ok {
			nextIndex = newest.Index + 1
		}
		mf.Versions = append(mf.Versions, modules.FileVersion{
			Index:     nextIndex,
			Size:      size,
			Timestamp: time.Now().UTC(),
			Chunks:    newChunks,
		})
		evicted = applyRetentionPolicy(mf, o.cfg.MaxNumOfVersions, o.cfg.MaxSizeAllVersions)

		encoded, err := EncodeMetaFile(mf, fileIdx.Keypair)
		if err != nil {
			return err
		}
		params := dht.Parameters{LocationKey: metaFileKey(fileIdx.PublicKey()), ContentKey: dht.ContentKeyMetaFile, TTL: o.cfg.TTL.MetaFile}
		return o.dm.Put(ctx, params, encoded)
	}, nil)

	updateProfile := process.NewStep("update profile MD5", func() error {
		return o.mutateProfile(ctx, func(profile *modules.UserProfile) error {
			_, fi, err := resolveFile(profile.Root, path)
			if err != nil {
				return err
			}
			fi.MD5 = digest
			return nil
		})
	}, nil)

	deleteEvicted := process.NewStep("delete evicted chunks", func() error {
		for _, v := range evicted {
			if err := o.deleteChunks(ctx, v.Chunks); err != nil {
				return err
			}
		}
		return nil
	}, nil)

	notify := process.NewStep("notify co-owners", func() error {
		profile, err := o.readProfile(ctx)
		if err != nil {
			return err
		}
		parent := fileIdx.ParentIndex()
		if parent == nil {
			parent = profile.Root
		}
		return o.notifier.Notify(ctx, o.shareRecipients(parent), func(recipient string) dht.Message {
			return dht.Message{Kind: "FILE_UPDATED", Payload: []byte(path)}
		})
	}, nil)

	seq := process.NewSequential("update file "+path, acquire, upload, appendVersion, updateProfile, deleteEvicted, notify)
	return o.execute("update file "+path, seq)
}

// applyRetentionPolicy removes the oldest retained FileVersions from mf
// while versions.size > maxVersions or the combined size exceeds
// maxTotalSize, always keeping at least one version, and returns the
// versions it evicted.
func applyRetentionPolicy(mf *modules.MetaFile, maxVersions int, maxTotalSize int64) []modules.FileVersion {
	var evicted []modules.FileVersion
	for len(mf.Versions) > 1 && (len(mf.Versions) > maxVersions || mf.TotalSize() > maxTotalSize) {
		evicted = append(evicted, mf.Versions[0])
		mf.Versions = mf.Versions[1:]
	}
	return evicted
}

// getMetaFile fetches and decodes fi's meta-file.
func (o *Operations) getMetaFile(ctx context.Context, fi *modules.FileIndex) (*modules.MetaFile, error) {
	params := dht.Parameters{LocationKey: metaFileKey(fi.PublicKey()), ContentKey: dht.ContentKeyMetaFile}
	content, err := o.dm.Get(ctx, params)
	if err != nil {
		return nil, err
	}
	return DecodeMetaFile(content, fi.Keypair)
}
