package operations

import (
	"context"
	"os"

	"github.com/hive2hive/h2h/crypto"
	"github.com/hive2hive/h2h/dht"
	"github.com/hive2hive/h2h/modules"
	"github.com/hive2hive/h2h/modules/chunker"
)

// VersionSelector presents a file's retained versions to the caller (a
// UI boundary per spec §4.6) and returns the index of the chosen
// version and the local filesystem path to write it to, alongside the
// current file.
type VersionSelector func(versions []modules.FileVersion) (index int, destPath string, err error)

// RecoverFile implements spec §4.6's recover-file pipeline: fetch path's
// meta-file, let selector choose a retained version, and download it to
// the selector-chosen destination. It does not mutate the profile.
func (o *Operations) RecoverFile(ctx context.Context, path string, selector VersionSelector) error {
	profile, err := o.readProfile(ctx)
	if err != nil {
		return err
	}
	_, fi, err := resolveFile(profile.Root, path)
	if err != nil {
		return err
	}
	mf, err := o.getMetaFile(ctx, fi)
	if err != nil {
		return err
	}

	index, destPath, err := selector(mf.Versions)
	if err != nil {
		return err
	}
	if index < 0 || index >= len(mf.Versions) {
		return ErrNotFound
	}
	version := mf.Versions[index]

	f, err := os.Create(destPath)
	if err != nil {
		return err
	}
	defer f.Close()

	fetcher := chunker.FetcherFunc(func(ctx context.Context, chunkID crypto.Hash) (modules.Chunk, error) {
		content, err := o.dm.Get(ctx, dht.Parameters{LocationKey: chunkID, ContentKey: dht.ContentKeyFileChunk})
		if err != nil {
			return modules.Chunk{}, err
		}
		return chunker.DecodeChunk(content)
	})
	downloader := chunker.NewDownloader(fetcher, mf.ChunkKey)
	return downloader.Download(ctx, f, version.Chunks)
}
