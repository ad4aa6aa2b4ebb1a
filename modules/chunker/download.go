package chunker

import (
	"context"
	"io"
	"os"
	"sync"

	"github.com/hive2hive/h2h/crypto"
	"github.com/hive2hive/h2h/modules"
)

// Fetcher retrieves one chunk object by its DHT location key. Callers
// typically supply a function backed by a dht.Manager.
type Fetcher interface {
	Fetch(ctx context.Context, chunkID crypto.Hash) (modules.Chunk, error)
}

// FetcherFunc adapts a plain function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, chunkID crypto.Hash) (modules.Chunk, error)

func (f FetcherFunc) Fetch(ctx context.Context, chunkID crypto.Hash) (modules.Chunk, error) {
	return f(ctx, chunkID)
}

// Downloader reassembles a file from its ordered MetaChunks, per spec
// §4.7. Chunks are fetched and decrypted concurrently; they may
// complete in any order, so Downloader buffers out-of-order arrivals
// and greedily drains the buffer into dest whenever the next expected
// Order becomes available.
type Downloader struct {
	fetcher  Fetcher
	chunkKey crypto.RSAKeyPair
}

// NewDownloader returns a Downloader that fetches chunks via fetcher
// and decrypts them under chunkKey.
func NewDownloader(fetcher Fetcher, chunkKey crypto.RSAKeyPair) *Downloader {
	return &Downloader{fetcher: fetcher, chunkKey: chunkKey}
}

type fetchResult struct {
	order int
	data  []byte
	err   error
}

// Download fetches every chunk named in metaChunks and writes their
// decrypted plaintext to dest in ascending Order. On completion, the
// buffer is guaranteed empty and every chunk has been written exactly
// once; a residual buffered chunk is reported as ErrResidualChunks.
func (d *Downloader) Download(ctx context.Context, dest io.Writer, metaChunks []modules.MetaChunk) error {
	if len(metaChunks) == 0 {
		return nil
	}

	results := make(chan fetchResult, len(metaChunks))
	var wg sync.WaitGroup
	for _, mc := range metaChunks {
		wg.Add(1)
		go func(mc modules.MetaChunk) {
			defer wg.Done()
			results <- d.fetchOne(ctx, mc)
		}(mc)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	buffer := make(map[int][]byte)
	currentOrder := 0
	for r := range results {
		if r.err != nil {
			return r.err
		}
		buffer[r.order] = r.data
		for {
			data, ok := buffer[currentOrder]
			if !ok {
				break
			}
			if _, err := dest.Write(data); err != nil {
				return err
			}
			delete(buffer, currentOrder)
			currentOrder++
		}
	}

	if len(buffer) != 0 || currentOrder != len(metaChunks) {
		return ErrResidualChunks
	}
	return nil
}

func (d *Downloader) fetchOne(ctx context.Context, mc modules.MetaChunk) fetchResult {
	chunk, err := d.fetcher.Fetch(ctx, mc.ChunkID)
	if err != nil {
		return fetchResult{err: err}
	}
	if crypto.HashObject(chunk.Ciphertext) != mc.ChunkHash {
		return fetchResult{err: ErrChunkIntegrity}
	}
	plaintext, err := crypto.HybridDecrypt(d.chunkKey.Private, chunk.Ciphertext)
	if err != nil {
		return fetchResult{err: err}
	}
	return fetchResult{order: mc.Order, data: plaintext}
}

// ShouldSkipDownload implements the downloader's pre-flight check: if
// destPath already exists and its MD5 matches want, the download is a
// no-op.
func ShouldSkipDownload(destPath string, want crypto.MD5Digest) (bool, error) {
	f, err := os.Open(destPath)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	defer f.Close()

	got, err := crypto.MD5Reader(f)
	if err != nil {
		return false, err
	}
	return got.Equal(want), nil
}
