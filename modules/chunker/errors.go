package chunker

import "github.com/NebulousLabs/errors"

var (
	// ErrChunkIntegrity indicates a fetched chunk's ciphertext does not
	// match its MetaChunk.ChunkHash.
	ErrChunkIntegrity = errors.New("chunker: chunk failed integrity check")

	// ErrResidualChunks indicates the downloader finished fetching every
	// chunk but some remained buffered, out of order - a protocol
	// violation per spec §4.7.
	ErrResidualChunks = errors.New("chunker: residual buffered chunks after download")
)
