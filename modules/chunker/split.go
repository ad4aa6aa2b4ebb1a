// Package chunker implements the chunk codec described in spec §4.2 and
// §4.7: splitting a file into ordered, hybrid-encrypted chunks on
// upload, and reassembling them — tolerating out-of-order arrival —on
// download.
package chunker

import (
	"io"

	"github.com/NebulousLabs/fastrand"
	"github.com/hive2hive/h2h/crypto"
	"github.com/hive2hive/h2h/modules"
)

// Splitter cuts a file into ChunkSize-sized pieces, in strict offset
// order, hybrid-encrypting each under a per-file chunkKey.
type Splitter struct {
	ChunkSize int64
}

// NewSplitter returns a Splitter that produces chunks of at most
// chunkSize bytes.
func NewSplitter(chunkSize int64) *Splitter {
	return &Splitter{ChunkSize: chunkSize}
}

// Split reads r to completion, producing one modules.Chunk and one
// modules.MetaChunk per ChunkSize-sized (or smaller, for the last)
// slice, in ascending Order. A zero-length r produces no chunks.
func (s *Splitter) Split(r io.Reader, chunkKey crypto.RSAKeyPair) ([]modules.Chunk, []modules.MetaChunk, error) {
	var chunks []modules.Chunk
	var metaChunks []modules.MetaChunk

	buf := make([]byte, s.ChunkSize)
	order := 0
	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			ct, encErr := crypto.HybridEncrypt(chunkKey.Public, buf[:n])
			if encErr != nil {
				return nil, nil, encErr
			}
			chunks = append(chunks, modules.Chunk{Order: order, Ciphertext: ct})
			metaChunks = append(metaChunks, modules.MetaChunk{
				ChunkID:   crypto.HashBytes(fastrand.Bytes(crypto.HashSize)),
				Order:     order,
				ChunkHash: crypto.HashObject(ct),
			})
			order++
		}
		if err == nil {
			continue
		}
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return chunks, metaChunks, nil
		}
		return nil, nil, err
	}
}
