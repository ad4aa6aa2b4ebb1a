package chunker

import (
	"github.com/hive2hive/h2h/dht"
	"github.com/hive2hive/h2h/encoding"
	"github.com/hive2hive/h2h/modules"
)

// EncodeChunk wraps a Chunk in the DHT content envelope stored under
// dht.ContentKeyFileChunk. The chunk's payload is already encrypted
// (modules.Chunk.Ciphertext), so unlike the profile and meta-file
// codecs this adds no further encryption layer.
func EncodeChunk(c modules.Chunk) dht.Content {
	return dht.Content{Kind: dht.KindChunk, Data: encoding.Marshal(c)}
}

// DecodeChunk is the inverse of EncodeChunk.
func DecodeChunk(c dht.Content) (modules.Chunk, error) {
	if c.Kind != dht.KindChunk {
		return modules.Chunk{}, dht.ErrWrongKind
	}
	var chunk modules.Chunk
	if err := encoding.Unmarshal(c.Data, &chunk); err != nil {
		return modules.Chunk{}, err
	}
	return chunk, nil
}
