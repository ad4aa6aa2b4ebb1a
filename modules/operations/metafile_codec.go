package operations

import (
	"crypto/x509"
	"encoding/json"
	"time"

	"github.com/hive2hive/h2h/crypto"
	"github.com/hive2hive/h2h/dht"
	"github.com/hive2hive/h2h/encoding"
	"github.com/hive2hive/h2h/modules"
)

// MetaFile.Versions carries time.Time and MetaFile.ChunkKey carries RSA
// key pointers, neither of which package encoding's reflection marshaler
// can traverse (the same limitation modules/profilemanager and
// modules/locations each work around for their own domain type).
// wireMetaFile is the flattened, interface-and-pointer-free mirror that
// actually crosses the wire.
type wireMetaFile struct {
	NodeKey         string
	ChunkKeyPublic  []byte
	ChunkKeyPrivate []byte
	Versions        []wireVersion
}

type wireVersion struct {
	Index    int
	Size     int64
	UnixNano int64
	Chunks   []modules.MetaChunk
}

func toWireMetaFile(mf *modules.MetaFile) (wireMetaFile, error) {
	pub, err := x509.MarshalPKIXPublicKey(mf.ChunkKey.Public)
	if err != nil {
		return wireMetaFile{}, err
	}
	w := wireMetaFile{
		NodeKey:         mf.NodeKey,
		ChunkKeyPublic:  pub,
		ChunkKeyPrivate: x509.MarshalPKCS1PrivateKey(mf.ChunkKey.Private),
	}
	for _, v := range mf.Versions {
		w.Versions = append(w.Versions, wireVersion{
			Index:    v.Index,
			Size:     v.Size,
			UnixNano: v.Timestamp.UnixNano(),
			Chunks:   v.Chunks,
		})
	}
	return w, nil
}

func fromWireMetaFile(w wireMetaFile) (*modules.MetaFile, error) {
	pub, err := crypto.ParseRSAPublicKey(w.ChunkKeyPublic)
	if err != nil {
		return nil, err
	}
	priv, err := x509.ParsePKCS1PrivateKey(w.ChunkKeyPrivate)
	if err != nil {
		return nil, err
	}
	mf := &modules.MetaFile{
		NodeKey:  w.NodeKey,
		ChunkKey: crypto.RSAKeyPair{Public: pub, Private: priv},
	}
	for _, v := range w.Versions {
		mf.Versions = append(mf.Versions, modules.FileVersion{
			Index:     v.Index,
			Size:      v.Size,
			Timestamp: time.Unix(0, v.UnixNano).UTC(),
			Chunks:    v.Chunks,
		})
	}
	return mf, nil
}

// EncodeMetaFile hybrid-encrypts mf under nodeKey (the owning FileIndex's
// keypair, per spec §4.6's "put hybrid-encrypted under the node
// keypair") and wraps it in the DHT content envelope.
func EncodeMetaFile(mf *modules.MetaFile, nodeKey crypto.RSAKeyPair) (dht.Content, error) {
	w, err := toWireMetaFile(mf)
	if err != nil {
		return dht.Content{}, err
	}
	ct, err := crypto.HybridEncrypt(nodeKey.Public, encoding.Marshal(w))
	if err != nil {
		return dht.Content{}, err
	}
	data, err := json.Marshal(ct)
	if err != nil {
		return dht.Content{}, err
	}
	return dht.Content{Kind: dht.KindMetaFile, Data: data}, nil
}

// DecodeMetaFile is the inverse of EncodeMetaFile.
func DecodeMetaFile(c dht.Content, nodeKey crypto.RSAKeyPair) (*modules.MetaFile, error) {
	if c.Kind != dht.KindMetaFile {
		return nil, dht.ErrWrongKind
	}
	var ct crypto.HybridCiphertext
	if err := json.Unmarshal(c.Data, &ct); err != nil {
		return nil, err
	}
	plaintext, err := crypto.HybridDecrypt(nodeKey.Private, ct)
	if err != nil {
		return nil, err
	}
	var w wireMetaFile
	if err := encoding.Unmarshal(plaintext, &w); err != nil {
		return nil, err
	}
	return fromWireMetaFile(w)
}
