package dht

import (
	"bytes"
	"context"
	"encoding/gob"

	"github.com/NebulousLabs/bolt"
	"github.com/hive2hive/h2h/crypto"
	"github.com/hive2hive/h2h/persist"
)

var objectsBucket = []byte("Objects")

type storedRecord struct {
	Content       Content
	VersionKey    crypto.Hash
	HasProtection bool
	Protection    []byte // DER-encoded public half, presence-checked only
}

// BoltOverlay is a single-node, disk-backed Overlay: the storage half of
// a deployment's DHT object space, persisted across daemon restarts the
// way spec's "local mirror" wording calls for. It answers SendDirect
// with ReplyFailure - pair it with NetworkOverlay for real peer
// messaging.
type BoltOverlay struct {
	db *persist.BoltDatabase
}

// OpenBoltOverlay opens (creating if necessary) a BoltOverlay at
// filename.
func OpenBoltOverlay(filename string) (*BoltOverlay, error) {
	db, err := persist.OpenDatabase(persist.Metadata{Header: "H2H DHT Overlay", Version: "0.1"}, filename)
	if err != nil {
		return nil, err
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(objectsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return &BoltOverlay{db: db}, nil
}

// Close releases the underlying bolt file handle.
func (o *BoltOverlay) Close() error {
	return o.db.Close()
}

func objectKey(p Parameters) []byte {
	return append(append([]byte{}, p.LocationKey[:]...), []byte(p.ContentKey)...)
}

func (o *BoltOverlay) Get(ctx context.Context, p Parameters) (Content, error) {
	var rec storedRecord
	found := false
	err := o.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(objectsBucket).Get(objectKey(p))
		if raw == nil {
			return nil
		}
		found = true
		return gob.NewDecoder(bytes.NewReader(raw)).Decode(&rec)
	})
	if err != nil {
		return Content{}, err
	}
	if !found {
		return Content{}, ErrNotFound
	}
	return rec.Content, nil
}

func (o *BoltOverlay) Put(ctx context.Context, p Parameters, c Content) error {
	return o.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(objectsBucket)
		key := objectKey(p)

		if raw := b.Get(key); raw != nil {
			var existing storedRecord
			if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&existing); err != nil {
				return err
			}
			if p.HasBasedOnKey && existing.VersionKey != *p.BasedOnKey {
				return errStaleVersion
			}
			if existing.HasProtection && p.ProtectionKey == nil {
				return errProtectionMismatch
			}
		}

		rec := storedRecord{Content: c, VersionKey: p.VersionKey}
		if p.ProtectionKey != nil {
			der, err := p.ProtectionKey.PublicKeyBytes()
			if err != nil {
				return err
			}
			rec.HasProtection = true
			rec.Protection = der
		}

		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
			return err
		}
		return b.Put(key, buf.Bytes())
	})
}

func (o *BoltOverlay) PutUnblocked(ctx context.Context, p Parameters, c Content) (Future, error) {
	f := newSyncFuture()
	go func() {
		f.settle(o.Put(ctx, p, c))
	}()
	return f, nil
}

func (o *BoltOverlay) Remove(ctx context.Context, p Parameters) error {
	return o.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(objectsBucket).Delete(objectKey(p))
	})
}

func (o *BoltOverlay) SendDirect(ctx context.Context, addr PeerAddress, msg Message) (AcceptanceReply, error) {
	return ReplyFailure, nil
}
