package persist

import (
	"time"

	"github.com/NebulousLabs/bolt"
)

const (
	dbHeaderKey  = "Header"
	dbVersionKey = "Version"
)

var dbMetadataBucket = []byte("Metadata")

// A BoltDatabase is a bolt.DB that additionally remembers the Metadata it
// was opened with, stored in a reserved bucket so that a later OpenDatabase
// call on the same file can detect an incompatible caller.
type BoltDatabase struct {
	*bolt.DB
	Metadata Metadata
}

// checkMetadata compares meta against the metadata stamped in the
// database's reserved bucket, returning ErrBadHeader or ErrBadVersion on a
// mismatch. A database with no stamped metadata yet always passes.
func (db *BoltDatabase) checkMetadata(meta Metadata) error {
	return db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(dbMetadataBucket)
		if b == nil {
			return nil
		}
		if string(b.Get([]byte(dbHeaderKey))) != meta.Header {
			return ErrBadHeader
		}
		if string(b.Get([]byte(dbVersionKey))) != meta.Version {
			return ErrBadVersion
		}
		return nil
	})
}

// updateMetadata stamps the database's reserved bucket with db.Metadata
// within the given (necessarily writable) transaction.
func (db *BoltDatabase) updateMetadata(tx *bolt.Tx) error {
	b, err := tx.CreateBucketIfNotExists(dbMetadataBucket)
	if err != nil {
		return err
	}
	if err := b.Put([]byte(dbHeaderKey), []byte(db.Metadata.Header)); err != nil {
		return err
	}
	return b.Put([]byte(dbVersionKey), []byte(db.Metadata.Version))
}

// OpenDatabase opens (creating if necessary) the bolt database at filename,
// stamping a fresh file with meta or verifying that an existing file's
// stamp matches it.
func OpenDatabase(meta Metadata, filename string) (*BoltDatabase, error) {
	if _, err := absDir(filename); err != nil {
		return nil, err
	}
	db, err := bolt.Open(filename, 0600, &bolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		return nil, err
	}
	bdb := &BoltDatabase{DB: db, Metadata: meta}

	err = db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(dbMetadataBucket)
		if b == nil {
			return bdb.updateMetadata(tx)
		}
		if string(b.Get([]byte(dbHeaderKey))) != meta.Header {
			return ErrBadHeader
		}
		if string(b.Get([]byte(dbVersionKey))) != meta.Version {
			return ErrBadVersion
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}
	return bdb, nil
}
