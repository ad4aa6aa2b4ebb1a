package persist

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/NebulousLabs/bolt"
	"github.com/hive2hive/h2h/build"
)

// TestOpenDatabase tests calling OpenDatabase on a database that has not yet
// been created, an existing empty database, and an existing nonempty
// database, along with closing each of those along the way.
func TestOpenDatabase(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}

	testInputs := []struct {
		dbMetadata Metadata
		dbFilename string
	}{
		{Metadata{"", ""}, "empty"},
		{Metadata{"_", "_"}, "underscore"},
		{Metadata{"asdf", "asdf"}, "asdf"},
		{Metadata{"testHeader" + RandomSuffix(), "0.0.0"}, "testFilename" + RandomSuffix()},
		{Metadata{"你好", "版本一"}, "你好文件"},
	}

	testBuckets := [][]byte{
		[]byte("FakeBucket"),
		[]byte("FakeBucket123"),
		[]byte("Another Fake Bucket"),
		[]byte("你好好好"),
	}

	testDir := build.TempDir(persistDir, "TestOpenNewDatabase")
	if err := os.MkdirAll(testDir, 0700); err != nil {
		t.Fatal(err)
	}

	for _, in := range testInputs {
		dbFilePath := filepath.Join(testDir, in.dbFilename)

		db, err := OpenDatabase(in.dbMetadata, dbFilePath)
		if err != nil {
			t.Fatalf("OpenDatabase on a new database failed for input %v: %v", in, err)
		}
		if err := db.Close(); err != nil {
			t.Fatalf("closing a newly created database failed for input %v: %v", in, err)
		}

		db, err = OpenDatabase(in.dbMetadata, dbFilePath)
		if err != nil {
			t.Fatalf("OpenDatabase on an existing empty database failed for input %v: %v", in, err)
		}

		err = db.Update(func(tx *bolt.Tx) error {
			for _, testBucket := range testBuckets {
				if _, err := tx.CreateBucketIfNotExists(testBucket); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}

		err = db.Update(func(tx *bolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(nil)
			return err
		})
		if err != bolt.ErrBucketNameRequired {
			t.Fatalf("expected %v for a nil bucket name, got %v", bolt.ErrBucketNameRequired, err)
		}

		err = db.Update(func(tx *bolt.Tx) error {
			for _, testBucket := range testBuckets {
				b := tx.Bucket(testBucket)
				n := rand.Intn(10)
				for i := 0; i <= n; i++ {
					k := make([]byte, 10)
					rand.Read(k)
					v := make([]byte, 1e3)
					rand.Read(v)
					if err := b.Put(k, v); err != nil {
						return err
					}
				}
			}
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}

		if err := db.Close(); err != nil {
			t.Fatalf("closing a newly-filled database failed for input %v: %v", in, err)
		}

		db, err = OpenDatabase(in.dbMetadata, dbFilePath)
		if err != nil {
			t.Fatal(err)
		}
		err = db.Update(func(tx *bolt.Tx) error {
			for _, testBucket := range testBuckets {
				b := tx.Bucket(testBucket)
				return b.ForEach(func(k, v []byte) error {
					return b.Delete(k)
				})
			}
			return nil
		})
		if err != nil {
			t.Fatal(err)
		}
		if err := db.Close(); err != nil {
			t.Fatalf("closing a newly-emptied database failed for input %v: %v", in, err)
		}
		if err := os.Remove(dbFilePath); err != nil {
			t.Fatalf("removing database file failed for input %v: %v", in, err)
		}
	}
}

// TestErrPermissionOpenDatabase tests calling OpenDatabase on a database
// file with the wrong filemode (< 0600), which should result in an
// os.ErrPermission error.
func TestErrPermissionOpenDatabase(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}

	testDir := build.TempDir(persistDir, "TestErrPermissionOpenDatabase")
	if err := os.MkdirAll(testDir, 0700); err != nil {
		t.Fatal(err)
	}
	dbFilepath := filepath.Join(testDir, "Fake Filename")
	badFileModes := []os.FileMode{0000, 0001, 0040, 0200, 0313, 0577}

	for _, mode := range badFileModes {
		if _, err := os.OpenFile(dbFilepath, os.O_RDWR|os.O_CREATE, mode); err != nil {
			t.Fatal(err)
		}

		_, err := OpenDatabase(Metadata{"Fake Header", "0.0.0"}, dbFilepath)
		if !os.IsPermission(err) {
			t.Errorf("OpenDatabase with mode %o: expected permission error, got %v", mode, err)
		}
		if err := os.Remove(dbFilepath); err != nil {
			t.Error(err)
		}
	}
}

// TestErrCheckMetadata tests that checkMetadata returns an error when
// called on a BoltDatabase whose stamped metadata no longer matches.
func TestErrCheckMetadata(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}

	testDir := build.TempDir(persistDir, "TestErrCheckMetadata")
	if err := os.MkdirAll(testDir, 0700); err != nil {
		t.Fatal(err)
	}
	dbFilepath := filepath.Join(testDir, "fake_filename")

	testInputs := []struct {
		old Metadata
		new Metadata
		err error
	}{
		{Metadata{"", ""}, Metadata{"asdf", ""}, ErrBadHeader},
		{Metadata{"", ""}, Metadata{"", "asdf"}, ErrBadVersion},
		{Metadata{"bleep", "bloop"}, Metadata{"bloop", "bloop"}, ErrBadHeader},
		{Metadata{"blip", "blop"}, Metadata{"blip", "blip"}, ErrBadVersion},
	}

	for _, in := range testInputs {
		db, err := bolt.Open(dbFilepath, 0600, &bolt.Options{Timeout: 3 * time.Second})
		if err != nil {
			t.Fatal(err)
		}
		boltDB := &BoltDatabase{DB: db, Metadata: in.old}

		err = db.Update(func(tx *bolt.Tx) error {
			bucket, err := tx.CreateBucketIfNotExists(dbMetadataBucket)
			if err != nil {
				return err
			}
			if err := bucket.Put([]byte(dbHeaderKey), []byte(in.new.Header)); err != nil {
				return err
			}
			return bucket.Put([]byte(dbVersionKey), []byte(in.new.Version))
		})
		if err != nil {
			t.Errorf("stamping metadata failed for input %v: %v", in, err)
			continue
		}

		if err := boltDB.checkMetadata(in.old); err != in.err {
			t.Errorf("expected %v, got %v for input %v -> %v", in.err, err, in.old, in.new)
		}

		if err := boltDB.Close(); err != nil {
			t.Fatal(err)
		}
		if err := os.Remove(dbFilepath); err != nil {
			t.Fatal(err)
		}
	}
}

// TestErrTxNotWritable checks that updateMetadata returns an error when
// called from a read-only transaction.
func TestErrTxNotWritable(t *testing.T) {
	testDir := build.TempDir(persistDir, "TestErrTxNotWritable")
	if err := os.MkdirAll(testDir, 0700); err != nil {
		t.Fatal(err)
	}
	dbFilepath := filepath.Join(testDir, "fake_filename")

	db, err := bolt.Open(dbFilepath, 0600, &bolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	boltDB := &BoltDatabase{DB: db, Metadata: Metadata{"h", "v"}}

	tx, err := db.Begin(false)
	if err != nil {
		t.Fatal(err)
	}
	if err := boltDB.updateMetadata(tx); err != bolt.ErrTxNotWritable {
		t.Errorf("expected tx not writable, got %v", err)
	}
	tx.Rollback()

	if err := boltDB.Close(); err != nil {
		t.Fatal(err)
	}
	if err := os.Remove(dbFilepath); err != nil {
		t.Fatal(err)
	}
}

// TestErrDatabaseNotOpen tests that checkMetadata returns an error when
// called on a BoltDatabase that has already been closed.
func TestErrDatabaseNotOpen(t *testing.T) {
	testDir := build.TempDir(persistDir, "TestErrDatabaseNotOpen")
	if err := os.MkdirAll(testDir, 0700); err != nil {
		t.Fatal(err)
	}
	dbFilepath := filepath.Join(testDir, "fake_filename")
	md := Metadata{"Fake Header", "Fake Version"}

	db, err := bolt.Open(dbFilepath, 0600, &bolt.Options{Timeout: 3 * time.Second})
	if err != nil {
		t.Fatal(err)
	}
	boltDB := &BoltDatabase{DB: db, Metadata: md}
	if err := boltDB.Close(); err != nil {
		t.Fatal(err)
	}

	if err := boltDB.checkMetadata(md); err != bolt.ErrDatabaseNotOpen {
		t.Errorf("expected database not open, got %v", err)
	}
	if err := os.Remove(dbFilepath); err != nil {
		t.Error(err)
	}
}

// TestErrIntegratedCheckMetadata checks that OpenDatabase itself returns an
// error when called on a database that has already been stamped with
// different metadata.
func TestErrIntegratedCheckMetadata(t *testing.T) {
	testDir := build.TempDir(persistDir, "TestErrIntegratedCheckMetadata")
	if err := os.MkdirAll(testDir, 0700); err != nil {
		t.Fatal(err)
	}
	dbFilepath := filepath.Join(testDir, "fake_filename")
	old := Metadata{"Old Header", "Old Version"}
	new := Metadata{"New Header", "New Version"}

	boltDB, err := OpenDatabase(old, dbFilepath)
	if err != nil {
		t.Fatal(err)
	}
	if err := boltDB.Close(); err != nil {
		t.Fatal(err)
	}

	if _, err := OpenDatabase(new, dbFilepath); err != ErrBadHeader {
		t.Errorf("expected %v for %v -> %v, got %v", ErrBadHeader, old, new, err)
	}
}
