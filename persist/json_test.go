package persist

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hive2hive/h2h/build"
)

// TestSaveLoadJSON creates a simple object and then tries saving and loading
// it.
func TestSaveLoadJSON(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}
	dir := filepath.Join(build.TempDir(persistDir), t.Name())
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}

	testMeta := Metadata{"Test Struct", "v1.2.1"}
	type testStruct struct {
		One   string
		Two   uint64
		Three []byte
	}

	obj1 := testStruct{"dog", 25, []byte("more dog")}
	obj1Filename := filepath.Join(dir, "obj1.json")
	if err := SaveJSON(testMeta, obj1, obj1Filename); err != nil {
		t.Fatal(err)
	}

	var obj2 testStruct
	if err := LoadJSON(testMeta, &obj2, obj1Filename); err != nil {
		t.Fatal(err)
	}
	if obj2.One != obj1.One || obj2.Two != obj1.Two || !bytes.Equal(obj2.Three, obj1.Three) {
		t.Error("persist mismatch")
	}

	// Loading directly from a temp-suffixed path is always rejected.
	if err := LoadJSON(testMeta, &obj2, obj1Filename+tempSuffix+"abcdef"); err != ErrBadFilenameSuffix {
		t.Error("did not get bad filename suffix")
	}

	// Saving the object many times concurrently should never corrupt the
	// final file: every writer targets its own randomly-suffixed temp file
	// and only the last rename wins.
	var wg sync.WaitGroup
	for i := 0; i < 250; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			SaveJSON(testMeta, obj1, obj1Filename)
		}()
	}
	wg.Wait()

	if err := LoadJSON(testMeta, &obj2, obj1Filename); err != nil {
		t.Fatal(err)
	}
	if obj2.One != obj1.One || obj2.Two != obj1.Two || !bytes.Equal(obj2.Three, obj1.Three) {
		t.Error("persist mismatch")
	}
}

// TestLoadJSONMismatch checks that LoadJSON rejects files whose header or
// version does not match the caller's expectations.
func TestLoadJSONMismatch(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}
	dir := filepath.Join(build.TempDir(persistDir), t.Name())
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}

	type testStruct struct {
		One string
	}
	filename := filepath.Join(dir, "obj.json")
	if err := SaveJSON(Metadata{"Test Struct", "v1.2.1"}, testStruct{"dog"}, filename); err != nil {
		t.Fatal(err)
	}

	var obj testStruct
	if err := LoadJSON(Metadata{"Wrong Header", "v1.2.1"}, &obj, filename); err != ErrBadHeader {
		t.Error("expected ErrBadHeader, got", err)
	}
	if err := LoadJSON(Metadata{"Test Struct", "v9.9.9"}, &obj, filename); err != ErrBadVersion {
		t.Error("expected ErrBadVersion, got", err)
	}
}

// TestSaveJSONLeavesNoTempFile checks that a successful SaveJSON call does
// not leave its temp file behind.
func TestSaveJSONLeavesNoTempFile(t *testing.T) {
	if testing.Short() {
		t.SkipNow()
	}
	dir := filepath.Join(build.TempDir(persistDir), t.Name())
	if err := os.MkdirAll(dir, 0700); err != nil {
		t.Fatal(err)
	}

	filename := filepath.Join(dir, "obj.json")
	if err := SaveJSON(Metadata{"Test Struct", "v1.2.1"}, struct{ One string }{"dog"}, filename); err != nil {
		t.Fatal(err)
	}

	matches, err := filepath.Glob(filename + tempSuffix + "*")
	if err != nil {
		t.Fatal(err)
	}
	if len(matches) != 0 {
		t.Errorf("expected no leftover temp files, found %v", matches)
	}
}
