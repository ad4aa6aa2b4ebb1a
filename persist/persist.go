// Package persist provides the disk-facing primitives shared by every
// component that needs to durably record state between runs: JSON objects
// with a versioned header, an append-only log, and atomic file replacement.
package persist

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/NebulousLabs/fastrand"
)

const (
	persistDir = "persist"

	// tempSuffix is appended to the filename of a SafeFile while its
	// contents are still being written.
	tempSuffix = "_temp"
)

var (
	// ErrBadFilenameSuffix is returned when a persist file is loaded from a
	// path that still carries the temporary-file suffix.
	ErrBadFilenameSuffix = errors.New("persist: filename suffix indicates an incomplete write")

	// ErrBadHeader is returned when the header of a loaded persist object
	// does not match what the caller expected.
	ErrBadHeader = errors.New("persist: mismatched header")

	// ErrBadVersion is returned when the version of a loaded persist object
	// does not match what the caller expected.
	ErrBadVersion = errors.New("persist: mismatched version")
)

// Metadata identifies the expected shape of a persisted object so that
// SaveJSON/LoadJSON can refuse to load a file that belongs to a different
// object or format revision.
type Metadata struct {
	Header  string
	Version string
}

// RandomSuffix returns a random hex string, useful for disambiguating
// temporary filenames.
func RandomSuffix() string {
	return hexEncode(fastrand.Bytes(6))
}

func hexEncode(b []byte) string {
	const digits = "0123456789abcdef"
	out := make([]byte, len(b)*2)
	for i, c := range b {
		out[i*2] = digits[c>>4]
		out[i*2+1] = digits[c&0xf]
	}
	return string(out)
}

// RemoveTemp removes the temporary-suffixed sibling of filename, if any,
// left behind by an interrupted write.
func RemoveTemp(filename string) error {
	matches, err := filepath.Glob(filename + tempSuffix + "*")
	if err != nil {
		return err
	}
	for _, tmp := range matches {
		if err := os.Remove(tmp); err != nil {
			return err
		}
	}
	return nil
}

// absDir returns the absolute directory containing filename, creating it if
// necessary.
func absDir(filename string) (string, error) {
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dir, nil
}
