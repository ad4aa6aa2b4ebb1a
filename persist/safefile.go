package persist

import (
	"os"
	"path/filepath"
)

// A SafeFile writes to a temporary sibling of its final destination and
// only renames it into place on Commit, so that a crash mid-write never
// leaves a half-written file at the destination path. Both paths are
// resolved to absolute form up front, so that an intervening os.Chdir
// between creation and Commit cannot change where the file ends up.
type SafeFile struct {
	*os.File
	finalName string
	tempName  string
}

// NewSafeFile creates a SafeFile whose eventual destination is finalName.
func NewSafeFile(finalName string) (*SafeFile, error) {
	absFinal, err := filepath.Abs(finalName)
	if err != nil {
		return nil, err
	}
	if _, err := absDir(absFinal); err != nil {
		return nil, err
	}
	tempName := absFinal + tempSuffix + RandomSuffix()
	f, err := os.OpenFile(tempName, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return nil, err
	}
	return &SafeFile{File: f, finalName: absFinal, tempName: tempName}, nil
}

// Commit flushes the file to disk and atomically renames it to its final
// destination.
func (sf *SafeFile) Commit() error {
	if err := sf.Sync(); err != nil {
		return err
	}
	if err := sf.Close(); err != nil {
		return err
	}
	return os.Rename(sf.tempName, sf.finalName)
}

// Close closes the underlying temp file without committing it, leaving the
// destination path untouched.
func (sf *SafeFile) Close() error {
	return sf.File.Close()
}

// Remove discards the temp file entirely.
func (sf *SafeFile) Remove() error {
	sf.File.Close()
	return os.Remove(sf.tempName)
}
