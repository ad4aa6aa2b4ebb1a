package dht

import "github.com/NebulousLabs/errors"

var (
	// ErrWrongKind is returned when a Content envelope's Kind does not
	// match what the caller expected to decode.
	ErrWrongKind = errors.New("dht: content kind mismatch")

	// ErrNotFound is returned by Get when the overlay has no object at
	// the requested location/content key.
	ErrNotFound = errors.New("dht: not found")

	errStaleVersion      = errors.New("dht: basedOnKey does not match current versionKey")
	errProtectionMismatch = errors.New("dht: protection keypair mismatch")
)
