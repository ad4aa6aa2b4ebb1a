package modules

import "time"

// TTLConfig enumerates one DHT time-to-live per content kind. Puts must
// surface these verbatim; there is no process-level override.
type TTLConfig struct {
	UserProfile      time.Duration
	FileChunk        time.Duration
	Locations        time.Duration
	MetaFile         time.Duration
	UserMessageQueue time.Duration
	UserPublicKey    time.Duration
}

// Configuration is the immutable, constructor-injected replacement for the
// source's process-wide TTL singleton (see SPEC_FULL.md's "Global TTL
// singleton" design note). It is built once at daemon startup and passed
// by reference to every constructor that needs it; nothing here is
// mutated after construction.
type Configuration struct {
	// ChunkSize is the maximum size in bytes of a single file chunk.
	ChunkSize int64

	// MaxFileSize is the largest file size accepted by an add/update
	// operation.
	MaxFileSize int64

	// MaxNumOfVersions is the maximum number of FileVersions retained per
	// MetaFile before the oldest is evicted.
	MaxNumOfVersions int

	// MaxSizeAllVersions is the maximum combined size in bytes of all
	// retained FileVersions before the oldest is evicted.
	MaxSizeAllVersions int64

	// FileObserverInterval is the polling interval used by the (external)
	// file-system watcher; carried here only so it can be surfaced to
	// configuration consumers, per spec §6.
	FileObserverInterval time.Duration

	// MaxModificationTime bounds how long the active profile modifier may
	// hold the put slot before being aborted. Spec fixes this at 1000ms.
	MaxModificationTime time.Duration

	// ProfileAESKeyLength is the AES key length, in bytes, used to encrypt
	// the UserProfile.
	ProfileAESKeyLength int

	// RSAKeyBits is the RSA modulus size used for user/file/chunk
	// keypairs.
	RSAKeyBits int

	// TTL holds the per-content-kind TTLs.
	TTL TTLConfig
}

// DefaultConfiguration returns the configuration spec §6 describes as
// having "platform-appropriate" defaults.
func DefaultConfiguration() Configuration {
	return Configuration{
		ChunkSize:            1 << 20, // 1 MiB
		MaxFileSize:          1 << 40, // 1 TiB
		MaxNumOfVersions:     5,
		MaxSizeAllVersions:   1 << 30, // 1 GiB
		FileObserverInterval: 2 * time.Second,
		MaxModificationTime:  1000 * time.Millisecond,
		ProfileAESKeyLength:  32,
		RSAKeyBits:           2048,
		TTL: TTLConfig{
			UserProfile:      24 * time.Hour,
			FileChunk:        0, // chunks are immutable; no expiry
			Locations:        24 * time.Hour,
			MetaFile:         0,
			UserMessageQueue: time.Hour,
			UserPublicKey:    0,
		},
	}
}
