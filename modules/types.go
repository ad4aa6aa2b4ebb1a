// Package modules defines the shared domain types that make up the
// Hive2Hive file model: profiles, index trees, meta-files, chunks, and
// the location registry, plus the error kinds and configuration that
// every other package in this module builds on.
package modules

import (
	"encoding/hex"
	"time"

	"github.com/hive2hive/h2h/crypto"
)

// nodeKey returns the hex-encoded DER public key of kp, used as the
// stable identity of an Index node or a share participant.
func nodeKey(kp crypto.RSAKeyPair) string {
	der, err := kp.PublicKeyBytes()
	if err != nil {
		return ""
	}
	return hex.EncodeToString(der)
}

// UserCredentials identifies a user and deterministically derives their
// profile location key and profile AES key.
type UserCredentials struct {
	UserID   string
	Password string
	Pin      string
}

// ProfileAESKey derives the AES key used to encrypt this user's profile.
func (c UserCredentials) ProfileAESKey() crypto.AESKey {
	return crypto.DeriveProfileKey(c.Password, c.Pin)
}

// ProfileLocationKey derives the DHT location key under which this
// user's UserProfile is stored.
func (c UserCredentials) ProfileLocationKey() crypto.Hash {
	return crypto.HashBytes([]byte(c.UserID))
}

// UserProfile is the encrypted DHT object describing a user's virtual
// file tree. For any two successful puts, the later carries
// BasedOnKey == prior VersionKey (the hash chain the DHT uses to reject
// stale writes).
type UserProfile struct {
	UserID string

	// Root is the root folder of the user's file tree. Root.Parent is
	// always nil.
	Root *FolderIndex

	// ProtectionKey is the user's default DHT write-ACL keypair.
	ProtectionKey crypto.RSAKeyPair

	// VersionKey identifies this put of the profile.
	VersionKey crypto.Hash

	// BasedOnKey is the VersionKey of the profile this put was based on.
	// Zero value for the first ever put.
	BasedOnKey crypto.Hash
}

// Index is the common contract of FolderIndex and FileIndex: identity,
// path derivation, and a (possibly nil) parent back-edge. The back-edge
// is a weak, non-owning reference — the tree's ownership flows strictly
// from parent to children, so walking Parent never creates a cycle.
type Index interface {
	// Name is this node's path segment.
	Name() string
	// ParentIndex returns the weak parent reference, or nil at the root.
	ParentIndex() *FolderIndex
	// PublicKey is this node's stable identity.
	PublicKey() string
}

// FolderIndex is a directory node in the profile tree. Children are
// owned; Parent is a weak back-edge.
type FolderIndex struct {
	name     string
	Parent   *FolderIndex
	Keypair  crypto.RSAKeyPair
	Children map[string]Index // keyed by child Name()

	// Shared is the set of userIds this folder has been shared with
	// (spec §4.6 "Share folder"), each mapped to its protection-ACL
	// public key.
	Shared map[string]string
}

// NewFolderIndex creates a FolderIndex named name under parent (nil for
// the tree root).
func NewFolderIndex(name string, parent *FolderIndex, kp crypto.RSAKeyPair) *FolderIndex {
	return &FolderIndex{
		name:     name,
		Parent:   parent,
		Keypair:  kp,
		Children: make(map[string]Index),
		Shared:   make(map[string]string),
	}
}

func (f *FolderIndex) Name() string             { return f.name }
func (f *FolderIndex) ParentIndex() *FolderIndex { return f.Parent }
func (f *FolderIndex) PublicKey() string         { return nodeKey(f.Keypair) }

// Path walks to the root and returns the absolute slash-joined path of
// this folder, e.g. "/docs/work".
func (f *FolderIndex) Path() string {
	return indexPath(f)
}

// FileIndex is a file node in the profile tree. It references its
// meta-file by the public half of its own keypair (MetaFileKey), per
// spec §3.
type FileIndex struct {
	name    string
	Parent  *FolderIndex
	Keypair crypto.RSAKeyPair

	// MD5 is the MD5 digest of the latest plaintext content, used by the
	// downloader's pre-flight check (spec §4.7).
	MD5 crypto.MD5Digest
}

// NewFileIndex creates a FileIndex named name under parent.
func NewFileIndex(name string, parent *FolderIndex, kp crypto.RSAKeyPair) *FileIndex {
	return &FileIndex{name: name, Parent: parent, Keypair: kp}
}

func (f *FileIndex) Name() string             { return f.name }
func (f *FileIndex) ParentIndex() *FolderIndex { return f.Parent }
func (f *FileIndex) PublicKey() string         { return nodeKey(f.Keypair) }

// Path walks to the root and returns the absolute slash-joined path of
// this file.
func (f *FileIndex) Path() string {
	return indexPath(f)
}

func indexPath(idx Index) string {
	if idx.ParentIndex() == nil {
		return "/" + idx.Name()
	}
	parent := indexPath(idx.ParentIndex())
	if parent == "/" {
		parent = ""
	}
	return parent + "/" + idx.Name()
}

// MetaFile is the DHT object holding a file's version history, hybrid-
// encrypted under the owning FileIndex's keypair. Versions are sorted
// ascending by Index; the newest is the tail.
type MetaFile struct {
	// NodeKey is the public key of the FileIndex that owns this
	// meta-file.
	NodeKey string

	// Versions is sorted ascending by FileVersion.Index.
	Versions []FileVersion

	// ChunkKey hybrid-encrypts every chunk of every version of this file.
	ChunkKey crypto.RSAKeyPair
}

// Newest returns the tail FileVersion, or the zero value and false if
// there are none.
func (m *MetaFile) Newest() (FileVersion, bool) {
	if len(m.Versions) == 0 {
		return FileVersion{}, false
	}
	return m.Versions[len(m.Versions)-1], true
}

// TotalSize sums the Size of every retained version.
func (m *MetaFile) TotalSize() int64 {
	var total int64
	for _, v := range m.Versions {
		total += v.Size
	}
	return total
}

// FileVersion is one historical revision of a file's content.
type FileVersion struct {
	Index     int
	Size      int64
	Timestamp time.Time
	Chunks    []MetaChunk
}

// MetaChunk locates and authenticates one chunk of a FileVersion.
type MetaChunk struct {
	// ChunkID is the DHT location key of the Chunk object.
	ChunkID crypto.Hash

	// Order is this chunk's 0-based position within the version.
	Order int

	// ChunkHash authenticates the encrypted chunk payload.
	ChunkHash crypto.Hash
}

// Chunk is the DHT object holding one hybrid-encrypted slice of a file's
// bytes.
type Chunk struct {
	Order      int
	Ciphertext crypto.HybridCiphertext
}

// LocationEntry is one peer registered as currently logged in for a
// user.
type LocationEntry struct {
	PeerAddress string
	Timestamp   time.Time
}

// Locations is the DHT object listing a user's currently logged-in
// peers. At most one entry is marked Initial; on that peer's logout, the
// Initial role transfers to the next entry.
type Locations struct {
	UserID  string
	Entries []LocationEntry
	Initial string // PeerAddress of the initial peer, "" if empty
}

// Login appends peerAddress to the Locations, marking it initial if the
// set was empty.
func (l *Locations) Login(peerAddress string, now time.Time) {
	l.Entries = append(l.Entries, LocationEntry{PeerAddress: peerAddress, Timestamp: now})
	if l.Initial == "" {
		l.Initial = peerAddress
	}
}

// Logout removes peerAddress from the Locations, promoting the next
// remaining entry to Initial if peerAddress held that role.
func (l *Locations) Logout(peerAddress string) {
	wasInitial := l.Initial == peerAddress
	kept := l.Entries[:0]
	for _, e := range l.Entries {
		if e.PeerAddress != peerAddress {
			kept = append(kept, e)
		}
	}
	l.Entries = kept
	if wasInitial {
		if len(l.Entries) > 0 {
			l.Initial = l.Entries[0].PeerAddress
		} else {
			l.Initial = ""
		}
	}
}

// Remove deletes peerAddress from the Locations without regard to the
// initial role, promoting the next entry if needed. Used by unfriendly-
// logout cleanup (spec §4.5).
func (l *Locations) Remove(peerAddress string) {
	l.Logout(peerAddress)
}
