// Package dht is the data manager façade over the distributed hash table
// overlay: a thin, keyed get/put/remove/direct-send contract. The overlay
// itself (peer discovery, routing, wire transport) is an opaque external
// collaborator; dht only defines the contract and the content envelope
// that every other package addresses it with.
package dht

import (
	"context"
	"time"

	"github.com/hive2hive/h2h/crypto"
)

// Content-key constants name the conventional slots at each location
// key. These must stay identical over the wire for interoperability with
// any other implementation of the same overlay protocol.
const (
	ContentKeyUserProfile      = "USER_PROFILE"
	ContentKeyFileChunk        = "FILE_CHUNK"
	ContentKeyLocations        = "LOCATIONS"
	ContentKeyMetaFile         = "META_FILE"
	ContentKeyUserMessageQueue = "USER_MESSAGE_QUEUE"
	ContentKeyUserPublicKey    = "USER_PUBLIC_KEY"
)

// Parameters addresses one DHT object and carries the metadata a put
// needs to participate in version chaining and access control.
type Parameters struct {
	LocationKey crypto.Hash
	ContentKey  string

	// VersionKey identifies the object being written. Optional on a get.
	VersionKey crypto.Hash

	// BasedOnKey, if set, must match the DHT's currently stored
	// VersionKey for the put to succeed; this is the hash-chain
	// staleness check.
	BasedOnKey    *crypto.Hash
	HasBasedOnKey bool

	// ProtectionKey, if set, is the write-ACL keypair the overlay checks
	// a put's signature against.
	ProtectionKey *crypto.RSAKeyPair

	// TTL is surfaced verbatim to the overlay on a put.
	TTL time.Duration
}

// Kind tags which concrete domain type a Content envelope carries,
// standing in for the source's runtime downcast of NetworkContent (see
// SPEC_FULL.md's "Dynamic cast of network content" design note).
type Kind int

const (
	KindUnknown Kind = iota
	KindUserProfile
	KindMetaFile
	KindChunk
	KindLocations
	KindEncryptedBlob
)

// Content is a DHT value tagged with the concrete type it carries. A
// mismatch between Kind and the type a caller expected is an explicit
// ErrWrongKind, never a runtime type-assertion panic.
type Content struct {
	Kind Kind
	Data []byte
}

// PeerAddress identifies a peer on the overlay's transport.
type PeerAddress string

// Message is an opaque payload delivered via SendDirect.
type Message struct {
	Kind    string
	Payload []byte
}

// AcceptanceReply is the overlay's response to a direct message.
type AcceptanceReply int

const (
	ReplyOK AcceptanceReply = iota
	ReplyFailure
	ReplyFutureFailure
)

// Future is an awaitable, cancellable handle to a non-blocking put,
// replacing the source's "uninterruptible future" shape: overlay awaits
// are modeled as interruptible, and overlays are required to honor
// cancellation.
type Future interface {
	// Await blocks until the put completes or ctx is done.
	Await(ctx context.Context) error
	// Cancel requests cooperative cancellation of the pending put.
	Cancel()
	// OnDone registers fn to run once the future settles. fn may be
	// called from any goroutine.
	OnDone(fn func(error))
}

// Overlay is the transport seam every Manager call is built on. Real
// deployments implement it over a peer-to-peer transport (see
// NetworkOverlay and PeerTransport in smux.go, with BoltOverlay in
// bolt.go supplying local storage); tests use an in-memory
// implementation.
type Overlay interface {
	Get(ctx context.Context, p Parameters) (Content, error)
	Put(ctx context.Context, p Parameters, c Content) error
	PutUnblocked(ctx context.Context, p Parameters, c Content) (Future, error)
	Remove(ctx context.Context, p Parameters) error
	SendDirect(ctx context.Context, addr PeerAddress, msg Message) (AcceptanceReply, error)
}
