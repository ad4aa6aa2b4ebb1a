package dht

import (
	"context"
	"sync"

	"github.com/hive2hive/h2h/crypto"
)

type overlayKey struct {
	location crypto.Hash
	content  string
}

// InMemoryOverlay is a process-local Overlay implementation used by
// tests and by single-peer development runs. It enforces the same
// version-chain and protection-key checks a real overlay would.
type InMemoryOverlay struct {
	mu      sync.Mutex
	objects map[overlayKey]storedObject
	peers   map[PeerAddress]chan directMessage

	// Deny, if set, causes SendDirect to addresses in the set to return
	// ReplyFailure without delivering — used to simulate an "unfriendly"
	// peer in location-cleanup tests.
	Deny map[PeerAddress]bool
}

type storedObject struct {
	content    Content
	versionKey crypto.Hash
	protection *crypto.RSAKeyPair
}

type directMessage struct {
	from Message
}

// NewInMemoryOverlay returns an empty InMemoryOverlay.
func NewInMemoryOverlay() *InMemoryOverlay {
	return &InMemoryOverlay{
		objects: make(map[overlayKey]storedObject),
		peers:   make(map[PeerAddress]chan directMessage),
		Deny:    make(map[PeerAddress]bool),
	}
}

func (o *InMemoryOverlay) Get(ctx context.Context, p Parameters) (Content, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	obj, ok := o.objects[overlayKey{p.LocationKey, p.ContentKey}]
	if !ok {
		return Content{}, ErrNotFound
	}
	return obj.content, nil
}

func (o *InMemoryOverlay) Put(ctx context.Context, p Parameters, c Content) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	key := overlayKey{p.LocationKey, p.ContentKey}
	existing, ok := o.objects[key]
	if ok {
		if p.HasBasedOnKey && *p.BasedOnKey != existing.versionKey {
			return errStaleVersion
		}
		if existing.protection != nil && p.ProtectionKey == nil {
			return errProtectionMismatch
		}
	}
	o.objects[key] = storedObject{content: c, versionKey: p.VersionKey, protection: p.ProtectionKey}
	return nil
}

func (o *InMemoryOverlay) PutUnblocked(ctx context.Context, p Parameters, c Content) (Future, error) {
	f := newSyncFuture()
	go func() {
		f.settle(o.Put(ctx, p, c))
	}()
	return f, nil
}

func (o *InMemoryOverlay) Remove(ctx context.Context, p Parameters) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.objects, overlayKey{p.LocationKey, p.ContentKey})
	return nil
}

func (o *InMemoryOverlay) SendDirect(ctx context.Context, addr PeerAddress, msg Message) (AcceptanceReply, error) {
	o.mu.Lock()
	denied := o.Deny[addr]
	ch, ok := o.peers[addr]
	o.mu.Unlock()
	if denied {
		return ReplyFailure, nil
	}
	if !ok {
		return ReplyFailure, nil
	}
	select {
	case ch <- directMessage{from: msg}:
		return ReplyOK, nil
	case <-ctx.Done():
		return ReplyFutureFailure, ctx.Err()
	}
}

// Register installs a receive channel for addr so that SendDirect calls
// targeting it can be observed by tests.
func (o *InMemoryOverlay) Register(addr PeerAddress) <-chan directMessage {
	o.mu.Lock()
	defer o.mu.Unlock()
	ch := make(chan directMessage, 16)
	o.peers[addr] = ch
	return ch
}
