// Package locations implements the location registry and peer
// notification process described in spec §4.5: a per-user DHT object
// listing currently logged-in peers, and the direct-message fan-out
// that keeps co-owning peers in sync after a tree mutation.
package locations

import (
	"context"
	"sync"
	"time"

	"github.com/NebulousLabs/errors"
	"github.com/hive2hive/h2h/crypto"
	"github.com/hive2hive/h2h/dht"
	"github.com/hive2hive/h2h/modules"
)

// DataManager is the subset of dht.Overlay the registry and notifier
// need. Defined locally (rather than depending on dht.Manager) so Get
// failures retain dht.ErrNotFound's identity instead of the
// string-wrapped modules.GetFailed a Manager façade would produce -
// the registry must tell "nothing registered yet" apart from a real
// fault.
type DataManager interface {
	Get(ctx context.Context, p dht.Parameters) (dht.Content, error)
	Put(ctx context.Context, p dht.Parameters, c dht.Content) error
	SendDirect(ctx context.Context, addr dht.PeerAddress, msg dht.Message) (dht.AcceptanceReply, error)
}

// Registry reads and mutates one Locations object per userId. Mutations
// are serialized locally with a mutex; this does not protect against a
// concurrent writer on another node, matching spec's silence on a
// hash-chain requirement for Locations (unlike the profile).
type Registry struct {
	dm DataManager
	mu sync.Mutex
}

// NewRegistry returns a Registry backed by dm.
func NewRegistry(dm DataManager) *Registry {
	return &Registry{dm: dm}
}

func locationKey(userID string) crypto.Hash {
	return crypto.HashBytes([]byte(userID))
}

// Get returns the current Locations for userID, or an empty one if none
// has ever been put.
func (r *Registry) Get(ctx context.Context, userID string) (*modules.Locations, error) {
	content, err := r.dm.Get(ctx, dht.Parameters{LocationKey: locationKey(userID), ContentKey: dht.ContentKeyLocations})
	if errors.Contains(err, dht.ErrNotFound) {
		return &modules.Locations{UserID: userID}, nil
	}
	if err != nil {
		return nil, modules.GetFailed(err.Error())
	}
	return DecodeLocations(content)
}

func (r *Registry) put(ctx context.Context, loc *modules.Locations) error {
	params := dht.Parameters{LocationKey: locationKey(loc.UserID), ContentKey: dht.ContentKeyLocations}
	if err := r.dm.Put(ctx, params, EncodeLocations(loc)); err != nil {
		return modules.PutFailed(err.Error())
	}
	return nil
}

// Login appends peerAddress to userID's Locations, marking it initial
// if the set was empty, per spec §4.5.
func (r *Registry) Login(ctx context.Context, userID, peerAddress string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	loc, err := r.Get(ctx, userID)
	if err != nil {
		return err
	}
	loc.Login(peerAddress, now)
	return r.put(ctx, loc)
}

// Logout removes peerAddress from userID's Locations, per spec §4.5.
func (r *Registry) Logout(ctx context.Context, userID, peerAddress string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	loc, err := r.Get(ctx, userID)
	if err != nil {
		return err
	}
	loc.Logout(peerAddress)
	return r.put(ctx, loc)
}
