package locations

import (
	"time"

	"github.com/hive2hive/h2h/dht"
	"github.com/hive2hive/h2h/encoding"
	"github.com/hive2hive/h2h/modules"
)

// time.Time carries unexported fields the reflection-based encoding
// package cannot traverse (the same limitation the profile codec works
// around for interface fields); wireLocations swaps each Timestamp for
// a plain UnixNano int64.
type wireLocations struct {
	UserID  string
	Entries []wireEntry
	Initial string
}

type wireEntry struct {
	PeerAddress string
	UnixNano    int64
}

// EncodeLocations wraps l in the DHT content envelope stored under
// dht.ContentKeyLocations. Unlike the profile codec, the registry
// carries no secret material, so it crosses the wire unencrypted.
func EncodeLocations(l *modules.Locations) dht.Content {
	w := wireLocations{UserID: l.UserID, Initial: l.Initial}
	for _, e := range l.Entries {
		w.Entries = append(w.Entries, wireEntry{PeerAddress: e.PeerAddress, UnixNano: e.Timestamp.UnixNano()})
	}
	return dht.Content{Kind: dht.KindLocations, Data: encoding.Marshal(w)}
}

// DecodeLocations is the inverse of EncodeLocations.
func DecodeLocations(c dht.Content) (*modules.Locations, error) {
	if c.Kind != dht.KindLocations {
		return nil, dht.ErrWrongKind
	}
	var w wireLocations
	if err := encoding.Unmarshal(c.Data, &w); err != nil {
		return nil, err
	}
	l := &modules.Locations{UserID: w.UserID, Initial: w.Initial}
	for _, e := range w.Entries {
		l.Entries = append(l.Entries, modules.LocationEntry{
			PeerAddress: e.PeerAddress,
			Timestamp:   time.Unix(0, e.UnixNano).UTC(),
		})
	}
	return l, nil
}
