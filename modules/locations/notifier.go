package locations

import (
	"context"

	"github.com/hive2hive/h2h/dht"
	"github.com/hive2hive/h2h/modules"
)

// MessageFactory builds the direct message to send to recipientUserID.
// Called once per recipient so the payload can carry the recipient's
// own userId (e.g. for a share notification naming the new folder).
type MessageFactory func(recipientUserID string) dht.Message

// LocalHandler runs in-process for a self-recipient notification (the
// sending peer is itself one of userId's own devices), per spec §4.5
// step 2.
type LocalHandler func(ctx context.Context, msg dht.Message)

// Notifier fans a message out to every currently-registered peer of a
// set of recipient userIds, per spec §4.5's notification process.
type Notifier struct {
	registry *Registry
	dm       DataManager
	self     string
	local    LocalHandler
}

// NewNotifier returns a Notifier that sources Locations from registry,
// sends via dm, and additionally invokes local for any recipient equal
// to selfUserID.
func NewNotifier(registry *Registry, dm DataManager, selfUserID string, local LocalHandler) *Notifier {
	return &Notifier{registry: registry, dm: dm, self: selfUserID, local: local}
}

// Notify sends factory(recipient) to every peer registered for every
// recipient. Per recipient, delivery is attempted to every peer in its
// Locations set (not just until the first success) so that every
// logged-in device learns of the change; peers that deny contact are
// pruned from that recipient's Locations once the set has been fully
// attempted (spec §4.5 step 4, "unfriendly logout cleanup").
//
// Notify fails if every recipient ends up with zero accepted deliveries
// and no local handling occurred - an individual recipient's partial or
// total delivery failure does not fail the process (spec §4.6
// propagation policy). It also returns at once with the error when
// loading a recipient's Locations or putting its pruned Locations fails.
func (n *Notifier) Notify(ctx context.Context, recipients []string, factory MessageFactory) error {
	var anyDelivered bool
	for _, userID := range recipients {
		delivered, err := n.notifyOne(ctx, userID, factory)
		if err != nil {
			return err
		}
		if delivered {
			anyDelivered = true
		}
	}
	if !anyDelivered && len(recipients) > 0 {
		return modules.PutFailed("notification process exhausted for every recipient")
	}
	return nil
}

func (n *Notifier) notifyOne(ctx context.Context, userID string, factory MessageFactory) (bool, error) {
	loc, err := n.registry.Get(ctx, userID)
	if err != nil {
		return false, err
	}

	msg := factory(userID)
	var delivered bool
	var denied []string
	for _, e := range loc.Entries {
		reply, sendErr := n.dm.SendDirect(ctx, dht.PeerAddress(e.PeerAddress), msg)
		if sendErr == nil && reply == dht.ReplyOK {
			delivered = true
			continue
		}
		denied = append(denied, e.PeerAddress)
	}

	if userID == n.self && n.local != nil {
		n.local(ctx, msg)
		delivered = true
	}

	if len(denied) > 0 {
		if err := n.cleanup(ctx, userID, denied); err != nil {
			return delivered, err
		}
	}
	return delivered, nil
}

// cleanup re-fetches userID's Locations and removes every peer address
// in denied, per spec §4.5 step 4.
func (n *Notifier) cleanup(ctx context.Context, userID string, denied []string) error {
	loc, err := n.registry.Get(ctx, userID)
	if err != nil {
		return err
	}
	for _, addr := range denied {
		loc.Remove(addr)
	}
	return n.registry.put(ctx, loc)
}
