package dht

import (
	"context"

	"github.com/hive2hive/h2h/modules"
)

// A Manager is the typed data-manager façade described in spec §4.1,
// wrapping an Overlay with the encode/decode and error-kind mapping
// every caller needs (GetFailed/PutFailed per spec §7).
type Manager struct {
	overlay Overlay
}

// NewManager returns a Manager backed by overlay.
func NewManager(overlay Overlay) *Manager {
	return &Manager{overlay: overlay}
}

// Get performs a blocking get, mapping any overlay error to GetFailed.
func (m *Manager) Get(ctx context.Context, p Parameters) (Content, error) {
	c, err := m.overlay.Get(ctx, p)
	if err != nil {
		return Content{}, modules.GetFailed(err.Error())
	}
	return c, nil
}

// Put performs a blocking put, mapping any overlay error to PutFailed.
func (m *Manager) Put(ctx context.Context, p Parameters, c Content) error {
	if err := m.overlay.Put(ctx, p, c); err != nil {
		return modules.PutFailed(err.Error())
	}
	return nil
}

// PutUnblocked performs a non-blocking put, returning an awaitable
// Future.
func (m *Manager) PutUnblocked(ctx context.Context, p Parameters, c Content) (Future, error) {
	f, err := m.overlay.PutUnblocked(ctx, p, c)
	if err != nil {
		return nil, modules.PutFailed(err.Error())
	}
	return f, nil
}

// Remove deletes the object at p.
func (m *Manager) Remove(ctx context.Context, p Parameters) error {
	if err := m.overlay.Remove(ctx, p); err != nil {
		return modules.PutFailed(err.Error())
	}
	return nil
}

// SendDirect sends msg to addr, returning the overlay's acceptance
// reply.
func (m *Manager) SendDirect(ctx context.Context, addr PeerAddress, msg Message) (AcceptanceReply, error) {
	reply, err := m.overlay.SendDirect(ctx, addr, msg)
	if err != nil {
		return ReplyFailure, modules.PutFailed(err.Error())
	}
	return reply, nil
}
