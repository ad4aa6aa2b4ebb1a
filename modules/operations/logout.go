package operations

import "context"

// Logout implements spec §4.6's logout step: write the persistent
// sidecar accumulated since Login, remove self from Locations, and
// stop the profile manager worker.
func (o *Operations) Logout(ctx context.Context, selfPeerAddress string) error {
	o.mu.Lock()
	rootPath, side := o.rootPath, o.sidecar
	o.mu.Unlock()

	if side != nil {
		if err := side.Save(rootPath); err != nil {
			return err
		}
	}

	if err := o.locations.Logout(ctx, o.creds.UserID, selfPeerAddress); err != nil {
		return err
	}
	return o.profiles.Stop()
}
