// Package identity abstracts the external authentication collaborator.
// The daemon never performs login itself; it consumes a stable identity
// established elsewhere.
package identity

import "context"

// Identity is the authenticated user as seen by the rest of the daemon.
type Identity struct {
	UID         string
	Email       string
	DisplayName string
}

// Provider yields the current authenticated identity.
type Provider interface {
	Current(ctx context.Context) (Identity, error)
}

// Static is a fixed identity, used by tests and the [identity] config block.
type Static struct {
	Identity Identity
}

// Current returns the fixed identity.
func (s Static) Current(_ context.Context) (Identity, error) {
	return s.Identity, nil
}
