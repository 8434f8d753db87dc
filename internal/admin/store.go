package admin

import (
	"context"
	"time"
)

// RequestStore persists admin access requests.
type RequestStore interface {
	// Get returns the request with the given id, or ErrRequestNotFound.
	Get(ctx context.Context, id string) (*Request, error)

	// ListPending returns up to limit pending requests, most recent first.
	ListPending(ctx context.Context, limit int) ([]*Request, error)

	// MarkApproved records who approved the request and when.
	MarkApproved(ctx context.Context, id, approverUID string, at time.Time) error
}

// Identity grants elevated access on the identity provider.
type Identity interface {
	// SetAdminClaim marks the user as an administrator. The claim takes
	// effect when the user's ID token is next minted.
	SetAdminClaim(ctx context.Context, uid string) error
}
