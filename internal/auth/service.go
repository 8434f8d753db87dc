// Package auth verifies caller identity against Firebase Auth and manages
// the admin custom claim.
package auth

import (
	"context"
	"errors"
	"fmt"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/rs/zerolog"
)

// Predefined service errors.
var (
	ErrInvalidToken = errors.New("invalid id token")
)

// adminClaim is the custom claim marking administrator accounts.
const adminClaim = "admin"

// Claims carries the verified identity of an API caller.
type Claims struct {
	UID   string
	Admin bool
}

// identityClient is the subset of the Firebase Auth client the service
// uses. *fbauth.Client satisfies it.
type identityClient interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
	SetCustomUserClaims(ctx context.Context, uid string, claims map[string]interface{}) error
}

// Service provides identity verification and claim management.
type Service struct {
	client identityClient
	logger zerolog.Logger
}

// ServiceConfig holds configuration for the auth service.
type ServiceConfig struct {
	Client *fbauth.Client
	Logger zerolog.Logger
}

// NewService creates a new auth service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		client: cfg.Client,
		logger: cfg.Logger,
	}
}

// VerifyIDToken verifies a Firebase ID token and returns the caller's
// claims. Expired, revoked, or malformed tokens yield ErrInvalidToken.
func (s *Service) VerifyIDToken(ctx context.Context, idToken string) (*Claims, error) {
	token, err := s.client.VerifyIDToken(ctx, idToken)
	if err != nil {
		s.logger.Debug().Err(err).Msg("id token verification failed")
		return nil, ErrInvalidToken
	}

	claims := &Claims{UID: token.UID}
	if admin, ok := token.Claims[adminClaim].(bool); ok {
		claims.Admin = admin
	}
	return claims, nil
}

// SetAdminClaim marks the user as an administrator. The claim is visible
// on ID tokens minted after the call.
func (s *Service) SetAdminClaim(ctx context.Context, uid string) error {
	if err := s.client.SetCustomUserClaims(ctx, uid, map[string]interface{}{adminClaim: true}); err != nil {
		return fmt.Errorf("setting admin claim for %s: %w", uid, err)
	}
	return nil
}
