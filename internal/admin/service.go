package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

// DefaultListLimit bounds ListPending when the caller gives no limit.
const DefaultListLimit = 50

// ServiceConfig holds configuration for the admin Service.
type ServiceConfig struct {
	Store    RequestStore
	Identity Identity
	Logger   zerolog.Logger
}

// Service approves and lists admin access requests.
type Service struct {
	store    RequestStore
	identity Identity
	logger   zerolog.Logger
	now      func() time.Time
}

// NewService creates a new admin service.
func NewService(cfg ServiceConfig) *Service {
	return &Service{
		store:    cfg.Store,
		identity: cfg.Identity,
		logger:   cfg.Logger,
		now:      time.Now,
	}
}

// Approve grants the admin claim to the requesting user and marks the
// request approved. The claim is granted before the request document is
// updated: if the document write fails, a retry re-grants an idempotent
// claim rather than leaving an approved document without the claim.
func (s *Service) Approve(ctx context.Context, requestID, approverUID string) (*Request, error) {
	req, err := s.store.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status == StatusApproved {
		return nil, ErrAlreadyApproved
	}

	if err := s.identity.SetAdminClaim(ctx, req.UID); err != nil {
		return nil, fmt.Errorf("granting admin claim to %s: %w", req.UID, err)
	}

	at := s.now()
	if err := s.store.MarkApproved(ctx, requestID, approverUID, at); err != nil {
		return nil, err
	}

	req.Status = StatusApproved
	req.ApprovedBy = approverUID
	req.ApprovedAt = &at

	s.logger.Info().
		Str("request_id", requestID).
		Str("uid", req.UID).
		Str("approved_by", approverUID).
		Msg("admin request approved")
	return req, nil
}

// ListPending returns pending requests, most recent first. A non-positive
// limit falls back to DefaultListLimit.
func (s *Service) ListPending(ctx context.Context, limit int) ([]*Request, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	return s.store.ListPending(ctx, limit)
}
