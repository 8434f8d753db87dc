package directory

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
)

// DefaultLookupTimeout bounds each single-tier storage read so a stalled
// partition cannot block resolution of the remaining tiers.
const DefaultLookupTimeout = 5 * time.Second

// ResolverConfig holds configuration for the Resolver.
type ResolverConfig struct {
	// Store is the document store holding the tier partitions (required).
	Store Store

	// LookupTimeout bounds each per-tier storage call (optional,
	// defaults to DefaultLookupTimeout).
	LookupTimeout time.Duration

	// Logger for resolution events.
	Logger zerolog.Logger
}

// Resolver locates a user record across tier partitions and computes the
// effective token set from its redundant storage representations.
type Resolver struct {
	store   Store
	timeout time.Duration
	logger  zerolog.Logger
}

// NewResolver creates a new Resolver.
func NewResolver(cfg ResolverConfig) *Resolver {
	timeout := cfg.LookupTimeout
	if timeout <= 0 {
		timeout = DefaultLookupTimeout
	}
	return &Resolver{
		store:   cfg.Store,
		timeout: timeout,
		logger:  cfg.Logger,
	}
}

// Resolve probes tier partitions for the uid and returns the first record
// found. The hint tier, when valid, is probed first; the remaining tiers
// follow in default order. A tier whose read fails is skipped, so a single
// unreadable partition never aborts the whole resolution.
func (r *Resolver) Resolve(ctx context.Context, uid string, hint Tier) (*UserRecord, error) {
	if uid == "" {
		return nil, ErrEmptyUID
	}

	for _, tier := range ProbeOrder(hint) {
		lookupCtx, cancel := context.WithTimeout(ctx, r.timeout)
		rec, err := r.store.GetUser(lookupCtx, tier, uid)
		cancel()

		if errors.Is(err, ErrUserNotFound) {
			continue
		}
		if err != nil {
			r.logger.Warn().
				Err(err).
				Str("tier", string(tier)).
				Str("uid", uid).
				Msg("tier unreadable, skipping")
			continue
		}
		return rec, nil
	}
	return nil, ErrUserNotFound
}

// EffectiveTokens computes the deduplicated union of the record's token
// array, its deprecated scalar token, and its sub-registry entries. Empty
// entries are dropped. A failed sub-registry read is logged and the
// field-level tokens are still returned.
func (r *Resolver) EffectiveTokens(ctx context.Context, rec *UserRecord) []string {
	tokens := make([]string, 0, len(rec.Tokens)+1)
	tokens = append(tokens, rec.Tokens...)
	if rec.LegacyToken != "" {
		tokens = append(tokens, rec.LegacyToken)
	}

	readCtx, cancel := context.WithTimeout(ctx, r.timeout)
	sub, err := r.store.RegistryTokens(readCtx, rec.Tier, rec.UID)
	cancel()
	if err != nil {
		r.logger.Warn().
			Err(err).
			Str("tier", string(rec.Tier)).
			Str("uid", rec.UID).
			Msg("token sub-registry unreadable")
	} else {
		tokens = append(tokens, sub...)
	}

	return dedupe(tokens)
}

// PlayerIDs computes the deduplicated union of the record's OneSignal
// player id field and its notification_players sub-registry.
func (r *Resolver) PlayerIDs(ctx context.Context, rec *UserRecord) []string {
	var players []string
	if rec.PlayerID != "" {
		players = append(players, rec.PlayerID)
	}

	readCtx, cancel := context.WithTimeout(ctx, r.timeout)
	sub, err := r.store.PlayerRegistry(readCtx, rec.Tier, rec.UID)
	cancel()
	if err != nil {
		r.logger.Warn().
			Err(err).
			Str("tier", string(rec.Tier)).
			Str("uid", rec.UID).
			Msg("player sub-registry unreadable")
	} else {
		players = append(players, sub...)
	}

	return dedupe(players)
}

// dedupe removes empty and duplicate entries, preserving first-seen order.
func dedupe(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
