// Package reconcile removes push tokens the provider reported invalid and
// periodically normalizes the redundant token representations.
package reconcile

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/famlink/notifier/internal/directory"
	"github.com/famlink/notifier/internal/dispatch"
)

// DefaultWriteTimeout bounds each cleanup storage call.
const DefaultWriteTimeout = 5 * time.Second

// ReconcilerConfig holds configuration for the Reconciler.
type ReconcilerConfig struct {
	// Store is the document store holding the tier partitions (required).
	Store directory.Store

	// WriteTimeout bounds each storage call (optional, defaults to
	// DefaultWriteTimeout).
	WriteTimeout time.Duration

	// Logger for cleanup events.
	Logger zerolog.Logger
}

// Reconciler prunes invalid tokens from storage after a dispatch. Tokens
// become invalid when a device uninstalls the app or the provider rotates
// its registration; any non-success outcome is treated as grounds for
// removal, without distinguishing reason codes.
type Reconciler struct {
	store   directory.Store
	timeout time.Duration
	logger  zerolog.Logger
}

// NewReconciler creates a new Reconciler.
func NewReconciler(cfg ReconcilerConfig) *Reconciler {
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = DefaultWriteTimeout
	}
	return &Reconciler{
		store:   cfg.Store,
		timeout: timeout,
		logger:  cfg.Logger,
	}
}

// CleanupStats summarizes one reconciliation sweep.
type CleanupStats struct {
	Invalid int // tokens reported failed by the provider
	Removed int // record fields and registry entries cleared
	Errors  int // storage operations that failed and were skipped
}

// Reconcile removes every token with a failed outcome from all tier
// partitions and all three storage representations. The sweep is
// best-effort: each removal is attempted independently, failures are logged
// and counted, and nothing is raised to the caller. Removal is idempotent,
// so overlapping sweeps for the same token are safe without locking.
func (r *Reconciler) Reconcile(ctx context.Context, res *dispatch.Result) CleanupStats {
	var stats CleanupStats
	if res == nil {
		return stats
	}

	for _, token := range res.FailedTokens() {
		stats.Invalid++
		for _, tier := range directory.Tiers() {
			r.cleanTier(ctx, tier, token, &stats)
		}
	}

	if stats.Invalid > 0 {
		r.logger.Info().
			Int("invalid_tokens", stats.Invalid).
			Int("removed", stats.Removed).
			Int("errors", stats.Errors).
			Msg("token cleanup finished")
	}
	return stats
}

// cleanTier removes one invalid token from one tier partition: the token
// array of any record containing it, the deprecated scalar of any record
// equal to it, and the matching sub-registry documents.
func (r *Reconciler) cleanTier(ctx context.Context, tier directory.Tier, token string, stats *CleanupStats) {
	uids, err := r.withTimeoutList(ctx, func(c context.Context) ([]string, error) {
		return r.store.UsersWithToken(c, tier, token)
	})
	if err != nil {
		r.logWriteErr(err, tier, token, "query token array")
		stats.Errors++
	}
	for _, uid := range uids {
		if err := r.withTimeout(ctx, func(c context.Context) error {
			return r.store.RemoveTokenFromList(c, tier, uid, token)
		}); err != nil {
			r.logWriteErr(err, tier, token, "remove from token array")
			stats.Errors++
		} else {
			stats.Removed++
		}
		r.deleteRegistryEntry(ctx, tier, uid, token, stats)
	}

	uids, err = r.withTimeoutList(ctx, func(c context.Context) ([]string, error) {
		return r.store.UsersWithLegacyToken(c, tier, token)
	})
	if err != nil {
		r.logWriteErr(err, tier, token, "query legacy token")
		stats.Errors++
	}
	for _, uid := range uids {
		if err := r.withTimeout(ctx, func(c context.Context) error {
			return r.store.ClearLegacyToken(c, tier, uid)
		}); err != nil {
			r.logWriteErr(err, tier, token, "clear legacy token")
			stats.Errors++
		} else {
			stats.Removed++
		}
		r.deleteRegistryEntry(ctx, tier, uid, token, stats)
	}
}

func (r *Reconciler) deleteRegistryEntry(ctx context.Context, tier directory.Tier, uid, token string, stats *CleanupStats) {
	if err := r.withTimeout(ctx, func(c context.Context) error {
		return r.store.DeleteRegistryToken(c, tier, uid, token)
	}); err != nil {
		r.logWriteErr(err, tier, token, "delete registry entry")
		stats.Errors++
	}
}

func (r *Reconciler) withTimeout(ctx context.Context, fn func(context.Context) error) error {
	opCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return fn(opCtx)
}

func (r *Reconciler) withTimeoutList(ctx context.Context, fn func(context.Context) ([]string, error)) ([]string, error) {
	opCtx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return fn(opCtx)
}

func (r *Reconciler) logWriteErr(err error, tier directory.Tier, token, op string) {
	r.logger.Error().
		Err(err).
		Str("tier", string(tier)).
		Str("op", op).
		Str("token", last4(token)).
		Msg("token cleanup step failed")
}

// last4 truncates a token for logging.
func last4(token string) string {
	if len(token) <= 4 {
		return token
	}
	return "…" + token[len(token)-4:]
}
