package reconcile

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/famlink/notifier/internal/directory"
)

// NormalizerConfig holds configuration for the Normalizer.
type NormalizerConfig struct {
	// Store is the document store holding the tier partitions (required).
	Store directory.Store

	// WriteTimeout bounds each storage write (optional, defaults to
	// DefaultWriteTimeout).
	WriteTimeout time.Duration

	// Logger for sweep events.
	Logger zerolog.Logger
}

// Normalizer migrates deprecated scalar tokens into the token array and
// deduplicates arrays in place. It runs on a fixed schedule over every
// record in every tier partition.
type Normalizer struct {
	store   directory.Store
	timeout time.Duration
	logger  zerolog.Logger
}

// NewNormalizer creates a new Normalizer.
func NewNormalizer(cfg NormalizerConfig) *Normalizer {
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = DefaultWriteTimeout
	}
	return &Normalizer{
		store:   cfg.Store,
		timeout: timeout,
		logger:  cfg.Logger,
	}
}

// NormalizeResult summarizes one normalization sweep.
type NormalizeResult struct {
	Scanned int
	Updated int
	Failed  int
}

// NormalizeAll sweeps every record in every tier. For each record it
// migrates the deprecated scalar token into the array when the array is
// unset, then drops empty and duplicate array entries. A write is only
// issued when the record actually changed, so a second consecutive run
// performs no writes. Per-record failures are logged and the sweep
// continues.
func (n *Normalizer) NormalizeAll(ctx context.Context) NormalizeResult {
	var result NormalizeResult

	for _, tier := range directory.Tiers() {
		err := n.store.ForEachUser(ctx, tier, func(rec *directory.UserRecord) error {
			result.Scanned++

			cleaned, changed := normalizeRecord(rec)
			if !changed {
				return nil
			}

			writeCtx, cancel := context.WithTimeout(ctx, n.timeout)
			err := n.store.SetTokens(writeCtx, tier, rec.UID, cleaned)
			cancel()
			if err != nil {
				result.Failed++
				n.logger.Warn().
					Err(err).
					Str("tier", string(tier)).
					Str("uid", rec.UID).
					Msg("token normalization write failed")
				return nil
			}
			result.Updated++
			return nil
		})
		if err != nil {
			result.Failed++
			n.logger.Error().
				Err(err).
				Str("tier", string(tier)).
				Msg("tier sweep aborted")
		}
	}

	n.logger.Info().
		Int("scanned", result.Scanned).
		Int("updated", result.Updated).
		Int("failed", result.Failed).
		Msg("token normalization finished")
	return result
}

// normalizeRecord computes the cleaned token array for one record and
// reports whether a write is needed.
func normalizeRecord(rec *directory.UserRecord) ([]string, bool) {
	tokens := rec.Tokens
	changed := false

	// Migrate the deprecated scalar only when the array is unset.
	if rec.LegacyToken != "" && rec.Tokens == nil {
		tokens = []string{rec.LegacyToken}
		changed = true
	}

	cleaned := make([]string, 0, len(tokens))
	seen := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		cleaned = append(cleaned, t)
	}
	if len(cleaned) != len(tokens) {
		changed = true
	}

	return cleaned, changed
}
