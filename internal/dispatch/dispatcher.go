package dispatch

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
)

// DispatcherConfig holds configuration for the Dispatcher.
type DispatcherConfig struct {
	// Multicast is the default token-based provider (required).
	Multicast MulticastProvider

	// Players is the alternate player-id provider (optional). When set,
	// events whose target carries player ids are routed through it
	// exclusively, with a single fallback to Multicast on failure.
	Players PlayerProvider

	// Logger for dispatch events.
	Logger zerolog.Logger
}

// Dispatcher selects one provider per event, submits a single batched
// request, and returns the per-token outcome list. Provider selection is
// event-scoped: an event never mixes providers, because multicast payloads
// are provider-specific.
type Dispatcher struct {
	multicast MulticastProvider
	players   PlayerProvider
	logger    zerolog.Logger
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	return &Dispatcher{
		multicast: cfg.Multicast,
		players:   cfg.Players,
		logger:    cfg.Logger,
	}
}

// Dispatch sends one notification to every device in the target.
//
// When the alternate player provider is configured and the target carries
// player ids, it is preferred and the token provider is skipped for this
// event. If the alternate submission fails, the dispatcher falls back to the
// token provider exactly once. A player-provider delivery yields an empty
// Result: its response has no positional failure mapping, so there is
// nothing to reconcile.
func (d *Dispatcher) Dispatch(ctx context.Context, target Target, payload Payload) (*Result, error) {
	if d.players != nil && len(target.PlayerIDs) > 0 {
		err := d.players.Send(ctx, target.PlayerIDs, payload)
		if err == nil {
			d.logger.Info().
				Str("provider", d.players.Name()).
				Int("players", len(target.PlayerIDs)).
				Msg("notification dispatched")
			return &Result{}, nil
		}

		if len(target.Tokens) == 0 {
			return nil, fmt.Errorf("%s submission failed with no fallback tokens: %w", d.players.Name(), err)
		}
		d.logger.Warn().
			Err(err).
			Str("provider", d.players.Name()).
			Str("fallback", d.multicast.Name()).
			Msg("alternate provider failed, falling back")
	}

	if len(target.Tokens) == 0 {
		return nil, ErrNoTokens
	}

	res, err := d.multicast.Send(ctx, target.Tokens, payload)
	if err != nil {
		return nil, fmt.Errorf("%s submission failed: %w", d.multicast.Name(), err)
	}
	if len(res.Outcomes) != len(res.Tokens) {
		return nil, fmt.Errorf("%s returned %d outcomes for %d tokens", d.multicast.Name(), len(res.Outcomes), len(res.Tokens))
	}

	d.logger.Info().
		Str("provider", d.multicast.Name()).
		Int("tokens", len(res.Tokens)).
		Int("delivered", res.SuccessCount()).
		Msg("notification dispatched")
	return res, nil
}
