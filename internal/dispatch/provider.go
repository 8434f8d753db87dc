package dispatch

import "context"

// MulticastProvider submits one batched push request addressing many tokens
// and reports a per-token outcome list positionally aligned with the input.
type MulticastProvider interface {
	// Send submits one multicast request. The returned Result has exactly
	// one outcome per input token, at the same index.
	Send(ctx context.Context, tokens []string, payload Payload) (*Result, error)

	// Name identifies the provider for logging.
	Name() string
}

// PlayerProvider submits a push addressed by player/channel ids. Its
// response carries no per-token failure mapping, so deliveries through it
// are fire-and-forget.
type PlayerProvider interface {
	// Send submits one notification to the given player ids.
	Send(ctx context.Context, playerIDs []string, payload Payload) error

	// Name identifies the provider for logging.
	Name() string
}
