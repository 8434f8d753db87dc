// Package fcm implements the token-based multicast provider on Firebase
// Cloud Messaging.
package fcm

import (
	"context"
	"fmt"

	"firebase.google.com/go/v4/messaging"
	"github.com/rs/zerolog"

	"github.com/famlink/notifier/internal/dispatch"
)

// ProviderName identifies this push provider.
const ProviderName = "fcm"

// multicastSender is the slice of the FCM messaging client the provider
// uses, split out so tests can substitute a fake.
type multicastSender interface {
	SendEachForMulticast(ctx context.Context, message *messaging.MulticastMessage) (*messaging.BatchResponse, error)
}

// ClientConfig holds configuration for the FCM client.
type ClientConfig struct {
	// Messaging is the initialized FCM messaging client (required).
	Messaging *messaging.Client

	// Logger for send operations.
	Logger zerolog.Logger
}

// Client sends batched multicast pushes through FCM.
type Client struct {
	sender multicastSender
	logger zerolog.Logger
}

// NewClient creates a new FCM provider client.
func NewClient(cfg ClientConfig) *Client {
	return &Client{
		sender: cfg.Messaging,
		logger: cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// Send submits one multicast request for all tokens and maps the batch
// response back onto the input positions. The FCM response is index-aligned
// with the request token list, which is what makes positional failure
// attribution safe.
func (c *Client) Send(ctx context.Context, tokens []string, payload dispatch.Payload) (*dispatch.Result, error) {
	msg := &messaging.MulticastMessage{
		Tokens: tokens,
		Notification: &messaging.Notification{
			Title: payload.Title,
			Body:  payload.Body,
		},
		Data: payload.Data,
	}

	resp, err := c.sender.SendEachForMulticast(ctx, msg)
	if err != nil {
		return nil, fmt.Errorf("fcm multicast: %w", err)
	}
	if len(resp.Responses) != len(tokens) {
		return nil, fmt.Errorf("fcm multicast: %d responses for %d tokens", len(resp.Responses), len(tokens))
	}

	result := &dispatch.Result{
		Tokens:   tokens,
		Outcomes: make([]dispatch.Outcome, len(tokens)),
	}
	for i, r := range resp.Responses {
		if r.Success {
			result.Outcomes[i] = dispatch.Outcome{Success: true}
			continue
		}
		reason := "unknown"
		if r.Error != nil {
			reason = r.Error.Error()
		}
		result.Outcomes[i] = dispatch.Outcome{Reason: reason}
		c.logger.Warn().
			Str("token", last4(tokens[i])).
			Str("reason", reason).
			Msg("fcm delivery failed")
	}
	return result, nil
}

// last4 truncates a token for logging; full tokens never hit the logs.
func last4(token string) string {
	if len(token) <= 4 {
		return token
	}
	return "…" + token[len(token)-4:]
}

// Ensure Client implements the provider interface.
var _ dispatch.MulticastProvider = (*Client)(nil)
