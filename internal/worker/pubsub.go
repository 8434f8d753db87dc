// Package worker consumes notification events from Pub/Sub.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"

	"github.com/famlink/notifier/internal/fanout"
	"github.com/famlink/notifier/internal/reconcile"
)

// Envelope kinds accepted on the worker subscription.
const (
	KindChatMessage     = "chat_message"
	KindPendingAlert    = "pending_alert"
	KindCall            = "call"
	KindMarketOrder     = "market_order"
	KindMarketMessage   = "market_message"
	KindNormalizeTokens = "normalize_tokens"
)

// Envelope is the wire format for worker messages: a kind tag selecting the
// handler, and the event document itself.
type Envelope struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data,omitempty"`
}

type eventSink interface {
	HandleChatMessage(ctx context.Context, ev fanout.ChatMessage)
	HandleAlert(ctx context.Context, ev fanout.PendingAlert)
	HandleCall(ctx context.Context, ev fanout.Call)
	HandleMarketOrder(ctx context.Context, ev fanout.MarketOrder)
	HandleMarketMessage(ctx context.Context, ev fanout.MarketMessage)
}

type tokenNormalizer interface {
	NormalizeAll(ctx context.Context) reconcile.NormalizeResult
}

// PubSubHandler handles Pub/Sub messages for the worker.
type PubSubHandler struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	subscriptionName string
	sink             eventSink
	normalizer       tokenNormalizer
	logger           zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub handler.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Fanout           *fanout.Service
	Normalizer       *reconcile.Normalizer
	Logger           zerolog.Logger
}

// NewPubSubHandler creates a new Pub/Sub handler.
func NewPubSubHandler(ctx context.Context, cfg PubSubConfig) (*PubSubHandler, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)

	// Configure receive settings.
	subscriber.ReceiveSettings.MaxOutstandingMessages = 10
	subscriber.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &PubSubHandler{
		client:           client,
		subscriber:       subscriber,
		subscriptionName: cfg.SubscriptionName,
		sink:             cfg.Fanout,
		normalizer:       cfg.Normalizer,
		logger:           cfg.Logger,
	}, nil
}

// Start begins processing Pub/Sub messages.
func (h *PubSubHandler) Start(ctx context.Context) error {
	h.logger.Info().
		Str("subscription", h.subscriptionName).
		Msg("starting pubsub handler")

	return h.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		h.handleMessage(ctx, msg)
	})
}

// Close closes the Pub/Sub client.
func (h *PubSubHandler) Close() error {
	return h.client.Close()
}

func (h *PubSubHandler) handleMessage(ctx context.Context, msg *pubsub.Message) {
	startTime := time.Now()

	logger := h.logger.With().
		Str("message_id", msg.ID).
		Str("publish_time", msg.PublishTime.Format(time.RFC3339)).
		Logger()

	logger.Debug().Msg("received pubsub message")

	// Events are processed at most once: redelivering a message whose
	// fan-out already partially ran would duplicate notifications, so the
	// message is acked whether processing succeeded or not.
	if err := h.process(ctx, logger, msg.Data); err != nil {
		logger.Error().Err(err).Msg("message processing failed")
	} else {
		logger.Info().Dur("duration", time.Since(startTime)).Msg("message processed")
	}
	msg.Ack()
}

func (h *PubSubHandler) process(ctx context.Context, logger zerolog.Logger, data []byte) error {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return fmt.Errorf("parsing envelope: %w", err)
	}

	logger = logger.With().Str("kind", env.Kind).Logger()

	switch env.Kind {
	case KindChatMessage:
		var ev fanout.ChatMessage
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return fmt.Errorf("parsing %s event: %w", env.Kind, err)
		}
		h.sink.HandleChatMessage(ctx, ev)

	case KindPendingAlert:
		var ev fanout.PendingAlert
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return fmt.Errorf("parsing %s event: %w", env.Kind, err)
		}
		h.sink.HandleAlert(ctx, ev)

	case KindCall:
		var ev fanout.Call
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return fmt.Errorf("parsing %s event: %w", env.Kind, err)
		}
		h.sink.HandleCall(ctx, ev)

	case KindMarketOrder:
		var ev fanout.MarketOrder
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return fmt.Errorf("parsing %s event: %w", env.Kind, err)
		}
		h.sink.HandleMarketOrder(ctx, ev)

	case KindMarketMessage:
		var ev fanout.MarketMessage
		if err := json.Unmarshal(env.Data, &ev); err != nil {
			return fmt.Errorf("parsing %s event: %w", env.Kind, err)
		}
		h.sink.HandleMarketMessage(ctx, ev)

	case KindNormalizeTokens:
		result := h.normalizer.NormalizeAll(ctx)
		logger.Info().
			Int("scanned", result.Scanned).
			Int("updated", result.Updated).
			Int("failed", result.Failed).
			Msg("token normalization completed")
		if result.Failed > 0 {
			return fmt.Errorf("normalization left %d records unrepaired", result.Failed)
		}

	default:
		return fmt.Errorf("unknown message kind %q", env.Kind)
	}

	return nil
}
