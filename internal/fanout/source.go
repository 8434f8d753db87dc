package fanout

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Source lookup errors.
var (
	ErrChatNotFound    = errors.New("chat not found")
	ErrProductNotFound = errors.New("product not found")
)

// Product is the slice of a market product document the fan-out needs.
type Product struct {
	Owner string `firestore:"owner"`
	Name  string `firestore:"name"`
}

// EventSource resolves the referenced documents a trigger needs beyond the
// triggering document itself.
type EventSource interface {
	// ChatParticipants returns the participant uids of a chat.
	ChatParticipants(ctx context.Context, chatID string) ([]string, error)

	// Product returns the product a market order item references.
	Product(ctx context.Context, productID string) (*Product, error)
}

// FirestoreSource is the production EventSource backed by Cloud Firestore.
type FirestoreSource struct {
	client *firestore.Client
}

// NewFirestoreSource creates a Firestore-backed event source.
func NewFirestoreSource(client *firestore.Client) *FirestoreSource {
	return &FirestoreSource{client: client}
}

// ChatParticipants returns the participants field of chats/{chatID}.
func (s *FirestoreSource) ChatParticipants(ctx context.Context, chatID string) ([]string, error) {
	snap, err := s.client.Collection("chats").Doc(chatID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrChatNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get chat %s: %w", chatID, err)
	}

	var chat struct {
		Participants []string `firestore:"participants"`
	}
	if err := snap.DataTo(&chat); err != nil {
		return nil, fmt.Errorf("decode chat %s: %w", chatID, err)
	}
	return chat.Participants, nil
}

// Product returns market_products/{productID}.
func (s *FirestoreSource) Product(ctx context.Context, productID string) (*Product, error) {
	snap, err := s.client.Collection("market_products").Doc(productID).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrProductNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get product %s: %w", productID, err)
	}

	var p Product
	if err := snap.DataTo(&p); err != nil {
		return nil, fmt.Errorf("decode product %s: %w", productID, err)
	}
	return &p, nil
}

// Ensure FirestoreSource implements EventSource.
var _ EventSource = (*FirestoreSource)(nil)
