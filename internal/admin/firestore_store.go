package admin

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const requestsCollection = "admin_requests"

// FirestoreRequestStore is the production RequestStore backed by Cloud
// Firestore.
type FirestoreRequestStore struct {
	client *firestore.Client
}

// NewFirestoreRequestStore creates a Firestore-backed request store.
func NewFirestoreRequestStore(client *firestore.Client) *FirestoreRequestStore {
	return &FirestoreRequestStore{client: client}
}

var _ RequestStore = (*FirestoreRequestStore)(nil)

// Get returns the request with the given id.
func (s *FirestoreRequestStore) Get(ctx context.Context, id string) (*Request, error) {
	snap, err := s.client.Collection(requestsCollection).Doc(id).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get admin request %s: %w", id, err)
	}

	req := &Request{ID: id}
	if err := snap.DataTo(req); err != nil {
		return nil, fmt.Errorf("decode admin request %s: %w", id, err)
	}
	return req, nil
}

// ListPending returns up to limit pending requests, most recent first.
func (s *FirestoreRequestStore) ListPending(ctx context.Context, limit int) ([]*Request, error) {
	iter := s.client.Collection(requestsCollection).
		Where("status", "==", StatusPending).
		OrderBy("requestedAt", firestore.Desc).
		Limit(limit).
		Documents(ctx)
	defer iter.Stop()

	var requests []*Request
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list admin requests: %w", err)
		}
		req := &Request{ID: snap.Ref.ID}
		if err := snap.DataTo(req); err != nil {
			continue
		}
		requests = append(requests, req)
	}
	return requests, nil
}

// MarkApproved records who approved the request and when.
func (s *FirestoreRequestStore) MarkApproved(ctx context.Context, id, approverUID string, at time.Time) error {
	_, err := s.client.Collection(requestsCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "status", Value: StatusApproved},
		{Path: "approvedBy", Value: approverUID},
		{Path: "approvedAt", Value: at},
	})
	if status.Code(err) == codes.NotFound {
		return ErrRequestNotFound
	}
	if err != nil {
		return fmt.Errorf("approve admin request %s: %w", id, err)
	}
	return nil
}
