package admin

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryRequestStore is an in-memory RequestStore for tests.
type MemoryRequestStore struct {
	mu       sync.RWMutex
	requests map[string]*Request

	// MarkErr, when set, is returned from MarkApproved.
	MarkErr error
}

// NewMemoryRequestStore creates an empty in-memory request store.
func NewMemoryRequestStore() *MemoryRequestStore {
	return &MemoryRequestStore{requests: make(map[string]*Request)}
}

var _ RequestStore = (*MemoryRequestStore)(nil)

// Put stores a request, replacing any existing one with the same id.
func (s *MemoryRequestStore) Put(req *Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *req
	s.requests[req.ID] = &cp
}

// Get returns the request with the given id.
func (s *MemoryRequestStore) Get(_ context.Context, id string) (*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	req, ok := s.requests[id]
	if !ok {
		return nil, ErrRequestNotFound
	}
	cp := *req
	return &cp, nil
}

// ListPending returns up to limit pending requests, most recent first.
func (s *MemoryRequestStore) ListPending(_ context.Context, limit int) ([]*Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var pending []*Request
	for _, req := range s.requests {
		if req.Status == StatusPending {
			cp := *req
			pending = append(pending, &cp)
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].RequestedAt.After(pending[j].RequestedAt)
	})
	if len(pending) > limit {
		pending = pending[:limit]
	}
	return pending, nil
}

// MarkApproved records who approved the request and when.
func (s *MemoryRequestStore) MarkApproved(_ context.Context, id, approverUID string, at time.Time) error {
	if s.MarkErr != nil {
		return s.MarkErr
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.requests[id]
	if !ok {
		return ErrRequestNotFound
	}
	req.Status = StatusApproved
	req.ApprovedBy = approverUID
	req.ApprovedAt = &at
	return nil
}
