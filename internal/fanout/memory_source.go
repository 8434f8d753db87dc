package fanout

import (
	"context"
	"sync"
)

// MemorySource is an in-memory EventSource for testing.
type MemorySource struct {
	mu       sync.RWMutex
	chats    map[string][]string
	products map[string]*Product
}

// NewMemorySource creates an empty in-memory event source.
func NewMemorySource() *MemorySource {
	return &MemorySource{
		chats:    make(map[string][]string),
		products: make(map[string]*Product),
	}
}

// PutChat stores a chat's participant list.
func (s *MemorySource) PutChat(chatID string, participants ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats[chatID] = participants
}

// PutProduct stores a product.
func (s *MemorySource) PutProduct(productID, owner, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[productID] = &Product{Owner: owner, Name: name}
}

// ChatParticipants returns the participant uids of a chat.
func (s *MemorySource) ChatParticipants(_ context.Context, chatID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	participants, ok := s.chats[chatID]
	if !ok {
		return nil, ErrChatNotFound
	}
	return append([]string(nil), participants...), nil
}

// Product returns a stored product.
func (s *MemorySource) Product(_ context.Context, productID string) (*Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[productID]
	if !ok {
		return nil, ErrProductNotFound
	}
	cpy := *p
	return &cpy, nil
}

// Ensure MemorySource implements EventSource.
var _ EventSource = (*MemorySource)(nil)
