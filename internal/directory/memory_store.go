package directory

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// MemoryStore is an in-memory implementation of Store.
// This is intended for testing. Production should use FirestoreStore.
type MemoryStore struct {
	mu       sync.RWMutex
	users    map[Tier]map[string]*UserRecord
	registry map[Tier]map[string][]string // uid -> sub-registry tokens
	players  map[Tier]map[string][]string // uid -> sub-registry player ids

	// ReadErr makes every read against a tier fail, simulating an
	// unreadable partition.
	ReadErr map[Tier]error

	// WriteErr makes writes against "tier/uid" fail.
	WriteErr map[string]error

	// TokenWrites counts SetTokens calls, for convergence assertions.
	TokenWrites int
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	s := &MemoryStore{
		users:    make(map[Tier]map[string]*UserRecord),
		registry: make(map[Tier]map[string][]string),
		players:  make(map[Tier]map[string][]string),
		ReadErr:  make(map[Tier]error),
		WriteErr: make(map[string]error),
	}
	for _, t := range Tiers() {
		s.users[t] = make(map[string]*UserRecord)
		s.registry[t] = make(map[string][]string)
		s.players[t] = make(map[string][]string)
	}
	return s
}

// Put stores a user record, replacing any existing one.
func (s *MemoryStore) Put(rec *UserRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cpy := *rec
	cpy.Tokens = append([]string(nil), rec.Tokens...)
	s.users[rec.Tier][rec.UID] = &cpy
}

// PutRegistryToken adds a token to a user's sub-registry.
func (s *MemoryStore) PutRegistryToken(tier Tier, uid, token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.registry[tier][uid] = append(s.registry[tier][uid], token)
}

// PutPlayer adds a player id to a user's notification_players sub-registry.
func (s *MemoryStore) PutPlayer(tier Tier, uid, playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.players[tier][uid] = append(s.players[tier][uid], playerID)
}

// Record returns the stored record, or nil if absent.
func (s *MemoryStore) Record(tier Tier, uid string) *UserRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.users[tier][uid]
	if !ok {
		return nil
	}
	cpy := *rec
	cpy.Tokens = append([]string(nil), rec.Tokens...)
	return &cpy
}

// GetUser retrieves a user record from one tier partition.
func (s *MemoryStore) GetUser(_ context.Context, tier Tier, uid string) (*UserRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.ReadErr[tier]; err != nil {
		return nil, err
	}
	rec, ok := s.users[tier][uid]
	if !ok {
		return nil, ErrUserNotFound
	}
	cpy := *rec
	cpy.Tokens = append([]string(nil), rec.Tokens...)
	return &cpy, nil
}

// RegistryTokens lists the tokens in the user's sub-registry.
func (s *MemoryStore) RegistryTokens(_ context.Context, tier Tier, uid string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.ReadErr[tier]; err != nil {
		return nil, err
	}
	return append([]string(nil), s.registry[tier][uid]...), nil
}

// PlayerRegistry lists the player ids in the user's sub-registry.
func (s *MemoryStore) PlayerRegistry(_ context.Context, tier Tier, uid string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.ReadErr[tier]; err != nil {
		return nil, err
	}
	return append([]string(nil), s.players[tier][uid]...), nil
}

// UsersWithToken returns uids whose token array contains the token.
func (s *MemoryStore) UsersWithToken(_ context.Context, tier Tier, token string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.ReadErr[tier]; err != nil {
		return nil, err
	}
	var uids []string
	for uid, rec := range s.users[tier] {
		for _, t := range rec.Tokens {
			if t == token {
				uids = append(uids, uid)
				break
			}
		}
	}
	sort.Strings(uids)
	return uids, nil
}

// UsersWithLegacyToken returns uids whose legacy scalar equals the token.
func (s *MemoryStore) UsersWithLegacyToken(_ context.Context, tier Tier, token string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := s.ReadErr[tier]; err != nil {
		return nil, err
	}
	var uids []string
	for uid, rec := range s.users[tier] {
		if rec.LegacyToken == token {
			uids = append(uids, uid)
		}
	}
	sort.Strings(uids)
	return uids, nil
}

func (s *MemoryStore) writeErr(tier Tier, uid string) error {
	return s.WriteErr[fmt.Sprintf("%s/%s", tier, uid)]
}

// RemoveTokenFromList removes a token from a record's token array.
func (s *MemoryStore) RemoveTokenFromList(_ context.Context, tier Tier, uid, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeErr(tier, uid); err != nil {
		return err
	}
	rec, ok := s.users[tier][uid]
	if !ok {
		return nil
	}
	kept := rec.Tokens[:0]
	for _, t := range rec.Tokens {
		if t != token {
			kept = append(kept, t)
		}
	}
	rec.Tokens = kept
	return nil
}

// ClearLegacyToken deletes a record's legacy token field.
func (s *MemoryStore) ClearLegacyToken(_ context.Context, tier Tier, uid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeErr(tier, uid); err != nil {
		return err
	}
	if rec, ok := s.users[tier][uid]; ok {
		rec.LegacyToken = ""
	}
	return nil
}

// DeleteRegistryToken deletes a token's sub-registry entry.
func (s *MemoryStore) DeleteRegistryToken(_ context.Context, tier Tier, uid, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeErr(tier, uid); err != nil {
		return err
	}
	kept := s.registry[tier][uid][:0]
	for _, t := range s.registry[tier][uid] {
		if t != token {
			kept = append(kept, t)
		}
	}
	s.registry[tier][uid] = kept
	return nil
}

// SetTokens replaces a record's token array and clears the legacy scalar.
func (s *MemoryStore) SetTokens(_ context.Context, tier Tier, uid string, tokens []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.writeErr(tier, uid); err != nil {
		return err
	}
	rec, ok := s.users[tier][uid]
	if !ok {
		return ErrUserNotFound
	}
	rec.Tokens = append([]string(nil), tokens...)
	rec.LegacyToken = ""
	s.TokenWrites++
	return nil
}

// ForEachUser invokes fn for every record in a tier partition.
func (s *MemoryStore) ForEachUser(_ context.Context, tier Tier, fn func(*UserRecord) error) error {
	s.mu.RLock()
	if err := s.ReadErr[tier]; err != nil {
		s.mu.RUnlock()
		return err
	}
	uids := make([]string, 0, len(s.users[tier]))
	for uid := range s.users[tier] {
		uids = append(uids, uid)
	}
	sort.Strings(uids)
	recs := make([]*UserRecord, 0, len(uids))
	for _, uid := range uids {
		rec := *s.users[tier][uid]
		rec.Tokens = append([]string(nil), s.users[tier][uid].Tokens...)
		recs = append(recs, &rec)
	}
	s.mu.RUnlock()

	for _, rec := range recs {
		if err := fn(rec); err != nil {
			return err
		}
	}
	return nil
}

// Ensure MemoryStore implements Store.
var _ Store = (*MemoryStore)(nil)
