package directory

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Sub-collection and field names as written by the mobile clients.
const (
	tokenRegistryCollection  = "fcm_tokens"
	playerRegistryCollection = "notification_players"

	tokensField      = "fcmTokens"
	legacyTokenField = "fcmToken"
)

// FirestoreStore is the production Store backed by Cloud Firestore.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestoreStore creates a Firestore-backed store.
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{client: client}
}

func (s *FirestoreStore) userDoc(tier Tier, uid string) *firestore.DocumentRef {
	return s.client.Collection(string(tier)).Doc(uid)
}

// GetUser retrieves a user record from one tier partition.
func (s *FirestoreStore) GetUser(ctx context.Context, tier Tier, uid string) (*UserRecord, error) {
	snap, err := s.userDoc(tier, uid).Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s/%s: %w", tier, uid, err)
	}

	rec := &UserRecord{UID: uid, Tier: tier}
	if err := snap.DataTo(rec); err != nil {
		return nil, fmt.Errorf("decode user %s/%s: %w", tier, uid, err)
	}
	return rec, nil
}

// registryEntry is a document in the fcm_tokens sub-registry.
type registryEntry struct {
	Token string `firestore:"token"`
}

// playerEntry is a document in the notification_players sub-registry.
type playerEntry struct {
	PlayerID string `firestore:"playerId"`
}

// RegistryTokens lists the tokens in the user's fcm_tokens sub-registry.
func (s *FirestoreStore) RegistryTokens(ctx context.Context, tier Tier, uid string) ([]string, error) {
	iter := s.userDoc(tier, uid).Collection(tokenRegistryCollection).Documents(ctx)
	defer iter.Stop()

	var tokens []string
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("scan token registry %s/%s: %w", tier, uid, err)
		}
		var entry registryEntry
		if err := snap.DataTo(&entry); err != nil {
			continue
		}
		if entry.Token != "" {
			tokens = append(tokens, entry.Token)
		}
	}
	return tokens, nil
}

// PlayerRegistry lists the player ids in the notification_players sub-registry.
func (s *FirestoreStore) PlayerRegistry(ctx context.Context, tier Tier, uid string) ([]string, error) {
	iter := s.userDoc(tier, uid).Collection(playerRegistryCollection).Documents(ctx)
	defer iter.Stop()

	var players []string
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("scan player registry %s/%s: %w", tier, uid, err)
		}
		var entry playerEntry
		if err := snap.DataTo(&entry); err != nil {
			continue
		}
		if entry.PlayerID != "" {
			players = append(players, entry.PlayerID)
		}
	}
	return players, nil
}

// UsersWithToken returns uids whose fcmTokens array contains the token.
func (s *FirestoreStore) UsersWithToken(ctx context.Context, tier Tier, token string) ([]string, error) {
	query := s.client.Collection(string(tier)).Where(tokensField, "array-contains", token)
	return s.queryUIDs(ctx, tier, query)
}

// UsersWithLegacyToken returns uids whose fcmToken scalar equals the token.
func (s *FirestoreStore) UsersWithLegacyToken(ctx context.Context, tier Tier, token string) ([]string, error) {
	query := s.client.Collection(string(tier)).Where(legacyTokenField, "==", token)
	return s.queryUIDs(ctx, tier, query)
}

func (s *FirestoreStore) queryUIDs(ctx context.Context, tier Tier, query firestore.Query) ([]string, error) {
	iter := query.Documents(ctx)
	defer iter.Stop()

	var uids []string
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", tier, err)
		}
		uids = append(uids, snap.Ref.ID)
	}
	return uids, nil
}

// RemoveTokenFromList removes a token from a record's fcmTokens array.
func (s *FirestoreStore) RemoveTokenFromList(ctx context.Context, tier Tier, uid, token string) error {
	_, err := s.userDoc(tier, uid).Update(ctx, []firestore.Update{
		{Path: tokensField, Value: firestore.ArrayRemove(token)},
	})
	if err != nil {
		return fmt.Errorf("remove token from %s/%s: %w", tier, uid, err)
	}
	return nil
}

// ClearLegacyToken deletes a record's deprecated fcmToken field.
func (s *FirestoreStore) ClearLegacyToken(ctx context.Context, tier Tier, uid string) error {
	_, err := s.userDoc(tier, uid).Update(ctx, []firestore.Update{
		{Path: legacyTokenField, Value: firestore.Delete},
	})
	if err != nil {
		return fmt.Errorf("clear legacy token on %s/%s: %w", tier, uid, err)
	}
	return nil
}

// DeleteRegistryToken deletes the sub-registry document keyed by the token.
func (s *FirestoreStore) DeleteRegistryToken(ctx context.Context, tier Tier, uid, token string) error {
	_, err := s.userDoc(tier, uid).Collection(tokenRegistryCollection).Doc(token).Delete(ctx)
	if err != nil {
		return fmt.Errorf("delete registry token on %s/%s: %w", tier, uid, err)
	}
	return nil
}

// SetTokens replaces the fcmTokens array and clears the fcmToken scalar.
func (s *FirestoreStore) SetTokens(ctx context.Context, tier Tier, uid string, tokens []string) error {
	_, err := s.userDoc(tier, uid).Update(ctx, []firestore.Update{
		{Path: tokensField, Value: tokens},
		{Path: legacyTokenField, Value: firestore.Delete},
	})
	if err != nil {
		return fmt.Errorf("set tokens on %s/%s: %w", tier, uid, err)
	}
	return nil
}

// ForEachUser invokes fn for every record in a tier partition.
func (s *FirestoreStore) ForEachUser(ctx context.Context, tier Tier, fn func(*UserRecord) error) error {
	iter := s.client.Collection(string(tier)).Documents(ctx)
	defer iter.Stop()

	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			return nil
		}
		if err != nil {
			return fmt.Errorf("scan %s: %w", tier, err)
		}

		rec := &UserRecord{UID: snap.Ref.ID, Tier: tier}
		if err := snap.DataTo(rec); err != nil {
			// Malformed documents are skipped, not fatal for the sweep.
			continue
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}

// Ensure FirestoreStore implements Store.
var _ Store = (*FirestoreStore)(nil)
