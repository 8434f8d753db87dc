package directory

import "context"

// Store defines the document-store operations the notifier needs. It is the
// sole access path to the underlying token fields so the redundant
// representations can later be collapsed without touching call sites.
type Store interface {
	// GetUser retrieves a user record from one tier partition.
	// Returns ErrUserNotFound if no document exists for the uid.
	GetUser(ctx context.Context, tier Tier, uid string) (*UserRecord, error)

	// RegistryTokens lists the tokens held in the user's fcm_tokens
	// sub-registry.
	RegistryTokens(ctx context.Context, tier Tier, uid string) ([]string, error)

	// PlayerRegistry lists the OneSignal player ids held in the user's
	// notification_players sub-registry.
	PlayerRegistry(ctx context.Context, tier Tier, uid string) ([]string, error)

	// UsersWithToken returns the uids of records whose fcmTokens array
	// contains the given token.
	UsersWithToken(ctx context.Context, tier Tier, token string) ([]string, error)

	// UsersWithLegacyToken returns the uids of records whose deprecated
	// fcmToken scalar equals the given token.
	UsersWithLegacyToken(ctx context.Context, tier Tier, token string) ([]string, error)

	// RemoveTokenFromList removes a token from a record's fcmTokens array.
	// Removing an absent token is a no-op.
	RemoveTokenFromList(ctx context.Context, tier Tier, uid, token string) error

	// ClearLegacyToken deletes a record's deprecated fcmToken field.
	ClearLegacyToken(ctx context.Context, tier Tier, uid string) error

	// DeleteRegistryToken deletes the sub-registry document for a token.
	// Deleting an absent document is a no-op.
	DeleteRegistryToken(ctx context.Context, tier Tier, uid, token string) error

	// SetTokens replaces a record's fcmTokens array and clears the
	// deprecated fcmToken scalar in the same write.
	SetTokens(ctx context.Context, tier Tier, uid string, tokens []string) error

	// ForEachUser invokes fn for every record in a tier partition.
	// Iteration stops on the first error returned by fn.
	ForEachUser(ctx context.Context, tier Tier, fn func(*UserRecord) error) error
}
