// Package directory locates user records across tier partitions and exposes
// their device push tokens.
package directory

import "errors"

// Lookup errors.
var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmptyUID     = errors.New("uid must not be empty")
)

// Tier identifies one of the user collections segmenting accounts by class.
type Tier string

const (
	TierClassic    Tier = "classic_users"
	TierPro        Tier = "pro_users"
	TierEnterprise Tier = "enterprise_users"
)

// defaultTierOrder is the fixed probe order when no hint is given.
var defaultTierOrder = []Tier{TierClassic, TierPro, TierEnterprise}

// Tiers returns all tier partitions in default probe order.
func Tiers() []Tier {
	out := make([]Tier, len(defaultTierOrder))
	copy(out, defaultTierOrder)
	return out
}

// Valid reports whether t names a known tier partition.
func (t Tier) Valid() bool {
	switch t {
	case TierClassic, TierPro, TierEnterprise:
		return true
	}
	return false
}

// ProbeOrder returns the tier probe sequence: the hint first when valid,
// then the remaining tiers in default order.
func ProbeOrder(hint Tier) []Tier {
	if !hint.Valid() {
		return Tiers()
	}
	out := make([]Tier, 0, len(defaultTierOrder))
	out = append(out, hint)
	for _, t := range defaultTierOrder {
		if t != hint {
			out = append(out, t)
		}
	}
	return out
}

// UserRecord is a user document as stored in a tier partition. The push
// token set is held redundantly: the fcmTokens array, the deprecated
// fcmToken scalar, and the fcm_tokens sub-registry. Use
// Resolver.EffectiveTokens to read the combined set.
type UserRecord struct {
	UID  string `firestore:"-"`
	Tier Tier   `firestore:"-"`

	Tokens      []string `firestore:"fcmTokens"`
	LegacyToken string   `firestore:"fcmToken"`
	PlayerID    string   `firestore:"oneSignalPlayerId"`
}
