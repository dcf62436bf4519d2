package cache

import "github.com/google/uuid"

// Entity prefixes for cache keys. Key format: "<Prefix>:<guid>".
const (
	PrefixAccount  = "Account"
	PrefixMandate  = "Mandate"
	PrefixMovement = "Movement"
)

// Key builds the canonical cache key for an entity snapshot.
func Key(prefix string, guid uuid.UUID) string {
	return prefix + ":" + guid.String()
}
