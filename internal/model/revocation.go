package model

import (
	"context"
	"time"
)

// RevocationStore records access tokens invalidated before their natural
// expiry. Entries carry a TTL equal to the token's remaining lifetime so
// the blacklist never outlives what it shadows.
//
// Store unavailability is a hard failure: verification treats a failed
// lookup as an error rather than silently accepting the token.
type RevocationStore interface {
	Add(ctx context.Context, token string, ttl time.Duration) error
	Contains(ctx context.Context, token string) (bool, error)
}
