package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// RefreshTokenStore persists the single currently-valid refresh token per
// user. Only digests of raw tokens are ever stored.
type RefreshTokenStore interface {
	Create(ctx context.Context, token RefreshToken) error
	// DeleteAllForUser removes every record owned by the user. Issuing a
	// new token always calls this first, so at most one record per user
	// exists.
	DeleteAllForUser(ctx context.Context, userID uuid.UUID) error
	// ConsumeByHash atomically finds and deletes the record matching the
	// hash and owner. It returns ErrNotFound when the token was already
	// consumed or belongs to a superseded session; concurrent calls with
	// the same token succeed at most once.
	ConsumeByHash(ctx context.Context, tokenHash string, userID uuid.UUID) (RefreshToken, error)
	// DeleteByHash removes a single record without requiring ownership
	// claims, used on logout.
	DeleteByHash(ctx context.Context, tokenHash string) error
}

// RefreshToken is the stored form of an issued refresh token.
type RefreshToken struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	TokenHash string
	CreatedAt time.Time
}
