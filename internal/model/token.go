package model

import (
	"time"

	"github.com/google/uuid"
)

// TokenClaims is the explicit claim payload carried by issued tokens.
// Decoded tokens are validated against this shape rather than trusted as
// arbitrary maps.
type TokenClaims struct {
	UserID uuid.UUID
	Roles  []Role
}

// TokenPair is an issued access/refresh token pair.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// TokenManager signs and validates access and refresh tokens with
// separate secrets.
type TokenManager interface {
	GenerateAccessToken(claims TokenClaims) (string, error)
	GenerateRefreshToken(claims TokenClaims) (string, error)
	ParseAccessToken(token string) (TokenClaims, error)
	ParseRefreshToken(token string) (TokenClaims, error)
	// ExtractExpiry decodes the exp claim without verifying the
	// signature. Blacklisting must work for tokens whose other validity
	// is irrelevant.
	ExtractExpiry(token string) (time.Time, error)
}
