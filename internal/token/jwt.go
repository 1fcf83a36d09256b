package token

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/skillupng/lms-server/internal/config"
	"github.com/skillupng/lms-server/internal/model"
)

// Claims represents JWT claims carried by access and refresh tokens.
type Claims struct {
	jwt.RegisteredClaims
	UserID uuid.UUID    `json:"userId"`
	Roles  []model.Role `json:"roles"`
}

// Manager implements model.TokenManager backed by symmetric HMAC with
// separate access and refresh secrets.
type Manager struct {
	accessSecret  string
	refreshSecret string
	issuer        string
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewManager creates a JWT token manager. Missing secrets are a
// configuration error; startup validation catches this first, the
// constructor is the runtime guard.
func NewManager(cfg config.JWT) (*Manager, error) {
	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		return nil, config.ErrMissingSecrets
	}

	return &Manager{
		accessSecret:  cfg.AccessSecret,
		refreshSecret: cfg.RefreshSecret,
		issuer:        cfg.Issuer,
		accessTTL:     cfg.AccessExpiry,
		refreshTTL:    cfg.RefreshExpiry,
	}, nil
}

// GenerateAccessToken creates a short-lived access token. The payload is
// embellished with issuer and issued-at.
func (m *Manager) GenerateAccessToken(tc model.TokenClaims) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.accessTTL)),
		},
		UserID: tc.UserID,
		Roles:  tc.Roles,
	})

	tokenString, err := token.SignedString([]byte(m.accessSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign access token: %w", err)
	}

	return tokenString, nil
}

// GenerateRefreshToken creates a long-lived refresh token. The payload is
// signed as-is with the refresh secret, without the access-token
// embellishments.
func (m *Manager) GenerateRefreshToken(tc model.TokenClaims) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.refreshTTL)),
		},
		UserID: tc.UserID,
		Roles:  tc.Roles,
	})

	tokenString, err := token.SignedString([]byte(m.refreshSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign refresh token: %w", err)
	}

	return tokenString, nil
}

// ParseAccessToken validates signature and expiry against the access
// secret and extracts the claim payload.
func (m *Manager) ParseAccessToken(tokenString string) (model.TokenClaims, error) {
	return m.parse(tokenString, m.accessSecret)
}

// ParseRefreshToken validates signature and expiry against the refresh
// secret and extracts the claim payload.
func (m *Manager) ParseRefreshToken(tokenString string) (model.TokenClaims, error) {
	return m.parse(tokenString, m.refreshSecret)
}

func (m *Manager) parse(tokenString, secret string) (model.TokenClaims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("wrong signing method %v", t.Header["alg"])
		}
		return []byte(secret), nil
	})
	if err != nil {
		return model.TokenClaims{}, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return model.TokenClaims{}, fmt.Errorf("token is invalid")
	}
	if claims.UserID == uuid.Nil {
		return model.TokenClaims{}, fmt.Errorf("token carries no user id")
	}
	for _, r := range claims.Roles {
		if !model.ValidRole(r) {
			return model.TokenClaims{}, fmt.Errorf("token carries unknown role %q", r)
		}
	}

	return model.TokenClaims{UserID: claims.UserID, Roles: claims.Roles}, nil
}

// ExtractExpiry decodes the exp claim without verifying the signature.
// Blacklisting needs the remaining lifetime of a token regardless of its
// other validity.
func (m *Manager) ExtractExpiry(tokenString string) (time.Time, error) {
	claims := &Claims{}
	_, _, err := jwt.NewParser().ParseUnverified(tokenString, claims)
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to decode token: %w", err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, fmt.Errorf("token carries no expiry")
	}
	return claims.ExpiresAt.Time, nil
}
