package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/skillupng/lms-server/internal/logger"
	"github.com/skillupng/lms-server/internal/model"
	"github.com/skillupng/lms-server/internal/token"
)

// TokenService provides high-level operations for issuing, verifying,
// rotating and revoking tokens. It composes the TokenManager, the
// RefreshTokenStore and the RevocationStore.
type TokenService struct {
	manager     model.TokenManager
	refreshes   model.RefreshTokenStore
	revocations model.RevocationStore
	logger      *logger.Logger
}

func NewTokenService(manager model.TokenManager, refreshes model.RefreshTokenStore, revocations model.RevocationStore, logger *logger.Logger) *TokenService {
	return &TokenService{manager: manager, refreshes: refreshes, revocations: revocations, logger: logger}
}

// Issue signs a new access/refresh pair and persists the refresh token
// hash, superseding any previously active session for the user.
func (s *TokenService) Issue(ctx context.Context, tc model.TokenClaims) (model.TokenPair, error) {
	access, err := s.manager.GenerateAccessToken(tc)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("issue access: %w", err)
	}

	refresh, err := s.manager.GenerateRefreshToken(tc)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("issue refresh: %w", err)
	}

	if err := s.PersistRefresh(ctx, tc.UserID, refresh); err != nil {
		return model.TokenPair{}, err
	}

	return model.TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// PersistRefresh deletes every existing record for the user before
// inserting the new hash. Called on every issue, at login and at
// rotation alike, which is what enforces single-session-per-user.
func (s *TokenService) PersistRefresh(ctx context.Context, userID uuid.UUID, rawRefresh string) error {
	if err := s.refreshes.DeleteAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("supersede refresh tokens: %w", err)
	}

	rt := model.RefreshToken{
		ID:        uuid.New(),
		UserID:    userID,
		TokenHash: token.HashRefreshToken(rawRefresh),
		CreatedAt: time.Now(),
	}
	if err := s.refreshes.Create(ctx, rt); err != nil {
		return fmt.Errorf("persist refresh: %w", err)
	}

	return nil
}

// VerifyAccess checks the blacklist before validating signature and
// expiry. Rejected tokens carry ErrTokenInvalid with the underlying
// verification error still in the chain, so the transport layer can
// tell "expired" apart; store faults carry neither and stay
// distinguishable from a bad token.
func (s *TokenService) VerifyAccess(ctx context.Context, rawToken string) (model.TokenClaims, error) {
	blacklisted, err := s.revocations.Contains(ctx, rawToken)
	if err != nil {
		// Fail closed: an unreachable revocation store means the token
		// cannot be verified.
		return model.TokenClaims{}, fmt.Errorf("check revocation store: %w", err)
	}
	if blacklisted {
		return model.TokenClaims{}, model.ErrTokenInvalid
	}

	claims, err := s.manager.ParseAccessToken(rawToken)
	if err != nil {
		return model.TokenClaims{}, fmt.Errorf("%w: %w", model.ErrTokenInvalid, err)
	}

	return claims, nil
}

// RotateRefresh verifies the presented refresh token and atomically
// consumes its stored record. A token that was already rotated out, or
// that belongs to a superseded session, finds no record and is rejected;
// that is the replay detection. The caller issues the replacement pair.
func (s *TokenService) RotateRefresh(ctx context.Context, rawToken string) (model.TokenClaims, error) {
	claims, err := s.manager.ParseRefreshToken(rawToken)
	if err != nil {
		s.logger.Debug("Token service: refresh token failed verification", "error", err.Error())
		return model.TokenClaims{}, model.ErrTokenInvalid
	}

	_, err = s.refreshes.ConsumeByHash(ctx, token.HashRefreshToken(rawToken), claims.UserID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			s.logger.Info("Token service: refresh token not in store, possible replay",
				"user_id", claims.UserID)
			return model.TokenClaims{}, model.ErrTokenInvalid
		}
		return model.TokenClaims{}, fmt.Errorf("consume refresh token: %w", err)
	}

	return claims, nil
}

// Revoke blacklists an access token for its remaining lifetime. The
// token is decoded, not verified: revocation must work regardless of the
// token's other validity. Tokens with no expiry or none remaining are
// left alone, they die on their own.
func (s *TokenService) Revoke(ctx context.Context, rawAccessToken string) error {
	exp, err := s.manager.ExtractExpiry(rawAccessToken)
	if err != nil {
		s.logger.Debug("Token service: cannot decode token expiry, skipping blacklist", "error", err.Error())
		return nil
	}

	ttl := time.Until(exp)
	if ttl <= 0 {
		return nil
	}

	if err := s.revocations.Add(ctx, rawAccessToken, ttl); err != nil {
		return fmt.Errorf("blacklist access token: %w", err)
	}

	return nil
}

// RemoveRefresh deletes the stored record for a presented refresh token,
// used on logout.
func (s *TokenService) RemoveRefresh(ctx context.Context, rawRefresh string) error {
	if err := s.refreshes.DeleteByHash(ctx, token.HashRefreshToken(rawRefresh)); err != nil {
		return fmt.Errorf("remove refresh token: %w", err)
	}
	return nil
}

// RevokeAllRefreshForUser drops every stored refresh token for the user,
// a blanket session revocation.
func (s *TokenService) RevokeAllRefreshForUser(ctx context.Context, userID uuid.UUID) error {
	if err := s.refreshes.DeleteAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("revoke refresh tokens for user: %w", err)
	}
	return nil
}
