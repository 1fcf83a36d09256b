package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/skillupng/lms-server/internal/model"
)

var _ model.RefreshTokenStore = (*RefreshTokenRepository)(nil)

type RefreshTokenRepository struct {
	db *Connection
}

func NewRefreshTokenRepository(db *Connection) *RefreshTokenRepository {
	return &RefreshTokenRepository{db: db}
}

func (r *RefreshTokenRepository) Create(ctx context.Context, token model.RefreshToken) error {
	const query = `
        INSERT INTO refresh_tokens (id, user_id, token_hash, created_at)
        VALUES ($1, $2, $3, NOW())
    `

	if token.ID == uuid.Nil {
		token.ID = uuid.New()
	}

	_, err := r.db.Exec(ctx, query, token.ID, token.UserID, token.TokenHash)
	if err != nil {
		return fmt.Errorf("failed to create refresh token: %w", err)
	}
	return nil
}

func (r *RefreshTokenRepository) DeleteAllForUser(ctx context.Context, userID uuid.UUID) error {
	const query = `DELETE FROM refresh_tokens WHERE user_id = $1`

	if _, err := r.db.Exec(ctx, query, userID); err != nil {
		return fmt.Errorf("failed to delete refresh tokens for user: %w", err)
	}
	return nil
}

// ConsumeByHash is a single atomic find-and-delete. Two concurrent calls
// with the same token hit the same row; the row lock guarantees exactly
// one of them gets it back.
func (r *RefreshTokenRepository) ConsumeByHash(ctx context.Context, tokenHash string, userID uuid.UUID) (model.RefreshToken, error) {
	const query = `
        DELETE FROM refresh_tokens
        WHERE token_hash = $1 AND user_id = $2
        RETURNING id, user_id, token_hash, created_at
    `

	var rt model.RefreshToken
	err := r.db.QueryRow(ctx, query, tokenHash, userID).Scan(
		&rt.ID, &rt.UserID, &rt.TokenHash, &rt.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.RefreshToken{}, model.ErrNotFound
		}
		return model.RefreshToken{}, fmt.Errorf("failed to consume refresh token: %w", err)
	}
	return rt, nil
}

func (r *RefreshTokenRepository) DeleteByHash(ctx context.Context, tokenHash string) error {
	const query = `DELETE FROM refresh_tokens WHERE token_hash = $1`

	if _, err := r.db.Exec(ctx, query, tokenHash); err != nil {
		return fmt.Errorf("failed to delete refresh token: %w", err)
	}
	return nil
}
