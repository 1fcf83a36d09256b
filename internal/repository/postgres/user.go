package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/skillupng/lms-server/internal/model"
)

var _ model.UserStore = (*UserRepository)(nil)

type UserRepository struct {
	db *Connection
}

func NewUserRepository(db *Connection) *UserRepository {
	return &UserRepository{
		db: db,
	}
}

// baseColumns are returned by plain lookups. Credential, lock and reset
// columns stay hidden unless a query selects them explicitly.
const baseColumns = `id, name, username, email, roles, profile_picture, created_at, updated_at`

func scanBase(row pgx.Row, user *model.User) error {
	var roles []string
	err := row.Scan(
		&user.ID, &user.Name, &user.Username, &user.Email, &roles,
		&user.ProfilePicture, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return err
	}
	user.Roles = toRoles(roles)
	return nil
}

func toRoles(ss []string) []model.Role {
	roles := make([]model.Role, 0, len(ss))
	for _, s := range ss {
		roles = append(roles, model.Role(s))
	}
	return roles
}

func toStrings(roles []model.Role) []string {
	ss := make([]string, 0, len(roles))
	for _, r := range roles {
		ss = append(ss, string(r))
	}
	return ss
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (model.User, error) {
	query := `SELECT ` + baseColumns + ` FROM users WHERE id = $1`

	var user model.User
	if err := scanBase(r.db.QueryRow(ctx, query, id), &user); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user by id: %w", err)
	}

	return user, nil
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (model.User, error) {
	query := `SELECT ` + baseColumns + ` FROM users WHERE email = $1`

	var user model.User
	if err := scanBase(r.db.QueryRow(ctx, query, email), &user); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user by email: %w", err)
	}

	return user, nil
}

// GetByIdentifier matches email or username and selects the hidden
// credential and lock columns needed by the login path.
func (r *UserRepository) GetByIdentifier(ctx context.Context, identifier string) (model.User, error) {
	query := `SELECT ` + baseColumns + `, password_hash, failed_login_attempts, lock_until, is_locked
			  FROM users WHERE email = $1 OR username = $1`

	var user model.User
	var roles []string
	err := r.db.QueryRow(ctx, query, identifier).Scan(
		&user.ID, &user.Name, &user.Username, &user.Email, &roles,
		&user.ProfilePicture, &user.CreatedAt, &user.UpdatedAt,
		&user.PasswordHash, &user.FailedLoginAttempts, &user.LockUntil, &user.IsLocked,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user by identifier: %w", err)
	}
	user.Roles = toRoles(roles)

	return user, nil
}

func (r *UserRepository) Create(ctx context.Context, user model.User) (model.User, error) {
	query := `INSERT INTO users (id, name, username, email, password_hash, roles, profile_picture, created_at, updated_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, NOW(), NOW())
			  RETURNING ` + baseColumns

	if user.ID == uuid.Nil {
		user.ID = uuid.New()
	}

	var saved model.User
	row := r.db.QueryRow(ctx, query,
		user.ID, user.Name, user.Username, user.Email, user.PasswordHash,
		toStrings(user.Roles), user.ProfilePicture,
	)
	if err := scanBase(row, &saved); err != nil {
		return model.User{}, fmt.Errorf("failed to create user: %w", err)
	}

	return saved, nil
}

func (r *UserRepository) List(ctx context.Context) ([]model.User, error) {
	query := `SELECT ` + baseColumns + ` FROM users ORDER BY created_at`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		var user model.User
		if err := scanBase(rows, &user); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate users: %w", err)
	}

	return users, nil
}

// IncrementFailedAttempts atomically bumps the failure counter so retry
// storms cannot lose updates.
func (r *UserRepository) IncrementFailedAttempts(ctx context.Context, id uuid.UUID) (int, error) {
	query := `UPDATE users
			  SET failed_login_attempts = failed_login_attempts + 1,
			      is_locked = (lock_until IS NOT NULL AND lock_until > NOW()),
			      updated_at = NOW()
			  WHERE id = $1
			  RETURNING failed_login_attempts`

	var attempts int
	if err := r.db.QueryRow(ctx, query, id).Scan(&attempts); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, model.ErrNotFound
		}
		return 0, fmt.Errorf("failed to increment failed attempts: %w", err)
	}

	return attempts, nil
}

// Lock sets the lockout deadline and zeroes the failure counter.
// is_locked is recomputed from lock_until, never carried over.
func (r *UserRepository) Lock(ctx context.Context, id uuid.UUID, until time.Time) error {
	query := `UPDATE users
			  SET lock_until = $2,
			      failed_login_attempts = 0,
			      is_locked = ($2::timestamptz IS NOT NULL AND $2::timestamptz > NOW()),
			      updated_at = NOW()
			  WHERE id = $1`

	if _, err := r.db.Exec(ctx, query, id, until); err != nil {
		return fmt.Errorf("failed to lock user: %w", err)
	}
	return nil
}

func (r *UserRepository) ClearLockState(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE users
			  SET failed_login_attempts = 0, lock_until = NULL, is_locked = FALSE, updated_at = NOW()
			  WHERE id = $1`

	if _, err := r.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to clear lock state: %w", err)
	}
	return nil
}

// SetPasswordResetToken persists the reset digest and expiry without
// touching any other column, so unrelated row state cannot block a reset
// request.
func (r *UserRepository) SetPasswordResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error {
	query := `UPDATE users
			  SET password_reset_token_hash = $2, password_reset_expires = $3,
			      is_locked = (lock_until IS NOT NULL AND lock_until > NOW()),
			      updated_at = NOW()
			  WHERE id = $1`

	if _, err := r.db.Exec(ctx, query, id, tokenHash, expiresAt); err != nil {
		return fmt.Errorf("failed to set password reset token: %w", err)
	}
	return nil
}

func (r *UserRepository) ClearPasswordResetToken(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE users
			  SET password_reset_token_hash = NULL, password_reset_expires = NULL,
			      is_locked = (lock_until IS NOT NULL AND lock_until > NOW()),
			      updated_at = NOW()
			  WHERE id = $1`

	if _, err := r.db.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to clear password reset token: %w", err)
	}
	return nil
}

// GetByResetTokenHash matches a stored reset digest whose expiry is still
// within a 60 second grace window, tolerating minor clock skew between
// issuance and verification.
func (r *UserRepository) GetByResetTokenHash(ctx context.Context, tokenHash string) (model.User, error) {
	query := `SELECT ` + baseColumns + `
			  FROM users
			  WHERE password_reset_token_hash = $1
			    AND password_reset_expires > NOW() - INTERVAL '60 seconds'`

	var user model.User
	if err := scanBase(r.db.QueryRow(ctx, query, tokenHash), &user); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.User{}, model.ErrNotFound
		}
		return model.User{}, fmt.Errorf("failed to get user by reset token: %w", err)
	}

	return user, nil
}

// UpdatePassword installs the new hash and clears the reset and lock
// state in one statement. A successful reset also lifts any lockout.
func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	query := `UPDATE users
			  SET password_hash = $2,
			      password_reset_token_hash = NULL, password_reset_expires = NULL,
			      failed_login_attempts = 0, lock_until = NULL, is_locked = FALSE,
			      updated_at = NOW()
			  WHERE id = $1`

	if _, err := r.db.Exec(ctx, query, id, passwordHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}
