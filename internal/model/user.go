package model

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// UserStore defines persistence operations for users. Reads that return
// credential, lock or reset columns are named explicitly; plain lookups
// omit them.
type UserStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	// GetByIdentifier matches email or username and includes the hidden
	// password, attempt and lock columns needed by the login path.
	GetByIdentifier(ctx context.Context, identifier string) (User, error)
	Create(ctx context.Context, user User) (User, error)
	List(ctx context.Context) ([]User, error)

	// IncrementFailedAttempts atomically bumps the failure counter and
	// returns the new value.
	IncrementFailedAttempts(ctx context.Context, id uuid.UUID) (int, error)
	// Lock sets lock_until and zeroes the failure counter.
	Lock(ctx context.Context, id uuid.UUID, until time.Time) error
	// ClearLockState resets the failure counter and lifts any lock.
	ClearLockState(ctx context.Context, id uuid.UUID) error

	SetPasswordResetToken(ctx context.Context, id uuid.UUID, tokenHash string, expiresAt time.Time) error
	ClearPasswordResetToken(ctx context.Context, id uuid.UUID) error
	// GetByResetTokenHash finds a user whose stored reset digest matches
	// and whose expiry is still inside the grace window.
	GetByResetTokenHash(ctx context.Context, tokenHash string) (User, error)
	// UpdatePassword sets a new password hash and clears the reset and
	// lock fields in the same statement.
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error
}

// User represents a stored user together with the hidden security columns
// the auth flows operate on.
type User struct {
	ID                  uuid.UUID
	Name                string
	Username            string
	Email               string
	PasswordHash        string
	Roles               []Role
	ProfilePicture      string
	FailedLoginAttempts int
	LockUntil           *time.Time
	// IsLocked is derived from LockUntil on every persist and is never
	// authoritative on its own.
	IsLocked             bool
	PasswordResetHash    *string
	PasswordResetExpires *time.Time
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Locked reports whether the account is locked out at the given instant.
func (u User) Locked(now time.Time) bool {
	return u.LockUntil != nil && u.LockUntil.After(now)
}

// Summary is the user shape returned to clients. It never carries
// credential or lock material.
type Summary struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	Roles          []Role    `json:"roles"`
	ProfilePicture string    `json:"profilePicture,omitempty"`
}

// Summary converts the user to its client-facing shape.
func (u User) Summary() Summary {
	return Summary{
		ID:             u.ID,
		Name:           u.Name,
		Username:       u.Username,
		Email:          u.Email,
		Roles:          u.Roles,
		ProfilePicture: u.ProfilePicture,
	}
}
