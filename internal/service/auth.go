package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/skillupng/lms-server/internal/config"
	"github.com/skillupng/lms-server/internal/logger"
	"github.com/skillupng/lms-server/internal/model"
	"github.com/skillupng/lms-server/internal/token"
)

const passwordHashCost = bcrypt.DefaultCost

// Auth implements login with account lockout, logout, token refresh and
// the password reset flow.
type Auth struct {
	users        model.UserStore
	tokenService *TokenService
	notifier     model.Notifier
	logger       *logger.Logger

	maxFailedAttempts int
	lockDuration      time.Duration
	resetTokenTTL     time.Duration
	resetBaseURL      string

	// dummyHash is compared against when the identifier is unknown so
	// that response timing matches the wrong-password path.
	dummyHash []byte
}

func NewAuth(
	users model.UserStore,
	tokenService *TokenService,
	notifier model.Notifier,
	logger *logger.Logger,
	security config.Security,
	app config.App,
) (*Auth, error) {
	dummyHash, err := bcrypt.GenerateFromPassword([]byte(uuid.NewString()), passwordHashCost)
	if err != nil {
		return nil, fmt.Errorf("failed to precompute dummy hash: %w", err)
	}

	return &Auth{
		users:             users,
		tokenService:      tokenService,
		notifier:          notifier,
		logger:            logger,
		maxFailedAttempts: security.MaxFailedAttempts,
		lockDuration:      time.Duration(security.LockDurationMinutes) * time.Minute,
		resetTokenTTL:     security.ResetTokenExpiry,
		resetBaseURL:      app.BaseURL,
		dummyHash:         dummyHash,
	}, nil
}

// SignupInput carries new-account fields.
type SignupInput struct {
	Name           string       `json:"name"`
	Username       string       `json:"username"`
	Email          string       `json:"email"`
	Password       string       `json:"password"`
	ProfilePicture string       `json:"profilePicture"`
	Roles          []model.Role `json:"roles"`
}

// Validate checks signup fields.
func (in SignupInput) Validate() error {
	if err := validation.ValidateStruct(&in,
		validation.Field(&in.Name, validation.Required),
		validation.Field(&in.Username, validation.Required, validation.Length(3, 64), is.Alphanumeric),
		validation.Field(&in.Email, validation.Required, is.Email),
		validation.Field(&in.Password, validation.Required, validation.Length(8, 128)),
	); err != nil {
		return err
	}
	for _, r := range in.Roles {
		if !model.ValidRole(r) {
			return fmt.Errorf("unknown role %q", r)
		}
	}
	return nil
}

// Signup registers a new user with a hashed password.
func (a *Auth) Signup(ctx context.Context, in SignupInput) (model.Summary, error) {
	if err := in.Validate(); err != nil {
		return model.Summary{}, fmt.Errorf("invalid signup input: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), passwordHashCost)
	if err != nil {
		return model.Summary{}, fmt.Errorf("failed to hash password: %w", err)
	}

	roles := in.Roles
	if len(roles) == 0 {
		roles = []model.Role{model.RoleStudent}
	}

	user := model.User{
		ID:             uuid.New(),
		Name:           in.Name,
		Username:       strings.ToLower(strings.TrimSpace(in.Username)),
		Email:          strings.ToLower(strings.TrimSpace(in.Email)),
		PasswordHash:   string(hashed),
		Roles:          roles,
		ProfilePicture: in.ProfilePicture,
	}

	saved, err := a.users.Create(ctx, user)
	if err != nil {
		return model.Summary{}, fmt.Errorf("failed to create user: %w", err)
	}

	a.logger.Info("Auth service: user registered", "user_id", saved.ID, "username", saved.Username)

	return saved.Summary(), nil
}

// Login authenticates a user and issues a token pair.
//
// The lockout guard runs per user: a locked account is rejected before
// any password comparison, a wrong password bumps the failure counter,
// and reaching the configured maximum locks the account for the
// configured duration with the counter reset to zero.
func (a *Auth) Login(ctx context.Context, identifier, password string) (model.TokenPair, model.Summary, error) {
	identifier = strings.ToLower(strings.TrimSpace(identifier))
	if identifier == "" || password == "" {
		return model.TokenPair{}, model.Summary{}, model.ErrInvalidCredentials
	}

	user, err := a.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			// Run the comparison anyway so an unknown identifier takes
			// as long as a wrong password.
			_ = bcrypt.CompareHashAndPassword(a.dummyHash, []byte(password))
			return model.TokenPair{}, model.Summary{}, model.ErrInvalidCredentials
		}
		return model.TokenPair{}, model.Summary{}, fmt.Errorf("failed to get user by identifier: %w", err)
	}

	now := time.Now()
	if user.Locked(now) {
		minutes := int(math.Ceil(user.LockUntil.Sub(now).Minutes()))
		a.logger.Info("Auth service: login rejected, account locked",
			"user_id", user.ID, "retry_after_minutes", minutes)
		return model.TokenPair{}, model.Summary{}, &model.AccountLockedError{RetryAfterMinutes: minutes}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return model.TokenPair{}, model.Summary{}, a.registerFailedAttempt(ctx, user.ID, now)
	}

	if err := a.users.ClearLockState(ctx, user.ID); err != nil {
		return model.TokenPair{}, model.Summary{}, fmt.Errorf("failed to reset lock state: %w", err)
	}

	pair, err := a.tokenService.Issue(ctx, model.TokenClaims{UserID: user.ID, Roles: user.Roles})
	if err != nil {
		return model.TokenPair{}, model.Summary{}, fmt.Errorf("failed to issue tokens: %w", err)
	}

	a.logger.Info("Auth service: login successful", "user_id", user.ID)

	return pair, user.Summary(), nil
}

func (a *Auth) registerFailedAttempt(ctx context.Context, userID uuid.UUID, now time.Time) error {
	attempts, err := a.users.IncrementFailedAttempts(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to register login attempt: %w", err)
	}

	if attempts >= a.maxFailedAttempts {
		until := now.Add(a.lockDuration)
		if err := a.users.Lock(ctx, userID, until); err != nil {
			return fmt.Errorf("failed to lock account: %w", err)
		}
		a.logger.Info("Auth service: account locked after repeated failures",
			"user_id", userID, "lock_until", until)
		return &model.AccountLockedError{RetryAfterMinutes: int(a.lockDuration.Minutes())}
	}

	return model.ErrInvalidCredentials
}

// Refresh rotates a presented refresh token and issues a fresh pair.
func (a *Auth) Refresh(ctx context.Context, rawRefresh string) (model.TokenPair, error) {
	claims, err := a.tokenService.RotateRefresh(ctx, rawRefresh)
	if err != nil {
		return model.TokenPair{}, err
	}

	pair, err := a.tokenService.Issue(ctx, claims)
	if err != nil {
		return model.TokenPair{}, fmt.Errorf("failed to issue rotated tokens: %w", err)
	}

	return pair, nil
}

// Logout blacklists the access token and removes the stored refresh
// token.
func (a *Auth) Logout(ctx context.Context, rawAccess, rawRefresh string) error {
	if err := a.tokenService.Revoke(ctx, rawAccess); err != nil {
		return err
	}

	if rawRefresh != "" {
		if err := a.tokenService.RemoveRefresh(ctx, rawRefresh); err != nil {
			return err
		}
	}

	return nil
}

// RequestPasswordReset issues a reset token for the account behind the
// email, if any. An unknown email is reported as success so the response
// shape cannot be used to enumerate accounts.
func (a *Auth) RequestPasswordReset(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := a.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			a.logger.Info("Auth service: reset requested for unknown email")
			return nil
		}
		return fmt.Errorf("failed to get user by email: %w", err)
	}

	raw, err := randomToken(32)
	if err != nil {
		return fmt.Errorf("failed to generate reset token: %w", err)
	}

	expiresAt := time.Now().Add(a.resetTokenTTL)
	if err := a.users.SetPasswordResetToken(ctx, user.ID, token.HashResetToken(raw), expiresAt); err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}

	resetURL := fmt.Sprintf("%s/reset-password/%s", a.resetBaseURL, raw)
	if err := a.notifier.SendPasswordResetNotice(ctx, user.Email, user.Name, resetURL); err != nil {
		// Clear the fields so the user can retry instead of being stuck
		// with a token that was never delivered.
		if clearErr := a.users.ClearPasswordResetToken(ctx, user.ID); clearErr != nil {
			a.logger.Error("Auth service: failed to clear reset token after send failure",
				"user_id", user.ID, "error", clearErr.Error())
		}
		return &model.NotificationError{Err: err}
	}

	a.logger.Info("Auth service: password reset token issued", "user_id", user.ID)

	return nil
}

// ResetPassword consumes a reset token and installs a new password. A
// successful reset also lifts any lockout and revokes every stored
// refresh token for the user.
func (a *Auth) ResetPassword(ctx context.Context, rawToken, newPassword, confirmPassword string) error {
	if newPassword == "" || newPassword != confirmPassword {
		return model.ErrPasswordMismatch
	}

	user, err := a.users.GetByResetTokenHash(ctx, token.HashResetToken(rawToken))
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return model.ErrTokenInvalid
		}
		return fmt.Errorf("failed to look up reset token: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), passwordHashCost)
	if err != nil {
		return fmt.Errorf("failed to hash new password: %w", err)
	}

	if err := a.users.UpdatePassword(ctx, user.ID, string(hashed)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	if err := a.tokenService.RevokeAllRefreshForUser(ctx, user.ID); err != nil {
		return err
	}

	a.logger.Info("Auth service: password reset completed", "user_id", user.ID)

	// The password change is committed; a failed confirmation mail is
	// reported but never rolls it back.
	if err := a.notifier.SendPasswordResetConfirmation(ctx, user.Email, user.Name); err != nil {
		return &model.NotificationError{Err: err}
	}

	return nil
}

// Me returns the client-facing summary of a user.
func (a *Auth) Me(ctx context.Context, userID uuid.UUID) (model.Summary, error) {
	user, err := a.users.GetByID(ctx, userID)
	if err != nil {
		return model.Summary{}, fmt.Errorf("failed to get user: %w", err)
	}
	return user.Summary(), nil
}

// ListUsers returns summaries of all users, for administrative use.
func (a *Auth) ListUsers(ctx context.Context) ([]model.Summary, error) {
	users, err := a.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	summaries := make([]model.Summary, 0, len(users))
	for _, u := range users {
		summaries = append(summaries, u.Summary())
	}
	return summaries, nil
}

func randomToken(size int) (string, error) {
	b := make([]byte, size)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
