package model

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned by stores when no matching record exists.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidCredentials covers unknown identifiers and wrong passwords.
	// The message is deliberately generic so it leaks nothing about which
	// part of the credential pair failed.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrTokenInvalid covers malformed, tampered, consumed and expired
	// refresh or reset tokens. External callers never learn which.
	ErrTokenInvalid = errors.New("token invalid or expired")

	// ErrPasswordMismatch is returned when a new password and its
	// confirmation differ or are empty.
	ErrPasswordMismatch = errors.New("passwords are empty or do not match")
)

// AccountLockedError is returned while an account is locked out after
// repeated failed login attempts.
type AccountLockedError struct {
	RetryAfterMinutes int
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked due to too many attempts, try again in %d minutes", e.RetryAfterMinutes)
}

// NotificationError wraps a failure to deliver an out-of-band message.
// State committed before the send is not rolled back unless the flow
// says otherwise.
type NotificationError struct {
	Err error
}

func (e *NotificationError) Error() string {
	return fmt.Sprintf("failed to send notification: %v", e.Err)
}

func (e *NotificationError) Unwrap() error {
	return e.Err
}
