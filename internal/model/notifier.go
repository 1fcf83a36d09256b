package model

import "context"

// Notifier delivers out-of-band messages to users. Implementations are
// fire-and-forget from the caller's perspective; a send failure surfaces
// as a NotificationError and never blocks committed state.
type Notifier interface {
	SendPasswordResetNotice(ctx context.Context, email, name, resetURL string) error
	SendPasswordResetConfirmation(ctx context.Context, email, name string) error
}
