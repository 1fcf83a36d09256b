// Package notifier delivers transactional mail over SMTP.
package notifier

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	gomail "gopkg.in/gomail.v2"

	"github.com/skillupng/lms-server/internal/config"
	"github.com/skillupng/lms-server/internal/logger"
	"github.com/skillupng/lms-server/internal/model"
)

const senderName = "Skillup Nigeria"

var resetNoticeTmpl = template.Must(template.New("resetNotice").Parse(`<!DOCTYPE html>
<html lang="en">
<body style="font-family: Arial, sans-serif; color: #333;">
  <div style="max-width:600px;margin:0 auto;padding:24px;background:#fff;">
    <h2>Password Reset Request</h2>
    <p>Hello {{.Name}},</p>
    <p>You've requested to reset your password. Click the button below to create a new password:</p>
    <div style="text-align:center;margin:24px 0;">
      <a href="{{.ResetURL}}" style="display:inline-block;padding:12px 28px;background:#3498db;color:#fff;text-decoration:none;border-radius:4px;font-weight:bold;">Reset Password</a>
    </div>
    <p style="font-size:13px;color:#666;">This link will expire in 10 minutes for security reasons.</p>
    <p style="font-size:13px;color:#666;">If you didn't request this password reset, please ignore this email or contact support if you're concerned.</p>
    <hr style="margin:32px 0;">
    <footer style="font-size:12px;color:#888;text-align:center;">
      &copy; {{.Year}} Skill Up Nigeria. All rights reserved.
    </footer>
  </div>
</body>
</html>`))

var resetConfirmationTmpl = template.Must(template.New("resetConfirmation").Parse(`<!DOCTYPE html>
<html lang="en">
<body style="font-family: Arial, sans-serif; color: #333;">
  <div style="max-width:600px;margin:0 auto;padding:24px;background:#fff;">
    <h2 style="color:#2c3e50;text-align:center;">Password Reset Confirmation</h2>
    <p>Hello {{.Name}},</p>
    <p>Your Skill Up Nigeria account password has been successfully reset on {{.When}}.</p>
    <p>If you initiated this change, no further action is required. If you didn't request this password reset, please contact our support team immediately at <a href="mailto:support@skillupnigeria.com">support@skillupnigeria.com</a>.</p>
    <p>You can now log in with your new password.</p>
    <p>Stay secure,<br><strong>The Skill Up Nigeria Team</strong></p>
    <hr style="margin:32px 0;">
    <footer style="font-size:12px;color:#888;text-align:center;">
      &copy; {{.Year}} Skill Up Nigeria. All rights reserved.
    </footer>
  </div>
</body>
</html>`))

// Mailer sends account mail through an SMTP relay. It implements
// model.Notifier.
type Mailer struct {
	dialer *gomail.Dialer
	from   string
	logger *logger.Logger
}

var _ model.Notifier = (*Mailer)(nil)

// NewMailer creates a Mailer from SMTP configuration.
func NewMailer(cfg config.SMTP, logger *logger.Logger) *Mailer {
	return &Mailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		logger: logger,
	}
}

// SendPasswordResetNotice mails the reset link to the user.
func (m *Mailer) SendPasswordResetNotice(ctx context.Context, email, name, resetURL string) error {
	body, err := render(resetNoticeTmpl, map[string]any{
		"Name":     name,
		"ResetURL": resetURL,
		"Year":     time.Now().Year(),
	})
	if err != nil {
		return err
	}

	return m.send(ctx, email, "Your Password Reset Link", body)
}

// SendPasswordResetConfirmation mails a notice that the password was
// changed.
func (m *Mailer) SendPasswordResetConfirmation(ctx context.Context, email, name string) error {
	body, err := render(resetConfirmationTmpl, map[string]any{
		"Name": name,
		"When": time.Now().Format("Jan 2, 2006 at 15:04 MST"),
		"Year": time.Now().Year(),
	})
	if err != nil {
		return err
	}

	return m.send(ctx, email, "Password reset successfully", body)
}

func (m *Mailer) send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetAddressHeader("From", m.from, senderName)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	if err := m.dialer.DialAndSend(msg); err != nil {
		m.logger.Error("Mailer: failed to send message", "subject", subject, "error", err)
		return fmt.Errorf("failed to send email: %w", err)
	}

	return nil
}

func render(tmpl *template.Template, data map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render mail template: %w", err)
	}
	return buf.String(), nil
}
