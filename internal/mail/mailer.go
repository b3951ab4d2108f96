// Package mail sends transactional email over SMTP.
package mail

import (
	"context"
	"fmt"
	"log/slog"

	"giftfeed/internal/config"
	"giftfeed/internal/middleware"
	"giftfeed/internal/observability"

	"gopkg.in/gomail.v2"
)

// Mailer delivers transactional messages to users.
type Mailer interface {
	SendVerificationCode(ctx context.Context, email, firstName, code string) error
	SendPasswordResetCode(ctx context.Context, email, firstName, code string) error
}

// SMTPMailer sends mail through a configured SMTP relay using gomail.
type SMTPMailer struct {
	dialer *gomail.Dialer
	from   string
}

// NewSMTPMailer builds a mailer from application config.
func NewSMTPMailer(cfg *config.Config) *SMTPMailer {
	return &SMTPMailer{
		dialer: gomail.NewDialer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUsername, cfg.SMTPPassword),
		from:   cfg.MailFrom,
	}
}

func (m *SMTPMailer) send(ctx context.Context, kind, email, subject, textBody string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", email)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", textBody)

	if err := m.dialer.DialAndSend(msg); err != nil {
		observability.MailDeliveries.WithLabelValues(kind, "error").Inc()
		middleware.Logger.WarnContext(ctx, "Failed to send email",
			slog.String("kind", kind),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("send %s email: %w", kind, err)
	}

	observability.MailDeliveries.WithLabelValues(kind, "success").Inc()
	middleware.Logger.InfoContext(ctx, "Email sent", slog.String("kind", kind))
	return nil
}

// SendVerificationCode emails a registration verification code.
func (m *SMTPMailer) SendVerificationCode(ctx context.Context, email, firstName, code string) error {
	body := fmt.Sprintf(`Hello %s,

Welcome to GiftFeed! Your verification code is: %s

Enter it in the app to activate your account. The code expires in 10 minutes.

If you didn't sign up, ignore this email.

The GiftFeed Team
`, firstName, code)
	return m.send(ctx, "verification", email, "Verify your GiftFeed account", body)
}

// SendPasswordResetCode emails a password reset code.
func (m *SMTPMailer) SendPasswordResetCode(ctx context.Context, email, firstName, code string) error {
	body := fmt.Sprintf(`Hello %s,

Your GiftFeed password reset code is: %s

Enter it in the app to choose a new password. The code expires in 10 minutes.

If you didn't request a reset, ignore this email.

The GiftFeed Team
`, firstName, code)
	return m.send(ctx, "password_reset", email, "Reset your GiftFeed password", body)
}
