package mailer

import (
	"context"
	"fmt"

	"github.com/wneessen/go-mail"
)

// Config holds the SMTP transport settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// SMTPMailer dispatches transactional mail over SMTP.
type SMTPMailer struct {
	cfg Config
}

// New creates a new SMTPMailer.
func New(cfg Config) (*SMTPMailer, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}
	return &SMTPMailer{cfg: cfg}, nil
}

// SendVerification sends the verification code email to a user. The call is
// bounded by the supplied context; a single attempt is made.
func (m *SMTPMailer) SendVerification(ctx context.Context, email, name, code string) error {
	msg := mail.NewMsg()

	if m.cfg.FromName != "" {
		if err := msg.FromFormat(m.cfg.FromName, m.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(m.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(email); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject("Verify Your Email - Talkvia")
	msg.SetBodyString(mail.TypeTextPlain, verificationText(name, code))
	msg.AddAlternativeString(mail.TypeTextHTML, verificationHTML(name, code))

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
	}

	// Use implicit TLS (SSL) for port 465, STARTTLS for others
	if m.cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	}

	if m.cfg.Username != "" && m.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}

	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}

func verificationText(name, code string) string {
	return fmt.Sprintf(`Hi %s,

Thank you for signing up for Talkvia!

Your verification code is: %s

This code will expire in 10 minutes.

Security tips:
- Never share this code with anyone
- Talkvia staff will never ask for your code
- If you didn't request this, please ignore this email
`, name, code)
}

func verificationHTML(name, code string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
  <body style="font-family: sans-serif; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
    <h2 style="text-align: center;">Verify Your Email</h2>
    <p>Hi <strong>%s</strong>,</p>
    <p>Thank you for signing up for Talkvia! To complete your registration, please use the following one-time code:</p>
    <div style="text-align: center; margin: 30px 0;">
      <span style="font-size: 40px; letter-spacing: 8px; font-family: monospace;">%s</span>
    </div>
    <p><strong>Important:</strong> this code will expire in <strong>10 minutes</strong>.</p>
    <ul>
      <li>Never share this code with anyone</li>
      <li>Talkvia staff will never ask for your code</li>
      <li>If you didn't request this, please ignore this email</li>
    </ul>
  </body>
</html>`, name, code)
}
