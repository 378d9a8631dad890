package mail

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/hospiceconnect/intake/pkg/config"
)

// Message is one operator alert ready for transmission. The recipient is
// owned by the channel configuration, not the message.
type Message struct {
	Subject string
	Text    string
	HTML    string
}

// Channel abstracts sending an operator alert. Implementations own their
// availability check, transmission and retry policy. A channel is selected
// once at process startup and never switched mid-process.
type Channel interface {
	Configured() bool
	Verify(ctx context.Context) error
	Send(ctx context.Context, msg Message) error
}

// ConfigError reports a missing credential, sender or recipient. The debug
// probe surfaces it as a client error; the submission pipeline logs and
// skips the notification.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return e.Reason }

// IsConfigError reports whether err is (or wraps) a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// SendError reports a transmission failure after the retry budget was spent.
type SendError struct {
	Attempts int
	Err      error
}

func (e *SendError) Error() string {
	return fmt.Sprintf("email send failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *SendError) Unwrap() error { return e.Err }

// NewChannel selects the notification backend from the configured
// credentials: a transactional API key wins, then SMTP operator credentials,
// otherwise an unconfigured channel that fails every operation.
func NewChannel(cfg config.Mail, log *zap.SugaredLogger) Channel {
	switch {
	case cfg.APIKey != "":
		log.Infow("Using transactional API notification backend")
		return NewTransactional(cfg, log)
	case cfg.User != "" && cfg.Password != "":
		log.Infow("Using SMTP fallback notification backend", "user", cfg.User)
		return NewSMTPFallback(cfg, GmailProfiles(), log)
	default:
		log.Warnw("No notification backend configured, emails disabled")
		return &disabled{reason: "Email transporter not configured. Set GMAIL_USER and GMAIL_PASS or RESEND_API_KEY."}
	}
}

type disabled struct {
	reason string
}

func (d *disabled) Configured() bool { return false }

func (d *disabled) Verify(_ context.Context) error { return &ConfigError{Reason: d.reason} }

func (d *disabled) Send(_ context.Context, _ Message) error { return &ConfigError{Reason: d.reason} }
