package mail

import (
	"context"
	"crypto/tls"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/hospiceconnect/intake/pkg/config"
	"github.com/hospiceconnect/intake/pkg/metrics"
)

const (
	smtpBackend     = "smtp"
	defaultSMTPHost = "smtp.gmail.com"

	smtpConnectTimeout  = 60 * time.Second
	smtpGreetingTimeout = 30 * time.Second
	smtpSocketTimeout   = 60 * time.Second
	smtpSendTimeout     = 30 * time.Second
)

// SMTPProfile is one connection configuration in the fallback order.
type SMTPProfile struct {
	Host string
	Port int
	// SSL selects implicit TLS; false means opportunistic STARTTLS.
	SSL bool

	ConnectTimeout  time.Duration
	GreetingTimeout time.Duration
	SocketTimeout   time.Duration
}

// GmailProfiles returns the fallback order used against Gmail: port 587 with
// STARTTLS first, then port 465 with implicit TLS. Some cloud platforms
// block one of the two ports, hence the ordered pair.
func GmailProfiles() []SMTPProfile {
	profiles := make([]SMTPProfile, 0, 2)
	for _, p := range []struct {
		port int
		ssl  bool
	}{{587, false}, {465, true}} {
		profiles = append(profiles, SMTPProfile{
			Host:            defaultSMTPHost,
			Port:            p.port,
			SSL:             p.ssl,
			ConnectTimeout:  smtpConnectTimeout,
			GreetingTimeout: smtpGreetingTimeout,
			SocketTimeout:   smtpSocketTimeout,
		})
	}
	return profiles
}

// smtpDialer matches gomail.Dialer so tests can substitute fake transports.
type smtpDialer interface {
	Dial() (gomail.SendCloser, error)
}

// SMTPFallback delivers alerts over direct SMTP connections, trying an
// ordered list of connection profiles. Verify pins the first working
// profile; Send uses the pinned profile with a per-attempt deadline and the
// default bounded retry policy.
type SMTPFallback struct {
	user        string
	from        string
	recipient   string
	profiles    []SMTPProfile
	dialers     []smtpDialer
	sendTimeout time.Duration
	policy      retryPolicy
	log         *zap.SugaredLogger

	mu     sync.Mutex
	active int
}

// NewSMTPFallback builds the SMTP backend from operator credentials. The
// sender identity defaults to the authenticated account unless overridden.
func NewSMTPFallback(cfg config.Mail, profiles []SMTPProfile, log *zap.SugaredLogger) *SMTPFallback {
	from := cfg.SenderAddress
	if from == "" {
		from = cfg.User
	}

	dialers := make([]smtpDialer, 0, len(profiles))
	for _, p := range profiles {
		d := gomail.NewDialer(p.Host, p.Port, cfg.User, cfg.Password)
		d.SSL = p.SSL
		// Hosted SMTP endpoints frequently sit behind proxies whose
		// certificates do not verify against system roots.
		d.TLSConfig = &tls.Config{InsecureSkipVerify: true, ServerName: p.Host}
		dialers = append(dialers, d)
	}

	return &SMTPFallback{
		user:        cfg.User,
		from:        from,
		recipient:   cfg.Recipient,
		profiles:    profiles,
		dialers:     dialers,
		sendTimeout: smtpSendTimeout,
		policy:      defaultRetryPolicy(),
		log:         log.Named("smtp"),
	}
}

func (s *SMTPFallback) Configured() bool {
	return s.user != "" && len(s.dialers) > 0
}

// Verify attempts the connection profiles in order, starting from the
// currently pinned one. The first profile that accepts a connection becomes
// the active profile for subsequent sends. Exhausting every profile returns
// the last error; callers at startup log it and carry on.
func (s *SMTPFallback) Verify(ctx context.Context) error {
	if !s.Configured() {
		return &ConfigError{Reason: "Email transporter not configured. Set GMAIL_USER and GMAIL_PASS."}
	}

	start := s.activeProfile()
	var lastErr error
	for i := start; i < len(s.dialers); i++ {
		profile := s.profiles[i]
		sc, err := s.dial(ctx, i, profile.ConnectTimeout+profile.GreetingTimeout)
		if err == nil {
			_ = sc.Close()
			s.setActiveProfile(i)
			s.log.Infow("SMTP connection verified",
				"host", profile.Host,
				"port", profile.Port,
				"user", s.user)
			return nil
		}
		lastErr = err
		s.log.Warnw("SMTP verification failed",
			"host", profile.Host,
			"port", profile.Port,
			"profile", i+1,
			"error", err)
		if i < len(s.dialers)-1 {
			s.log.Infow("Trying alternative SMTP configuration", "profile", i+2)
		}
	}
	s.log.Errorw("All SMTP configurations failed",
		"profiles", len(s.dialers),
		"hint", "ensure 2FA is on and the password is an app password; check that ports 587/465 are reachable")
	return fmt.Errorf("all %d SMTP configurations failed: %w", len(s.dialers), lastErr)
}

// Send transmits one alert through the active profile. Each attempt races a
// wall-clock deadline against the transmission; timeouts are retried per the
// default policy before the last error is surfaced.
func (s *SMTPFallback) Send(ctx context.Context, msg Message) error {
	if !s.Configured() {
		return &ConfigError{Reason: "Email transporter not configured. Set GMAIL_USER and GMAIL_PASS."}
	}
	if s.recipient == "" {
		return &ConfigError{Reason: "No recipient configured. Set NOTIFY_EMAIL or RECIPIENT_EMAIL."}
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", s.recipient)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}

	attempts, err := s.policy.do(ctx, s.log, smtpBackend, func(ctx context.Context) error {
		return s.transmit(ctx, m)
	})
	if err != nil {
		metrics.MailSendFailure.WithLabelValues(smtpBackend).Inc()
		return &SendError{Attempts: attempts, Err: err}
	}

	metrics.MailSendSuccess.WithLabelValues(smtpBackend).Inc()
	s.log.Infow("Email notification sent", "attempts", attempts, "recipient", s.recipient)
	return nil
}

// transmit performs one dial-and-send against the active profile, bounded by
// the per-send deadline.
func (s *SMTPFallback) transmit(ctx context.Context, m *gomail.Message) error {
	ctx, cancel := context.WithTimeout(ctx, s.sendTimeout)
	defer cancel()

	idx := s.activeProfile()
	done := make(chan error, 1)
	go func() {
		sc, err := s.dialers[idx].Dial()
		if err != nil {
			done <- err
			return
		}
		defer sc.Close()
		done <- gomail.Send(sc, m)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return fmt.Errorf("email send timeout after %s", s.sendTimeout)
	}
}

// dial connects one profile with a bounded deadline. The dial goroutine is
// left to finish on its own when the deadline fires; its connection is
// closed as soon as it materializes.
func (s *SMTPFallback) dial(ctx context.Context, idx int, timeout time.Duration) (gomail.SendCloser, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		sc  gomail.SendCloser
		err error
	}
	done := make(chan result, 1)
	go func() {
		sc, err := s.dialers[idx].Dial()
		done <- result{sc: sc, err: err}
	}()

	select {
	case r := <-done:
		return r.sc, r.err
	case <-ctx.Done():
		go func() {
			if r := <-done; r.err == nil {
				_ = r.sc.Close()
			}
		}()
		return nil, fmt.Errorf("smtp dial timeout after %s", timeout)
	}
}

func (s *SMTPFallback) activeProfile() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

func (s *SMTPFallback) setActiveProfile(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.active = i
}
