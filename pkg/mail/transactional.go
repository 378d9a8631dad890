package mail

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/hospiceconnect/intake/pkg/config"
	"github.com/hospiceconnect/intake/pkg/metrics"
)

const (
	apiBackend        = "api"
	defaultAPIBaseURL = "https://api.resend.com"

	// apiErrorBodyLimit caps how much of an API error response ends up in
	// logs and error messages.
	apiErrorBodyLimit = 512
)

// Transactional delivers alerts through a hosted email sending API over
// HTTPS. Unlike SMTP, the API rejects an unset sender, so both sender and
// recipient must be configured before any send is attempted. It adopts the
// same per-attempt timeout and retry policy as the SMTP backend so both
// channels behave identically under transient failure.
type Transactional struct {
	apiKey    string
	from      string
	recipient string
	baseURL   string
	client    *http.Client
	policy    retryPolicy
	log       *zap.SugaredLogger
}

type apiSendRequest struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html,omitempty"`
}

// NewTransactional builds the API backend from the configured key.
func NewTransactional(cfg config.Mail, log *zap.SugaredLogger) *Transactional {
	return &Transactional{
		apiKey:    cfg.APIKey,
		from:      cfg.SenderAddress,
		recipient: cfg.Recipient,
		baseURL:   defaultAPIBaseURL,
		client:    &http.Client{Timeout: smtpSendTimeout},
		policy:    defaultRetryPolicy(),
		log:       log.Named("mail-api"),
	}
}

func (t *Transactional) Configured() bool { return t.apiKey != "" }

// Verify checks the configuration is complete. The hosted API offers no
// cheap connectivity probe, so verification stops at configuration.
func (t *Transactional) Verify(_ context.Context) error {
	return t.checkConfig()
}

// Send posts the message to the sending API, retrying timeouts under the
// default policy. Configuration gaps are reported before any network I/O.
func (t *Transactional) Send(ctx context.Context, msg Message) error {
	if err := t.checkConfig(); err != nil {
		return err
	}

	payload, err := json.Marshal(apiSendRequest{
		From:    t.from,
		To:      t.recipient,
		Subject: msg.Subject,
		Text:    msg.Text,
		HTML:    msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("encoding send request: %w", err)
	}

	attempts, err := t.policy.do(ctx, t.log, apiBackend, func(ctx context.Context) error {
		return t.post(ctx, payload)
	})
	if err != nil {
		metrics.MailSendFailure.WithLabelValues(apiBackend).Inc()
		return &SendError{Attempts: attempts, Err: err}
	}

	metrics.MailSendSuccess.WithLabelValues(apiBackend).Inc()
	t.log.Infow("Email notification sent", "attempts", attempts, "recipient", t.recipient)
	return nil
}

func (t *Transactional) post(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL+"/emails", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, apiErrorBodyLimit))
		return fmt.Errorf("sending API returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

func (t *Transactional) checkConfig() error {
	if t.apiKey == "" {
		return &ConfigError{Reason: "Email transporter not configured. Set RESEND_API_KEY."}
	}
	if t.recipient == "" {
		return &ConfigError{Reason: "No recipient configured. Set NOTIFY_EMAIL or RECIPIENT_EMAIL."}
	}
	if t.from == "" {
		return &ConfigError{Reason: "No sender configured. Set MAIL_FROM."}
	}
	return nil
}
