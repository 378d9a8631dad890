package mail

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"

	"github.com/LerianStudio/lib-uncommons/v2/uncommons/backoff"
	"go.uber.org/zap"

	"github.com/hospiceconnect/intake/pkg/metrics"
)

// retryPolicy bounds repeated send attempts. MaxAttempts counts the initial
// attempt, so 3 means initial plus 2 retries.
type retryPolicy struct {
	MaxAttempts int
	Backoff     time.Duration
	Retryable   func(error) bool
}

// defaultRetryPolicy mirrors the delivery policy this service has always
// had: one initial attempt, two retries on timeouts, fixed 2 second pause.
func defaultRetryPolicy() retryPolicy {
	return retryPolicy{
		MaxAttempts: 3,
		Backoff:     2 * time.Second,
		Retryable:   isTimeout,
	}
}

// do runs op until it succeeds, the retry budget is spent, or a
// non-retryable error occurs. It returns the number of attempts made.
// Backoff sleeps are context-aware so a cancelled request never keeps a
// goroutine sleeping.
func (p retryPolicy) do(ctx context.Context, log *zap.SugaredLogger, backend string, op func(context.Context) error) (int, error) {
	var lastErr error

	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		err := op(ctx)
		if err == nil {
			if attempt > 1 {
				log.Infow("Email sent after retry", "backend", backend, "attempt", attempt)
			}
			return attempt, nil
		}
		lastErr = err

		if attempt == p.MaxAttempts || !p.Retryable(err) {
			log.Errorw("Email send attempt failed, giving up",
				"backend", backend,
				"attempt", attempt,
				"error", err)
			return attempt, lastErr
		}

		log.Warnw("Email send attempt failed, retrying",
			"backend", backend,
			"attempt", attempt,
			"retryIn", p.Backoff,
			"error", err)
		metrics.MailSendRetries.WithLabelValues(backend).Inc()

		if err := backoff.WaitContext(ctx, p.Backoff); err != nil {
			return attempt, lastErr
		}
	}
	return p.MaxAttempts, lastErr
}

// isTimeout reports whether err looks like a stalled connection: a net
// timeout, an expired deadline, or a transport message mentioning one.
func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "timeout")
}
