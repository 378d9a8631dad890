package mail

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/hospiceconnect/intake/pkg/config"
)

type fakeSendCloser struct {
	sendErrs  []error
	sendCalls int
}

func (f *fakeSendCloser) Send(from string, to []string, msg io.WriterTo) error {
	var err error
	if f.sendCalls < len(f.sendErrs) {
		err = f.sendErrs[f.sendCalls]
	}
	f.sendCalls++
	return err
}

func (f *fakeSendCloser) Close() error { return nil }

type fakeDialer struct {
	dialErr   error
	sc        *fakeSendCloser
	dialCalls int
}

func (f *fakeDialer) Dial() (gomail.SendCloser, error) {
	f.dialCalls++
	if f.dialErr != nil {
		return nil, f.dialErr
	}
	if f.sc == nil {
		f.sc = &fakeSendCloser{}
	}
	return f.sc, nil
}

func newTestSMTP(t *testing.T, dialers ...smtpDialer) *SMTPFallback {
	t.Helper()
	cfg := config.Mail{
		User:      "operator@example.com",
		Password:  "app-password",
		Recipient: "oncall@example.com",
	}
	s := NewSMTPFallback(cfg, GmailProfiles(), zap.NewNop().Sugar())
	require.Len(t, s.dialers, 2)
	if len(dialers) > 0 {
		require.Len(t, dialers, len(s.dialers), "fake dialers must match profile count")
		s.dialers = dialers
	}
	s.policy.Backoff = time.Millisecond
	return s
}

func TestGmailProfiles(t *testing.T) {
	profiles := GmailProfiles()
	require.Len(t, profiles, 2)

	assert.Equal(t, 587, profiles[0].Port)
	assert.False(t, profiles[0].SSL)
	assert.Equal(t, 465, profiles[1].Port)
	assert.True(t, profiles[1].SSL)

	for _, p := range profiles {
		assert.Equal(t, "smtp.gmail.com", p.Host)
		assert.Equal(t, 60*time.Second, p.ConnectTimeout)
		assert.Equal(t, 30*time.Second, p.GreetingTimeout)
		assert.Equal(t, 60*time.Second, p.SocketTimeout)
	}
}

func TestSMTPVerifyFallsBackToSecondProfile(t *testing.T) {
	first := &fakeDialer{dialErr: errors.New("dial tcp: connection refused")}
	second := &fakeDialer{}
	s := newTestSMTP(t, first, second)

	err := s.Verify(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, s.activeProfile(), "second profile should be pinned")
	assert.Equal(t, 1, first.dialCalls)
	assert.Equal(t, 1, second.dialCalls)
}

func TestSMTPVerifyExhaustsAllProfiles(t *testing.T) {
	first := &fakeDialer{dialErr: errors.New("connection refused")}
	second := &fakeDialer{dialErr: errors.New("i/o timeout")}
	s := newTestSMTP(t, first, second)

	err := s.Verify(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 SMTP configurations failed")
	assert.Equal(t, 0, s.activeProfile(), "active profile unchanged on total failure")
}

func TestSMTPVerifyStartsFromPinnedProfile(t *testing.T) {
	first := &fakeDialer{dialErr: errors.New("connection refused")}
	second := &fakeDialer{}
	s := newTestSMTP(t, first, second)
	s.setActiveProfile(1)

	require.NoError(t, s.Verify(context.Background()))
	assert.Equal(t, 0, first.dialCalls, "already-failed profile is not retried")
	assert.Equal(t, 1, second.dialCalls)
}

func TestSMTPSendRetriesTimeouts(t *testing.T) {
	sc := &fakeSendCloser{sendErrs: []error{
		errors.New("read tcp: i/o timeout"),
		errors.New("read tcp: i/o timeout"),
		nil,
	}}
	s := newTestSMTP(t, &fakeDialer{sc: sc}, &fakeDialer{})

	err := s.Send(context.Background(), Message{Subject: "s", Text: "t"})

	require.NoError(t, err)
	assert.Equal(t, 3, sc.sendCalls, "initial attempt plus two retries")
}

func TestSMTPSendFailsAfterRetryBudget(t *testing.T) {
	sc := &fakeSendCloser{sendErrs: []error{
		errors.New("read tcp: i/o timeout"),
		errors.New("read tcp: i/o timeout"),
		errors.New("read tcp: i/o timeout"),
	}}
	s := newTestSMTP(t, &fakeDialer{sc: sc}, &fakeDialer{})

	err := s.Send(context.Background(), Message{Subject: "s", Text: "t"})

	require.Error(t, err)
	var sendErr *SendError
	require.ErrorAs(t, err, &sendErr)
	assert.Equal(t, 3, sendErr.Attempts)
	assert.Equal(t, 3, sc.sendCalls)
}

func TestSMTPSendPermanentFailureDoesNotRetry(t *testing.T) {
	sc := &fakeSendCloser{sendErrs: []error{errors.New("535 authentication failed")}}
	s := newTestSMTP(t, &fakeDialer{sc: sc}, &fakeDialer{})

	err := s.Send(context.Background(), Message{Subject: "s", Text: "t"})

	require.Error(t, err)
	var sendErr *SendError
	require.ErrorAs(t, err, &sendErr)
	assert.Equal(t, 1, sendErr.Attempts)
	assert.Equal(t, 1, sc.sendCalls)
}

func TestSMTPSendAttemptDeadline(t *testing.T) {
	slow := &slowDialer{delay: time.Minute}
	s := newTestSMTP(t, slow, &fakeDialer{})
	s.sendTimeout = 10 * time.Millisecond
	s.policy.MaxAttempts = 1

	start := time.Now()
	err := s.Send(context.Background(), Message{Subject: "s", Text: "t"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSMTPSendWithoutRecipient(t *testing.T) {
	s := newTestSMTP(t, &fakeDialer{}, &fakeDialer{})
	s.recipient = ""

	err := s.Send(context.Background(), Message{Subject: "s"})

	require.Error(t, err)
	assert.True(t, IsConfigError(err))
	assert.Contains(t, err.Error(), "NOTIFY_EMAIL")
}

func TestSMTPSenderIdentityDefaultsToAccount(t *testing.T) {
	cfg := config.Mail{User: "operator@example.com", Password: "pw", Recipient: "oncall@example.com"}
	s := NewSMTPFallback(cfg, GmailProfiles(), zap.NewNop().Sugar())
	assert.Equal(t, "operator@example.com", s.from)

	cfg.SenderAddress = "noreply@example.com"
	s = NewSMTPFallback(cfg, GmailProfiles(), zap.NewNop().Sugar())
	assert.Equal(t, "noreply@example.com", s.from)
}

type slowDialer struct {
	delay time.Duration
}

func (s *slowDialer) Dial() (gomail.SendCloser, error) {
	time.Sleep(s.delay)
	return &fakeSendCloser{}, nil
}
