package intake

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hospiceconnect/intake/pkg/apiresponses"
	"github.com/hospiceconnect/intake/pkg/mail"
	"github.com/hospiceconnect/intake/pkg/metrics"
	"github.com/hospiceconnect/intake/pkg/store"
)

// SubmissionStore is the slice of the persistence gateway the pipeline
// needs. *store.Store satisfies it; tests substitute fakes.
type SubmissionStore interface {
	Insert(ctx context.Context, sub store.Submission) (int64, error)
	List(ctx context.Context) ([]store.Submission, error)
}

// SubmissionController handles form intake and the email debug probe.
type SubmissionController struct {
	store   SubmissionStore
	channel mail.Channel
	log     *zap.SugaredLogger
}

func NewSubmissionController(s SubmissionStore, ch mail.Channel, log *zap.SugaredLogger) *SubmissionController {
	return &SubmissionController{
		store:   s,
		channel: ch,
		log:     log.Named("intake"),
	}
}

func (s *SubmissionController) BasePath() string { return "" }

func (s *SubmissionController) Handlers() []gin.HandlerFunc { return nil }

func (s *SubmissionController) Register(rg *gin.RouterGroup) error {
	rg.POST("/submissions", s.handleSubmission)
	rg.GET("/debug/email", s.debugEmail)
	return nil
}

type submissionResponse struct {
	Message    string `json:"message"`
	ID         int64  `json:"id"`
	EmailSent  bool   `json:"emailSent"`
	EmailError string `json:"emailError,omitempty"`
}

// handleSubmission persists the payload, then attempts the operator
// notification exactly once through the channel. Persistence failure aborts
// the request; a notification failure never does.
func (s *SubmissionController) handleSubmission(c *gin.Context) {
	var sub store.Submission
	if err := c.BindJSON(&sub); err != nil {
		return
	}
	// id and submitted_at are store-assigned, never client-supplied
	sub.ID = 0

	id, err := s.store.Insert(c.Request.Context(), sub)
	if err != nil {
		metrics.SubmissionSaveFailures.Inc()
		apiresponses.RespondInternalError(c, "save submission", err, s.log)
		return
	}
	metrics.SubmissionsSaved.Inc()
	sub.ID = id

	emailSent, emailError := s.notify(c.Request.Context(), sub)

	apiresponses.RespondCreated(c, submissionResponse{
		Message:    "Submission saved successfully",
		ID:         id,
		EmailSent:  emailSent,
		EmailError: emailError,
	})
}

// notify renders and sends the operator alert. The channel owns its own
// retry budget; this is one logical delivery.
func (s *SubmissionController) notify(ctx context.Context, sub store.Submission) (bool, string) {
	deliveryID := uuid.NewString()

	msg, err := mail.Render(sub)
	if err != nil {
		s.log.Errorw("Error rendering email notification",
			"deliveryID", deliveryID,
			"submission", sub.ID,
			"error", err)
		return false, err.Error()
	}

	if err := s.channel.Send(ctx, msg); err != nil {
		if mail.IsConfigError(err) {
			s.log.Warnw("Email notification skipped, channel not configured",
				"deliveryID", deliveryID,
				"submission", sub.ID,
				"error", err)
		} else {
			s.log.Errorw("Error sending email notification after retries",
				"deliveryID", deliveryID,
				"submission", sub.ID,
				"error", err)
		}
		return false, err.Error()
	}

	s.log.Infow("Email notification sent successfully",
		"deliveryID", deliveryID,
		"submission", sub.ID)
	return true, ""
}

// debugEmail exercises the notification channel outside the submission
// flow: configuration gaps are client errors, transmission failures are
// server errors.
func (s *SubmissionController) debugEmail(c *gin.Context) {
	ctx := c.Request.Context()

	if err := s.channel.Verify(ctx); err != nil {
		s.debugError(c, err)
		return
	}
	if err := s.channel.Send(ctx, mail.TestMessage()); err != nil {
		s.debugError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "message": "Debug email sent successfully"})
}

func (s *SubmissionController) debugError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if mail.IsConfigError(err) {
		status = http.StatusBadRequest
	} else {
		s.log.Errorw("Debug email failed", "error", err)
	}
	c.JSON(status, gin.H{"ok": false, "error": err.Error()})
}

// AdminController is the read-only listing surface. It sits behind the
// bearer-token middleware supplied at construction.
type AdminController struct {
	store SubmissionStore
	auth  []gin.HandlerFunc
	log   *zap.SugaredLogger
}

func NewAdminController(s SubmissionStore, auth gin.HandlerFunc, log *zap.SugaredLogger) *AdminController {
	return &AdminController{
		store: s,
		auth:  []gin.HandlerFunc{auth},
		log:   log.Named("admin"),
	}
}

func (a *AdminController) BasePath() string { return "admin" }

func (a *AdminController) Handlers() []gin.HandlerFunc { return a.auth }

func (a *AdminController) Register(rg *gin.RouterGroup) error {
	rg.GET("/submissions", a.listSubmissions)
	return nil
}

func (a *AdminController) listSubmissions(c *gin.Context) {
	subs, err := a.store.List(c.Request.Context())
	if err != nil {
		apiresponses.RespondInternalError(c, "fetch submissions", err, a.log)
		return
	}
	metrics.SubmissionsListed.Inc()
	apiresponses.RespondOK(c, gin.H{"submissions": subs})
}
