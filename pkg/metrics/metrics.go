package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	SubmissionsSaved = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "intake_submissions_saved_total",
		Help: "Total number of care-inquiry submissions persisted",
	})
	SubmissionSaveFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "intake_submission_save_failures_total",
		Help: "Total number of submission writes rejected by the store",
	})
	SubmissionsListed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "intake_submissions_listed_total",
		Help: "Total number of admin listing queries served",
	})

	// Mail metrics
	MailSendSuccess = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "intake_mail_send_success_total",
		Help: "Total number of successful notification sends",
	}, []string{"backend"})
	MailSendFailure = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "intake_mail_send_failure_total",
		Help: "Total number of notification sends that failed after all retries",
	}, []string{"backend"})
	MailSendRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "intake_mail_send_retries_total",
		Help: "Total number of notification send retries scheduled",
	}, []string{"backend"})
)

func init() {
	prometheus.MustRegister(SubmissionsSaved)
	prometheus.MustRegister(SubmissionSaveFailures)
	prometheus.MustRegister(SubmissionsListed)
	prometheus.MustRegister(MailSendSuccess)
	prometheus.MustRegister(MailSendFailure)
	prometheus.MustRegister(MailSendRetries)
}

// MetricsHandler returns an http.Handler exposing Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
