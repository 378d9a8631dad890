package mail

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/hospiceconnect/intake/pkg/store"
)

// placeholder replaces absent form values in rendered notifications.
const placeholder = "-"

type notificationParams struct {
	ID int64

	CareRecipient       string
	MainConcern         string
	MedicalSituation    string
	CurrentCareLocation string
	UrgencyLevel        string

	FirstName string
	Phone     string
	Email     string
	BestTime  string

	CarePreference    string
	InsuranceCoverage string
	SpecialRequests   string
	TermsConsent      string
}

var (
	notificationTemplate = template.New("notification")

	//go:embed templates/notification.html
	notificationTemplateRaw string
)

func init() {
	if _, err := notificationTemplate.Parse(notificationTemplateRaw); err != nil {
		panic(err)
	}
}

// Render builds the operator alert for a persisted submission: subject line,
// plain-text body and an HTML body with identical structure and field order.
func Render(sub store.Submission) (Message, error) {
	p := newNotificationParams(sub)

	var b bytes.Buffer
	if err := notificationTemplate.Execute(&b, p); err != nil {
		return Message{}, fmt.Errorf("rendering notification HTML: %w", err)
	}

	return Message{
		Subject: fmt.Sprintf("New HospiceConnect submission #%d", sub.ID),
		Text:    renderText(p),
		HTML:    b.String(),
	}, nil
}

// TestMessage is the fixed payload the debug probe sends.
func TestMessage() Message {
	return Message{
		Subject: "HospiceConnect debug email",
		Text:    "This is a test email to verify the notification configuration.",
		HTML:    "<p>This is a test email to verify the notification configuration.</p>",
	}
}

func newNotificationParams(sub store.Submission) notificationParams {
	consent := "No"
	if sub.TermsConsent != nil && *sub.TermsConsent {
		consent = "Yes"
	}
	return notificationParams{
		ID:                  sub.ID,
		CareRecipient:       orDash(sub.CareRecipient),
		MainConcern:         orDash(sub.MainConcern),
		MedicalSituation:    orDash(sub.MedicalSituation),
		CurrentCareLocation: orDash(sub.CurrentCareLocation),
		UrgencyLevel:        orDash(sub.UrgencyLevel),
		FirstName:           orDash(sub.FirstName),
		Phone:               orDash(sub.Phone),
		Email:               orDash(sub.Email),
		BestTime:            orDash(sub.BestTime),
		CarePreference:      orDash(sub.CarePreference),
		InsuranceCoverage:   orDash(sub.InsuranceCoverage),
		SpecialRequests:     orDash(sub.SpecialRequests),
		TermsConsent:        consent,
	}
}

func renderText(p notificationParams) string {
	lines := []string{
		fmt.Sprintf("New submission received (ID: %d)", p.ID),
		"",
		"Care recipient: " + p.CareRecipient,
		"Main concern: " + p.MainConcern,
		"Medical situation: " + p.MedicalSituation,
		"Current care location: " + p.CurrentCareLocation,
		"Urgency level: " + p.UrgencyLevel,
		"",
		"First name: " + p.FirstName,
		"Phone: " + p.Phone,
		"Email: " + p.Email,
		"Best time to call: " + p.BestTime,
		"",
		"Care preference: " + p.CarePreference,
		"Insurance coverage: " + p.InsuranceCoverage,
		"Special requests: " + p.SpecialRequests,
		"Agreed to terms: " + p.TermsConsent,
	}
	return strings.Join(lines, "\n")
}

func orDash(v *string) string {
	if v == nil || *v == "" {
		return placeholder
	}
	return *v
}
