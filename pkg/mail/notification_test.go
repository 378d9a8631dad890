package mail

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hospiceconnect/intake/pkg/store"
)

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

func fullSubmission() store.Submission {
	return store.Submission{
		ID:                  42,
		CareRecipient:       strPtr("My mother"),
		MainConcern:         strPtr("Pain management"),
		MedicalSituation:    strPtr("Stage IV cancer"),
		CurrentCareLocation: strPtr("At home"),
		UrgencyLevel:        strPtr("Within days"),
		FirstName:           strPtr("Dana"),
		Phone:               strPtr("555-0134"),
		Email:               strPtr("dana@example.com"),
		BestTime:            strPtr("Mornings"),
		CarePreference:      strPtr("In-home care"),
		InsuranceCoverage:   strPtr("Medicare"),
		SpecialRequests:     strPtr("Spanish-speaking staff"),
		TermsConsent:        boolPtr(true),
	}
}

func TestRenderSubject(t *testing.T) {
	msg, err := Render(fullSubmission())
	require.NoError(t, err)
	assert.Equal(t, "New HospiceConnect submission #42", msg.Subject)
}

func TestRenderIncludesAllFields(t *testing.T) {
	msg, err := Render(fullSubmission())
	require.NoError(t, err)

	for _, want := range []string{
		"New submission received (ID: 42)",
		"Care recipient: My mother",
		"Main concern: Pain management",
		"Medical situation: Stage IV cancer",
		"Current care location: At home",
		"Urgency level: Within days",
		"First name: Dana",
		"Phone: 555-0134",
		"Email: dana@example.com",
		"Best time to call: Mornings",
		"Care preference: In-home care",
		"Insurance coverage: Medicare",
		"Special requests: Spanish-speaking staff",
		"Agreed to terms: Yes",
	} {
		assert.Contains(t, msg.Text, want)
	}

	for _, want := range []string{
		"<h3>Situation</h3>",
		"<h3>Contact</h3>",
		"<h3>Preferences</h3>",
		"<strong>Phone:</strong> 555-0134",
		"<strong>Agreed to terms:</strong> Yes",
	} {
		assert.Contains(t, msg.HTML, want)
	}
}

func TestRenderFieldOrderMatchesSections(t *testing.T) {
	msg, err := Render(fullSubmission())
	require.NoError(t, err)

	// Situation fields come before Contact fields, which come before
	// Preferences fields, in both renderings.
	textOrder := []string{"Care recipient:", "Urgency level:", "First name:", "Best time to call:", "Care preference:", "Agreed to terms:"}
	last := -1
	for _, marker := range textOrder {
		idx := strings.Index(msg.Text, marker)
		require.GreaterOrEqual(t, idx, 0, "text body missing %q", marker)
		assert.Greater(t, idx, last, "%q out of order in text body", marker)
		last = idx
	}

	htmlOrder := []string{"Care recipient:", "Urgency level:", "First name:", "Best time to call:", "Care preference:", "Agreed to terms:"}
	last = -1
	for _, marker := range htmlOrder {
		idx := strings.Index(msg.HTML, marker)
		require.GreaterOrEqual(t, idx, 0, "HTML body missing %q", marker)
		assert.Greater(t, idx, last, "%q out of order in HTML body", marker)
		last = idx
	}
}

func TestRenderMissingFieldsUsePlaceholder(t *testing.T) {
	sub := fullSubmission()
	sub.Phone = nil
	sub.SpecialRequests = strPtr("")

	msg, err := Render(sub)
	require.NoError(t, err)

	assert.Contains(t, msg.Text, "Phone: -")
	assert.Contains(t, msg.Text, "Special requests: -")
	assert.Contains(t, msg.HTML, "<strong>Phone:</strong> -")
	assert.Contains(t, msg.HTML, "<strong>Special requests:</strong> -")
}

func TestRenderEmptySubmission(t *testing.T) {
	msg, err := Render(store.Submission{ID: 7})
	require.NoError(t, err)

	assert.Contains(t, msg.Subject, "#7")
	assert.Contains(t, msg.Text, "Care recipient: -")
	// nil consent renders as No, never as the placeholder
	assert.Contains(t, msg.Text, "Agreed to terms: No")
	assert.NotContains(t, msg.Text, "Agreed to terms: -")
}

func TestTestMessage(t *testing.T) {
	msg := TestMessage()
	assert.Equal(t, "HospiceConnect debug email", msg.Subject)
	assert.NotEmpty(t, msg.Text)
	assert.NotEmpty(t, msg.HTML)
}
