package store

import "time"

// Submission is one persisted care-inquiry form record. Every form field is
// optional at the application layer; the store is the sole source of truth
// for ID and SubmittedAt. Rows are never updated or deleted once written.
type Submission struct {
	ID          int64     `json:"id"`
	SubmittedAt time.Time `json:"submitted_at"`

	CareRecipient       *string `json:"care_recipient"`
	MainConcern         *string `json:"main_concern"`
	MedicalSituation    *string `json:"medical_situation"`
	CurrentCareLocation *string `json:"current_care_location"`
	UrgencyLevel        *string `json:"urgency_level"`

	FirstName *string `json:"first_name"`
	Phone     *string `json:"phone"`
	Email     *string `json:"email"`
	BestTime  *string `json:"best_time"`

	CarePreference    *string `json:"care_preference"`
	InsuranceCoverage *string `json:"insurance_coverage"`
	SpecialRequests   *string `json:"special_requests"`
	TermsConsent      *bool   `json:"terms_consent"`
}
