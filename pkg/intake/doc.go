// Package intake implements the care-inquiry submission pipeline: persist
// the form, best-effort notify an operator, and reconcile partial failure
// into a single response. It also carries the admin listing and the email
// debug probe.
package intake
