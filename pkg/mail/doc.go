// Package mail delivers operator alert emails for care-inquiry submissions.
// It provides two interchangeable backends behind the Channel interface:
// direct SMTP with ordered fallback connection profiles, and a hosted
// transactional sending API. Both apply the same bounded retry policy.
package mail
