// Package store is the persistence gateway for care-inquiry submissions.
// It executes parameterized statements against Postgres and owns no retry
// logic; callers treat any failure as fatal for their request.
package store
