package store

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/hospiceconnect/intake/pkg/config"
)

const operationTimeout = 5 * time.Second

// StoreError wraps any connection or query failure. It is fatal to the
// request that triggered it; no retries happen at this layer.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store: %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

type sqlOpenFunc func(driverName, dsn string) (*sql.DB, error)

// Store executes parameterized inserts and selects against the submissions
// table. The underlying *sql.DB pool is shared across requests; connections
// are checked out per query and released immediately.
type Store struct {
	db  *sql.DB
	log *zap.SugaredLogger

	openDB sqlOpenFunc
}

// New opens the connection pool for the configured database. The connection
// is not exercised here; call Ping to check reachability.
func New(cfg config.Database, log *zap.SugaredLogger) (*Store, error) {
	s := &Store{log: log.Named("store"), openDB: sql.Open}

	dsn, err := ResolveDSN(cfg)
	if err != nil {
		return nil, err
	}
	db, err := s.openDB("postgres", dsn)
	if err != nil {
		return nil, &StoreError{Op: "open", Err: err}
	}
	s.db = db
	return s, nil
}

// ResolveDSN builds the lib/pq connection string from the configuration.
// A connection URL wins over discrete fields; hosted Postgres offerings
// terminate TLS with certificates that do not verify against system roots,
// so URL connections get sslmode=require unless the URL says otherwise.
func ResolveDSN(cfg config.Database) (string, error) {
	if cfg.URL != "" {
		u, err := url.Parse(cfg.URL)
		if err != nil {
			return "", &StoreError{Op: "parse database url", Err: err}
		}
		q := u.Query()
		if q.Get("sslmode") == "" {
			q.Set("sslmode", "require")
			u.RawQuery = q.Encode()
		}
		return u.String(), nil
	}

	if cfg.Host == "" || cfg.Name == "" {
		return "", &StoreError{Op: "resolve dsn", Err: fmt.Errorf("no database configured: set DATABASE_URL or DB_HOST and DB_NAME")}
	}

	parts := []string{
		"host=" + cfg.Host,
		"dbname=" + cfg.Name,
		"sslmode=disable",
	}
	if cfg.Port > 0 {
		parts = append(parts, fmt.Sprintf("port=%d", cfg.Port))
	}
	if cfg.User != "" {
		parts = append(parts, "user="+cfg.User)
	}
	if cfg.Password != "" {
		parts = append(parts, "password="+cfg.Password)
	}
	return strings.Join(parts, " "), nil
}

// Ping verifies database reachability. Used once at startup; failure is
// logged there but does not prevent the process from serving.
func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return &StoreError{Op: "ping", Err: err}
	}
	return nil
}

// EnsureSchema creates the submissions table when it does not exist yet.
func (s *Store) EnsureSchema(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	const query = `
		CREATE TABLE IF NOT EXISTS submissions (
			id BIGSERIAL PRIMARY KEY,
			care_recipient TEXT,
			main_concern TEXT,
			medical_situation TEXT,
			current_care_location TEXT,
			urgency_level TEXT,
			first_name TEXT,
			phone TEXT,
			email TEXT,
			best_time TEXT,
			care_preference TEXT,
			insurance_coverage TEXT,
			special_requests TEXT,
			terms_consent BOOLEAN,
			submitted_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`
	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return &StoreError{Op: "ensure schema", Err: err}
	}
	return nil
}

// Insert writes one submission verbatim and returns the store-assigned id.
func (s *Store) Insert(ctx context.Context, sub Submission) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	const query = `
		INSERT INTO submissions (
			care_recipient, main_concern, medical_situation, current_care_location,
			urgency_level, first_name, phone, email, best_time,
			care_preference, insurance_coverage, special_requests, terms_consent
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`

	var id int64
	err := s.db.QueryRowContext(ctx, query,
		sub.CareRecipient, sub.MainConcern, sub.MedicalSituation, sub.CurrentCareLocation,
		sub.UrgencyLevel, sub.FirstName, sub.Phone, sub.Email, sub.BestTime,
		sub.CarePreference, sub.InsuranceCoverage, sub.SpecialRequests, sub.TermsConsent,
	).Scan(&id)
	if err != nil {
		return 0, &StoreError{Op: "insert submission", Err: err}
	}

	s.log.Infow("Submission persisted", "id", id)
	return id, nil
}

// List returns every submission, newest submitted_at first. The id tiebreak
// keeps the order stable for rows sharing a timestamp.
func (s *Store) List(ctx context.Context) ([]Submission, error) {
	ctx, cancel := context.WithTimeout(ctx, operationTimeout)
	defer cancel()

	const query = `
		SELECT id, submitted_at,
			care_recipient, main_concern, medical_situation, current_care_location,
			urgency_level, first_name, phone, email, best_time,
			care_preference, insurance_coverage, special_requests, terms_consent
		FROM submissions
		ORDER BY submitted_at DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &StoreError{Op: "list submissions", Err: err}
	}
	defer rows.Close()

	subs := make([]Submission, 0)
	for rows.Next() {
		var sub Submission
		if err := rows.Scan(
			&sub.ID, &sub.SubmittedAt,
			&sub.CareRecipient, &sub.MainConcern, &sub.MedicalSituation, &sub.CurrentCareLocation,
			&sub.UrgencyLevel, &sub.FirstName, &sub.Phone, &sub.Email, &sub.BestTime,
			&sub.CarePreference, &sub.InsuranceCoverage, &sub.SpecialRequests, &sub.TermsConsent,
		); err != nil {
			return nil, &StoreError{Op: "scan submission", Err: err}
		}
		subs = append(subs, sub)
	}
	if err := rows.Err(); err != nil {
		return nil, &StoreError{Op: "list submissions", Err: err}
	}
	return subs, nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
