package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"

	apperrors "github.com/khrees2412/talentflow/internal/errors"
)

// Store is the entity store for candidates, jobs, events, notifications,
// incentives and onboarding forms.
type Store struct {
	db *sql.DB
}

// Open creates and opens the SQLite database at path and runs migrations
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open with DSN options for SQLite pragmas
	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_busy_timeout=5000&_journal_mode=WAL", path)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Store{db: db}, nil
}

// New wraps an already migrated database
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// DB exposes the underlying handle
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// RunMigrations creates all necessary tables
func RunMigrations(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL UNIQUE,
		role TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		CHECK(role IN ('ta', 'hr', 'bu', 'vendor', 'freelancer', 'admin'))
	);

	CREATE TABLE IF NOT EXISTS organizations (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS candidates (
		id TEXT PRIMARY KEY,
		first_name TEXT NOT NULL,
		last_name TEXT NOT NULL DEFAULT '',
		email TEXT NOT NULL UNIQUE,
		mobile TEXT NOT NULL UNIQUE,
		candidate_type TEXT NOT NULL DEFAULT 'external',
		is_experienced BOOLEAN NOT NULL DEFAULT 0,
		is_dummy BOOLEAN NOT NULL DEFAULT 0,
		is_referred BOOLEAN NOT NULL DEFAULT 0,
		vendor_referred BOOLEAN NOT NULL DEFAULT 0,
		resume TEXT NOT NULL DEFAULT '',
		skills TEXT NOT NULL DEFAULT '[]',
		qualification TEXT NOT NULL DEFAULT '',
		passing_year INTEGER NOT NULL DEFAULT 0,
		total_experience REAL NOT NULL DEFAULT 0,
		current_company TEXT NOT NULL DEFAULT '',
		location TEXT NOT NULL DEFAULT '',
		assigned_to TEXT NOT NULL DEFAULT '',
		is_assigned BOOLEAN NOT NULL DEFAULT 0,
		poc TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		rejected_at DATETIME,
		vendor_manager_id TEXT NOT NULL DEFAULT '',
		vendor_manager_name TEXT NOT NULL DEFAULT '',
		vendor_name TEXT NOT NULL DEFAULT '',
		vendor_email TEXT NOT NULL DEFAULT '',
		onboarding_initiated BOOLEAN NOT NULL DEFAULT 0,
		onboarding_initiate_date DATETIME,
		onboarding_reinitiated BOOLEAN NOT NULL DEFAULT 0,
		joining_date DATETIME,
		designation TEXT NOT NULL DEFAULT '',
		organization_id TEXT NOT NULL DEFAULT '',
		joining_feedback TEXT NOT NULL DEFAULT '',
		consent_form TEXT NOT NULL DEFAULT '',
		is_consent_uploaded BOOLEAN NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		CHECK(candidate_type IN ('internal', 'external', 'vendor')),
		CHECK(status IN ('pending', 'assigned', 'onhold', 'shortlisted', 'pipeline', 'bench',
			'approved', 'review', 'employee', 'trainee', 'deployed', 'rejected', 'hired'))
	);

	CREATE TABLE IF NOT EXISTS candidate_remarks (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		candidate_id TEXT NOT NULL,
		title TEXT NOT NULL,
		author_id TEXT NOT NULL,
		author_name TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (candidate_id) REFERENCES candidates(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS jobs (
		id TEXT PRIMARY KEY,
		job_code TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL,
		organization_id TEXT NOT NULL,
		organization_name TEXT NOT NULL,
		location TEXT NOT NULL,
		description TEXT NOT NULL,
		domains TEXT NOT NULL DEFAULT '[]',
		skills TEXT NOT NULL DEFAULT '[]',
		experience_min REAL NOT NULL DEFAULT 0,
		experience_max REAL NOT NULL DEFAULT 0,
		no_of_positions INTEGER NOT NULL DEFAULT 1,
		budget_min REAL NOT NULL DEFAULT 0,
		budget_max REAL NOT NULL DEFAULT 0,
		modified_budget_min REAL,
		modified_budget_max REAL,
		referral_amount REAL NOT NULL DEFAULT 0,
		status TEXT NOT NULL DEFAULT 'Active',
		visibility TEXT NOT NULL DEFAULT 'all',
		created_by TEXT NOT NULL,
		end_date DATETIME,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		FOREIGN KEY (organization_id) REFERENCES organizations(id),
		CHECK(status IN ('Active', 'Inactive', 'On Hold', 'Filled')),
		CHECK(visibility IN ('ta', 'bu', 'vendor', 'all'))
	);

	CREATE TABLE IF NOT EXISTS referrals (
		job_id TEXT NOT NULL,
		candidate_id TEXT NOT NULL,
		added_by TEXT NOT NULL,
		added_at DATETIME NOT NULL,
		approved_by_bu BOOLEAN NOT NULL DEFAULT 0,
		bu_approval_date DATETIME,
		bu_approved_by TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (job_id, candidate_id),
		FOREIGN KEY (job_id) REFERENCES jobs(id) ON DELETE CASCADE,
		FOREIGN KEY (candidate_id) REFERENCES candidates(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS candidate_jobs (
		candidate_id TEXT NOT NULL,
		job_id TEXT NOT NULL,
		added_at DATETIME NOT NULL,
		PRIMARY KEY (candidate_id, job_id),
		FOREIGN KEY (candidate_id) REFERENCES candidates(id) ON DELETE CASCADE,
		FOREIGN KEY (job_id) REFERENCES jobs(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT PRIMARY KEY,
		candidate_id TEXT NOT NULL,
		candidate_name TEXT NOT NULL,
		candidate_email TEXT NOT NULL,
		candidate_mobile TEXT NOT NULL,
		candidate_resume TEXT NOT NULL,
		candidate_type TEXT NOT NULL DEFAULT '',
		interviewer_id TEXT NOT NULL,
		interviewer_name TEXT NOT NULL,
		interviewer_email TEXT NOT NULL,
		organization_id TEXT NOT NULL,
		organization_name TEXT NOT NULL,
		scheduled_by TEXT NOT NULL,
		event_name TEXT NOT NULL,
		interview_date DATETIME NOT NULL,
		meeting_link TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL DEFAULT 'pending',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL,
		CHECK(status IN ('pending', 'submitted', 'approved', 'rejected'))
	);

	CREATE TABLE IF NOT EXISTS notifications (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		sender_id TEXT NOT NULL,
		receiver_id TEXT NOT NULL DEFAULT '',
		priority TEXT NOT NULL DEFAULT 'normal',
		is_read BOOLEAN NOT NULL DEFAULT 0,
		entity_type TEXT NOT NULL,
		message TEXT NOT NULL,
		metadata TEXT NOT NULL DEFAULT '{}',
		created_at DATETIME NOT NULL,
		CHECK(priority IN ('low', 'normal', 'high')),
		CHECK(entity_type IN ('notification', 'activity', 'hr_notification', 'bu_notification', 'candidate-assigned'))
	);

	CREATE TABLE IF NOT EXISTS incentives (
		freelancer_id TEXT PRIMARY KEY,
		incentive_amount REAL NOT NULL DEFAULT 0,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS incentive_jobs (
		freelancer_id TEXT NOT NULL,
		job_id TEXT NOT NULL,
		added_at DATETIME NOT NULL,
		PRIMARY KEY (freelancer_id, job_id),
		FOREIGN KEY (freelancer_id) REFERENCES incentives(freelancer_id) ON DELETE CASCADE,
		FOREIGN KEY (job_id) REFERENCES jobs(id)
	);

	CREATE TABLE IF NOT EXISTS onboarding_forms (
		id TEXT PRIMARY KEY,
		candidate_id TEXT NOT NULL UNIQUE,
		email TEXT NOT NULL UNIQUE,
		payload TEXT NOT NULL,
		submitted_at DATETIME NOT NULL,
		FOREIGN KEY (candidate_id) REFERENCES candidates(id) ON DELETE CASCADE
	);

	CREATE TABLE IF NOT EXISTS sequences (
		name TEXT PRIMARY KEY,
		seq INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_candidates_pipeline ON candidates(status, candidate_type, updated_at);
	CREATE INDEX IF NOT EXISTS idx_candidates_assigned_to ON candidates(assigned_to);
	CREATE INDEX IF NOT EXISTS idx_remarks_candidate ON candidate_remarks(candidate_id);
	CREATE INDEX IF NOT EXISTS idx_jobs_status_end ON jobs(status, end_date);
	CREATE INDEX IF NOT EXISTS idx_referrals_candidate ON referrals(candidate_id);
	CREATE INDEX IF NOT EXISTS idx_events_candidate ON events(candidate_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_notifications_receiver ON notifications(receiver_id, created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// NextSequence atomically increments the named counter and returns the new
// value. The first call for a name returns 1.
func (s *Store) NextSequence(ctx context.Context, name string) (int64, error) {
	query := `INSERT INTO sequences (name, seq) VALUES (?, 1)
			  ON CONFLICT(name) DO UPDATE SET seq = seq + 1
			  RETURNING seq`
	var seq int64
	if err := s.db.QueryRowContext(ctx, query, name).Scan(&seq); err != nil {
		return 0, apperrors.Internal("increment sequence "+name, err)
	}
	return seq, nil
}

// isUniqueViolation reports whether err is a UNIQUE or PRIMARY KEY failure
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// translate maps driver errors onto domain errors
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return apperrors.NotFound(what+" not found", nil)
	}
	if isUniqueViolation(err) {
		return apperrors.Conflict(what+" already exists", err)
	}
	return apperrors.Internal(what, err)
}

// stringList is a JSON-encoded []string column
type stringList []string

func (l stringList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]string(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

func (l *stringList) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*l = stringList{}
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("stringList: unsupported type %T", src)
	}
	out := []string{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return err
	}
	*l = out
	return nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
