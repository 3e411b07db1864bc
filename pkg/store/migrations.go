package store

import (
	"context"

	"github.com/Sourpat/AutoComply-AI-sub000/pkg/fault"
)

// Schema lifecycle: CREATE IF NOT EXISTS plus additive ALTERs only.
// Startup never blocks on seeding; target init time is under 100ms.

var createStatements = []string{
	`CREATE TABLE IF NOT EXISTS submissions (
		id TEXT PRIMARY KEY,
		decision_type TEXT NOT NULL,
		submitted_by TEXT,
		account_id TEXT,
		location_id TEXT,
		form_data TEXT,
		raw_payload TEXT,
		evaluator_output TEXT,
		status TEXT NOT NULL,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS cases (
		id TEXT PRIMARY KEY,
		submission_id TEXT,
		decision_type TEXT NOT NULL,
		title TEXT NOT NULL,
		summary TEXT,
		status TEXT NOT NULL,
		assigned_to TEXT,
		assigned_at TEXT,
		due_at TEXT NOT NULL,
		packet_evidence_ids TEXT,
		searchable_text TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS evidence_items (
		id TEXT PRIMARY KEY,
		case_id TEXT NOT NULL,
		title TEXT NOT NULL,
		snippet TEXT,
		citation TEXT,
		source_id TEXT,
		tags TEXT,
		metadata TEXT,
		included_in_packet INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS case_events (
		id TEXT PRIMARY KEY,
		case_id TEXT NOT NULL,
		created_at TEXT NOT NULL,
		event_type TEXT NOT NULL,
		actor_role TEXT NOT NULL,
		actor_id TEXT,
		message TEXT NOT NULL,
		payload_json TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS attachments (
		id TEXT PRIMARY KEY,
		case_id TEXT NOT NULL,
		submission_id TEXT,
		filename TEXT NOT NULL,
		content_type TEXT NOT NULL,
		size_bytes INTEGER NOT NULL,
		storage_path TEXT NOT NULL,
		uploaded_by TEXT,
		description TEXT,
		is_deleted INTEGER NOT NULL DEFAULT 0,
		deleted_at TEXT,
		deleted_by TEXT,
		is_redacted INTEGER NOT NULL DEFAULT 0,
		redacted_at TEXT,
		redacted_by TEXT,
		original_sha256 TEXT,
		created_at TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS intelligence_history (
		id TEXT PRIMARY KEY,
		case_id TEXT NOT NULL,
		computed_at TEXT NOT NULL,
		confidence_score REAL NOT NULL,
		confidence_band TEXT NOT NULL,
		rules_passed INTEGER NOT NULL,
		rules_total INTEGER NOT NULL,
		gap_count INTEGER NOT NULL DEFAULT 0,
		bias_count INTEGER NOT NULL DEFAULT 0,
		trigger_kind TEXT NOT NULL,
		actor_role TEXT NOT NULL,
		input_hash TEXT NOT NULL,
		previous_run_id TEXT,
		payload_json TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_cases_status ON cases(status)`,
	`CREATE INDEX IF NOT EXISTS idx_cases_assigned_to ON cases(assigned_to)`,
	`CREATE INDEX IF NOT EXISTS idx_cases_created_at ON cases(created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_cases_searchable_text ON cases(searchable_text)`,
	`CREATE INDEX IF NOT EXISTS idx_case_events_case ON case_events(case_id, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_evidence_case ON evidence_items(case_id)`,
	`CREATE INDEX IF NOT EXISTS idx_history_case ON intelligence_history(case_id, computed_at DESC)`,
}

// additiveColumns are columns added after the initial release. Each is
// applied only when missing, so migration stays idempotent.
var additiveColumns = []struct {
	table, column, definition string
}{
	{"cases", "reviewer_notes", "TEXT"},
	{"cases", "admin_notes", "TEXT"},
	{"attachments", "delete_reason", "TEXT"},
	{"attachments", "redact_reason", "TEXT"},
}

// Migrate applies the schema. Safe to run on every startup.
func (s *Store) Migrate(ctx context.Context) error {
	for _, stmt := range createStatements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fault.Wrap(fault.KindInternal, "apply schema", err)
		}
	}
	for _, col := range additiveColumns {
		ok, err := s.hasColumn(ctx, col.table, col.column)
		if err != nil {
			return fault.Wrap(fault.KindInternal, "inspect schema", err)
		}
		if ok {
			continue
		}
		alter := "ALTER TABLE " + col.table + " ADD COLUMN " + col.column + " " + col.definition
		if _, err := s.db.ExecContext(ctx, alter); err != nil {
			return fault.Wrap(fault.KindInternal, "alter "+col.table, err)
		}
	}
	return nil
}

func (s *Store) hasColumn(ctx context.Context, table, column string) (bool, error) {
	if s.driver == "postgres" {
		row := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM information_schema.columns WHERE table_name = $1 AND column_name = $2`,
			table, column)
		var n int
		if err := row.Scan(&n); err != nil {
			return false, err
		}
		return n > 0, nil
	}

	rows, err := s.db.QueryContext(ctx, "PRAGMA table_info("+table+")")
	if err != nil {
		return false, err
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var (
			cid       int
			name, typ string
			notNull   int
			dflt      any
			pk        int
		)
		if err := rows.Scan(&cid, &name, &typ, &notNull, &dflt, &pk); err != nil {
			return false, err
		}
		if name == column {
			return true, nil
		}
	}
	return false, rows.Err()
}
