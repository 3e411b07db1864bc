package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/Sourpat/AutoComply-AI-sub000/pkg/contracts"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/fault"
)

const caseColumns = `id, submission_id, decision_type, title, summary, status,
	assigned_to, assigned_at, due_at, packet_evidence_ids, searchable_text,
	reviewer_notes, admin_notes, created_at, updated_at`

// CreateCase inserts a new case.
func (q *queries) CreateCase(ctx context.Context, c *contracts.Case) error {
	_, err := q.exec(ctx, `INSERT INTO cases (`+caseColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, nullable(c.SubmissionID), c.DecisionType, c.Title, c.Summary, string(c.Status),
		nullable(c.AssignedTo), encodeTimePtr(c.AssignedAt), encodeTime(c.DueAt),
		encodeJSON(c.PacketEvidenceIDs), c.SearchableText,
		c.ReviewerNotes, c.AdminNotes, encodeTime(c.CreatedAt), encodeTime(c.UpdatedAt))
	return mapWriteErr("create case", err)
}

// GetCase loads a case by id.
func (q *queries) GetCase(ctx context.Context, id string) (*contracts.Case, error) {
	row := q.queryRow(ctx, `SELECT `+caseColumns+` FROM cases WHERE id = ?`, id)
	c, err := scanCase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fault.NotFound("case")
	}
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, "get case", err)
	}
	return c, nil
}

// GetCaseBySubmission loads the case linked to a submission.
func (q *queries) GetCaseBySubmission(ctx context.Context, submissionID string) (*contracts.Case, error) {
	row := q.queryRow(ctx, `SELECT `+caseColumns+` FROM cases WHERE submission_id = ?`, submissionID)
	c, err := scanCase(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fault.NotFound("case")
	}
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, "get case by submission", err)
	}
	return c, nil
}

// UpdateCase persists every mutable case field. due_at is immutable after
// creation and deliberately absent from the statement.
func (q *queries) UpdateCase(ctx context.Context, c *contracts.Case) error {
	res, err := q.exec(ctx, `UPDATE cases SET
		title = ?, summary = ?, status = ?, assigned_to = ?, assigned_at = ?,
		packet_evidence_ids = ?, searchable_text = ?, reviewer_notes = ?,
		admin_notes = ?, updated_at = ?
		WHERE id = ?`,
		c.Title, c.Summary, string(c.Status), nullable(c.AssignedTo), encodeTimePtr(c.AssignedAt),
		encodeJSON(c.PacketEvidenceIDs), c.SearchableText, c.ReviewerNotes,
		c.AdminNotes, encodeTime(c.UpdatedAt), c.ID)
	if err != nil {
		return mapWriteErr("update case", err)
	}
	return requireRow(res, "case")
}

// DeleteCase removes a case and cascades to its evidence, events, history
// entries, and attachment metadata. Blob files are left to the retention
// sweep.
func (q *queries) DeleteCase(ctx context.Context, id string) error {
	res, err := q.exec(ctx, `DELETE FROM cases WHERE id = ?`, id)
	if err != nil {
		return mapWriteErr("delete case", err)
	}
	if err := requireRow(res, "case"); err != nil {
		return err
	}
	for _, table := range []string{"evidence_items", "case_events", "intelligence_history", "attachments"} {
		if _, err := q.exec(ctx, `DELETE FROM `+table+` WHERE case_id = ?`, id); err != nil {
			return mapWriteErr("cascade delete "+table, err)
		}
	}
	return nil
}

// CaseFilter narrows ListCases. Zero values mean "no constraint".
type CaseFilter struct {
	Status       contracts.CaseStatus
	AssignedTo   string
	DecisionType string
	Query        string // substring match against searchable_text
	Overdue      bool
	Unassigned   bool
	Limit        int
	Offset       int
	Now          time.Time // overdue reference point; defaults to wall clock
}

// ListCases returns cases matching the filter, newest-first by created_at.
func (q *queries) ListCases(ctx context.Context, f CaseFilter) ([]*contracts.Case, error) {
	var (
		where []string
		args  []any
	)
	if f.Status != "" {
		where = append(where, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.AssignedTo != "" {
		where = append(where, "assigned_to = ?")
		args = append(args, f.AssignedTo)
	}
	if f.DecisionType != "" {
		where = append(where, "decision_type = ?")
		args = append(args, f.DecisionType)
	}
	if f.Query != "" {
		where = append(where, "searchable_text LIKE ?")
		args = append(args, "%"+contracts.BuildSearchableText(f.Query)+"%")
	}
	if f.Unassigned {
		where = append(where, "(assigned_to IS NULL OR assigned_to = '')")
	}
	if f.Overdue {
		now := f.Now
		if now.IsZero() {
			now = time.Now()
		}
		where = append(where, "due_at < ?")
		args = append(args, encodeTime(now))
		where = append(where, "status NOT IN ('approved', 'rejected', 'blocked', 'closed')")
	}

	query := `SELECT ` + caseColumns + ` FROM cases`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
		if f.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, f.Offset)
		}
	}

	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, "list cases", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*contracts.Case
	for rows.Next() {
		c, err := scanCase(rows)
		if err != nil {
			return nil, fault.Wrap(fault.KindInternal, "scan case", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fault.Wrap(fault.KindInternal, "list cases", err)
	}
	return out, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func scanCase(row rowScanner) (*contracts.Case, error) {
	var (
		c                                 contracts.Case
		submissionID, summary, assignedTo sql.NullString
		assignedAt, packetIDs, searchable sql.NullString
		reviewerNotes, adminNotes         sql.NullString
		status, dueAt, createdAt, updated string
	)
	err := row.Scan(&c.ID, &submissionID, &c.DecisionType, &c.Title, &summary, &status,
		&assignedTo, &assignedAt, &dueAt, &packetIDs, &searchable,
		&reviewerNotes, &adminNotes, &createdAt, &updated)
	if err != nil {
		return nil, err
	}
	c.SubmissionID = submissionID.String
	c.Summary = summary.String
	c.Status = contracts.CaseStatus(status)
	c.AssignedTo = assignedTo.String
	c.AssignedAt = decodeTimePtr(assignedAt)
	c.DueAt = decodeTime(dueAt)
	c.PacketEvidenceIDs = decodeJSONStrings(packetIDs)
	if c.PacketEvidenceIDs == nil {
		c.PacketEvidenceIDs = []string{}
	}
	c.SearchableText = searchable.String
	c.ReviewerNotes = reviewerNotes.String
	c.AdminNotes = adminNotes.String
	c.CreatedAt = decodeTime(createdAt)
	c.UpdatedAt = decodeTime(updated)
	return &c, nil
}
