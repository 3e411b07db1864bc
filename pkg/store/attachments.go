package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Sourpat/AutoComply-AI-sub000/pkg/contracts"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/fault"
)

const attachmentColumns = `id, case_id, submission_id, filename, content_type, size_bytes,
	storage_path, uploaded_by, description,
	is_deleted, deleted_at, deleted_by, delete_reason,
	is_redacted, redacted_at, redacted_by, redact_reason,
	original_sha256, created_at`

// CreateAttachment inserts attachment metadata. The blob itself is
// written by the workflow layer before this row exists.
func (q *queries) CreateAttachment(ctx context.Context, a *contracts.Attachment) error {
	_, err := q.exec(ctx, `INSERT INTO attachments (`+attachmentColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.CaseID, nullable(a.SubmissionID), a.Filename, a.ContentType, a.SizeBytes,
		a.StoragePath, a.UploadedBy, a.Description,
		boolInt(a.IsDeleted), encodeTimePtr(a.DeletedAt), a.DeletedBy, a.DeleteReason,
		boolInt(a.IsRedacted), encodeTimePtr(a.RedactedAt), a.RedactedBy, a.RedactReason,
		a.OriginalSHA256, encodeTime(a.CreatedAt))
	return mapWriteErr("create attachment", err)
}

// GetAttachment loads attachment metadata by id.
func (q *queries) GetAttachment(ctx context.Context, id string) (*contracts.Attachment, error) {
	row := q.queryRow(ctx, `SELECT `+attachmentColumns+` FROM attachments WHERE id = ?`, id)
	a, err := scanAttachment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fault.NotFound("attachment")
	}
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, "get attachment", err)
	}
	return a, nil
}

// ListAttachments returns a case's attachment metadata, newest-first.
func (q *queries) ListAttachments(ctx context.Context, caseID string) ([]*contracts.Attachment, error) {
	rows, err := q.query(ctx, `SELECT `+attachmentColumns+` FROM attachments
		WHERE case_id = ? ORDER BY created_at DESC`, caseID)
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, "list attachments", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*contracts.Attachment
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, fault.Wrap(fault.KindInternal, "scan attachment", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fault.Wrap(fault.KindInternal, "list attachments", err)
	}
	return out, nil
}

// MarkAttachmentDeleted flips the soft-deletion flags. The blob stays on
// disk until the retention sweep.
func (q *queries) MarkAttachmentDeleted(ctx context.Context, id, by, reason string, at time.Time) error {
	res, err := q.exec(ctx, `UPDATE attachments SET
		is_deleted = 1, deleted_at = ?, deleted_by = ?, delete_reason = ?
		WHERE id = ?`, encodeTime(at), by, reason, id)
	if err != nil {
		return mapWriteErr("delete attachment", err)
	}
	return requireRow(res, "attachment")
}

// MarkAttachmentRedacted flips the redaction flags.
func (q *queries) MarkAttachmentRedacted(ctx context.Context, id, by, reason string, at time.Time) error {
	res, err := q.exec(ctx, `UPDATE attachments SET
		is_redacted = 1, redacted_at = ?, redacted_by = ?, redact_reason = ?
		WHERE id = ?`, encodeTime(at), by, reason, id)
	if err != nil {
		return mapWriteErr("redact attachment", err)
	}
	return requireRow(res, "attachment")
}

// ListDeletedAttachmentsBefore returns soft-deleted attachments whose
// deletion predates the cutoff. The retention sweeper purges their blobs.
func (q *queries) ListDeletedAttachmentsBefore(ctx context.Context, cutoff time.Time) ([]*contracts.Attachment, error) {
	rows, err := q.query(ctx, `SELECT `+attachmentColumns+` FROM attachments
		WHERE is_deleted = 1 AND deleted_at < ?`, encodeTime(cutoff))
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, "list deleted attachments", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*contracts.Attachment
	for rows.Next() {
		a, err := scanAttachment(rows)
		if err != nil {
			return nil, fault.Wrap(fault.KindInternal, "scan attachment", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AttachmentExists reports whether any metadata row references the
// storage path.
func (q *queries) AttachmentExists(ctx context.Context, storagePath string) (bool, error) {
	row := q.queryRow(ctx, `SELECT COUNT(*) FROM attachments WHERE storage_path = ?`, storagePath)
	var n int
	if err := row.Scan(&n); err != nil {
		return false, fault.Wrap(fault.KindInternal, "attachment exists", err)
	}
	return n > 0, nil
}

func scanAttachment(row rowScanner) (*contracts.Attachment, error) {
	var (
		a                          contracts.Attachment
		submissionID               sql.NullString
		uploadedBy, description    sql.NullString
		isDeleted, isRedacted      int
		deletedAt, redactedAt      sql.NullString
		deletedBy, deleteReason    sql.NullString
		redactedBy, redactReason   sql.NullString
		originalSHA256, createdAt  sql.NullString
	)
	err := row.Scan(&a.ID, &a.CaseID, &submissionID, &a.Filename, &a.ContentType, &a.SizeBytes,
		&a.StoragePath, &uploadedBy, &description,
		&isDeleted, &deletedAt, &deletedBy, &deleteReason,
		&isRedacted, &redactedAt, &redactedBy, &redactReason,
		&originalSHA256, &createdAt)
	if err != nil {
		return nil, err
	}
	a.SubmissionID = submissionID.String
	a.UploadedBy = uploadedBy.String
	a.Description = description.String
	a.IsDeleted = isDeleted != 0
	a.DeletedAt = decodeTimePtr(deletedAt)
	a.DeletedBy = deletedBy.String
	a.DeleteReason = deleteReason.String
	a.IsRedacted = isRedacted != 0
	a.RedactedAt = decodeTimePtr(redactedAt)
	a.RedactedBy = redactedBy.String
	a.RedactReason = redactReason.String
	a.OriginalSHA256 = originalSHA256.String
	a.CreatedAt = decodeTime(createdAt.String)
	return &a, nil
}
