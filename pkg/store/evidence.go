package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Sourpat/AutoComply-AI-sub000/pkg/contracts"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/fault"
)

const evidenceColumns = `id, case_id, title, snippet, citation, source_id,
	tags, metadata, included_in_packet, created_at`

// CreateEvidence inserts an evidence item owned by a case.
func (q *queries) CreateEvidence(ctx context.Context, e *contracts.EvidenceItem) error {
	_, err := q.exec(ctx, `INSERT INTO evidence_items (`+evidenceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.CaseID, e.Title, e.Snippet, e.Citation, e.SourceID,
		encodeJSON(e.Tags), encodeJSON(e.Metadata), boolInt(e.IncludedInPacket),
		encodeTime(e.CreatedAt))
	return mapWriteErr("create evidence", err)
}

// GetEvidence loads one evidence item.
func (q *queries) GetEvidence(ctx context.Context, id string) (*contracts.EvidenceItem, error) {
	row := q.queryRow(ctx, `SELECT `+evidenceColumns+` FROM evidence_items WHERE id = ?`, id)
	e, err := scanEvidence(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fault.NotFound("evidence item")
	}
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, "get evidence", err)
	}
	return e, nil
}

// ListEvidence returns a case's evidence, oldest-first.
func (q *queries) ListEvidence(ctx context.Context, caseID string) ([]*contracts.EvidenceItem, error) {
	rows, err := q.query(ctx, `SELECT `+evidenceColumns+` FROM evidence_items
		WHERE case_id = ? ORDER BY created_at ASC`, caseID)
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, "list evidence", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*contracts.EvidenceItem
	for rows.Next() {
		e, err := scanEvidence(rows)
		if err != nil {
			return nil, fault.Wrap(fault.KindInternal, "scan evidence", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fault.Wrap(fault.KindInternal, "list evidence", err)
	}
	return out, nil
}

// SetEvidencePacketFlags marks the given ids as included in the export
// packet and clears the flag everywhere else on the case.
func (q *queries) SetEvidencePacketFlags(ctx context.Context, caseID string, ids []string) error {
	if _, err := q.exec(ctx, `UPDATE evidence_items SET included_in_packet = 0 WHERE case_id = ?`, caseID); err != nil {
		return mapWriteErr("clear packet flags", err)
	}
	for _, id := range ids {
		if _, err := q.exec(ctx, `UPDATE evidence_items SET included_in_packet = 1
			WHERE case_id = ? AND id = ?`, caseID, id); err != nil {
			return mapWriteErr("set packet flag", err)
		}
	}
	return nil
}

// DeleteEvidence removes one evidence item.
func (q *queries) DeleteEvidence(ctx context.Context, id string) error {
	res, err := q.exec(ctx, `DELETE FROM evidence_items WHERE id = ?`, id)
	if err != nil {
		return mapWriteErr("delete evidence", err)
	}
	return requireRow(res, "evidence item")
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func scanEvidence(row rowScanner) (*contracts.EvidenceItem, error) {
	var (
		e                           contracts.EvidenceItem
		snippet, citation, sourceID sql.NullString
		tags, metadata              sql.NullString
		included                    int
		createdAt                   string
	)
	err := row.Scan(&e.ID, &e.CaseID, &e.Title, &snippet, &citation, &sourceID,
		&tags, &metadata, &included, &createdAt)
	if err != nil {
		return nil, err
	}
	e.Snippet = snippet.String
	e.Citation = citation.String
	e.SourceID = sourceID.String
	e.Tags = decodeJSONStrings(tags)
	e.Metadata = decodeJSONMap(metadata)
	e.IncludedInPacket = included != 0
	e.CreatedAt = decodeTime(createdAt)
	return &e, nil
}
