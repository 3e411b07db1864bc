package store

import (
	"context"
	"database/sql"

	"github.com/Sourpat/AutoComply-AI-sub000/pkg/contracts"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/fault"
)

const eventColumns = `id, case_id, created_at, event_type, actor_role, actor_id, message, payload_json`

// AppendEvent inserts a timeline entry. Callers composing an event with
// the mutation it describes must do both inside WithTx.
func (q *queries) AppendEvent(ctx context.Context, e *contracts.CaseEvent) error {
	_, err := q.exec(ctx, `INSERT INTO case_events (`+eventColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.CaseID, encodeTime(e.CreatedAt), string(e.EventType),
		string(e.ActorRole), nullable(e.ActorID), e.Message, encodeJSON(e.Payload))
	return mapWriteErr("append event", err)
}

// ListEvents returns a case's timeline, newest-first. Timestamp is the
// sole ordering key. limit <= 0 returns everything.
func (q *queries) ListEvents(ctx context.Context, caseID string, limit int) ([]*contracts.CaseEvent, error) {
	query := `SELECT ` + eventColumns + ` FROM case_events
		WHERE case_id = ? ORDER BY created_at DESC`
	args := []any{caseID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, "list events", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*contracts.CaseEvent
	for rows.Next() {
		var (
			e                 contracts.CaseEvent
			createdAt         string
			eventType, role   string
			actorID, payload  sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.CaseID, &createdAt, &eventType, &role,
			&actorID, &e.Message, &payload); err != nil {
			return nil, fault.Wrap(fault.KindInternal, "scan event", err)
		}
		e.CreatedAt = decodeTime(createdAt)
		e.EventType = contracts.EventType(eventType)
		e.ActorRole = contracts.Role(role)
		e.ActorID = actorID.String
		e.Payload = decodeJSONMap(payload)
		out = append(out, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fault.Wrap(fault.KindInternal, "list events", err)
	}
	return out, nil
}
