package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Sourpat/AutoComply-AI-sub000/pkg/contracts"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/fault"
)

const historyColumns = `id, case_id, computed_at, confidence_score, confidence_band,
	rules_passed, rules_total, gap_count, bias_count,
	trigger_kind, actor_role, input_hash, previous_run_id, payload_json`

// AppendHistory inserts an intelligence history entry. The table is
// append-only: no update statement exists for it, and rows are removed
// only by full case deletion.
func (q *queries) AppendHistory(ctx context.Context, e *contracts.IntelligenceEntry) error {
	_, err := q.exec(ctx, `INSERT INTO intelligence_history (`+historyColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.CaseID, encodeTime(e.ComputedAt), e.ConfidenceScore, string(e.ConfidenceBand),
		e.RulesPassed, e.RulesTotal, e.GapCount, e.BiasCount,
		string(e.Trigger), string(e.ActorRole), e.InputHash,
		nullable(e.PreviousRunID), encodeJSON(e.Payload))
	return mapWriteErr("append history", err)
}

// LatestHistory returns the most recent entry for a case (max
// computed_at), or NotFound when the case has no history yet.
func (q *queries) LatestHistory(ctx context.Context, caseID string) (*contracts.IntelligenceEntry, error) {
	row := q.queryRow(ctx, `SELECT `+historyColumns+` FROM intelligence_history
		WHERE case_id = ? ORDER BY computed_at DESC LIMIT 1`, caseID)
	e, err := scanHistory(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fault.NotFound("history entry")
	}
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, "latest history", err)
	}
	return e, nil
}

// ListHistory returns a case's history. newestFirst selects the reviewer
// view ordering; the export bundle wants oldest-first. limit <= 0 returns
// everything.
func (q *queries) ListHistory(ctx context.Context, caseID string, newestFirst bool, limit int) ([]*contracts.IntelligenceEntry, error) {
	order := "ASC"
	if newestFirst {
		order = "DESC"
	}
	query := `SELECT ` + historyColumns + ` FROM intelligence_history
		WHERE case_id = ? ORDER BY computed_at ` + order
	args := []any{caseID}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := q.query(ctx, query, args...)
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, "list history", err)
	}
	defer func() { _ = rows.Close() }()

	var out []*contracts.IntelligenceEntry
	for rows.Next() {
		e, err := scanHistory(rows)
		if err != nil {
			return nil, fault.Wrap(fault.KindInternal, "scan history", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fault.Wrap(fault.KindInternal, "list history", err)
	}
	return out, nil
}

func scanHistory(row rowScanner) (*contracts.IntelligenceEntry, error) {
	var (
		e                       contracts.IntelligenceEntry
		computedAt, band        string
		trigger, role           string
		previousRunID, payload  sql.NullString
	)
	err := row.Scan(&e.ID, &e.CaseID, &computedAt, &e.ConfidenceScore, &band,
		&e.RulesPassed, &e.RulesTotal, &e.GapCount, &e.BiasCount,
		&trigger, &role, &e.InputHash, &previousRunID, &payload)
	if err != nil {
		return nil, err
	}
	e.ComputedAt = decodeTime(computedAt)
	e.ConfidenceBand = contracts.ConfidenceBand(band)
	e.Trigger = contracts.Trigger(trigger)
	e.ActorRole = contracts.Role(role)
	e.PreviousRunID = previousRunID.String
	e.Payload = decodeJSONMap(payload)
	return &e, nil
}
