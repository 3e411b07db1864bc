package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/Sourpat/AutoComply-AI-sub000/pkg/contracts"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/fault"
)

const submissionColumns = `id, decision_type, submitted_by, account_id, location_id,
	form_data, raw_payload, evaluator_output, status, created_at`

// CreateSubmission inserts a new submission.
func (q *queries) CreateSubmission(ctx context.Context, sub *contracts.Submission) error {
	_, err := q.exec(ctx, `INSERT INTO submissions (`+submissionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.DecisionType, sub.SubmittedBy, sub.AccountID, sub.LocationID,
		encodeJSON(sub.FormData), encodeJSON(sub.RawPayload), encodeJSON(sub.EvaluatorOutput),
		string(sub.Status), encodeTime(sub.CreatedAt))
	return mapWriteErr("create submission", err)
}

// GetSubmission loads a submission by id.
func (q *queries) GetSubmission(ctx context.Context, id string) (*contracts.Submission, error) {
	row := q.queryRow(ctx, `SELECT `+submissionColumns+` FROM submissions WHERE id = ?`, id)
	sub, err := scanSubmission(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fault.NotFound("submission")
	}
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, "get submission", err)
	}
	return sub, nil
}

// UpdateSubmission persists patched form data and status. Cancelled
// submissions are immutable; callers must check before writing.
func (q *queries) UpdateSubmission(ctx context.Context, sub *contracts.Submission) error {
	res, err := q.exec(ctx, `UPDATE submissions SET
		form_data = ?, raw_payload = ?, evaluator_output = ?, status = ?
		WHERE id = ?`,
		encodeJSON(sub.FormData), encodeJSON(sub.RawPayload), encodeJSON(sub.EvaluatorOutput),
		string(sub.Status), sub.ID)
	if err != nil {
		return mapWriteErr("update submission", err)
	}
	return requireRow(res, "submission")
}

func requireRow(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fault.Wrap(fault.KindInternal, "rows affected", err)
	}
	if n == 0 {
		return fault.NotFound(what)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSubmission(row rowScanner) (*contracts.Submission, error) {
	var (
		sub                                  contracts.Submission
		submittedBy, accountID, locationID   sql.NullString
		formData, rawPayload, evalOut, cAt   sql.NullString
		status                               string
	)
	err := row.Scan(&sub.ID, &sub.DecisionType, &submittedBy, &accountID, &locationID,
		&formData, &rawPayload, &evalOut, &status, &cAt)
	if err != nil {
		return nil, err
	}
	sub.SubmittedBy = submittedBy.String
	sub.AccountID = accountID.String
	sub.LocationID = locationID.String
	sub.FormData = decodeJSONMap(formData)
	sub.RawPayload = decodeJSONMap(rawPayload)
	sub.EvaluatorOutput = decodeJSONMap(evalOut)
	sub.Status = contracts.SubmissionStatus(status)
	sub.CreatedAt = decodeTime(cAt.String)
	return &sub, nil
}
