package contracts

import (
	"time"

	"github.com/google/uuid"
)

// SubmissionStatus tracks the submitter-side lifecycle. Cancelled
// submissions are immutable and put the linked case into read-only mode.
type SubmissionStatus string

const (
	SubmissionSubmitted SubmissionStatus = "submitted"
	SubmissionUpdated   SubmissionStatus = "updated"
	SubmissionCancelled SubmissionStatus = "cancelled"
)

// Submission is the inbound regulatory payload that opens a case.
// FormData holds the submitted form fields the rule engine navigates;
// RawPayload preserves the original request for audit.
type Submission struct {
	ID              string           `json:"id"`
	DecisionType    string           `json:"decision_type"`
	SubmittedBy     string           `json:"submitted_by,omitempty"`
	AccountID       string           `json:"account_id,omitempty"`
	LocationID      string           `json:"location_id,omitempty"`
	FormData        map[string]any   `json:"form_data"`
	RawPayload      map[string]any   `json:"raw_payload,omitempty"`
	EvaluatorOutput map[string]any   `json:"evaluator_output,omitempty"`
	Status          SubmissionStatus `json:"status"`
	CreatedAt       time.Time        `json:"created_at"`
}

// Cancelled reports whether the submission has been soft-cancelled.
func (s *Submission) Cancelled() bool { return s.Status == SubmissionCancelled }

// NewSubmissionID mints a submission identifier.
func NewSubmissionID() string { return "sub-" + uuid.New().String() }
