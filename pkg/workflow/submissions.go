package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/Sourpat/AutoComply-AI-sub000/pkg/contracts"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/fault"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/store"
)

// CreateSubmissionInput is the ingest payload.
type CreateSubmissionInput struct {
	DecisionType    string         `json:"decision_type"`
	SubmittedBy     string         `json:"submitted_by,omitempty"`
	AccountID       string         `json:"account_id,omitempty"`
	LocationID      string         `json:"location_id,omitempty"`
	FormData        map[string]any `json:"form_data"`
	RawPayload      map[string]any `json:"raw_payload,omitempty"`
	EvaluatorOutput map[string]any `json:"evaluator_output,omitempty"`
}

// CreateSubmission ingests a submission and opens its linked case in one
// transaction, then fires the recompute hook for the initial
// intelligence entry.
func (s *Service) CreateSubmission(ctx context.Context, in CreateSubmissionInput, actor contracts.Actor) (*contracts.Submission, *contracts.Case, error) {
	if in.DecisionType == "" {
		return nil, nil, fault.New(fault.KindBadRequest, "decision_type is required")
	}
	if in.FormData == nil {
		in.FormData = map[string]any{}
	}

	now := s.now().UTC()
	sub := &contracts.Submission{
		ID:              contracts.NewSubmissionID(),
		DecisionType:    in.DecisionType,
		SubmittedBy:     in.SubmittedBy,
		AccountID:       in.AccountID,
		LocationID:      in.LocationID,
		FormData:        in.FormData,
		RawPayload:      in.RawPayload,
		EvaluatorOutput: in.EvaluatorOutput,
		Status:          contracts.SubmissionSubmitted,
		CreatedAt:       now,
	}

	c := &contracts.Case{
		ID:                contracts.NewCaseID(),
		SubmissionID:      sub.ID,
		DecisionType:      in.DecisionType,
		Title:             caseTitle(in),
		Summary:           fmt.Sprintf("Case opened from submission %s", sub.ID),
		Status:            contracts.CaseNew,
		DueAt:             now.Add(time.Duration(contracts.SLAHours(in.DecisionType)) * time.Hour),
		PacketEvidenceIDs: []string{},
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	c.SearchableText = searchableFor(c, sub)

	err := s.store.WithTx(ctx, func(tx *store.Tx) error {
		if err := tx.CreateSubmission(ctx, sub); err != nil {
			return err
		}
		if err := tx.CreateCase(ctx, c); err != nil {
			return err
		}
		event := contracts.NewEvent(c.ID, contracts.EventCaseCreated, actor,
			fmt.Sprintf("case opened for %s submission", c.DecisionType),
			map[string]any{
				"submission_id": sub.ID,
				"decision_type": c.DecisionType,
				"due_at":        c.DueAt.Format(time.RFC3339),
			})
		return tx.AppendEvent(ctx, event)
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("submission ingested",
		"submission_id", sub.ID, "case_id", c.ID, "decision_type", c.DecisionType)
	s.hookRecompute(ctx, c.ID, "submission_created", actor)
	return sub, c, nil
}

func caseTitle(in CreateSubmissionInput) string {
	title := in.DecisionType + " review"
	if name, ok := in.FormData["name"].(string); ok && name != "" {
		title += ": " + name
	}
	return title
}

// GetSubmission loads one submission.
func (s *Service) GetSubmission(ctx context.Context, id string) (*contracts.Submission, error) {
	return s.store.GetSubmission(ctx, id)
}

// SubmissionPatch carries submitter-side updates. FormData keys are
// merged over the existing form; other fields replace wholesale.
type SubmissionPatch struct {
	FormData   map[string]any `json:"form_data,omitempty"`
	RawPayload map[string]any `json:"raw_payload,omitempty"`
}

// PatchSubmission updates a submission's form data. If the linked case
// is waiting on info, the patch counts as a resubmission and moves it
// back to in_review.
func (s *Service) PatchSubmission(ctx context.Context, id string, patch SubmissionPatch, actor contracts.Actor) (*contracts.Submission, error) {
	sub, err := s.store.GetSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.Cancelled() {
		return nil, fault.New(fault.KindConflict, "submission is cancelled")
	}

	if sub.FormData == nil {
		sub.FormData = map[string]any{}
	}
	for k, v := range patch.FormData {
		sub.FormData[k] = v
	}
	if patch.RawPayload != nil {
		sub.RawPayload = patch.RawPayload
	}
	sub.Status = contracts.SubmissionUpdated

	c, err := s.store.GetCaseBySubmission(ctx, id)
	if err != nil && !fault.IsKind(err, fault.KindNotFound) {
		return nil, err
	}

	resubmitted := false
	var events []*contracts.CaseEvent
	if c != nil {
		events = append(events, contracts.NewEvent(c.ID, contracts.EventSubmissionUpdated, actor,
			"submission form data updated",
			map[string]any{"submission_id": sub.ID}))

		if c.Status == contracts.CaseNeedsInfo {
			// Implicit resubmit; the table permits it for every role
			// that can patch a submission.
			event, terr := s.applyTransition(c, contracts.CaseInReview, "resubmitted", actor)
			if terr == nil {
				events = append(events, event)
				resubmitted = true
			}
		}
		c.SearchableText = searchableFor(c, sub)
		c.UpdatedAt = s.now().UTC()
	}

	err = s.store.WithTx(ctx, func(tx *store.Tx) error {
		if err := tx.UpdateSubmission(ctx, sub); err != nil {
			return err
		}
		if c != nil {
			if err := tx.UpdateCase(ctx, c); err != nil {
				return err
			}
			for _, event := range events {
				if err := tx.AppendEvent(ctx, event); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if c != nil {
		reason := "submission_updated"
		if resubmitted {
			reason = "request_info_resubmitted"
		}
		s.hookRecompute(ctx, c.ID, reason, actor)
	}
	return sub, nil
}

// CancelSubmission soft-cancels a submission, freezing its linked case.
// Cancelling twice is a no-op.
func (s *Service) CancelSubmission(ctx context.Context, id string, actor contracts.Actor) (*contracts.Submission, error) {
	sub, err := s.store.GetSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.Cancelled() {
		return sub, nil
	}
	sub.Status = contracts.SubmissionCancelled

	c, err := s.store.GetCaseBySubmission(ctx, id)
	if err != nil && !fault.IsKind(err, fault.KindNotFound) {
		return nil, err
	}

	err = s.store.WithTx(ctx, func(tx *store.Tx) error {
		if err := tx.UpdateSubmission(ctx, sub); err != nil {
			return err
		}
		if c != nil {
			event := contracts.NewEvent(c.ID, contracts.EventSubmissionCancelled, actor,
				"submission cancelled; case is now read-only",
				map[string]any{"submission_id": sub.ID})
			return tx.AppendEvent(ctx, event)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if c != nil {
		s.logger.Info("submission cancelled", "submission_id", sub.ID, "case_id", c.ID)
	}
	return sub, nil
}
