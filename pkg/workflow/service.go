// Package workflow owns the case lifecycle: submission ingest, the status
// machine, assignment, evidence packet curation, attachments, and the
// read-only guard for cancelled submissions. Every mutation commits
// atomically with the timeline event describing it, then fires the
// recompute hook outside the transaction.
package workflow

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/Sourpat/AutoComply-AI-sub000/pkg/contracts"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/fault"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/recompute"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/store"
)

// Service coordinates case and submission mutations.
type Service struct {
	store       *store.Store
	recomputer  *recompute.Recomputer
	uploadsRoot string
	logger      *slog.Logger
	now         func() time.Time
}

// NewService builds the workflow service. uploadsRoot is the directory
// attachment blobs are written under.
func NewService(st *store.Store, rc *recompute.Recomputer, uploadsRoot string) *Service {
	return &Service{
		store:       st,
		recomputer:  rc,
		uploadsRoot: uploadsRoot,
		logger:      slog.Default().With("component", "workflow"),
		now:         time.Now,
	}
}

// WithClock overrides the clock for tests.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// loadWritableCase loads a case and its linked submission, enforcing the
// cancelled-submission guard. Synthetic cases return a nil submission.
func (s *Service) loadWritableCase(ctx context.Context, caseID string) (*contracts.Case, *contracts.Submission, error) {
	c, err := s.store.GetCase(ctx, caseID)
	if err != nil {
		return nil, nil, err
	}
	var sub *contracts.Submission
	if c.SubmissionID != "" {
		sub, err = s.store.GetSubmission(ctx, c.SubmissionID)
		if err != nil {
			return nil, nil, err
		}
		if sub.Cancelled() {
			return nil, nil, fault.New(fault.KindConflict, "case is read-only")
		}
	}
	return c, sub, nil
}

// hookRecompute fires the auto-recompute hook. The context is detached
// so a client disconnect mid-request cannot abort the recompute.
func (s *Service) hookRecompute(ctx context.Context, caseID, reason string, actor contracts.Actor) {
	if s.recomputer == nil {
		return
	}
	s.recomputer.MaybeRecompute(context.WithoutCancel(ctx), caseID, reason,
		recompute.Options{Actor: actor})
}

// searchableFor rebuilds the denormalized search column from every
// contributing field. Form values are included sorted by key so the
// result is stable.
func searchableFor(c *contracts.Case, sub *contracts.Submission) string {
	parts := []string{c.Title, c.Summary, c.DecisionType, c.AssignedTo}
	if sub != nil {
		parts = append(parts, sub.SubmittedBy, sub.AccountID, sub.LocationID)
		keys := make([]string, 0, len(sub.FormData))
		for k := range sub.FormData {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if v, ok := sub.FormData[k].(string); ok {
				parts = append(parts, v)
			}
		}
	}
	return contracts.BuildSearchableText(parts...)
}

// applyTransition validates and applies a status change, returning the
// status_changed event to append alongside the case update.
func (s *Service) applyTransition(c *contracts.Case, to contracts.CaseStatus, reason string, actor contracts.Actor) (*contracts.CaseEvent, error) {
	from := c.Status
	if !TransitionAllowed(actor.Role, from, to) {
		return nil, fault.Newf(fault.KindConflict, "illegal status transition %s -> %s for role %s", from, to, actor.Role)
	}
	c.Status = to

	payload := map[string]any{"from": string(from), "to": string(to)}
	if reason != "" {
		payload["reason"] = reason
	}
	return contracts.NewEvent(c.ID, contracts.EventStatusChanged, actor,
		fmt.Sprintf("status changed from %s to %s", from, to), payload), nil
}
