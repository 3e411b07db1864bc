package workflow

import (
	"context"
	"fmt"

	"github.com/Sourpat/AutoComply-AI-sub000/pkg/contracts"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/fault"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/store"
)

// GetCase returns the read-model for one case.
func (s *Service) GetCase(ctx context.Context, id string) (*contracts.CaseView, error) {
	c, err := s.store.GetCase(ctx, id)
	if err != nil {
		return nil, err
	}
	return c.View(s.now().UTC()), nil
}

// ListCases returns filtered case views, newest-first.
func (s *Service) ListCases(ctx context.Context, f store.CaseFilter) ([]*contracts.CaseView, error) {
	now := s.now().UTC()
	if f.Now.IsZero() {
		f.Now = now
	}
	cases, err := s.store.ListCases(ctx, f)
	if err != nil {
		return nil, err
	}
	views := make([]*contracts.CaseView, 0, len(cases))
	for _, c := range cases {
		views = append(views, c.View(now))
	}
	return views, nil
}

// ListEvents returns a case's timeline, newest-first.
func (s *Service) ListEvents(ctx context.Context, caseID string, limit int) ([]*contracts.CaseEvent, error) {
	if _, err := s.store.GetCase(ctx, caseID); err != nil {
		return nil, err
	}
	events, err := s.store.ListEvents(ctx, caseID, limit)
	if err != nil {
		return nil, err
	}
	if events == nil {
		events = []*contracts.CaseEvent{}
	}
	return events, nil
}

// CasePatch carries a partial case update. Nil pointers leave the field
// untouched; an empty AssignedTo unassigns.
type CasePatch struct {
	Title         *string               `json:"title,omitempty"`
	Summary       *string               `json:"summary,omitempty"`
	ReviewerNotes *string               `json:"reviewer_notes,omitempty"`
	AdminNotes    *string               `json:"admin_notes,omitempty"`
	AssignedTo    *string               `json:"assigned_to,omitempty"`
	Status        *contracts.CaseStatus `json:"status,omitempty"`
	Reason        string                `json:"reason,omitempty"`
}

// PatchCase applies a partial update, emitting status_changed, assigned,
// or unassigned events as appropriate.
func (s *Service) PatchCase(ctx context.Context, id string, patch CasePatch, actor contracts.Actor) (*contracts.CaseView, error) {
	c, sub, err := s.loadWritableCase(ctx, id)
	if err != nil {
		return nil, err
	}

	var events []*contracts.CaseEvent

	if patch.Title != nil {
		c.Title = *patch.Title
	}
	if patch.Summary != nil {
		c.Summary = *patch.Summary
	}
	if patch.ReviewerNotes != nil {
		c.ReviewerNotes = *patch.ReviewerNotes
	}
	if patch.AdminNotes != nil {
		c.AdminNotes = *patch.AdminNotes
	}
	if patch.AssignedTo != nil {
		events = append(events, s.applyAssignment(c, *patch.AssignedTo, actor))
	}
	if patch.Status != nil {
		event, terr := s.applyTransition(c, *patch.Status, patch.Reason, actor)
		if terr != nil {
			return nil, terr
		}
		events = append(events, event)
	}

	c.SearchableText = searchableFor(c, sub)
	c.UpdatedAt = s.now().UTC()

	err = s.store.WithTx(ctx, func(tx *store.Tx) error {
		if err := tx.UpdateCase(ctx, c); err != nil {
			return err
		}
		for _, event := range events {
			if err := tx.AppendEvent(ctx, event); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if patch.Status != nil && patch.Status.Terminal() && *patch.Status != contracts.CaseClosed {
		s.hookRecompute(ctx, c.ID, "decision_saved", actor)
	}
	return c.View(s.now().UTC()), nil
}

// Assign sets the case assignee and emits an assigned event.
func (s *Service) Assign(ctx context.Context, id, assignee string, actor contracts.Actor) (*contracts.CaseView, error) {
	if assignee == "" {
		return nil, fault.New(fault.KindBadRequest, "assignee is required")
	}
	return s.setAssignee(ctx, id, assignee, actor)
}

// Unassign clears the case assignee and emits an unassigned event.
func (s *Service) Unassign(ctx context.Context, id string, actor contracts.Actor) (*contracts.CaseView, error) {
	return s.setAssignee(ctx, id, "", actor)
}

func (s *Service) setAssignee(ctx context.Context, id, assignee string, actor contracts.Actor) (*contracts.CaseView, error) {
	c, sub, err := s.loadWritableCase(ctx, id)
	if err != nil {
		return nil, err
	}

	event := s.applyAssignment(c, assignee, actor)
	c.SearchableText = searchableFor(c, sub)
	c.UpdatedAt = s.now().UTC()

	err = s.store.WithTx(ctx, func(tx *store.Tx) error {
		if err := tx.UpdateCase(ctx, c); err != nil {
			return err
		}
		return tx.AppendEvent(ctx, event)
	})
	if err != nil {
		return nil, err
	}
	return c.View(s.now().UTC()), nil
}

func (s *Service) applyAssignment(c *contracts.Case, assignee string, actor contracts.Actor) *contracts.CaseEvent {
	previous := c.AssignedTo
	c.AssignedTo = assignee
	if assignee == "" {
		c.AssignedAt = nil
		return contracts.NewEvent(c.ID, contracts.EventUnassigned, actor,
			"case unassigned",
			map[string]any{"previous_assignee": previous})
	}
	at := s.now().UTC()
	c.AssignedAt = &at
	return contracts.NewEvent(c.ID, contracts.EventAssigned, actor,
		fmt.Sprintf("case assigned to %s", assignee),
		map[string]any{"assignee": assignee, "previous_assignee": previous})
}

// SetStatus transitions the case, enforcing the role table.
func (s *Service) SetStatus(ctx context.Context, id string, to contracts.CaseStatus, reason string, actor contracts.Actor) (*contracts.CaseView, error) {
	status := to
	return s.PatchCase(ctx, id, CasePatch{Status: &status, Reason: reason}, actor)
}

// AddNote appends a manual note_added event to the timeline. Notes do
// not mutate the case record, so the cancelled guard does not apply.
func (s *Service) AddNote(ctx context.Context, caseID, note string, actor contracts.Actor) (*contracts.CaseEvent, error) {
	if note == "" {
		return nil, fault.New(fault.KindBadRequest, "note is required")
	}
	if _, err := s.store.GetCase(ctx, caseID); err != nil {
		return nil, err
	}
	event := contracts.NewEvent(caseID, contracts.EventNoteAdded, actor, note, nil)
	if err := s.store.AppendEvent(ctx, event); err != nil {
		return nil, err
	}
	return event, nil
}

// RequestInfo moves a case to needs_info and records what was asked of
// the submitter. Fires the recompute hook on success.
func (s *Service) RequestInfo(ctx context.Context, caseID, message string, actor contracts.Actor) (*contracts.CaseView, error) {
	c, sub, err := s.loadWritableCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	transition, err := s.applyTransition(c, contracts.CaseNeedsInfo, "info requested", actor)
	if err != nil {
		return nil, err
	}
	request := contracts.NewEvent(c.ID, contracts.EventRequestInfo, actor,
		"additional information requested from submitter",
		map[string]any{"message": message})

	c.SearchableText = searchableFor(c, sub)
	c.UpdatedAt = s.now().UTC()

	err = s.store.WithTx(ctx, func(tx *store.Tx) error {
		if err := tx.UpdateCase(ctx, c); err != nil {
			return err
		}
		if err := tx.AppendEvent(ctx, transition); err != nil {
			return err
		}
		return tx.AppendEvent(ctx, request)
	})
	if err != nil {
		return nil, err
	}

	s.hookRecompute(ctx, c.ID, "request_info_created", actor)
	return c.View(s.now().UTC()), nil
}

// DeleteCase removes a case and everything it owns.
func (s *Service) DeleteCase(ctx context.Context, id string) error {
	return s.store.DeleteCase(ctx, id)
}
