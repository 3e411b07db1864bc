package workflow

import (
	"context"
	"fmt"

	"github.com/Sourpat/AutoComply-AI-sub000/pkg/contracts"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/fault"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/store"
)

// AttachEvidenceInput is one evidence item to add to a case.
type AttachEvidenceInput struct {
	Title    string         `json:"title"`
	Snippet  string         `json:"snippet,omitempty"`
	Citation string         `json:"citation,omitempty"`
	SourceID string         `json:"source_id,omitempty"`
	Tags     []string       `json:"tags,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// AttachEvidence adds an evidence item to a case, emits the timeline
// event, and fires the recompute hook.
func (s *Service) AttachEvidence(ctx context.Context, caseID string, in AttachEvidenceInput, actor contracts.Actor) (*contracts.EvidenceItem, error) {
	if in.Title == "" {
		return nil, fault.New(fault.KindBadRequest, "evidence title is required")
	}
	c, _, err := s.loadWritableCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	item := &contracts.EvidenceItem{
		ID:        contracts.NewEvidenceID(),
		CaseID:    c.ID,
		Title:     in.Title,
		Snippet:   in.Snippet,
		Citation:  in.Citation,
		SourceID:  in.SourceID,
		Tags:      in.Tags,
		Metadata:  in.Metadata,
		CreatedAt: s.now().UTC(),
	}

	err = s.store.WithTx(ctx, func(tx *store.Tx) error {
		if err := tx.CreateEvidence(ctx, item); err != nil {
			return err
		}
		event := contracts.NewEvent(c.ID, contracts.EventEvidenceAttached, actor,
			fmt.Sprintf("evidence attached: %s", item.Title),
			map[string]any{"evidence_id": item.ID, "source_id": item.SourceID})
		return tx.AppendEvent(ctx, event)
	})
	if err != nil {
		return nil, err
	}

	s.hookRecompute(ctx, c.ID, "evidence_uploaded", actor)
	return item, nil
}

// ListEvidence returns a case's evidence, oldest-first.
func (s *Service) ListEvidence(ctx context.Context, caseID string) ([]*contracts.EvidenceItem, error) {
	if _, err := s.store.GetCase(ctx, caseID); err != nil {
		return nil, err
	}
	items, err := s.store.ListEvidence(ctx, caseID)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []*contracts.EvidenceItem{}
	}
	return items, nil
}

// SetPacketEvidence replaces the ordered list of evidence included in
// the export packet. Every id must belong to the case.
func (s *Service) SetPacketEvidence(ctx context.Context, caseID string, ids []string, actor contracts.Actor) (*contracts.CaseView, error) {
	c, sub, err := s.loadWritableCase(ctx, caseID)
	if err != nil {
		return nil, err
	}

	owned, err := s.store.ListEvidence(ctx, caseID)
	if err != nil {
		return nil, err
	}
	known := make(map[string]bool, len(owned))
	for _, item := range owned {
		known[item.ID] = true
	}
	for _, id := range ids {
		if !known[id] {
			return nil, fault.Newf(fault.KindBadRequest, "evidence %s does not belong to case %s", id, caseID)
		}
	}

	if ids == nil {
		ids = []string{}
	}
	c.PacketEvidenceIDs = ids
	c.SearchableText = searchableFor(c, sub)
	c.UpdatedAt = s.now().UTC()

	err = s.store.WithTx(ctx, func(tx *store.Tx) error {
		if err := tx.UpdateCase(ctx, c); err != nil {
			return err
		}
		if err := tx.SetEvidencePacketFlags(ctx, caseID, ids); err != nil {
			return err
		}
		event := contracts.NewEvent(c.ID, contracts.EventPacketUpdated, actor,
			fmt.Sprintf("export packet updated: %d evidence items", len(ids)),
			map[string]any{"packet_evidence_ids": ids})
		return tx.AppendEvent(ctx, event)
	})
	if err != nil {
		return nil, err
	}
	return c.View(s.now().UTC()), nil
}

// RemoveEvidence deletes one evidence item and drops it from the packet
// list if present.
func (s *Service) RemoveEvidence(ctx context.Context, caseID, evidenceID string, actor contracts.Actor) error {
	c, sub, err := s.loadWritableCase(ctx, caseID)
	if err != nil {
		return err
	}
	item, err := s.store.GetEvidence(ctx, evidenceID)
	if err != nil {
		return err
	}
	if item.CaseID != caseID {
		return fault.Newf(fault.KindBadRequest, "evidence %s does not belong to case %s", evidenceID, caseID)
	}

	remaining := make([]string, 0, len(c.PacketEvidenceIDs))
	for _, id := range c.PacketEvidenceIDs {
		if id != evidenceID {
			remaining = append(remaining, id)
		}
	}
	c.PacketEvidenceIDs = remaining
	c.SearchableText = searchableFor(c, sub)
	c.UpdatedAt = s.now().UTC()

	return s.store.WithTx(ctx, func(tx *store.Tx) error {
		if err := tx.DeleteEvidence(ctx, evidenceID); err != nil {
			return err
		}
		if err := tx.UpdateCase(ctx, c); err != nil {
			return err
		}
		event := contracts.NewEvent(c.ID, contracts.EventEvidenceRemoved, actor,
			fmt.Sprintf("evidence removed: %s", item.Title),
			map[string]any{"evidence_id": evidenceID})
		return tx.AppendEvent(ctx, event)
	})
}
