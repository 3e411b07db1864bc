package contracts

import (
	"time"

	"github.com/google/uuid"
)

// EventType categorizes case timeline entries.
type EventType string

const (
	EventCaseCreated         EventType = "case_created"
	EventAssigned            EventType = "assigned"
	EventUnassigned          EventType = "unassigned"
	EventStatusChanged       EventType = "status_changed"
	EventNoteAdded           EventType = "note_added"
	EventEvidenceAttached    EventType = "evidence_attached"
	EventEvidenceRemoved     EventType = "evidence_removed"
	EventEvidenceRedacted    EventType = "evidence_redacted"
	EventAttachmentAdded     EventType = "attachment_added"
	EventAttachmentDownload  EventType = "attachment_downloaded"
	EventRequestInfo         EventType = "request_info"
	EventSubmissionUpdated   EventType = "submission_updated"
	EventSubmissionCancelled EventType = "submission_cancelled"
	EventIntelligenceUpdated EventType = "decision_intelligence_updated"
	EventExported            EventType = "exported"
	EventPacketUpdated       EventType = "packet_updated"
)

// CaseEvent is one entry in a case's timeline. Events are returned
// newest-first; created_at is the sole ordering key.
type CaseEvent struct {
	ID        string         `json:"id"`
	CaseID    string         `json:"case_id"`
	CreatedAt time.Time      `json:"created_at"`
	EventType EventType      `json:"event_type"`
	ActorRole Role           `json:"actor_role"`
	ActorID   string         `json:"actor_id,omitempty"`
	Message   string         `json:"message"`
	Payload   map[string]any `json:"payload_json,omitempty"`
}

// NewEvent builds a timeline entry for a case. Message must be a short
// human-readable sentence; Payload is typed per event type.
func NewEvent(caseID string, typ EventType, actor Actor, message string, payload map[string]any) *CaseEvent {
	return &CaseEvent{
		ID:        "evt-" + uuid.New().String(),
		CaseID:    caseID,
		CreatedAt: time.Now().UTC(),
		EventType: typ,
		ActorRole: actor.Role,
		ActorID:   actor.ID,
		Message:   message,
		Payload:   payload,
	}
}
