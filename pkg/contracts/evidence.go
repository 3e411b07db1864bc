package contracts

import (
	"time"

	"github.com/google/uuid"
)

// EvidenceItem is a citation or snippet owned by exactly one case.
// Deleting the case deletes its evidence.
type EvidenceItem struct {
	ID               string         `json:"id"`
	CaseID           string         `json:"case_id"`
	Title            string         `json:"title"`
	Snippet          string         `json:"snippet,omitempty"`
	Citation         string         `json:"citation,omitempty"`
	SourceID         string         `json:"source_id,omitempty"`
	Tags             []string       `json:"tags,omitempty"`
	Metadata         map[string]any `json:"metadata,omitempty"`
	IncludedInPacket bool           `json:"included_in_packet"`
	CreatedAt        time.Time      `json:"created_at"`
}

// Summary returns the fields of the item that feed the intelligence
// input hash. Generated identifiers and volatile fields (timestamps,
// packet flags) are excluded so that hash equality tracks rule-engine
// input equality.
func (e *EvidenceItem) Summary() map[string]any {
	return map[string]any{
		"title":     e.Title,
		"snippet":   e.Snippet,
		"citation":  e.Citation,
		"source_id": e.SourceID,
	}
}

// NewEvidenceID mints an evidence identifier.
func NewEvidenceID() string { return "ev-" + uuid.New().String() }
