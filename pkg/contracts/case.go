package contracts

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/unicode/norm"
)

// CaseStatus is the reviewer-side lifecycle state.
type CaseStatus string

const (
	CaseNew       CaseStatus = "new"
	CaseInReview  CaseStatus = "in_review"
	CaseNeedsInfo CaseStatus = "needs_info"
	CaseApproved  CaseStatus = "approved"
	CaseRejected  CaseStatus = "rejected"
	CaseBlocked   CaseStatus = "blocked"
	CaseClosed    CaseStatus = "closed"
)

// Terminal reports whether the status has no outgoing transitions.
func (s CaseStatus) Terminal() bool {
	switch s {
	case CaseApproved, CaseRejected, CaseBlocked, CaseClosed:
		return true
	}
	return false
}

// ParseCaseStatus validates a status value from the API.
func ParseCaseStatus(s string) (CaseStatus, bool) {
	switch CaseStatus(s) {
	case CaseNew, CaseInReview, CaseNeedsInfo, CaseApproved,
		CaseRejected, CaseBlocked, CaseClosed:
		return CaseStatus(s), true
	}
	return "", false
}

// Case is a reviewable unit derived from a submission. SubmissionID is
// empty for synthetic cases. DueAt is derived once at creation and
// never changes afterwards.
type Case struct {
	ID                string     `json:"id"`
	SubmissionID      string     `json:"submission_id,omitempty"`
	DecisionType      string     `json:"decision_type"`
	Title             string     `json:"title"`
	Summary           string     `json:"summary,omitempty"`
	Status            CaseStatus `json:"status"`
	AssignedTo        string     `json:"assigned_to,omitempty"`
	AssignedAt        *time.Time `json:"assigned_at,omitempty"`
	DueAt             time.Time  `json:"due_at"`
	PacketEvidenceIDs []string   `json:"packet_evidence_ids"`
	SearchableText    string     `json:"-"`
	ReviewerNotes     string     `json:"reviewer_notes,omitempty"`
	AdminNotes        string     `json:"admin_notes,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// CaseView is the read-model served to clients: the stored case plus
// fields derived at read time. Derived fields are never persisted.
type CaseView struct {
	*Case
	AgeSeconds       int64 `json:"age_seconds"`
	RemainingSeconds int64 `json:"remaining_seconds"`
	Overdue          bool  `json:"overdue"`
}

// View derives the read-model at the given instant.
func (c *Case) View(now time.Time) *CaseView {
	return &CaseView{
		Case:             c,
		AgeSeconds:       int64(now.Sub(c.CreatedAt).Seconds()),
		RemainingSeconds: int64(c.DueAt.Sub(now).Seconds()),
		Overdue:          now.After(c.DueAt) && !c.Status.Terminal(),
	}
}

// SLAHours returns the review window for a decision type: 48h for the
// license family, 24h otherwise.
func SLAHours(decisionType string) int {
	if strings.Contains(strings.ToLower(decisionType), "license") {
		return 48
	}
	return 24
}

// NewCaseID mints a case identifier.
func NewCaseID() string { return "case-" + uuid.New().String() }

// BuildSearchableText normalizes the contributing fields into the
// denormalized search column: NFKC, lowercased, whitespace collapsed.
// Empty parts are dropped.
func BuildSearchableText(parts ...string) string {
	fields := make([]string, 0, len(parts))
	for _, p := range parts {
		p = norm.NFKC.String(p)
		p = strings.ToLower(p)
		for _, f := range strings.Fields(p) {
			fields = append(fields, f)
		}
	}
	return strings.Join(fields, " ")
}
