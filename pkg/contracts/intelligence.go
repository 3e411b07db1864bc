package contracts

import (
	"time"

	"github.com/google/uuid"
)

// ConfidenceBand buckets a confidence score for reviewers.
type ConfidenceBand string

const (
	BandLow     ConfidenceBand = "low"
	BandMedium  ConfidenceBand = "medium"
	BandHigh    ConfidenceBand = "high"
	BandUnknown ConfidenceBand = "unknown"
)

// BandForScore maps a percentage score to its band.
func BandForScore(score float64) ConfidenceBand {
	switch {
	case score >= 80:
		return BandHigh
	case score >= 50:
		return BandMedium
	default:
		return BandLow
	}
}

// Trigger identifies what caused an intelligence recompute.
type Trigger string

const (
	TriggerManual      Trigger = "manual"
	TriggerSubmission  Trigger = "submission"
	TriggerEvidence    Trigger = "evidence"
	TriggerRequestInfo Trigger = "request_info"
	TriggerDecision    Trigger = "decision"
	TriggerUnknown     Trigger = "unknown"
)

// IntelligenceEntry is one immutable record of a decision-intelligence
// computation. Entries for a case form an append-only chain linked by
// PreviousRunID; they are never updated and never deleted except through
// full case deletion.
type IntelligenceEntry struct {
	ID              string         `json:"id"`
	CaseID          string         `json:"case_id"`
	ComputedAt      time.Time      `json:"computed_at"`
	ConfidenceScore float64        `json:"confidence_score"`
	ConfidenceBand  ConfidenceBand `json:"confidence_band"`
	RulesPassed     int            `json:"rules_passed"`
	RulesTotal      int            `json:"rules_total"`
	GapCount        int            `json:"gap_count"`
	BiasCount       int            `json:"bias_count"`
	Trigger         Trigger        `json:"trigger"`
	ActorRole       Role           `json:"actor_role"`
	InputHash       string         `json:"input_hash"`
	PreviousRunID   string         `json:"previous_run_id,omitempty"`
	Payload         map[string]any `json:"payload_json,omitempty"`
}

// NewIntelligenceRunID mints a history entry identifier. The ID doubles
// as the previous_run_id of the next entry in the chain.
func NewIntelligenceRunID() string { return "run-" + uuid.New().String() }
