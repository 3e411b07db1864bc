// Package intelligence computes deterministic rule-based confidence for
// cases and maintains the append-only history chain.
package intelligence

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/Sourpat/AutoComply-AI-sub000/pkg/contracts"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/fault"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/integrity"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/rules"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/store"
)

// minInterval is the internal write guard: a recompute landing within
// this window of the previous entry returns that entry unchanged. This
// also serializes the chain: per-case locks plus the guard keep
// computed_at strictly monotonic for a case.
const minInterval = 2 * time.Second

// confidenceFloor prevents the degenerate "0% everywhere" case.
const confidenceFloor = 5.0

// Repository produces intelligence history entries.
type Repository struct {
	store  *store.Store
	engine *rules.Engine
	logger *slog.Logger
	now    func() time.Time

	mu        sync.Mutex
	caseLocks map[string]*sync.Mutex
}

// NewRepository builds a repository over the store and rule engine.
func NewRepository(st *store.Store, engine *rules.Engine) *Repository {
	return &Repository{
		store:     st,
		engine:    engine,
		logger:    slog.Default().With("component", "intelligence"),
		now:       time.Now,
		caseLocks: make(map[string]*sync.Mutex),
	}
}

// WithClock overrides the clock for tests.
func (r *Repository) WithClock(now func() time.Time) *Repository {
	r.now = now
	return r
}

func (r *Repository) lockCase(caseID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.caseLocks[caseID]
	if !ok {
		l = &sync.Mutex{}
		r.caseLocks[caseID] = l
	}
	return l
}

// Compute runs the rule engine for a case and appends a history entry.
// The returned bool is false when the internal guard skipped the write
// and the prior entry was returned unchanged.
func (r *Repository) Compute(ctx context.Context, caseID string, trigger contracts.Trigger, actor contracts.Actor) (*contracts.IntelligenceEntry, bool, error) {
	lock := r.lockCase(caseID)
	lock.Lock()
	defer lock.Unlock()

	now := r.now().UTC()

	prior, err := r.store.LatestHistory(ctx, caseID)
	if err != nil && !fault.IsKind(err, fault.KindNotFound) {
		return nil, false, err
	}
	if prior != nil && now.Sub(prior.ComputedAt) < minInterval {
		return prior, false, nil
	}

	c, err := r.store.GetCase(ctx, caseID)
	if err != nil {
		return nil, false, err
	}

	// Synthetic cases have no submission; rules run on empty form data.
	var sub *contracts.Submission
	if c.SubmissionID != "" {
		sub, err = r.store.GetSubmission(ctx, c.SubmissionID)
		if err != nil {
			return nil, false, err
		}
	}

	evidence, err := r.store.ListEvidence(ctx, caseID)
	if err != nil {
		return nil, false, err
	}
	summaries := make([]map[string]any, 0, len(evidence))
	for _, item := range evidence {
		summaries = append(summaries, item.Summary())
	}

	results := r.engine.Evaluate(c.DecisionType, sub)
	entry, err := buildEntry(c, sub, results, summaries, r.engine.PackVersion(c.DecisionType), trigger, actor, now)
	if err != nil {
		return nil, false, err
	}
	if prior != nil {
		entry.PreviousRunID = prior.ID
	}

	err = r.store.WithTx(ctx, func(tx *store.Tx) error {
		if err := tx.AppendHistory(ctx, entry); err != nil {
			return err
		}
		event := contracts.NewEvent(caseID, contracts.EventIntelligenceUpdated, actor,
			fmt.Sprintf("decision intelligence recomputed: %.2f%% (%s)", entry.ConfidenceScore, entry.ConfidenceBand),
			map[string]any{
				"run_id":           entry.ID,
				"confidence_score": entry.ConfidenceScore,
				"confidence_band":  string(entry.ConfidenceBand),
				"rules_passed":     entry.RulesPassed,
				"rules_total":      entry.RulesTotal,
				"trigger":          string(entry.Trigger),
				"input_hash":       entry.InputHash,
			})
		return tx.AppendEvent(ctx, event)
	})
	if err != nil {
		return nil, false, err
	}

	r.logger.Info("intelligence computed",
		"case_id", caseID,
		"score", entry.ConfidenceScore,
		"band", entry.ConfidenceBand,
		"trigger", entry.Trigger)
	return entry, true, nil
}

// History returns a case's history entries for the reviewer view,
// newest-first.
func (r *Repository) History(ctx context.Context, caseID string, limit int) ([]*contracts.IntelligenceEntry, error) {
	if _, err := r.store.GetCase(ctx, caseID); err != nil {
		return nil, err
	}
	entries, err := r.store.ListHistory(ctx, caseID, true, limit)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []*contracts.IntelligenceEntry{}
	}
	return entries, nil
}

func buildEntry(c *contracts.Case, sub *contracts.Submission, results []rules.RuleResult,
	evidenceSummaries []map[string]any, packVersion string,
	trigger contracts.Trigger, actor contracts.Actor, now time.Time) (*contracts.IntelligenceEntry, error) {

	passed := 0
	rulesHit := make([]string, 0, len(results))
	gaps := make([]map[string]any, 0)
	for _, res := range results {
		if res.Passed {
			passed++
			rulesHit = append(rulesHit, res.RuleID)
			continue
		}
		gaps = append(gaps, map[string]any{
			"rule_id":    res.RuleID,
			"severity":   string(res.Severity),
			"field_path": res.FieldPath,
			"reason":     res.Reason,
		})
	}

	score, band := scoreAndBand(passed, len(results))

	var formData map[string]any
	if sub != nil {
		formData = sub.FormData
	}
	inputHash, err := integrity.ComputeInputHash(formData, evidenceSummaries, packVersion)
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, "compute input hash", err)
	}

	decision := "needs_review"
	reason := fmt.Sprintf("%d of %d rules passed", passed, len(results))
	switch band {
	case contracts.BandHigh:
		decision = "recommend_approve"
	case contracts.BandLow:
		decision = "recommend_escalate"
	}

	return &contracts.IntelligenceEntry{
		ID:              contracts.NewIntelligenceRunID(),
		CaseID:          c.ID,
		ComputedAt:      now,
		ConfidenceScore: score,
		ConfidenceBand:  band,
		RulesPassed:     passed,
		RulesTotal:      len(results),
		GapCount:        len(gaps),
		BiasCount:       0,
		Trigger:         trigger,
		ActorRole:       actor.Role,
		InputHash:       inputHash,
		Payload: map[string]any{
			"decision":          decision,
			"reason":            reason,
			"rules_hit":         rulesHit,
			"gaps":              gaps,
			"bias_flags":        []any{},
			"rule_pack_version": packVersion,
			"trigger":           string(trigger),
			"actor_role":        string(actor.Role),
		},
	}, nil
}

// scoreAndBand applies the floor, rounds to 2 decimals, and maps the
// band. A pack with no rules yields the unknown band at the floor score.
func scoreAndBand(passed, total int) (float64, contracts.ConfidenceBand) {
	if total == 0 {
		return confidenceFloor, contracts.BandUnknown
	}
	raw := float64(passed) / float64(total) * 100
	if raw < confidenceFloor {
		raw = confidenceFloor
	}
	score := math.Round(raw*100) / 100
	return score, contracts.BandForScore(score)
}
