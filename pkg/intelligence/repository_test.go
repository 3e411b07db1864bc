package intelligence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sourpat/AutoComply-AI-sub000/pkg/contracts"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/fault"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/rules"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/store"
)

type fixture struct {
	store *store.Store
	repo  *Repository
	now   time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st, err := store.Open(context.Background(), "file:"+filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	engine, err := rules.NewEngine()
	require.NoError(t, err)

	f := &fixture{store: st, now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	f.repo = NewRepository(st, engine).WithClock(func() time.Time { return f.now })
	return f
}

func (f *fixture) advance(d time.Duration) { f.now = f.now.Add(d) }

func (f *fixture) seedCase(t *testing.T, formData map[string]any) *contracts.Case {
	t.Helper()
	ctx := context.Background()

	sub := &contracts.Submission{
		ID:           contracts.NewSubmissionID(),
		DecisionType: "csf",
		SubmittedBy:  "dr.smith@example.com",
		FormData:     formData,
		Status:       contracts.SubmissionSubmitted,
		CreatedAt:    f.now,
	}
	require.NoError(t, f.store.CreateSubmission(ctx, sub))

	c := &contracts.Case{
		ID:                contracts.NewCaseID(),
		SubmissionID:      sub.ID,
		DecisionType:      "csf",
		Title:             "csf review: Dr. Smith",
		Status:            contracts.CaseNew,
		DueAt:             f.now.Add(24 * time.Hour),
		PacketEvidenceIDs: []string{},
		CreatedAt:         f.now,
		UpdatedAt:         f.now,
	}
	require.NoError(t, f.store.CreateCase(ctx, c))
	return c
}

func fullCSFForm() map[string]any {
	return map[string]any{
		"name":          "Dr. Smith",
		"licenseNumber": "NP.123",
		"address":       "1 Main St",
		"state":         "OH",
		"specialty":     "CNP",
		"experience":    "5y",
		"zip":           "43215",
		"email":         "x@y.com",
	}
}

func TestCompute_FullPass(t *testing.T) {
	f := newFixture(t)
	c := f.seedCase(t, fullCSFForm())

	entry, computed, err := f.repo.Compute(context.Background(), c.ID, contracts.TriggerManual, contracts.SystemActor)
	require.NoError(t, err)
	assert.True(t, computed)

	assert.Equal(t, 100.0, entry.ConfidenceScore)
	assert.Equal(t, contracts.BandHigh, entry.ConfidenceBand)
	assert.Equal(t, 8, entry.RulesPassed)
	assert.Equal(t, 8, entry.RulesTotal)
	assert.Zero(t, entry.GapCount)
	assert.Empty(t, entry.PreviousRunID)
	assert.Len(t, entry.InputHash, 64)
	assert.Equal(t, "recommend_approve", entry.Payload["decision"])
	assert.Equal(t, "csf@1.2.0", entry.Payload["rule_pack_version"])

	events, err := f.store.ListEvents(context.Background(), c.ID, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, contracts.EventIntelligenceUpdated, events[0].EventType)
	assert.Equal(t, entry.ID, events[0].Payload["run_id"])
}

func TestCompute_GapsLowerConfidence(t *testing.T) {
	f := newFixture(t)
	c := f.seedCase(t, map[string]any{"name": "Dr. Smith", "state": "OH"})

	entry, computed, err := f.repo.Compute(context.Background(), c.ID, contracts.TriggerManual, contracts.SystemActor)
	require.NoError(t, err)
	assert.True(t, computed)

	assert.Less(t, entry.ConfidenceScore, 100.0)
	assert.Equal(t, entry.RulesTotal-entry.RulesPassed, entry.GapCount)
	gaps, ok := entry.Payload["gaps"].([]map[string]any)
	require.True(t, ok)
	assert.Len(t, gaps, entry.GapCount)
}

func TestCompute_ChainsPreviousRun(t *testing.T) {
	f := newFixture(t)
	c := f.seedCase(t, fullCSFForm())
	ctx := context.Background()

	first, computed, err := f.repo.Compute(ctx, c.ID, contracts.TriggerManual, contracts.SystemActor)
	require.NoError(t, err)
	require.True(t, computed)

	f.advance(5 * time.Second)
	second, computed, err := f.repo.Compute(ctx, c.ID, contracts.TriggerSubmission, contracts.SystemActor)
	require.NoError(t, err)
	require.True(t, computed)
	assert.Equal(t, first.ID, second.PreviousRunID)

	f.advance(5 * time.Second)
	third, computed, err := f.repo.Compute(ctx, c.ID, contracts.TriggerManual, contracts.SystemActor)
	require.NoError(t, err)
	require.True(t, computed)
	assert.Equal(t, second.ID, third.PreviousRunID)

	entries, err := f.repo.History(ctx, c.ID, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, third.ID, entries[0].ID)
}

func TestCompute_WriteGuardReturnsPrior(t *testing.T) {
	f := newFixture(t)
	c := f.seedCase(t, fullCSFForm())
	ctx := context.Background()

	first, computed, err := f.repo.Compute(ctx, c.ID, contracts.TriggerManual, contracts.SystemActor)
	require.NoError(t, err)
	require.True(t, computed)

	f.advance(time.Second)
	again, computed, err := f.repo.Compute(ctx, c.ID, contracts.TriggerManual, contracts.SystemActor)
	require.NoError(t, err)
	assert.False(t, computed)
	assert.Equal(t, first.ID, again.ID)

	entries, err := f.repo.History(ctx, c.ID, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCompute_SameInputSameHash(t *testing.T) {
	f := newFixture(t)
	c := f.seedCase(t, fullCSFForm())
	ctx := context.Background()

	first, _, err := f.repo.Compute(ctx, c.ID, contracts.TriggerManual, contracts.SystemActor)
	require.NoError(t, err)

	f.advance(5 * time.Second)
	second, _, err := f.repo.Compute(ctx, c.ID, contracts.TriggerManual, contracts.SystemActor)
	require.NoError(t, err)
	assert.Equal(t, first.InputHash, second.InputHash)
}

func TestCompute_EvidenceChangesHash(t *testing.T) {
	f := newFixture(t)
	c := f.seedCase(t, fullCSFForm())
	ctx := context.Background()

	first, _, err := f.repo.Compute(ctx, c.ID, contracts.TriggerManual, contracts.SystemActor)
	require.NoError(t, err)

	require.NoError(t, f.store.CreateEvidence(ctx, &contracts.EvidenceItem{
		ID: contracts.NewEvidenceID(), CaseID: c.ID, Title: "board lookup", CreatedAt: f.now,
	}))

	f.advance(5 * time.Second)
	second, _, err := f.repo.Compute(ctx, c.ID, contracts.TriggerEvidence, contracts.SystemActor)
	require.NoError(t, err)
	assert.NotEqual(t, first.InputHash, second.InputHash)
}

func TestCompute_UnknownCase(t *testing.T) {
	f := newFixture(t)
	_, _, err := f.repo.Compute(context.Background(), "case-missing", contracts.TriggerManual, contracts.SystemActor)
	assert.True(t, fault.IsKind(err, fault.KindNotFound))
}

func TestHistory_EmptyIsNotAnError(t *testing.T) {
	f := newFixture(t)
	c := f.seedCase(t, fullCSFForm())

	entries, err := f.repo.History(context.Background(), c.ID, 0)
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestHistory_UnknownCase(t *testing.T) {
	f := newFixture(t)
	_, err := f.repo.History(context.Background(), "case-missing", 0)
	assert.True(t, fault.IsKind(err, fault.KindNotFound))
}

func TestScoreAndBand(t *testing.T) {
	tests := []struct {
		passed, total int
		score         float64
		band          contracts.ConfidenceBand
	}{
		{8, 8, 100, contracts.BandHigh},
		{4, 5, 80, contracts.BandHigh},
		{1, 2, 50, contracts.BandMedium},
		{1, 3, 33.33, contracts.BandLow},
		{0, 8, 5, contracts.BandLow},
		{0, 0, 5, contracts.BandUnknown},
	}
	for _, tt := range tests {
		score, band := scoreAndBand(tt.passed, tt.total)
		assert.Equal(t, tt.score, score, "%d/%d", tt.passed, tt.total)
		assert.Equal(t, tt.band, band, "%d/%d", tt.passed, tt.total)
	}
}
