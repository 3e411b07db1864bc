package privacy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sourpat/AutoComply-AI-sub000/pkg/contracts"
)

func TestScan_DetectsValuePatterns(t *testing.T) {
	findings := Scan(map[string]any{
		"contact": map[string]any{
			"work": "reach me at a@b.com",
		},
		"notes": "ssn 123-45-6789 on file",
	})

	rules := map[string]bool{}
	for _, f := range findings {
		rules[f.Rule] = true
	}
	assert.True(t, rules[RuleEmail])
	assert.True(t, rules[RuleSSN])
}

func TestScan_SensitiveFieldNames(t *testing.T) {
	findings := Scan(map[string]any{
		"license_number": "NP.123",
		"Patient Name":   "John Doe",
		"harmless":       "nothing here",
	})

	var flagged []string
	for _, f := range findings {
		if f.Rule == RuleSensitiveField {
			flagged = append(flagged, f.FieldName)
		}
	}
	assert.ElementsMatch(t, []string{"license_number", "Patient Name"}, flagged)
}

func TestScan_PathsAndPreviews(t *testing.T) {
	findings := Scan(map[string]any{
		"history": []any{
			map[string]any{"note": "mail x@y.com"},
		},
	})
	require.NotEmpty(t, findings)
	assert.Equal(t, "$.history[0].note", findings[0].Path)
	assert.Equal(t, "ma***", findings[0].ValuePreview)
}

func TestScan_Deterministic(t *testing.T) {
	input := map[string]any{
		"zeta":  "a@b.com",
		"alpha": "c@d.com",
		"mid":   map[string]any{"email": "e@f.com"},
	}
	first := Scan(input)
	second := Scan(input)
	assert.Equal(t, first, second)
}

func TestEffectiveMode(t *testing.T) {
	assert.Equal(t, ModeSafe, EffectiveMode(ModeFull, contracts.Actor{Role: contracts.RoleVerifier}))
	assert.Equal(t, ModeSafe, EffectiveMode(ModeSafe, contracts.Actor{Role: contracts.RoleAdmin}))
	assert.Equal(t, ModeFull, EffectiveMode(ModeFull, contracts.Actor{Role: contracts.RoleAdmin}))
	assert.Equal(t, ModeFull, EffectiveMode(ModeFull, contracts.Actor{Role: contracts.RoleDevSupport}))
	assert.Equal(t, ModeSafe, EffectiveMode(ModeFull, contracts.Actor{Role: contracts.RoleSubmitter}))
}

func TestRedact_SafeModeReplacesValues(t *testing.T) {
	input := map[string]any{
		"form_data": map[string]any{
			"email": "a@b.com",
			"phone": "555-987-6543",
			"name":  "X",
		},
	}
	redacted, report, err := Redact(input, ModeSafe)
	require.NoError(t, err)

	assert.GreaterOrEqual(t, report.RulesTriggered[RuleEmail], 1)
	assert.GreaterOrEqual(t, report.RulesTriggered[RulePhone], 1)
	assert.Positive(t, report.RedactedFieldsCount)

	form := redacted.(map[string]any)["form_data"].(map[string]any)
	email, _ := form["email"].(string)
	assert.Contains(t, email, "[REDACTED:")
	phone, _ := form["phone"].(string)
	assert.Contains(t, phone, "[REDACTED:")

	// Original input is never mutated.
	original := input["form_data"].(map[string]any)
	assert.Equal(t, "a@b.com", original["email"])
}

func TestRedact_FullModeKeepsValues(t *testing.T) {
	input := map[string]any{"email": "a@b.com"}
	out, report, err := Redact(input, ModeFull)
	require.NoError(t, err)

	assert.Equal(t, ModeFull, report.Mode)
	assert.Positive(t, report.FindingsCount)
	assert.Zero(t, report.RedactedFieldsCount)
	assert.Equal(t, "a@b.com", out.(map[string]any)["email"])
}

func TestRedact_UnknownMode(t *testing.T) {
	_, _, err := Redact(map[string]any{}, Mode("loud"))
	require.Error(t, err)
}

func TestRedact_ReportDeterministic(t *testing.T) {
	input := map[string]any{
		"b": "a@b.com",
		"a": map[string]any{"ssn": "123-45-6789"},
		"c": []any{"call 555-123-4567"},
	}
	_, r1, err := Redact(input, ModeSafe)
	require.NoError(t, err)
	_, r2, err := Redact(input, ModeSafe)
	require.NoError(t, err)
	assert.Equal(t, r1, r2)
}

func TestApplyEvidenceRetention(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	policy := DefaultPolicy()

	items := []*contracts.EvidenceItem{
		{ID: "old", CreatedAt: now.AddDate(0, 0, -31)},
		{ID: "fresh", CreatedAt: now.AddDate(0, 0, -1)},
	}
	kept, pruned := policy.ApplyEvidenceRetention(items, now)
	assert.Equal(t, 1, pruned)
	require.Len(t, kept, 1)
	assert.Equal(t, "fresh", kept[0].ID)
}

func TestApplyPayloadRetention(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	policy := DefaultPolicy()

	entries := []*contracts.IntelligenceEntry{
		{ID: "old", ComputedAt: now.AddDate(0, 0, -91), Payload: map[string]any{"decision": "x"}},
		{ID: "fresh", ComputedAt: now.AddDate(0, 0, -5), Payload: map[string]any{"decision": "y"}},
	}
	out, blanked := policy.ApplyPayloadRetention(entries, now)
	assert.Equal(t, 1, blanked)
	assert.Nil(t, out[0].Payload)
	assert.NotNil(t, out[1].Payload)

	// Stored entries are untouched; only the snapshot copy is blanked.
	assert.NotNil(t, entries[0].Payload)
}
