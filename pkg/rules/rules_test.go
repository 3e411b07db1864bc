package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sourpat/AutoComply-AI-sub000/pkg/contracts"
)

func fullCSFSubmission() *contracts.Submission {
	return &contracts.Submission{
		DecisionType: "csf",
		FormData: map[string]any{
			"name":          "Dr. Smith",
			"licenseNumber": "NP.123",
			"address":       "1 Main St",
			"state":         "OH",
			"specialty":     "CNP",
			"experience":    "5y",
			"zip":           "43215",
			"email":         "x@y.com",
		},
	}
}

func TestEvaluate_FullCSFPasses(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	results := e.Evaluate("csf", fullCSFSubmission())
	require.Len(t, results, 8)
	for _, res := range results {
		assert.True(t, res.Passed, "rule %s should pass", res.RuleID)
		assert.Empty(t, res.Reason)
	}
}

func TestEvaluate_CSAMissingFields(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	results := e.Evaluate("csa", &contracts.Submission{
		DecisionType: "csa",
		FormData: map[string]any{
			"name":    "X",
			"address": "Y",
			"zip":     "43215",
		},
	})
	require.Len(t, results, 5)

	passed := 0
	failed := map[string]bool{}
	for _, res := range results {
		if res.Passed {
			passed++
			continue
		}
		failed[res.RuleID] = true
		assert.NotEmpty(t, res.Reason)
		assert.NotEmpty(t, res.FieldPath)
	}
	assert.Equal(t, 3, passed)
	assert.True(t, failed["license_present"])
	assert.True(t, failed["state_valid"])
}

func TestEvaluate_NilSubmission(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	results := e.Evaluate("csf", nil)
	require.Len(t, results, 8)
	for _, res := range results {
		assert.False(t, res.Passed)
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	sub := fullCSFSubmission()
	first := e.Evaluate("csf", sub)
	second := e.Evaluate("csf", sub)
	assert.Equal(t, first, second)
}

func TestPackFor_FamilyPrefix(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	tests := []struct {
		decisionType string
		family       string
	}{
		{"csf", "csf"},
		{"csf_practitioner", "csf"},
		{"CSA", "csa"},
		{"csa_renewal", "csa"},
		{"license_application", "csf"}, // unknown family defaults to csf
		{"", "csf"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.family, e.PackFor(tt.decisionType).Family, "decision type %q", tt.decisionType)
	}
}

func TestPackVersion_Format(t *testing.T) {
	e, err := NewEngine()
	require.NoError(t, err)

	assert.Equal(t, "csf@1.2.0", e.PackVersion("csf_practitioner"))
	assert.Equal(t, "csa@1.0.1", e.PackVersion("csa"))
}

func TestLoadEngine_RejectsBadVersion(t *testing.T) {
	_, err := loadEngine([]byte(`
packs:
  - family: csf
    version: not-a-version
    rules: []
`))
	require.Error(t, err)
}

func TestLoadEngine_NewestRevisionWins(t *testing.T) {
	const ascending = `
packs:
  - family: csf
    version: 1.0.0
    rules: []
  - family: csf
    version: 1.2.0
    rules: []
`
	const descending = `
packs:
  - family: csf
    version: 1.2.0
    rules: []
  - family: csf
    version: 1.0.0
    rules: []
`
	for name, raw := range map[string]string{"ascending": ascending, "descending": descending} {
		e, err := loadEngine([]byte(raw))
		require.NoError(t, err, name)
		assert.Equal(t, "csf@1.2.0", e.PackVersion("csf"), name)
	}
}

func TestNewer(t *testing.T) {
	e, err := loadEngine([]byte(`
packs:
  - family: csf
    version: 2.0.0
    rules: []
  - family: csa
    version: 1.9.9
    rules: []
`))
	require.NoError(t, err)
	assert.True(t, e.Newer(e.packs["csf"], e.packs["csa"]))
}

func TestResolvePath_DotPaths(t *testing.T) {
	data := map[string]any{
		"practitioner": map[string]any{
			"contact": map[string]any{"email": "a@b.com"},
		},
	}
	v, ok := resolvePath(data, "practitioner.contact.email")
	require.True(t, ok)
	assert.Equal(t, "a@b.com", v)

	_, ok = resolvePath(data, "practitioner.missing.email")
	assert.False(t, ok)
}

func TestCheckValue(t *testing.T) {
	assert.True(t, checkValue("state", "oh"))
	assert.False(t, checkValue("state", "ZZ"))
	assert.True(t, checkValue("zip", "43215"))
	assert.True(t, checkValue("zip", "43215-1234"))
	assert.False(t, checkValue("zip", "4321"))
	assert.True(t, checkValue("email", "x@y.com"))
	assert.False(t, checkValue("email", "not-an-email"))
	assert.False(t, checkValue("unknown_check", "anything"))
}
