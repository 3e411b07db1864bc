package export

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sourpat/AutoComply-AI-sub000/pkg/config"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/contracts"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/fault"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/integrity"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/intelligence"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/privacy"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/rules"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/store"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/workflow"
)

var (
	verifier = contracts.Actor{Role: contracts.RoleVerifier, ID: "ver-user"}
	admin    = contracts.Actor{Role: contracts.RoleAdmin, ID: "adm-user"}
)

type exportFixture struct {
	store    *store.Store
	exporter *Exporter
	signer   *Signer
	caseID   string
}

// newExportFixture ingests a submission carrying PII, attaches evidence,
// and computes two intelligence runs so the bundle has a real chain.
func newExportFixture(t *testing.T) *exportFixture {
	t.Helper()
	ctx := context.Background()

	st, err := store.Open(ctx, "file:"+filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	engine, err := rules.NewEngine()
	require.NoError(t, err)

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	repo := intelligence.NewRepository(st, engine).WithClock(func() time.Time {
		now = now.Add(10 * time.Second)
		return now
	})

	svc := workflow.NewService(st, nil, t.TempDir())
	_, c, err := svc.CreateSubmission(ctx, workflow.CreateSubmissionInput{
		DecisionType: "csf",
		SubmittedBy:  "dr.smith@example.com",
		FormData: map[string]any{
			"name":  "Dr. Smith",
			"email": "dr.smith@example.com",
			"phone": "555-987-6543",
			"state": "OH",
		},
	}, contracts.Actor{Role: contracts.RoleSubmitter, ID: "sub-user"})
	require.NoError(t, err)

	_, err = svc.AttachEvidence(ctx, c.ID, workflow.AttachEvidenceInput{Title: "board lookup"}, verifier)
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, computed, err := repo.Compute(ctx, c.ID, contracts.TriggerManual, contracts.SystemActor)
		require.NoError(t, err)
		require.True(t, computed)
	}

	signer, err := NewSigner("test-secret", "dev")
	require.NoError(t, err)

	exporter := NewExporter(st, signer, privacy.DefaultPolicy(), nil).
		WithClock(func() time.Time { return now })
	return &exportFixture{store: st, exporter: exporter, signer: signer, caseID: c.ID}
}

func TestExport_BundleShape(t *testing.T) {
	f := newExportFixture(t)

	bundle, err := f.exporter.Export(context.Background(), f.caseID, true, privacy.ModeSafe, admin)
	require.NoError(t, err)

	meta := bundle["metadata"].(map[string]any)
	assert.Equal(t, f.caseID, meta["case_id"])
	assert.Equal(t, FormatVersion, meta["format_version"])
	assert.Equal(t, 2, meta["total_entries"])
	assert.Equal(t, true, meta["include_payload"])

	check := bundle["integrity_check"].(integrity.IntegrityReport)
	assert.True(t, check.IsValid)
	assert.Equal(t, 2, check.TotalEntries)
	assert.Equal(t, 2, check.VerifiedEntries)
}

func TestExport_ChainVerifies(t *testing.T) {
	f := newExportFixture(t)

	bundle, err := f.exporter.Export(context.Background(), f.caseID, true, privacy.ModeSafe, admin)
	require.NoError(t, err)

	raw, err := json.Marshal(bundle)
	require.NoError(t, err)

	var rendered map[string]any
	require.NoError(t, json.Unmarshal(raw, &rendered))
	check := rendered["integrity_check"].(map[string]any)
	assert.Equal(t, true, check["is_valid"])
	assert.Equal(t, float64(2), check["total_entries"])
}

func TestExport_SignatureRoundTrip(t *testing.T) {
	f := newExportFixture(t)

	bundle, err := f.exporter.Export(context.Background(), f.caseID, true, privacy.ModeSafe, admin)
	require.NoError(t, err)

	raw, err := json.Marshal(bundle)
	require.NoError(t, err)
	assert.NoError(t, f.signer.VerifyBundle(raw))
}

func TestExport_TamperDetected(t *testing.T) {
	f := newExportFixture(t)

	bundle, err := f.exporter.Export(context.Background(), f.caseID, true, privacy.ModeSafe, admin)
	require.NoError(t, err)

	raw, err := json.Marshal(bundle)
	require.NoError(t, err)

	tampered := bytes.Replace(raw, []byte(`"format_version":"1.0"`), []byte(`"format_version":"1.1"`), 1)
	require.NotEqual(t, raw, tampered)

	err = f.signer.VerifyBundle(tampered)
	require.Error(t, err)
	assert.Contains(t, fault.MessageOf(err), "signature mismatch")
}

func TestExport_VerifierForcedSafe(t *testing.T) {
	f := newExportFixture(t)

	bundle, err := f.exporter.Export(context.Background(), f.caseID, true, privacy.ModeFull, verifier)
	require.NoError(t, err)

	em := bundle["export_metadata"].(map[string]any)
	assert.Equal(t, "safe", em["redaction_mode"])

	report := em["redaction_report"].(privacy.RedactionReport)
	assert.GreaterOrEqual(t, report.RulesTriggered[privacy.RuleEmail], 1)
	assert.GreaterOrEqual(t, report.RulesTriggered[privacy.RulePhone], 1)
	assert.Positive(t, em["redacted_fields_count"])

	// No raw PII survives anywhere in the rendered bundle.
	raw, err := json.Marshal(bundle)
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "555-987-6543")
}

func TestExport_AdminFullKeepsValues(t *testing.T) {
	f := newExportFixture(t)

	bundle, err := f.exporter.Export(context.Background(), f.caseID, true, privacy.ModeFull, admin)
	require.NoError(t, err)

	em := bundle["export_metadata"].(map[string]any)
	assert.Equal(t, "full", em["redaction_mode"])

	raw, err := json.Marshal(bundle)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "555-987-6543")
}

func TestExport_ExcludePayload(t *testing.T) {
	f := newExportFixture(t)

	bundle, err := f.exporter.Export(context.Background(), f.caseID, false, privacy.ModeSafe, admin)
	require.NoError(t, err)

	raw, err := json.Marshal(bundle)
	require.NoError(t, err)
	var rendered map[string]any
	require.NoError(t, json.Unmarshal(raw, &rendered))

	history := rendered["history"].([]any)
	require.Len(t, history, 2)
	for _, h := range history {
		entry := h.(map[string]any)
		assert.Nil(t, entry["payload_json"])
		assert.NotEmpty(t, entry["input_hash"], "hashes survive payload exclusion")
	}
}

func TestExport_EmitsExportedEvent(t *testing.T) {
	f := newExportFixture(t)
	ctx := context.Background()

	_, err := f.exporter.Export(ctx, f.caseID, true, privacy.ModeSafe, admin)
	require.NoError(t, err)

	events, err := f.store.ListEvents(ctx, f.caseID, 1)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, contracts.EventExported, events[0].EventType)
	assert.Equal(t, true, events[0].Payload["is_valid"])
}

func TestExport_UnknownCase(t *testing.T) {
	f := newExportFixture(t)
	_, err := f.exporter.Export(context.Background(), "case-missing", true, privacy.ModeSafe, admin)
	assert.True(t, fault.IsKind(err, fault.KindNotFound))
}

func TestNewSigner_ProdRefusesDevDefault(t *testing.T) {
	_, err := NewSigner("", "prod")
	require.Error(t, err)
	_, err = NewSigner(config.DevSigningKey, "prod")
	require.Error(t, err)

	s, err := NewSigner("real-secret", "prod")
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestSigner_KeysDiffer(t *testing.T) {
	a, err := NewSigner("secret-a", "dev")
	require.NoError(t, err)
	b, err := NewSigner("secret-b", "dev")
	require.NoError(t, err)

	payload := map[string]any{"x": 1}
	sigA, err := a.Sign(payload)
	require.NoError(t, err)
	sigB, err := b.Sign(payload)
	require.NoError(t, err)
	assert.NotEqual(t, sigA.Value, sigB.Value)
	assert.Equal(t, Algorithm, sigA.Algorithm)
}

func TestVerifyBundle_MissingSignature(t *testing.T) {
	s, err := NewSigner("test-secret", "dev")
	require.NoError(t, err)

	err = s.VerifyBundle([]byte(`{"metadata":{}}`))
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.KindBadRequest))
}

func TestVerifyBundle_FailedIntegrityCheck(t *testing.T) {
	s, err := NewSigner("test-secret", "dev")
	require.NoError(t, err)

	bundle := map[string]any{
		"metadata":        map[string]any{"case_id": "case-1"},
		"integrity_check": map[string]any{"is_valid": false},
	}
	sig, err := s.Sign(bundle)
	require.NoError(t, err)
	bundle["signature"] = sig

	raw, err := json.Marshal(bundle)
	require.NoError(t, err)

	err = s.VerifyBundle(raw)
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.KindConflict))
}
