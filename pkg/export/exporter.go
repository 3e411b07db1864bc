package export

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/Sourpat/AutoComply-AI-sub000/pkg/contracts"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/fault"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/integrity"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/observability"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/privacy"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/store"
)

// FormatVersion is the bundle schema version.
const FormatVersion = "1.0"

// DefaultTimeout bounds one export end to end. On timeout the caller
// gets a partial-failure error and no exported event is emitted.
const DefaultTimeout = 30 * time.Second

// Exporter produces signed audit bundles.
type Exporter struct {
	store   *store.Store
	signer  *Signer
	policy  privacy.Policy
	metrics *observability.Provider
	logger  *slog.Logger
	now     func() time.Time
	timeout time.Duration
}

// NewExporter builds an exporter with the given retention policy.
func NewExporter(st *store.Store, signer *Signer, policy privacy.Policy, metrics *observability.Provider) *Exporter {
	return &Exporter{
		store:   st,
		signer:  signer,
		policy:  policy,
		metrics: metrics,
		logger:  slog.Default().With("component", "export"),
		now:     time.Now,
		timeout: DefaultTimeout,
	}
}

// WithClock overrides the clock for tests.
func (e *Exporter) WithClock(now func() time.Time) *Exporter {
	e.now = now
	return e
}

// WithTimeout overrides the per-export deadline.
func (e *Exporter) WithTimeout(d time.Duration) *Exporter {
	e.timeout = d
	return e
}

// Export assembles the signed bundle for a case. Integrity failures do
// not abort the export; is_valid=false is reported in-band and callers
// decide whether to trust the history.
func (e *Exporter) Export(ctx context.Context, caseID string, includePayload bool, requested privacy.Mode, actor contracts.Actor) (map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	now := e.now().UTC()
	mode := privacy.EffectiveMode(requested, actor)

	c, err := e.store.GetCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	history, err := e.store.ListHistory(ctx, caseID, false, 0)
	if err != nil {
		return nil, err
	}
	evidence, err := e.store.ListEvidence(ctx, caseID)
	if err != nil {
		return nil, err
	}
	events, err := e.store.ListEvents(ctx, caseID, 0)
	if err != nil {
		return nil, err
	}
	attachments, err := e.store.ListAttachments(ctx, caseID)
	if err != nil {
		return nil, err
	}

	var sub *contracts.Submission
	if c.SubmissionID != "" {
		if sub, err = e.store.GetSubmission(ctx, c.SubmissionID); err != nil {
			return nil, err
		}
	}

	// Retention runs on the export snapshot only; stored rows are
	// untouched.
	evidence, evidencePruned := e.policy.ApplyEvidenceRetention(evidence, now)
	history, payloadsBlanked := e.policy.ApplyPayloadRetention(history, now)
	if !includePayload {
		history = stripPayloads(history)
	}

	integrityCheck := integrity.VerifyChain(history)
	duplicates := integrity.AnalyzeDuplicates(history)

	snapshot := map[string]any{
		"case":        c.View(now),
		"submission":  sub,
		"evidence":    evidence,
		"events":      events,
		"attachments": attachments,
	}
	content, err := toGeneric(map[string]any{
		"case":    snapshot,
		"history": history,
	})
	if err != nil {
		return nil, err
	}

	redacted, report, err := privacy.Redact(content, mode)
	if err != nil {
		return nil, err
	}
	report.RetentionApplied = true
	report.RetentionStats = privacy.RetentionStats{
		EvidencePruned:        evidencePruned,
		PayloadsBlanked:       payloadsBlanked,
		EvidenceRetentionDays: e.policy.EvidenceRetentionDays,
		PayloadRetentionDays:  e.policy.PayloadRetentionDays,
	}

	body, ok := redacted.(map[string]any)
	if !ok {
		return nil, fault.New(fault.KindInternal, "redacted bundle has unexpected shape")
	}

	bundle := map[string]any{
		"metadata": map[string]any{
			"case_id":          caseID,
			"export_timestamp": now.Format(time.RFC3339Nano),
			"total_entries":    len(history),
			"include_payload":  includePayload,
			"format_version":   FormatVersion,
		},
		"integrity_check":    integrityCheck,
		"duplicate_analysis": duplicates,
		"history":            body["history"],
		"case":               body["case"],
		"export_metadata": map[string]any{
			"redaction_mode":        string(mode),
			"redacted_fields_count": report.RedactedFieldsCount,
			"retention_policy": map[string]any{
				"evidence_retention_days": e.policy.EvidenceRetentionDays,
				"payload_retention_days":  e.policy.PayloadRetentionDays,
			},
			"redaction_report": report,
		},
	}

	signature, err := e.signer.Sign(bundle)
	if err != nil {
		return nil, err
	}
	bundle["signature"] = signature

	// A timed-out export must not leave an exported event behind.
	if ctx.Err() != nil {
		return nil, fault.Wrap(fault.KindInternal, "export deadline exceeded", ctx.Err())
	}
	event := contracts.NewEvent(caseID, contracts.EventExported, actor,
		"audit bundle exported",
		map[string]any{
			"redaction_mode":  string(mode),
			"include_payload": includePayload,
			"total_entries":   len(history),
			"is_valid":        integrityCheck.IsValid,
		})
	if err := e.store.AppendEvent(ctx, event); err != nil {
		return nil, err
	}

	e.metrics.RecordExport(ctx, string(mode))
	e.logger.Info("audit bundle exported",
		"case_id", caseID,
		"mode", mode,
		"entries", len(history),
		"is_valid", integrityCheck.IsValid)
	return bundle, nil
}

func stripPayloads(entries []*contracts.IntelligenceEntry) []*contracts.IntelligenceEntry {
	out := make([]*contracts.IntelligenceEntry, len(entries))
	for i, entry := range entries {
		clone := *entry
		clone.Payload = nil
		out[i] = &clone
	}
	return out
}

// toGeneric round-trips typed structs into the map/slice shape the
// scanner and redactor operate on.
func toGeneric(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fault.Wrap(fault.KindInternal, "encode export content", err)
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fault.Wrap(fault.KindInternal, "decode export content", err)
	}
	return out, nil
}
