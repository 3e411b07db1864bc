// Package integrity provides canonical input hashing, history chain
// verification, and duplicate-run analysis for the intelligence audit
// trail. The chain detects reordering and deletion; export signing (a
// separate guarantee) detects external tampering.
package integrity

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// Canonicalize returns the RFC 8785 canonical JSON form of v: keys sorted
// recursively, minimal separators, no HTML escaping.
func Canonicalize(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: marshal: %w", err)
	}
	canonical, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: transform: %w", err)
	}
	return canonical, nil
}

// HashBytes computes the SHA-256 hex digest of raw bytes.
func HashBytes(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// CanonicalHash returns the SHA-256 hex digest of the canonical form of v.
func CanonicalHash(v any) (string, error) {
	b, err := Canonicalize(v)
	if err != nil {
		return "", err
	}
	return HashBytes(b), nil
}

// ComputeInputHash builds the canonical intelligence input and hashes it.
// The input is exactly {form_data, evidence_summaries, rule_pack_version};
// volatile fields (computed_at, generated IDs, actor identity) are
// excluded by construction. Hash equality implies rule-engine output
// equality.
func ComputeInputHash(formData map[string]any, evidenceSummaries []map[string]any, rulePackVersion string) (string, error) {
	if evidenceSummaries == nil {
		evidenceSummaries = []map[string]any{}
	}
	input := map[string]any{
		"form_data":          formData,
		"evidence_summaries": evidenceSummaries,
		"rule_pack_version":  rulePackVersion,
	}
	return CanonicalHash(input)
}
