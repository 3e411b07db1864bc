package privacy

import (
	"fmt"
	"sort"

	"github.com/Sourpat/AutoComply-AI-sub000/pkg/contracts"
	"github.com/Sourpat/AutoComply-AI-sub000/pkg/fault"
)

// Mode selects how detected PII is treated during export.
type Mode string

const (
	// ModeSafe redacts detected values with sentinels. Required for
	// verifier-role exports.
	ModeSafe Mode = "safe"
	// ModeFull leaves values intact; findings are still counted.
	// Allowed only for admin and devsupport.
	ModeFull Mode = "full"
)

const sampleLimit = 10

// EffectiveMode resolves the mode an actor is permitted: verifiers are
// always forced into safe mode, admin and devsupport get what they asked
// for.
func EffectiveMode(requested Mode, actor contracts.Actor) Mode {
	if requested == ModeFull && actor.CanViewFullPayload() {
		return ModeFull
	}
	return ModeSafe
}

// ValidMode reports whether m is a known redaction mode.
func ValidMode(m Mode) bool { return m == ModeSafe || m == ModeFull }

// RetentionStats counts what the retention pass pruned.
type RetentionStats struct {
	EvidencePruned        int `json:"evidence_pruned"`
	PayloadsBlanked       int `json:"payloads_blanked"`
	EvidenceRetentionDays int `json:"evidence_retention_days"`
	PayloadRetentionDays  int `json:"payload_retention_days"`
}

// RedactionReport is the deterministic summary attached to every export.
type RedactionReport struct {
	Mode                 Mode           `json:"mode"`
	FindingsCount        int            `json:"findings_count"`
	RedactedFieldsCount  int            `json:"redacted_fields_count"`
	RedactedFieldsSample []string       `json:"redacted_fields_sample"`
	RulesTriggered       map[string]int `json:"rules_triggered"`
	RetentionApplied     bool           `json:"retention_applied"`
	RetentionStats       RetentionStats `json:"retention_stats"`
	PIIFindingsSample    []PIIFinding   `json:"pii_findings_sample,omitempty"`
}

// Redact scans value and, in safe mode, replaces detected values with
// sentinels in a deep copy. The input is never mutated. The returned
// report is byte-stable for a fixed input and mode.
func Redact(value any, mode Mode) (any, RedactionReport, error) {
	if !ValidMode(mode) {
		return nil, RedactionReport{}, fault.Newf(fault.KindBadRequest, "unknown redaction mode %q", mode)
	}

	findings := Scan(value)

	report := RedactionReport{
		Mode:                 mode,
		FindingsCount:        len(findings),
		RedactedFieldsSample: []string{},
		RulesTriggered:       map[string]int{},
	}
	for _, f := range findings {
		report.RulesTriggered[f.Rule]++
	}
	if n := len(findings); n > 0 {
		sample := n
		if sample > sampleLimit {
			sample = sampleLimit
		}
		report.PIIFindingsSample = findings[:sample]
	}

	if mode == ModeFull {
		return value, report, nil
	}

	// Safe mode: replace each finding's value in a deep copy. Findings on
	// container paths (sensitive field names over objects) strip to a
	// sentinel as well.
	redacted := deepCopy(value)
	replaced := map[string]bool{}
	for _, f := range findings {
		if replaced[f.Path] {
			continue
		}
		if setByPath(redacted, f.Path, "[REDACTED:"+f.Rule+"]") {
			replaced[f.Path] = true
		}
	}

	report.RedactedFieldsCount = len(replaced)
	paths := make([]string, 0, len(replaced))
	for p := range replaced {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	if len(paths) > sampleLimit {
		paths = paths[:sampleLimit]
	}
	report.RedactedFieldsSample = paths

	return redacted, report, nil
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	default:
		return v
	}
}

// setByPath replaces the value at a JSONPath-style path produced by Scan.
// Containers are reference types, so mutating the resolved map or slice
// element mutates the copy being redacted. Returns false if the path no
// longer resolves.
func setByPath(root any, path string, sentinel string) bool {
	segments := parsePath(path)
	if len(segments) == 0 {
		return false
	}
	current := root
	for i, seg := range segments {
		last := i == len(segments)-1
		switch s := seg.(type) {
		case string:
			m, ok := current.(map[string]any)
			if !ok {
				return false
			}
			if last {
				if _, exists := m[s]; !exists {
					return false
				}
				m[s] = sentinel
				return true
			}
			if current, ok = m[s]; !ok {
				return false
			}
		case int:
			arr, ok := current.([]any)
			if !ok || s < 0 || s >= len(arr) {
				return false
			}
			if last {
				arr[s] = sentinel
				return true
			}
			current = arr[s]
		}
	}
	return false
}

// parsePath splits "$.a.b[2].c" into segments: "a", "b", 2, "c".
func parsePath(path string) []any {
	var segments []any
	i := 0
	if len(path) > 0 && path[0] == '$' {
		i = 1
	}
	for i < len(path) {
		switch path[i] {
		case '.':
			i++
			start := i
			for i < len(path) && path[i] != '.' && path[i] != '[' {
				i++
			}
			if i > start {
				segments = append(segments, path[start:i])
			}
		case '[':
			i++
			start := i
			for i < len(path) && path[i] != ']' {
				i++
			}
			idx := 0
			if _, err := fmt.Sscanf(path[start:i], "%d", &idx); err == nil {
				segments = append(segments, idx)
			}
			i++ // skip ']'
		default:
			i++
		}
	}
	return segments
}
