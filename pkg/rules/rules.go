// Package rules evaluates decision-type rule packs against submissions.
// The engine is pure: no I/O, no clock, no randomness. The same input
// always produces the same ordered result list.
package rules

import (
	_ "embed"
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/Sourpat/AutoComply-AI-sub000/pkg/contracts"
)

// Severity grades a rule failure.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// RuleResult is the outcome of a single rule against a submission.
type RuleResult struct {
	RuleID    string   `json:"rule_id"`
	Passed    bool     `json:"passed"`
	Severity  Severity `json:"severity"`
	Reason    string   `json:"reason"`
	FieldPath string   `json:"field_path"`
}

// Rule probes an ordered list of equivalent field names and passes if any
// resolves and satisfies the check.
type Rule struct {
	ID       string   `yaml:"id"`
	Severity Severity `yaml:"severity"`
	Check    string   `yaml:"check"`
	Aliases  []string `yaml:"aliases"`
	Reason   string   `yaml:"reason"`
}

// Pack is the rule set for one decision-type family.
type Pack struct {
	Family  string `yaml:"family"`
	Version string `yaml:"version"`
	Rules   []Rule `yaml:"rules"`

	semver *semver.Version
}

type packFile struct {
	Packs []*Pack `yaml:"packs"`
}

//go:embed packs.yaml
var packsYAML []byte

// Engine holds the loaded rule packs.
type Engine struct {
	packs map[string]*Pack
}

// NewEngine loads the embedded launch packs (CSF family: 8 rules, CSA
// family: 5 rules) and validates their versions.
func NewEngine() (*Engine, error) {
	return loadEngine(packsYAML)
}

func loadEngine(raw []byte) (*Engine, error) {
	var pf packFile
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return nil, fmt.Errorf("rules: parse packs: %w", err)
	}
	e := &Engine{packs: make(map[string]*Pack, len(pf.Packs))}
	for _, p := range pf.Packs {
		v, err := semver.NewVersion(p.Version)
		if err != nil {
			return nil, fmt.Errorf("rules: pack %q version %q: %w", p.Family, p.Version, err)
		}
		p.semver = v
		// A family may ship several revisions; the newest release wins.
		if existing, ok := e.packs[p.Family]; ok && e.Newer(existing, p) {
			continue
		}
		e.packs[p.Family] = p
	}
	if len(e.packs) == 0 {
		return nil, fmt.Errorf("rules: no packs loaded")
	}
	return e, nil
}

// PackFor resolves the rule pack for a decision type by family prefix:
// csf* selects the CSF pack, csa* the CSA pack, anything else defaults
// to CSF.
func (e *Engine) PackFor(decisionType string) *Pack {
	dt := strings.ToLower(decisionType)
	switch {
	case strings.HasPrefix(dt, "csa"):
		if p, ok := e.packs["csa"]; ok {
			return p
		}
	case strings.HasPrefix(dt, "csf"):
		if p, ok := e.packs["csf"]; ok {
			return p
		}
	}
	return e.packs["csf"]
}

// PackVersion returns "family@version" for the decision type's pack.
// It feeds the intelligence input hash.
func (e *Engine) PackVersion(decisionType string) string {
	p := e.PackFor(decisionType)
	return p.Family + "@" + p.Version
}

// Newer reports whether pack a is a newer release than pack b, comparing
// semantic versions within the same family.
func (e *Engine) Newer(a, b *Pack) bool {
	return a.semver.GreaterThan(b.semver)
}

// Evaluate runs the decision type's pack against the submission's form
// data and returns the ordered rule results.
func (e *Engine) Evaluate(decisionType string, sub *contracts.Submission) []RuleResult {
	pack := e.PackFor(decisionType)
	var formData map[string]any
	if sub != nil {
		formData = sub.FormData
	}

	results := make([]RuleResult, 0, len(pack.Rules))
	for _, r := range pack.Rules {
		passed, fieldPath := r.evaluate(formData)
		res := RuleResult{
			RuleID:    r.ID,
			Passed:    passed,
			Severity:  r.Severity,
			FieldPath: fieldPath,
		}
		if !passed {
			res.Reason = r.Reason
		}
		results = append(results, res)
	}
	return results
}

func (r Rule) evaluate(formData map[string]any) (bool, string) {
	for _, alias := range r.Aliases {
		value, ok := resolvePath(formData, alias)
		if !ok {
			continue
		}
		text := strings.TrimSpace(stringify(value))
		if text == "" {
			continue
		}
		if checkValue(r.Check, text) {
			return true, alias
		}
	}
	// Report the primary alias as the failing field path.
	return false, r.Aliases[0]
}

// resolvePath navigates form data by dot-path. Missing segments are
// treated as absent, not error.
func resolvePath(data map[string]any, path string) (any, bool) {
	var current any = data
	for _, segment := range strings.Split(path, ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[segment]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

var (
	zipRe   = regexp.MustCompile(`^\d{5}(?:-\d{4})?$`)
	emailRe = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
)

func checkValue(check, text string) bool {
	switch check {
	case "present":
		return true
	case "state":
		return stateCodes[strings.ToUpper(text)]
	case "zip":
		return zipRe.MatchString(text)
	case "email":
		return emailRe.MatchString(text)
	default:
		return false
	}
}

// stateCodes is the fixed 51-code set (50 states + DC).
var stateCodes = map[string]bool{
	"AL": true, "AK": true, "AZ": true, "AR": true, "CA": true,
	"CO": true, "CT": true, "DE": true, "DC": true, "FL": true,
	"GA": true, "HI": true, "ID": true, "IL": true, "IN": true,
	"IA": true, "KS": true, "KY": true, "LA": true, "ME": true,
	"MD": true, "MA": true, "MI": true, "MN": true, "MS": true,
	"MO": true, "MT": true, "NE": true, "NV": true, "NH": true,
	"NJ": true, "NM": true, "NY": true, "NC": true, "ND": true,
	"OH": true, "OK": true, "OR": true, "PA": true, "RI": true,
	"SC": true, "SD": true, "TN": true, "TX": true, "UT": true,
	"VT": true, "VA": true, "WA": true, "WV": true, "WI": true,
	"WY": true,
}
