// Package privacy implements PII scanning, role-gated redaction, and the
// retention pipeline applied to audit exports.
//
// Scanning is deterministic: object keys are sorted before descent, so
// findings order and the resulting redaction report are stable for a
// fixed input.
package privacy

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Rule names reported in findings and redaction sentinels.
const (
	RuleEmail          = "email"
	RulePhone          = "phone"
	RuleSSN            = "ssn"
	RuleDEA            = "dea"
	RuleLicense        = "license"
	RuleZIP            = "zip"
	RuleSensitiveField = "sensitive_field_name"
)

// PIIFinding reports one detected value or sensitive field.
type PIIFinding struct {
	Path         string `json:"path"`
	FieldName    string `json:"field_name"`
	Rule         string `json:"rule"`
	ValuePreview string `json:"value_preview"`
	Confidence   string `json:"confidence"`
}

type valueRule struct {
	name       string
	re         *regexp.Regexp
	confidence string
}

// valueRules are checked in fixed order against every string value.
var valueRules = []valueRule{
	{RuleEmail, regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`), "high"},
	{RuleSSN, regexp.MustCompile(`\d{3}-\d{2}-\d{4}`), "high"},
	{RuleDEA, regexp.MustCompile(`(?i)dea-\d{9,}`), "high"},
	{RuleLicense, regexp.MustCompile(`(?i)lic(?:ense)?-\d+`), "medium"},
	{RulePhone, regexp.MustCompile(`\d{3}[-.\s]\d{3,4}(?:[-.\s]\d{4})?|\d{7}|\d{10}`), "medium"},
	{RuleZIP, regexp.MustCompile(`^\d{5}(?:-\d{4})?$`), "low"},
}

// sensitiveFieldNames is the reserved key-name list. A key matching any
// entry (case-insensitive, separators ignored) is flagged regardless of
// its value.
var sensitiveFieldNames = map[string]bool{
	"patientname": true, "patient": true, "dob": true, "dateofbirth": true,
	"birthdate": true, "mrn": true, "medicalrecordnumber": true,
	"ssn": true, "socialsecurity": true, "socialsecuritynumber": true,
	"taxid": true, "ein": true, "npi": true, "deanumber": true,
	"licensenumber": true, "driverslicense": true, "passport": true,
	"passportnumber": true, "creditcard": true, "ccnumber": true,
	"cardnumber": true, "cvv": true, "bankaccount": true,
	"accountnumber": true, "routingnumber": true, "iban": true,
	"phone": true, "phonenumber": true, "mobile": true, "fax": true,
	"email": true, "emailaddress": true, "homeaddress": true,
	"streetaddress": true, "address": true, "zip": true, "zipcode": true,
	"postalcode": true, "diagnosis": true, "prescription": true,
	"medication": true,
}

func normalizeFieldName(name string) string {
	replacer := strings.NewReplacer("_", "", "-", "", " ", "")
	return replacer.Replace(strings.ToLower(name))
}

// SensitiveFieldName reports whether the key is on the reserved list.
func SensitiveFieldName(name string) bool {
	return sensitiveFieldNames[normalizeFieldName(name)]
}

// Scan traverses a JSON value and reports every PII finding. Paths are
// JSONPath-style ($.history[0].payload.patient.email).
func Scan(value any) []PIIFinding {
	var findings []PIIFinding
	scanValue(value, "$", "", &findings)
	return findings
}

func scanValue(value any, path, fieldName string, findings *[]PIIFinding) {
	switch t := value.(type) {
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			child := path + "." + k
			if SensitiveFieldName(k) {
				*findings = append(*findings, PIIFinding{
					Path:         child,
					FieldName:    k,
					Rule:         RuleSensitiveField,
					ValuePreview: preview(t[k]),
					Confidence:   "high",
				})
			}
			scanValue(t[k], child, k, findings)
		}
	case []any:
		for i, elem := range t {
			scanValue(elem, fmt.Sprintf("%s[%d]", path, i), fieldName, findings)
		}
	case string:
		for _, rule := range valueRules {
			if rule.re.MatchString(t) {
				*findings = append(*findings, PIIFinding{
					Path:         path,
					FieldName:    fieldName,
					Rule:         rule.name,
					ValuePreview: previewString(t),
					Confidence:   rule.confidence,
				})
			}
		}
	}
}

// preview masks a value for safe inclusion in findings.
func preview(v any) string {
	s, ok := v.(string)
	if !ok {
		return "***"
	}
	return previewString(s)
}

func previewString(s string) string {
	if len(s) <= 2 {
		return "***"
	}
	return s[:2] + "***"
}
