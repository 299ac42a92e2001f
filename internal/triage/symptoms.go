package triage

import (
	"encoding/json"
	"strconv"
	"strings"
)

// NotSpecified stands in for any symptom the patient left blank.
const NotSpecified = "Not specified"

// BleedingTrigger is the bleeding answer that raises an emergency indicator.
const BleedingTrigger = "frequent bleeding"

type SymptomSet struct {
	Itchiness       string `json:"itchiness"`
	PainLevel       string `json:"painLevel"`
	Duration        string `json:"duration"`
	SizeChange      string `json:"sizeChange"`
	Bleeding        string `json:"bleeding"`
	AdditionalNotes string `json:"additionalNotes"`
}

// Pain returns the numeric pain level. ok is false when the patient did not
// answer or the answer is not a number.
func (s SymptomSet) Pain() (level float64, ok bool) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s.PainLevel), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func (s SymptomSet) frequentBleeding() bool {
	return s.Bleeding == BleedingTrigger
}

// severity only ever yields low or medium; high and critical are reachable
// through model output alone.
func (s SymptomSet) severity() Severity {
	if pain, ok := s.Pain(); ok && pain > 7 {
		return SeverityMedium
	}
	return SeverityLow
}

// NormalizeSymptoms maps a loosely-typed questionnaire payload onto a
// SymptomSet. Unknown keys are ignored and values that cannot be rendered as
// text are dropped; every field ends up populated.
func NormalizeSymptoms(raw map[string]any) SymptomSet {
	return SymptomSet{
		Itchiness:       field(raw, "itchiness"),
		PainLevel:       field(raw, "painLevel"),
		Duration:        field(raw, "duration"),
		SizeChange:      field(raw, "sizeChange"),
		Bleeding:        field(raw, "bleeding"),
		AdditionalNotes: field(raw, "additionalNotes"),
	}
}

// NormalizeSymptomsJSON decodes a JSON object and normalizes it. Anything
// that is not a JSON object normalizes to the all-blank set.
func NormalizeSymptomsJSON(data []byte) SymptomSet {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return NormalizeSymptoms(nil)
	}
	return NormalizeSymptoms(raw)
}

func field(raw map[string]any, key string) string {
	if s := stringify(raw[key]); s != "" {
		return s
	}
	return NotSpecified
}

func stringify(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return ""
	}
}
