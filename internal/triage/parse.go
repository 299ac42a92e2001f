package triage

import (
	"encoding/json"
	"strings"
)

const (
	syntheticConditionName = "AI Analysis Completed"
	syntheticExcerptRunes  = 200
	defaultConfidence      = "85%"
)

// ExtractJSON returns the text between the first '{' and the last '}'
// inclusive. Braces in surrounding prose are not balanced against each
// other, so a reply with unrelated braces yields a block that fails to decode.
func ExtractJSON(text string) (string, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return "", false
	}
	return text[start : end+1], true
}

// ParseResponse converts free-form model output into a Result. Any JSON
// object found in the text is trusted without checking its fields: values of
// an unexpected type are converted to text rather than rejected. Text with no
// decodable object becomes SyntheticResult.
func ParseResponse(text string, s SymptomSet) Result {
	if block, ok := ExtractJSON(text); ok && json.Valid([]byte(block)) {
		dec := json.NewDecoder(strings.NewReader(block))
		dec.UseNumber()
		var obj map[string]any
		if err := dec.Decode(&obj); err == nil && obj != nil {
			return resultFromObject(obj)
		}
	}
	return SyntheticResult(text, s)
}

func resultFromObject(obj map[string]any) Result {
	return Result{
		Conditions:          conditionList(obj["conditions"]),
		Confidence:          asText(obj["confidence"]),
		Recommendations:     asTextList(obj["recommendations"]),
		EmergencyIndicators: asTextList(obj["emergencyIndicators"]),
		Severity:            Severity(asText(obj["severity"])),
		NextSteps:           asTextList(obj["nextSteps"]),
	}
}

// asText keeps strings verbatim and renders numbers and booleans.
func asText(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return stringify(v)
}

// asTextList accepts a list or a single value. A missing field stays nil.
func asTextList(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			out = append(out, asText(item))
		}
		return out
	default:
		if s := asText(t); s != "" {
			return []string{s}
		}
		return []string{}
	}
}

func conditionList(v any) []Condition {
	var items []any
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		items = t
	default:
		items = []any{t}
	}

	out := make([]Condition, 0, len(items))
	for _, item := range items {
		switch c := item.(type) {
		case map[string]any:
			out = append(out, Condition{
				Name:        asText(c["name"]),
				Probability: Probability(asText(c["probability"])),
				Description: asText(c["description"]),
			})
		default:
			if name := asText(c); name != "" {
				out = append(out, Condition{Name: name})
			}
		}
	}
	return out
}

// SyntheticResult builds the fixed-shape result used when the model answered
// with text that holds no usable JSON.
func SyntheticResult(text string, s SymptomSet) Result {
	emergency := []string{}
	if s.frequentBleeding() {
		emergency = append(emergency, "Frequent bleeding should be evaluated immediately")
	}
	return Result{
		Conditions: []Condition{{
			Name:        syntheticConditionName,
			Probability: ProbabilityHigh,
			Description: excerpt(text, syntheticExcerptRunes) + "...",
		}},
		Confidence: defaultConfidence,
		Recommendations: []string{
			"Consult a dermatologist for accurate diagnosis",
			"Monitor for any changes in size or color",
			"Use sunscreen with SPF 30+ daily",
		},
		EmergencyIndicators: emergency,
		Severity:            s.severity(),
		NextSteps: []string{
			"Schedule appointment with dermatologist",
			"Take clear photos for documentation",
			"Note any changes over time",
		},
	}
}

func excerpt(text string, n int) string {
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}
