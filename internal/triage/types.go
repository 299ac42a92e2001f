// Package triage turns an uploaded skin photo and a symptom questionnaire
// into a diagnosis result. It calls a generative model when one is available,
// normalizes whatever text the model returns into a fixed result shape, and
// falls back to a deterministic mock diagnosis when the model cannot be used.
package triage

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Valid reports whether s is one of the four declared severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityLow, SeverityMedium, SeverityHigh, SeverityCritical:
		return true
	}
	return false
}

type Probability string

const (
	ProbabilityHigh   Probability = "high"
	ProbabilityMedium Probability = "medium"
	ProbabilityLow    Probability = "low"
)

// Provenance records whether a result came from the external model or the
// deterministic generator.
type Provenance string

const (
	ProvenanceReal Provenance = "real"
	ProvenanceMock Provenance = "mock"
)

type Condition struct {
	Name        string      `json:"name"`
	Probability Probability `json:"probability"`
	Description string      `json:"description"`
}

// Result is the diagnosis shape shared by the model prompt, the parser and
// the mock generator.
type Result struct {
	Conditions          []Condition `json:"conditions"`
	Confidence          string      `json:"confidence"`
	Recommendations     []string    `json:"recommendations"`
	EmergencyIndicators []string    `json:"emergencyIndicators"`
	Severity            Severity    `json:"severity"`
	NextSteps           []string    `json:"nextSteps"`
}

// withEmptyLists replaces nil list fields with empty ones so the result
// always encodes lists as [] rather than null.
func (r Result) withEmptyLists() Result {
	if r.Conditions == nil {
		r.Conditions = []Condition{}
	}
	if r.Recommendations == nil {
		r.Recommendations = []string{}
	}
	if r.EmergencyIndicators == nil {
		r.EmergencyIndicators = []string{}
	}
	if r.NextSteps == nil {
		r.NextSteps = []string{}
	}
	return r
}

// Image is an uploaded photo held in memory for the duration of one request.
type Image struct {
	Data     []byte
	MIMEType string
}

func (img Image) Empty() bool {
	return len(img.Data) == 0
}
