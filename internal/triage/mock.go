package triage

// MockDiagnosis produces the canned diagnosis used when no model is called.
// It depends only on s, and every call allocates fresh slices.
func MockDiagnosis(s SymptomSet) Result {
	emergency := []string{}
	if s.frequentBleeding() {
		emergency = append(emergency, "Frequent bleeding should be evaluated by a doctor")
	}

	return Result{
		Conditions: []Condition{
			{
				Name:        "Benign Mole",
				Probability: ProbabilityHigh,
				Description: "Appears to be a normal, benign skin growth. Common and usually harmless.",
			},
			{
				Name:        "Seborrheic Keratosis",
				Probability: ProbabilityMedium,
				Description: "Non-cancerous skin growth that appears waxy or scaly.",
			},
		},
		Confidence: defaultConfidence,
		Recommendations: []string{
			"Monitor for any changes in size, shape, or color",
			"Use sunscreen with SPF 30+ daily",
			"Schedule annual skin check with dermatologist",
			"Avoid excessive sun exposure",
		},
		EmergencyIndicators: emergency,
		Severity:            s.severity(),
		NextSteps: []string{
			"Consult dermatologist for confirmation",
			"Take monthly photos to monitor changes",
			"Protect area from irritation",
		},
	}
}
