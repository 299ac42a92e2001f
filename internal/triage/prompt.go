package triage

import (
	"encoding/json"
	"fmt"
)

const diagnosisPromptTemplate = `
Analyze this skin image for dermatological conditions and provide a preliminary diagnosis.

Patient Symptoms:
- Itchiness: %s
- Pain Level: %s
- Duration: %s
- Size Change: %s
- Bleeding: %s
- Additional Notes: %s

Provide analysis in this exact JSON format:
{
  "conditions": [
    {
      "name": "condition name",
      "probability": "high/medium/low",
      "description": "brief description"
    }
  ],
  "confidence": "percentage estimate",
  "recommendations": ["recommendation 1", "recommendation 2"],
  "emergencyIndicators": ["indicator if any"],
  "severity": "low/medium/high/critical",
  "nextSteps": ["step 1", "step 2"]
}

Be medically accurate but cautious. Always recommend professional consultation.
If image quality is poor, mention that clearly.
`

const textPromptTemplate = `
Based on these symptoms: %s
Provide a general skin condition analysis in JSON format.
Focus on common dermatological conditions.
`

const questionsPromptTemplate = `
Based on these initial skin condition responses: %s
Generate 3-5 follow-up questions to better diagnose the skin condition.
Return ONLY JSON format:
{
  "questions": [
    "question 1",
    "question 2",
    "question 3"
  ]
}
`

// BuildPrompt renders the image-analysis prompt for s.
func BuildPrompt(s SymptomSet) string {
	return fmt.Sprintf(diagnosisPromptTemplate,
		s.Itchiness, s.PainLevel, s.Duration, s.SizeChange, s.Bleeding, s.AdditionalNotes)
}

// BuildTextPrompt renders the prompt sent to models that cannot read images.
func BuildTextPrompt(s SymptomSet) string {
	return fmt.Sprintf(textPromptTemplate, symptomJSON(s))
}

func buildQuestionsPrompt(s SymptomSet) string {
	return fmt.Sprintf(questionsPromptTemplate, symptomJSON(s))
}

func symptomJSON(s SymptomSet) string {
	b, err := json.Marshal(s)
	if err != nil {
		return "{}"
	}
	return string(b)
}
