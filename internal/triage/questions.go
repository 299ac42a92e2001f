package triage

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"
)

// Asker sends a text-only prompt to the current model.
type Asker interface {
	Ask(ctx context.Context, prompt string) (Invocation, error)
}

// QuestionGenerator asks the model for follow-up questions about a symptom
// set and falls back to a fixed list.
type QuestionGenerator struct {
	asker  Asker
	logger zerolog.Logger
}

func NewQuestionGenerator(asker Asker, logger zerolog.Logger) *QuestionGenerator {
	return &QuestionGenerator{asker: asker, logger: logger}
}

// DefaultQuestions returns the fallback follow-up questions.
func DefaultQuestions() []string {
	return []string{
		"How long have you noticed this skin condition?",
		"Has the appearance changed over time?",
		"Is there any family history of skin conditions?",
	}
}

func (g *QuestionGenerator) Questions(ctx context.Context, s SymptomSet) []string {
	if g == nil || g.asker == nil {
		return DefaultQuestions()
	}

	inv, err := g.asker.Ask(ctx, buildQuestionsPrompt(s))
	if err != nil {
		g.logger.Debug().Err(err).Msg("follow-up questions unavailable from model")
		return DefaultQuestions()
	}

	questions := parseQuestions(inv.Text)
	if len(questions) == 0 {
		return DefaultQuestions()
	}
	return questions
}

func parseQuestions(text string) []string {
	block, ok := ExtractJSON(text)
	if !ok {
		return nil
	}
	var payload struct {
		Questions []string `json:"questions"`
	}
	if err := json.Unmarshal([]byte(block), &payload); err != nil {
		return nil
	}

	out := make([]string, 0, len(payload.Questions))
	for _, q := range payload.Questions {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	return out
}
