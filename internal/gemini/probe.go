package gemini

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Skufu/skintriage/internal/triage"
)

// DefaultCandidates is probed in order when no model list is configured.
var DefaultCandidates = []string{
	"gemini-1.5-flash",
	"gemini-1.5-pro",
	"gemini-pro",
	"gemini-pro-vision",
}

const (
	probePrompt  = "Say 'OK' if you can hear me"
	statusPrompt = "Say 'Connected' in one word"

	defaultProbeTimeout = 15 * time.Second
)

// SupportsImages reports whether the model family accepts inline images.
func SupportsImages(modelID string) bool {
	id := strings.ToLower(modelID)
	return strings.Contains(id, "vision") || strings.Contains(id, "flash") || strings.Contains(id, "pro")
}

// Probe calls each candidate once, in order, and returns the ones that
// answered. It is meant to run once at startup; the result is not refreshed.
func Probe(ctx context.Context, gen triage.TextGenerator, candidates []string, perModel time.Duration, logger zerolog.Logger) []triage.Model {
	models := []triage.Model{}
	if gen == nil {
		return models
	}
	if len(candidates) == 0 {
		candidates = DefaultCandidates
	}
	if perModel <= 0 {
		perModel = defaultProbeTimeout
	}

	for _, id := range candidates {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}

		callCtx, cancel := context.WithTimeout(ctx, perModel)
		_, err := gen.GenerateText(callCtx, id, probePrompt, nil)
		cancel()
		if err != nil {
			logger.Warn().Err(err).Str("model", id).Msg("model probe failed")
			continue
		}

		logger.Info().Str("model", id).Msg("model available")
		models = append(models, triage.Model{ID: id, SupportsImages: SupportsImages(id)})
	}

	if len(models) == 0 {
		logger.Warn().Msg("no models available, diagnoses will use mock mode")
	}
	return models
}

// Status is the live connectivity report served by the ai-status endpoint.
type Status struct {
	State           string   `json:"status"`
	Message         string   `json:"message"`
	TestResponse    string   `json:"testResponse,omitempty"`
	Error           string   `json:"error,omitempty"`
	Suggestion      string   `json:"suggestion,omitempty"`
	AvailableModels []string `json:"availableModels,omitempty"`
	CurrentModel    string   `json:"currentModel,omitempty"`
}

// CheckStatus sends a one-word prompt to the first available model.
func CheckStatus(ctx context.Context, gen triage.TextGenerator, selector *triage.StaticSelector) Status {
	if gen == nil {
		return Status{
			State:      "disabled",
			Message:    "Gemini AI is not configured - check your API key",
			Suggestion: "Make sure GEMINI_API_KEY is set in .env file",
		}
	}

	model, err := selector.SelectModel()
	if err != nil {
		return Status{
			State:      "no_models",
			Message:    "API key is valid but no models are available",
			Suggestion: "Check your Google Cloud project permissions and billing",
		}
	}

	ids := selector.IDs()
	text, err := gen.GenerateText(ctx, model.ID, statusPrompt, nil)
	if err != nil {
		return Status{
			State:           "error",
			Message:         "Gemini AI connection failed",
			Error:           err.Error(),
			AvailableModels: ids,
			Suggestion:      "Try using a different model or check API permissions",
		}
	}

	return Status{
		State:           "connected",
		Message:         "Gemini AI is working properly",
		TestResponse:    strings.TrimSpace(text),
		AvailableModels: ids,
		CurrentModel:    model.ID,
	}
}
