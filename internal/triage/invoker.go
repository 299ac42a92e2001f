package triage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	// ErrModelUnavailable means the startup probe found no working model.
	ErrModelUnavailable = errors.New("no AI models available")
	// ErrModelInvocationFailed wraps any failed or unusable model call.
	ErrModelInvocationFailed = errors.New("AI analysis failed")
)

// Model is a model identifier confirmed reachable at startup.
type Model struct {
	ID             string `json:"id"`
	SupportsImages bool   `json:"supportsImages"`
}

type ModelSelector interface {
	SelectModel() (Model, error)
}

// StaticSelector picks the first model of a list fixed at construction.
type StaticSelector struct {
	models []Model
}

func NewStaticSelector(models []Model) *StaticSelector {
	return &StaticSelector{models: append([]Model(nil), models...)}
}

func (s *StaticSelector) SelectModel() (Model, error) {
	if s == nil || len(s.models) == 0 {
		return Model{}, ErrModelUnavailable
	}
	return s.models[0], nil
}

// Models returns a copy of the available models in probe order.
func (s *StaticSelector) Models() []Model {
	if s == nil {
		return nil
	}
	return append([]Model(nil), s.models...)
}

// IDs returns the available model identifiers in probe order.
func (s *StaticSelector) IDs() []string {
	ids := []string{}
	for _, m := range s.Models() {
		ids = append(ids, m.ID)
	}
	return ids
}

// TextGenerator sends one prompt, optionally with an inline image, to the
// named model and returns its text reply.
type TextGenerator interface {
	GenerateText(ctx context.Context, modelID, prompt string, img *Image) (string, error)
}

// Invocation is the raw outcome of a single model call.
type Invocation struct {
	Model string
	Text  string
}

type Invoker interface {
	Invoke(ctx context.Context, img Image, s SymptomSet) (Invocation, error)
}

// ModelInvoker calls exactly one model per Invoke. It never retries and never
// picks a different model after a failure.
type ModelInvoker struct {
	gen      TextGenerator
	selector ModelSelector
	timeout  time.Duration
}

// NewModelInvoker wires a generator to a selector. A zero timeout leaves the
// caller's context deadline untouched.
func NewModelInvoker(gen TextGenerator, selector ModelSelector, timeout time.Duration) *ModelInvoker {
	return &ModelInvoker{gen: gen, selector: selector, timeout: timeout}
}

func (m *ModelInvoker) Invoke(ctx context.Context, img Image, s SymptomSet) (Invocation, error) {
	if m == nil || m.gen == nil || m.selector == nil {
		return Invocation{}, ErrModelUnavailable
	}
	model, err := m.selector.SelectModel()
	if err != nil {
		return Invocation{}, err
	}

	prompt := BuildTextPrompt(s)
	var attach *Image
	if model.SupportsImages {
		prompt = BuildPrompt(s)
		if !img.Empty() {
			attach = &img
		}
	}

	text, err := m.generate(ctx, model.ID, prompt, attach)
	if err != nil {
		return Invocation{Model: model.ID}, err
	}
	return Invocation{Model: model.ID, Text: text}, nil
}

// Ask sends a text-only prompt to the selected model. It shares Invoke's
// timeout and error wrapping.
func (m *ModelInvoker) Ask(ctx context.Context, prompt string) (Invocation, error) {
	if m == nil || m.gen == nil || m.selector == nil {
		return Invocation{}, ErrModelUnavailable
	}
	model, err := m.selector.SelectModel()
	if err != nil {
		return Invocation{}, err
	}
	text, err := m.generate(ctx, model.ID, prompt, nil)
	if err != nil {
		return Invocation{Model: model.ID}, err
	}
	return Invocation{Model: model.ID, Text: text}, nil
}

func (m *ModelInvoker) generate(ctx context.Context, modelID, prompt string, img *Image) (string, error) {
	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	text, err := m.gen.GenerateText(ctx, modelID, prompt, img)
	if err != nil {
		return "", fmt.Errorf("%w: model %s: %v", ErrModelInvocationFailed, modelID, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("%w: model %s returned an empty response", ErrModelInvocationFailed, modelID)
	}
	return text, nil
}
