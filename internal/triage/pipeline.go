package triage

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
)

type Options struct {
	// ForceMock skips the model entirely.
	ForceMock bool
	// RequireModel returns model failures to the caller instead of falling
	// back to the mock diagnosis.
	RequireModel bool
}

// Outcome is what Diagnose hands back to the request handler.
type Outcome struct {
	Result     Result
	Provenance Provenance
	// FailureDetail carries the model error when a real call failed and the
	// mock result was substituted.
	FailureDetail string
	// Model is the identifier that was called, empty when none was.
	Model string
}

// Pipeline orchestrates model invocation, response parsing and the mock
// fallback. It holds no mutable state and is safe for concurrent use.
type Pipeline struct {
	invoker Invoker
	logger  zerolog.Logger
}

// NewPipeline accepts a nil invoker, in which case every run is a mock run.
func NewPipeline(invoker Invoker, logger zerolog.Logger) *Pipeline {
	return &Pipeline{invoker: invoker, logger: logger}
}

// Diagnose always produces a result unless opts.RequireModel is set and the
// model could not be used.
func (p *Pipeline) Diagnose(ctx context.Context, img Image, s SymptomSet, opts Options) (Outcome, error) {
	if opts.ForceMock || p.invoker == nil {
		return p.mock(s, "", ""), nil
	}

	inv, err := p.invoker.Invoke(ctx, img, s)
	if err != nil {
		if opts.RequireModel {
			return Outcome{Model: inv.Model}, err
		}
		if errors.Is(err, ErrModelUnavailable) {
			return p.mock(s, "", ""), nil
		}
		p.logger.Warn().Err(err).Str("model", inv.Model).Msg("model call failed, using mock diagnosis")
		return p.mock(s, inv.Model, err.Error()), nil
	}

	out := Outcome{
		Result:     ParseResponse(inv.Text, s).withEmptyLists(),
		Provenance: ProvenanceReal,
		Model:      inv.Model,
	}
	if !out.Result.Severity.Valid() {
		p.logger.Warn().Str("model", out.Model).Str("severity", string(out.Result.Severity)).Msg("model returned an unknown severity")
	}
	p.logger.Info().
		Str("provenance", string(out.Provenance)).
		Str("model", out.Model).
		Str("severity", string(out.Result.Severity)).
		Msg("diagnosis completed")
	return out, nil
}

func (p *Pipeline) mock(s SymptomSet, model, failure string) Outcome {
	out := Outcome{
		Result:        MockDiagnosis(s),
		Provenance:    ProvenanceMock,
		FailureDetail: failure,
		Model:         model,
	}
	p.logger.Info().
		Str("provenance", string(out.Provenance)).
		Str("severity", string(out.Result.Severity)).
		Bool("fallback", failure != "").
		Msg("diagnosis completed")
	return out
}
