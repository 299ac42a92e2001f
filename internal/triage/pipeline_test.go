package triage

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// -- Fakes --

type fakeGenerator struct {
	text  string
	err   error
	calls int

	lastModel  string
	lastPrompt string
	lastImage  *Image
	deadline   bool
}

func (f *fakeGenerator) GenerateText(ctx context.Context, modelID, prompt string, img *Image) (string, error) {
	f.calls++
	f.lastModel = modelID
	f.lastPrompt = prompt
	f.lastImage = img
	_, f.deadline = ctx.Deadline()
	return f.text, f.err
}

type fakeInvoker struct {
	inv   Invocation
	err   error
	calls int
}

func (f *fakeInvoker) Invoke(context.Context, Image, SymptomSet) (Invocation, error) {
	f.calls++
	return f.inv, f.err
}

var testImage = Image{Data: []byte{0xff, 0xd8, 0xff}, MIMEType: "image/jpeg"}

// -- ModelInvoker --

func TestStaticSelector(t *testing.T) {
	if _, err := NewStaticSelector(nil).SelectModel(); !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
	var nilSel *StaticSelector
	if _, err := nilSel.SelectModel(); !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable from nil selector, got %v", err)
	}

	sel := NewStaticSelector([]Model{{ID: "gemini-1.5-flash", SupportsImages: true}, {ID: "text-only"}})
	m, err := sel.SelectModel()
	if err != nil || m.ID != "gemini-1.5-flash" {
		t.Fatalf("SelectModel() = %+v, %v", m, err)
	}
	if got := sel.IDs(); !reflect.DeepEqual(got, []string{"gemini-1.5-flash", "text-only"}) {
		t.Fatalf("IDs() = %v", got)
	}
}

func TestModelInvoker_ImageModelAttachesImage(t *testing.T) {
	gen := &fakeGenerator{text: `{"severity":"low"}`}
	inv := NewModelInvoker(gen, NewStaticSelector([]Model{{ID: "vision", SupportsImages: true}}), time.Second)

	got, err := inv.Invoke(context.Background(), testImage, NormalizeSymptoms(nil))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Model != "vision" || got.Text != gen.text {
		t.Fatalf("unexpected invocation %+v", got)
	}
	if gen.lastImage == nil || gen.lastImage.MIMEType != "image/jpeg" {
		t.Fatalf("expected inline image, got %+v", gen.lastImage)
	}
	if !strings.Contains(gen.lastPrompt, "Analyze this skin image") {
		t.Fatalf("expected image prompt, got %s", gen.lastPrompt)
	}
	if !gen.deadline {
		t.Fatal("expected the model call to carry a deadline")
	}
}

func TestModelInvoker_TextModelSendsSummaryOnly(t *testing.T) {
	gen := &fakeGenerator{text: "ok"}
	inv := NewModelInvoker(gen, NewStaticSelector([]Model{{ID: "text-only"}}), 0)

	if _, err := inv.Invoke(context.Background(), testImage, NormalizeSymptoms(map[string]any{"bleeding": "none"})); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gen.lastImage != nil {
		t.Fatal("text-only model must not receive the image")
	}
	if !strings.Contains(gen.lastPrompt, `"bleeding":"none"`) {
		t.Fatalf("expected JSON symptom summary, got %s", gen.lastPrompt)
	}
	if gen.deadline {
		t.Fatal("zero timeout should not add a deadline")
	}
}

func TestModelInvoker_Unavailable(t *testing.T) {
	gen := &fakeGenerator{}
	inv := NewModelInvoker(gen, NewStaticSelector(nil), time.Second)
	if _, err := inv.Invoke(context.Background(), testImage, NormalizeSymptoms(nil)); !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable, got %v", err)
	}
	if gen.calls != 0 {
		t.Fatalf("expected no model call, got %d", gen.calls)
	}

	var nilInv *ModelInvoker
	if _, err := nilInv.Ask(context.Background(), "hi"); !errors.Is(err, ErrModelUnavailable) {
		t.Fatalf("expected ErrModelUnavailable from nil invoker, got %v", err)
	}
}

func TestModelInvoker_FailureWrapsUnderlyingError(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("quota exceeded")}
	inv := NewModelInvoker(gen, NewStaticSelector([]Model{{ID: "gemini-pro", SupportsImages: true}}), time.Second)

	got, err := inv.Invoke(context.Background(), testImage, NormalizeSymptoms(nil))
	if !errors.Is(err, ErrModelInvocationFailed) {
		t.Fatalf("expected ErrModelInvocationFailed, got %v", err)
	}
	if !strings.Contains(err.Error(), "quota exceeded") || got.Model != "gemini-pro" {
		t.Fatalf("expected model and cause in error, got %v / %+v", err, got)
	}
	if gen.calls != 1 {
		t.Fatalf("expected exactly one attempt, got %d", gen.calls)
	}
}

func TestModelInvoker_EmptyReplyIsUnusable(t *testing.T) {
	gen := &fakeGenerator{text: "  \n"}
	inv := NewModelInvoker(gen, NewStaticSelector([]Model{{ID: "m", SupportsImages: true}}), time.Second)
	if _, err := inv.Invoke(context.Background(), testImage, NormalizeSymptoms(nil)); !errors.Is(err, ErrModelInvocationFailed) {
		t.Fatalf("expected ErrModelInvocationFailed, got %v", err)
	}
}

// -- Pipeline --

func TestPipeline_RealSuccessJSON(t *testing.T) {
	inv := &fakeInvoker{inv: Invocation{Model: "vision", Text: `Here: {"conditions":[{"name":"Eczema","probability":"medium","description":"dry skin"}],"severity":"high"}`}}
	p := NewPipeline(inv, zerolog.Nop())

	out, err := p.Diagnose(context.Background(), testImage, NormalizeSymptoms(nil), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Provenance != ProvenanceReal || out.Model != "vision" || out.FailureDetail != "" {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if out.Result.Severity != SeverityHigh || out.Result.Conditions[0].Name != "Eczema" {
		t.Fatalf("unexpected result %+v", out.Result)
	}
	if out.Result.Recommendations == nil || out.Result.EmergencyIndicators == nil || out.Result.NextSteps == nil {
		t.Fatalf("expected list fields to be non-nil at the pipeline boundary: %+v", out.Result)
	}
}

func TestPipeline_UnknownSeverityIsLoggedAndKept(t *testing.T) {
	var buf strings.Builder
	inv := &fakeInvoker{inv: Invocation{Model: "vision", Text: `{"severity":"severe"}`}}
	p := NewPipeline(inv, zerolog.New(&buf))

	out, err := p.Diagnose(context.Background(), testImage, NormalizeSymptoms(nil), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Result.Severity != "severe" {
		t.Fatalf("expected model severity to pass through, got %q", out.Result.Severity)
	}
	if !strings.Contains(buf.String(), "unknown severity") {
		t.Fatalf("expected a warning for the unknown severity, got %s", buf.String())
	}
}

func TestPipeline_RealSuccessSynthetic(t *testing.T) {
	inv := &fakeInvoker{inv: Invocation{Model: "vision", Text: "The lesion looks benign."}}
	out, err := NewPipeline(inv, zerolog.Nop()).Diagnose(context.Background(), testImage, NormalizeSymptoms(nil), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Provenance != ProvenanceReal || out.Result.Conditions[0].Name != "AI Analysis Completed" {
		t.Fatalf("expected synthetic result tagged real, got %+v", out)
	}
}

func TestPipeline_InvocationFailureFallsBackToMock(t *testing.T) {
	cause := errors.New("boom")
	inv := &fakeInvoker{inv: Invocation{Model: "vision"}, err: errors.Join(ErrModelInvocationFailed, cause)}
	s := NormalizeSymptoms(map[string]any{"painLevel": 9})

	out, err := NewPipeline(inv, zerolog.Nop()).Diagnose(context.Background(), testImage, s, Options{})
	if err != nil {
		t.Fatalf("fallback must not return an error, got %v", err)
	}
	if out.Provenance != ProvenanceMock {
		t.Fatalf("expected mock provenance, got %q", out.Provenance)
	}
	if out.FailureDetail == "" || !strings.Contains(out.FailureDetail, "boom") {
		t.Fatalf("expected failure detail, got %q", out.FailureDetail)
	}
	if !reflect.DeepEqual(out.Result, MockDiagnosis(s)) {
		t.Fatalf("expected mock result, got %+v", out.Result)
	}
}

func TestPipeline_UnavailableIsSilentMock(t *testing.T) {
	inv := &fakeInvoker{err: ErrModelUnavailable}
	out, err := NewPipeline(inv, zerolog.Nop()).Diagnose(context.Background(), testImage, NormalizeSymptoms(nil), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Provenance != ProvenanceMock || out.FailureDetail != "" {
		t.Fatalf("expected mock without failure detail, got %+v", out)
	}
}

func TestPipeline_ForceMockSkipsModel(t *testing.T) {
	inv := &fakeInvoker{inv: Invocation{Text: "{}"}}
	s := NormalizeSymptoms(map[string]any{"bleeding": "frequent bleeding", "painLevel": 9})

	out, err := NewPipeline(inv, zerolog.Nop()).Diagnose(context.Background(), testImage, s, Options{ForceMock: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if inv.calls != 0 {
		t.Fatalf("expected no model call, got %d", inv.calls)
	}
	if out.Provenance != ProvenanceMock || out.FailureDetail != "" {
		t.Fatalf("unexpected outcome %+v", out)
	}
	if out.Result.Severity != SeverityMedium {
		t.Fatalf("expected medium severity for pain 9, got %q", out.Result.Severity)
	}
	want := []string{"Frequent bleeding should be evaluated by a doctor"}
	if !reflect.DeepEqual(out.Result.EmergencyIndicators, want) {
		t.Fatalf("emergency indicators = %v, want %v", out.Result.EmergencyIndicators, want)
	}
}

func TestPipeline_NilInvokerIsMock(t *testing.T) {
	out, err := NewPipeline(nil, zerolog.Nop()).Diagnose(context.Background(), Image{}, NormalizeSymptoms(nil), Options{})
	if err != nil || out.Provenance != ProvenanceMock {
		t.Fatalf("expected mock outcome, got %+v, %v", out, err)
	}
}

func TestPipeline_RequireModelPropagates(t *testing.T) {
	for _, cause := range []error{ErrModelUnavailable, ErrModelInvocationFailed} {
		inv := &fakeInvoker{err: cause}
		_, err := NewPipeline(inv, zerolog.Nop()).Diagnose(context.Background(), testImage, NormalizeSymptoms(nil), Options{RequireModel: true})
		if !errors.Is(err, cause) {
			t.Fatalf("expected %v, got %v", cause, err)
		}
	}
}

func TestPipeline_EndToEndWithInvoker(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("503 service unavailable")}
	inv := NewModelInvoker(gen, NewStaticSelector([]Model{{ID: "gemini-1.5-flash", SupportsImages: true}}), time.Second)

	out, err := NewPipeline(inv, zerolog.Nop()).Diagnose(context.Background(), testImage, NormalizeSymptoms(nil), Options{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Provenance != ProvenanceMock || !strings.Contains(out.FailureDetail, "503") || out.Model != "gemini-1.5-flash" {
		t.Fatalf("unexpected outcome %+v", out)
	}
}
