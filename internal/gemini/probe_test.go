package gemini

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"

	"github.com/Skufu/skintriage/internal/triage"
)

type fakeGen struct {
	failing map[string]error
	reply   string
	called  []string
}

func (f *fakeGen) GenerateText(_ context.Context, modelID, _ string, _ *triage.Image) (string, error) {
	f.called = append(f.called, modelID)
	if err := f.failing[modelID]; err != nil {
		return "", err
	}
	return f.reply, nil
}

func TestAvailableModels_KeepsWorkingModelsInOrder(t *testing.T) {
	gen := &fakeGen{
		reply: "OK",
		failing: map[string]error{
			"gemini-1.5-pro": errors.New("404 model not found"),
		},
	}

	got := Probe(context.Background(), gen, []string{"gemini-1.5-flash", "gemini-1.5-pro", " ", "text-bison"}, time.Second, zerolog.Nop())
	want := []triage.Model{
		{ID: "gemini-1.5-flash", SupportsImages: true},
		{ID: "text-bison", SupportsImages: false},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Probe() = %+v, want %+v", got, want)
	}
	if !reflect.DeepEqual(gen.called, []string{"gemini-1.5-flash", "gemini-1.5-pro", "text-bison"}) {
		t.Fatalf("each candidate should be called exactly once in order, got %v", gen.called)
	}
}

func TestAvailableModels_NoGenerator(t *testing.T) {
	if got := Probe(context.Background(), nil, DefaultCandidates, time.Second, zerolog.Nop()); len(got) != 0 {
		t.Fatalf("expected no models, got %+v", got)
	}
}

func TestAvailableModels_EmptyListUsesDefaults(t *testing.T) {
	gen := &fakeGen{reply: "OK"}
	got := Probe(context.Background(), gen, nil, 0, zerolog.Nop())
	if len(got) != len(DefaultCandidates) || !reflect.DeepEqual(gen.called, DefaultCandidates) {
		t.Fatalf("expected default candidates to be tried, got %v", gen.called)
	}
}

func TestSupportsImages(t *testing.T) {
	for id, want := range map[string]bool{
		"gemini-1.5-flash":  true,
		"gemini-1.5-pro":    true,
		"gemini-pro-vision": true,
		"text-bison":        false,
	} {
		if got := SupportsImages(id); got != want {
			t.Errorf("SupportsImages(%q) = %v, want %v", id, got, want)
		}
	}
}

func TestCheckStatus(t *testing.T) {
	if s := CheckStatus(context.Background(), nil, nil); s.State != "disabled" {
		t.Fatalf("expected disabled, got %+v", s)
	}

	gen := &fakeGen{reply: " Connected\n"}
	if s := CheckStatus(context.Background(), gen, triage.NewStaticSelector(nil)); s.State != "no_models" {
		t.Fatalf("expected no_models, got %+v", s)
	}

	sel := triage.NewStaticSelector([]triage.Model{{ID: "gemini-1.5-flash", SupportsImages: true}})
	s := CheckStatus(context.Background(), gen, sel)
	if s.State != "connected" || s.TestResponse != "Connected" || s.CurrentModel != "gemini-1.5-flash" {
		t.Fatalf("unexpected status %+v", s)
	}

	gen.failing = map[string]error{"gemini-1.5-flash": errors.New("permission denied")}
	s = CheckStatus(context.Background(), gen, sel)
	if s.State != "error" || s.Error != "permission denied" {
		t.Fatalf("unexpected status %+v", s)
	}
}

func TestResponseText(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []genai.Part{genai.Text(`{"severity":`), genai.Text(`"low"}`)}}},
			{Content: nil},
		},
	}
	if got := responseText(resp); got != `{"severity":"low"}` {
		t.Fatalf("responseText() = %q", got)
	}
	if got := responseText(nil); got != "" {
		t.Fatalf("responseText(nil) = %q", got)
	}
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(context.Background(), "  "); !errors.Is(err, ErrNoAPIKey) {
		t.Fatalf("expected ErrNoAPIKey, got %v", err)
	}
}
