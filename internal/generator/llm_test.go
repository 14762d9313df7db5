package generator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/signalsfoundry/gridgen/internal/llm"
	"github.com/signalsfoundry/gridgen/model"
)

type stubProvider struct {
	content string
	err     error
	lastReq *llm.Request
}

func (p *stubProvider) Complete(_ context.Context, req *llm.Request) (*llm.Response, error) {
	p.lastReq = req
	if p.err != nil {
		return nil, p.err
	}
	return &llm.Response{Content: p.content, Model: "stub-model"}, nil
}

const completionDoc = `{
  "scenario_id": "llm-1",
  "name": "Generated",
  "network": {
    "bus": [{"uid": "Bus1", "vm": 1.0}, {"uid": "Bus2", "vm": 1.0}],
    "ac_line": [{"uid": "Line1-2", "fr_bus": "Bus1", "to_bus": "Bus2", "r": 0.01, "x": 0.1, "mva_ub_nom": 300}],
    "simple_dispatchable_device": [
      {"uid": "Gen1", "bus": "Bus1", "device_type": "producer", "pg": 100},
      {"uid": "Load1", "bus": "Bus2", "device_type": "consumer", "pd": 80}
    ]
  }
}`

func TestLLMGenerator_Generate(t *testing.T) {
	provider := &stubProvider{content: completionDoc}
	gen := NewLLMGenerator(provider)

	params := model.GenerationParameters{
		NumBuses: 2, NumGenerators: 1, NumLoads: 1,
		VoltageProfile:   model.VoltageProfileFlat,
		ReliabilityLevel: model.LevelHigh,
		CongestionLevel:  model.LevelLow,
	}
	s, err := gen.Generate(context.Background(), params, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if s.Key() != "llm-1" {
		t.Errorf("Key() = %q, want llm-1", s.Key())
	}
	if s.Metadata["generator"] != "stub-model" {
		t.Errorf("generator metadata = %q, want stub-model", s.Metadata["generator"])
	}
	if s.Metadata["voltage_profile"] != "flat" {
		t.Errorf("voltage_profile metadata = %q, want flat", s.Metadata["voltage_profile"])
	}

	if provider.lastReq.SystemPrompt == "" {
		t.Error("Complete called without a system prompt")
	}
	if !strings.Contains(provider.lastReq.UserPrompt, "Number of buses: 2") {
		t.Errorf("user prompt missing bus count:\n%s", provider.lastReq.UserPrompt)
	}
}

func TestLLMGenerator_StripsMarkdownFences(t *testing.T) {
	provider := &stubProvider{content: "Here is the scenario:\n```json\n" + completionDoc + "\n```\n"}
	s, err := NewLLMGenerator(provider).Generate(context.Background(), model.GenerationParameters{NumBuses: 2}, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if s.Key() != "llm-1" {
		t.Errorf("Key() = %q, want llm-1", s.Key())
	}
}

func TestLLMGenerator_AssignsIDWhenMissing(t *testing.T) {
	doc := `{"name": "anonymous", "network": {"bus": [], "ac_line": [], "simple_dispatchable_device": []}}`
	s, err := NewLLMGenerator(&stubProvider{content: doc}).Generate(context.Background(), model.GenerationParameters{NumBuses: 1}, nil)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.HasPrefix(s.Key(), "scenario-") {
		t.Errorf("Key() = %q, want generated scenario- prefix", s.Key())
	}
}

func TestLLMGenerator_WrapsFaults(t *testing.T) {
	cases := []struct {
		name     string
		provider *stubProvider
	}{
		{"provider error", &stubProvider{err: errors.New("rate limited")}},
		{"no JSON in completion", &stubProvider{content: "I cannot generate that."}},
		{"malformed document", &stubProvider{content: `{"network": {"bus": [{"vm": 1.0}]}}`}},
	}
	for _, tc := range cases {
		_, err := NewLLMGenerator(tc.provider).Generate(context.Background(), model.GenerationParameters{NumBuses: 2}, nil)
		if !errors.Is(err, ErrGeneration) {
			t.Errorf("%s: err = %v, want ErrGeneration", tc.name, err)
		}
	}
}

func TestBuildPrompt_IncludesContextExamples(t *testing.T) {
	ctxScenario := &model.Scenario{ScenarioID: "prior-1", Name: "Prior"}
	prompt, err := BuildPrompt(model.GenerationParameters{NumBuses: 3, PeakLoad: 150}, []*model.Scenario{ctxScenario})
	if err != nil {
		t.Fatalf("BuildPrompt: %v", err)
	}
	if !strings.Contains(prompt, "Peak load: 150.0 MW") {
		t.Errorf("prompt missing peak load:\n%s", prompt)
	}
	if !strings.Contains(prompt, "prior-1") {
		t.Errorf("prompt missing context scenario:\n%s", prompt)
	}
	if !strings.Contains(prompt, "Example 1:") {
		t.Errorf("prompt missing example marker:\n%s", prompt)
	}
}

func TestExtractJSON(t *testing.T) {
	got, err := extractJSON("prefix {\"a\": {\"b\": 1}} suffix")
	if err != nil {
		t.Fatalf("extractJSON: %v", err)
	}
	if got != `{"a": {"b": 1}}` {
		t.Errorf("extractJSON = %q", got)
	}

	if _, err := extractJSON("no braces here"); err == nil {
		t.Fatal("extractJSON: no error for prose-only content")
	}
}
