package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/signalsfoundry/gridgen/core"
	"github.com/signalsfoundry/gridgen/internal/llm"
	"github.com/signalsfoundry/gridgen/model"
)

// LLMGenerator produces scenarios by prompting a completion provider and
// decoding the returned JSON document.
type LLMGenerator struct {
	provider    llm.Provider
	temperature float64
}

// NewLLMGenerator wraps a completion provider.
func NewLLMGenerator(provider llm.Provider) *LLMGenerator {
	return &LLMGenerator{
		provider:    provider,
		temperature: 0.7,
	}
}

// Generate prompts the provider and coerces its completion into a scenario.
// Any provider or decoding fault is wrapped in ErrGeneration; the model's
// output is untrusted input and runs through the same loader coercion as an
// uploaded document.
func (g *LLMGenerator) Generate(ctx context.Context, params model.GenerationParameters, contextScenarios []*model.Scenario) (*model.Scenario, error) {
	prompt, err := BuildPrompt(params, contextScenarios)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	resp, err := g.provider.Complete(ctx, &llm.Request{
		SystemPrompt: systemPrompt,
		UserPrompt:   prompt,
		Temperature:  g.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	doc, err := extractJSON(resp.Content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	scenario, err := core.LoadScenario(strings.NewReader(doc))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	if scenario.Key() == "" {
		scenario.ScenarioID = "scenario-" + uuid.New().String()
	}
	if scenario.Metadata == nil {
		scenario.Metadata = map[string]string{}
	}
	scenario.Metadata["generator"] = resp.Model
	scenario.Metadata["voltage_profile"] = string(params.VoltageProfile)
	scenario.Metadata["reliability_level"] = string(params.ReliabilityLevel)
	scenario.Metadata["congestion_level"] = string(params.CongestionLevel)

	return scenario, nil
}

var _ Generator = (*LLMGenerator)(nil)
