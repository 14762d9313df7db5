// Package generator produces candidate grid scenarios from generation
// parameters. The pipeline treats generators as black boxes behind the
// Generator interface; this package ships an LLM-backed implementation and a
// deterministic synthetic one.
package generator

import (
	"context"
	"errors"

	"github.com/signalsfoundry/gridgen/model"
)

// ErrGeneration indicates the generator failed to produce a scenario. It is
// fatal for the request: the orchestrator surfaces it and transitions to
// Failed rather than retrying.
var ErrGeneration = errors.New("scenario generation failed")

// Generator produces one candidate scenario from parameters, optionally
// enriched with retrieved prior scenarios. context may be empty; it is never
// nil by contract.
type Generator interface {
	Generate(ctx context.Context, params model.GenerationParameters, context []*model.Scenario) (*model.Scenario, error)
}
