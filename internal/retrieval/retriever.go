// Package retrieval finds prior scenarios similar to a generation request so
// the generator can be prompted with concrete examples. Retrieval is an
// enrichment, not a precondition: a failing source degrades the pipeline to
// no-context generation instead of aborting it.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"math"
	"sort"

	"github.com/signalsfoundry/gridgen/library"
	"github.com/signalsfoundry/gridgen/model"
)

// ErrUnavailable indicates the underlying retrieval source could not be
// reached. Callers must treat it as non-fatal.
var ErrUnavailable = errors.New("retrieval source unavailable")

// Source enumerates candidate scenarios for similarity ranking.
type Source interface {
	Scenarios(ctx context.Context) ([]*model.Scenario, error)
}

// StoreSource adapts a library.Store into a retrieval Source.
type StoreSource struct {
	Store library.Store
}

func (s StoreSource) Scenarios(ctx context.Context) ([]*model.Scenario, error) {
	out, err := s.Store.ListScenarios(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return out, nil
}

// Retriever ranks a source's scenarios by similarity to generation
// parameters.
type Retriever struct {
	source Source
}

// New constructs a Retriever over the given source.
func New(source Source) *Retriever {
	return &Retriever{source: source}
}

// Retrieve returns a finite, restartable sequence of prior scenarios ordered
// by descending similarity, containing only scenarios whose score clears
// threshold. The sequence is empty when the request does not ask for context
// or nothing clears the threshold.
//
// A source fault is reported as ErrUnavailable; the sequence returned
// alongside it is empty so callers can degrade without a nil check.
func (r *Retriever) Retrieve(ctx context.Context, params model.GenerationParameters, threshold float64) (iter.Seq[*model.Scenario], error) {
	if !params.IncludeContext {
		return emptySeq, nil
	}

	candidates, err := r.source.Scenarios(ctx)
	if err != nil {
		return emptySeq, err
	}

	type scored struct {
		scenario *model.Scenario
		score    float64
	}
	ranked := make([]scored, 0, len(candidates))
	for _, c := range candidates {
		if c == nil {
			continue
		}
		score := Similarity(params, c)
		if score >= threshold {
			ranked = append(ranked, scored{scenario: c, score: score})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].score > ranked[j].score })

	return func(yield func(*model.Scenario) bool) {
		for _, s := range ranked {
			if !yield(s.scenario) {
				return
			}
		}
	}, nil
}

func emptySeq(func(*model.Scenario) bool) {}

// Similarity scores a stored scenario against generation parameters in
// [0, 1]. Structural closeness (bus, generator, and load counts) carries most
// of the weight; matching profile qualifiers recorded in the scenario's
// metadata contribute the rest.
func Similarity(params model.GenerationParameters, s *model.Scenario) float64 {
	producers, consumers := s.CountDevices()

	structural := (countCloseness(len(s.Network.Bus), params.NumBuses) +
		countCloseness(producers, params.NumGenerators) +
		countCloseness(consumers, params.NumLoads)) / 3

	qualifiers := 0.0
	if s.Metadata["voltage_profile"] == string(params.VoltageProfile) {
		qualifiers += 1.0 / 3
	}
	if s.Metadata["reliability_level"] == string(params.ReliabilityLevel) {
		qualifiers += 1.0 / 3
	}
	if s.Metadata["congestion_level"] == string(params.CongestionLevel) {
		qualifiers += 1.0 / 3
	}

	return 0.7*structural + 0.3*qualifiers
}

// countCloseness maps the relative difference of two counts onto [0, 1],
// with 1 meaning identical.
func countCloseness(got, want int) float64 {
	if got == want {
		return 1
	}
	max := math.Max(float64(got), float64(want))
	if max == 0 {
		return 1
	}
	d := 1 - math.Abs(float64(got-want))/max
	if d < 0 {
		return 0
	}
	return d
}
