package model

import (
	"errors"
	"fmt"
)

// ErrInvalidParameters indicates a generation request that cannot be coerced
// into a usable parameter set.
var ErrInvalidParameters = errors.New("invalid generation parameters")

// VoltageProfile qualifies the requested bus-voltage spread.
type VoltageProfile string

const (
	VoltageProfileFlat     VoltageProfile = "flat"
	VoltageProfileVaried   VoltageProfile = "varied"
	VoltageProfileStressed VoltageProfile = "stressed"
)

// ReliabilityLevel and CongestionLevel qualify the requested operating regime.
type (
	ReliabilityLevel string
	CongestionLevel  string
)

const (
	LevelHigh   = "high"
	LevelMedium = "medium"
	LevelLow    = "low"
)

// GenerationParameters is the validated configuration for one generation
// request. Every recognized option and its default lives here; coercion
// happens exactly once, when the orchestrator enters Initializing.
type GenerationParameters struct {
	NumBuses      int     `json:"num_buses"`
	NumGenerators int     `json:"num_generators"`
	NumLoads      int     `json:"num_loads"`
	PeakLoad      float64 `json:"peak_load"`

	VoltageProfile   VoltageProfile   `json:"voltage_profile"`
	ReliabilityLevel ReliabilityLevel `json:"reliability_level"`
	CongestionLevel  CongestionLevel  `json:"congestion_level"`

	IncludeContext      bool    `json:"include_context"`
	SimilarityThreshold float64 `json:"similarity_threshold"`
}

// Normalized returns a copy of p with defaults substituted and numeric fields
// coerced into range, or ErrInvalidParameters when no sane coercion exists.
//
// Rules:
//   - NumBuses must be >= 1; there is no default bus count.
//   - NumGenerators and NumLoads must be >= 0 (zero generators is a valid,
//     if doomed, request — the physics pass rejects it, not this layer).
//   - PeakLoad < 0 is rejected; 0 defaults to 100 MW.
//   - Empty profile/level qualifiers default to flat/medium/medium; unknown
//     values are rejected rather than silently reinterpreted.
//   - SimilarityThreshold is clamped into [0, 1].
func (p GenerationParameters) Normalized() (GenerationParameters, error) {
	if p.NumBuses < 1 {
		return p, fmt.Errorf("%w: num_buses must be >= 1, got %d", ErrInvalidParameters, p.NumBuses)
	}
	if p.NumGenerators < 0 {
		return p, fmt.Errorf("%w: num_generators must be >= 0, got %d", ErrInvalidParameters, p.NumGenerators)
	}
	if p.NumLoads < 0 {
		return p, fmt.Errorf("%w: num_loads must be >= 0, got %d", ErrInvalidParameters, p.NumLoads)
	}
	if p.PeakLoad < 0 {
		return p, fmt.Errorf("%w: peak_load must be >= 0, got %g", ErrInvalidParameters, p.PeakLoad)
	}
	if p.PeakLoad == 0 {
		p.PeakLoad = 100
	}

	switch p.VoltageProfile {
	case "":
		p.VoltageProfile = VoltageProfileFlat
	case VoltageProfileFlat, VoltageProfileVaried, VoltageProfileStressed:
	default:
		return p, fmt.Errorf("%w: unknown voltage_profile %q", ErrInvalidParameters, p.VoltageProfile)
	}

	switch p.ReliabilityLevel {
	case "":
		p.ReliabilityLevel = LevelMedium
	case LevelHigh, LevelMedium, LevelLow:
	default:
		return p, fmt.Errorf("%w: unknown reliability_level %q", ErrInvalidParameters, p.ReliabilityLevel)
	}

	switch p.CongestionLevel {
	case "":
		p.CongestionLevel = LevelMedium
	case LevelHigh, LevelMedium, LevelLow:
	default:
		return p, fmt.Errorf("%w: unknown congestion_level %q", ErrInvalidParameters, p.CongestionLevel)
	}

	if p.SimilarityThreshold < 0 {
		p.SimilarityThreshold = 0
	}
	if p.SimilarityThreshold > 1 {
		p.SimilarityThreshold = 1
	}

	return p, nil
}
