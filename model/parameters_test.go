package model

import (
	"errors"
	"testing"
)

func TestNormalized_Defaults(t *testing.T) {
	p, err := GenerationParameters{NumBuses: 3}.Normalized()
	if err != nil {
		t.Fatalf("Normalized: %v", err)
	}
	if p.PeakLoad != 100 {
		t.Errorf("PeakLoad = %g, want 100", p.PeakLoad)
	}
	if p.VoltageProfile != VoltageProfileFlat {
		t.Errorf("VoltageProfile = %q, want flat", p.VoltageProfile)
	}
	if p.ReliabilityLevel != LevelMedium {
		t.Errorf("ReliabilityLevel = %q, want medium", p.ReliabilityLevel)
	}
	if p.CongestionLevel != LevelMedium {
		t.Errorf("CongestionLevel = %q, want medium", p.CongestionLevel)
	}
}

func TestNormalized_RequiresBuses(t *testing.T) {
	_, err := GenerationParameters{}.Normalized()
	if !errors.Is(err, ErrInvalidParameters) {
		t.Fatalf("Normalized with zero buses: err = %v, want ErrInvalidParameters", err)
	}
}

func TestNormalized_RejectsNegativeCounts(t *testing.T) {
	cases := []GenerationParameters{
		{NumBuses: 3, NumGenerators: -1},
		{NumBuses: 3, NumLoads: -1},
		{NumBuses: 3, PeakLoad: -50},
	}
	for _, p := range cases {
		if _, err := p.Normalized(); !errors.Is(err, ErrInvalidParameters) {
			t.Errorf("Normalized(%+v): err = %v, want ErrInvalidParameters", p, err)
		}
	}
}

func TestNormalized_ZeroGeneratorsIsAccepted(t *testing.T) {
	// Structural feasibility is the physics pass's concern, not coercion's.
	if _, err := (GenerationParameters{NumBuses: 3, NumGenerators: 0, NumLoads: 2}).Normalized(); err != nil {
		t.Fatalf("Normalized: %v", err)
	}
}

func TestNormalized_RejectsUnknownQualifiers(t *testing.T) {
	cases := []GenerationParameters{
		{NumBuses: 3, VoltageProfile: "spiky"},
		{NumBuses: 3, ReliabilityLevel: "extreme"},
		{NumBuses: 3, CongestionLevel: "none"},
	}
	for _, p := range cases {
		if _, err := p.Normalized(); !errors.Is(err, ErrInvalidParameters) {
			t.Errorf("Normalized(%+v): err = %v, want ErrInvalidParameters", p, err)
		}
	}
}

func TestNormalized_ClampsSimilarityThreshold(t *testing.T) {
	p, err := GenerationParameters{NumBuses: 3, SimilarityThreshold: 1.7}.Normalized()
	if err != nil {
		t.Fatalf("Normalized: %v", err)
	}
	if p.SimilarityThreshold != 1 {
		t.Errorf("SimilarityThreshold = %g, want 1", p.SimilarityThreshold)
	}

	p, err = GenerationParameters{NumBuses: 3, SimilarityThreshold: -0.3}.Normalized()
	if err != nil {
		t.Fatalf("Normalized: %v", err)
	}
	if p.SimilarityThreshold != 0 {
		t.Errorf("SimilarityThreshold = %g, want 0", p.SimilarityThreshold)
	}
}
