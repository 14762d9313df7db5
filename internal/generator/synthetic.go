package generator

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/signalsfoundry/gridgen/model"
)

// SyntheticGenerator builds scenarios procedurally: a ring topology with
// generators on the first buses and loads spread across the rest. It is
// deterministic for a given parameter set (apart from the scenario ID), which
// makes it the default for offline use and tests; it ignores retrieved
// context by design.
type SyntheticGenerator struct{}

// NewSyntheticGenerator constructs a SyntheticGenerator.
func NewSyntheticGenerator() *SyntheticGenerator {
	return &SyntheticGenerator{}
}

// Reserve margins by reliability level: generation capacity over peak load.
var reserveMargin = map[model.ReliabilityLevel]float64{
	model.LevelHigh:   1.2,
	model.LevelMedium: 1.1,
	model.LevelLow:    1.0,
}

// Line thermal ratings by congestion level, in MVA.
var lineRating = map[model.CongestionLevel]float64{
	model.LevelLow:    300,
	model.LevelMedium: 250,
	model.LevelHigh:   150,
}

func (g *SyntheticGenerator) Generate(_ context.Context, params model.GenerationParameters, _ []*model.Scenario) (*model.Scenario, error) {
	params, err := params.Normalized()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	n := params.NumBuses
	scenario := &model.Scenario{
		ScenarioID:  "scenario-" + uuid.New().String(),
		Name:        fmt.Sprintf("Synthetic %d-bus system", n),
		Description: fmt.Sprintf("Ring topology, %d generators, %d loads, %.0f MW peak", params.NumGenerators, params.NumLoads, params.PeakLoad),
		Metadata: map[string]string{
			"generator":         "synthetic",
			"voltage_profile":   string(params.VoltageProfile),
			"reliability_level": string(params.ReliabilityLevel),
			"congestion_level":  string(params.CongestionLevel),
		},
	}

	for i := 1; i <= n; i++ {
		vm := busVoltage(params.VoltageProfile, i, n)
		scenario.Network.Bus = append(scenario.Network.Bus, model.Bus{
			UID:           fmt.Sprintf("Bus%d", i),
			BaseNomVolt:   115,
			Vm:            vm,
			InitialStatus: &model.InitialStatus{Vm: f64(vm), Va: f64(0)},
		})
	}

	// Ring: Bus i -> Bus i+1, closing back to Bus 1.
	rating := lineRating[params.CongestionLevel]
	for i := 1; i <= n && n > 1; i++ {
		to := i%n + 1
		scenario.Network.ACLine = append(scenario.Network.ACLine, model.ACLine{
			UID:      fmt.Sprintf("Line%d-%d", i, to),
			FrBus:    fmt.Sprintf("Bus%d", i),
			ToBus:    fmt.Sprintf("Bus%d", to),
			R:        0.01,
			X:        0.1,
			B:        0.02,
			MVAUBNom: rating,
			MVAUBEm:  rating + 50,
			Status:   1,
		})
	}

	// Generators on the first buses, capacity split evenly with the reserve
	// margin applied.
	if params.NumGenerators > 0 {
		pg := params.PeakLoad * reserveMargin[params.ReliabilityLevel] / float64(params.NumGenerators)
		for i := 1; i <= params.NumGenerators; i++ {
			busIdx := i
			if busIdx > n {
				busIdx = n
			}
			scenario.Network.SimpleDispatchableDevice = append(scenario.Network.SimpleDispatchableDevice, model.DispatchableDevice{
				UID:           fmt.Sprintf("Gen%d", i),
				Bus:           fmt.Sprintf("Bus%d", busIdx),
				DeviceType:    model.DeviceProducer,
				PG:            pg,
				QG:            pg / 5,
				PMax:          pg * 1.5,
				PMin:          pg / 5,
				QMax:          pg * 0.75,
				QMin:          -pg * 0.75,
				VG:            1.0,
				Status:        1,
				InitialStatus: &model.InitialStatus{P: f64(pg / 100), Q: f64(0.1)},
			})
		}
	}

	// Loads on the buses after the generators, wrapping at the last bus.
	if params.NumLoads > 0 {
		pd := params.PeakLoad / float64(params.NumLoads)
		for i := 1; i <= params.NumLoads; i++ {
			busIdx := params.NumGenerators + i
			if busIdx > n {
				busIdx = n
			}
			scenario.Network.SimpleDispatchableDevice = append(scenario.Network.SimpleDispatchableDevice, model.DispatchableDevice{
				UID:           fmt.Sprintf("Load%d", i),
				Bus:           fmt.Sprintf("Bus%d", busIdx),
				DeviceType:    model.DeviceConsumer,
				PD:            pd,
				QD:            pd / 5,
				Status:        1,
				InitialStatus: &model.InitialStatus{P: f64(pd / 100), Q: f64(0.08)},
			})
		}
	}

	return scenario, nil
}

// busVoltage spreads per-unit voltages across the ring according to the
// requested profile. "flat" pins everything at nominal; "varied" stays inside
// the operating band; "stressed" deliberately pushes the first and last bus
// outside it so downstream validation exercises its violation paths.
func busVoltage(profile model.VoltageProfile, i, n int) float64 {
	switch profile {
	case model.VoltageProfileVaried:
		// Cycle through 0.98 / 1.00 / 1.02.
		return 1.0 + 0.02*float64(i%3-1)
	case model.VoltageProfileStressed:
		if i == 1 {
			return 0.93
		}
		if i == n && n > 1 {
			return 1.06
		}
		return 1.0 + 0.03*float64(i%3-1)
	default:
		return 1.0
	}
}

func f64(v float64) *float64 { return &v }

var _ Generator = (*SyntheticGenerator)(nil)
