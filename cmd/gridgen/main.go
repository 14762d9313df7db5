package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/signalsfoundry/gridgen/core"
	"github.com/signalsfoundry/gridgen/internal/generator"
	"github.com/signalsfoundry/gridgen/internal/solver"
	"github.com/signalsfoundry/gridgen/model"
)

func main() {
	mode := flag.String("mode", "generate", "Operation: generate | validate | testset")
	out := flag.String("out", "", "Output file for generate, or directory for testset (default stdout / data/processed)")
	in := flag.String("in", "", "Scenario JSON file to validate")

	buses := flag.Int("buses", 3, "Number of buses")
	generators := flag.Int("generators", 1, "Number of generators")
	loads := flag.Int("loads", 1, "Number of loads")
	peakLoad := flag.Float64("peak-load", 100, "Peak load in MW")
	profile := flag.String("voltage-profile", "flat", "Voltage profile: flat | varied | stressed")
	reliability := flag.String("reliability", "medium", "Reliability level: high | medium | low")
	congestion := flag.String("congestion", "medium", "Congestion level: high | medium | low")

	demoValidation := flag.Bool("demo-validation", false, "Report every scenario as physically valid")
	timeSteps := flag.Int("time-steps", 0, "When validating, additionally run this many hourly time steps")
	emitScript := flag.Bool("emit-script", false, "When validating, print the circuit simulation script")
	flag.Parse()

	var err error
	switch *mode {
	case "generate":
		err = runGenerate(*out, model.GenerationParameters{
			NumBuses:         *buses,
			NumGenerators:    *generators,
			NumLoads:         *loads,
			PeakLoad:         *peakLoad,
			VoltageProfile:   model.VoltageProfile(*profile),
			ReliabilityLevel: model.ReliabilityLevel(*reliability),
			CongestionLevel:  model.CongestionLevel(*congestion),
		})
	case "validate":
		err = runValidate(*in, *demoValidation, *timeSteps, *emitScript)
	case "testset":
		dir := *out
		if dir == "" {
			dir = filepath.Join("data", "processed")
		}
		err = runTestset(dir)
	default:
		err = fmt.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "gridgen: %v\n", err)
		os.Exit(1)
	}
}

func runGenerate(out string, params model.GenerationParameters) error {
	normalized, err := params.Normalized()
	if err != nil {
		return err
	}

	scenario, err := generator.NewSyntheticGenerator().Generate(context.Background(), normalized, nil)
	if err != nil {
		return err
	}
	return writeJSON(out, scenario)
}

func runValidate(path string, demoValidation bool, timeSteps int, emitScript bool) error {
	if path == "" {
		return fmt.Errorf("validate requires -in")
	}

	scenario, err := core.LoadScenarioFile(path)
	if err != nil {
		return err
	}

	var physics core.PhysicsChecker = &core.RuleBasedPhysics{}
	if demoValidation {
		physics = core.AlwaysValidPhysics{}
	}
	engine := solver.NewEngine()

	ctx := context.Background()
	physicsResult := physics.Check(scenario)
	circuit, simErr := engine.Simulate(ctx, scenario)
	if simErr != nil {
		fmt.Fprintf(os.Stderr, "warning: circuit simulation failed: %v\n", simErr)
		circuit = nil
	}
	result := core.Aggregate(scenario.Key(), physicsResult, circuit)

	if emitScript {
		fmt.Println(solver.RenderScript(scenario))
	}
	if err := writeJSON("", result); err != nil {
		return err
	}

	if timeSteps > 0 {
		steps := make([]float64, timeSteps)
		for i := range steps {
			steps[i] = float64(i)
		}
		series, err := solver.ValidateTimeSeries(ctx, engine, scenario, steps)
		if err != nil {
			return err
		}
		if err := writeJSON("", series); err != nil {
			return err
		}
	}

	if !result.IsValid {
		os.Exit(1)
	}
	return nil
}

// testCase describes one fixture scenario; the set covers each validation
// rule with at least one passing and one failing configuration.
type testCase struct {
	id, name, description      string
	buses, gens, loads         int
	voltage                    float64
	lineCapacity, pg, pd       float64
	invalidVoltage             bool
	reliability, congestion    string
	profile                    string
}

var testCases = []testCase{
	{
		id: "valid_balanced_system", name: "Small Balanced System",
		description: "A small, balanced 3-bus system with 2 generators and 1 load",
		buses:       3, gens: 2, loads: 1,
		voltage: 1.0, lineCapacity: 300, pg: 100, pd: 150,
		reliability: "high", congestion: "low", profile: "flat",
	},
	{
		id: "valid_medium_system", name: "Medium Balanced System",
		description: "A medium-sized, balanced 4-bus system with 2 generators and 2 loads",
		buses:       4, gens: 2, loads: 2,
		voltage: 1.0, lineCapacity: 300, pg: 150, pd: 120,
		reliability: "high", congestion: "low", profile: "flat",
	},
	{
		id: "invalid_voltage_violations", name: "System with Voltage Violations",
		description: "A 5-bus system with bus voltages outside the operating band",
		buses:       5, gens: 1, loads: 4,
		voltage: 1.0, lineCapacity: 300, pg: 100, pd: 120, invalidVoltage: true,
		reliability: "low", congestion: "high", profile: "stressed",
	},
	{
		id: "invalid_overload_lines", name: "System with Line Overloads",
		description: "A 4-bus system with line overloads due to insufficient capacity",
		buses:       4, gens: 1, loads: 3,
		voltage: 1.0, lineCapacity: 150, pg: 300, pd: 250,
		reliability: "low", congestion: "high", profile: "flat",
	},
	{
		id: "invalid_load_imbalance", name: "System with Load-Generation Imbalance",
		description: "A 6-bus system with too many loads per generator",
		buses:       6, gens: 1, loads: 5,
		voltage: 1.0, lineCapacity: 300, pg: 120, pd: 100,
		reliability: "low", congestion: "medium", profile: "varied",
	},
}

func runTestset(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	for _, tc := range testCases {
		scenario := buildTestScenario(tc)
		path := filepath.Join(dir, tc.id+".json")
		if err := writeJSON(path, scenario); err != nil {
			return err
		}
		fmt.Printf("created scenario: %s\n", path)
	}
	return nil
}

// buildTestScenario assembles a ring-topology fixture. Buses carry the
// requested voltage unless invalidVoltage is set, in which case every bus
// after the first alternates between 0.92 and 1.07.
func buildTestScenario(tc testCase) *model.Scenario {
	network := model.Network{
		Bus:                      []model.Bus{},
		ACLine:                   []model.ACLine{},
		SimpleDispatchableDevice: []model.DispatchableDevice{},
	}

	for i := 0; i < tc.buses; i++ {
		voltage := tc.voltage
		if tc.invalidVoltage && i > 0 {
			if i%2 == 0 {
				voltage = 0.92
			} else {
				voltage = 1.07
			}
		}
		vm := voltage
		va := 0.0
		network.Bus = append(network.Bus, model.Bus{
			UID:           fmt.Sprintf("Bus%d", i+1),
			Vm:            voltage,
			VmLB:          model.VoltageLowerBound,
			VmUB:          model.VoltageUpperBound,
			InitialStatus: &model.InitialStatus{Vm: &vm, Va: &va},
		})
	}

	for i := 0; i < tc.buses-1; i++ {
		toBus := i + 2
		if toBus > tc.buses {
			toBus = 1
		}
		on := 1
		network.ACLine = append(network.ACLine, model.ACLine{
			UID:           fmt.Sprintf("Line%d-%d", i+1, toBus),
			FrBus:         fmt.Sprintf("Bus%d", i+1),
			ToBus:         fmt.Sprintf("Bus%d", toBus),
			R:             0.01,
			X:             0.1,
			B:             0.02,
			MVAUBNom:      tc.lineCapacity,
			Status:        1,
			InitialStatus: &model.InitialStatus{OnStatus: &on},
		})
	}

	for i := 0; i < tc.gens; i++ {
		p := tc.pg / 100
		q := 0.1
		network.SimpleDispatchableDevice = append(network.SimpleDispatchableDevice, model.DispatchableDevice{
			UID:           fmt.Sprintf("Gen%d", i+1),
			Bus:           fmt.Sprintf("Bus%d", i+1),
			DeviceType:    model.DeviceProducer,
			PG:            tc.pg,
			QG:            20,
			QMax:          75,
			QMin:          -75,
			VG:            1.0,
			PMax:          150,
			PMin:          20,
			Status:        1,
			InitialStatus: &model.InitialStatus{P: &p, Q: &q},
		})
	}

	for i := 0; i < tc.loads; i++ {
		busIdx := tc.gens + i + 1
		if busIdx > tc.buses {
			busIdx = tc.buses
		}
		p := tc.pd / 100
		q := 0.08
		network.SimpleDispatchableDevice = append(network.SimpleDispatchableDevice, model.DispatchableDevice{
			UID:           fmt.Sprintf("Load%d", i+1),
			Bus:           fmt.Sprintf("Bus%d", busIdx),
			DeviceType:    model.DeviceConsumer,
			PD:            tc.pd,
			QD:            20,
			Status:        1,
			InitialStatus: &model.InitialStatus{P: &p, Q: &q},
		})
	}

	return &model.Scenario{
		ScenarioID:  tc.id,
		Name:        tc.name,
		Description: tc.description,
		Network:     network,
		Metadata: map[string]string{
			"creation_date":     time.Now().Format("2006-01-02"),
			"version":           "1.0",
			"reliability_level": tc.reliability,
			"congestion_level":  tc.congestion,
			"voltage_profile":   tc.profile,
		},
	}
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if path == "" {
		_, err = os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
