package solver

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/signalsfoundry/gridgen/model"
)

// recordingSim captures the scenarios handed to it and returns a canned
// result per call.
type recordingSim struct {
	results   []*model.CircuitValidation
	err       error
	scenarios []*model.Scenario
}

func (r *recordingSim) Simulate(_ context.Context, s *model.Scenario) (*model.CircuitValidation, error) {
	r.scenarios = append(r.scenarios, s)
	if r.err != nil {
		return nil, r.err
	}
	idx := len(r.scenarios) - 1
	if idx >= len(r.results) {
		idx = len(r.results) - 1
	}
	return r.results[idx], nil
}

func okResult() *model.CircuitValidation {
	return &model.CircuitValidation{
		Success: true, Converged: true,
		VoltageViolations: []model.Violation{},
		ThermalViolations: []model.Violation{},
	}
}

func TestValidateTimeSeries_SuccessIsConjunction(t *testing.T) {
	failing := okResult()
	failing.Success = false
	failing.ThermalViolations = []model.Violation{{ElementID: "Line1-2", Kind: "Thermal overload"}}

	sim := &recordingSim{results: []*model.CircuitValidation{okResult(), failing, okResult()}}
	s := twoBusSystem(100, 100, 300)

	out, err := ValidateTimeSeries(context.Background(), sim, s, []float64{0, 1, 2})
	if err != nil {
		t.Fatalf("ValidateTimeSeries: %v", err)
	}
	if out.Success {
		t.Error("Success = true with a failing step")
	}
	if len(out.TimeSteps) != 3 {
		t.Fatalf("TimeSteps = %d, want 3", len(out.TimeSteps))
	}
	if out.TimeSteps[1].Success || !out.TimeSteps[0].Success {
		t.Errorf("step outcomes = %+v", out.TimeSteps)
	}
	if len(out.ThermalViolations) != 1 || out.ThermalViolations[0].Time != 1 {
		t.Errorf("ThermalViolations = %+v, want one violation at t=1", out.ThermalViolations)
	}
}

func TestValidateTimeSeries_ScalesSetpoints(t *testing.T) {
	sim := &recordingSim{results: []*model.CircuitValidation{okResult()}}
	s := twoBusSystem(100, 100, 300)

	step := math.Pi / 2
	if _, err := ValidateTimeSeries(context.Background(), sim, s, []float64{step}); err != nil {
		t.Fatalf("ValidateTimeSeries: %v", err)
	}
	if len(sim.scenarios) != 1 {
		t.Fatalf("simulator called %d times, want 1", len(sim.scenarios))
	}

	stepped := sim.scenarios[0]
	var genP, loadP float64
	for _, d := range stepped.Network.SimpleDispatchableDevice {
		switch d.DeviceType {
		case model.DeviceProducer:
			genP = d.Setpoint()
		case model.DeviceConsumer:
			loadP = d.Setpoint()
		}
	}
	// At t = pi/2: sin = 1, cos = 0. Producers scale by 1.1, consumers by 1.0.
	if math.Abs(genP-1.1) > 1e-9 {
		t.Errorf("producer setpoint = %g, want 1.1", genP)
	}
	if math.Abs(loadP-1.0) > 1e-9 {
		t.Errorf("consumer setpoint = %g, want 1.0", loadP)
	}

	// The base scenario is untouched.
	if p := s.Network.SimpleDispatchableDevice[0].Setpoint(); p != 1.0 {
		t.Errorf("base scenario mutated: setpoint = %g", p)
	}
}

func TestValidateTimeSeries_SolverFault(t *testing.T) {
	sim := &recordingSim{err: errors.New("boom")}
	_, err := ValidateTimeSeries(context.Background(), sim, twoBusSystem(100, 100, 300), []float64{0})
	if err == nil {
		t.Fatal("ValidateTimeSeries: no error when the solver faults")
	}
}

func TestValidateTimeSeries_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sim := &recordingSim{results: []*model.CircuitValidation{okResult()}}
	if _, err := ValidateTimeSeries(ctx, sim, twoBusSystem(100, 100, 300), []float64{0}); err == nil {
		t.Fatal("ValidateTimeSeries: no error for canceled context")
	}
}

func TestValidateTimeSeries_EmptySteps(t *testing.T) {
	sim := &recordingSim{}
	out, err := ValidateTimeSeries(context.Background(), sim, twoBusSystem(100, 100, 300), nil)
	if err != nil {
		t.Fatalf("ValidateTimeSeries: %v", err)
	}
	if !out.Success || len(out.TimeSteps) != 0 {
		t.Errorf("out = %+v, want vacuous success with no steps", out)
	}
}
