package solver

import (
	"context"
	"fmt"
	"math"

	"github.com/signalsfoundry/gridgen/model"
)

// StepRecord captures the outcome of one time step of a series validation.
type StepRecord struct {
	Time      float64 `json:"time"`
	Success   bool    `json:"success"`
	Converged bool    `json:"convergence"`
}

// TimedViolation is a violation tagged with the time step it occurred at.
type TimedViolation struct {
	Time float64 `json:"time"`
	model.Violation
}

// TimeSeriesResult aggregates per-step outcomes and time-tagged violations.
// Success is the conjunction of every step's success.
type TimeSeriesResult struct {
	Success           bool             `json:"success"`
	TimeSteps         []StepRecord     `json:"time_steps"`
	VoltageViolations []TimedViolation `json:"voltage_violations"`
	ThermalViolations []TimedViolation `json:"thermal_violations"`
}

// ValidateTimeSeries re-validates a scenario across the given time steps,
// scaling producer output by 1 + 0.1·sin(t) and consumer demand by
// 1 + 0.1·cos(t) at each step. The base scenario is never mutated.
func ValidateTimeSeries(ctx context.Context, sim Simulator, s *model.Scenario, steps []float64) (*TimeSeriesResult, error) {
	out := &TimeSeriesResult{
		Success:           true,
		TimeSteps:         []StepRecord{},
		VoltageViolations: []TimedViolation{},
		ThermalViolations: []TimedViolation{},
	}

	for _, t := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		stepped := scaleForStep(s, t)
		cv, err := sim.Simulate(ctx, stepped)
		if err != nil {
			return nil, fmt.Errorf("time step %g: %w", t, err)
		}

		out.TimeSteps = append(out.TimeSteps, StepRecord{
			Time:      t,
			Success:   cv.Success,
			Converged: cv.Converged,
		})
		if !cv.Success {
			out.Success = false
		}
		for _, v := range cv.VoltageViolations {
			out.VoltageViolations = append(out.VoltageViolations, TimedViolation{Time: t, Violation: v})
		}
		for _, v := range cv.ThermalViolations {
			out.ThermalViolations = append(out.ThermalViolations, TimedViolation{Time: t, Violation: v})
		}
	}

	return out, nil
}

// scaleForStep deep-copies the scenario's device list with power setpoints
// scaled for time step t.
func scaleForStep(s *model.Scenario, t float64) *model.Scenario {
	stepped := *s
	devices := make([]model.DispatchableDevice, len(s.Network.SimpleDispatchableDevice))
	copy(devices, s.Network.SimpleDispatchableDevice)

	for i := range devices {
		factor := 1 + 0.1*math.Sin(t)
		if devices[i].DeviceType == model.DeviceConsumer {
			factor = 1 + 0.1*math.Cos(t)
		}

		p := devices[i].Setpoint() * factor
		st := model.InitialStatus{P: &p}
		if devices[i].InitialStatus != nil {
			cloned := *devices[i].InitialStatus
			cloned.P = &p
			st = cloned
		}
		devices[i].InitialStatus = &st
	}

	stepped.Network.SimpleDispatchableDevice = devices
	return &stepped
}
