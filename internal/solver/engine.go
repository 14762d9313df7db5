package solver

import (
	"context"
	"fmt"
	"math"

	"github.com/signalsfoundry/gridgen/model"
)

// Engine is the built-in circuit validator: a linearized power-flow
// approximation rather than a full AC solve. It estimates branch transfers
// from net bus injections, checks bus voltages against the operating band,
// and branch flows against their thermal ratings.
//
// The approximation is intentionally conservative: a scenario the Engine
// rejects would also fail a full solve, while a pass means "no gross
// infeasibility", which is the certification level this service promises.
type Engine struct {
	// MismatchTolerance bounds the acceptable |generation-load| imbalance as
	// a fraction of total load before the solve is declared non-converged.
	MismatchTolerance float64
}

// NewEngine returns an Engine with the default 20% mismatch tolerance.
func NewEngine() *Engine {
	return &Engine{MismatchTolerance: 0.2}
}

// Simulate validates one scenario. It returns an error only for structural
// faults the solve cannot start from (empty network, dangling branch
// endpoints); everything else is reported through the result.
func (e *Engine) Simulate(ctx context.Context, s *model.Scenario) (*model.CircuitValidation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || len(s.Network.Bus) == 0 {
		return nil, fmt.Errorf("%w: scenario has no buses", ErrSolver)
	}

	// Net active-power injection per bus, in MW. Device setpoints are
	// per-unit on a 100 MVA base.
	injection := make(map[string]float64, len(s.Network.Bus))
	for _, bus := range s.Network.Bus {
		injection[bus.UID] = 0
	}

	var totalGen, totalLoad float64
	for _, dev := range s.Network.SimpleDispatchableDevice {
		p := dev.Setpoint() * 100
		if _, ok := injection[dev.Bus]; !ok {
			return nil, fmt.Errorf("%w: device %q references unknown bus %q", ErrSolver, dev.UID, dev.Bus)
		}
		switch dev.DeviceType {
		case model.DeviceProducer:
			injection[dev.Bus] += p
			totalGen += p
		case model.DeviceConsumer:
			injection[dev.Bus] -= p
			totalLoad += p
		}
	}

	result := &model.CircuitValidation{
		Success:           true,
		Converged:         true,
		VoltageViolations: []model.Violation{},
		ThermalViolations: []model.Violation{},
	}

	// Convergence: the linear balance must close within tolerance. A loaded
	// system with no generation cannot converge at all.
	if totalLoad > 0 {
		if totalGen == 0 {
			result.Success = false
			result.Converged = false
			return result, nil
		}
		if math.Abs(totalGen-totalLoad) > e.MismatchTolerance*totalLoad {
			result.Success = false
			result.Converged = false
			return result, nil
		}
	}

	// Bus voltages against the solver's operating band.
	for _, bus := range s.Network.Bus {
		vm := bus.Voltage()
		lo, hi := busBounds(bus)
		if vm < lo {
			result.VoltageViolations = append(result.VoltageViolations, model.Violation{
				ElementID:     bus.UID,
				Kind:          "Undervoltage",
				ObservedValue: vm,
				LimitValue:    lo,
			})
		} else if vm > hi {
			result.VoltageViolations = append(result.VoltageViolations, model.Violation{
				ElementID:     bus.UID,
				Kind:          "Overvoltage",
				ObservedValue: vm,
				LimitValue:    hi,
			})
		}
	}

	// Branch transfers against thermal ratings. The linear estimate assigns
	// each branch half of the endpoint imbalance it bridges.
	var losses float64
	for _, br := range s.Network.Branches() {
		from, okF := injection[br.FrBus]
		to, okT := injection[br.ToBus]
		if !okF || !okT {
			return nil, fmt.Errorf("%w: branch %q references unknown bus", ErrSolver, br.UID)
		}
		flow := math.Abs(from-to) / 2
		if br.MVAUBNom > 0 && flow > br.MVAUBNom {
			result.ThermalViolations = append(result.ThermalViolations, model.Violation{
				ElementID:     br.UID,
				Kind:          "Thermal overload",
				ObservedValue: flow,
				LimitValue:    br.MVAUBNom,
			})
		}
		// I^2 R heating on a 100 MVA base.
		losses += br.R * (flow / 100) * (flow / 100) * 100
	}

	if len(result.VoltageViolations) > 0 || len(result.ThermalViolations) > 0 {
		result.Success = false
	}

	result.PowerFlow = &model.PowerFlowSummary{
		TotalLosses:     losses,
		TotalGeneration: totalGen,
		TotalLoad:       totalLoad,
	}
	return result, nil
}

// busBounds returns the per-bus voltage band, falling back to the system-wide
// one when the bus does not carry its own.
func busBounds(bus model.Bus) (lo, hi float64) {
	lo, hi = model.VoltageLowerBound, model.VoltageUpperBound
	if bus.VmLB > 0 {
		lo = bus.VmLB
	}
	if bus.VmUB > 0 {
		hi = bus.VmUB
	}
	return lo, hi
}

var _ Simulator = (*Engine)(nil)
