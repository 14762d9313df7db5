// core/aggregate.go
package core

import "github.com/signalsfoundry/gridgen/model"

// Aggregate merges the physics and circuit passes into a single immutable
// ValidationResult. Both passes are necessary conditions; there is no
// weighting or partial credit.
//
// circuit may be nil when the simulator was unreachable. In that case the
// result still carries a well-formed circuit block: success=false with a
// single synthetic violation, because downstream consumers always expect both
// sub-results present.
func Aggregate(scenarioID string, physics model.PhysicsValidation, circuit *model.CircuitValidation) model.ValidationResult {
	c := synthesizeCircuitFailure()
	if circuit != nil {
		c = *circuit
	}
	if c.VoltageViolations == nil {
		c.VoltageViolations = []model.Violation{}
	}
	if c.ThermalViolations == nil {
		c.ThermalViolations = []model.Violation{}
	}
	if physics.VoltageViolations == nil {
		physics.VoltageViolations = []model.Violation{}
	}
	if physics.LineViolations == nil {
		physics.LineViolations = []model.Violation{}
	}

	return model.ValidationResult{
		ScenarioID: scenarioID,
		IsValid:    physics.IsValid && c.Success,
		Physics:    physics,
		Circuit:    c,
		// Top-level mirror of Circuit.Success; kept in sync for
		// backward-compatible consumers.
		CircuitSuccess: c.Success,
	}
}

func synthesizeCircuitFailure() model.CircuitValidation {
	return model.CircuitValidation{
		Success:   false,
		Converged: false,
		VoltageViolations: []model.Violation{{
			ElementID:     "Error",
			Kind:          "Circuit simulation unavailable",
			ObservedValue: 0,
			LimitValue:    0,
		}},
		ThermalViolations: []model.Violation{},
	}
}
