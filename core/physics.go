package core

import (
	"strings"

	"github.com/signalsfoundry/gridgen/model"
)

// conventionFlags are the substrings that mark a scenario as a deliberate
// adversarial/stress case. Matching is case-sensitive by convention with the
// upstream generator's naming scheme.
var conventionFlags = []string{"invalid", "stress", "overload"}

// flaggedByConvention reports whether the scenario's key carries one of the
// adversarial naming markers. It is kept as a standalone predicate so the
// naming rule can be disabled or reinterpreted without touching the numeric
// checks.
func flaggedByConvention(key string) bool {
	for _, flag := range conventionFlags {
		if strings.Contains(key, flag) {
			return true
		}
	}
	return false
}

// PhysicsChecker is the strategy the orchestrator uses for the rule-based
// pass. RuleBasedPhysics is authoritative; AlwaysValidPhysics exists for demo
// deployments and tests.
type PhysicsChecker interface {
	Check(s *model.Scenario) model.PhysicsValidation
}

// RuleBasedPhysics applies the structural and electrical sanity rules. It is
// a pure function of the scenario: deterministic, no I/O.
type RuleBasedPhysics struct {
	// SkipConventionFlags disables the naming-convention rule; the numeric
	// checks are unaffected.
	SkipConventionFlags bool
}

// maxLoadsPerGenerator bounds the structural loads/generators ratio; more
// consumers per producer than this risks an infeasible dispatch.
const maxLoadsPerGenerator = 2.0

// Check runs every criterion in fixed order and collects all violations; the
// verdict is the conjunction of all of them. Only the bus-voltage scan exits
// early, on the first out-of-range bus: it is an existence check, not an
// exhaustive report.
func (v RuleBasedPhysics) Check(s *model.Scenario) model.PhysicsValidation {
	out := model.PhysicsValidation{
		IsValid:           true,
		VoltageViolations: []model.Violation{},
		LineViolations:    []model.Violation{},
	}
	if s == nil {
		out.IsValid = false
		return out
	}

	producers, consumers := s.CountDevices()

	// 1) Generation presence.
	if producers < 1 {
		out.IsValid = false
	}

	// 2) Load-to-generation ratio.
	if producers > 0 && float64(consumers)/float64(producers) > maxLoadsPerGenerator {
		out.IsValid = false
	}

	// 3) Naming-convention flag.
	if !v.SkipConventionFlags && flaggedByConvention(s.Key()) {
		out.IsValid = false
	}

	// 4) Bus voltage range, fail-fast on the first excursion.
	for _, bus := range s.Network.Bus {
		vm := bus.Voltage()
		if vm < model.VoltageLowerBound {
			out.IsValid = false
			out.VoltageViolations = append(out.VoltageViolations, model.Violation{
				ElementID:     bus.UID,
				Kind:          "Low voltage",
				ObservedValue: vm,
				LimitValue:    model.VoltageLowerBound,
			})
			break
		}
		if vm > model.VoltageUpperBound {
			out.IsValid = false
			out.VoltageViolations = append(out.VoltageViolations, model.Violation{
				ElementID:     bus.UID,
				Kind:          "High voltage",
				ObservedValue: vm,
				LimitValue:    model.VoltageUpperBound,
			})
			break
		}
	}

	return out
}

// AlwaysValidPhysics reports every scenario as valid. It exists so demo
// deployments can be wired explicitly at construction; it is never selected
// implicitly.
type AlwaysValidPhysics struct{}

func (AlwaysValidPhysics) Check(*model.Scenario) model.PhysicsValidation {
	return model.PhysicsValidation{
		IsValid:           true,
		VoltageViolations: []model.Violation{},
		LineViolations:    []model.Violation{},
	}
}
