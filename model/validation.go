package model

// Violation is one itemized limit breach. The JSON field names are the
// stable contract other layers depend on.
type Violation struct {
	ElementID     string  `json:"element_id"`
	Kind          string  `json:"kind"`
	ObservedValue float64 `json:"observed_value"`
	LimitValue    float64 `json:"limit_value"`
}

// PhysicsValidation is the outcome of the rule-based structural/electrical
// sanity pass. LineViolations stays empty in the rule-based pass; thermal
// checks belong to the circuit simulation.
type PhysicsValidation struct {
	IsValid           bool        `json:"is_valid"`
	VoltageViolations []Violation `json:"voltage_violations"`
	LineViolations    []Violation `json:"line_violations"`
}

// PowerFlowSummary reports aggregate quantities from a converged solve.
type PowerFlowSummary struct {
	TotalLosses     float64 `json:"total_losses"`
	TotalGeneration float64 `json:"total_generation"`
	TotalLoad       float64 `json:"total_load"`
}

// CircuitValidation is the outcome of the power-flow simulation pass.
// Success reflects convergence plus operating limits under the solver's own
// tolerance.
type CircuitValidation struct {
	Success           bool              `json:"success"`
	Converged         bool              `json:"convergence"`
	VoltageViolations []Violation       `json:"voltage_violations"`
	ThermalViolations []Violation       `json:"thermal_violations"`
	PowerFlow         *PowerFlowSummary `json:"power_flow,omitempty"`
}

// ValidationResult is the merged verdict for one scenario. It is immutable
// once produced; re-validating a scenario yields a new result.
//
// The circuit block is serialized as opendss_validation and its success flag
// mirrored at top level as opendss_success for backward-compatible consumers;
// the two must always agree.
type ValidationResult struct {
	ScenarioID     string            `json:"scenario_id"`
	IsValid        bool              `json:"is_valid"`
	Physics        PhysicsValidation `json:"physics_validation"`
	Circuit        CircuitValidation `json:"opendss_validation"`
	CircuitSuccess bool              `json:"opendss_success"`
}
