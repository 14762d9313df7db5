package model

// DeviceType distinguishes generating devices from consuming ones in the
// network model.
type DeviceType string

const (
	// DeviceProducer marks a generator.
	DeviceProducer DeviceType = "producer"
	// DeviceConsumer marks a load.
	DeviceConsumer DeviceType = "consumer"
)

// Per-unit voltage operating band applied across the system. 1.0 is nominal.
const (
	VoltageLowerBound = 0.95
	VoltageUpperBound = 1.05
)

// InitialStatus carries the optional operating-point overrides attached to a
// network element. All fields are pointers so "absent" and "zero" stay
// distinguishable when decoding scenario documents.
type InitialStatus struct {
	Vm       *float64 `json:"vm,omitempty"`
	Va       *float64 `json:"va,omitempty"`
	P        *float64 `json:"p,omitempty"`
	Q        *float64 `json:"q,omitempty"`
	OnStatus *int     `json:"on_status,omitempty"`
}

// Bus is a node of the electrical network.
type Bus struct {
	UID         string  `json:"uid"`
	BaseNomVolt float64 `json:"base_nom_volt,omitempty"`
	// Vm is the per-unit voltage magnitude, nominal 1.0.
	Vm float64 `json:"vm,omitempty"`
	// VmLB/VmUB are optional per-bus bounds; the system-wide band applies
	// when they are zero.
	VmLB          float64        `json:"vm_lb,omitempty"`
	VmUB          float64        `json:"vm_ub,omitempty"`
	InitialStatus *InitialStatus `json:"initial_status,omitempty"`
}

// Voltage resolves the effective per-unit voltage of the bus:
// initial_status.vm when present, else vm, else nominal 1.0.
func (b Bus) Voltage() float64 {
	if b.InitialStatus != nil && b.InitialStatus.Vm != nil {
		return *b.InitialStatus.Vm
	}
	if b.Vm != 0 {
		return b.Vm
	}
	return 1.0
}

// ACLine is a transmission line between two buses. The same shape is reused
// for two-winding transformers, which the validation core treats as lines
// with a winding between their endpoints.
type ACLine struct {
	UID   string  `json:"uid"`
	FrBus string  `json:"fr_bus"`
	ToBus string  `json:"to_bus"`
	R     float64 `json:"r"`
	X     float64 `json:"x"`
	B     float64 `json:"b,omitempty"`
	// MVAUBNom is the nominal thermal/flow rating; MVAUBEm the emergency one.
	MVAUBNom      float64        `json:"mva_ub_nom"`
	MVAUBEm       float64        `json:"mva_ub_em,omitempty"`
	Status        int            `json:"status,omitempty"`
	InitialStatus *InitialStatus `json:"initial_status,omitempty"`
}

// DispatchableDevice is a generator ("producer") or load ("consumer")
// attached to a bus.
type DispatchableDevice struct {
	UID        string     `json:"uid"`
	Bus        string     `json:"bus"`
	DeviceType DeviceType `json:"device_type"`

	// Producer setpoint and capability fields.
	PG   float64 `json:"pg,omitempty"`
	QG   float64 `json:"qg,omitempty"`
	PMax float64 `json:"pmax,omitempty"`
	PMin float64 `json:"pmin,omitempty"`
	QMax float64 `json:"qmax,omitempty"`
	QMin float64 `json:"qmin,omitempty"`
	VG   float64 `json:"vg,omitempty"`

	// Consumer demand fields.
	PD float64 `json:"pd,omitempty"`
	QD float64 `json:"qd,omitempty"`

	Status        int            `json:"status,omitempty"`
	InitialStatus *InitialStatus `json:"initial_status,omitempty"`
}

// Setpoint resolves the device's active-power operating point in per-unit:
// initial_status.p when present, else the nameplate pg/pd field scaled down
// by the conventional 100 MVA base.
func (d DispatchableDevice) Setpoint() float64 {
	if d.InitialStatus != nil && d.InitialStatus.P != nil {
		return *d.InitialStatus.P
	}
	if d.DeviceType == DeviceProducer {
		return d.PG / 100
	}
	return d.PD / 100
}

// Shunt is carried through scenario documents but not interpreted by the
// validation core beyond existence.
type Shunt struct {
	UID string  `json:"uid"`
	Bus string  `json:"bus"`
	GS  float64 `json:"gs,omitempty"`
	BS  float64 `json:"bs,omitempty"`
}

// Network groups the member collections of a scenario's electrical network.
// Ordering within each collection is preserved from the source document.
type Network struct {
	Bus                      []Bus                `json:"bus"`
	ACLine                   []ACLine             `json:"ac_line"`
	TwoWindingTransformer    []ACLine             `json:"two_winding_transformer,omitempty"`
	SimpleDispatchableDevice []DispatchableDevice `json:"simple_dispatchable_device"`
	Shunt                    []Shunt              `json:"shunt,omitempty"`
}

// Branches returns lines and transformers as one flow-carrying sequence,
// lines first, matching document order.
func (n Network) Branches() []ACLine {
	if len(n.TwoWindingTransformer) == 0 {
		return n.ACLine
	}
	out := make([]ACLine, 0, len(n.ACLine)+len(n.TwoWindingTransformer))
	out = append(out, n.ACLine...)
	out = append(out, n.TwoWindingTransformer...)
	return out
}

// Scenario is one generated (or uploaded) grid scenario: a topology plus an
// operating point. Scenarios are immutable once produced; edits require
// generating a new scenario under a new ID.
type Scenario struct {
	ScenarioID string `json:"scenario_id"`
	// ID is a legacy alias some generators emit instead of scenario_id.
	ID          string            `json:"id,omitempty"`
	Name        string            `json:"name,omitempty"`
	Description string            `json:"description,omitempty"`
	Network     Network           `json:"network"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// Key returns the scenario's natural key: scenario_id, falling back to the
// legacy id field when scenario_id is unset.
func (s *Scenario) Key() string {
	if s.ScenarioID != "" {
		return s.ScenarioID
	}
	return s.ID
}

// CountDevices returns the number of producers and consumers in the network.
func (s *Scenario) CountDevices() (producers, consumers int) {
	for _, d := range s.Network.SimpleDispatchableDevice {
		switch d.DeviceType {
		case DeviceProducer:
			producers++
		case DeviceConsumer:
			consumers++
		}
	}
	return producers, consumers
}
