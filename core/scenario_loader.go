// core/scenario_loader.go
package core

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/signalsfoundry/gridgen/model"
)

// ErrMalformedScenario indicates a scenario document missing fields for which
// no sane default exists. Fields with a sane default (per-unit voltage,
// device status) are substituted instead of failing.
var ErrMalformedScenario = errors.New("malformed scenario")

// LoadScenario reads a JSON scenario document from r, applies the coercion
// rules the validators rely on, and returns the decoded scenario.
//
// It deliberately fails only on JSON / structural errors: electrical
// implausibility is the validators' job, not the loader's. A scenario that
// decodes but contains elements without identifiers is reported as
// ErrMalformedScenario so callers can treat it as structurally invalid
// rather than crashing downstream.
func LoadScenario(r io.Reader) (*model.Scenario, error) {
	var s model.Scenario
	dec := json.NewDecoder(r)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("LoadScenario: decode failed: %w", err)
	}
	if err := CoerceScenario(&s); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadScenarioFile is LoadScenario over a file path.
func LoadScenarioFile(path string) (*model.Scenario, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("LoadScenarioFile: %w", err)
	}
	defer f.Close()
	return LoadScenario(f)
}

// CoerceScenario normalizes a decoded scenario in place:
//
//   - scenario_id falls back to the legacy id field when unset;
//   - every bus, branch, and device must carry a uid (no sane default);
//   - branch endpoints must be present;
//   - device_type must be producer or consumer;
//   - nil member collections become empty ones so the validators can range
//     without nil checks.
//
// Voltage defaults are not materialized here: Bus.Voltage resolves
// initial_status.vm / vm / 1.0 lazily, so an uploaded document stays
// byte-faithful when re-serialized.
func CoerceScenario(s *model.Scenario) error {
	if s == nil {
		return fmt.Errorf("%w: empty document", ErrMalformedScenario)
	}
	if s.ScenarioID == "" && s.ID != "" {
		s.ScenarioID = s.ID
	}

	n := &s.Network
	if n.Bus == nil {
		n.Bus = []model.Bus{}
	}
	if n.ACLine == nil {
		n.ACLine = []model.ACLine{}
	}
	if n.SimpleDispatchableDevice == nil {
		n.SimpleDispatchableDevice = []model.DispatchableDevice{}
	}

	for i, bus := range n.Bus {
		if bus.UID == "" {
			return fmt.Errorf("%w: bus[%d] has no uid", ErrMalformedScenario, i)
		}
	}
	for i, line := range n.Branches() {
		if line.UID == "" {
			return fmt.Errorf("%w: branch[%d] has no uid", ErrMalformedScenario, i)
		}
		if line.FrBus == "" || line.ToBus == "" {
			return fmt.Errorf("%w: branch %q missing endpoints", ErrMalformedScenario, line.UID)
		}
	}
	for i, dev := range n.SimpleDispatchableDevice {
		if dev.UID == "" {
			return fmt.Errorf("%w: device[%d] has no uid", ErrMalformedScenario, i)
		}
		switch dev.DeviceType {
		case model.DeviceProducer, model.DeviceConsumer:
		default:
			return fmt.Errorf("%w: device %q has unknown device_type %q",
				ErrMalformedScenario, dev.UID, dev.DeviceType)
		}
	}

	return nil
}
