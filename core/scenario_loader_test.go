// core/scenario_loader_test.go
package core

import (
	"errors"
	"strings"
	"testing"

	"github.com/signalsfoundry/gridgen/model"
)

const sampleScenarioJSON = `{
  "scenario_id": "sample-1",
  "name": "Sample",
  "network": {
    "bus": [
      {"uid": "Bus1", "vm": 1.0, "initial_status": {"vm": 0.98, "va": 0.0}},
      {"uid": "Bus2"}
    ],
    "ac_line": [
      {"uid": "Line1-2", "fr_bus": "Bus1", "to_bus": "Bus2", "r": 0.01, "x": 0.1, "mva_ub_nom": 300}
    ],
    "simple_dispatchable_device": [
      {"uid": "Gen1", "bus": "Bus1", "device_type": "producer", "pg": 100},
      {"uid": "Load1", "bus": "Bus2", "device_type": "consumer", "pd": 80}
    ]
  }
}`

func TestLoadScenario(t *testing.T) {
	s, err := LoadScenario(strings.NewReader(sampleScenarioJSON))
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	if s.Key() != "sample-1" {
		t.Errorf("Key() = %q, want sample-1", s.Key())
	}
	if got := s.Network.Bus[0].Voltage(); got != 0.98 {
		t.Errorf("Bus1 voltage = %g, want 0.98 from initial_status", got)
	}
	if got := s.Network.Bus[1].Voltage(); got != 1.0 {
		t.Errorf("Bus2 voltage = %g, want nominal 1.0", got)
	}
}

func TestLoadScenario_LegacyIDFallback(t *testing.T) {
	doc := `{"id": "legacy-7", "network": {"bus": [], "ac_line": [], "simple_dispatchable_device": []}}`
	s, err := LoadScenario(strings.NewReader(doc))
	if err != nil {
		t.Fatalf("LoadScenario: %v", err)
	}
	if s.ScenarioID != "legacy-7" {
		t.Errorf("ScenarioID = %q, want legacy-7 promoted from id", s.ScenarioID)
	}
}

func TestLoadScenario_BadJSON(t *testing.T) {
	if _, err := LoadScenario(strings.NewReader("{not json")); err == nil {
		t.Fatal("LoadScenario: no error for malformed JSON")
	}
}

func TestCoerceScenario_MissingIdentifiers(t *testing.T) {
	cases := []struct {
		name string
		doc  string
	}{
		{"bus without uid", `{"scenario_id":"x","network":{"bus":[{"vm":1.0}]}}`},
		{"branch without uid", `{"scenario_id":"x","network":{"ac_line":[{"fr_bus":"a","to_bus":"b"}]}}`},
		{"branch without endpoints", `{"scenario_id":"x","network":{"ac_line":[{"uid":"L1"}]}}`},
		{"device without uid", `{"scenario_id":"x","network":{"simple_dispatchable_device":[{"bus":"a","device_type":"producer"}]}}`},
		{"unknown device type", `{"scenario_id":"x","network":{"simple_dispatchable_device":[{"uid":"D1","bus":"a","device_type":"battery"}]}}`},
	}
	for _, tc := range cases {
		_, err := LoadScenario(strings.NewReader(tc.doc))
		if !errors.Is(err, ErrMalformedScenario) {
			t.Errorf("%s: err = %v, want ErrMalformedScenario", tc.name, err)
		}
	}
}

func TestCoerceScenario_FillsNilCollections(t *testing.T) {
	s := &model.Scenario{ScenarioID: "empty"}
	if err := CoerceScenario(s); err != nil {
		t.Fatalf("CoerceScenario: %v", err)
	}
	if s.Network.Bus == nil || s.Network.ACLine == nil || s.Network.SimpleDispatchableDevice == nil {
		t.Error("CoerceScenario left a nil member collection")
	}
}

func TestCoerceScenario_NilScenario(t *testing.T) {
	if err := CoerceScenario(nil); !errors.Is(err, ErrMalformedScenario) {
		t.Fatalf("CoerceScenario(nil): err = %v, want ErrMalformedScenario", err)
	}
}
