package solver

import (
	"fmt"
	"os"
	"strings"

	"github.com/signalsfoundry/gridgen/model"
)

// RenderScript renders a scenario into an OpenDSS command script. Deployments
// that run a real OpenDSS process compile this script instead of using the
// built-in Engine; the command sequence matches what the solver expects:
// Clear, New Circuit, solver settings, then buses, lines, transformers,
// generators, and loads in that order.
func RenderScript(s *model.Scenario) string {
	var b strings.Builder

	lines := []string{
		"Clear",
		"New Circuit.Scenario",
		"Set DefaultBaseFrequency=60",
		"Set VoltageBases=[115, 12.47]",
		"Set MaxControlIterations=100",
		"Set MaxIterations=100",
	}
	for _, l := range lines {
		b.WriteString(l)
		b.WriteByte('\n')
	}

	for _, bus := range s.Network.Bus {
		va := 0.0
		if bus.InitialStatus != nil && bus.InitialStatus.Va != nil {
			va = *bus.InitialStatus.Va
		}
		fmt.Fprintf(&b, "New Bus.%s BasekV=%g kV=%g Angle=%g\n",
			bus.UID, bus.BaseNomVolt, bus.Voltage(), va)
	}

	for _, line := range s.Network.ACLine {
		fmt.Fprintf(&b, "New Line.%s Bus1=%s Bus2=%s R1=%g X1=%g B1=%g NormAmps=%g EmergAmps=%g\n",
			line.UID, line.FrBus, line.ToBus, line.R, line.X, line.B, line.MVAUBNom, line.MVAUBEm)
	}

	for _, xfmr := range s.Network.TwoWindingTransformer {
		fmt.Fprintf(&b, "New Transformer.%s Bus1=%s Bus2=%s R1=%g X1=%g B1=%g NormAmps=%g EmergAmps=%g\n",
			xfmr.UID, xfmr.FrBus, xfmr.ToBus, xfmr.R, xfmr.X, xfmr.B, xfmr.MVAUBNom, xfmr.MVAUBEm)
	}

	for _, dev := range s.Network.SimpleDispatchableDevice {
		p, q := dev.Setpoint(), 0.0
		if dev.InitialStatus != nil && dev.InitialStatus.Q != nil {
			q = *dev.InitialStatus.Q
		}
		switch dev.DeviceType {
		case model.DeviceProducer:
			fmt.Fprintf(&b, "New Generator.%s Bus1=%s kW=%g kvar=%g\n", dev.UID, dev.Bus, p, q)
		case model.DeviceConsumer:
			fmt.Fprintf(&b, "New Load.%s Bus1=%s kW=%g kvar=%g\n", dev.UID, dev.Bus, p, q)
		}
	}

	b.WriteString("Solve\n")
	return b.String()
}

// WriteScriptFile renders the scenario and writes the script to path.
func WriteScriptFile(s *model.Scenario, path string) error {
	if err := os.WriteFile(path, []byte(RenderScript(s)), 0o644); err != nil {
		return fmt.Errorf("write dss script: %w", err)
	}
	return nil
}
