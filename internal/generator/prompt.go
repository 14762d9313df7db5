package generator

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/signalsfoundry/gridgen/model"
)

const systemPrompt = `You are a power systems engineer generating synthetic grid scenarios for research and testing.

Output rules:
- Return a single JSON object only - no prose, no markdown fences.
- The object must have scenario_id, name, description, and network fields.
- network must contain bus, ac_line, and simple_dispatchable_device arrays.
- Buses carry uid, base_nom_volt, vm (per-unit, nominal 1.0), and an initial_status object with vm and va.
- Lines carry uid, fr_bus, to_bus, r, x, b, and mva_ub_nom (thermal rating).
- Devices carry uid, bus, device_type ("producer" or "consumer"), a power setpoint (pg for producers, pd for consumers), and initial_status with p and q in per-unit.
- Every fr_bus, to_bus, and device bus must reference an existing bus uid.
- The topology must be connected.`

// basePromptTemplate mirrors the request section of the upstream prompt
// templates: network configuration first, then the operating-regime
// qualifiers.
const basePromptTemplate = `Generate a power grid scenario with the following specifications:

Network Configuration:
- Number of buses: {{.NumBuses}}
- Number of generators: {{.NumGenerators}}
- Number of loads: {{.NumLoads}}
- Peak load: {{printf "%.1f" .PeakLoad}} MW

Operating Profile:
- Voltage profile: {{.VoltageProfile}}
- Reliability level: {{.ReliabilityLevel}}
- Congestion level: {{.CongestionLevel}}

Physics requirements:
- All bus voltages must stay within 0.95 to 1.05 per-unit unless the voltage profile is "stressed".
- Total generation capacity must cover peak load with the reserve margin implied by the reliability level.
- Line thermal ratings must reflect the requested congestion level.
`

var basePrompt = template.Must(template.New("base").Parse(basePromptTemplate))

// BuildPrompt renders the user prompt for one generation request. Retrieved
// context scenarios, when present, are appended as reference examples so the
// model can imitate their structure and scale.
func BuildPrompt(params model.GenerationParameters, contextScenarios []*model.Scenario) (string, error) {
	var b strings.Builder
	if err := basePrompt.Execute(&b, params); err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}

	if len(contextScenarios) > 0 {
		b.WriteString("\nReference scenarios with similar parameters (imitate structure and scale, not identifiers):\n")
		for i, sc := range contextScenarios {
			doc, err := json.Marshal(sc)
			if err != nil {
				return "", fmt.Errorf("encode context scenario %q: %w", sc.Key(), err)
			}
			fmt.Fprintf(&b, "\nExample %d:\n%s\n", i+1, doc)
		}
	}

	return b.String(), nil
}

// extractJSON strips markdown fences and surrounding prose, returning the
// outermost JSON object in the completion. Models occasionally wrap output
// despite instructions.
func extractJSON(content string) (string, error) {
	start := strings.IndexByte(content, '{')
	end := strings.LastIndexByte(content, '}')
	if start < 0 || end <= start {
		return "", fmt.Errorf("no JSON object in completion (%d bytes)", len(content))
	}
	return content[start : end+1], nil
}
