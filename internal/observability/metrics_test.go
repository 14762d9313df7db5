package observability

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name, labelValue string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetValue() == labelValue {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func gaugeValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	for _, mf := range families {
		if mf.GetName() == name {
			return mf.GetMetric()[0].GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestPipelineCollector_CountsAndGauges(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewPipelineCollector(reg)
	if err != nil {
		t.Fatalf("NewPipelineCollector: %v", err)
	}

	c.RequestFinished("completed")
	c.RequestFinished("completed")
	c.RequestFinished("failed")
	c.VerdictRecorded(true)
	c.VerdictRecorded(false)
	c.SetLibraryCounts(4, 2)

	if got := counterValue(t, reg, "gridgen_requests_total", "completed"); got != 2 {
		t.Errorf("completed requests = %g, want 2", got)
	}
	if got := counterValue(t, reg, "gridgen_requests_total", "failed"); got != 1 {
		t.Errorf("failed requests = %g, want 1", got)
	}
	if got := counterValue(t, reg, "gridgen_validation_verdicts_total", "valid"); got != 1 {
		t.Errorf("valid verdicts = %g, want 1", got)
	}
	if got := gaugeValue(t, reg, "gridgen_library_scenarios"); got != 4 {
		t.Errorf("library scenarios gauge = %g, want 4", got)
	}
	if got := gaugeValue(t, reg, "gridgen_library_results"); got != 2 {
		t.Errorf("library results gauge = %g, want 2", got)
	}
}

func TestPipelineCollector_StageHistogram(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewPipelineCollector(reg)
	if err != nil {
		t.Fatalf("NewPipelineCollector: %v", err)
	}

	c.ObserveStage("generating", 30*time.Millisecond)
	c.ObserveStage("generating", 70*time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	var hist *dto.Histogram
	for _, mf := range families {
		if mf.GetName() == "gridgen_stage_duration_seconds" {
			hist = mf.GetMetric()[0].GetHistogram()
		}
	}
	if hist == nil {
		t.Fatal("stage duration histogram not gathered")
	}
	if hist.GetSampleCount() != 2 {
		t.Errorf("sample count = %d, want 2", hist.GetSampleCount())
	}
}

func TestPipelineCollector_ReregistrationIsSafe(t *testing.T) {
	reg := prometheus.NewRegistry()
	if _, err := NewPipelineCollector(reg); err != nil {
		t.Fatalf("first NewPipelineCollector: %v", err)
	}
	// Re-registering against the same registry must reuse the existing
	// collectors instead of failing.
	c, err := NewPipelineCollector(reg)
	if err != nil {
		t.Fatalf("second NewPipelineCollector: %v", err)
	}
	c.RequestFinished("completed")
	if got := counterValue(t, reg, "gridgen_requests_total", "completed"); got != 1 {
		t.Errorf("completed requests = %g, want 1", got)
	}
}

func TestPipelineCollector_NilReceiverIsInert(t *testing.T) {
	var c *PipelineCollector
	c.ObserveStage("generating", time.Second)
	c.RequestFinished("completed")
	c.VerdictRecorded(true)
	c.SetLibraryCounts(1, 1)
}

func TestPipelineCollector_Handler(t *testing.T) {
	reg := prometheus.NewRegistry()
	c, err := NewPipelineCollector(reg)
	if err != nil {
		t.Fatalf("NewPipelineCollector: %v", err)
	}
	c.RequestFinished("completed")

	w := httptest.NewRecorder()
	c.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("metrics status = %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "gridgen_requests_total") {
		t.Errorf("metrics output missing gridgen_requests_total:\n%s", w.Body)
	}
}
