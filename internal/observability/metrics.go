package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PipelineCollector bundles Prometheus metrics for the generation/validation
// pipeline and the scenario library.
type PipelineCollector struct {
	gatherer prometheus.Gatherer

	// Requests counts finished generation requests by terminal state
	// (completed or failed).
	Requests *prometheus.CounterVec
	// StageDurations records per-stage latency.
	StageDurations *prometheus.HistogramVec
	// ValidationVerdicts counts aggregated verdicts by pass/fail.
	ValidationVerdicts *prometheus.CounterVec

	LibraryScenarios prometheus.Gauge
	LibraryResults   prometheus.Gauge
}

// NewPipelineCollector registers pipeline Prometheus metrics against the
// provided registerer, defaulting to the global Prometheus registry when nil.
func NewPipelineCollector(reg prometheus.Registerer) (*PipelineCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gridgen_requests_total",
		Help: "Total number of finished generation requests, labeled by terminal state.",
	}, []string{"state"})
	requests, err := registerCounterVec(reg, requests, "gridgen_requests_total")
	if err != nil {
		return nil, err
	}

	durations := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gridgen_stage_duration_seconds",
		Help:    "Pipeline stage latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"stage"})
	durations, err = registerHistogramVec(reg, durations, "gridgen_stage_duration_seconds")
	if err != nil {
		return nil, err
	}

	verdicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "gridgen_validation_verdicts_total",
		Help: "Aggregated validation verdicts, labeled by outcome (valid or invalid).",
	}, []string{"verdict"})
	verdicts, err = registerCounterVec(reg, verdicts, "gridgen_validation_verdicts_total")
	if err != nil {
		return nil, err
	}

	scenarios, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gridgen_library_scenarios",
		Help: "Current number of scenarios in the library.",
	}), "gridgen_library_scenarios")
	if err != nil {
		return nil, err
	}
	results, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "gridgen_library_results",
		Help: "Current number of stored validation results.",
	}), "gridgen_library_results")
	if err != nil {
		return nil, err
	}

	return &PipelineCollector{
		gatherer:           gatherer,
		Requests:           requests,
		StageDurations:     durations,
		ValidationVerdicts: verdicts,
		LibraryScenarios:   scenarios,
		LibraryResults:     results,
	}, nil
}

// ObserveStage records one stage execution. Safe on a nil collector so the
// pipeline can run unmetered in tests.
func (c *PipelineCollector) ObserveStage(stage string, elapsed time.Duration) {
	if c == nil || c.StageDurations == nil {
		return
	}
	c.StageDurations.WithLabelValues(stage).Observe(elapsed.Seconds())
}

// RequestFinished counts a terminal pipeline state.
func (c *PipelineCollector) RequestFinished(state string) {
	if c == nil || c.Requests == nil {
		return
	}
	c.Requests.WithLabelValues(state).Inc()
}

// VerdictRecorded counts an aggregated validation verdict.
func (c *PipelineCollector) VerdictRecorded(valid bool) {
	if c == nil || c.ValidationVerdicts == nil {
		return
	}
	verdict := "invalid"
	if valid {
		verdict = "valid"
	}
	c.ValidationVerdicts.WithLabelValues(verdict).Inc()
}

// SetLibraryCounts satisfies library.MetricsRecorder so the scenario library
// can drive gauge values directly from its mutators.
func (c *PipelineCollector) SetLibraryCounts(scenarios, results int) {
	if c == nil {
		return
	}
	if c.LibraryScenarios != nil {
		c.LibraryScenarios.Set(float64(scenarios))
	}
	if c.LibraryResults != nil {
		c.LibraryResults.Set(float64(results))
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *PipelineCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
