package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/signalsfoundry/gridgen/core"
	"github.com/signalsfoundry/gridgen/internal/generator"
	"github.com/signalsfoundry/gridgen/internal/logging"
	"github.com/signalsfoundry/gridgen/internal/observability"
	"github.com/signalsfoundry/gridgen/internal/retrieval"
	"github.com/signalsfoundry/gridgen/internal/solver"
	"github.com/signalsfoundry/gridgen/library"
	"github.com/signalsfoundry/gridgen/model"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/signalsfoundry/gridgen/internal/pipeline"

// maxContextScenarios caps how many retrieved scenarios are handed to the
// generator as examples.
const maxContextScenarios = 3

// maxRetainedRuns bounds the run history kept for Snapshot lookups. Once the
// cap is exceeded the oldest finished runs are evicted; in-flight runs are
// never evicted.
const maxRetainedRuns = 1024

// Config carries the collaborators an Orchestrator needs. Store, Generator,
// Physics, and Simulator are required; Retriever and Collector are optional.
type Config struct {
	Store     library.Store
	Retriever *retrieval.Retriever
	Generator generator.Generator
	Physics   core.PhysicsChecker
	Simulator solver.Simulator
	Collector *observability.PipelineCollector
	Logger    logging.Logger
}

// Outcome is the product of a finished pipeline run.
type Outcome struct {
	RunID    string                 `json:"run_id"`
	Scenario *model.Scenario        `json:"scenario"`
	Result   model.ValidationResult `json:"result"`
}

// Orchestrator drives scenarios through retrieval, generation, validation,
// and persistence. Each call to Generate or ValidateScenario is a separate
// run with its own observable state; runs stay queryable after completion.
type Orchestrator struct {
	cfg Config
	log logging.Logger

	mu      sync.RWMutex
	runs    map[string]*Run
	order   []string
	maxRuns int
}

// NewOrchestrator validates the configuration and returns an Orchestrator.
func NewOrchestrator(cfg Config) (*Orchestrator, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("pipeline: Store is required")
	}
	if cfg.Generator == nil {
		return nil, fmt.Errorf("pipeline: Generator is required")
	}
	if cfg.Physics == nil {
		return nil, fmt.Errorf("pipeline: Physics is required")
	}
	if cfg.Simulator == nil {
		return nil, fmt.Errorf("pipeline: Simulator is required")
	}
	log := cfg.Logger
	if log == nil {
		log = logging.Noop()
	}
	return &Orchestrator{
		cfg:     cfg,
		log:     log,
		runs:    make(map[string]*Run),
		maxRuns: maxRetainedRuns,
	}, nil
}

// Snapshot reports the state of a run by ID.
func (o *Orchestrator) Snapshot(runID string) (Snapshot, error) {
	o.mu.RLock()
	run, ok := o.runs[runID]
	o.mu.RUnlock()
	if !ok {
		return Snapshot{}, ErrRunNotFound
	}
	return run.Snapshot(), nil
}

// Generate runs the full pipeline: normalize parameters, retrieve context,
// generate a scenario, validate it, and record the outcome. Retrieval
// failure degrades to generation without context; generation and parameter
// errors fail the run.
func (o *Orchestrator) Generate(ctx context.Context, params model.GenerationParameters, observers ...func(Snapshot)) (*Outcome, error) {
	run := o.newRun(observers...)
	log := o.log.With(logging.String("run_id", run.ID()))

	var normalized model.GenerationParameters
	err := o.stage(ctx, run, StateInitializing, func(ctx context.Context) error {
		var err error
		normalized, err = params.Normalized()
		return err
	})
	if err != nil {
		return nil, o.finishFailed(ctx, run, log, err)
	}

	// RetrievingContext is skipped entirely when the request asks for no
	// context or no retriever is wired; the run moves straight to Generating.
	var contextScenarios []*model.Scenario
	if normalized.IncludeContext && o.cfg.Retriever != nil {
		err = o.stage(ctx, run, StateRetrievingContext, func(ctx context.Context) error {
			contextScenarios = o.retrieveContext(ctx, log, normalized)
			return nil
		})
		if err != nil {
			return nil, o.finishFailed(ctx, run, log, err)
		}
	}

	var scenario *model.Scenario
	err = o.stage(ctx, run, StateGenerating, func(ctx context.Context) error {
		var err error
		scenario, err = o.cfg.Generator.Generate(ctx, normalized, contextScenarios)
		if err != nil {
			return fmt.Errorf("%w: %v", generator.ErrGeneration, err)
		}
		return nil
	})
	if err != nil {
		return nil, o.finishFailed(ctx, run, log, err)
	}
	run.setScenarioID(scenario.Key())

	return o.validateAndRecord(ctx, run, log, scenario)
}

// ValidateScenario runs the validation half of the pipeline against a
// caller-supplied scenario, skipping retrieval and generation entirely.
func (o *Orchestrator) ValidateScenario(ctx context.Context, scenario *model.Scenario, observers ...func(Snapshot)) (*Outcome, error) {
	if scenario == nil {
		return nil, fmt.Errorf("%w: nil scenario", core.ErrMalformedScenario)
	}
	run := o.newRun(observers...)
	run.setScenarioID(scenario.Key())
	log := o.log.With(
		logging.String("run_id", run.ID()),
		logging.String("scenario_id", scenario.Key()),
	)
	return o.validateAndRecord(ctx, run, log, scenario)
}

func (o *Orchestrator) validateAndRecord(ctx context.Context, run *Run, log logging.Logger, scenario *model.Scenario) (*Outcome, error) {
	var result model.ValidationResult
	err := o.stage(ctx, run, StateValidating, func(ctx context.Context) error {
		physics := o.cfg.Physics.Check(scenario)
		run.advance(70)

		circuit, simErr := o.cfg.Simulator.Simulate(ctx, scenario)
		if simErr != nil {
			log.Warn(ctx, "circuit simulation failed; recording synthetic failure",
				logging.Err(simErr))
			circuit = nil
		}

		result = core.Aggregate(scenario.Key(), physics, circuit)
		return nil
	})
	if err != nil {
		return nil, o.finishFailed(ctx, run, log, err)
	}

	err = o.stage(ctx, run, StateFinalizing, func(ctx context.Context) error {
		if err := o.cfg.Store.AddScenario(ctx, scenario); err != nil && !errors.Is(err, library.ErrScenarioExists) {
			return fmt.Errorf("store scenario: %w", err)
		}
		run.advance(95)
		if err := o.cfg.Store.RecordResult(ctx, result); err != nil {
			return fmt.Errorf("record result: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, o.finishFailed(ctx, run, log, err)
	}

	run.transition(StateCompleted)
	if o.cfg.Collector != nil {
		o.cfg.Collector.RequestFinished(string(StateCompleted))
		o.cfg.Collector.VerdictRecorded(result.IsValid)
	}
	log.Info(ctx, "pipeline run completed",
		logging.String("scenario_id", result.ScenarioID),
		logging.Bool("is_valid", result.IsValid),
	)

	return &Outcome{RunID: run.ID(), Scenario: scenario, Result: result}, nil
}

// retrieveContext fetches similar scenarios, tolerating retrieval failure.
// It returns nil when the retrieval source is unreachable.
func (o *Orchestrator) retrieveContext(ctx context.Context, log logging.Logger, params model.GenerationParameters) []*model.Scenario {
	seq, err := o.cfg.Retriever.Retrieve(ctx, params, params.SimilarityThreshold)
	if err != nil {
		if errors.Is(err, retrieval.ErrUnavailable) {
			log.Warn(ctx, "context retrieval unavailable; generating without context",
				logging.Err(err))
		} else {
			log.Warn(ctx, "context retrieval failed; generating without context",
				logging.Err(err))
		}
		return nil
	}

	var scenarios []*model.Scenario
	for s := range seq {
		scenarios = append(scenarios, s)
		if len(scenarios) >= maxContextScenarios {
			break
		}
	}
	log.Debug(ctx, "context retrieved", logging.Int("scenarios", len(scenarios)))
	return scenarios
}

// stage moves the run into a state and executes fn under a span, checking
// for context cancellation at the stage boundary first.
func (o *Orchestrator) stage(ctx context.Context, run *Run, state State, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("pipeline canceled before %s: %w", state, err)
	}

	run.transition(state)

	tracer := otel.Tracer(tracerName)
	ctx, span := tracer.Start(ctx, "Pipeline/"+string(state),
		trace.WithAttributes(
			attribute.String("run_id", run.ID()),
			attribute.String("pipeline.state", string(state)),
		))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	if o.cfg.Collector != nil {
		o.cfg.Collector.ObserveStage(string(state), time.Since(start))
	}
	if err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

func (o *Orchestrator) newRun(observers ...func(Snapshot)) *Run {
	run := newRun(uuid.NewString())
	for _, fn := range observers {
		if fn != nil {
			run.Observe(fn)
		}
	}
	o.mu.Lock()
	o.runs[run.ID()] = run
	o.order = append(o.order, run.ID())
	o.evictLocked()
	o.mu.Unlock()
	return run
}

// evictLocked drops the oldest finished runs until the history fits the cap.
func (o *Orchestrator) evictLocked() {
	if len(o.runs) <= o.maxRuns {
		return
	}
	kept := o.order[:0]
	for _, id := range o.order {
		run, ok := o.runs[id]
		if !ok {
			continue
		}
		if len(o.runs) > o.maxRuns && run.finished() {
			delete(o.runs, id)
			continue
		}
		kept = append(kept, id)
	}
	o.order = kept
}

func (o *Orchestrator) finishFailed(ctx context.Context, run *Run, log logging.Logger, err error) error {
	run.fail(err)
	if o.cfg.Collector != nil {
		o.cfg.Collector.RequestFinished(string(StateFailed))
	}
	log.Error(ctx, "pipeline run failed", logging.Err(err))
	return err
}
