package library

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/signalsfoundry/gridgen/model"
)

var (
	// ErrScenarioExists indicates a scenario with the same key is already stored.
	ErrScenarioExists = errors.New("scenario already exists")
	// ErrScenarioNotFound indicates a requested scenario was not found.
	ErrScenarioNotFound = errors.New("scenario not found")
	// ErrResultNotFound indicates no validation result is stored for a scenario.
	ErrResultNotFound = errors.New("validation result not found")
)

// EventType indicates what kind of change happened in the library.
type EventType int

const (
	EventScenarioAdded EventType = iota
	EventResultRecorded
)

// Event is emitted to subscribers when the library changes.
type Event struct {
	Type       EventType
	ScenarioID string
}

// Store is the persistence contract the pipeline and API depend on. The
// in-memory Library is the default; PostgresStore offers the same surface
// backed by a database.
type Store interface {
	AddScenario(ctx context.Context, s *model.Scenario) error
	GetScenario(ctx context.Context, id string) (*model.Scenario, error)
	ListScenarios(ctx context.Context) ([]*model.Scenario, error)
	RecordResult(ctx context.Context, r model.ValidationResult) error
	GetResult(ctx context.Context, scenarioID string) (*model.ValidationResult, error)
}

// MetricsRecorder receives count updates for stored entities.
type MetricsRecorder interface {
	SetLibraryCounts(scenarios, results int)
}

// Library is an in-memory, thread-safe store for scenarios and their latest
// validation results.
type Library struct {
	mu sync.RWMutex

	scenarios map[string]*model.Scenario
	results   map[string]model.ValidationResult

	subs    map[int]func(Event)
	nextSub int
	metrics MetricsRecorder
}

// Option customises a Library at construction.
type Option func(*Library)

// WithMetricsRecorder wires gauge updates into the library's mutators.
func WithMetricsRecorder(m MetricsRecorder) Option {
	return func(l *Library) { l.metrics = m }
}

// New constructs an empty Library.
func New(opts ...Option) *Library {
	l := &Library{
		scenarios: make(map[string]*model.Scenario),
		results:   make(map[string]model.ValidationResult),
		subs:      make(map[int]func(Event)),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// AddScenario stores a scenario under its natural key. It returns an error
// when the key is empty or already taken; scenarios are immutable once
// stored, so there is no update path.
func (l *Library) AddScenario(_ context.Context, s *model.Scenario) error {
	if s == nil || s.Key() == "" {
		return fmt.Errorf("%w: scenario key is required", ErrScenarioNotFound)
	}

	l.mu.Lock()
	key := s.Key()
	if _, exists := l.scenarios[key]; exists {
		l.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrScenarioExists, key)
	}
	l.scenarios[key] = s
	subs, event := l.snapshotSubsLocked(Event{Type: EventScenarioAdded, ScenarioID: key})
	l.updateCountsLocked()
	l.mu.Unlock()

	// Notify subscribers outside the lock to avoid deadlocks.
	for _, sub := range subs {
		sub(event)
	}
	return nil
}

// GetScenario returns the scenario stored under id.
func (l *Library) GetScenario(_ context.Context, id string) (*model.Scenario, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	s, ok := l.scenarios[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrScenarioNotFound, id)
	}
	return s, nil
}

// ListScenarios returns a snapshot slice of all scenarios, ordered by key so
// listings are deterministic.
func (l *Library) ListScenarios(_ context.Context) ([]*model.Scenario, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	res := make([]*model.Scenario, 0, len(l.scenarios))
	for _, s := range l.scenarios {
		res = append(res, s)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].Key() < res[j].Key() })
	return res, nil
}

// RecordResult stores the latest validation result for a scenario. Results
// are immutable values; a re-validation replaces the stored copy wholesale.
func (l *Library) RecordResult(_ context.Context, r model.ValidationResult) error {
	if r.ScenarioID == "" {
		return fmt.Errorf("%w: result without scenario_id", ErrResultNotFound)
	}

	l.mu.Lock()
	l.results[r.ScenarioID] = r
	subs, event := l.snapshotSubsLocked(Event{Type: EventResultRecorded, ScenarioID: r.ScenarioID})
	l.updateCountsLocked()
	l.mu.Unlock()

	for _, sub := range subs {
		sub(event)
	}
	return nil
}

// GetResult returns a copy of the latest validation result for scenarioID.
func (l *Library) GetResult(_ context.Context, scenarioID string) (*model.ValidationResult, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.results[scenarioID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrResultNotFound, scenarioID)
	}
	return &r, nil
}

// Subscribe registers a callback for library events. It returns an
// unsubscribe function. Subscribers are keyed by token, so unsubscribing
// one never disturbs the others.
func (l *Library) Subscribe(fn func(Event)) (unsubscribe func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextSub
	l.nextSub++
	l.subs[id] = fn

	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.subs, id)
	}
}

func (l *Library) snapshotSubsLocked(e Event) ([]func(Event), Event) {
	subs := make([]func(Event), 0, len(l.subs))
	for _, fn := range l.subs {
		subs = append(subs, fn)
	}
	return subs, e
}

func (l *Library) updateCountsLocked() {
	if l.metrics != nil {
		l.metrics.SetLibraryCounts(len(l.scenarios), len(l.results))
	}
}
