package pipeline

import (
	"fmt"
	"sync"
)

// State names a phase of the generation pipeline. A run moves strictly
// forward through the states; the only branches are the terminal pair
// Completed/Failed.
type State string

const (
	StateIdle              State = "idle"
	StateInitializing      State = "initializing"
	StateRetrievingContext State = "retrieving_context"
	StateGenerating        State = "generating"
	StateValidating        State = "validating"
	StateFinalizing        State = "finalizing"
	StateCompleted         State = "completed"
	StateFailed            State = "failed"
)

// progressAnchor maps each working state to the minimum progress value a
// run reports once it enters that state. Progress never decreases, so a
// run that skips early states (scenario upload) starts from the anchor of
// its entry state.
var progressAnchor = map[State]int{
	StateIdle:              0,
	StateInitializing:      5,
	StateRetrievingContext: 15,
	StateGenerating:        30,
	StateValidating:        55,
	StateFinalizing:        85,
	StateCompleted:         100,
}

// Snapshot is a point as-of-now view of a run, safe to hand to callers
// without exposing run internals.
type Snapshot struct {
	RunID      string `json:"run_id"`
	State      State  `json:"state"`
	Progress   int    `json:"progress"`
	ScenarioID string `json:"scenario_id,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Run tracks the observable state of a single pipeline execution.
type Run struct {
	mu         sync.RWMutex
	id         string
	state      State
	progress   int
	scenarioID string
	err        error
	observers  []func(Snapshot)
}

func newRun(id string) *Run {
	return &Run{id: id, state: StateIdle}
}

// ID returns the run identifier.
func (r *Run) ID() string { return r.id }

// Snapshot returns the run's current state, progress, and outcome.
func (r *Run) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.snapshotLocked()
}

func (r *Run) snapshotLocked() Snapshot {
	snap := Snapshot{
		RunID:      r.id,
		State:      r.state,
		Progress:   r.progress,
		ScenarioID: r.scenarioID,
	}
	if r.err != nil {
		snap.Error = r.err.Error()
	}
	return snap
}

// Observe registers a callback invoked after every state or progress
// change. Callbacks run outside the run's lock.
func (r *Run) Observe(fn func(Snapshot)) {
	r.mu.Lock()
	r.observers = append(r.observers, fn)
	r.mu.Unlock()
}

// transition moves the run to a new state and raises progress to that
// state's anchor. Progress is clamped so it never moves backwards.
func (r *Run) transition(next State) {
	r.mu.Lock()
	r.state = next
	if anchor, ok := progressAnchor[next]; ok && anchor > r.progress {
		r.progress = anchor
	}
	snap := r.snapshotLocked()
	observers := r.observers
	r.mu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}
}

// advance raises progress within the current state. Values below the
// current progress are ignored.
func (r *Run) advance(progress int) {
	r.mu.Lock()
	if progress <= r.progress {
		r.mu.Unlock()
		return
	}
	r.progress = progress
	snap := r.snapshotLocked()
	observers := r.observers
	r.mu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}
}

// finished reports whether the run reached a terminal state.
func (r *Run) finished() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.state == StateCompleted || r.state == StateFailed
}

func (r *Run) setScenarioID(id string) {
	r.mu.Lock()
	r.scenarioID = id
	r.mu.Unlock()
}

// fail marks the run Failed, keeping whatever progress it had reached.
func (r *Run) fail(err error) {
	r.mu.Lock()
	r.state = StateFailed
	r.err = err
	snap := r.snapshotLocked()
	observers := r.observers
	r.mu.Unlock()

	for _, fn := range observers {
		fn(snap)
	}
}

// ErrRunNotFound is returned when a run identifier is unknown.
var ErrRunNotFound = fmt.Errorf("pipeline: run not found")
