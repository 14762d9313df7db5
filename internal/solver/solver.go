// Package solver wraps circuit simulation for grid scenarios. The Simulator
// interface is the boundary the pipeline depends on; Engine is the built-in
// linearized implementation, and RenderScript produces an OpenDSS command
// script for deployments that run a real solver out of process.
package solver

import (
	"context"
	"errors"

	"github.com/signalsfoundry/gridgen/model"
)

var (
	// ErrSolver indicates an internal solver fault (malformed network,
	// numerical failure). Callers above the validation boundary translate it
	// into a failing circuit result rather than propagating it.
	ErrSolver = errors.New("solver error")
	// ErrNotConverged indicates the power-flow iteration did not converge.
	ErrNotConverged = errors.New("power flow did not converge")
)

// Simulator runs an AC power-flow validation of one scenario. Success in the
// returned result reflects convergence plus operating limits under the
// solver's own tolerance.
//
// Implementations return an error only for internal faults; electrical
// infeasibility is an expected outcome reported through the result.
type Simulator interface {
	Simulate(ctx context.Context, s *model.Scenario) (*model.CircuitValidation, error)
}
