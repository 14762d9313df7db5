package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/signalsfoundry/gridgen/core"
	"github.com/signalsfoundry/gridgen/internal/generator"
	"github.com/signalsfoundry/gridgen/internal/pipeline"
	"github.com/signalsfoundry/gridgen/library"
	"github.com/signalsfoundry/gridgen/model"
)

// StatusFromError maps pipeline and storage errors onto HTTP status codes.
func StatusFromError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK

	case errors.Is(err, model.ErrInvalidParameters),
		errors.Is(err, core.ErrMalformedScenario):
		return http.StatusBadRequest

	case errors.Is(err, library.ErrScenarioNotFound),
		errors.Is(err, library.ErrResultNotFound),
		errors.Is(err, pipeline.ErrRunNotFound):
		return http.StatusNotFound

	case errors.Is(err, library.ErrScenarioExists):
		return http.StatusConflict

	case errors.Is(err, generator.ErrGeneration):
		return http.StatusBadGateway

	case errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout

	default:
		return http.StatusInternalServerError
	}
}
