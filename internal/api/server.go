package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/signalsfoundry/gridgen/core"
	"github.com/signalsfoundry/gridgen/internal/logging"
	"github.com/signalsfoundry/gridgen/internal/observability"
	"github.com/signalsfoundry/gridgen/internal/pipeline"
	"github.com/signalsfoundry/gridgen/library"
	"github.com/signalsfoundry/gridgen/model"
)

// Server exposes the generation pipeline and the scenario library over HTTP.
type Server struct {
	orchestrator *pipeline.Orchestrator
	store        library.Store
	collector    *observability.PipelineCollector
	log          logging.Logger
}

// NewServer wires a Server. The collector is optional; when present the
// router also serves /metrics.
func NewServer(orch *pipeline.Orchestrator, store library.Store, collector *observability.PipelineCollector, log logging.Logger) *Server {
	if log == nil {
		log = logging.Noop()
	}
	return &Server{
		orchestrator: orch,
		store:        store,
		collector:    collector,
		log:          log,
	}
}

// Router builds the gin engine with all routes and middleware attached.
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID())
	router.Use(AccessLog(s.log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.collector != nil {
		router.GET("/metrics", gin.WrapH(s.collector.Handler()))
	}

	api := router.Group("/api/v1")
	{
		api.POST("/scenarios/generate", s.generateScenario)
		api.POST("/scenarios/validate", s.validateScenario)
		api.GET("/scenarios", s.listScenarios)
		api.GET("/scenarios/:id", s.getScenario)
		api.GET("/scenarios/:id/result", s.getResult)
		api.GET("/runs/:id", s.getRun)
	}

	return router
}

func (s *Server) generateScenario(c *gin.Context) {
	var params model.GenerationParameters
	if err := c.ShouldBindJSON(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid generation parameters: " + err.Error()})
		return
	}

	outcome, err := s.orchestrator.Generate(c.Request.Context(), params)
	if err != nil {
		s.log.Warn(c.Request.Context(), "generation request failed", logging.Err(err))
		c.JSON(StatusFromError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (s *Server) validateScenario(c *gin.Context) {
	scenario, err := core.LoadScenario(c.Request.Body)
	if err != nil {
		c.JSON(StatusFromError(err), gin.H{"error": err.Error()})
		return
	}

	outcome, err := s.orchestrator.ValidateScenario(c.Request.Context(), scenario)
	if err != nil {
		s.log.Warn(c.Request.Context(), "validation request failed", logging.Err(err))
		c.JSON(StatusFromError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (s *Server) listScenarios(c *gin.Context) {
	scenarios, err := s.store.ListScenarios(c.Request.Context())
	if err != nil {
		c.JSON(StatusFromError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"scenarios": scenarios, "count": len(scenarios)})
}

func (s *Server) getScenario(c *gin.Context) {
	scenario, err := s.store.GetScenario(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(StatusFromError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, scenario)
}

func (s *Server) getResult(c *gin.Context) {
	result, err := s.store.GetResult(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(StatusFromError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) getRun(c *gin.Context) {
	snap, err := s.orchestrator.Snapshot(c.Param("id"))
	if err != nil {
		c.JSON(StatusFromError(err), gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snap)
}
