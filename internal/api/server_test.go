package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/signalsfoundry/gridgen/core"
	"github.com/signalsfoundry/gridgen/internal/generator"
	"github.com/signalsfoundry/gridgen/internal/pipeline"
	"github.com/signalsfoundry/gridgen/internal/solver"
	"github.com/signalsfoundry/gridgen/library"
	"github.com/signalsfoundry/gridgen/model"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer(t *testing.T) (*Server, library.Store) {
	t.Helper()
	store := library.New()
	orch, err := pipeline.NewOrchestrator(pipeline.Config{
		Store:     store,
		Generator: generator.NewSyntheticGenerator(),
		Physics:   core.RuleBasedPhysics{},
		Simulator: solver.NewEngine(),
	})
	if err != nil {
		t.Fatalf("NewOrchestrator: %v", err)
	}
	return NewServer(orch, store, nil, nil), store
}

func doRequest(t *testing.T, srv *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	w := httptest.NewRecorder()
	srv.Router().ServeHTTP(w, req)
	return w
}

func TestGenerateEndpoint(t *testing.T) {
	srv, store := newTestServer(t)

	w := doRequest(t, srv, http.MethodPost, "/api/v1/scenarios/generate",
		`{"num_buses": 3, "num_generators": 2, "num_loads": 1, "peak_load": 100}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}

	var outcome struct {
		RunID    string          `json:"run_id"`
		Scenario *model.Scenario `json:"scenario"`
		Result   json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if outcome.RunID == "" || outcome.Scenario == nil {
		t.Fatalf("incomplete outcome: %s", w.Body)
	}

	// The wire shape carries both validation blocks and the success mirror.
	var result map[string]any
	if err := json.Unmarshal(outcome.Result, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	for _, field := range []string{"scenario_id", "is_valid", "physics_validation", "opendss_validation", "opendss_success"} {
		if _, ok := result[field]; !ok {
			t.Errorf("result missing %q: %s", field, outcome.Result)
		}
	}

	// The scenario is queryable afterwards.
	if _, err := store.GetScenario(httptest.NewRequest(http.MethodGet, "/", nil).Context(), outcome.Scenario.Key()); err != nil {
		t.Errorf("stored scenario not found: %v", err)
	}
}

func TestGenerateEndpoint_BadParameters(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(t, srv, http.MethodPost, "/api/v1/scenarios/generate", `{"num_buses": 0}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body = %s", w.Code, w.Body)
	}

	w = doRequest(t, srv, http.MethodPost, "/api/v1/scenarios/generate", `{not json`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status for malformed body = %d, want 400", w.Code)
	}
}

func TestValidateEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	doc := `{
	  "scenario_id": "upload-1",
	  "network": {
	    "bus": [{"uid": "Bus1", "vm": 1.0}],
	    "ac_line": [],
	    "simple_dispatchable_device": [
	      {"uid": "Gen1", "bus": "Bus1", "device_type": "producer", "pg": 100}
	    ]
	  }
	}`
	w := doRequest(t, srv, http.MethodPost, "/api/v1/scenarios/validate", doc)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body)
	}

	var outcome struct {
		Result model.ValidationResult `json:"result"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if outcome.Result.ScenarioID != "upload-1" || !outcome.Result.IsValid {
		t.Errorf("result = %+v", outcome.Result)
	}
}

func TestValidateEndpoint_MalformedScenario(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(t, srv, http.MethodPost, "/api/v1/scenarios/validate",
		`{"scenario_id": "x", "network": {"bus": [{"vm": 1.0}]}}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body = %s", w.Code, w.Body)
	}
}

func TestScenarioLookupEndpoints(t *testing.T) {
	srv, store := newTestServer(t)
	ctx := httptest.NewRequest(http.MethodGet, "/", nil).Context()

	s := &model.Scenario{ScenarioID: "s1", Name: "Stored"}
	if err := store.AddScenario(ctx, s); err != nil {
		t.Fatalf("AddScenario: %v", err)
	}
	if err := store.RecordResult(ctx, model.ValidationResult{ScenarioID: "s1", IsValid: true}); err != nil {
		t.Fatalf("RecordResult: %v", err)
	}

	w := doRequest(t, srv, http.MethodGet, "/api/v1/scenarios", "")
	if w.Code != http.StatusOK {
		t.Fatalf("list status = %d", w.Code)
	}
	var listing struct {
		Count int `json:"count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &listing); err != nil {
		t.Fatalf("decode listing: %v", err)
	}
	if listing.Count != 1 {
		t.Errorf("count = %d, want 1", listing.Count)
	}

	if w := doRequest(t, srv, http.MethodGet, "/api/v1/scenarios/s1", ""); w.Code != http.StatusOK {
		t.Errorf("get status = %d", w.Code)
	}
	if w := doRequest(t, srv, http.MethodGet, "/api/v1/scenarios/s1/result", ""); w.Code != http.StatusOK {
		t.Errorf("result status = %d", w.Code)
	}

	if w := doRequest(t, srv, http.MethodGet, "/api/v1/scenarios/missing", ""); w.Code != http.StatusNotFound {
		t.Errorf("missing scenario status = %d, want 404", w.Code)
	}
	if w := doRequest(t, srv, http.MethodGet, "/api/v1/scenarios/missing/result", ""); w.Code != http.StatusNotFound {
		t.Errorf("missing result status = %d, want 404", w.Code)
	}
}

func TestRunEndpoint(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(t, srv, http.MethodPost, "/api/v1/scenarios/generate",
		`{"num_buses": 2, "num_generators": 1, "num_loads": 1}`)
	if w.Code != http.StatusOK {
		t.Fatalf("generate status = %d", w.Code)
	}
	var outcome struct {
		RunID string `json:"run_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &outcome); err != nil {
		t.Fatalf("decode: %v", err)
	}

	w = doRequest(t, srv, http.MethodGet, "/api/v1/runs/"+outcome.RunID, "")
	if w.Code != http.StatusOK {
		t.Fatalf("run status = %d", w.Code)
	}
	var snap pipeline.Snapshot
	if err := json.Unmarshal(w.Body.Bytes(), &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.State != pipeline.StateCompleted || snap.Progress != 100 {
		t.Errorf("snapshot = %+v", snap)
	}

	if w := doRequest(t, srv, http.MethodGet, "/api/v1/runs/unknown", ""); w.Code != http.StatusNotFound {
		t.Errorf("unknown run status = %d, want 404", w.Code)
	}
}

func TestHealthAndRequestID(t *testing.T) {
	srv, _ := newTestServer(t)

	w := doRequest(t, srv, http.MethodGet, "/health", "")
	if w.Code != http.StatusOK {
		t.Fatalf("health status = %d", w.Code)
	}
	if w.Header().Get("X-Request-Id") == "" {
		t.Error("response missing X-Request-Id header")
	}

	// A client-supplied request ID is echoed back.
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-Id", "client-7")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if got := rec.Header().Get("X-Request-Id"); got != "client-7" {
		t.Errorf("X-Request-Id = %q, want client-7", got)
	}
}

func TestStatusFromError(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{core.ErrMalformedScenario, http.StatusBadRequest},
		{model.ErrInvalidParameters, http.StatusBadRequest},
		{library.ErrScenarioNotFound, http.StatusNotFound},
		{library.ErrResultNotFound, http.StatusNotFound},
		{pipeline.ErrRunNotFound, http.StatusNotFound},
		{library.ErrScenarioExists, http.StatusConflict},
		{generator.ErrGeneration, http.StatusBadGateway},
		{nil, http.StatusOK},
	}
	for _, tc := range cases {
		if got := StatusFromError(tc.err); got != tc.want {
			t.Errorf("StatusFromError(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
