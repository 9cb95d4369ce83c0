package orchestrator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleHealth_Idle(t *testing.T) {
	orch := New(Options{})
	srv := NewOpsServer(nil, orch, 0, nil)

	rec := httptest.NewRecorder()
	srv.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var snap Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "Idle", snap.State)
}

func TestHandleHealth_FailureStates(t *testing.T) {
	for _, state := range []State{StateBackendFailed, StateBackendTimeout, StateFrontendFailed} {
		orch := New(Options{})
		orch.transition(state)
		srv := NewOpsServer(nil, orch, 0, nil)

		rec := httptest.NewRecorder()
		srv.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, state.String())
	}
}

func TestHandleHealth_RunningIncludesPIDs(t *testing.T) {
	orch := New(Options{})
	orch.setBackend(newMockProcess(201))
	orch.setFrontend(newMockProcess(202))
	orch.transition(StateRunning)
	srv := NewOpsServer(nil, orch, 0, nil)

	rec := httptest.NewRecorder()
	srv.handleHealth(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)

	var snap Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &snap))
	assert.Equal(t, "Running", snap.State)
	assert.Equal(t, 201, snap.BackendPID)
	assert.Equal(t, 202, snap.FrontendPID)
}

func TestOpsServer_MetricsEndpoint(t *testing.T) {
	orch := New(Options{})
	collector := NewPrometheusCollector("test_ops")
	collector.StateTransition(StateIdle, StateBackendStarting)

	srv := NewOpsServer(nil, orch, 0, collector.Registry())

	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "test_ops_state_transitions_total")
}

func TestOpsServer_MetricsDisabledWithoutRegistry(t *testing.T) {
	orch := New(Options{})
	srv := NewOpsServer(nil, orch, 0, nil)

	rec := httptest.NewRecorder()
	srv.server.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestOpsServer_StartStop(t *testing.T) {
	orch := New(Options{})
	srv := NewOpsServer(nil, orch, 0, nil)
	srv.Start()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	srv.Stop(ctx)
}
