package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// OpsServer exposes the orchestrator's health and metrics over HTTP while
// the stack runs. It is optional and off by default; deployments that want
// scraping set OPS_PORT.
type OpsServer struct {
	logger *zap.Logger
	orch   *Orchestrator
	server *http.Server
}

// NewOpsServer creates an ops server bound to the given port. registry may
// be nil, in which case /metrics is not served.
func NewOpsServer(logger *zap.Logger, orch *Orchestrator, port int, registry *prometheus.Registry) *OpsServer {
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	os := &OpsServer{
		logger: logger,
		orch:   orch,
		server: &http.Server{
			Addr:              fmt.Sprintf(":%d", port),
			Handler:           mux,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}

	mux.HandleFunc("/health", os.handleHealth)
	if registry != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	return os
}

// Start serves in a background goroutine until Stop or process exit.
func (s *OpsServer) Start() {
	go func() {
		s.logger.Info("ops server listening", zap.String("addr", s.server.Addr))
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// The orchestration result does not depend on the ops surface.
			s.logger.Error("ops server error", zap.Error(err))
		}
	}()
}

// Stop shuts the server down gracefully.
func (s *OpsServer) Stop(ctx context.Context) {
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Warn("ops server shutdown error", zap.Error(err))
	}
}

func (s *OpsServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	snap := s.orch.Snapshot()

	status := http.StatusOK
	switch s.orch.State() {
	case StateBackendFailed, StateBackendTimeout, StateFrontendFailed:
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(snap); err != nil {
		s.logger.Warn("health response encode error", zap.Error(err))
	}
}
