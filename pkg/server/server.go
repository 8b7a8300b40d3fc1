// Package server provides the admin and observability HTTP server: health,
// Prometheus metrics and read-only hierarchy introspection. There is no
// mutation API; attachments are managed through the library API and the
// manifest.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"

	"mercator-hq/callisto/pkg/config"
	"mercator-hq/callisto/pkg/hierarchy"
	"mercator-hq/callisto/pkg/telemetry/metrics"
)

// Server is the admin HTTP server.
type Server struct {
	config     *config.ServerConfig
	engine     *hierarchy.Engine
	collector  *metrics.Collector
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates the admin server. The collector may be nil, in which
// case no metrics endpoint is mounted.
func NewServer(cfg *config.ServerConfig, metricsCfg *config.MetricsConfig, engine *hierarchy.Engine, collector *metrics.Collector) *Server {
	s := &Server{
		config:    cfg,
		engine:    engine,
		collector: collector,
		logger:    slog.Default().With("component", "server"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /v1/nodes", s.handleNodes)
	mux.HandleFunc("GET /v1/nodes/{id}/effective", s.handleEffective)
	if collector != nil && metricsCfg.Enabled {
		mux.Handle("GET "+metricsCfg.Path, collector.Handler())
	}

	s.httpServer = &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// Start runs the server until ctx is cancelled, then shuts down gracefully
// within the configured shutdown timeout.
func (s *Server) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("admin server listening", "address", s.config.ListenAddress)
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("admin server failed: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.config.ShutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("admin server shutdown failed: %w", err)
	}
	s.logger.Info("admin server stopped")
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleNodes(w http.ResponseWriter, _ *http.Request) {
	ids := s.engine.NodeIDs()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	writeJSON(w, http.StatusOK, map[string]any{
		"root":             s.engine.Root().ID(),
		"nodes":            ids,
		"enabled_programs": s.engine.EnabledPrograms(),
	})
}

func (s *Server) handleEffective(w http.ResponseWriter, r *http.Request) {
	id := hierarchy.NodeID(r.PathValue("id"))

	at, err := hierarchy.ParseAttachType(r.URL.Query().Get("attach_type"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	programs, err := s.engine.EffectiveProgramIDs(id, at)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, hierarchy.ErrNodeNotFound) {
			status = http.StatusNotFound
		}
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"node":        id,
		"attach_type": at.String(),
		"programs":    programs,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
