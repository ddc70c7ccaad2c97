package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/vk/glgrid/internal/ctxlog"
	"github.com/vk/glgrid/internal/graph"
)

const shutdownTimeout = 5 * time.Second

// healthHandler answers OK, followed by the worst status among the loaded
// pipelines.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctxlog.FromContext(a.ctx).Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr)

	a.mu.Lock()
	status := graph.StatusHealthy
	for _, p := range a.manager.Pipelines() {
		status = graph.Worse(status, p.Status())
	}
	a.mu.Unlock()

	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "OK\n%s\n", status)
}

// reportsHandler serves the reports of the last reload as a JSON array.
func (a *App) reportsHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(a.Reports()); err != nil {
		ctxlog.FromContext(a.ctx).Warn("Failed to encode reports.", "error", err)
	}
}

// healthCheckServer starts the status server in the background when a port
// is configured.
func (a *App) healthCheckServer() {
	logger := ctxlog.FromContext(a.ctx)
	if a.config.HealthcheckPort <= 0 {
		logger.Debug("Health check server not started: disabled")
		return
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", a.healthHandler)
	mux.HandleFunc("GET /reports", a.reportsHandler)

	addr := fmt.Sprintf(":%d", a.config.HealthcheckPort)
	a.httpServer = &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: shutdownTimeout}

	go func() {
		logger.Info("🩺 Health check server starting", "address", fmt.Sprintf("http://localhost%s/health", addr))
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Health check server failed unexpectedly", "error", err)
		}
	}()
}

func (a *App) closeHealthCheckServer() error {
	if a.httpServer == nil {
		return nil
	}
	logger := ctxlog.FromContext(a.ctx)

	// The run context may already be cancelled.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(a.ctx), shutdownTimeout)
	defer cancel()

	logger.Info("🩺 Shutting down health check server...")
	if err := a.httpServer.Shutdown(ctx); err != nil {
		logger.Error("Health check server shutdown failed", "error", err)
		return err
	}
	return nil
}
