// Package server exposes the admin HTTP surface: health, runtime stats,
// and prometheus metrics.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/askdev-bot/askdev/pkg/metrics"
	"github.com/askdev-bot/askdev/pkg/session"
)

// Admin is the administrative HTTP server.
type Admin struct {
	srv      *http.Server
	sessions *session.Store
	started  time.Time
}

// NewAdmin creates the admin server on the given port.
func NewAdmin(port int, sessions *session.Store, m *metrics.Metrics) *Admin {
	a := &Admin{
		sessions: sessions,
		started:  time.Now(),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", a.handleHealth)
	r.Get("/stats", a.handleStats)
	if m != nil {
		r.Handle("/metrics", promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{}))
	}

	a.srv = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return a
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (a *Admin) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("Admin server listening", "addr", a.srv.Addr)
		if err := a.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return a.srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (a *Admin) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (a *Admin) handleStats(w http.ResponseWriter, r *http.Request) {
	stats := map[string]any{
		"sessions":       a.sessions.Count(),
		"uptime_seconds": int(time.Since(a.started).Seconds()),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(stats); err != nil {
		slog.Debug("Failed to write stats", "error", err)
	}
}
