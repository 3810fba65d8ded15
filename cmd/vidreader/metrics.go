package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/user/vidreader/pkg/adapters/prommetrics"
	"github.com/user/vidreader/pkg/ports"
)

const shutdownTimeout = 5 * time.Second

// newMetricsRouter exposes the reader metrics and a liveness probe.
func newMetricsRouter(met *prommetrics.Metrics) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/metrics", met.Handler().ServeHTTP)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return r
}

// startMetricsServer serves newMetricsRouter on addr until the returned stop
// function is called.
func startMetricsServer(addr string, met *prommetrics.Metrics, log ports.Logger) func() {
	srv := &http.Server{
		Addr:              addr,
		Handler:           newMetricsRouter(met),
		ReadHeaderTimeout: shutdownTimeout,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server failed: %s", err)
		}
	}()
	log.Info("Metrics server listening on %s", addr)

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
