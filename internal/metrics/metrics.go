// Copyright (c) 2026 Fenholt
// Doorman - SSH front door daemon
// This source code is licensed under the MIT license found in the LICENSE file.

// Package metrics exposes doorman's Prometheus instrumentation. Collectors
// are package-level so any component can record without plumbing a registry.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	AuthAttemptsTotal        = promauto.NewCounterVec(prometheus.CounterOpts{Name: "doorman_auth_attempts_total", Help: "Authentication attempts by method and outcome"}, []string{"method", "outcome"})
	BannersSentTotal         = promauto.NewCounter(prometheus.CounterOpts{Name: "doorman_banners_sent_total", Help: "Welcome banners delivered to clients"})
	BannersSuppressedTotal   = promauto.NewCounter(prometheus.CounterOpts{Name: "doorman_banners_suppressed_total", Help: "Attempts that completed without a banner because none was configured or the file was absent"})
	BannerFailuresTotal      = promauto.NewCounter(prometheus.CounterOpts{Name: "doorman_banner_failures_total", Help: "Connections aborted because the banner source could not be resolved"})
	ActiveConnections        = promauto.NewGauge(prometheus.GaugeOpts{Name: "doorman_active_connections", Help: "Currently open SSH connections"})
	HandshakeDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{Name: "doorman_handshake_duration_seconds", Help: "SSH handshake duration including authentication", Buckets: prometheus.ExponentialBuckets(0.01, 2, 12)})
)

// Serve exposes /metrics and /healthz on addr until ctx is canceled.
func Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
