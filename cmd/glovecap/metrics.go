package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"glovecap/internal/logging"
)

// serveMetrics exposes reg on addr under /metrics until the returned close
// function is called. An empty addr disables the endpoint.
func serveMetrics(ctx context.Context, logger *slog.Logger, reg *prometheus.Registry, addr string) (string, func(), error) {
	if addr == "" {
		return "", func() {}, nil
	}
	reg.MustRegister(collectors.NewGoCollector())

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", addr)
	if err != nil {
		return "", nil, err
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	srv := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logging.WarnWithContext(logger, "metrics endpoint stopped", "metrics_serve_failed",
				logging.Error(err),
				logging.String(logging.FieldErrorHint, "check --metrics-addr"),
				logging.String(logging.FieldImpact, "metrics are no longer scraped; collection continues"),
			)
		}
	}()

	logger.Info("metrics endpoint listening",
		logging.String(logging.FieldEventType, "metrics_listening"),
		logging.String("addr", ln.Addr().String()),
	)
	return ln.Addr().String(), func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		<-done
	}, nil
}
