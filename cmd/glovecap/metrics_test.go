package main

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"glovecap/internal/logging"
)

func TestServeMetricsExposesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "glovecap_test_total"})
	reg.MustRegister(counter)
	counter.Add(3)

	addr, closeFn, err := serveMetrics(context.Background(), logging.NewNop(), reg, "127.0.0.1:0")
	if err != nil {
		t.Fatalf("serveMetrics: %v", err)
	}
	defer closeFn()

	resp, err := http.Get("http://" + addr + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	requireContains(t, string(body), "glovecap_test_total 3")
	requireContains(t, string(body), "go_goroutines")
}

func TestServeMetricsDisabledWithoutAddr(t *testing.T) {
	addr, closeFn, err := serveMetrics(context.Background(), logging.NewNop(), prometheus.NewRegistry(), "")
	if err != nil || addr != "" {
		t.Fatalf("serveMetrics(\"\") = %q, %v", addr, err)
	}
	closeFn()
}
