// Package metrics exposes prometheus instrumentation for the sniper.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

var registerOnce sync.Once

// Collector registers the sniper metrics and serves the /metrics endpoint.
type Collector struct {
	logger *zap.Logger
	server *http.Server
}

// NewCollector creates the collector and registers all metrics. Safe to
// call more than once; registration happens a single time per process.
func NewCollector(logger *zap.Logger) *Collector {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			eventsExtracted,
			tokensProcessed,
			sellsExecuted,
			wsReconnects,
			openPositions,
			sweepDuration,
			venueLatency,
		)
	})
	return &Collector{logger: logger}
}

// Serve exposes /metrics and /healthz on addr until ctx is cancelled.
func (c *Collector) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	c.server = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- c.server.ListenAndServe()
	}()

	c.logger.Info("📊 Metrics endpoint listening", zap.String("addr", addr))

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.server.Shutdown(shutdownCtx); err != nil {
			c.logger.Warn("Metrics server shutdown", zap.Error(err))
		}
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

var (
	eventsExtracted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pumpfun_sniper",
			Name:      "events_extracted_total",
			Help:      "Token creation events extracted from program logs",
		},
	)

	tokensProcessed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pumpfun_sniper",
			Name:      "tokens_processed_total",
			Help:      "Intake outcomes per detected token",
		},
		[]string{"result"},
	)

	sellsExecuted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pumpfun_sniper",
			Name:      "sells_total",
			Help:      "Sell attempts by profit-target stage and outcome",
		},
		[]string{"stage", "result"},
	)

	wsReconnects = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pumpfun_sniper",
			Name:      "ws_reconnects_total",
			Help:      "Log subscription reconnect attempts",
		},
	)

	openPositions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "pumpfun_sniper",
			Name:      "open_positions",
			Help:      "Positions that still hold tokens",
		},
	)

	sweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "pumpfun_sniper",
			Name:      "poll_sweep_duration_seconds",
			Help:      "Duration of one price poll sweep",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
	)

	venueLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pumpfun_sniper",
			Name:      "venue_request_duration_seconds",
			Help:      "Trade venue request latency by operation",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"op"},
	)
)
