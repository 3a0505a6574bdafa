// Package metrics holds the Prometheus collectors for the lifecycle core.
// All methods are safe on a nil *Metrics, which disables recording.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const namespace = "whatsit"

// Metrics holds all Prometheus metrics.
type Metrics struct {
	// IPC metrics
	IPCCommands *prometheus.CounterVec
	IPCErrors   *prometheus.CounterVec

	// Lifecycle metrics
	Transitions *prometheus.CounterVec

	// Watchdog metrics
	MemoryBytes     prometheus.Gauge
	WatchdogPolls   prometheus.Counter
	SampleFailures  prometheus.Counter
	WatchdogEnabled prometheus.Gauge

	registry *prometheus.Registry
}

// New creates the collectors on a fresh registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		IPCCommands: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ipc",
			Name:      "commands_total",
			Help:      "Commands received from secondary launches, by kind.",
		}, []string{"kind"}),
		IPCErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ipc",
			Name:      "errors_total",
			Help:      "Dropped IPC connections, by stage.",
		}, []string{"stage"}),
		Transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "lifecycle",
			Name:      "transitions_total",
			Help:      "Window state transitions, by target state.",
		}, []string{"state"}),
		MemoryBytes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "watchdog",
			Name:      "resident_memory_bytes",
			Help:      "Last sampled resident memory of the process group.",
		}),
		WatchdogPolls: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watchdog",
			Name:      "polls_total",
			Help:      "Memory samples taken.",
		}),
		SampleFailures: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "watchdog",
			Name:      "sample_failures_total",
			Help:      "Memory samples that failed and were treated as zero.",
		}),
		WatchdogEnabled: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "watchdog",
			Name:      "enabled",
			Help:      "1 while the memory watchdog is armed.",
		}),
		registry: reg,
	}
}

// CommandReceived counts a decoded IPC command.
func (m *Metrics) CommandReceived(kind string) {
	if m == nil {
		return
	}
	m.IPCCommands.WithLabelValues(kind).Inc()
}

// ConnectionDropped counts an IPC connection that failed at stage.
func (m *Metrics) ConnectionDropped(stage string) {
	if m == nil {
		return
	}
	m.IPCErrors.WithLabelValues(stage).Inc()
}

// Transition counts a window state transition.
func (m *Metrics) Transition(state string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(state).Inc()
}

// MemorySampled records a watchdog sample.
func (m *Metrics) MemorySampled(bytes uint64, failed bool) {
	if m == nil {
		return
	}
	m.WatchdogPolls.Inc()
	if failed {
		m.SampleFailures.Inc()
	}
	m.MemoryBytes.Set(float64(bytes))
}

// WatchdogArmed records whether the watchdog is running.
func (m *Metrics) WatchdogArmed(armed bool) {
	if m == nil {
		return
	}
	if armed {
		m.WatchdogEnabled.Set(1)
	} else {
		m.WatchdogEnabled.Set(0)
	}
}

// Handler returns the /metrics handler for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is cancelled. Only loopback
// addresses are accepted; the endpoint is a local diagnostic aid.
func (m *Metrics) Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	if err := checkLoopback(addr); err != nil {
		return err
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	logger.Info("Serving metrics", zap.String("addr", addr))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to serve metrics: %w", err)
	}
	return nil
}

func checkLoopback(addr string) error {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return fmt.Errorf("invalid metrics address %q: %w", addr, err)
	}
	if host == "localhost" {
		return nil
	}
	ip := net.ParseIP(host)
	if ip == nil || !ip.IsLoopback() {
		return fmt.Errorf("metrics address %q is not a loopback address", addr)
	}
	return nil
}
