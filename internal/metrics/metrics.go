// Package metrics exports store and service instrumentation in the
// Prometheus text format.
package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "plantcare"

// Recorder observes plant store operations.
type Recorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
	SetPlants(count int)
}

// Prometheus is a Recorder backed by its own registry.
type Prometheus struct {
	registry   *prometheus.Registry
	operations *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	plants     prometheus.Gauge
	sseClients prometheus.GaugeFunc
}

// NewPrometheus registers the plantcare collectors plus the Go runtime and
// process collectors on a fresh registry. sseClients may be nil.
func NewPrometheus(sseClients func() int) *Prometheus {
	reg := prometheus.NewRegistry()

	p := &Prometheus{
		registry: reg,
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Plant store operations by operation and result.",
		}, []string{"operation", "result"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_operation_duration_seconds",
			Help:      "Latency of plant store operations.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"operation"}),
		plants: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "plants_loaded",
			Help:      "Plants of the active user currently held in memory.",
		}),
	}

	reg.MustRegister(
		p.operations,
		p.latency,
		p.plants,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	if sseClients != nil {
		p.sseClients = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sse_clients",
			Help:      "Connected event stream clients.",
		}, func() float64 { return float64(sseClients()) })
		reg.MustRegister(p.sseClients)
	}

	return p
}

// Observe implements Recorder.
func (p *Prometheus) Observe(_ context.Context, operation string, success bool, duration time.Duration) {
	if operation == "" {
		return
	}
	result := "error"
	if success {
		result = "success"
	}
	p.operations.WithLabelValues(operation, result).Inc()
	p.latency.WithLabelValues(operation).Observe(duration.Seconds())
}

// SetPlants implements Recorder.
func (p *Prometheus) SetPlants(count int) {
	p.plants.Set(float64(count))
}

// Handler serves the registry at /metrics.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

// Registry exposes the underlying registry.
func (p *Prometheus) Registry() *prometheus.Registry { return p.registry }

// Noop discards all observations.
type Noop struct{}

// Observe implements Recorder.
func (Noop) Observe(context.Context, string, bool, time.Duration) {}

// SetPlants implements Recorder.
func (Noop) SetPlants(int) {}
