package metrics

import (
	"context"
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusMetrics implements Metrics by lazily registering a
// prometheus metric the first time a given name is used, then reusing
// it on every later call. The Metrics interface takes a bare name per
// call rather than a fixed, predeclared set, so registration happens
// on demand instead of through package-level vars for a closed set of
// series.
type PrometheusMetrics struct {
	registry *prometheus.Registry

	mu         sync.Mutex
	counters   map[string]prometheus.Counter
	gauges     map[string]prometheus.Gauge
	histograms map[string]prometheus.Histogram
}

// NewPrometheusMetrics builds a PrometheusMetrics backed by registry.
// A nil registry gets a fresh, private one rather than the global
// default registerer, so multiple Engines in the same process (or in
// tests) never collide on metric names.
func NewPrometheusMetrics(registry *prometheus.Registry) *PrometheusMetrics {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}
	return &PrometheusMetrics{
		registry:   registry,
		counters:   make(map[string]prometheus.Counter),
		gauges:     make(map[string]prometheus.Gauge),
		histograms: make(map[string]prometheus.Histogram),
	}
}

// Registry returns the underlying prometheus.Registry so callers can
// wire it into an HTTP server via Handler.
func (p *PrometheusMetrics) Registry() *prometheus.Registry { return p.registry }

// Handler returns an http.Handler serving registry's metrics in the
// Prometheus exposition format.
func (p *PrometheusMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}

// Initialize satisfies Metrics; prometheus metrics self-register on
// first use, so there is nothing to do up front.
func (p *PrometheusMetrics) Initialize(ctx context.Context) error { return nil }

// Flush satisfies Metrics; the prometheus client has no buffered
// writes to drain.
func (p *PrometheusMetrics) Flush(ctx context.Context) error { return nil }

// Shutdown satisfies Metrics; there is no connection or background
// worker to stop.
func (p *PrometheusMetrics) Shutdown(ctx context.Context) error { return nil }

// UpdateGauge sets the named gauge to value, registering it on first
// use.
func (p *PrometheusMetrics) UpdateGauge(ctx context.Context, name string, value float64) error {
	p.gauge(name).Set(value)
	return nil
}

// IncrementCounter adds value to the named counter, registering it on
// first use.
func (p *PrometheusMetrics) IncrementCounter(ctx context.Context, name string, value uint64) error {
	p.counter(name).Add(float64(value))
	return nil
}

// RecordHistogram observes value in the named histogram, registering
// it on first use with soltrace's default latency-shaped buckets.
func (p *PrometheusMetrics) RecordHistogram(ctx context.Context, name string, value float64) error {
	p.histogram(name).Observe(value)
	return nil
}

func (p *PrometheusMetrics) counter(name string) prometheus.Counter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if c, ok := p.counters[name]; ok {
		return c
	}
	c := promauto.With(p.registry).NewCounter(prometheus.CounterOpts{
		Name: name,
		Help: "soltrace counter " + name,
	})
	p.counters[name] = c
	return c
}

func (p *PrometheusMetrics) gauge(name string) prometheus.Gauge {
	p.mu.Lock()
	defer p.mu.Unlock()
	if g, ok := p.gauges[name]; ok {
		return g
	}
	g := promauto.With(p.registry).NewGauge(prometheus.GaugeOpts{
		Name: name,
		Help: "soltrace gauge " + name,
	})
	p.gauges[name] = g
	return g
}

// defaultLatencyBuckets covers sub-millisecond decode cost up through
// multi-second RPC/backfill batch latency.
var defaultLatencyBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30}

func (p *PrometheusMetrics) histogram(name string) prometheus.Histogram {
	p.mu.Lock()
	defer p.mu.Unlock()
	if h, ok := p.histograms[name]; ok {
		return h
	}
	h := promauto.With(p.registry).NewHistogram(prometheus.HistogramOpts{
		Name:    name,
		Help:    "soltrace histogram " + name,
		Buckets: defaultLatencyBuckets,
	})
	p.histograms[name] = h
	return h
}
