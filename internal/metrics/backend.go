package metrics

import (
	"fmt"
	"log/slog"
)

// Backend names accepted by ForBackend and the --metrics-backend flag.
const (
	BackendPrometheus = "prometheus"
	BackendLog        = "log"
	BackendBoth       = "both"
)

// ForBackend builds the metrics sink named by backend: a Prometheus
// registry, a slog-based sink, or a Collection fanning out to both.
// The returned *PrometheusMetrics is nil when the selection does not
// include Prometheus; callers use it to decide whether a /metrics
// endpoint can be served.
func ForBackend(backend string, logger *slog.Logger) (Metrics, *PrometheusMetrics, error) {
	switch backend {
	case BackendPrometheus, "":
		p := NewPrometheusMetrics(nil)
		return p, p, nil
	case BackendLog:
		return NewLogMetrics(logger), nil, nil
	case BackendBoth:
		p := NewPrometheusMetrics(nil)
		return NewCollection(NewLogMetrics(logger), p), p, nil
	default:
		return nil, nil, fmt.Errorf("invalid metrics backend %q (want prometheus, log, or both)", backend)
	}
}
