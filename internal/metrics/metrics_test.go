package metrics

import (
	"context"
	"testing"
)

func TestCollection_FansOutToEveryImplementation(t *testing.T) {
	ctx := context.Background()
	prom := NewPrometheusMetrics(nil)
	logm := NewLogMetrics(nil)

	c := NewCollection(NewNoopMetrics(), logm)
	c.Add(prom)
	if c.Len() != 3 {
		t.Fatalf("expected 3 implementations, got %d", c.Len())
	}

	if err := c.Initialize(ctx); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if err := c.IncrementCounter(ctx, "soltrace_test_total", 4); err != nil {
		t.Fatalf("IncrementCounter: %v", err)
	}
	if err := c.UpdateGauge(ctx, "soltrace_test_gauge", 1.5); err != nil {
		t.Fatalf("UpdateGauge: %v", err)
	}
	if err := c.Flush(ctx); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if err := c.Shutdown(ctx); err != nil {
		t.Fatalf("Shutdown: %v", err)
	}

	// Both stateful sinks saw the same increment.
	if got := logm.counters["soltrace_test_total"]; got != 4 {
		t.Fatalf("log sink counter: got %d want 4", got)
	}
	families, err := prom.Registry().Gather()
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	got := findFamily(t, families, "soltrace_test_total")
	if v := got.Metric[0].Counter.GetValue(); v != 4 {
		t.Fatalf("prometheus sink counter: got %v want 4", v)
	}
}

func TestForBackend_SelectsSink(t *testing.T) {
	m, prom, err := ForBackend(BackendPrometheus, nil)
	if err != nil || prom == nil {
		t.Fatalf("prometheus: m=%T prom=%v err=%v", m, prom, err)
	}
	if m != Metrics(prom) {
		t.Fatalf("expected the prometheus sink to be returned directly")
	}

	m, prom, err = ForBackend(BackendLog, nil)
	if err != nil || prom != nil {
		t.Fatalf("log: prom=%v err=%v", prom, err)
	}
	if _, ok := m.(*LogMetrics); !ok {
		t.Fatalf("log: expected *LogMetrics, got %T", m)
	}

	m, prom, err = ForBackend(BackendBoth, nil)
	if err != nil || prom == nil {
		t.Fatalf("both: prom=%v err=%v", prom, err)
	}
	c, ok := m.(*Collection)
	if !ok || c.Len() != 2 {
		t.Fatalf("both: expected a 2-sink Collection, got %T", m)
	}

	if _, _, err := ForBackend("statsd", nil); err == nil {
		t.Fatalf("expected an error for an unknown backend")
	}
}

func TestLogMetrics_CounterAccumulates(t *testing.T) {
	ctx := context.Background()
	m := NewLogMetrics(nil)

	if err := m.IncrementCounter(ctx, "n", 2); err != nil {
		t.Fatalf("IncrementCounter: %v", err)
	}
	if err := m.IncrementCounter(ctx, "n", 3); err != nil {
		t.Fatalf("IncrementCounter: %v", err)
	}
	if m.counters["n"] != 5 {
		t.Fatalf("expected accumulated counter 5, got %d", m.counters["n"])
	}
}
