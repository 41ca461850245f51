package secureauth

import (
	"sync"
	"testing"
)

func TestMetricsDisabledIsInert(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: false})

	m.Inc(MetricLoginSuccess)
	if m.Enabled() {
		t.Fatal("expected disabled metrics")
	}
	if m.Value(MetricLoginSuccess) != 0 {
		t.Fatal("disabled metrics must not count")
	}
	if len(m.Snapshot().Counters) != 0 {
		t.Fatal("disabled snapshot must be empty")
	}
}

func TestMetricsCountsConcurrently(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				m.Inc(MetricLoginFailure)
			}
		}()
	}
	wg.Wait()

	if got := m.Value(MetricLoginFailure); got != 8000 {
		t.Fatalf("expected 8000, got %d", got)
	}
	if got := m.Snapshot().Counters[MetricLoginFailure]; got != 8000 {
		t.Fatalf("snapshot expected 8000, got %d", got)
	}
}

func TestMetricsIgnoresOutOfRangeID(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})
	m.Inc(metricIDCount + 7)
	if m.Value(metricIDCount+7) != 0 {
		t.Fatal("expected out-of-range id to be ignored")
	}
}

func TestNilMetricsSafe(t *testing.T) {
	var m *Metrics
	m.Inc(MetricLoginSuccess)
	if m.Enabled() || m.Value(MetricLoginSuccess) != 0 {
		t.Fatal("nil metrics must be inert")
	}
	if m.Snapshot().Counters == nil {
		t.Fatal("nil metrics snapshot must still allocate the map")
	}
}
