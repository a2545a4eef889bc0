package labauth

import (
	"sync"
	"testing"
)

func TestMetricsCountersConcurrent(t *testing.T) {
	m := NewMetrics(MetricsConfig{Enabled: true})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.Inc(MetricLoginSuccess)
			m.Add(MetricRefreshSwept, 2)
		}()
	}
	wg.Wait()

	snap := m.Snapshot()
	if snap.Counters[MetricLoginSuccess] != 50 {
		t.Fatalf("expected 50 logins, got %d", snap.Counters[MetricLoginSuccess])
	}
	if m.Value(MetricRefreshSwept) != 100 {
		t.Fatalf("expected 100 swept rows, got %d", m.Value(MetricRefreshSwept))
	}
}

func TestMetricsDisabledAndNil(t *testing.T) {
	m := NewMetrics(MetricsConfig{})
	m.Inc(MetricLogout)
	if m.Value(MetricLogout) != 0 || len(m.Snapshot().Counters) != 0 {
		t.Fatal("disabled metrics must not record")
	}

	var nilMetrics *Metrics
	nilMetrics.Inc(MetricLogout)
	if nilMetrics.Value(MetricLogout) != 0 {
		t.Fatal("nil metrics must be safe")
	}
	m.Inc(metricIDCount)
}

func TestMetricDefsCoverEveryCounter(t *testing.T) {
	seen := map[MetricID]bool{}
	names := map[string]bool{}
	for _, def := range MetricDefs {
		if seen[def.ID] || names[def.Name] {
			t.Fatalf("duplicate metric definition %+v", def)
		}
		seen[def.ID] = true
		names[def.Name] = true
	}
	for id := MetricID(0); id < metricIDCount; id++ {
		if !seen[id] {
			t.Fatalf("metric %d has no definition", id)
		}
	}
}
