package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	for _, f := range families {
		if f.GetName() != name {
			continue
		}
		total := 0.0
		for _, m := range f.GetMetric() {
			total += m.GetCounter().GetValue()
		}
		return total
	}
	t.Fatalf("metric %s not found", name)
	return 0
}

func TestNew_RegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)
	m.QueriesTotal.WithLabelValues("answered").Inc()
	m.PagesTotal.WithLabelValues("ok").Add(2)
	if got := counterValue(t, reg, "queries_total"); got != 1 {
		t.Fatalf("queries_total=%v", got)
	}
	if got := counterValue(t, reg, "pages_total"); got != 2 {
		t.Fatalf("pages_total=%v", got)
	}
}

func TestNew_SeparateRegistries(t *testing.T) {
	// Same names on distinct registries must not panic.
	_ = New(prometheus.NewRegistry())
	_ = New(prometheus.NewRegistry())
}
