package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecord(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveRequest(OutcomeHit)
	m.ObserveRequest(OutcomeHit)
	m.ObserveRequest(OutcomeUnknown)
	m.ObserveTier("strict", 3)
	m.ObserveTier("price", 0)
	m.ObserveBuild(150 * time.Millisecond)
	m.ObserveSwap(42)

	if got := testutil.ToFloat64(m.Requests.WithLabelValues(OutcomeHit)); got != 2 {
		t.Errorf("hit requests = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.Requests.WithLabelValues(OutcomeUnknown)); got != 1 {
		t.Errorf("unknown requests = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.TierResults.WithLabelValues("strict")); got != 3 {
		t.Errorf("strict tier = %v, want 3", got)
	}
	if got := testutil.ToFloat64(m.ModelProducts); got != 42 {
		t.Errorf("model products = %v, want 42", got)
	}
	if got := testutil.ToFloat64(m.ModelSwaps); got != 1 {
		t.Errorf("model swaps = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(m.BuildDuration); n != 1 {
		t.Errorf("build duration series = %d, want 1", n)
	}
	// zero-sized tiers are not recorded at all
	if n := testutil.CollectAndCount(m.TierResults); n != 1 {
		t.Errorf("tier series = %d, want 1", n)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRequest(OutcomeHit)
	m.ObserveTier("strict", 1)
	m.ObserveBuild(time.Second)
	m.ObserveSwap(1)
}
