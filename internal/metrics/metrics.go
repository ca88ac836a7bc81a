// Package metrics holds the prometheus collectors for the recommendation
// service. Collectors are registered on the registry passed to New so tests
// and the binaries do not share global state.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcomes of a recommendation request
const (
	OutcomeHit     = "hit"
	OutcomeUnknown = "unknown"
	OutcomeInvalid = "invalid"
	OutcomeNoModel = "no_model"
)

// Metrics groups the service collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Requests      *prometheus.CounterVec
	TierResults   *prometheus.CounterVec
	BuildDuration prometheus.Histogram
	ModelProducts prometheus.Gauge
	ModelSwaps    prometheus.Counter
}

// New creates the collectors and registers them on reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Requests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recommend_requests_total",
				Help: "Recommendation requests by outcome",
			},
			[]string{"outcome"},
		),
		TierResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "recommend_tier_results_total",
				Help: "Recommendations returned, by the fallback tier that produced them",
			},
			[]string{"tier"},
		),
		BuildDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "model_build_duration_seconds",
				Help:    "Time spent loading or building a model",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 8),
			},
		),
		ModelProducts: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "model_products",
				Help: "Products in the co-occurrence index of the served model",
			},
		),
		ModelSwaps: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "model_swaps_total",
				Help: "Times a new model replaced the served one",
			},
		),
	}
}

func (m *Metrics) ObserveRequest(outcome string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveTier(tier string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.TierResults.WithLabelValues(tier).Add(float64(n))
}

func (m *Metrics) ObserveBuild(d time.Duration) {
	if m == nil {
		return
	}
	m.BuildDuration.Observe(d.Seconds())
}

// ObserveSwap records a model replacement and its size
func (m *Metrics) ObserveSwap(products int) {
	if m == nil {
		return
	}
	m.ModelSwaps.Inc()
	m.ModelProducts.Set(float64(products))
}
