package buffon

/*

	Internal observability for Buffon.

	Each View carries its own StatsInternal with a private
	prometheus registry, so parallel runs in one process
	never collide on metric registration.

*/

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// StatsInternal holds the registry and the run instruments
type StatsInternal struct {
	Registry  *prometheus.Registry
	TickTimer prometheus.Histogram
	Needles   prometheus.Counter
	Crossings prometheus.Counter
	PiGauge   prometheus.Gauge
	WWWCount  *prometheus.CounterVec
}

// NewStatsInternal creates an attached prometheus registry
func NewStatsInternal() *StatsInternal {
	registry := prometheus.NewRegistry()

	tickTimer := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "buffon_tick_duration_seconds",
		Help:    "Time spent advancing the simulation by one tick.",
		Buckets: prometheus.DefBuckets,
	})

	needles := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "buffon_needles_total",
		Help: "Needles dropped since the run started.",
	})

	crossings := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "buffon_crossings_total",
		Help: "Needles that touched a ruled line since the run started.",
	})

	piGauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "buffon_pi_estimate",
		Help: "Running Buffon estimate of pi, zero while the stability guard holds.",
	})

	wwwCount := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "buffon_http_requests_total",
		Help: "Dataserv requests by status code and method.",
	}, []string{"status", "method"})

	registry.MustRegister(tickTimer, needles, crossings, piGauge, wwwCount)

	return &StatsInternal{
		Registry:  registry,
		TickTimer: tickTimer,
		Needles:   needles,
		Crossings: crossings,
		PiGauge:   piGauge,
		WWWCount:  wwwCount,
	}
}

// Handler serves this registry on /metrics
func (s *StatsInternal) Handler() http.Handler {
	return promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{})
}

// RecTickTimer records one tick duration in seconds
func (s *StatsInternal) RecTickTimer(d float64) {
	s.TickTimer.Observe(d)
}

// RecBatch feeds the run counters after a fold
func (s *StatsInternal) RecBatch(needles, crossings int) {
	s.Needles.Add(float64(needles))
	s.Crossings.Add(float64(crossings))
}

// RecPiEstimate publishes the current estimate.
// Zero means the stability guard is still in force.
func (s *StatsInternal) RecPiEstimate(pi float64) {
	s.PiGauge.Set(pi)
}

// RecWWW counts one dataserv response
func (s *StatsInternal) RecWWW(status, method string) {
	s.WWWCount.WithLabelValues(status, method).Inc()
}
