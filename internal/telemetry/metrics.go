package telemetry

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	JobsSubmitted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "adscreator_jobs_submitted_total",
		Help: "Generation jobs submitted to external providers",
	}, []string{"kind", "provider"})
	PollsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "adscreator_polls_total",
		Help: "Provider poll calls issued",
	})
	UnknownStatuses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "adscreator_unknown_statuses_total",
		Help: "Provider-native statuses that did not map to a canonical state",
	}, []string{"provider"})
	RehostFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "adscreator_rehost_failures_total",
		Help: "Best-effort output re-hosting attempts that fell back to the transient URL",
	})
	DegradedSegments = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "adscreator_degraded_segments_total",
		Help: "Script segments that produced a degraded (empty) candidate list",
	})
	Assemblies = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "adscreator_assemblies_total",
		Help: "Media assembly runs by outcome",
	}, []string{"outcome"})
	PollsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "adscreator_polls_inflight",
		Help: "Jobs currently being driven by a poller",
	})
	RateLimitRejects = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "adscreator_rate_limit_rejects_total",
		Help: "Job submissions rejected by the rate limiter",
	})
)

// Handler exposes the /metrics HTTP handler with a singleton registry.
func Handler() http.Handler {
	once.Do(func() {
		prometheus.MustRegister(
			JobsSubmitted,
			PollsTotal,
			UnknownStatuses,
			RehostFailures,
			DegradedSegments,
			Assemblies,
			PollsInFlight,
			RateLimitRejects,
		)
	})
	return promhttp.Handler()
}
