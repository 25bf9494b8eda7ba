package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the pipeline
// and the API server.
type Metrics struct {
	// Pipeline metrics.
	LocationsProcessed     *prometheus.CounterVec // labels: outcome={success,failed,reused}
	VerificationMismatches prometheus.Counter
	MembersMerged          prometheus.Counter
	MembersDropped         prometheus.Counter
	StageDuration          *prometheus.HistogramVec // labels: stage={geocode,verify,merge}

	// Geocoding metrics.
	GeocodeRequests    *prometheus.CounterVec   // labels: provider, method={forward,reverse}, outcome={success,error,empty}
	GeocodeAPIDuration *prometheus.HistogramVec // labels: provider, method={forward,reverse}

	// API metrics.
	HTTPRequests *prometheus.CounterVec // labels: route, status
	DatasetLoads *prometheus.CounterVec // labels: artifact={team,applicant}, outcome={success,error}
}

// NewMetrics creates and registers all metrics with the default Prometheus registry.
func NewMetrics() *Metrics {
	m := newMetrics()
	prometheus.MustRegister(m.collectors()...)
	return m
}

// NewMetricsForTesting creates Metrics without registering them to avoid
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		LocationsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "team_map",
			Name:      "locations_processed_total",
			Help:      "Unique locations resolved by the geocoding stage, by outcome.",
		}, []string{"outcome"}),
		VerificationMismatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "team_map",
			Name:      "verification_mismatches_total",
			Help:      "Forward results whose reverse geocode disagreed with the original location.",
		}),
		MembersMerged: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "team_map",
			Name:      "members_merged_total",
			Help:      "Team members written to the dataset.",
		}),
		MembersDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "team_map",
			Name:      "members_dropped_total",
			Help:      "Team members excluded for lack of a usable geocode result.",
		}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "team_map",
			Name:      "stage_duration_seconds",
			Help:      "Duration of a pipeline stage.",
			Buckets:   []float64{0.1, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"stage"}),
		GeocodeRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "team_map",
			Name:      "geocode_requests_total",
			Help:      "Geocoding API requests by provider, method and outcome.",
		}, []string{"provider", "method", "outcome"}),
		GeocodeAPIDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "team_map",
			Name:      "geocode_api_duration_seconds",
			Help:      "Geocoding API request duration in seconds.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"provider", "method"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "team_map",
			Name:      "http_requests_total",
			Help:      "API requests by route and status code.",
		}, []string{"route", "status"}),
		DatasetLoads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "team_map",
			Name:      "dataset_loads_total",
			Help:      "Artifact loads performed by the API server.",
		}, []string{"artifact", "outcome"}),
	}
}

func (m *Metrics) collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.LocationsProcessed,
		m.VerificationMismatches,
		m.MembersMerged,
		m.MembersDropped,
		m.StageDuration,
		m.GeocodeRequests,
		m.GeocodeAPIDuration,
		m.HTTPRequests,
		m.DatasetLoads,
	}
}

// ObserveGeocode records one provider call. outcome is "success", "empty" or "error".
func (m *Metrics) ObserveGeocode(provider, method, outcome string, seconds float64) {
	if m == nil {
		return
	}
	m.GeocodeRequests.WithLabelValues(provider, method, outcome).Inc()
	m.GeocodeAPIDuration.WithLabelValues(provider, method).Observe(seconds)
}
