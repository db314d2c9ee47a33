package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	CacheResultHit    = "hit"
	CacheResultMiss   = "miss"
	CacheResultShared = "shared"

	StageRosterUsers   = "roster_users"
	StageRosterMembers = "roster_members"
	StageRosterNotes   = "roster_notes"
	StageDetailMembers = "detail_members"
	StageDetailNotes   = "detail_notes"
	StageMembership    = "membership"
	StageFeed          = "feed"
	StageCacheStore    = "cache_store"
)

// AggregationMetrics captures cache efficiency and degraded fan-out units.
// A nil *AggregationMetrics is valid and records nothing.
type AggregationMetrics struct {
	cacheRequests   *prometheus.CounterVec
	partialFailures *prometheus.CounterVec
	rosterDuration  prometheus.Histogram
	detailDuration  prometheus.Histogram
	selectionStates *prometheus.CounterVec
	staleSelections prometheus.Counter
}

// NewAggregationMetrics registers the aggregation collectors on registerer.
func NewAggregationMetrics(registerer prometheus.Registerer, cfg Config) *AggregationMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "notewall"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &AggregationMetrics{
		cacheRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "notewall_detail_cache_requests_total",
			Help:        "Organization detail lookups by cache result.",
			ConstLabels: constLabels,
		}, []string{"result"}),
		partialFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "notewall_aggregation_partial_failures_total",
			Help:        "Fan-out units degraded to empty or zero results.",
			ConstLabels: constLabels,
		}, []string{"stage"}),
		rosterDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "notewall_roster_build_seconds",
			Help:        "Wall time of a full roster build including per-organization fan-out.",
			Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			ConstLabels: constLabels,
		}),
		detailDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "notewall_detail_population_seconds",
			Help:        "Wall time of populating one organization detail on cache miss.",
			Buckets:     []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			ConstLabels: constLabels,
		}),
		selectionStates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "notewall_selection_transitions_total",
			Help:        "Coordinator selection transitions by target state.",
			ConstLabels: constLabels,
		}, []string{"to"}),
		staleSelections: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "notewall_selection_stale_discarded_total",
			Help:        "Detail results discarded because a newer selection superseded them.",
			ConstLabels: constLabels,
		}),
	}

	registerer.MustRegister(
		m.cacheRequests,
		m.partialFailures,
		m.rosterDuration,
		m.detailDuration,
		m.selectionStates,
		m.staleSelections,
	)
	return m
}

func (m *AggregationMetrics) RecordCacheRequest(result string) {
	if m == nil {
		return
	}
	m.cacheRequests.WithLabelValues(result).Inc()
}

func (m *AggregationMetrics) RecordPartialFailure(stage string) {
	if m == nil {
		return
	}
	m.partialFailures.WithLabelValues(stage).Inc()
}

func (m *AggregationMetrics) ObserveRosterBuild(d time.Duration) {
	if m == nil {
		return
	}
	m.rosterDuration.Observe(d.Seconds())
}

func (m *AggregationMetrics) ObserveDetailPopulation(d time.Duration) {
	if m == nil {
		return
	}
	m.detailDuration.Observe(d.Seconds())
}

func (m *AggregationMetrics) RecordSelectionTransition(to string) {
	if m == nil {
		return
	}
	m.selectionStates.WithLabelValues(to).Inc()
}

func (m *AggregationMetrics) RecordStaleSelection() {
	if m == nil {
		return
	}
	m.staleSelections.Inc()
}
