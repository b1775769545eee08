package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the register module. Tracks lifecycle
// counts, the publish critical path, and live-cache effectiveness.
type Metrics struct {
	DraftsCreated    prometheus.Counter
	Publishes        prometheus.Counter
	PublishConflicts prometheus.Counter
	Withdrawals      prometheus.Counter
	PublishDuration  prometheus.Histogram
	LiveCacheHits    *prometheus.CounterVec
	LiveCacheMisses  *prometheus.CounterVec
}

// New creates a new Metrics instance with all register module metrics registered.
func New() *Metrics {
	return &Metrics{
		DraftsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "profreg_drafts_created_total",
			Help: "Total number of draft versions created",
		}),
		Publishes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "profreg_publishes_total",
			Help: "Total number of successful version publications",
		}),
		PublishConflicts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "profreg_publish_conflicts_total",
			Help: "Total number of publish attempts that lost the per-entity race",
		}),
		Withdrawals: promauto.NewCounter(prometheus.CounterOpts{
			Name: "profreg_withdrawals_total",
			Help: "Total number of entities withdrawn from public view",
		}),
		PublishDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "profreg_publish_duration_seconds",
			Help:    "Duration of publish operations (entity critical section)",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		LiveCacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "profreg_live_cache_hits_total",
			Help: "Live version cache hits by entity type",
		}, []string{"entity_type"}),
		LiveCacheMisses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "profreg_live_cache_misses_total",
			Help: "Live version cache misses by entity type",
		}, []string{"entity_type"}),
	}
}

// IncrementDraftsCreated records a draft version creation.
func (m *Metrics) IncrementDraftsCreated() {
	if m == nil {
		return
	}
	m.DraftsCreated.Inc()
}

// IncrementPublishes records a successful publication.
func (m *Metrics) IncrementPublishes() {
	if m == nil {
		return
	}
	m.Publishes.Inc()
}

// IncrementPublishConflicts records a publish attempt that hit contention.
func (m *Metrics) IncrementPublishConflicts() {
	if m == nil {
		return
	}
	m.PublishConflicts.Inc()
}

// IncrementWithdrawals records a withdrawal.
func (m *Metrics) IncrementWithdrawals() {
	if m == nil {
		return
	}
	m.Withdrawals.Inc()
}

// ObservePublish records the duration of a publish operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObservePublish(start time.Time) {
	if m == nil {
		return
	}
	m.PublishDuration.Observe(time.Since(start).Seconds())
}

// RecordCacheHit records a live cache hit for an entity type.
func (m *Metrics) RecordCacheHit(entityType string) {
	if m == nil {
		return
	}
	m.LiveCacheHits.WithLabelValues(entityType).Inc()
}

// RecordCacheMiss records a live cache miss for an entity type.
func (m *Metrics) RecordCacheMiss(entityType string) {
	if m == nil {
		return
	}
	m.LiveCacheMisses.WithLabelValues(entityType).Inc()
}
