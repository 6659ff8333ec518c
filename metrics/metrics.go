// Package metrics provides a Prometheus-backed squallcache.Recorder
// and a small health/metrics HTTP server for exposing it.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusRecorder implements squallcache.Recorder with Prometheus
// counters and a histogram for fetch latency.
type PrometheusRecorder struct {
	cacheHits           *prometheus.CounterVec
	cacheMisses         *prometheus.CounterVec
	pendingDispatched   *prometheus.CounterVec
	fetchSucceeded      *prometheus.HistogramVec
	fetchFailed         *prometheus.HistogramVec
	optimisticApplied   prometheus.Counter
	optimisticCommitted prometheus.Counter
	optimisticRolledBack prometheus.Counter
}

// NewPrometheusRecorder registers the cache's metrics against reg. Pass
// prometheus.DefaultRegisterer for the global registry.
func NewPrometheusRecorder(reg prometheus.Registerer) *PrometheusRecorder {
	factory := promauto.With(reg)
	return &PrometheusRecorder{
		cacheHits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "squallcache_cache_hits_total",
			Help: "Number of Lookup calls resolved without a pending fetch, by query name.",
		}, []string{"query"}),
		cacheMisses: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "squallcache_cache_misses_total",
			Help: "Number of Lookup calls that queued a pending fetch, by query name.",
		}, []string{"query"}),
		pendingDispatched: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "squallcache_pending_dispatched_total",
			Help: "Number of pending fetches turned into effects by ProcessPending, by query name.",
		}, []string{"query"}),
		fetchSucceeded: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "squallcache_fetch_succeeded_seconds",
			Help:    "Latency of successful transport round trips, by query name.",
			Buckets: prometheus.DefBuckets,
		}, []string{"query"}),
		fetchFailed: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "squallcache_fetch_failed_seconds",
			Help:    "Latency of failed transport round trips, by query name.",
			Buckets: prometheus.DefBuckets,
		}, []string{"query"}),
		optimisticApplied: factory.NewCounter(prometheus.CounterOpts{
			Name: "squallcache_optimistic_applied_total",
			Help: "Number of optimistic updates applied.",
		}),
		optimisticCommitted: factory.NewCounter(prometheus.CounterOpts{
			Name: "squallcache_optimistic_committed_total",
			Help: "Number of optimistic updates committed.",
		}),
		optimisticRolledBack: factory.NewCounter(prometheus.CounterOpts{
			Name: "squallcache_optimistic_rolled_back_total",
			Help: "Number of optimistic updates rolled back.",
		}),
	}
}

func (r *PrometheusRecorder) CacheHit(queryName string)  { r.cacheHits.WithLabelValues(queryName).Inc() }
func (r *PrometheusRecorder) CacheMiss(queryName string) { r.cacheMisses.WithLabelValues(queryName).Inc() }
func (r *PrometheusRecorder) PendingDispatched(queryName string) {
	r.pendingDispatched.WithLabelValues(queryName).Inc()
}
func (r *PrometheusRecorder) FetchSucceeded(queryName string, elapsed time.Duration) {
	r.fetchSucceeded.WithLabelValues(queryName).Observe(elapsed.Seconds())
}
func (r *PrometheusRecorder) FetchFailed(queryName string, elapsed time.Duration) {
	r.fetchFailed.WithLabelValues(queryName).Observe(elapsed.Seconds())
}
func (r *PrometheusRecorder) OptimisticApplied(string)    { r.optimisticApplied.Inc() }
func (r *PrometheusRecorder) OptimisticCommitted(string)  { r.optimisticCommitted.Inc() }
func (r *PrometheusRecorder) OptimisticRolledBack(string) { r.optimisticRolledBack.Inc() }
