package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scribe_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// StoreQueryLatency records store latency by driver, operation and collection.
	StoreQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "scribe_store_query_latency_seconds",
		Help:    "Document/relational store query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"driver", "operation", "collection"})

	// CacheLookups counts cache-aside lookups by result (hit or miss).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scribe_cache_lookups_total",
		Help: "Cache-aside lookups by result",
	}, []string{"result"})

	// FeedSubscribers is the gauge of open live-feed WebSocket connections.
	FeedSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scribe_feed_subscribers",
		Help: "Number of connected live feed WebSocket clients",
	})

	// FeedEventsTotal counts feed events by type and transport.
	FeedEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scribe_feed_events_total",
		Help: "Total feed events published by type and transport",
	}, []string{"event_type", "transport"})

	// FeedBackpressureDrops counts messages dropped because a client send buffer was full.
	FeedBackpressureDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scribe_feed_backpressure_drops_total",
		Help: "Total number of live feed messages dropped due to backpressure",
	})

	// MailDeliveries counts password reset deliveries by outcome.
	MailDeliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scribe_mail_deliveries_total",
		Help: "Password reset mail deliveries by outcome",
	}, []string{"outcome"})
)

// TrackQuery returns a function that records query latency when called (e.g. defer).
func TrackQuery(driver, operation, collection string) func() {
	start := time.Now()
	return func() {
		StoreQueryLatency.WithLabelValues(driver, operation, collection).Observe(time.Since(start).Seconds())
	}
}
