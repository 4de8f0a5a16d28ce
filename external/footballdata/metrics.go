package footballdata

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "prediction_league",
		Subsystem: "footballdata",
		Name:      "requests_total",
		Help:      "Upstream requests by terminal outcome.",
	}, []string{"outcome"})

	metricCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "prediction_league",
		Subsystem: "footballdata",
		Name:      "cache_hits_total",
		Help:      "Responses served from the short-lived response cache.",
	})

	metricRequeues = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "prediction_league",
		Subsystem: "footballdata",
		Name:      "requeues_total",
		Help:      "Requests pushed back onto the queue after a 429.",
	})

	metricQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "prediction_league",
		Subsystem: "footballdata",
		Name:      "queue_depth",
		Help:      "Requests waiting for a budget slot.",
	})

	metricRequestSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "prediction_league",
		Subsystem: "footballdata",
		Name:      "request_duration_seconds",
		Help:      "Upstream round-trip latency including transport retries.",
		Buckets:   prometheus.DefBuckets,
	})
)
