package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ImagesClassified = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "moodlog",
		Name:      "images_classified_total",
		Help:      "Total number of classification calls, by outcome label",
	}, []string{"label"})

	FacesLocated = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "moodlog",
		Name:      "faces_located_total",
		Help:      "Total number of face rectangles produced by the locator",
	})

	DecodeFailures = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "moodlog",
		Name:      "decode_failures_total",
		Help:      "Total number of uploads that did not decode as an image",
	})

	InferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "moodlog",
		Name:      "inference_duration_seconds",
		Help:      "Duration of classification pipeline stages",
		Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
	}, []string{"stage"})

	EntriesAppended = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "moodlog",
		Name:      "entries_appended_total",
		Help:      "Total number of log entries appended",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "moodlog",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "moodlog",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
