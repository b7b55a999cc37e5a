package server

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wdadash",
		Name:      "http_requests_total",
		Help:      "Dashboard HTTP requests by route and status.",
	}, []string{"method", "route", "status"})
	metricRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "wdadash",
		Name:      "http_request_duration_seconds",
		Help:      "Dashboard HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})
	metricWDADuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "wdadash",
		Name:      "wda_request_duration_seconds",
		Help:      "Latency of calls to WebDriverAgent.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
	metricStreams = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "wdadash",
		Name:      "sse_streams_active",
		Help:      "Live event streams relayed to dashboard clients.",
	}, []string{"kind"})
	metricGestures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wdadash",
		Name:      "gestures_total",
		Help:      "Gestures performed, by kind and outcome.",
	}, []string{"kind", "outcome"})
)

// ObserveWDA records one WDA call. It matches wda.Observer.
func ObserveWDA(method, route string, status int, elapsed time.Duration) {
	metricWDADuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(elapsed.Seconds())
}

// ObserveGesture counts a performed gesture.
func ObserveGesture(kind string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	metricGestures.WithLabelValues(kind, outcome).Inc()
}
