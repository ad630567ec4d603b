package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "order_replay"

type Metrics struct {
	HTTPRequests   *prometheus.CounterVec
	HTTPLatencyMS  *prometheus.HistogramVec
	EventsRecorded *prometheus.CounterVec
	ReplayDuration *prometheus.HistogramVec
	OrdersFailed   prometheus.Counter
	ActionsSent    *prometheus.CounterVec
}

// New builds the collectors and registers them with reg. Pass
// prometheus.DefaultRegisterer in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "status"}),
		HTTPLatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route"}),
		EventsRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_recorded_total",
			Help:      "Events appended to the event store, by kind.",
		}, []string{"kind"}),
		ReplayDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "replay_duration_seconds",
			Help:      "Time spent folding events into a snapshot.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"mode"}),
		OrdersFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_failed_total",
			Help:      "Orders whose snapshot entered the failed state.",
		}),
		ActionsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "action_commands_total",
			Help:      "Action commands handed to the workflow, by action and outcome.",
		}, []string{"action", "outcome"}),
	}

	reg.MustRegister(
		m.HTTPRequests, m.HTTPLatencyMS, m.EventsRecorded,
		m.ReplayDuration, m.OrdersFailed, m.ActionsSent,
	)
	return m
}

func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
