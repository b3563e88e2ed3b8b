package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "external_notifier"

// Outcome label values
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics holds the service's domain counters.
type Metrics struct {
	HTTP *HTTPMetrics

	OAuthExchanges    *prometheus.CounterVec
	ChannelFetches    *prometheus.CounterVec
	MessagesSent      *prometheus.CounterVec
	BroadcastDuration prometheus.Histogram
}

// NewRegistry creates a Prometheus registry with Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

// Handler returns an http.Handler that serves Prometheus metrics.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// New creates and registers all metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTP: NewHTTPMetrics(reg),
		OAuthExchanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "oauth",
			Name:      "exchanges_total",
			Help:      "Authorization code exchanges by result.",
		}, []string{"result"}),
		ChannelFetches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "slack",
			Name:      "channel_fetches_total",
			Help:      "Channel list requests to Slack by result.",
		}, []string{"result"}),
		MessagesSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "slack",
			Name:      "messages_total",
			Help:      "chat.postMessage calls by result.",
		}, []string{"result"}),
		BroadcastDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "broadcast_duration_seconds",
			Help:      "Time to deliver one notification to all requested channels.",
			Buckets:   prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(m.OAuthExchanges, m.ChannelFetches, m.MessagesSent, m.BroadcastDuration)
	return m
}

// Result maps an error to a result label value.
func Result(err error) string {
	if err != nil {
		return ResultFailure
	}
	return ResultSuccess
}
