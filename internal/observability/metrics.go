package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequestsTotal  *prometheus.CounterVec
	httpLatencySeconds *prometheus.HistogramVec
	httpErrorsTotal    *prometheus.CounterVec

	messagesSentTotal           *prometheus.CounterVec
	notificationsPublishedTotal *prometheus.CounterVec
	streamChannelsActive        prometheus.Gauge
	streamPollErrorsTotal       prometheus.Counter
	typingPingsTotal            prometheus.Counter
	notificationSubsActive      prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used by the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		messagesSentTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "chat_messages_sent_total",
			Help: "Total number of chat messages persisted.",
		}, []string{"conversation_type"})

		notificationsPublishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_published_total",
			Help: "Total number of notifications dispatched to subscribers.",
		}, []string{"type"})

		streamChannelsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "stream_channels_active",
			Help: "Number of live update channels currently open.",
		})

		streamPollErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "stream_poll_errors_total",
			Help: "Total number of swallowed storage errors during stream poll cycles.",
		})

		typingPingsTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "typing_pings_total",
			Help: "Total number of typing pings recorded.",
		})

		notificationSubsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "notification_subscribers_active",
			Help: "Number of open notification SSE subscriptions.",
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			messagesSentTotal,
			notificationsPublishedTotal,
			streamChannelsActive,
			streamPollErrorsTotal,
			typingPingsTotal,
			notificationSubsActive,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// MessagesSentTotal exposes the counter for persisted chat messages.
func MessagesSentTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return messagesSentTotal
}

// NotificationsPublishedTotal exposes the counter for dispatched notifications.
func NotificationsPublishedTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsPublishedTotal
}

// StreamChannelsActive exposes the gauge of open live update channels.
func StreamChannelsActive() prometheus.Gauge {
	RegisterMetrics()
	return streamChannelsActive
}

// StreamPollErrorsTotal exposes the counter of swallowed poll errors.
func StreamPollErrorsTotal() prometheus.Counter {
	RegisterMetrics()
	return streamPollErrorsTotal
}

// TypingPingsTotal exposes the counter of typing pings.
func TypingPingsTotal() prometheus.Counter {
	RegisterMetrics()
	return typingPingsTotal
}

// NotificationSubscribersActive exposes the gauge of open notification streams.
func NotificationSubscribersActive() prometheus.Gauge {
	RegisterMetrics()
	return notificationSubsActive
}
