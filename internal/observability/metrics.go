package observability

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsync_http_requests_total",
			Help: "Total number of HTTP requests processed by the chat-sync service.",
		},
		[]string{"method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatsync_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)
	sessionsActive = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chatsync_sessions_active",
			Help: "Number of open chat sessions.",
		},
		[]string{"scope_kind"},
	)
	sessionTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsync_session_transitions_total",
			Help: "Total number of session connection-state transitions.",
		},
		[]string{"state"},
	)
	feedEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsync_feed_events_total",
			Help: "Total number of change-feed events received.",
		},
		[]string{"feed", "kind"},
	)
	wsActiveConnections = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "chatsync_ws_active_connections",
			Help: "Number of active websocket state streams.",
		},
		[]string{"scope_kind"},
	)
	wsEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsync_ws_events_total",
			Help: "Total number of websocket lifecycle events.",
		},
		[]string{"scope_kind", "event"},
	)
	publishErrorsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "chatsync_amqp_publish_errors_total",
			Help: "Total number of AMQP publish errors.",
		},
	)
	writeFailuresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatsync_write_failures_total",
			Help: "Total number of failed fire-and-forget writes.",
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(
		httpRequestsTotal,
		httpRequestDuration,
		sessionsActive,
		sessionTransitionsTotal,
		feedEventsTotal,
		wsActiveConnections,
		wsEventsTotal,
		publishErrorsTotal,
		writeFailuresTotal,
	)
}

// HTTPMetricsMiddleware records request counts and latencies per route.
func HTTPMetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}

func IncSessionActive(scopeKind string) {
	sessionsActive.WithLabelValues(scopeKind).Inc()
}

func DecSessionActive(scopeKind string) {
	sessionsActive.WithLabelValues(scopeKind).Dec()
}

func IncSessionTransition(state string) {
	sessionTransitionsTotal.WithLabelValues(state).Inc()
}

func IncFeedEvent(feed, kind string) {
	feedEventsTotal.WithLabelValues(feed, kind).Inc()
}

func IncWSActive(scopeKind string) {
	wsActiveConnections.WithLabelValues(scopeKind).Inc()
}

func DecWSActive(scopeKind string) {
	wsActiveConnections.WithLabelValues(scopeKind).Dec()
}

func IncWSEvent(scopeKind, event string) {
	wsEventsTotal.WithLabelValues(scopeKind, event).Inc()
}

func IncPublishError() {
	publishErrorsTotal.Inc()
}

func IncWriteFailure(op string) {
	writeFailuresTotal.WithLabelValues(op).Inc()
}
