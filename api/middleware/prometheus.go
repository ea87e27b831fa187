package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status", "service"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint", "service"},
	)

	relationshipOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relationship_operations_total",
			Help: "Total number of relationship state machine operations",
		},
		[]string{"operation", "status", "service"},
	)

	chatMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_total",
			Help: "Total number of chat messages processed",
		},
		[]string{"transport", "status", "service"},
	)

	wsConnectionsActive = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "ws_connections_active",
			Help: "Number of currently open websocket sessions",
		},
		[]string{"service"},
	)
)

func PrometheusMiddleware(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		httpRequestsTotal.WithLabelValues(
			c.Request.Method,
			path,
			status,
			serviceName,
		).Inc()

		httpRequestDuration.WithLabelValues(
			c.Request.Method,
			path,
			serviceName,
		).Observe(duration)
	}
}

func RecordRelationshipOperation(operation, status, serviceName string) {
	relationshipOpsTotal.WithLabelValues(operation, status, serviceName).Inc()
}

func RecordChatMessage(transport, status, serviceName string) {
	chatMessagesTotal.WithLabelValues(transport, status, serviceName).Inc()
}

func WSConnectionOpened(serviceName string) {
	wsConnectionsActive.WithLabelValues(serviceName).Inc()
}

func WSConnectionClosed(serviceName string) {
	wsConnectionsActive.WithLabelValues(serviceName).Dec()
}
