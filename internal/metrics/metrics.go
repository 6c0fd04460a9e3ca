// Package metrics holds the Prometheus collectors exported on /metrics.
// Collectors register with the default registry on package init.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "taskboard"

// HTTPRequestsTotal counts handled requests.
// Labels: method, route (gin full path), status.
var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests handled.",
	},
	[]string{"method", "route", "status"},
)

// HTTPRequestDuration measures handler latency per route.
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route"},
)

// AuthorizationDeniedTotal counts membership checks that failed.
// Label reason: not_member or not_owner.
var AuthorizationDeniedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "authorization_denied_total",
		Help:      "Total number of board membership checks that denied access.",
	},
	[]string{"reason"},
)

// RemindersMatchedTotal counts cards selected by a reminder scan.
// Label kind: start or finish.
var RemindersMatchedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reminders_matched_total",
		Help:      "Total number of cards matched by reminder scans.",
	},
	[]string{"kind"},
)

// RemindersSkippedTotal counts reminders suppressed by the dedup window.
var RemindersSkippedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "reminders_skipped_total",
		Help:      "Total number of reminders suppressed as duplicates.",
	},
	[]string{"kind"},
)

// NotificationsEnqueuedTotal counts notifications handed to the queue.
// Label template: the notification template id.
var NotificationsEnqueuedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_enqueued_total",
		Help:      "Total number of notifications enqueued for delivery.",
	},
	[]string{"template"},
)

// NotificationsFailedTotal counts failed enqueue or delivery attempts.
// Label stage: enqueue or deliver.
var NotificationsFailedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_failed_total",
		Help:      "Total number of notifications that failed to enqueue or deliver.",
	},
	[]string{"template", "stage"},
)

// NotificationsSentTotal counts delivered notifications.
var NotificationsSentTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "notifications_sent_total",
		Help:      "Total number of notifications delivered.",
	},
	[]string{"template"},
)

// GinMiddleware records request count and latency. Unmatched routes are
// grouped under "unmatched" to keep label cardinality bounded.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		method := c.Request.Method
		HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(c.Writer.Status())).Inc()
		HTTPRequestDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	}
}
