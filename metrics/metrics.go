package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "http_requests_total", Help: "Total HTTP requests"},
		[]string{"service", "method", "route", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{Name: "http_request_duration_seconds", Help: "HTTP request duration", Buckets: prometheus.DefBuckets},
		[]string{"service", "method", "route"},
	)

	CheckoutTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "checkout_total", Help: "Checkout attempts by outcome"},
		[]string{"outcome"},
	)
	OrphanedCharges = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "checkout_orphaned_charges_total", Help: "Charges that succeeded but whose order could not be stored"},
	)
)

func init() {
	prometheus.MustRegister(httpRequestsTotal, httpRequestDuration, CheckoutTotal, OrphanedCharges)
}

func Middleware(service string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequestsTotal.WithLabelValues(service, c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpRequestDuration.WithLabelValues(service, c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
