package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Requests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "classtrack", Name: "http_requests_total", Help: "Handled HTTP requests",
	}, []string{"method", "route", "status"})
	HandlerErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "classtrack", Name: "handler_errors_total", Help: "Requests that ended in a 5xx",
	})
	DBPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "classtrack", Name: "db_ping_seconds", Help: "DB ping latency",
		Buckets: prometheus.DefBuckets,
	})
	RedisPing = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "classtrack", Name: "redis_ping_seconds", Help: "Redis ping latency",
		Buckets: prometheus.DefBuckets,
	})
)

func init() {
	prometheus.MustRegister(Requests, HandlerErrors, DBPing, RedisPing)
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler { return promhttp.Handler() }

// ObserveDBPing records a health-check ping latency.
func ObserveDBPing(d time.Duration) { DBPing.Observe(d.Seconds()) }

// ObserveRedisPing records a health-check redis round-trip latency.
func ObserveRedisPing(d time.Duration) { RedisPing.Observe(d.Seconds()) }

// Middleware counts requests by method, route template and status.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		Requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(status)).Inc()
		if status >= http.StatusInternalServerError {
			HandlerErrors.Inc()
		}
	}
}
