package prometheus

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/urovital/clinic-api/pkg/metrics"
)

const unmatchedRoute = "unmatched"

type Handler struct {
	metrics *metrics.Metrics
}

func New(m *metrics.Metrics) *Handler {
	return &Handler{metrics: m}
}

// Middleware records request count and latency by route template, so ids
// in the path never become label values.
func (h *Handler) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = unmatchedRoute
		}
		status := strconv.Itoa(c.Writer.Status())

		h.metrics.RequestTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		h.metrics.RequestDuration.WithLabelValues(c.Request.Method, path, status).
			Observe(time.Since(start).Seconds())
	}
}

func (h *Handler) Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(h.metrics.Registry(), promhttp.HandlerOpts{}))
}
