package api

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/your-org/moodlog/internal/observability"
)

// RequestLog emits one structured line per request and feeds the latency
// histogram. The metric is labeled with the route template rather than
// the raw path, so per-handle URLs keep the label cardinality bounded.
func RequestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)

		attrs := []any{
			"method", c.Request.Method,
			"route", route,
			"path", c.Request.URL.Path,
			"status", status,
			"elapsed", elapsed.String(),
			"client", c.ClientIP(),
		}
		if len(c.Errors) > 0 {
			attrs = append(attrs, "errors", c.Errors.String())
		}
		if status >= 500 {
			slog.Error("http request", attrs...)
		} else {
			slog.Info("http request", attrs...)
		}

		observability.HTTPRequestDuration.WithLabelValues(
			c.Request.Method, route, strconv.Itoa(status),
		).Observe(elapsed.Seconds())
	}
}
