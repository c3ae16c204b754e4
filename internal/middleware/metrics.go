package middleware

import (
	"strconv"
	"time"

	"shortlink-service/internal/metrics"

	"github.com/gin-gonic/gin"
)

// Metrics 记录请求数和耗时，按路由模板聚合避免短码导致标签爆炸
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		metrics.HTTPRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		metrics.HTTPDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
