package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"shortlink-service/internal/config"
	"shortlink-service/internal/metrics"
	"shortlink-service/internal/ratelimit"

	"github.com/gin-gonic/gin"
)

// RateLimit 按客户端 IP 的固定窗口限流中间件
func RateLimit(limiter *ratelimit.Limiter, limitConfig *config.Limit) gin.HandlerFunc {
	if !limitConfig.Enabled || limiter == nil {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	window := time.Duration(limitConfig.WindowSeconds) * time.Second
	retryAfter := strconv.FormatInt(limitConfig.WindowSeconds, 10)

	return func(c *gin.Context) {
		// 跳过特定路径
		for _, path := range limitConfig.SkipPaths {
			if strings.HasPrefix(c.Request.URL.Path, path) {
				c.Next()
				return
			}
		}

		if !limiter.Allow(c.Request.Context(), c.ClientIP(), limitConfig.Requests, window) {
			metrics.RateLimited.Inc()
			c.Header("Retry-After", retryAfter)
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error": "请求过于频繁，请稍后再试",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
