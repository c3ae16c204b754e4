package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"

	"shortlink-service/internal/store"

	"github.com/gin-gonic/gin"
)

// ContextUserID API Key 对应的用户 ID 在 gin.Context 中的键
const ContextUserID = "user_id"

// APIKeyLookup 根据 API Key 查找用户
type APIKeyLookup interface {
	UserIDByAPIKey(ctx context.Context, key string) (string, error)
}

// APIKeyAuth Bearer API Key 认证中间件
func APIKeyAuth(lookup APIKeyLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "缺少或格式错误的 API Key"})
			return
		}

		userID, err := lookup.UserIDByAPIKey(c.Request.Context(), token)
		switch {
		case err == nil:
		case errors.Is(err, store.ErrInvalidAPIKey):
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "无效的 API Key"})
			return
		case errors.Is(err, store.ErrUnavailable):
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{"error": "服务暂不可用"})
			return
		default:
			_ = c.Error(err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "认证失败"})
			return
		}

		// 将用户信息存入上下文
		c.Set(ContextUserID, userID)
		c.Next()
	}
}

// CronAuth 定时任务入口的共享密钥校验；secret 为空时不校验
func CronAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}
		token, ok := bearerToken(c)
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

// UserID 读取认证中间件写入的用户 ID
func UserID(c *gin.Context) string {
	return c.GetString(ContextUserID)
}

// 提取 Bearer token
func bearerToken(c *gin.Context) (string, bool) {
	parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
