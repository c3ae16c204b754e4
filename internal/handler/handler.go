package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"shortlink-service/internal/aggregator"
	"shortlink-service/internal/config"
	"shortlink-service/internal/grant"
	"shortlink-service/internal/metadata"
	"shortlink-service/internal/resolver"
	"shortlink-service/internal/shortcode"
	"shortlink-service/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Deps 处理器依赖
type Deps struct {
	Config     *config.Config
	Store      *store.Store
	Redis      *redis.Client
	Resolver   *resolver.Resolver
	Generator  *shortcode.Generator
	Grants     *grant.Manager
	Metadata   *metadata.Service
	Aggregator *aggregator.Aggregator
	Logger     *zap.SugaredLogger
}

// ShortLinkHandler 处理器
type ShortLinkHandler struct {
	cfg        *config.Config
	store      *store.Store
	redis      *redis.Client
	resolver   *resolver.Resolver
	generator  *shortcode.Generator
	grants     *grant.Manager
	metadata   *metadata.Service
	aggregator *aggregator.Aggregator
	logger     *zap.SugaredLogger
}

// NewShortLinkHandler 创建处理器实例
func NewShortLinkHandler(d Deps) *ShortLinkHandler {
	return &ShortLinkHandler{
		cfg:        d.Config,
		store:      d.Store,
		redis:      d.Redis,
		resolver:   d.Resolver,
		generator:  d.Generator,
		grants:     d.Grants,
		metadata:   d.Metadata,
		aggregator: d.Aggregator,
		logger:     d.Logger.Named("handler"),
	}
}

// HealthCheck godoc
// @Summary 健康检查
// @Tags System
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health [get]
func (h *ShortLinkHandler) HealthCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	resp := gin.H{"status": "healthy", "timestamp": time.Now(), "database": "ok"}
	status := http.StatusOK
	if err := h.store.Ping(ctx); err != nil {
		resp["status"] = "unhealthy"
		resp["database"] = "down"
		status = http.StatusServiceUnavailable
	}
	// 缓存不可用时服务仍可降级运行
	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			resp["cache"] = "down"
		} else {
			resp["cache"] = "ok"
		}
	}
	c.JSON(status, resp)
}

// shortURL 拼接短链接地址，优先使用配置的 BaseURL
func (h *ShortLinkHandler) shortURL(c *gin.Context, slug string) string {
	if base := strings.TrimRight(h.cfg.App.BaseURL, "/"); base != "" {
		return base + "/" + slug
	}
	scheme := "http"
	if c.Request.TLS != nil || c.GetHeader("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host + "/" + slug
}

// respondStoreError 把存储错误映射为 HTTP 状态码
func (h *ShortLinkHandler) respondStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Link not found"})
	case errors.Is(err, store.ErrUnavailable):
		h.logger.Errorw("存储不可用", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Service Unavailable"})
	default:
		h.logger.Errorw("请求处理失败", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal Server Error"})
	}
}
