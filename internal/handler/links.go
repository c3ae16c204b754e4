package handler

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"shortlink-service/internal/analytics"
	"shortlink-service/internal/middleware"
	"shortlink-service/internal/model"
	"shortlink-service/internal/store"

	"github.com/gin-gonic/gin"
)

// 自动生成短码时遇到冲突的最大重试次数
const maxGenerateAttempts = 3

// CreateShortLinkRequest 创建短链接请求
type CreateShortLinkRequest struct {
	URL       string     `json:"url" binding:"required,url" example:"https://github.com/gin-gonic/gin"`
	Slug      string     `json:"slug,omitempty" binding:"omitempty,slug" example:"gin"`
	Tags      []string   `json:"tags,omitempty" binding:"omitempty,max=20,dive,max=50"`
	Password  string     `json:"password,omitempty" binding:"omitempty,max=72"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// LinkData 短链接信息
type LinkData struct {
	Slug      string     `json:"slug"`
	URL       string     `json:"url"`
	ShortURL  string     `json:"shortUrl"`
	Tags      []string   `json:"tags,omitempty"`
	IsActive  bool       `json:"isActive"`
	Protected bool       `json:"protected"`
	Clicks    int64      `json:"clicks"`
	CreatedAt time.Time  `json:"createdAt"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// CreateShortLinkResponse 创建短链接响应
type CreateShortLinkResponse struct {
	Success bool     `json:"success"`
	Data    LinkData `json:"data"`
}

func (h *ShortLinkHandler) linkData(c *gin.Context, link *model.Link) LinkData {
	return LinkData{
		Slug:      link.Slug,
		URL:       link.OriginalURL,
		ShortURL:  h.shortURL(c, link.Slug),
		Tags:      link.Tags,
		IsActive:  link.IsActive,
		Protected: link.HasPassword(),
		Clicks:    link.ClickCount,
		CreatedAt: link.CreatedAt,
		ExpiresAt: link.ExpiresAt,
	}
}

// CreateShortLink godoc
// @Summary 创建短链接
// @Description 使用 API Key 为一个长 URL 创建短链接，可指定自定义短码
// @Tags ShortLink
// @Security ApiKeyAuth
// @Accept  json
// @Produce  json
// @Param   body  body   CreateShortLinkRequest  true  "长链接 URL"
// @Success 200 {object} CreateShortLinkResponse "成功响应"
// @Failure 400 {object} map[string]interface{} "请求无效"
// @Failure 401 {object} map[string]interface{} "API Key 无效"
// @Failure 409 {object} map[string]interface{} "短码已被占用"
// @Failure 500 {object} map[string]interface{} "服务器内部错误"
// @Router /api/v1/shorten [post]
func (h *ShortLinkHandler) CreateShortLink(c *gin.Context) {
	var req CreateShortLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求数据: " + err.Error()})
		return
	}
	if req.ExpiresAt != nil && !req.ExpiresAt.After(timeNow()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "expiresAt 必须晚于当前时间"})
		return
	}

	link := &model.Link{
		OriginalURL: req.URL,
		OwnerID:     middleware.UserID(c),
		IsActive:    true,
		Tags:        req.Tags,
		ExpiresAt:   req.ExpiresAt,
	}
	if err := link.SetPassword(req.Password); err != nil {
		h.respondStoreError(c, err)
		return
	}

	ctx := c.Request.Context()
	if req.Slug != "" {
		link.Slug = req.Slug
		if err := h.store.CreateLink(ctx, link); err != nil {
			if errors.Is(err, store.ErrSlugTaken) {
				c.JSON(http.StatusConflict, gin.H{"error": "Slug taken"})
				return
			}
			h.respondStoreError(c, err)
			return
		}
	} else if err := h.createWithGeneratedSlug(c, link); err != nil {
		h.respondStoreError(c, err)
		return
	}

	h.logger.Infow("短链接已创建", "slug", link.Slug, "owner", link.OwnerID)
	c.JSON(http.StatusOK, CreateShortLinkResponse{Success: true, Data: h.linkData(c, link)})
}

// createWithGeneratedSlug 从生成器取短码；极少数情况下与并发创建冲突时重试
func (h *ShortLinkHandler) createWithGeneratedSlug(c *gin.Context, link *model.Link) error {
	ctx := c.Request.Context()
	var err error
	for attempt := 0; attempt < maxGenerateAttempts; attempt++ {
		link.Slug, err = h.generator.Next(ctx)
		if err != nil {
			return err
		}
		link.ID = ""
		if err = h.store.CreateLink(ctx, link); !errors.Is(err, store.ErrSlugTaken) {
			return err
		}
	}
	return err
}

// GetLink godoc
// @Summary 查询短链接
// @Tags ShortLink
// @Security ApiKeyAuth
// @Produce json
// @Param slug path string true "短码"
// @Success 200 {object} LinkData
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/links/{slug} [get]
func (h *ShortLinkHandler) GetLink(c *gin.Context) {
	link, err := h.store.FindOwnedBySlug(c.Request.Context(), middleware.UserID(c), c.Param("slug"))
	if err != nil {
		h.respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": h.linkData(c, link)})
}

// UpdateLinkRequest 更新短链接请求；未出现的字段保持不变
type UpdateLinkRequest struct {
	OriginalURL *string  `json:"originalUrl" binding:"omitempty,url"`
	Tags        []string `json:"tags" binding:"omitempty,max=20,dive,max=50"`
	IsActive    *bool    `json:"isActive"`
	// Password 为空字符串时取消密码
	Password *string `json:"password" binding:"omitempty,max=72"`
	// ExpiresAt RFC3339 时间，空字符串表示取消过期时间
	ExpiresAt *string `json:"expiresAt"`
}

// UpdateLink godoc
// @Summary 更新短链接
// @Description 只有链接所有者可以修改目标地址、标签、启用状态、密码和过期时间
// @Tags ShortLink
// @Security ApiKeyAuth
// @Accept json
// @Produce json
// @Param slug path string true "短码"
// @Param body body UpdateLinkRequest true "更新内容"
// @Success 200 {object} LinkData
// @Failure 400 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/links/{slug} [patch]
func (h *ShortLinkHandler) UpdateLink(c *gin.Context) {
	var req UpdateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "无效的请求数据: " + err.Error()})
		return
	}

	upd := store.LinkUpdate{
		OriginalURL: req.OriginalURL,
		Tags:        req.Tags,
		IsActive:    req.IsActive,
		Password:    req.Password,
	}
	if req.ExpiresAt != nil {
		if strings.TrimSpace(*req.ExpiresAt) == "" {
			upd.ExpiresAt = &time.Time{}
		} else {
			t, err := time.Parse(time.RFC3339, *req.ExpiresAt)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "expiresAt 必须是 RFC3339 时间"})
				return
			}
			upd.ExpiresAt = &t
		}
	}

	link, err := h.store.UpdateLink(c.Request.Context(), middleware.UserID(c), c.Param("slug"), upd)
	if err != nil {
		h.respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "data": h.linkData(c, link)})
}

// DeleteLink godoc
// @Summary 删除短链接
// @Description 同时删除该链接的点击事件和每日汇总
// @Tags ShortLink
// @Security ApiKeyAuth
// @Produce json
// @Param slug path string true "短码"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/links/{slug} [delete]
func (h *ShortLinkHandler) DeleteLink(c *gin.Context) {
	slug := c.Param("slug")
	if err := h.store.DeleteLink(c.Request.Context(), middleware.UserID(c), slug); err != nil {
		h.respondStoreError(c, err)
		return
	}
	h.logger.Infow("短链接已删除", "slug", slug)
	c.JSON(http.StatusOK, gin.H{"success": true})
}

// GetAnalytics godoc
// @Summary 链接点击分析
// @Description 每日趋势以及最近点击的设备、国家分布
// @Tags Analytics
// @Security ApiKeyAuth
// @Produce json
// @Param slug path string true "短码"
// @Success 200 {object} analytics.Summary
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/links/{slug}/analytics [get]
func (h *ShortLinkHandler) GetAnalytics(c *gin.Context) {
	link, err := h.store.FindOwnedBySlug(c.Request.Context(), middleware.UserID(c), c.Param("slug"))
	if err != nil {
		h.respondStoreError(c, err)
		return
	}
	summary, err := analytics.Build(c.Request.Context(), h.store, link)
	if err != nil {
		h.respondStoreError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// ExportCSV godoc
// @Summary 导出点击明细
// @Description 最近的点击事件（最多 5000 条，按时间倒序）
// @Tags Analytics
// @Security ApiKeyAuth
// @Produce text/csv
// @Param slug path string true "短码"
// @Success 200 {file} file
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/links/{slug}/export.csv [get]
func (h *ShortLinkHandler) ExportCSV(c *gin.Context) {
	ctx := c.Request.Context()
	link, err := h.store.FindOwnedBySlug(ctx, middleware.UserID(c), c.Param("slug"))
	if err != nil {
		h.respondStoreError(c, err)
		return
	}
	events, err := h.store.RecentClicks(ctx, link.ID, analytics.MaxExportRows)
	if err != nil {
		h.respondStoreError(c, err)
		return
	}
	if len(events) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "No data found"})
		return
	}

	filename := fmt.Sprintf("analytics-%s-%s.csv", link.Slug, timeNow().UTC().Format(model.DateLayout))
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Status(http.StatusOK)
	if err := analytics.WriteCSV(c.Writer, events); err != nil {
		h.logger.Errorw("写出 CSV 失败", "slug", link.Slug, "error", err)
	}
}
