package handler

import (
	"errors"
	"net/http"

	"shortlink-service/internal/metadata"

	"github.com/gin-gonic/gin"
)

// Metadata godoc
// @Summary 社交预览元数据
// @Description 抓取目标页面的标题、描述和 og:image，返回带 Open Graph/Twitter 标签的页面；format=json 时返回 JSON
// @Tags Redirect
// @Produce html,json
// @Param url query string true "目标地址"
// @Param slug query string false "来源短码，匹配时页面自动跳转到目标地址"
// @Param format query string false "json"
// @Success 200 {object} metadata.Preview
// @Failure 400 {string} string "Missing url param"
// @Failure 424 {string} string "Failed to fetch URL"
// @Router /metadata [get]
func (h *ShortLinkHandler) Metadata(c *gin.Context) {
	target := c.Query("url")
	if target == "" {
		c.String(http.StatusBadRequest, "Missing url param")
		return
	}

	preview, err := h.metadata.Lookup(c.Request.Context(), target)
	if err != nil {
		switch {
		case errors.Is(err, metadata.ErrInvalidURL), errors.Is(err, metadata.ErrBlockedAddress):
			c.String(http.StatusBadRequest, "Invalid url param")
		case errors.Is(err, metadata.ErrUpstream):
			c.String(http.StatusFailedDependency, "Failed to fetch URL")
		default:
			h.logger.Warnw("抓取元数据失败", "url", target, "error", err)
			c.String(http.StatusInternalServerError, "Error fetching metadata")
		}
		return
	}

	c.Header("Cache-Control", "public, max-age=3600")
	if c.Query("format") == "json" {
		c.JSON(http.StatusOK, preview)
		return
	}
	c.HTML(http.StatusOK, "metadata.html", previewPage{
		Preview: preview,
		Refresh: h.isLinkTarget(c, c.Query("slug"), preview.URL),
	})
}

// previewPage Refresh 为 false 时页面不自动跳转，避免被当作任意地址的跳板
type previewPage struct {
	*metadata.Preview
	Refresh bool
}

// isLinkTarget 判断 target 是否为 slug 对应的启用链接的目标地址
func (h *ShortLinkHandler) isLinkTarget(c *gin.Context, slug, target string) bool {
	if slug == "" {
		return false
	}
	snap, err := h.store.FindActiveBySlug(c.Request.Context(), slug)
	if err != nil {
		return false
	}
	u, err := metadata.ValidateURL(snap.OriginalURL)
	return err == nil && u.String() == target
}
