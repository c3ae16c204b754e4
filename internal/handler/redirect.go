package handler

import (
	"errors"
	"net/http"

	"shortlink-service/internal/grant"
	"shortlink-service/internal/resolver"
	"shortlink-service/internal/store"

	"github.com/gin-gonic/gin"
)

// RedirectToOriginal godoc
// @Summary 短链接跳转
// @Description 根据短码跳转到目标地址；爬虫跳转到元数据页，过期和加密链接跳转到对应的提示页
// @Tags Redirect
// @Param slug path string true "短码"
// @Success 302 "跳转"
// @Failure 404 {string} string "Link not found"
// @Failure 503 {string} string "Service Unavailable"
// @Router /{slug} [get]
func (h *ShortLinkHandler) RedirectToOriginal(c *gin.Context) {
	slug := c.Param("slug")
	token, _ := c.Cookie(grant.CookieName(slug))

	decision, err := h.resolver.Resolve(c.Request.Context(), slug, resolver.RequestContext{
		UserAgent:  c.Request.UserAgent(),
		IP:         c.ClientIP(),
		Referrer:   c.Request.Referer(),
		Country:    c.GetHeader(h.cfg.Tracking.CountryHeader),
		City:       c.GetHeader(h.cfg.Tracking.CityHeader),
		GrantToken: token,
	})
	if err != nil {
		if errors.Is(err, store.ErrUnavailable) {
			h.logger.Errorw("解析短码时存储不可用", "slug", slug, "error", err)
			c.String(http.StatusServiceUnavailable, "Service Unavailable")
			return
		}
		h.logger.Errorw("解析短码失败", "slug", slug, "error", err)
		c.String(http.StatusInternalServerError, "Internal Server Error")
		return
	}

	if decision.Kind == resolver.NotFound {
		c.String(http.StatusNotFound, "Link not found")
		return
	}
	c.Redirect(http.StatusFound, decision.Location)
}

// ExpiredPage 过期提示页
func (h *ShortLinkHandler) ExpiredPage(c *gin.Context) {
	c.HTML(http.StatusOK, "expired.html", nil)
}

// PasswordPage 密码输入页
func (h *ShortLinkHandler) PasswordPage(c *gin.Context) {
	c.HTML(http.StatusOK, "password.html", gin.H{"Slug": c.Param("slug")})
}

// VerifyPasswordRequest 密码校验请求
type VerifyPasswordRequest struct {
	Password string `json:"password" form:"password"`
}

// VerifyPassword godoc
// @Summary 校验链接密码
// @Description 密码正确时写入 link_access_<slug> Cookie（24 小时），表单提交会跳回短链接
// @Tags Redirect
// @Accept json,x-www-form-urlencoded
// @Produce json
// @Param slug path string true "短码"
// @Param body body VerifyPasswordRequest true "密码"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 404 {object} map[string]interface{}
// @Router /password/{slug} [post]
func (h *ShortLinkHandler) VerifyPassword(c *gin.Context) {
	slug := c.Param("slug")
	wantsJSON := c.ContentType() == gin.MIMEJSON

	var req VerifyPasswordRequest
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "无效的请求数据"})
		return
	}

	link, err := h.store.FindBySlug(c.Request.Context(), slug)
	if err == nil && !link.IsActive {
		err = store.ErrNotFound
	}
	if err != nil {
		h.respondStoreError(c, err)
		return
	}

	// bcrypt 比较只发生在这里，跳转路径只校验凭证签名
	if !link.CheckPassword(req.Password) {
		if wantsJSON {
			c.JSON(http.StatusUnauthorized, gin.H{"success": false, "error": "Incorrect password"})
			return
		}
		c.HTML(http.StatusUnauthorized, "password.html", gin.H{"Slug": slug, "Error": "Incorrect password"})
		return
	}

	if link.HasPassword() {
		token, err := h.grants.Issue(slug, timeNow())
		if err != nil {
			h.logger.Errorw("签发访问凭证失败", "slug", slug, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Verification failed"})
			return
		}
		c.SetSameSite(http.SameSiteLaxMode)
		c.SetCookie(grant.CookieName(slug), token, int(h.grants.TTL().Seconds()), "/"+slug, "", h.cfg.Grant.Secure, true)
	}

	if wantsJSON {
		c.JSON(http.StatusOK, gin.H{"success": true, "redirect": "/" + slug})
		return
	}
	c.Redirect(http.StatusSeeOther, "/"+slug)
}
