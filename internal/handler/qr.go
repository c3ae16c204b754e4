package handler

import (
	"net/http"

	"shortlink-service/internal/qrcode"

	"github.com/gin-gonic/gin"
)

// QRCode godoc
// @Summary 短链接二维码
// @Description 默认返回 SVG；format=png 返回 PNG；logo=1 且配置了 Logo 时在中心叠加 Logo
// @Tags Redirect
// @Produce image/svg+xml,image/png
// @Param slug path string true "短码"
// @Param format query string false "svg | png"
// @Param logo query string false "1 叠加 Logo"
// @Success 200 {file} file
// @Failure 404 {object} map[string]interface{}
// @Router /qr/{slug} [get]
func (h *ShortLinkHandler) QRCode(c *gin.Context) {
	slug := c.Param("slug")
	if _, err := h.store.FindActiveBySlug(c.Request.Context(), slug); err != nil {
		h.respondStoreError(c, err)
		return
	}
	target := h.shortURL(c, slug)

	if c.Query("format") == "png" {
		png, err := qrcode.PNG(target, h.cfg.QR.PNGSize)
		if err != nil {
			h.respondStoreError(c, err)
			return
		}
		c.Data(http.StatusOK, "image/png", png)
		return
	}

	svg, err := qrcode.Generate(target)
	if err != nil {
		h.respondStoreError(c, err)
		return
	}
	if c.Query("logo") == "1" && h.cfg.QR.LogoURL != "" {
		svg = qrcode.EmbedLogo(svg, h.cfg.QR.LogoURL, h.cfg.QR.LogoFraction)
	}
	c.Data(http.StatusOK, "image/svg+xml", []byte(svg))
}
