package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes 注册全部路由
func RegisterRoutes(router *gin.Engine, h *ShortLinkHandler, apiKeyAuth, cronAuth gin.HandlerFunc) {
	router.GET("/health", h.HealthCheck)
	router.GET("/expired", h.ExpiredPage)
	router.GET("/metadata", h.Metadata)
	router.GET("/password/:slug", h.PasswordPage)
	router.POST("/password/:slug", h.VerifyPassword)
	router.GET("/qr/:slug", h.QRCode)

	cron := router.Group("/internal/cron", cronAuth)
	{
		cron.POST("/aggregate", h.Aggregate)
		cron.GET("/aggregate", h.Aggregate)
	}

	api := router.Group("/api/v1", apiKeyAuth)
	{
		api.POST("/shorten", h.CreateShortLink)
		api.GET("/links/:slug", h.GetLink)
		api.PATCH("/links/:slug", h.UpdateLink)
		api.DELETE("/links/:slug", h.DeleteLink)
		api.GET("/links/:slug/analytics", h.GetAnalytics)
		api.GET("/links/:slug/export.csv", h.ExportCSV)
	}

	router.GET("/:slug", h.RedirectToOriginal)
	router.NoRoute(func(c *gin.Context) {
		c.String(http.StatusNotFound, "Link not found")
	})
}
