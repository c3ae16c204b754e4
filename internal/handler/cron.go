package handler

import (
	"errors"
	"net/http"
	"time"

	"shortlink-service/internal/aggregator"
	"shortlink-service/internal/model"

	"github.com/gin-gonic/gin"
)

// timeNow 测试中可替换
var timeNow = time.Now

// Aggregate godoc
// @Summary 触发每日汇总
// @Description 汇总前一个 UTC 自然日的点击并清理过期事件；date=YYYY-MM-DD 时重放指定日期
// @Tags Internal
// @Security CronSecret
// @Produce json
// @Param date query string false "重放日期"
// @Success 200 {object} map[string]interface{}
// @Failure 401 {object} map[string]interface{}
// @Failure 409 {object} map[string]interface{}
// @Failure 500 {object} map[string]interface{}
// @Router /internal/cron/aggregate [post]
func (h *ShortLinkHandler) Aggregate(c *gin.Context) {
	now := timeNow()

	var (
		res aggregator.Result
		err error
	)
	if date := c.Query("date"); date != "" {
		day, perr := time.Parse(model.DateLayout, date)
		if perr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "date 格式应为 YYYY-MM-DD"})
			return
		}
		res, err = h.aggregator.RunForDate(c.Request.Context(), day, now)
	} else {
		res, err = h.aggregator.RunDaily(c.Request.Context(), now)
	}

	if errors.Is(err, aggregator.ErrAlreadyRunning) {
		c.JSON(http.StatusConflict, gin.H{"success": false, "error": "Aggregation already running"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success":   false,
			"error":     err.Error(),
			"date":      res.Date,
			"processed": res.ProcessedLinks,
			"pruned":    res.Pruned,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"processed": res.ProcessedLinks,
		"date":      res.Date,
		"pruned":    res.Pruned,
	})
}
