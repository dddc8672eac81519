package handler

import (
	"net/http"
	"strconv"

	"dira-go/internal/service"

	"github.com/gin-gonic/gin"
)

// AnalyticsHandler serves the dashboard aggregates.
type AnalyticsHandler struct {
	stats service.StatsService
}

// NewAnalyticsHandler creates an AnalyticsHandler.
func NewAnalyticsHandler(stats service.StatsService) *AnalyticsHandler {
	return &AnalyticsHandler{stats: stats}
}

// Get returns report totals, breakdowns and the monthly trend. ?months sets the trend window (default 6).
func (h *AnalyticsHandler) Get(c *gin.Context) {
	months := service.DefaultTrendMonths
	if v := c.Query("months"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			fail(c, http.StatusBadRequest, "months must be an integer")
			return
		}
		months = n
	}
	analytics, err := h.stats.Analytics(c.Request.Context(), months)
	if err != nil {
		failErr(c, "analytics", err)
		return
	}
	ok(c, http.StatusOK, "ok", analytics)
}
