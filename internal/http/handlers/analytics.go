package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/studentdiary-backend/internal/http/response"
	"github.com/yungbote/studentdiary-backend/internal/platform/ctxutil"
	"github.com/yungbote/studentdiary-backend/internal/services"
)

type AnalyticsHandler struct {
	analytics services.AnalyticsService
}

func NewAnalyticsHandler(analytics services.AnalyticsService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics}
}

// GET /api/v1/analytics/overview
func (h *AnalyticsHandler) Overview(c *gin.Context) {
	snap, err := h.analytics.Overview(c.Request.Context(), ctxutil.OwnerID(c.Request.Context()))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, snap)
}

// GET /api/v1/analytics/mood-trends?days=
func (h *AnalyticsHandler) MoodTrends(c *gin.Context) {
	days, err := intQuery(c, "days", services.DefaultTrendDays)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	trends, period, err := h.analytics.MoodTrends(c.Request.Context(), ctxutil.OwnerID(c.Request.Context()), days)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"trends": trends, "period_days": period})
}

// GET /api/v1/analytics/insights
func (h *AnalyticsHandler) Insights(c *gin.Context) {
	in, err := h.analytics.Insights(c.Request.Context(), ctxutil.OwnerID(c.Request.Context()))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, in)
}

// GET /api/v1/analytics/dashboard
func (h *AnalyticsHandler) Dashboard(c *gin.Context) {
	d, err := h.analytics.Dashboard(c.Request.Context(), ctxutil.OwnerID(c.Request.Context()))
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, d)
}
