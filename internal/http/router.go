package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/studentdiary-backend/internal/http/handlers"
	httpMW "github.com/yungbote/studentdiary-backend/internal/http/middleware"
	"github.com/yungbote/studentdiary-backend/internal/observability"
	"github.com/yungbote/studentdiary-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	Metrics        *observability.Metrics
	ServiceName    string
	TracingEnabled bool
	CORSOrigins    []string

	AuthMiddleware   *httpMW.AuthMiddleware
	DiaryHandler     *httpH.DiaryHandler
	AnalyticsHandler *httpH.AnalyticsHandler
	HealthHandler    *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.TracingEnabled {
		name := cfg.ServiceName
		if name == "" {
			name = "studentdiary-api"
		}
		r.Use(otelgin.Middleware(name))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/health", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api/v1")
	if cfg.AuthMiddleware != nil {
		api.Use(cfg.AuthMiddleware.RequireOwner())
	}

	// Diary
	if cfg.DiaryHandler != nil {
		api.POST("/diary/entries", cfg.DiaryHandler.CreateEntry)
		api.GET("/diary/entries", cfg.DiaryHandler.ListEntries)
		api.GET("/diary/entries/:id", cfg.DiaryHandler.GetEntry)
		api.GET("/diary/entries/:id/analysis", cfg.DiaryHandler.GetAnalysis)
		api.GET("/diary/entries/:id/similar", cfg.DiaryHandler.SimilarEntries)
		api.GET("/diary/reflection/daily", cfg.DiaryHandler.DailyReflection)
	}

	// Analytics
	if cfg.AnalyticsHandler != nil {
		api.GET("/analytics/overview", cfg.AnalyticsHandler.Overview)
		api.GET("/analytics/mood-trends", cfg.AnalyticsHandler.MoodTrends)
		api.GET("/analytics/insights", cfg.AnalyticsHandler.Insights)
		api.GET("/analytics/dashboard", cfg.AnalyticsHandler.Dashboard)
	}

	return r
}
