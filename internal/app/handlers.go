package app

import (
	"context"

	"github.com/gin-gonic/gin"

	httpapi "github.com/yungbote/studentdiary-backend/internal/http"
	httpH "github.com/yungbote/studentdiary-backend/internal/http/handlers"
	httpMW "github.com/yungbote/studentdiary-backend/internal/http/middleware"
	"github.com/yungbote/studentdiary-backend/internal/observability"
	"github.com/yungbote/studentdiary-backend/internal/pkg/dbctx"
	"github.com/yungbote/studentdiary-backend/internal/platform/logger"
)

type Handlers struct {
	Diary     *httpH.DiaryHandler
	Analytics *httpH.AnalyticsHandler
	Health    *httpH.HealthHandler
}

func wireHandlers(clients Clients, reposet Repos, serviceset Services) Handlers {
	probes := []httpH.Probe{
		{Name: "database", Required: true, Check: func(ctx context.Context) error {
			return reposet.Entry.Ping(dbctx.New(ctx))
		}},
		{Name: "neo4j"},
		{Name: "redis"},
	}
	if clients.Neo4j != nil {
		probes[1].Check = clients.Neo4j.Ping
	}
	if clients.Redis != nil {
		probes[2].Check = func(ctx context.Context) error { return clients.Redis.Ping(ctx).Err() }
	}
	return Handlers{
		Diary:     httpH.NewDiaryHandler(serviceset.Entry, serviceset.Reflection),
		Analytics: httpH.NewAnalyticsHandler(serviceset.Analytics),
		Health:    httpH.NewHealthHandler(probes...),
	}
}

func wireRouter(cfg Config, h Handlers, metrics *observability.Metrics, log *logger.Logger) *gin.Engine {
	if cfg.LogMode == "prod" || cfg.LogMode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	auth := httpMW.NewAuthMiddleware(log, httpMW.AuthConfig{JWTSecret: cfg.JWTSecretKey, DevOwner: cfg.AuthDevOwner})
	if auth.DevMode() {
		log.Warn("JWT_SECRET_KEY not set; owner identity is taken from X-Owner-Id or AUTH_DEV_OWNER")
	}
	return httpapi.NewRouter(httpapi.RouterConfig{
		Log:              log,
		Metrics:          metrics,
		ServiceName:      cfg.Otel.ServiceName,
		TracingEnabled:   cfg.Otel.Enabled,
		CORSOrigins:      cfg.CORSOrigins,
		AuthMiddleware:   auth,
		DiaryHandler:     h.Diary,
		AnalyticsHandler: h.Analytics,
		HealthHandler:    h.Health,
	})
}
