package app

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	httpapi "github.com/yungbote/studentdiary-backend/internal/http"
	"github.com/yungbote/studentdiary-backend/internal/observability"
	"github.com/yungbote/studentdiary-backend/internal/platform/logger"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Clients  Clients
	Repos    Repos
	Services Services
	Metrics  *observability.Metrics
	Router   *gin.Engine

	server       *httpapi.Server
	shutdownOtel func(context.Context) error
	cancel       context.CancelFunc
}

func New() (*App, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.LogMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return NewWithConfig(context.Background(), cfg, log)
}

func NewWithConfig(ctx context.Context, cfg Config, log *logger.Logger) (*App, error) {
	shutdownOtel := observability.InitOTel(ctx, log, cfg.Otel)

	var metrics *observability.Metrics
	if cfg.MetricsEnabled {
		metrics = observability.NewMetrics()
	}

	clients, err := wireClients(ctx, cfg, log)
	if err != nil {
		_ = shutdownOtel(ctx)
		log.Sync()
		return nil, err
	}
	if err := clients.DB.AutoMigrateAll(); err != nil {
		clients.Close(ctx, log)
		_ = shutdownOtel(ctx)
		log.Sync()
		return nil, fmt.Errorf("automigrate: %w", err)
	}

	reposet := wireRepos(clients.DB.DB(), log)
	serviceset, err := wireServices(cfg, clients, reposet, metrics, log)
	if err != nil {
		clients.Close(ctx, log)
		_ = shutdownOtel(ctx)
		log.Sync()
		return nil, err
	}
	router := wireRouter(cfg, wireHandlers(clients, reposet, serviceset), metrics, log)

	return &App{
		Log:          log,
		Cfg:          cfg,
		Clients:      clients,
		Repos:        reposet,
		Services:     serviceset,
		Metrics:      metrics,
		Router:       router,
		server:       httpapi.NewServer(router),
		shutdownOtel: shutdownOtel,
	}, nil
}

// Start launches the enrichment workers and sweep.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.Services.Dispatcher.Start(ctx)
}

// Run serves HTTP until ctx is cancelled or SIGINT/SIGTERM arrives, then shuts down.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.server == nil {
		return errors.New("app not initialized")
	}
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		a.Log.Info("HTTP server listening", "addr", a.Cfg.Addr())
		errCh <- a.server.Run(a.Cfg.Addr())
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	a.Log.Info("Shutting down HTTP server")
	sctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := a.server.Shutdown(sctx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return <-errCh
}

// Close stops workers before releasing the clients they use.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Services.Dispatcher != nil {
		a.Services.Dispatcher.Stop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.Clients.Close(ctx, a.Log)
	if a.shutdownOtel != nil {
		if err := a.shutdownOtel(ctx); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	a.Log.Sync()
}
