package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	apphttp "github.com/yungbote/briefs-backend/internal/http"
	"github.com/yungbote/briefs-backend/internal/observability"
	"github.com/yungbote/briefs-backend/internal/pkg/logger"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Storage  *Storage
	Metrics  *observability.Metrics
	Services Services
	Server   *apphttp.Server

	shutdownOtel func(context.Context) error
	cancel       context.CancelFunc
}

// New builds the app from CONFIG_FILE and the environment.
func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading configuration...")
	cfg, err := LoadConfig(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("load config: %w", err)
	}
	a, err := NewWithConfig(log, cfg)
	if err != nil {
		log.Sync()
		return nil, err
	}
	return a, nil
}

func NewWithConfig(log *logger.Logger, cfg Config) (*App, error) {
	if cfg.LogMode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	shutdownOtel := observability.InitOTel(context.Background(), log, cfg.Otel)
	metrics := observability.Init(log, cfg.Metrics.Enabled)

	storage, err := wireStorage(log, cfg)
	if err != nil {
		return nil, err
	}

	serviceset := wireServices(log, cfg, storage.Store, metrics)
	handlerset := wireHandlers(log, serviceset, storage.Ping)
	server := wireServer(log, cfg, handlerset, metrics)

	return &App{
		Log:          log,
		Cfg:          cfg,
		Storage:      storage,
		Metrics:      metrics,
		Services:     serviceset,
		Server:       server,
		shutdownOtel: shutdownOtel,
	}, nil
}

// Start launches background workers.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	if a.Services.ReconcileWorker != nil {
		a.Services.ReconcileWorker.Start(ctx)
	}
}

func (a *App) Run(addr string) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Server.Run(addr)
}

// Close stops the HTTP server and workers, then releases storage.
func (a *App) Close() {
	if a == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if a.Server != nil {
		if err := a.Server.Shutdown(ctx); err != nil {
			a.Log.Warn("HTTP shutdown failed", "error", err)
		}
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
		a.Services.ReconcileWorker.Wait()
	}
	if a.shutdownOtel != nil {
		_ = a.shutdownOtel(ctx)
	}
	a.Storage.Close()
	if a.Log != nil {
		a.Log.Sync()
	}
}
