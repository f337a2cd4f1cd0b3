package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/coursemedia-backend/internal/data/db"
	apphttp "github.com/yungbote/coursemedia-backend/internal/http"
	"github.com/yungbote/coursemedia-backend/internal/observability"
	"github.com/yungbote/coursemedia-backend/internal/platform/logger"
	"github.com/yungbote/coursemedia-backend/internal/realtime"
)

type App struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Cfg      Config
	Clients  Clients
	Repos    Repos
	Services Services
	Server   *apphttp.Server
	Metrics  *observability.Metrics

	dbService    *db.Service
	media        mediaBackend
	otelShutdown func(context.Context) error
	cancel       context.CancelFunc
}

func New(ctx context.Context) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	a := &App{Log: log, Cfg: cfg}
	a.otelShutdown = observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: os.Getenv("OTEL_SERVICE_NAME"),
		Environment: logMode,
	})
	a.Metrics = observability.Init(log)

	if err := a.wire(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) wire(ctx context.Context) error {
	log, cfg := a.Log, a.Cfg

	// The SQL database backs records unless Firestore does.
	if cfg.StatusBackend == StatusBackendSQL || cfg.StatusBackend == "" {
		svc, err := db.NewService(log, cfg.DB)
		if err != nil {
			return fmt.Errorf("init database: %w", err)
		}
		a.dbService = svc
		a.DB = svc.DB()
		if err := db.AutoMigrateAll(a.DB); err != nil {
			return fmt.Errorf("automigrate: %w", err)
		}
	}

	media, err := resolveMediaStore(ctx, log, cfg)
	if err != nil {
		return err
	}
	a.media = media

	clients, caps, err := wireClients(ctx, log, cfg, media)
	if err != nil {
		return err
	}
	a.Clients = clients

	a.Repos, err = wireRepos(a.DB, log, cfg, clients)
	if err != nil {
		return err
	}

	a.Services, err = wireServices(log, cfg, clients, caps, a.Repos, media)
	if err != nil {
		return err
	}

	handlers := wireHandlers(log, cfg, a.Repos, a.Services, readinessChecks(a.DB, clients.Redis))
	a.Server = wireServer(log, cfg, handlers, a.Metrics, media)
	return nil
}

// Start launches the workers, the status forwarder and the metrics
// collectors. They stop when ctx is done or Close is called.
func (a *App) Start(ctx context.Context) error {
	if a == nil || a.cancel != nil {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.Services.Pool.Start(ctx)

	hub := a.Services.Hub
	if err := a.Services.Bus.StartForwarder(ctx, func(m realtime.Message) { hub.Broadcast(m) }); err != nil {
		return fmt.Errorf("start status forwarder: %w", err)
	}

	if a.Metrics != nil {
		a.Metrics.StartWorkerCollector(ctx, a.Services.Pool)
		if a.DB != nil {
			a.Metrics.StartDBCollector(ctx, a.Log, a.DB)
			a.Metrics.StartJobStatusCollector(ctx, a.Log, a.DB)
		}
		if a.Clients.Redis != nil {
			a.Metrics.StartRedisCollector(ctx, a.Log, a.Clients.Redis)
		}
	}
	return nil
}

// Run serves HTTP until ctx is done.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Server.Run(ctx, a.Cfg.Addr(), a.Cfg.ShutdownGrace)
}

// Close cancels running jobs and waits for them to record their failure
// before the clients they write through are released.
func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Services.Pool != nil {
		a.Services.Pool.Stop()
	}
	if a.Services.Bus != nil {
		_ = a.Services.Bus.Close()
	}
	a.Clients.Close()
	if err := a.media.Close(); err != nil {
		a.Log.Warn("media store close failed", "error", err)
	}
	if a.dbService != nil {
		if err := a.dbService.Close(); err != nil {
			a.Log.Warn("database close failed", "error", err)
		}
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.otelShutdown(ctx)
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
