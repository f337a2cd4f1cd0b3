package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	httpH "github.com/yungbote/coursemedia-backend/internal/http/handlers"
	"github.com/yungbote/coursemedia-backend/internal/platform/logger"
)

type Handlers struct {
	Module *httpH.ModuleHandler
	Events *httpH.EventsHandler
	Health *httpH.HealthHandler
}

func wireHandlers(log *logger.Logger, cfg Config, r Repos, services Services, checks map[string]httpH.Check) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Module: httpH.NewModuleHandler(log, r.Modules, services.Content, httpH.ModuleHandlerConfig{
			UploadDir:      cfg.UploadDir,
			MaxUploadBytes: cfg.MaxUploadBytes,
		}),
		Events: httpH.NewEventsHandler(log, services.Hub, services.Content),
		Health: httpH.NewHealthHandler(checks),
	}
}

// readinessChecks covers the dependencies every request path needs.
func readinessChecks(db *gorm.DB, rdb *goredis.Client) map[string]httpH.Check {
	checks := map[string]httpH.Check{}
	if db != nil {
		checks["database"] = func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
	}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error {
			if err := rdb.Ping(ctx).Err(); err != nil {
				return fmt.Errorf("redis ping: %w", err)
			}
			return nil
		}
	}
	return checks
}
