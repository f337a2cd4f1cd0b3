package app

import (
	apphttp "github.com/yungbote/coursemedia-backend/internal/http"
	"github.com/yungbote/coursemedia-backend/internal/observability"
	"github.com/yungbote/coursemedia-backend/internal/platform/logger"
)

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, metrics *observability.Metrics, media mediaBackend) *apphttp.Server {
	return apphttp.NewServer(apphttp.RouterConfig{
		Log:           log,
		Metrics:       metrics,
		CORSOrigins:   cfg.CORSOrigins,
		ModuleHandler: handlers.Module,
		EventsHandler: handlers.Events,
		HealthHandler: handlers.Health,
		MediaRoot:     media.LocalRoot,
	})
}
