package http

import (
	"github.com/gin-gonic/gin"

	httpH "github.com/yungbote/coursemedia-backend/internal/http/handlers"
	httpMW "github.com/yungbote/coursemedia-backend/internal/http/middleware"
	"github.com/yungbote/coursemedia-backend/internal/observability"
	"github.com/yungbote/coursemedia-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	CORSOrigins []string

	ModuleHandler *httpH.ModuleHandler
	EventsHandler *httpH.EventsHandler
	HealthHandler *httpH.HealthHandler

	// MediaRoot is served under /media when set (local media store).
	MediaRoot string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}
	if cfg.MediaRoot != "" {
		r.Static("/media", cfg.MediaRoot)
	}

	api := r.Group("/api")

	// Instructor
	if cfg.ModuleHandler != nil {
		instructor := api.Group("/instructor")
		instructor.POST("/modules/upload", cfg.ModuleHandler.Upload)
		instructor.GET("/modules/:module_id/status", cfg.ModuleHandler.Status)
		instructor.PUT("/courses/:course_id/modules/:module_id/media", cfg.ModuleHandler.Reprocess)
	}
	if cfg.EventsHandler != nil {
		api.GET("/instructor/modules/:module_id/events", cfg.EventsHandler.Stream)
	}

	// Courses and learners
	if cfg.ModuleHandler != nil {
		api.GET("/courses/:course_id/modules", cfg.ModuleHandler.ListModules)
		api.GET("/courses/:course_id/modules/:module_id", cfg.ModuleHandler.GetModule)

		learn := api.Group("/learn")
		learn.GET("/:course_id/:module_id", cfg.ModuleHandler.PlayerContent)
		learn.GET("/:course_id/:module_id/materials", cfg.ModuleHandler.Materials)
		learn.POST("/:course_id/:module_id/validate", cfg.ModuleHandler.ValidateAnswer)
	}

	return r
}
