package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"golang.org/x/time/rate"

	httpH "github.com/yungbote/briefs-backend/internal/http/handlers"
	httpMW "github.com/yungbote/briefs-backend/internal/http/middleware"
	"github.com/yungbote/briefs-backend/internal/observability"
	"github.com/yungbote/briefs-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	Metrics     *observability.Metrics
	CORSOrigins []string
	ServiceName string
	// AdminLimiter throttles /api/admin; nil leaves it unlimited.
	AdminLimiter *rate.Limiter

	BriefHandler     *httpH.BriefHandler
	ReconcileHandler *httpH.ReconcileHandler
	HealthHandler    *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.ServiceName != "" {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	api := r.Group("/api")
	{
		if cfg.BriefHandler != nil {
			api.POST("/briefs", cfg.BriefHandler.CreateBrief)
			api.GET("/briefs", cfg.BriefHandler.ListCanonical)
			api.GET("/briefs/:id", cfg.BriefHandler.GetVersion)
			api.POST("/briefs/:id/versions", cfg.BriefHandler.CreateRevision)
			api.POST("/briefs/:id/publish", cfg.BriefHandler.Publish)
			api.POST("/briefs/:id/activate", cfg.BriefHandler.Activate)
			api.POST("/briefs/:id/deactivate", cfg.BriefHandler.Deactivate)

			api.GET("/families/:root_id/history", cfg.BriefHandler.FamilyHistory)
			api.GET("/families/:root_id/canonical", cfg.BriefHandler.FamilyCanonical)
		}
	}

	admin := api.Group("/admin", httpMW.RateLimit(cfg.AdminLimiter))
	{
		if cfg.ReconcileHandler != nil {
			admin.POST("/reconcile", cfg.ReconcileHandler.Reconcile)
			admin.GET("/check", cfg.ReconcileHandler.Check)
		}
	}

	return r
}
