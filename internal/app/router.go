package app

import (
	"golang.org/x/time/rate"

	apphttp "github.com/yungbote/briefs-backend/internal/http"
	"github.com/yungbote/briefs-backend/internal/observability"
	"github.com/yungbote/briefs-backend/internal/pkg/logger"
)

func wireServer(log *logger.Logger, cfg Config, handlers Handlers, metrics *observability.Metrics) *apphttp.Server {
	serviceName := ""
	if cfg.Otel.Enabled {
		serviceName = cfg.Otel.ServiceName
	}
	var adminLimiter *rate.Limiter
	if cfg.Admin.RateLimit > 0 {
		adminLimiter = rate.NewLimiter(rate.Limit(cfg.Admin.RateLimit), cfg.Admin.Burst)
	}
	return apphttp.NewServer(apphttp.RouterConfig{
		Log:              log,
		Metrics:          metrics,
		CORSOrigins:      cfg.CORSOrigins,
		ServiceName:      serviceName,
		AdminLimiter:     adminLimiter,
		BriefHandler:     handlers.Brief,
		ReconcileHandler: handlers.Reconcile,
		HealthHandler:    handlers.Health,
	})
}
