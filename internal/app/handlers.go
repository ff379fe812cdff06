package app

import (
	"context"

	httpH "github.com/yungbote/briefs-backend/internal/http/handlers"
	"github.com/yungbote/briefs-backend/internal/pkg/logger"
)

type Handlers struct {
	Brief     *httpH.BriefHandler
	Reconcile *httpH.ReconcileHandler
	Health    *httpH.HealthHandler
}

func wireHandlers(log *logger.Logger, services Services, ping func(ctx context.Context) error) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Brief:     httpH.NewBriefHandler(services.BriefVersion),
		Reconcile: httpH.NewReconcileHandler(services.Reconcile),
		Health:    httpH.NewHealthHandler(ping),
	}
}
