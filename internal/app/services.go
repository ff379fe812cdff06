package app

import (
	"github.com/yungbote/briefs-backend/internal/jobs/worker"
	"github.com/yungbote/briefs-backend/internal/observability"
	"github.com/yungbote/briefs-backend/internal/pkg/logger"
	"github.com/yungbote/briefs-backend/internal/services"
	"github.com/yungbote/briefs-backend/internal/versioning"
)

type Services struct {
	BriefVersion    services.BriefVersionService
	Reconcile       services.ReconcileService
	ReconcileWorker *worker.ReconcileWorker
}

func wireServices(log *logger.Logger, cfg Config, store versioning.Store, metrics *observability.Metrics) Services {
	log.Info("Wiring services...")
	reconcile := services.NewReconcileService(store, log, metrics, cfg.Reconcile.Concurrency)
	return Services{
		BriefVersion: services.NewBriefVersionService(store, log, metrics),
		Reconcile:    reconcile,
		ReconcileWorker: worker.NewReconcileWorker(log, reconcile, metrics, worker.Config{
			Interval:    cfg.Reconcile.Interval,
			Concurrency: cfg.Reconcile.Concurrency,
			RunOnStart:  cfg.Reconcile.OnStart,
		}),
	}
}
