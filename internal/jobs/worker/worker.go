package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/yungbote/briefs-backend/internal/observability"
	"github.com/yungbote/briefs-backend/internal/pkg/logger"
	"github.com/yungbote/briefs-backend/internal/services"
)

const name = "reconcile"

type Config struct {
	Interval    time.Duration
	Concurrency int
	RunOnStart  bool
}

// ReconcileWorker runs a reconciliation pass on a fixed interval until its context ends.
type ReconcileWorker struct {
	log     *logger.Logger
	svc     services.ReconcileService
	metrics *observability.Metrics
	cfg     Config

	wg sync.WaitGroup
}

func NewReconcileWorker(baseLog *logger.Logger, svc services.ReconcileService, metrics *observability.Metrics, cfg Config) *ReconcileWorker {
	return &ReconcileWorker{
		log:     baseLog.With("component", "ReconcileWorker"),
		svc:     svc,
		metrics: metrics,
		cfg:     cfg,
	}
}

// Start launches the loop. A non-positive interval disables the worker.
func (w *ReconcileWorker) Start(ctx context.Context) {
	if w.cfg.Interval <= 0 {
		w.log.Info("Reconcile worker disabled")
		return
	}
	w.log.Info("Starting reconcile worker", "interval", w.cfg.Interval, "concurrency", w.cfg.Concurrency)
	w.wg.Add(1)
	go w.runLoop(ctx)
}

// Wait blocks until the loop has exited.
func (w *ReconcileWorker) Wait() { w.wg.Wait() }

func (w *ReconcileWorker) runLoop(ctx context.Context) {
	defer w.wg.Done()
	if w.cfg.RunOnStart {
		_ = w.RunOnce(ctx)
	}
	ticker := time.NewTicker(w.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info("Reconcile worker stopped")
			return
		case <-ticker.C:
			_ = w.RunOnce(ctx)
		}
	}
}

// RunOnce performs a single pass and never panics.
func (w *ReconcileWorker) RunOnce(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			w.log.Error("Reconcile panic", "panic", r)
			err = fmt.Errorf("reconcile panic: %v", r)
		}
		status := "ok"
		if err != nil {
			status = "error"
		}
		w.metrics.IncWorkerTick(name, status)
	}()
	sum, err := w.svc.Reconcile(ctx, services.ReconcileOptions{Concurrency: w.cfg.Concurrency})
	if err != nil {
		if ctx.Err() == nil {
			w.log.Warn("Reconcile pass failed", "error", err)
		}
		return err
	}
	if sum.FamiliesRepaired > 0 || sum.FamiliesSkipped > 0 {
		w.log.Info("Reconcile pass repaired families",
			"families_repaired", sum.FamiliesRepaired,
			"families_skipped", sum.FamiliesSkipped,
		)
	}
	return nil
}
