package services

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/yungbote/briefs-backend/internal/observability"
	"github.com/yungbote/briefs-backend/internal/pkg/logger"
	"github.com/yungbote/briefs-backend/internal/versioning"
)

const DefaultReconcileConcurrency = 4

type ReconcileOptions struct {
	// DryRun computes and reports decisions without taking locks or writing.
	DryRun bool
	// Concurrency bounds how many families are repaired at once; <= 0 uses the service default.
	Concurrency int
}

type ReconcileService interface {
	// Reconcile restores the single-active rule across every family. Per-family failures are
	// counted in the summary; only a failed snapshot (or cancellation) is returned as an error.
	Reconcile(ctx context.Context, opts ReconcileOptions) (*versioning.Summary, error)
	// Check audits every family without writing.
	Check(ctx context.Context) ([]versioning.Violation, error)
}

type reconcileService struct {
	store       versioning.Store
	log         *logger.Logger
	metrics     *observability.Metrics
	concurrency int
	group       singleflight.Group
}

func NewReconcileService(
	store versioning.Store,
	baseLog *logger.Logger,
	metrics *observability.Metrics,
	concurrency int,
) ReconcileService {
	if concurrency <= 0 {
		concurrency = DefaultReconcileConcurrency
	}
	return &reconcileService{
		store:       store,
		log:         baseLog.With("service", "ReconcileService"),
		metrics:     metrics,
		concurrency: concurrency,
	}
}

// Reconcile joins an in-flight run with the same mode instead of starting a second one.
// The shared run is detached from any one caller's cancellation; a caller whose context ends
// stops waiting and gets ctx.Err() while the run finishes for everyone else.
func (s *reconcileService) Reconcile(ctx context.Context, opts ReconcileOptions) (*versioning.Summary, error) {
	key := "apply"
	if opts.DryRun {
		key = "dry_run"
	}
	runCtx := context.WithoutCancel(ctx)
	ch := s.group.DoChan(key, func() (interface{}, error) {
		return s.reconcile(runCtx, opts)
	})
	var res singleflight.Result
	select {
	case <-ctx.Done():
		s.log.Warn("stopped waiting for reconcile", "mode", key, "error", ctx.Err())
		return nil, ctx.Err()
	case res = <-ch:
	}
	if res.Shared {
		s.log.Debug("joined in-flight reconcile", "mode", key)
	}
	sum, _ := res.Val.(*versioning.Summary)
	if sum != nil {
		cp := *sum
		sum = &cp
	}
	return sum, res.Err
}

type pendingRepair struct {
	family   *versioning.Family
	decision versioning.Decision
}

func (s *reconcileService) reconcile(ctx context.Context, opts ReconcileOptions) (*versioning.Summary, error) {
	ctx, span := observability.Tracer().Start(ctx, "ReconcileService.Reconcile")
	defer span.End()
	start := time.Now()

	sum, err := s.scanAndRepair(ctx, opts)
	dur := time.Since(start)
	if sum != nil {
		sum.Duration = dur
	}
	s.metrics.ObserveReconcile(sum, err, dur)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, versioning.Kind(err))
		s.log.Error("reconcile failed", "error", err, "dry_run", opts.DryRun)
		return sum, err
	}
	span.SetAttributes(
		attribute.Int("reconcile.families_scanned", sum.FamiliesScanned),
		attribute.Int("reconcile.families_repaired", sum.FamiliesRepaired),
		attribute.Int("reconcile.families_skipped", sum.FamiliesSkipped),
	)
	s.log.Info("reconcile finished",
		"dry_run", sum.DryRun,
		"families_scanned", sum.FamiliesScanned,
		"families_repaired", sum.FamiliesRepaired,
		"families_skipped", sum.FamiliesSkipped,
		"families_unpublished", sum.FamiliesUnpublished,
		"families_dangling", sum.FamiliesDangling,
		"versions_activated", sum.VersionsActivated,
		"versions_deactivated", sum.VersionsDeactivated,
		"duration", dur,
	)
	return sum, nil
}

func (s *reconcileService) scanAndRepair(ctx context.Context, opts ReconcileOptions) (*versioning.Summary, error) {
	records, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, versioning.StorageFailure("reconcile snapshot", err)
	}
	families := versioning.SortedFamilies(versioning.ResolveFamilies(records))

	sum := &versioning.Summary{DryRun: opts.DryRun, FamiliesScanned: len(families)}
	var pending []pendingRepair
	for _, f := range families {
		if f.Dangling {
			sum.FamiliesDangling++
			s.log.Warn("family has no root record", "root_id", f.RootID, "members", len(f.Versions))
		}
		d := versioning.Select(f)
		if d.Candidates == 0 {
			sum.FamiliesUnpublished++
		}
		if !d.NoOp() {
			pending = append(pending, pendingRepair{family: f, decision: d})
		}
	}

	if opts.DryRun {
		for _, p := range pending {
			sum.RecordRepair(p.decision, p.family.Dangling)
		}
		return sum, nil
	}

	limit := opts.Concurrency
	if limit <= 0 {
		limit = s.concurrency
	}
	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(limit)
	for _, p := range pending {
		rootID := p.family.RootID
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			d, dangling, err := s.repairFamily(ctx, rootID)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err != nil:
				s.log.Warn("family repair failed", "root_id", rootID, "kind", versioning.Kind(err), "error", err)
				sum.RecordFailure(rootID, err)
			case !d.NoOp():
				s.log.Info("family repaired",
					"root_id", rootID,
					"activated", d.Activate,
					"deactivated", d.Deactivate,
					"reasons", d.Reasons,
				)
				sum.RecordRepair(d, dangling)
			}
			return nil
		})
	}
	_ = g.Wait()
	sort.Slice(sum.Families, func(i, j int) bool {
		return bytes.Compare(sum.Families[i].RootID[:], sum.Families[j].RootID[:]) < 0
	})
	if err := ctx.Err(); err != nil {
		return sum, err
	}
	return sum, nil
}

// repairFamily re-reads the family under its lock and applies a fresh decision; the snapshot
// the caller planned from may be stale by now.
func (s *reconcileService) repairFamily(ctx context.Context, rootID uuid.UUID) (versioning.Decision, bool, error) {
	var applied versioning.Decision
	var dangling bool
	err := s.store.InFamily(ctx, rootID, func(tx versioning.FamilyTx) error {
		f, err := loadFamily(tx, rootID)
		if err != nil {
			return err
		}
		dangling = f.Dangling
		d := versioning.Select(f)
		for _, id := range d.Deactivate {
			v := f.Find(id)
			v.IsActive = false
			if err := tx.SaveState(v); err != nil {
				return err
			}
		}
		if d.Activate != nil {
			v := f.Find(*d.Activate)
			v.IsActive = true
			if err := tx.SaveState(v); err != nil {
				return err
			}
		}
		applied = d
		return nil
	})
	if err != nil {
		return versioning.Decision{}, dangling, err
	}
	return applied, dangling, nil
}

func (s *reconcileService) Check(ctx context.Context) ([]versioning.Violation, error) {
	records, err := s.store.Snapshot(ctx)
	if err != nil {
		return nil, versioning.StorageFailure("check snapshot", err)
	}
	var out []versioning.Violation
	for _, f := range versioning.SortedFamilies(versioning.ResolveFamilies(records)) {
		out = append(out, versioning.Check(f)...)
	}
	return out, nil
}
