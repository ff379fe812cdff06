package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/briefs-backend/internal/domain/briefs"
	"github.com/yungbote/briefs-backend/internal/observability"
	"github.com/yungbote/briefs-backend/internal/pkg/ctxutil"
	"github.com/yungbote/briefs-backend/internal/pkg/logger"
	"github.com/yungbote/briefs-backend/internal/versioning"
)

type CreateVersionInput struct {
	// ParentID nil starts a new family.
	ParentID *uuid.UUID
	// Content nil copies the parent's content. Required for a new family.
	Content *briefs.Content
}

type BriefVersionService interface {
	CreateVersion(ctx context.Context, in CreateVersionInput) (*briefs.BriefVersion, error)
	Publish(ctx context.Context, id uuid.UUID) (*briefs.BriefVersion, error)
	Activate(ctx context.Context, id uuid.UUID) (*briefs.BriefVersion, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*briefs.BriefVersion, error)
	PublishAndActivate(ctx context.Context, id uuid.UUID) (*briefs.BriefVersion, error)

	GetVersion(ctx context.Context, id uuid.UUID) (*briefs.BriefVersion, error)
	GetCanonical(ctx context.Context, rootID uuid.UUID) (*briefs.BriefVersion, error)
	ListCanonical(ctx context.Context, filter briefs.CanonicalFilter) ([]*briefs.BriefVersion, error)
	ListFamilyHistory(ctx context.Context, rootID uuid.UUID) ([]*briefs.BriefVersion, error)
}

type briefVersionService struct {
	store   versioning.Store
	log     *logger.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

func NewBriefVersionService(
	store versioning.Store,
	baseLog *logger.Logger,
	metrics *observability.Metrics,
) BriefVersionService {
	return &briefVersionService{
		store:   store,
		log:     baseLog.With("service", "BriefVersionService"),
		metrics: metrics,
		now:     func() time.Time { return time.Now() },
	}
}

func (s *briefVersionService) CreateVersion(ctx context.Context, in CreateVersionInput) (*briefs.BriefVersion, error) {
	var out *briefs.BriefVersion
	attrs := []attribute.KeyValue{attribute.Bool("brief.new_family", in.ParentID == nil)}
	err := s.run(ctx, "create_version", attrs, func(ctx context.Context) error {
		if in.Content != nil {
			c := *in.Content
			if err := validateContent(&c); err != nil {
				return err
			}
			in.Content = &c
		}
		if in.ParentID == nil {
			v, err := s.createRoot(ctx, in.Content)
			out = v
			return err
		}
		v, err := s.createRevision(ctx, *in.ParentID, in.Content)
		out = v
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("version created", "version_id", out.ID, "root_id", out.RootID, "version_number", out.VersionNumber)
	return out, nil
}

func (s *briefVersionService) createRoot(ctx context.Context, content *briefs.Content) (*briefs.BriefVersion, error) {
	if content == nil {
		return nil, versioning.InvalidInputf("content is required for a new brief")
	}
	id := uuid.New()
	now := s.timestamp()
	v := &briefs.BriefVersion{
		ID:            id,
		RootID:        id,
		VersionNumber: 1,
		IsDraft:       true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	v.SetContent(*content)
	err := s.store.InFamily(ctx, id, func(tx versioning.FamilyTx) error {
		return tx.Insert(v)
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *briefVersionService) createRevision(ctx context.Context, parentID uuid.UUID, content *briefs.Content) (*briefs.BriefVersion, error) {
	parent, err := s.store.Get(ctx, parentID)
	if err != nil {
		return nil, err
	}
	var out *briefs.BriefVersion
	err = s.store.InFamily(ctx, parent.RootID, func(tx versioning.FamilyTx) error {
		f, err := loadFamily(tx, parent.RootID)
		if err != nil {
			return err
		}
		p := f.Find(parentID)
		if p == nil {
			return versioning.NotFoundf("parent version %s", parentID)
		}
		createdAt := s.timestamp()
		if latest := f.LatestCreatedAt(); !createdAt.After(latest) {
			createdAt = latest.Add(time.Microsecond)
		}
		pid := p.ID
		v := &briefs.BriefVersion{
			ID:            uuid.New(),
			RootID:        f.RootID,
			ParentID:      &pid,
			VersionNumber: f.MaxVersionNumber() + 1,
			IsDraft:       true,
			CreatedAt:     createdAt,
			UpdatedAt:     createdAt,
		}
		if content != nil {
			v.SetContent(*content)
		} else {
			v.SetContent(p.Content())
		}
		if err := tx.Insert(v); err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *briefVersionService) Publish(ctx context.Context, id uuid.UUID) (*briefs.BriefVersion, error) {
	out, err := s.mutate(ctx, "publish", id, func(tx versioning.FamilyTx, f *versioning.Family, target *briefs.BriefVersion) error {
		return s.publish(tx, target)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("version published", "version_id", out.ID, "root_id", out.RootID)
	return out, nil
}

func (s *briefVersionService) Activate(ctx context.Context, id uuid.UUID) (*briefs.BriefVersion, error) {
	out, err := s.mutate(ctx, "activate", id, func(tx versioning.FamilyTx, f *versioning.Family, target *briefs.BriefVersion) error {
		return activate(tx, f, target.ID)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("version activated", "version_id", out.ID, "root_id", out.RootID)
	return out, nil
}

func (s *briefVersionService) Deactivate(ctx context.Context, id uuid.UUID) (*briefs.BriefVersion, error) {
	out, err := s.mutate(ctx, "deactivate", id, func(tx versioning.FamilyTx, f *versioning.Family, target *briefs.BriefVersion) error {
		if !target.IsActive {
			return nil
		}
		target.IsActive = false
		return tx.SaveState(target)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("version deactivated", "version_id", out.ID, "root_id", out.RootID)
	return out, nil
}

func (s *briefVersionService) PublishAndActivate(ctx context.Context, id uuid.UUID) (*briefs.BriefVersion, error) {
	out, err := s.mutate(ctx, "publish_and_activate", id, func(tx versioning.FamilyTx, f *versioning.Family, target *briefs.BriefVersion) error {
		if err := s.publish(tx, target); err != nil {
			return err
		}
		return activate(tx, f, target.ID)
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("version published and activated", "version_id", out.ID, "root_id", out.RootID)
	return out, nil
}

func (s *briefVersionService) publish(tx versioning.FamilyTx, target *briefs.BriefVersion) error {
	if err := versioning.CheckPublish(target); err != nil {
		return err
	}
	now := s.timestamp()
	target.IsDraft = false
	target.IsPublished = true
	target.PublishedAt = &now
	return tx.SaveState(target)
}

// activate clears every other active member before setting the target, all within tx.
func activate(tx versioning.FamilyTx, f *versioning.Family, targetID uuid.UUID) error {
	target, clear, err := versioning.PlanActivate(f, targetID)
	if err != nil {
		return err
	}
	for _, v := range clear {
		v.IsActive = false
		if err := tx.SaveState(v); err != nil {
			return err
		}
	}
	if target.IsActive {
		return nil
	}
	target.IsActive = true
	return tx.SaveState(target)
}

// mutate locks the family of id, re-reads it and hands the locked view to fn.
func (s *briefVersionService) mutate(
	ctx context.Context,
	op string,
	id uuid.UUID,
	fn func(tx versioning.FamilyTx, f *versioning.Family, target *briefs.BriefVersion) error,
) (*briefs.BriefVersion, error) {
	var out *briefs.BriefVersion
	err := s.run(ctx, op, []attribute.KeyValue{attribute.String("brief.version_id", id.String())}, func(ctx context.Context) error {
		if id == uuid.Nil {
			return versioning.InvalidInputf("missing version id")
		}
		v, err := s.store.Get(ctx, id)
		if err != nil {
			return err
		}
		trace.SpanFromContext(ctx).SetAttributes(attribute.String("brief.root_id", v.RootID.String()))
		return s.store.InFamily(ctx, v.RootID, func(tx versioning.FamilyTx) error {
			f, err := loadFamily(tx, v.RootID)
			if err != nil {
				return err
			}
			target := f.Find(id)
			if target == nil {
				return versioning.NotFoundf("version %s in family %s", id, v.RootID)
			}
			if err := fn(tx, f, target); err != nil {
				return err
			}
			out = target.Clone()
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *briefVersionService) GetVersion(ctx context.Context, id uuid.UUID) (*briefs.BriefVersion, error) {
	return s.store.Get(ctx, id)
}

func (s *briefVersionService) GetCanonical(ctx context.Context, rootID uuid.UUID) (*briefs.BriefVersion, error) {
	rows, err := s.store.ListFamily(ctx, rootID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, versioning.NotFoundf("family %s", rootID)
	}
	c := versioning.ResolveFamily(rootID, rows).Canonical()
	if c == nil {
		return nil, versioning.NotFoundf("family %s has no active version", rootID)
	}
	return c, nil
}

func (s *briefVersionService) ListCanonical(ctx context.Context, filter briefs.CanonicalFilter) ([]*briefs.BriefVersion, error) {
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, versioning.InvalidInputf("limit and offset must not be negative")
	}
	return s.store.ListCanonical(ctx, filter)
}

func (s *briefVersionService) ListFamilyHistory(ctx context.Context, rootID uuid.UUID) ([]*briefs.BriefVersion, error) {
	rows, err := s.store.ListFamily(ctx, rootID)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, versioning.NotFoundf("family %s", rootID)
	}
	return versioning.ResolveFamily(rootID, rows).History(), nil
}

func (s *briefVersionService) run(ctx context.Context, op string, attrs []attribute.KeyValue, fn func(ctx context.Context) error) error {
	ctx, span := observability.Tracer().Start(ctx, "BriefVersionService."+op, trace.WithAttributes(attrs...))
	defer span.End()
	start := time.Now()
	err := fn(ctx)
	s.metrics.ObserveOperation(op, err, time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, versioning.Kind(err))
		fields := append([]interface{}{"kind", versioning.Kind(err), "error", err}, ctxutil.LogFields(ctx)...)
		switch {
		case errors.Is(err, versioning.ErrStorageFailure), !versioning.Classified(err) && ctx.Err() == nil:
			s.log.Error(op+" failed", fields...)
		default:
			s.log.Debug(op+" rejected", fields...)
		}
	}
	return err
}

func (s *briefVersionService) timestamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

func loadFamily(tx versioning.FamilyTx, rootID uuid.UUID) (*versioning.Family, error) {
	members, err := tx.Members()
	if err != nil {
		return nil, err
	}
	return versioning.ResolveFamily(rootID, members), nil
}

func validateContent(c *briefs.Content) error {
	c.Normalize()
	if err := c.Validate(); err != nil {
		return versioning.InvalidInputf("%s", err.Error())
	}
	return nil
}
