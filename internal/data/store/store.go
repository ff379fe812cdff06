package store

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/yungbote/briefs-backend/internal/data/familylock"
	repos "github.com/yungbote/briefs-backend/internal/data/repos/briefs"
	"github.com/yungbote/briefs-backend/internal/domain/briefs"
	"github.com/yungbote/briefs-backend/internal/pkg/dbctx"
	"github.com/yungbote/briefs-backend/internal/pkg/logger"
	"github.com/yungbote/briefs-backend/internal/versioning"
)

// Store is the gorm-backed versioning.Store. Every InFamily call runs in its own database
// transaction and holds the family lock from first read until after commit or rollback.
type Store struct {
	db     *gorm.DB
	log    *logger.Logger
	repo   repos.BriefVersionRepo
	locker familylock.Locker
	policy familylock.Policy
}

func New(db *gorm.DB, baseLog *logger.Logger, repo repos.BriefVersionRepo, locker familylock.Locker, policy familylock.Policy) *Store {
	return &Store{
		db:     db,
		log:    baseLog.With("store", "BriefVersionStore", "lock", locker.Name()),
		repo:   repo,
		locker: locker,
		policy: policy,
	}
}

var _ versioning.Store = (*Store)(nil)

func (s *Store) InFamily(ctx context.Context, rootID uuid.UUID, fn func(tx versioning.FamilyTx) error) error {
	err := familylock.Retry(ctx, s.policy, rootID, func() error {
		return s.lockedTransaction(ctx, rootID, fn)
	})
	if err != nil && !versioning.Classified(err) {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		s.log.Warn("family transaction failed", "root_id", rootID, "error", err)
		return versioning.StorageFailure("family transaction", err)
	}
	return err
}

// lockedTransaction runs fn in one transaction with the family lock held until that transaction
// has committed or rolled back. Tx-scoped locks are taken inside the transaction and end with it;
// the others wrap the whole transaction.
func (s *Store) lockedTransaction(ctx context.Context, rootID uuid.UUID, fn func(tx versioning.FamilyTx) error) error {
	if s.locker.TxScoped() {
		return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			dbc := dbctx.Context{Ctx: ctx, Tx: tx}
			release, err := s.locker.TryLock(dbc, rootID)
			if err != nil {
				return err
			}
			defer release()
			return fn(&familyTx{dbc: dbc, repo: s.repo, rootID: rootID})
		})
	}

	release, err := s.locker.TryLock(dbctx.Context{Ctx: ctx}, rootID)
	if err != nil {
		return err
	}
	defer release()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&familyTx{dbc: dbctx.Context{Ctx: ctx, Tx: tx}, repo: s.repo, rootID: rootID})
	})
}

func (s *Store) Get(ctx context.Context, id uuid.UUID) (*briefs.BriefVersion, error) {
	v, err := s.repo.GetByID(dbctx.Context{Ctx: ctx}, id)
	if err != nil {
		return nil, versioning.StorageFailure("get version", err)
	}
	if v == nil {
		return nil, versioning.NotFoundf("version %s", id)
	}
	return v, nil
}

func (s *Store) Snapshot(ctx context.Context) ([]*briefs.BriefVersion, error) {
	rows, err := s.repo.ListAll(dbctx.Context{Ctx: ctx})
	if err != nil {
		return nil, versioning.StorageFailure("snapshot", err)
	}
	return rows, nil
}

func (s *Store) ListCanonical(ctx context.Context, filter briefs.CanonicalFilter) ([]*briefs.BriefVersion, error) {
	rows, err := s.repo.ListCanonical(dbctx.Context{Ctx: ctx}, filter)
	if err != nil {
		return nil, versioning.StorageFailure("list canonical", err)
	}
	return rows, nil
}

func (s *Store) ListFamily(ctx context.Context, rootID uuid.UUID) ([]*briefs.BriefVersion, error) {
	rows, err := s.repo.ListByRootID(dbctx.Context{Ctx: ctx}, rootID)
	if err != nil {
		return nil, versioning.StorageFailure("list family", err)
	}
	return rows, nil
}

type familyTx struct {
	dbc    dbctx.Context
	repo   repos.BriefVersionRepo
	rootID uuid.UUID
}

func (t *familyTx) Members() ([]*briefs.BriefVersion, error) {
	rows, err := t.repo.ListByRootID(t.dbc, t.rootID)
	if err != nil {
		return nil, versioning.StorageFailure("load family", err)
	}
	return rows, nil
}

func (t *familyTx) Insert(v *briefs.BriefVersion) error {
	if v == nil || v.RootID != t.rootID {
		return versioning.InvalidStatef("insert outside family %s", t.rootID)
	}
	if _, err := t.repo.Create(t.dbc, []*briefs.BriefVersion{v}); err != nil {
		if isUniqueViolation(err) {
			return versioning.Contentionf("version %d already exists in family %s", v.VersionNumber, t.rootID)
		}
		return versioning.StorageFailure("insert version", err)
	}
	return nil
}

func (t *familyTx) SaveState(v *briefs.BriefVersion) error {
	if v == nil || v.RootID != t.rootID {
		return versioning.InvalidStatef("update outside family %s", t.rootID)
	}
	if err := t.repo.UpdateState(t.dbc, v); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return versioning.NotFoundf("version %s", v.ID)
		}
		return versioning.StorageFailure("save version state", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
