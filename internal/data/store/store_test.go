package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/briefs-backend/internal/data/familylock"
	repos "github.com/yungbote/briefs-backend/internal/data/repos/briefs"
	"github.com/yungbote/briefs-backend/internal/data/repos/testutil"
	"github.com/yungbote/briefs-backend/internal/domain/briefs"
	"github.com/yungbote/briefs-backend/internal/pkg/dbctx"
	"github.com/yungbote/briefs-backend/internal/versioning"
)

func newSQLiteStore(t *testing.T) (*Store, *familylock.Local) {
	t.Helper()
	db := testutil.SQLite(t)
	log := testutil.Logger(t)
	l := familylock.NewLocal()
	policy := familylock.Policy{MaxWait: 20 * time.Millisecond, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}
	return New(db, log, repos.NewBriefVersionRepo(db, log), l, policy), l
}

func TestStoreInFamilyCommitAndRollback(t *testing.T) {
	s, _ := newSQLiteStore(t)
	ctx := context.Background()
	root := uuid.New()
	now := time.Now().UTC().Truncate(time.Microsecond)

	err := s.InFamily(ctx, root, func(tx versioning.FamilyTx) error {
		return tx.Insert(&briefs.BriefVersion{ID: root, RootID: root, VersionNumber: 1, Title: "t", IsDraft: true, CreatedAt: now, UpdatedAt: now})
	})
	if err != nil {
		t.Fatalf("insert root: %v", err)
	}

	boom := errors.New("boom")
	err = s.InFamily(ctx, root, func(tx versioning.FamilyTx) error {
		members, err := tx.Members()
		if err != nil {
			return err
		}
		members[0].IsDraft, members[0].IsPublished = false, true
		if err := tx.SaveState(members[0]); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want boom got=%v", err)
	}
	got, err := s.Get(ctx, root)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !got.IsDraft || got.IsPublished {
		t.Fatalf("rolled back write is visible: %+v", got)
	}
}

func TestStoreMapsErrors(t *testing.T) {
	s, l := newSQLiteStore(t)
	ctx := context.Background()

	if _, err := s.Get(ctx, uuid.New()); !errors.Is(err, versioning.ErrNotFound) {
		t.Fatalf("Get missing: want ErrNotFound got=%v", err)
	}

	root := uuid.New()
	err := s.InFamily(ctx, root, func(tx versioning.FamilyTx) error {
		return tx.SaveState(&briefs.BriefVersion{ID: root, RootID: root})
	})
	if !errors.Is(err, versioning.ErrNotFound) {
		t.Fatalf("SaveState missing: want ErrNotFound got=%v", err)
	}

	now := time.Now().UTC()
	err = s.InFamily(ctx, root, func(tx versioning.FamilyTx) error {
		if err := tx.Insert(&briefs.BriefVersion{ID: root, RootID: root, VersionNumber: 1, Title: "a", IsDraft: true, CreatedAt: now, UpdatedAt: now}); err != nil {
			return err
		}
		return tx.Insert(&briefs.BriefVersion{ID: uuid.New(), RootID: root, VersionNumber: 1, Title: "b", IsDraft: true, CreatedAt: now, UpdatedAt: now})
	})
	if !errors.Is(err, versioning.ErrContention) {
		t.Fatalf("duplicate version: want ErrContention got=%v", err)
	}

	release, _ := l.TryLock(dbctx.Context{}, root)
	err = s.InFamily(ctx, root, func(tx versioning.FamilyTx) error { return nil })
	release()
	if !errors.Is(err, versioning.ErrContention) {
		t.Fatalf("held lock: want ErrContention got=%v", err)
	}
}

func TestStoreReads(t *testing.T) {
	s, _ := newSQLiteStore(t)
	ctx := context.Background()
	base := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	fam := testutil.SeedFamily(t, ctx, s.db, base, testutil.Published, testutil.Active)

	snap, err := s.Snapshot(ctx)
	if err != nil || len(snap) != 2 {
		t.Fatalf("Snapshot: err=%v len=%d", err, len(snap))
	}
	rows, err := s.ListFamily(ctx, fam[0].RootID)
	if err != nil || len(rows) != 2 {
		t.Fatalf("ListFamily: err=%v len=%d", err, len(rows))
	}
	canon, err := s.ListCanonical(ctx, briefs.CanonicalFilter{})
	if err != nil || len(canon) != 1 || canon[0].ID != fam[1].ID {
		t.Fatalf("ListCanonical: err=%v len=%d", err, len(canon))
	}
}

// observingLocker runs onRelease just before handing the lock back.
type observingLocker struct {
	familylock.Locker
	onRelease func()
}

func (o *observingLocker) TryLock(dbc dbctx.Context, rootID uuid.UUID) (func(), error) {
	release, err := o.Locker.TryLock(dbc, rootID)
	if err != nil {
		return nil, err
	}
	return func() {
		o.onRelease()
		release()
	}, nil
}

func TestStoreReleasesLockAfterCommit(t *testing.T) {
	db := testutil.SQLite(t)
	log := testutil.Logger(t)
	ctx := context.Background()
	root := uuid.New()
	now := time.Now().UTC().Truncate(time.Microsecond)

	var (
		released  int
		visible   bool
		readError error
	)
	locker := &observingLocker{Locker: familylock.NewLocal()}
	locker.onRelease = func() {
		released++
		// The test database has a single connection: while the family transaction is still
		// open this read cannot get one and times out.
		rctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		var got briefs.BriefVersion
		readError = db.WithContext(rctx).Where("id = ?", root).Limit(1).Find(&got).Error
		visible = readError == nil && got.ID == root && got.IsPublished
	}
	policy := familylock.Policy{MaxWait: 20 * time.Millisecond, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond}
	s := New(db, log, repos.NewBriefVersionRepo(db, log), locker, policy)

	err := s.InFamily(ctx, root, func(tx versioning.FamilyTx) error {
		return tx.Insert(&briefs.BriefVersion{ID: root, RootID: root, VersionNumber: 1, Title: "t", IsPublished: true, CreatedAt: now, UpdatedAt: now})
	})
	if err != nil {
		t.Fatalf("InFamily: %v", err)
	}
	if released != 1 {
		t.Fatalf("release calls: want=1 got=%d", released)
	}
	if readError != nil || !visible {
		t.Fatalf("family lock released before commit: visible=%v err=%v", visible, readError)
	}

	// A rolled back transaction must also have ended before release.
	boom := errors.New("boom")
	err = s.InFamily(ctx, root, func(tx versioning.FamilyTx) error {
		members, err := tx.Members()
		if err != nil {
			return err
		}
		members[0].IsPublished = false
		if err := tx.SaveState(members[0]); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want boom got=%v", err)
	}
	if readError != nil || !visible {
		t.Fatalf("family lock released before rollback: visible=%v err=%v", visible, readError)
	}
}

type txScopedLocker struct {
	familylock.Locker
	sawTx bool
}

func (l *txScopedLocker) TxScoped() bool { return true }

func (l *txScopedLocker) TryLock(dbc dbctx.Context, rootID uuid.UUID) (func(), error) {
	l.sawTx = dbc.Tx != nil
	return l.Locker.TryLock(dbc, rootID)
}

func TestStoreTakesTxScopedLockInsideTransaction(t *testing.T) {
	db := testutil.SQLite(t)
	log := testutil.Logger(t)
	locker := &txScopedLocker{Locker: familylock.NewLocal()}
	s := New(db, log, repos.NewBriefVersionRepo(db, log), locker, familylock.DefaultPolicy())

	var inner *gorm.DB
	err := s.InFamily(context.Background(), uuid.New(), func(tx versioning.FamilyTx) error {
		inner = tx.(*familyTx).dbc.Tx
		return nil
	})
	if err != nil {
		t.Fatalf("InFamily: %v", err)
	}
	if !locker.sawTx || inner == nil {
		t.Fatalf("tx-scoped lock must see the family transaction: sawTx=%v", locker.sawTx)
	}
}
