package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/briefs-backend/internal/data/familylock"
	"github.com/yungbote/briefs-backend/internal/data/store/memstore"
	"github.com/yungbote/briefs-backend/internal/domain/briefs"
	"github.com/yungbote/briefs-backend/internal/pkg/logger"
	"github.com/yungbote/briefs-backend/internal/versioning"
)

var testClock = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func testPolicy() familylock.Policy {
	return familylock.Policy{MaxWait: 5 * time.Second, InitialInterval: time.Millisecond, MaxInterval: 10 * time.Millisecond}
}

func newBriefService(t *testing.T, store versioning.Store) *briefVersionService {
	t.Helper()
	svc := NewBriefVersionService(store, logger.Nop(), nil).(*briefVersionService)
	svc.now = func() time.Time { return testClock }
	return svc
}

func newMemStore() *memstore.Store {
	return memstore.New(familylock.NewLocal(), testPolicy())
}

func content(title string) *briefs.Content {
	return &briefs.Content{AuthorID: "author-1", Category: "policy", Title: title, Body: title + " body"}
}

func mustCreate(t *testing.T, svc BriefVersionService, parent *uuid.UUID, c *briefs.Content) *briefs.BriefVersion {
	t.Helper()
	v, err := svc.CreateVersion(context.Background(), CreateVersionInput{ParentID: parent, Content: c})
	if err != nil {
		t.Fatalf("CreateVersion: %v", err)
	}
	return v
}

func mustPublish(t *testing.T, svc BriefVersionService, id uuid.UUID) {
	t.Helper()
	if _, err := svc.Publish(context.Background(), id); err != nil {
		t.Fatalf("Publish(%s): %v", id, err)
	}
}

func activeIDs(t *testing.T, store versioning.Store, rootID uuid.UUID) []uuid.UUID {
	t.Helper()
	rows, err := store.ListFamily(context.Background(), rootID)
	if err != nil {
		t.Fatalf("ListFamily: %v", err)
	}
	var out []uuid.UUID
	for _, v := range versioning.ResolveFamily(rootID, rows).Versions {
		if v.IsActive {
			out = append(out, v.ID)
		}
	}
	return out
}

func assertConsistent(t *testing.T, store versioning.Store) {
	t.Helper()
	records, err := store.Snapshot(context.Background())
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	for _, f := range versioning.ResolveFamilies(records) {
		if vs := versioning.Check(f); len(vs) > 0 {
			t.Fatalf("family %s inconsistent: %v", f.RootID, vs)
		}
	}
}

// failingStore fails every family transaction for the listed roots.
type failingStore struct {
	versioning.Store
	failRoots   map[uuid.UUID]bool
	snapshotErr error
}

var errInjected = errors.New("injected write failure")

func (s *failingStore) InFamily(ctx context.Context, rootID uuid.UUID, fn func(tx versioning.FamilyTx) error) error {
	if s.failRoots[rootID] {
		return versioning.StorageFailure("family transaction", errInjected)
	}
	return s.Store.InFamily(ctx, rootID, fn)
}

func (s *failingStore) Snapshot(ctx context.Context) ([]*briefs.BriefVersion, error) {
	if s.snapshotErr != nil {
		return nil, s.snapshotErr
	}
	return s.Store.Snapshot(ctx)
}
