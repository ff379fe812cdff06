package memstore

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/briefs-backend/internal/data/familylock"
	"github.com/yungbote/briefs-backend/internal/domain/briefs"
	"github.com/yungbote/briefs-backend/internal/pkg/dbctx"
	"github.com/yungbote/briefs-backend/internal/versioning"
)

// Store keeps versions in memory. Family transactions stage their writes and publish them
// atomically on success, so readers never observe a half-applied family.
type Store struct {
	mu     sync.RWMutex
	rows   map[uuid.UUID]*briefs.BriefVersion
	locker familylock.Locker
	policy familylock.Policy

	// Interleave, when set, runs after a transaction's callback and before its commit.
	Interleave func()
}

func New(locker familylock.Locker, policy familylock.Policy) *Store {
	if locker == nil {
		locker = familylock.NewLocal()
	}
	return &Store{
		rows:   make(map[uuid.UUID]*briefs.BriefVersion),
		locker: locker,
		policy: policy,
	}
}

var _ versioning.Store = (*Store)(nil)

// Seed stores records as given, bypassing every lifecycle rule.
func (s *Store) Seed(records ...*briefs.BriefVersion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		if r != nil {
			s.rows[r.ID] = r.Clone()
		}
	}
}

func (s *Store) InFamily(ctx context.Context, rootID uuid.UUID, fn func(tx versioning.FamilyTx) error) error {
	return familylock.Retry(ctx, s.policy, rootID, func() error {
		release, err := s.locker.TryLock(dbctx.Context{Ctx: ctx}, rootID)
		if err != nil {
			return err
		}
		defer release()

		tx := &memTx{store: s, rootID: rootID, staged: map[uuid.UUID]*briefs.BriefVersion{}}
		if err := fn(tx); err != nil {
			return err
		}
		if ctx != nil && ctx.Err() != nil {
			return ctx.Err()
		}
		if s.Interleave != nil {
			s.Interleave()
		}
		return s.commit(tx)
	})
}

func (s *Store) commit(tx *memTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range tx.inserted {
		v := tx.staged[id]
		if _, exists := s.rows[id]; exists {
			return versioning.Contentionf("version %s already exists", id)
		}
		for _, r := range s.rows {
			if r.RootID == v.RootID && r.VersionNumber == v.VersionNumber {
				return versioning.Contentionf("version %d already exists in family %s", v.VersionNumber, v.RootID)
			}
		}
	}
	for id, v := range tx.staged {
		s.rows[id] = v.Clone()
	}
	return nil
}

func (s *Store) Get(_ context.Context, id uuid.UUID) (*briefs.BriefVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.rows[id]
	if !ok {
		return nil, versioning.NotFoundf("version %s", id)
	}
	return v.Clone(), nil
}

func (s *Store) Snapshot(_ context.Context) ([]*briefs.BriefVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*briefs.BriefVersion, 0, len(s.rows))
	for _, v := range s.rows {
		out = append(out, v.Clone())
	}
	sort.Slice(out, func(i, j int) bool { return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0 })
	return out, nil
}

func (s *Store) ListCanonical(_ context.Context, filter briefs.CanonicalFilter) ([]*briefs.BriefVersion, error) {
	s.mu.RLock()
	var out []*briefs.BriefVersion
	for _, v := range s.rows {
		if v.IsCanonical() && filter.Matches(v) {
			out = append(out, v.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) > 0
	})
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []*briefs.BriefVersion{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *Store) ListFamily(_ context.Context, rootID uuid.UUID) ([]*briefs.BriefVersion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.familyLocked(rootID), nil
}

func (s *Store) familyLocked(rootID uuid.UUID) []*briefs.BriefVersion {
	var out []*briefs.BriefVersion
	for _, v := range s.rows {
		if v.RootID == rootID {
			out = append(out, v.Clone())
		}
	}
	return out
}

type memTx struct {
	store    *Store
	rootID   uuid.UUID
	staged   map[uuid.UUID]*briefs.BriefVersion
	inserted []uuid.UUID
}

func (t *memTx) Members() ([]*briefs.BriefVersion, error) {
	t.store.mu.RLock()
	base := t.store.familyLocked(t.rootID)
	t.store.mu.RUnlock()

	byID := make(map[uuid.UUID]*briefs.BriefVersion, len(base)+len(t.staged))
	for _, v := range base {
		byID[v.ID] = v
	}
	for id, v := range t.staged {
		byID[id] = v.Clone()
	}
	out := make([]*briefs.BriefVersion, 0, len(byID))
	for _, v := range byID {
		out = append(out, v)
	}
	return versioning.ResolveFamily(t.rootID, out).Versions, nil
}

func (t *memTx) Insert(v *briefs.BriefVersion) error {
	if v == nil || v.RootID != t.rootID {
		return versioning.InvalidStatef("insert outside family %s", t.rootID)
	}
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	members, _ := t.Members()
	for _, m := range members {
		if m.ID == v.ID || m.VersionNumber == v.VersionNumber {
			return versioning.Contentionf("version %d already exists in family %s", v.VersionNumber, t.rootID)
		}
	}
	now := time.Now().UTC()
	if v.CreatedAt.IsZero() {
		v.CreatedAt = now
	}
	if v.UpdatedAt.IsZero() {
		v.UpdatedAt = now
	}
	t.staged[v.ID] = v.Clone()
	t.inserted = append(t.inserted, v.ID)
	return nil
}

func (t *memTx) SaveState(v *briefs.BriefVersion) error {
	if v == nil || v.RootID != t.rootID {
		return versioning.InvalidStatef("update outside family %s", t.rootID)
	}
	cur, ok := t.staged[v.ID]
	if !ok {
		t.store.mu.RLock()
		stored, exists := t.store.rows[v.ID]
		if exists {
			cur = stored.Clone()
		}
		t.store.mu.RUnlock()
		if !exists || cur.RootID != t.rootID {
			return versioning.NotFoundf("version %s", v.ID)
		}
	}
	cur.IsDraft = v.IsDraft
	cur.IsPublished = v.IsPublished
	cur.IsActive = v.IsActive
	cur.PublishedAt = v.PublishedAt
	cur.UpdatedAt = time.Now().UTC()
	v.UpdatedAt = cur.UpdatedAt
	t.staged[v.ID] = cur
	return nil
}
