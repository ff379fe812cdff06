package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/briefs-backend/internal/domain/briefs"
)

// VersionState is the lifecycle flag combination a fixture is seeded with.
type VersionState struct {
	Draft, Published, Active bool
}

var (
	Draft     = VersionState{Draft: true}
	Published = VersionState{Published: true}
	Active    = VersionState{Published: true, Active: true}
	// ActiveDraft is not reachable through the engine; it is seeded to exercise repair.
	ActiveDraft = VersionState{Draft: true, Active: true}
)

// BuildFamily returns an unsaved linear family, one version per state, created a minute apart from base.
func BuildFamily(base time.Time, states ...VersionState) []*briefs.BriefVersion {
	root := uuid.New()
	out := make([]*briefs.BriefVersion, 0, len(states))
	var parent *uuid.UUID
	for i, st := range states {
		id := root
		if i > 0 {
			id = uuid.New()
		}
		v := &briefs.BriefVersion{
			ID:            id,
			RootID:        root,
			ParentID:      parent,
			VersionNumber: i + 1,
			AuthorID:      "author-1",
			Category:      "policy",
			Title:         "brief",
			Body:          "body",
			IsDraft:       st.Draft,
			IsPublished:   st.Published,
			IsActive:      st.Active,
			CreatedAt:     base.Add(time.Duration(i) * time.Minute).UTC(),
			UpdatedAt:     base.Add(time.Duration(i) * time.Minute).UTC(),
		}
		if st.Published {
			at := v.CreatedAt
			v.PublishedAt = &at
		}
		pid := v.ID
		parent = &pid
		out = append(out, v)
	}
	return out
}

func SeedFamily(tb testing.TB, ctx context.Context, tx *gorm.DB, base time.Time, states ...VersionState) []*briefs.BriefVersion {
	tb.Helper()
	rows := BuildFamily(base, states...)
	if err := tx.WithContext(ctx).Create(&rows).Error; err != nil {
		tb.Fatalf("seed family: %v", err)
	}
	return rows
}

func PtrUUID(v uuid.UUID) *uuid.UUID { return &v }
