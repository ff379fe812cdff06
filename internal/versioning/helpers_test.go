package versioning

import (
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/briefs-backend/internal/domain/briefs"
)

var t0 = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)

type flags struct{ draft, published, active bool }

var (
	draft     = flags{draft: true}
	published = flags{published: true}
	active    = flags{published: true, active: true}
)

// chain builds a linear family; states[i] is version i+1 created at t0+i minutes.
func chain(states ...flags) []*briefs.BriefVersion {
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
			Title:         "brief",
			IsDraft:       st.draft,
			IsPublished:   st.published,
			IsActive:      st.active,
			CreatedAt:     t0.Add(time.Duration(i) * time.Minute),
		}
		p := v.ID
		parent = &p
		out = append(out, v)
	}
	return out
}
