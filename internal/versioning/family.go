package versioning

import (
	"bytes"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/briefs-backend/internal/domain/briefs"
)

// Family is every version sharing one RootID, in creation order.
type Family struct {
	RootID   uuid.UUID
	Versions []*briefs.BriefVersion
	// Root is the member whose ID equals RootID, nil when the family is dangling.
	Root     *briefs.BriefVersion
	Dangling bool
}

// ResolveFamilies groups records by RootID. It never fails: a family whose root
// record is missing comes back with Dangling set.
func ResolveFamilies(records []*briefs.BriefVersion) map[uuid.UUID]*Family {
	out := make(map[uuid.UUID]*Family)
	for _, r := range records {
		if r == nil {
			continue
		}
		f, ok := out[r.RootID]
		if !ok {
			f = &Family{RootID: r.RootID}
			out[r.RootID] = f
		}
		f.Versions = append(f.Versions, r)
		if r.ID == r.RootID {
			f.Root = r
		}
	}
	for _, f := range out {
		orderByCreation(f.Versions)
		f.Dangling = f.Root == nil
	}
	return out
}

// ResolveFamily builds the single family rooted at rootID, ignoring records from other families.
func ResolveFamily(rootID uuid.UUID, records []*briefs.BriefVersion) *Family {
	members := make([]*briefs.BriefVersion, 0, len(records))
	for _, r := range records {
		if r != nil && r.RootID == rootID {
			members = append(members, r)
		}
	}
	if f, ok := ResolveFamilies(members)[rootID]; ok {
		return f
	}
	return &Family{RootID: rootID, Dangling: true}
}

// SortedFamilies returns the families ordered by root id so scans are reproducible.
func SortedFamilies(families map[uuid.UUID]*Family) []*Family {
	out := make([]*Family, 0, len(families))
	for _, f := range families {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool {
		return bytes.Compare(out[i].RootID[:], out[j].RootID[:]) < 0
	})
	return out
}

func orderByCreation(vs []*briefs.BriefVersion) {
	sort.SliceStable(vs, func(i, j int) bool {
		a, b := vs[i], vs[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if a.VersionNumber != b.VersionNumber {
			return a.VersionNumber < b.VersionNumber
		}
		return bytes.Compare(a.ID[:], b.ID[:]) < 0
	})
}

func (f *Family) Empty() bool { return f == nil || len(f.Versions) == 0 }

func (f *Family) Find(id uuid.UUID) *briefs.BriefVersion {
	if f == nil {
		return nil
	}
	for _, v := range f.Versions {
		if v.ID == id {
			return v
		}
	}
	return nil
}

// Candidates are the published, non-draft members in creation order.
func (f *Family) Candidates() []*briefs.BriefVersion {
	var out []*briefs.BriefVersion
	for _, v := range f.Versions {
		if v.IsPublished && !v.IsDraft {
			out = append(out, v)
		}
	}
	return out
}

// Canonical returns the earliest-created canonical member, or nil.
func (f *Family) Canonical() *briefs.BriefVersion {
	if f == nil {
		return nil
	}
	for _, v := range f.Versions {
		if v.IsCanonical() {
			return v
		}
	}
	return nil
}

func (f *Family) MaxVersionNumber() int {
	max := 0
	if f == nil {
		return max
	}
	for _, v := range f.Versions {
		if v.VersionNumber > max {
			max = v.VersionNumber
		}
	}
	return max
}

func (f *Family) LatestCreatedAt() time.Time {
	var latest time.Time
	if f == nil {
		return latest
	}
	for _, v := range f.Versions {
		if v.CreatedAt.After(latest) {
			latest = v.CreatedAt
		}
	}
	return latest
}

// History returns a copy of the members ordered by version number.
func (f *Family) History() []*briefs.BriefVersion {
	if f == nil {
		return nil
	}
	out := append([]*briefs.BriefVersion(nil), f.Versions...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].VersionNumber != out[j].VersionNumber {
			return out[i].VersionNumber < out[j].VersionNumber
		}
		return bytes.Compare(out[i].ID[:], out[j].ID[:]) < 0
	})
	return out
}
