package versioning

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/yungbote/briefs-backend/internal/domain/briefs"
)

type Rule string

const (
	RuleDraftActive      Rule = "draft_active"
	RuleMultipleActive   Rule = "multiple_active"
	RuleVersionNumbering Rule = "version_numbering"
	RuleBrokenLineage    Rule = "broken_lineage"
	RuleDanglingRoot     Rule = "dangling_root"
)

type Violation struct {
	RootID    uuid.UUID  `json:"root_id"`
	VersionID *uuid.UUID `json:"version_id,omitempty"`
	Rule      Rule       `json:"rule"`
	Detail    string     `json:"detail"`
}

func (v Violation) String() string {
	if v.VersionID != nil {
		return fmt.Sprintf("%s family=%s version=%s: %s", v.Rule, v.RootID, *v.VersionID, v.Detail)
	}
	return fmt.Sprintf("%s family=%s: %s", v.Rule, v.RootID, v.Detail)
}

// Check audits one family and returns every violation found. An empty result means the
// family is consistent.
func Check(f *Family) []Violation {
	if f.Empty() {
		return nil
	}
	var out []Violation
	add := func(id *uuid.UUID, rule Rule, format string, args ...interface{}) {
		out = append(out, Violation{RootID: f.RootID, VersionID: id, Rule: rule, Detail: fmt.Sprintf(format, args...)})
	}

	canonical := 0
	for _, v := range f.Versions {
		id := v.ID
		if v.IsDraft && v.IsActive {
			add(&id, RuleDraftActive, "draft version is flagged active")
		}
		if v.IsCanonical() {
			canonical++
		}
	}
	if canonical > 1 {
		add(nil, RuleMultipleActive, "%d canonical versions", canonical)
	}

	seen := make(map[int]uuid.UUID, len(f.Versions))
	prev := 0
	for _, v := range f.Versions {
		id := v.ID
		if v.VersionNumber < 1 {
			add(&id, RuleVersionNumbering, "version number %d is not positive", v.VersionNumber)
		}
		if other, dup := seen[v.VersionNumber]; dup {
			add(&id, RuleVersionNumbering, "version number %d also used by %s", v.VersionNumber, other)
		}
		seen[v.VersionNumber] = v.ID
		if v.VersionNumber <= prev {
			add(&id, RuleVersionNumbering, "version number %d does not increase in creation order (previous %d)", v.VersionNumber, prev)
		}
		if v.VersionNumber > prev {
			prev = v.VersionNumber
		}
	}

	if f.Dangling {
		add(nil, RuleDanglingRoot, "no member has id %s", f.RootID)
		return out
	}
	if f.Root.ParentID != nil {
		id := f.Root.ID
		add(&id, RuleBrokenLineage, "root has parent %s", *f.Root.ParentID)
	}
	for _, v := range f.Versions {
		if v.IsRoot() {
			continue
		}
		id := v.ID
		if !reachesRoot(f, v) {
			add(&id, RuleBrokenLineage, "parent chain does not reach root")
		}
	}
	return out
}

func reachesRoot(f *Family, v *briefs.BriefVersion) bool {
	cur := v
	visited := make(map[uuid.UUID]bool, len(f.Versions))
	for cur != nil {
		if cur.IsRoot() {
			return true
		}
		if visited[cur.ID] || cur.ParentID == nil {
			return false
		}
		visited[cur.ID] = true
		cur = f.Find(*cur.ParentID)
	}
	return false
}
