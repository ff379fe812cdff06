package versioning

import (
	"github.com/google/uuid"

	"github.com/yungbote/briefs-backend/internal/domain/briefs"
)

type Reason string

const (
	ReasonNoActive           Reason = "no_active"
	ReasonMultipleActive     Reason = "multiple_active"
	ReasonNonCandidateActive Reason = "non_candidate_active"
)

// Decision is the set of flag writes that brings one family back to a single canonical version.
type Decision struct {
	RootID     uuid.UUID   `json:"root_id"`
	Activate   *uuid.UUID  `json:"activate,omitempty"`
	Deactivate []uuid.UUID `json:"deactivate,omitempty"`
	Reasons    []Reason    `json:"reasons,omitempty"`
	// Candidates is the number of published, non-draft members seen.
	Candidates int `json:"candidates"`
}

func (d Decision) NoOp() bool { return d.Activate == nil && len(d.Deactivate) == 0 }

// Select decides which version of f should be active.
//
// With no active candidate the earliest-created published version is chosen; with several,
// the earliest-created active one is kept. Active flags on drafts or unpublished records are
// always cleared. Select only reads f.
func Select(f *Family) Decision {
	d := Decision{}
	if f == nil {
		return d
	}
	d.RootID = f.RootID

	var candidates, activeSet []*briefs.BriefVersion
	for _, v := range f.Versions {
		candidate := v.IsPublished && !v.IsDraft
		switch {
		case candidate:
			candidates = append(candidates, v)
			if v.IsActive {
				activeSet = append(activeSet, v)
			}
		case v.IsActive:
			d.Deactivate = append(d.Deactivate, v.ID)
		}
	}
	d.Candidates = len(candidates)
	if len(d.Deactivate) > 0 {
		d.Reasons = append(d.Reasons, ReasonNonCandidateActive)
	}

	switch {
	case len(candidates) == 0, len(activeSet) == 1:
	case len(activeSet) == 0:
		id := candidates[0].ID
		d.Activate = &id
		d.Reasons = append(d.Reasons, ReasonNoActive)
	default:
		for _, v := range activeSet[1:] {
			d.Deactivate = append(d.Deactivate, v.ID)
		}
		d.Reasons = append(d.Reasons, ReasonMultipleActive)
	}
	return d
}
