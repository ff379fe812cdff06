package versioning

import (
	"github.com/google/uuid"

	"github.com/yungbote/briefs-backend/internal/domain/briefs"
)

type State string

const (
	StateDraft     State = "draft"
	StatePublished State = "published"
	StateActive    State = "active"
	// StateInconsistent covers flag combinations no transition produces (e.g. neither draft nor published).
	StateInconsistent State = "inconsistent"
)

func StateOf(v *briefs.BriefVersion) State {
	switch {
	case v == nil:
		return StateInconsistent
	case v.IsDraft && !v.IsPublished:
		return StateDraft
	case !v.IsDraft && v.IsPublished && v.IsActive:
		return StateActive
	case !v.IsDraft && v.IsPublished:
		return StatePublished
	default:
		return StateInconsistent
	}
}

func CheckPublish(v *briefs.BriefVersion) error {
	if v == nil {
		return NotFoundf("version")
	}
	if !v.IsDraft || v.IsPublished {
		return InvalidStatef("version %s is %s, only drafts can be published", v.ID, StateOf(v))
	}
	return nil
}

func CheckActivate(v *briefs.BriefVersion) error {
	if v == nil {
		return NotFoundf("version")
	}
	if v.IsDraft || !v.IsPublished {
		return InvalidStatef("version %s is %s, only published versions can be activated", v.ID, StateOf(v))
	}
	return nil
}

// PlanActivate returns the target and the members whose active flag must be cleared
// for target to become the family's only active version.
func PlanActivate(f *Family, targetID uuid.UUID) (*briefs.BriefVersion, []*briefs.BriefVersion, error) {
	target := f.Find(targetID)
	if target == nil {
		return nil, nil, NotFoundf("version %s in family %s", targetID, f.RootID)
	}
	if err := CheckActivate(target); err != nil {
		return nil, nil, err
	}
	var clear []*briefs.BriefVersion
	for _, v := range f.Versions {
		if v.ID != targetID && v.IsActive {
			clear = append(clear, v)
		}
	}
	return target, clear, nil
}
