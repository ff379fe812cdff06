package versioning

import (
	"time"

	"github.com/google/uuid"
)

// Summary reports one reconciliation pass.
type Summary struct {
	FamiliesScanned     int `json:"families_scanned"`
	FamiliesRepaired    int `json:"families_repaired"`
	FamiliesSkipped     int `json:"families_skipped"`
	FamiliesUnpublished int `json:"families_unpublished"`
	FamiliesDangling    int `json:"families_dangling"`
	VersionsActivated   int `json:"versions_activated"`
	VersionsDeactivated int `json:"versions_deactivated"`

	DryRun   bool           `json:"dry_run"`
	Duration time.Duration  `json:"duration_ns"`
	Families []FamilyReport `json:"families,omitempty"`

	FirstError        error  `json:"-"`
	FirstErrorMessage string `json:"first_error,omitempty"`
}

// FamilyReport describes a family that needed (or would need) a repair, or failed.
type FamilyReport struct {
	RootID   uuid.UUID `json:"root_id"`
	Decision Decision  `json:"decision"`
	Dangling bool      `json:"dangling,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// RecordFailure counts a skipped family and keeps the first error seen.
func (s *Summary) RecordFailure(rootID uuid.UUID, err error) {
	s.FamiliesSkipped++
	if s.FirstError == nil {
		s.FirstError = err
		s.FirstErrorMessage = err.Error()
	}
	s.Families = append(s.Families, FamilyReport{RootID: rootID, Error: err.Error()})
}

// RecordRepair counts an applied (or, for dry runs, planned) decision.
func (s *Summary) RecordRepair(d Decision, dangling bool) {
	s.FamiliesRepaired++
	if d.Activate != nil {
		s.VersionsActivated++
	}
	s.VersionsDeactivated += len(d.Deactivate)
	s.Families = append(s.Families, FamilyReport{RootID: d.RootID, Decision: d, Dangling: dangling})
}
