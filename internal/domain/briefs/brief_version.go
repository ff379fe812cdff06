package briefs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// BriefVersion is one persisted revision of a brief. All revisions of the same brief share RootID.
type BriefVersion struct {
	ID            uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	RootID        uuid.UUID  `gorm:"type:uuid;not null;index;uniqueIndex:idx_brief_version_family_number,priority:1" json:"root_id"`
	ParentID      *uuid.UUID `gorm:"type:uuid;index" json:"parent_id,omitempty"`
	VersionNumber int        `gorm:"column:version_number;not null;uniqueIndex:idx_brief_version_family_number,priority:2" json:"version_number"`

	AuthorID string         `gorm:"column:author_id;index" json:"author_id"`
	Category string         `gorm:"column:category;index" json:"category"`
	Title    string         `gorm:"column:title;not null" json:"title"`
	Summary  string         `gorm:"column:summary;type:text" json:"summary"`
	Body     string         `gorm:"column:body;type:text" json:"body"`
	Metadata datatypes.JSON `gorm:"column:metadata" json:"metadata,omitempty"`

	// No gorm defaults on the flags: a default tag would make Create skip an explicit false.
	IsDraft     bool       `gorm:"column:is_draft;not null" json:"is_draft"`
	IsPublished bool       `gorm:"column:is_published;not null" json:"is_published"`
	IsActive    bool       `gorm:"column:is_active;not null;index:idx_brief_version_canonical,priority:1" json:"is_active"`
	PublishedAt *time.Time `gorm:"column:published_at" json:"published_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;index:idx_brief_version_canonical,priority:2" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (BriefVersion) TableName() string { return "brief_version" }

func (v *BriefVersion) BeforeCreate(tx *gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	if v.RootID == uuid.Nil {
		v.RootID = v.ID
	}
	return nil
}

// IsRoot reports whether v started its family.
func (v *BriefVersion) IsRoot() bool { return v != nil && v.ID == v.RootID }

// IsCanonical reports whether v is what readers see for its family.
func (v *BriefVersion) IsCanonical() bool {
	return v != nil && v.IsActive && v.IsPublished && !v.IsDraft
}

func (v *BriefVersion) Clone() *BriefVersion {
	if v == nil {
		return nil
	}
	out := *v
	if v.ParentID != nil {
		p := *v.ParentID
		out.ParentID = &p
	}
	if v.PublishedAt != nil {
		t := *v.PublishedAt
		out.PublishedAt = &t
	}
	if v.Metadata != nil {
		out.Metadata = append(datatypes.JSON(nil), v.Metadata...)
	}
	return &out
}

// Content is the author-editable part of a version.
type Content struct {
	AuthorID string         `json:"author_id" validate:"max=128"`
	Category string         `json:"category" validate:"max=64"`
	Title    string         `json:"title" validate:"required,max=300"`
	Summary  string         `json:"summary" validate:"max=2000"`
	Body     string         `json:"body" validate:"maxbytes"`
	Metadata datatypes.JSON `json:"metadata,omitempty" validate:"jsondoc"`
}

func (v *BriefVersion) Content() Content {
	return Content{
		AuthorID: v.AuthorID,
		Category: v.Category,
		Title:    v.Title,
		Summary:  v.Summary,
		Body:     v.Body,
		Metadata: append(datatypes.JSON(nil), v.Metadata...),
	}
}

func (v *BriefVersion) SetContent(c Content) {
	v.AuthorID = c.AuthorID
	v.Category = c.Category
	v.Title = c.Title
	v.Summary = c.Summary
	v.Body = c.Body
	v.Metadata = c.Metadata
}

// CanonicalFilter narrows the canonical listing. Zero values mean "no constraint".
type CanonicalFilter struct {
	AuthorID string
	Category string
	Limit    int
	Offset   int
}

// Matches applies the author/category part of the filter in memory.
func (f CanonicalFilter) Matches(v *BriefVersion) bool {
	if f.AuthorID != "" && v.AuthorID != f.AuthorID {
		return false
	}
	if f.Category != "" && v.Category != f.Category {
		return false
	}
	return true
}
