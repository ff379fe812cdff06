package briefs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/briefs-backend/internal/domain/briefs"
	"github.com/yungbote/briefs-backend/internal/pkg/dbctx"
	"github.com/yungbote/briefs-backend/internal/pkg/logger"
)

type BriefVersionRepo interface {
	Create(dbc dbctx.Context, rows []*types.BriefVersion) ([]*types.BriefVersion, error)

	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.BriefVersion, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.BriefVersion, error)

	// ListByRootID returns one family in creation order.
	ListByRootID(dbc dbctx.Context, rootID uuid.UUID) ([]*types.BriefVersion, error)
	ListAll(dbc dbctx.Context) ([]*types.BriefVersion, error)
	ListCanonical(dbc dbctx.Context, filter types.CanonicalFilter) ([]*types.BriefVersion, error)

	// UpdateState writes the lifecycle flags of v. It returns gorm.ErrRecordNotFound when no row matched.
	UpdateState(dbc dbctx.Context, v *types.BriefVersion) error
}

type briefVersionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBriefVersionRepo(db *gorm.DB, baseLog *logger.Logger) BriefVersionRepo {
	return &briefVersionRepo{db: db, log: baseLog.With("repo", "BriefVersionRepo")}
}

const creationOrder = "created_at ASC, version_number ASC, id ASC"

func (r *briefVersionRepo) Create(dbc dbctx.Context, rows []*types.BriefVersion) ([]*types.BriefVersion, error) {
	if len(rows) == 0 {
		return []*types.BriefVersion{}, nil
	}
	if err := dbc.Conn(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *briefVersionRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.BriefVersion, error) {
	var out []*types.BriefVersion
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.Conn(r.db).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *briefVersionRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.BriefVersion, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	rows, err := r.GetByIDs(dbc, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

func (r *briefVersionRepo) ListByRootID(dbc dbctx.Context, rootID uuid.UUID) ([]*types.BriefVersion, error) {
	var out []*types.BriefVersion
	if rootID == uuid.Nil {
		return out, nil
	}
	if err := dbc.Conn(r.db).
		Where("root_id = ?", rootID).
		Order(creationOrder).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *briefVersionRepo) ListAll(dbc dbctx.Context) ([]*types.BriefVersion, error) {
	var out []*types.BriefVersion
	if err := dbc.Conn(r.db).
		Order("root_id ASC, " + creationOrder).
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *briefVersionRepo) ListCanonical(dbc dbctx.Context, filter types.CanonicalFilter) ([]*types.BriefVersion, error) {
	q := dbc.Conn(r.db).
		Where("is_active = ? AND is_published = ? AND is_draft = ?", true, true, false)
	if filter.AuthorID != "" {
		q = q.Where("author_id = ?", filter.AuthorID)
	}
	if filter.Category != "" {
		q = q.Where("category = ?", filter.Category)
	}
	q = q.Order("created_at DESC, id DESC")
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	var out []*types.BriefVersion
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *briefVersionRepo) UpdateState(dbc dbctx.Context, v *types.BriefVersion) error {
	if v == nil || v.ID == uuid.Nil {
		return gorm.ErrRecordNotFound
	}
	now := time.Now().UTC()
	res := dbc.Conn(r.db).
		Model(&types.BriefVersion{}).
		Where("id = ? AND root_id = ?", v.ID, v.RootID).
		Updates(map[string]interface{}{
			"is_draft":     v.IsDraft,
			"is_published": v.IsPublished,
			"is_active":    v.IsActive,
			"published_at": v.PublishedAt,
			"updated_at":   now,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	v.UpdatedAt = now
	return nil
}
