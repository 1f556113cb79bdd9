package marketplace

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/casehall-backend/internal/domain"
	"github.com/yungbote/casehall-backend/internal/platform/dbctx"
	"github.com/yungbote/casehall-backend/internal/platform/logger"
)

type AttorneyProfileRepo interface {
	Create(dbc dbctx.Context, rows []*types.AttorneyProfile) ([]*types.AttorneyProfile, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.AttorneyProfile, error)
}

type attorneyProfileRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAttorneyProfileRepo(db *gorm.DB, log *logger.Logger) AttorneyProfileRepo {
	return &attorneyProfileRepo{db: db, log: log.With("repo", "AttorneyProfileRepo")}
}

func (r *attorneyProfileRepo) Create(dbc dbctx.Context, rows []*types.AttorneyProfile) ([]*types.AttorneyProfile, error) {
	if len(rows) == 0 {
		return []*types.AttorneyProfile{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *attorneyProfileRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.AttorneyProfile, error) {
	if id == uuid.Nil {
		return nil, fmt.Errorf("missing attorney_profile_id")
	}
	var out []*types.AttorneyProfile
	if err := dbc.DB(r.db).Where("id = ?", id).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}
