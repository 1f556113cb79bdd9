package marketplace

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/casehall-backend/internal/domain"
	"github.com/yungbote/casehall-backend/internal/domain/marketplace"
	"github.com/yungbote/casehall-backend/internal/platform/dbctx"
	"github.com/yungbote/casehall-backend/internal/platform/logger"
)

type EngagementRepo interface {
	Create(dbc dbctx.Context, rows []*types.EngagementConfirmation) ([]*types.EngagementConfirmation, error)
	GetByBidID(dbc dbctx.Context, bidID uuid.UUID) (*types.EngagementConfirmation, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	// CancelByBidIDs cancels every engagement of the given bids that is not
	// already cancelled, ACTIVE included.
	CancelByBidIDs(dbc dbctx.Context, bidIDs []uuid.UUID, at time.Time) (int64, error)
	CountPendingByAttorney(dbc dbctx.Context, attorneyProfileID uuid.UUID) (int, error)
}

type engagementRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewEngagementRepo(db *gorm.DB, log *logger.Logger) EngagementRepo {
	return &engagementRepo{db: db, log: log.With("repo", "EngagementRepo")}
}

func (r *engagementRepo) Create(dbc dbctx.Context, rows []*types.EngagementConfirmation) ([]*types.EngagementConfirmation, error) {
	if len(rows) == 0 {
		return []*types.EngagementConfirmation{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *engagementRepo) GetByBidID(dbc dbctx.Context, bidID uuid.UUID) (*types.EngagementConfirmation, error) {
	if bidID == uuid.Nil {
		return nil, fmt.Errorf("missing bid_id")
	}
	var out []*types.EngagementConfirmation
	if err := dbc.DB(r.db).Where("bid_id = ?", bidID).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *engagementRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing engagement id")
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return dbc.DB(r.db).Model(&types.EngagementConfirmation{}).Where("id = ?", id).Updates(updates).Error
}

func (r *engagementRepo) CancelByBidIDs(dbc dbctx.Context, bidIDs []uuid.UUID, at time.Time) (int64, error) {
	if len(bidIDs) == 0 {
		return 0, nil
	}
	res := dbc.DB(r.db).Model(&types.EngagementConfirmation{}).
		Where("bid_id IN ? AND status <> ?", bidIDs, types.EngagementCancelled).
		Updates(map[string]interface{}{
			"status":     types.EngagementCancelled,
			"updated_at": at,
		})
	return res.RowsAffected, res.Error
}

func (r *engagementRepo) CountPendingByAttorney(dbc dbctx.Context, attorneyProfileID uuid.UUID) (int, error) {
	var n int64
	if err := dbc.DB(r.db).Model(&types.EngagementConfirmation{}).
		Where("attorney_profile_id = ? AND status IN ?", attorneyProfileID, marketplace.EngagementPendingStatuses).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}
