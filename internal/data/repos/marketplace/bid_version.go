package marketplace

import (
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/casehall-backend/internal/domain"
	"github.com/yungbote/casehall-backend/internal/platform/dbctx"
	"github.com/yungbote/casehall-backend/internal/platform/logger"
)

type BidVersionRepo interface {
	Create(dbc dbctx.Context, rows []*types.BidVersion) ([]*types.BidVersion, error)
	ListByBid(dbc dbctx.Context, bidID uuid.UUID) ([]*types.BidVersion, error)
}

type bidVersionRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewBidVersionRepo(db *gorm.DB, log *logger.Logger) BidVersionRepo {
	return &bidVersionRepo{db: db, log: log.With("repo", "BidVersionRepo")}
}

// Create appends history rows in one batch insert.
func (r *bidVersionRepo) Create(dbc dbctx.Context, rows []*types.BidVersion) ([]*types.BidVersion, error) {
	if len(rows) == 0 {
		return []*types.BidVersion{}, nil
	}
	if err := dbc.DB(r.db).CreateInBatches(&rows, 200).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *bidVersionRepo) ListByBid(dbc dbctx.Context, bidID uuid.UUID) ([]*types.BidVersion, error) {
	if bidID == uuid.Nil {
		return nil, fmt.Errorf("missing bid_id")
	}
	var out []*types.BidVersion
	if err := dbc.DB(r.db).
		Where("bid_id = ?", bidID).
		Order("version ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
