package marketplace

import (
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/casehall-backend/internal/domain"
	"github.com/yungbote/casehall-backend/internal/platform/dbctx"
	"github.com/yungbote/casehall-backend/internal/platform/logger"
)

type RankingConfigRepo interface {
	GetByFeedKey(dbc dbctx.Context, feedKey string) (*types.RankingConfigRow, error)
	Upsert(dbc dbctx.Context, row *types.RankingConfigRow) error
}

type rankingConfigRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewRankingConfigRepo(db *gorm.DB, log *logger.Logger) RankingConfigRepo {
	return &rankingConfigRepo{db: db, log: log.With("repo", "RankingConfigRepo")}
}

func (r *rankingConfigRepo) GetByFeedKey(dbc dbctx.Context, feedKey string) (*types.RankingConfigRow, error) {
	feedKey = strings.TrimSpace(feedKey)
	if feedKey == "" {
		return nil, fmt.Errorf("missing feed_key")
	}
	var out []*types.RankingConfigRow
	if err := dbc.DB(r.db).Where("feed_key = ?", feedKey).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *rankingConfigRepo) Upsert(dbc dbctx.Context, row *types.RankingConfigRow) error {
	if row == nil || strings.TrimSpace(row.FeedKey) == "" {
		return fmt.Errorf("missing feed_key")
	}
	now := time.Now().UTC()
	row.UpdatedAt = now
	if row.CreatedAt.IsZero() {
		row.CreatedAt = now
	}
	return dbc.DB(r.db).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "feed_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"document", "updated_by", "updated_at"}),
	}).Create(row).Error
}
