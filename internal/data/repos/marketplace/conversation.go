package marketplace

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/casehall-backend/internal/domain"
	"github.com/yungbote/casehall-backend/internal/platform/dbctx"
	"github.com/yungbote/casehall-backend/internal/platform/logger"
)

type ConversationRepo interface {
	Create(dbc dbctx.Context, rows []*types.Conversation) ([]*types.Conversation, error)
	GetByBidID(dbc dbctx.Context, bidID uuid.UUID) (*types.Conversation, error)
	ListByBidIDs(dbc dbctx.Context, bidIDs []uuid.UUID) ([]*types.Conversation, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	CountOpenByAttorney(dbc dbctx.Context, attorneyProfileID uuid.UUID) (int, error)
}

type conversationRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewConversationRepo(db *gorm.DB, log *logger.Logger) ConversationRepo {
	return &conversationRepo{db: db, log: log.With("repo", "ConversationRepo")}
}

func (r *conversationRepo) Create(dbc dbctx.Context, rows []*types.Conversation) ([]*types.Conversation, error) {
	if len(rows) == 0 {
		return []*types.Conversation{}, nil
	}
	if err := dbc.DB(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *conversationRepo) GetByBidID(dbc dbctx.Context, bidID uuid.UUID) (*types.Conversation, error) {
	if bidID == uuid.Nil {
		return nil, fmt.Errorf("missing bid_id")
	}
	var out []*types.Conversation
	if err := dbc.DB(r.db).Where("bid_id = ?", bidID).Limit(1).Find(&out).Error; err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out[0], nil
}

func (r *conversationRepo) ListByBidIDs(dbc dbctx.Context, bidIDs []uuid.UUID) ([]*types.Conversation, error) {
	if len(bidIDs) == 0 {
		return []*types.Conversation{}, nil
	}
	var out []*types.Conversation
	if err := dbc.DB(r.db).Where("bid_id IN ?", bidIDs).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *conversationRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return fmt.Errorf("missing conversation id")
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now().UTC()
	}
	return dbc.DB(r.db).Model(&types.Conversation{}).Where("id = ?", id).Updates(updates).Error
}

func (r *conversationRepo) CountOpenByAttorney(dbc dbctx.Context, attorneyProfileID uuid.UUID) (int, error) {
	var n int64
	if err := dbc.DB(r.db).Model(&types.Conversation{}).
		Where("attorney_profile_id = ? AND status = ?", attorneyProfileID, types.ConversationStatusOpen).
		Count(&n).Error; err != nil {
		return 0, err
	}
	return int(n), nil
}
