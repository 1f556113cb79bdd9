package marketplace

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	FeedKeyCaseHall    = "case_hall"
	FeedKeyOpsPriority = "ops_priority"
)

// RankingConfigRow stores an operator-authored config document per feed key.
type RankingConfigRow struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	FeedKey   string         `gorm:"column:feed_key;not null;uniqueIndex" json:"feed_key"`
	Document  datatypes.JSON `gorm:"column:document;not null" json:"document"`
	UpdatedBy string         `gorm:"column:updated_by" json:"updated_by,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (RankingConfigRow) TableName() string { return "ranking_config" }

func (r *RankingConfigRow) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}
