package marketplace

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	EngagementPendingAttorney = "PENDING_ATTORNEY"
	EngagementPendingClient   = "PENDING_CLIENT"
	EngagementActive          = "ACTIVE"
	EngagementCancelled       = "CANCELLED"
)

// EngagementPendingStatuses are the states that still await a party.
var EngagementPendingStatuses = []string{EngagementPendingAttorney, EngagementPendingClient}

// EngagementConfirmation records the pending agreement for a selected bid.
type EngagementConfirmation struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BidID             uuid.UUID `gorm:"type:uuid;column:bid_id;not null;uniqueIndex" json:"bid_id"`
	CaseID            uuid.UUID `gorm:"type:uuid;column:case_id;not null;index" json:"case_id"`
	AttorneyProfileID uuid.UUID `gorm:"type:uuid;column:attorney_profile_id;not null;index" json:"attorney_profile_id"`
	ClientUserID      uuid.UUID `gorm:"type:uuid;column:client_user_id;not null" json:"client_user_id"`
	Status            string    `gorm:"column:status;not null;index" json:"status"`

	FeeMode string `gorm:"column:fee_mode" json:"fee_mode,omitempty"`
	FeeMin  *int64 `gorm:"column:fee_min" json:"fee_min,omitempty"`
	FeeMax  *int64 `gorm:"column:fee_max" json:"fee_max,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (EngagementConfirmation) TableName() string { return "engagement_confirmation" }

func (e *EngagementConfirmation) BeforeCreate(*gorm.DB) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	return nil
}
