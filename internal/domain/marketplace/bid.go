package marketplace

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	BidStatusPending   = "PENDING"
	BidStatusAccepted  = "ACCEPTED"
	BidStatusRejected  = "REJECTED"
	BidStatusWithdrawn = "WITHDRAWN"
)

// Bid is an attorney's quote on a case. One per (case, attorney).
type Bid struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CaseID            uuid.UUID `gorm:"type:uuid;column:case_id;not null;uniqueIndex:idx_bid_case_attorney;index" json:"case_id"`
	AttorneyProfileID uuid.UUID `gorm:"type:uuid;column:attorney_profile_id;not null;uniqueIndex:idx_bid_case_attorney;index" json:"attorney_profile_id"`

	Status  string `gorm:"column:status;not null;index" json:"status"`
	Version int    `gorm:"column:version;not null" json:"version"`

	FeeMode      string `gorm:"column:fee_mode" json:"fee_mode,omitempty"`
	FeeMin       *int64 `gorm:"column:fee_min" json:"fee_min,omitempty"`
	FeeMax       *int64 `gorm:"column:fee_max" json:"fee_max,omitempty"`
	ServiceScope string `gorm:"column:service_scope" json:"service_scope,omitempty"`
	Message      string `gorm:"column:message" json:"message,omitempty"`

	ContactedAt time.Time `gorm:"column:contacted_at;not null" json:"contacted_at"`
	CreatedAt   time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (Bid) TableName() string { return "bid" }

func (b *Bid) BeforeCreate(*gorm.DB) error {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	return nil
}

// BidVersion is the append-only history of bid transitions.
type BidVersion struct {
	ID       uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	BidID    uuid.UUID      `gorm:"type:uuid;column:bid_id;not null;uniqueIndex:idx_bid_version_bid_version" json:"bid_id"`
	Version  int            `gorm:"column:version;not null;uniqueIndex:idx_bid_version_bid_version" json:"version"`
	Status   string         `gorm:"column:status;not null" json:"status"`
	Reason   string         `gorm:"column:reason" json:"reason,omitempty"`
	Snapshot datatypes.JSON `gorm:"column:snapshot" json:"snapshot,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (BidVersion) TableName() string { return "bid_version" }

func (v *BidVersion) BeforeCreate(*gorm.DB) error {
	if v.ID == uuid.Nil {
		v.ID = uuid.New()
	}
	return nil
}
