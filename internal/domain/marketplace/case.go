package marketplace

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	CaseStatusOpen      = "OPEN"
	CaseStatusMatching  = "MATCHING"
	CaseStatusClosed    = "CLOSED"
	CaseStatusCancelled = "CANCELLED"
)

const (
	UrgencyLow    = "LOW"
	UrgencyMedium = "MEDIUM"
	UrgencyHigh   = "HIGH"
	UrgencyUrgent = "URGENT"
)

const (
	FeeModeFixed       = "FIXED"
	FeeModeHourly      = "HOURLY"
	FeeModeContingency = "CONTINGENCY"
	FeeModeNegotiable  = "NEGOTIABLE"
)

// Case is a client's posted legal matter. SelectedBidID mirrors the single
// ACCEPTED bid and is only written inside the bid lifecycle transaction.
type Case struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	ClientUserID uuid.UUID `gorm:"type:uuid;column:client_user_id;not null;index" json:"client_user_id"`

	Title     string `gorm:"column:title;not null" json:"title"`
	Category  string `gorm:"column:category;not null;index" json:"category"`
	StateCode string `gorm:"column:state_code;not null;index" json:"state_code"`
	Zip       string `gorm:"column:zip" json:"zip,omitempty"`
	Urgency   string `gorm:"column:urgency;not null" json:"urgency"`
	Status    string `gorm:"column:status;not null;index" json:"status"`

	FeeMode       string     `gorm:"column:fee_mode" json:"fee_mode,omitempty"`
	BudgetMin     *int64     `gorm:"column:budget_min" json:"budget_min,omitempty"`
	BudgetMax     *int64     `gorm:"column:budget_max" json:"budget_max,omitempty"`
	QuoteDeadline *time.Time `gorm:"column:quote_deadline;index" json:"quote_deadline,omitempty"`

	SelectedBidID *uuid.UUID `gorm:"type:uuid;column:selected_bid_id;index" json:"selected_bid_id,omitempty"`
	SelectedAt    *time.Time `gorm:"column:selected_at" json:"selected_at,omitempty"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Case) TableName() string { return "case_posting" }

func (c *Case) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// IsQuoteable reports whether attorneys can still quote at now.
func (c *Case) IsQuoteable(now time.Time) bool {
	return c.QuoteDeadline == nil || c.QuoteDeadline.After(now)
}
