package marketplace

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	ConversationStatusOpen   = "OPEN"
	ConversationStatusClosed = "CLOSED"
)

// Conversation is the client/attorney thread opened for a selected bid.
// Message storage belongs to the messaging service; only timing is mirrored here.
type Conversation struct {
	ID                uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	BidID             uuid.UUID `gorm:"type:uuid;column:bid_id;not null;uniqueIndex" json:"bid_id"`
	CaseID            uuid.UUID `gorm:"type:uuid;column:case_id;not null;index" json:"case_id"`
	ClientUserID      uuid.UUID `gorm:"type:uuid;column:client_user_id;not null" json:"client_user_id"`
	AttorneyProfileID uuid.UUID `gorm:"type:uuid;column:attorney_profile_id;not null;index" json:"attorney_profile_id"`
	Status            string    `gorm:"column:status;not null;index" json:"status"`

	FirstAttorneyMessageAt *time.Time `gorm:"column:first_attorney_message_at" json:"first_attorney_message_at,omitempty"`
	LastMessageAt          *time.Time `gorm:"column:last_message_at" json:"last_message_at,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (Conversation) TableName() string { return "conversation" }

func (c *Conversation) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
