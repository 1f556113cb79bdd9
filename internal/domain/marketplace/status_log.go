package marketplace

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// CaseStatusLog is the append-only audit trail of case-level transitions.
type CaseStatusLog struct {
	ID          uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	CaseID      uuid.UUID  `gorm:"type:uuid;column:case_id;not null;index" json:"case_id"`
	BidID       *uuid.UUID `gorm:"type:uuid;column:bid_id" json:"bid_id,omitempty"`
	ActorUserID uuid.UUID  `gorm:"type:uuid;column:actor_user_id;not null" json:"actor_user_id"`
	FromStatus  string     `gorm:"column:from_status;not null" json:"from_status"`
	ToStatus    string     `gorm:"column:to_status;not null" json:"to_status"`
	Reason      string     `gorm:"column:reason;not null" json:"reason"`

	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (CaseStatusLog) TableName() string { return "case_status_log" }

func (l *CaseStatusLog) BeforeCreate(*gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	return nil
}
