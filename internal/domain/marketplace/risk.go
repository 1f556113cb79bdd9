package marketplace

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Risk tables are written by the trust & safety rule engine.

type CaseRuleHit struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CaseID    uuid.UUID `gorm:"type:uuid;column:case_id;not null;index" json:"case_id"`
	RuleKey   string    `gorm:"column:rule_key;not null" json:"rule_key"`
	Severity  string    `gorm:"column:severity" json:"severity,omitempty"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (CaseRuleHit) TableName() string { return "case_rule_hit" }

func (h *CaseRuleHit) BeforeCreate(*gorm.DB) error {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	return nil
}

type CaseReport struct {
	ID             uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CaseID         uuid.UUID `gorm:"type:uuid;column:case_id;not null;index" json:"case_id"`
	ReporterUserID uuid.UUID `gorm:"type:uuid;column:reporter_user_id;not null" json:"reporter_user_id"`
	Reason         string    `gorm:"column:reason" json:"reason,omitempty"`
	CreatedAt      time.Time `gorm:"not null" json:"created_at"`
}

func (CaseReport) TableName() string { return "case_report" }

func (r *CaseReport) BeforeCreate(*gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

type CaseDispute struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CaseID    uuid.UUID `gorm:"type:uuid;column:case_id;not null;index" json:"case_id"`
	Status    string    `gorm:"column:status;not null" json:"status"`
	CreatedAt time.Time `gorm:"not null" json:"created_at"`
}

func (CaseDispute) TableName() string { return "case_dispute" }

func (d *CaseDispute) BeforeCreate(*gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// RiskCounts aggregates the three signal tables for one case.
type RiskCounts struct {
	RuleHits int
	Reports  int
	Disputes int
}
