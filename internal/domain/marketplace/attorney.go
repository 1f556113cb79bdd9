package marketplace

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AttorneyProfile is owned by the profile service; this core only reads it.
type AttorneyProfile struct {
	ID            uuid.UUID                   `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID                   `gorm:"type:uuid;column:user_id;not null;uniqueIndex" json:"user_id"`
	DisplayName   string                      `gorm:"column:display_name" json:"display_name"`
	Specialties   datatypes.JSONSlice[string] `gorm:"column:specialties" json:"specialties"`
	ServiceStates datatypes.JSONSlice[string] `gorm:"column:service_states" json:"service_states"`
	Zip           string                      `gorm:"column:zip" json:"zip,omitempty"`

	CreatedAt time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null" json:"updated_at"`
}

func (AttorneyProfile) TableName() string { return "attorney_profile" }

func (p *AttorneyProfile) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
