package model

import (
	"time"

	"github.com/jackc/pgtype"
	"gorm.io/gorm"
)

const SingletonId = "default"

// Admin editable settings, single row keyed SingletonId
type SystemSettings struct {
	ID              string       `gorm:"primaryKey" json:"id"`
	PlatformFeeBps  uint16       `gorm:"not null" json:"platform_fee_bps"`
	RewardRateBps   uint16       `gorm:"not null" json:"reward_rate_bps"`
	ArbiterID       *string      `json:"arbiter_id,omitempty"`
	MaintenanceMode bool         `gorm:"not null; default:false" json:"maintenance_mode"`
	Extra           pgtype.JSONB `gorm:"type:jsonb" json:"extra"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

func (SystemSettings) TableName() string {
	return "system_settings"
}

// Bookkeeping of the background processes, single row keyed SingletonId
type SystemState struct {
	ID               string     `gorm:"primaryKey" json:"id"`
	LastExpiryRunAt  *time.Time `json:"last_expiry_run_at,omitempty"`
	LastReconcileAt  *time.Time `json:"last_reconcile_at,omitempty"`
	DivergencesFound int64      `gorm:"not null; default:0" json:"divergences_found"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

func (SystemState) TableName() string {
	return "system_states"
}

type ContactMessage struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"not null" json:"name"`
	Email     string    `gorm:"not null" json:"email"`
	Subject   string    `gorm:"not null" json:"subject"`
	Message   string    `gorm:"not null" json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

func (ContactMessage) TableName() string {
	return "contact_messages"
}

func (self *ContactMessage) BeforeCreate(tx *gorm.DB) error {
	ensureId(&self.ID)
	return nil
}
