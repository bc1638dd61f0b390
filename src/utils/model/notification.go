package model

import (
	"time"

	"github.com/jackc/pgtype"
	"gorm.io/gorm"
)

// CREATE UNIQUE INDEX idx_notifications_expiring ON notifications (user_id, entity_id) WHERE type = 'JOB_EXPIRING_SOON'
type Notification struct {
	ID         string           `gorm:"primaryKey" json:"id"`
	UserID     string           `gorm:"index; uniqueIndex:idx_notifications_expiring,where:type = 'JOB_EXPIRING_SOON'; not null" json:"user_id"`
	Type       NotificationType `gorm:"index; not null" json:"type"`
	EntityType string           `gorm:"not null" json:"entity_type"`
	EntityID   string           `gorm:"index; uniqueIndex:idx_notifications_expiring,where:type = 'JOB_EXPIRING_SOON'; not null" json:"entity_id"`
	Title      string           `gorm:"not null" json:"title"`
	Body       string           `gorm:"not null" json:"body"`
	ActionUrl  string           `json:"action_url"`
	Metadata   pgtype.JSONB     `gorm:"type:jsonb" json:"metadata"`
	ReadAt     *time.Time       `json:"read_at,omitempty"`
	CreatedAt  time.Time        `gorm:"index" json:"created_at"`
}

func (Notification) TableName() string {
	return "notifications"
}

func (self *Notification) BeforeCreate(tx *gorm.DB) error {
	ensureId(&self.ID)
	if self.Metadata.Status != pgtype.Present {
		self.Metadata = pgtype.JSONB{Bytes: []byte("{}"), Status: pgtype.Present}
	}
	return nil
}

// Side effect waiting for delivery. Written in the same transaction as the row that caused it.
type OutboxMessage struct {
	ID                  uint64        `gorm:"primaryKey; autoIncrement" json:"id"`
	NotificationID      *string       `gorm:"index" json:"notification_id,omitempty"`
	Channel             OutboxChannel `gorm:"not null" json:"channel"`
	Destination         string        `gorm:"not null" json:"destination"`
	Event               string        `gorm:"not null" json:"event"`
	Payload             pgtype.JSONB  `gorm:"type:jsonb" json:"payload"`
	Status              OutboxStatus  `gorm:"index:idx_outbox_due,priority:1; not null; default:pending" json:"status"`
	Attempts            int           `gorm:"not null; default:0" json:"attempts"`
	MaxAttempts         int           `gorm:"not null" json:"max_attempts"`
	NextAttemptAt       time.Time     `gorm:"index:idx_outbox_due,priority:2; not null" json:"next_attempt_at"`
	LastError           string        `json:"last_error,omitempty"`
	ProcessingStartedAt *time.Time    `json:"processing_started_at,omitempty"`
	DeliveredAt         *time.Time    `json:"delivered_at,omitempty"`
	CreatedAt           time.Time     `json:"created_at"`
	UpdatedAt           time.Time     `json:"updated_at"`
}

func (OutboxMessage) TableName() string {
	return "outbox"
}

func (self *OutboxMessage) BeforeCreate(tx *gorm.DB) error {
	if self.Status == "" {
		self.Status = OutboxStatusPending
	}
	if self.NextAttemptAt.IsZero() {
		self.NextAttemptAt = tx.NowFunc()
	}
	if self.Payload.Status != pgtype.Present {
		self.Payload = pgtype.JSONB{Bytes: []byte("null"), Status: pgtype.Present}
	}
	return nil
}
