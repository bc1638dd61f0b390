package model

import (
	"time"

	"gorm.io/gorm"
)

type Conversation struct {
	ID            string     `gorm:"primaryKey" json:"id"`
	ClientID      string     `gorm:"uniqueIndex:idx_conversations_pair; not null" json:"client_id"`
	FreelancerID  string     `gorm:"uniqueIndex:idx_conversations_pair; not null" json:"freelancer_id"`
	JobID         *string    `json:"job_id,omitempty"`
	LastMessageAt *time.Time `json:"last_message_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

func (Conversation) TableName() string {
	return "conversations"
}

func (self *Conversation) BeforeCreate(tx *gorm.DB) error {
	ensureId(&self.ID)
	return nil
}

func (self *Conversation) HasParticipant(userId string) bool {
	return self.ClientID == userId || self.FreelancerID == userId
}

// Participant other than the given one
func (self *Conversation) Counterpart(userId string) string {
	if self.ClientID == userId {
		return self.FreelancerID
	}
	return self.ClientID
}

type Message struct {
	ID             string           `gorm:"primaryKey" json:"id"`
	ConversationID string           `gorm:"index; not null" json:"conversation_id"`
	SenderID       string           `gorm:"not null" json:"sender_id"`
	Body           string           `gorm:"not null" json:"body"`
	Kind           MessageKind      `gorm:"not null; default:text" json:"kind"`
	AttachmentUrl  *string          `json:"attachment_url,omitempty"`
	Receipts       []MessageReceipt `gorm:"foreignKey:MessageID" json:"receipts,omitempty"`
	CreatedAt      time.Time        `gorm:"index" json:"created_at"`
}

func (Message) TableName() string {
	return "messages"
}

func (self *Message) BeforeCreate(tx *gorm.DB) error {
	ensureId(&self.ID)
	if self.Kind == "" {
		self.Kind = MessageKindText
	}
	return nil
}

// Per recipient state of a message: sent -> delivered -> read
type MessageReceipt struct {
	ID          string       `gorm:"primaryKey" json:"id"`
	MessageID   string       `gorm:"uniqueIndex:idx_message_receipts_pair; not null" json:"message_id"`
	UserID      string       `gorm:"uniqueIndex:idx_message_receipts_pair; not null" json:"user_id"`
	State       ReceiptState `gorm:"not null; default:sent" json:"state"`
	DeliveredAt *time.Time   `json:"delivered_at,omitempty"`
	ReadAt      *time.Time   `json:"read_at,omitempty"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

func (MessageReceipt) TableName() string {
	return "message_receipts"
}

func (self *MessageReceipt) BeforeCreate(tx *gorm.DB) error {
	ensureId(&self.ID)
	if self.State == "" {
		self.State = ReceiptStateSent
	}
	return nil
}
