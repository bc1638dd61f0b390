package model

import (
	"time"

	"gorm.io/gorm"
)

// CREATE TABLE users (id text PRIMARY KEY, handle text NOT NULL UNIQUE, email text UNIQUE, ...)
type User struct {
	ID            string    `gorm:"primaryKey" json:"id"`
	Handle        string    `gorm:"uniqueIndex; not null" json:"handle"`
	Email         *string   `gorm:"uniqueIndex" json:"email,omitempty"`
	DisplayName   string    `json:"display_name"`
	Role          UserRole  `gorm:"not null; default:freelancer" json:"role"`
	Bio           string    `json:"bio"`
	AvatarUrl     string    `json:"avatar_url"`
	WalletAddress *string   `gorm:"index" json:"wallet_address,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (self *User) BeforeCreate(tx *gorm.DB) error {
	ensureId(&self.ID)
	if self.Role == "" {
		self.Role = UserRoleFreelancer
	}
	return nil
}

// Address is always stored lower case hex with 0x prefix
type Wallet struct {
	ID        string    `gorm:"primaryKey" json:"id"`
	UserID    string    `gorm:"index; not null" json:"user_id"`
	Address   string    `gorm:"uniqueIndex; not null" json:"address"`
	ChainID   int64     `gorm:"not null" json:"chain_id"`
	IsPrimary bool      `gorm:"not null; default:false" json:"is_primary"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Wallet) TableName() string {
	return "wallets"
}

func (self *Wallet) BeforeCreate(tx *gorm.DB) error {
	ensureId(&self.ID)
	return nil
}

// One-time nonce signed by a wallet to log in
type AuthNonce struct {
	Address   string    `gorm:"primaryKey"`
	Nonce     string    `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null"`
}

func (AuthNonce) TableName() string {
	return "auth_nonces"
}
