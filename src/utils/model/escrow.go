package model

import (
	"time"

	"gorm.io/gorm"
)

// Mirror of the on-chain escrow. Contract is the source of truth, see the reconciler.
type Escrow struct {
	ID               string      `gorm:"primaryKey" json:"id"`
	JobID            string      `gorm:"index; not null" json:"job_id"`
	MilestoneID      string      `gorm:"uniqueIndex; not null" json:"milestone_id"`
	BuyerID          string      `gorm:"not null" json:"buyer_id"`
	SellerID         string      `gorm:"not null" json:"seller_id"`
	ArbiterID        string      `gorm:"not null" json:"arbiter_id"`
	ProxyAddress     string      `gorm:"uniqueIndex; not null" json:"proxy_address"`
	Amount           string      `gorm:"not null" json:"amount"`
	FeeBps           uint16      `gorm:"not null; default:0" json:"fee_bps"`
	CurrentState     EscrowState `gorm:"index; not null; default:Unfunded" json:"current_state"`
	LastReconciledAt *time.Time  `json:"last_reconciled_at,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`

	// Only declare the foreign keys, never loaded
	Job       *Job          `gorm:"constraint:OnDelete:RESTRICT" json:"-"`
	Milestone *JobMilestone `gorm:"foreignKey:MilestoneID; constraint:OnDelete:RESTRICT" json:"-"`
}

func (Escrow) TableName() string {
	return "escrows"
}

func (self *Escrow) BeforeCreate(tx *gorm.DB) error {
	ensureId(&self.ID)
	if self.CurrentState == "" {
		self.CurrentState = EscrowStateUnfunded
	}
	return nil
}

// Append-only log of the escrow's state changes. Unique per (escrow_id, tx_hash).
type EscrowStateHistory struct {
	ID          string        `gorm:"primaryKey" json:"id"`
	EscrowID    string        `gorm:"uniqueIndex:idx_escrow_state_history_tx; not null" json:"escrow_id"`
	FromState   EscrowState   `gorm:"not null" json:"from_state"`
	ToState     EscrowState   `gorm:"not null" json:"to_state"`
	TxHash      *string       `gorm:"uniqueIndex:idx_escrow_state_history_tx" json:"tx_hash,omitempty"`
	ActorUserID *string       `json:"actor_user_id,omitempty"`
	Source      HistorySource `gorm:"not null" json:"source"`
	CreatedAt   time.Time     `json:"created_at"`
}

func (EscrowStateHistory) TableName() string {
	return "escrow_state_history"
}

func (self *EscrowStateHistory) BeforeCreate(tx *gorm.DB) error {
	ensureId(&self.ID)
	return nil
}

// Transaction sent by the platform signer. Row is written before broadcast.
type ChainTx struct {
	ID          string        `gorm:"primaryKey" json:"id"`
	TxHash      string        `gorm:"uniqueIndex; not null" json:"tx_hash"`
	EscrowID    *string       `gorm:"index" json:"escrow_id,omitempty"`
	UserID      *string       `gorm:"index" json:"user_id,omitempty"`
	Kind        ChainTxKind   `gorm:"not null" json:"kind"`
	Status      ChainTxStatus `gorm:"index; not null; default:pending" json:"status"`
	TargetState *EscrowState  `json:"target_state,omitempty"`
	BlockNumber *uint64       `json:"block_number,omitempty"`
	Error       string        `json:"error,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func (ChainTx) TableName() string {
	return "chain_txs"
}

func (self *ChainTx) BeforeCreate(tx *gorm.DB) error {
	ensureId(&self.ID)
	if self.Status == "" {
		self.Status = ChainTxStatusPending
	}
	return nil
}

// Payload of the escrow_state_changed notification sent by the escrows trigger
type EscrowStateChange struct {
	EscrowID    string      `json:"escrow_id"`
	JobID       string      `json:"job_id"`
	MilestoneID string      `json:"milestone_id"`
	BuyerID     string      `json:"buyer_id"`
	SellerID    string      `json:"seller_id"`
	FromState   EscrowState `json:"from_state"`
	ToState     EscrowState `json:"to_state"`
}
