package model

import (
	"database/sql/driver"
	"fmt"
)

func scanString(value interface{}) (string, error) {
	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	case nil:
		return "", nil
	default:
		return "", fmt.Errorf("unsupported enum value type: %T", value)
	}
}

// CREATE TYPE user_role AS ENUM ('client', 'freelancer', 'admin');
type UserRole string

const (
	UserRoleClient     UserRole = "client"
	UserRoleFreelancer UserRole = "freelancer"
	UserRoleAdmin      UserRole = "admin"
)

func (self *UserRole) Scan(value interface{}) error {
	s, err := scanString(value)
	*self = UserRole(s)
	return err
}

func (self UserRole) Value() (driver.Value, error) {
	return string(self), nil
}

// CREATE TYPE job_status AS ENUM ('draft', 'open', 'in_review', 'in_progress', 'completed', 'cancelled', 'disputed');
type JobStatus string

const (
	JobStatusDraft      JobStatus = "draft"
	JobStatusOpen       JobStatus = "open"
	JobStatusInReview   JobStatus = "in_review"
	JobStatusInProgress JobStatus = "in_progress"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusCancelled  JobStatus = "cancelled"
	JobStatusDisputed   JobStatus = "disputed"
)

func (self *JobStatus) Scan(value interface{}) error {
	s, err := scanString(value)
	*self = JobStatus(s)
	return err
}

func (self JobStatus) Value() (driver.Value, error) {
	return string(self), nil
}

// CREATE TYPE milestone_status AS ENUM ('pending', 'in_progress', 'submitted', 'approved', 'paid', 'disputed', 'cancelled', 'refunded');
type MilestoneStatus string

const (
	MilestoneStatusPending    MilestoneStatus = "pending"
	MilestoneStatusInProgress MilestoneStatus = "in_progress"
	MilestoneStatusSubmitted  MilestoneStatus = "submitted"
	MilestoneStatusApproved   MilestoneStatus = "approved"
	MilestoneStatusPaid       MilestoneStatus = "paid"
	MilestoneStatusDisputed   MilestoneStatus = "disputed"
	MilestoneStatusCancelled  MilestoneStatus = "cancelled"
	MilestoneStatusRefunded   MilestoneStatus = "refunded"
)

func (self *MilestoneStatus) Scan(value interface{}) error {
	s, err := scanString(value)
	*self = MilestoneStatus(s)
	return err
}

func (self MilestoneStatus) Value() (driver.Value, error) {
	return string(self), nil
}

// CREATE TYPE bid_status AS ENUM ('pending', 'accepted', 'rejected', 'withdrawn');
type BidStatus string

const (
	BidStatusPending   BidStatus = "pending"
	BidStatusAccepted  BidStatus = "accepted"
	BidStatusRejected  BidStatus = "rejected"
	BidStatusWithdrawn BidStatus = "withdrawn"
)

func (self *BidStatus) Scan(value interface{}) error {
	s, err := scanString(value)
	*self = BidStatus(s)
	return err
}

func (self BidStatus) Value() (driver.Value, error) {
	return string(self), nil
}

// CREATE TYPE application_status AS ENUM ('pending', 'shortlisted', 'accepted', 'rejected', 'withdrawn');
type ApplicationStatus string

const (
	ApplicationStatusPending     ApplicationStatus = "pending"
	ApplicationStatusShortlisted ApplicationStatus = "shortlisted"
	ApplicationStatusAccepted    ApplicationStatus = "accepted"
	ApplicationStatusRejected    ApplicationStatus = "rejected"
	ApplicationStatusWithdrawn   ApplicationStatus = "withdrawn"
)

func (self *ApplicationStatus) Scan(value interface{}) error {
	s, err := scanString(value)
	*self = ApplicationStatus(s)
	return err
}

func (self ApplicationStatus) Value() (driver.Value, error) {
	return string(self), nil
}

// CREATE TYPE gig_status AS ENUM ('active', 'paused', 'archived');
type GigStatus string

const (
	GigStatusActive   GigStatus = "active"
	GigStatusPaused   GigStatus = "paused"
	GigStatusArchived GigStatus = "archived"
)

func (self *GigStatus) Scan(value interface{}) error {
	s, err := scanString(value)
	*self = GigStatus(s)
	return err
}

func (self GigStatus) Value() (driver.Value, error) {
	return string(self), nil
}

// CREATE TYPE escrow_state AS ENUM ('Unfunded', 'Funded', 'Delivered', 'Disputed', 'Releasable', 'Paid', 'Refunded');
// Order matches the contract's State enum.
type EscrowState string

const (
	EscrowStateUnfunded   EscrowState = "Unfunded"
	EscrowStateFunded     EscrowState = "Funded"
	EscrowStateDelivered  EscrowState = "Delivered"
	EscrowStateDisputed   EscrowState = "Disputed"
	EscrowStateReleasable EscrowState = "Releasable"
	EscrowStatePaid       EscrowState = "Paid"
	EscrowStateRefunded   EscrowState = "Refunded"
)

var escrowStates = []EscrowState{
	EscrowStateUnfunded,
	EscrowStateFunded,
	EscrowStateDelivered,
	EscrowStateDisputed,
	EscrowStateReleasable,
	EscrowStatePaid,
	EscrowStateRefunded,
}

// Maps the contract's uint8 state to the enum
func EscrowStateFromUint8(v uint8) (EscrowState, error) {
	if int(v) >= len(escrowStates) {
		return "", fmt.Errorf("unknown escrow state: %d", v)
	}
	return escrowStates[v], nil
}

func (self EscrowState) IsValid() bool {
	for _, s := range escrowStates {
		if s == self {
			return true
		}
	}
	return false
}

func (self EscrowState) IsTerminal() bool {
	return self == EscrowStatePaid || self == EscrowStateRefunded
}

func (self *EscrowState) Scan(value interface{}) error {
	s, err := scanString(value)
	*self = EscrowState(s)
	return err
}

func (self EscrowState) Value() (driver.Value, error) {
	return string(self), nil
}

// CREATE TYPE history_source AS ENUM ('tx', 'manual', 'reconcile');
type HistorySource string

const (
	HistorySourceTx        HistorySource = "tx"
	HistorySourceManual    HistorySource = "manual"
	HistorySourceReconcile HistorySource = "reconcile"
)

func (self *HistorySource) Scan(value interface{}) error {
	s, err := scanString(value)
	*self = HistorySource(s)
	return err
}

func (self HistorySource) Value() (driver.Value, error) {
	return string(self), nil
}

// CREATE TYPE chain_tx_kind AS ENUM ('deploy', 'fund', 'deliver', 'approve', 'withdraw', 'dispute', 'resolve', 'cancel', 'reward', 'other');
type ChainTxKind string

const (
	ChainTxKindDeploy   ChainTxKind = "deploy"
	ChainTxKindFund     ChainTxKind = "fund"
	ChainTxKindDeliver  ChainTxKind = "deliver"
	ChainTxKindApprove  ChainTxKind = "approve"
	ChainTxKindWithdraw ChainTxKind = "withdraw"
	ChainTxKindDispute  ChainTxKind = "dispute"
	ChainTxKindResolve  ChainTxKind = "resolve"
	ChainTxKindCancel   ChainTxKind = "cancel"
	ChainTxKindReward   ChainTxKind = "reward"
	ChainTxKindOther    ChainTxKind = "other"
)

func (self ChainTxKind) IsValid() bool {
	switch self {
	case ChainTxKindDeploy, ChainTxKindFund, ChainTxKindDeliver, ChainTxKindApprove, ChainTxKindWithdraw,
		ChainTxKindDispute, ChainTxKindResolve, ChainTxKindCancel, ChainTxKindReward, ChainTxKindOther:
		return true
	}
	return false
}

func (self *ChainTxKind) Scan(value interface{}) error {
	s, err := scanString(value)
	*self = ChainTxKind(s)
	return err
}

func (self ChainTxKind) Value() (driver.Value, error) {
	return string(self), nil
}

// CREATE TYPE chain_tx_status AS ENUM ('pending', 'confirmed', 'failed');
type ChainTxStatus string

const (
	ChainTxStatusPending   ChainTxStatus = "pending"
	ChainTxStatusConfirmed ChainTxStatus = "confirmed"
	ChainTxStatusFailed    ChainTxStatus = "failed"
)

func (self *ChainTxStatus) Scan(value interface{}) error {
	s, err := scanString(value)
	*self = ChainTxStatus(s)
	return err
}

func (self ChainTxStatus) Value() (driver.Value, error) {
	return string(self), nil
}

// CREATE TYPE message_kind AS ENUM ('text', 'image', 'file', 'system');
type MessageKind string

const (
	MessageKindText   MessageKind = "text"
	MessageKindImage  MessageKind = "image"
	MessageKindFile   MessageKind = "file"
	MessageKindSystem MessageKind = "system"
)

func (self *MessageKind) Scan(value interface{}) error {
	s, err := scanString(value)
	*self = MessageKind(s)
	return err
}

func (self MessageKind) Value() (driver.Value, error) {
	return string(self), nil
}

// CREATE TYPE receipt_state AS ENUM ('sent', 'delivered', 'read');
type ReceiptState string

const (
	ReceiptStateSent      ReceiptState = "sent"
	ReceiptStateDelivered ReceiptState = "delivered"
	ReceiptStateRead      ReceiptState = "read"
)

func (self *ReceiptState) Scan(value interface{}) error {
	s, err := scanString(value)
	*self = ReceiptState(s)
	return err
}

func (self ReceiptState) Value() (driver.Value, error) {
	return string(self), nil
}

// CREATE TYPE notification_type AS ENUM (...);
type NotificationType string

const (
	NotificationTypeJobStatusChanged    NotificationType = "JOB_STATUS_CHANGED"
	NotificationTypeJobExpiringSoon     NotificationType = "JOB_EXPIRING_SOON"
	NotificationTypeNewBid              NotificationType = "NEW_BID"
	NotificationTypeBidAccepted         NotificationType = "BID_ACCEPTED"
	NotificationTypeBidRejected         NotificationType = "BID_REJECTED"
	NotificationTypeNewApplication      NotificationType = "NEW_APPLICATION"
	NotificationTypeApplicationAccepted NotificationType = "APPLICATION_ACCEPTED"
	NotificationTypeApplicationRejected NotificationType = "APPLICATION_REJECTED"
	NotificationTypeMilestoneUpdated    NotificationType = "MILESTONE_UPDATED"
	NotificationTypeEscrowStateChanged  NotificationType = "ESCROW_STATE_CHANGED"
	NotificationTypeNewMessage          NotificationType = "NEW_MESSAGE"
	NotificationTypeGigUpdated          NotificationType = "GIG_UPDATED"
	NotificationTypeAccountUpdated      NotificationType = "ACCOUNT_UPDATED"
	NotificationTypeSystem              NotificationType = "SYSTEM"
)

func (self *NotificationType) Scan(value interface{}) error {
	s, err := scanString(value)
	*self = NotificationType(s)
	return err
}

func (self NotificationType) Value() (driver.Value, error) {
	return string(self), nil
}

// CREATE TYPE outbox_channel AS ENUM ('socket', 'email');
type OutboxChannel string

const (
	OutboxChannelSocket OutboxChannel = "socket"
	OutboxChannelEmail  OutboxChannel = "email"
)

func (self *OutboxChannel) Scan(value interface{}) error {
	s, err := scanString(value)
	*self = OutboxChannel(s)
	return err
}

func (self OutboxChannel) Value() (driver.Value, error) {
	return string(self), nil
}

// CREATE TYPE outbox_status AS ENUM ('pending', 'processing', 'delivered', 'failed');
type OutboxStatus string

const (
	OutboxStatusPending    OutboxStatus = "pending"
	OutboxStatusProcessing OutboxStatus = "processing"
	OutboxStatusDelivered  OutboxStatus = "delivered"
	OutboxStatusFailed     OutboxStatus = "failed"
)

func (self *OutboxStatus) Scan(value interface{}) error {
	s, err := scanString(value)
	*self = OutboxStatus(s)
	return err
}

func (self OutboxStatus) Value() (driver.Value, error) {
	return string(self), nil
}
