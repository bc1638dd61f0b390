package model

import (
	"time"

	"gorm.io/gorm"
)

type Job struct {
	ID            string      `gorm:"primaryKey" json:"id"`
	ClientID      string      `gorm:"index; not null" json:"client_id"`
	Title         string      `gorm:"not null" json:"title"`
	DescriptionMd string      `gorm:"not null" json:"description_md"`
	Status        JobStatus   `gorm:"index; not null; default:open" json:"status"`
	BudgetMin     *float64    `json:"budget_min,omitempty"`
	BudgetMax     *float64    `json:"budget_max,omitempty"`
	Currency      string      `gorm:"not null; default:USD" json:"currency"`
	Skills        StringArray `json:"skills"`
	DeadlineAt    *time.Time  `gorm:"index" json:"deadline_at,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

func (Job) TableName() string {
	return "jobs"
}

func (self *Job) BeforeCreate(tx *gorm.DB) error {
	ensureId(&self.ID)
	if self.Status == "" {
		self.Status = JobStatusOpen
	}
	if self.Currency == "" {
		self.Currency = "USD"
	}
	return nil
}

// Amount is a decimal string in the token's smallest unit
type JobMilestone struct {
	ID            string          `gorm:"primaryKey" json:"id"`
	JobID         string          `gorm:"uniqueIndex:idx_job_milestones_order; not null" json:"job_id"`
	FreelancerID  string          `gorm:"index; not null" json:"freelancer_id"`
	Title         string          `gorm:"not null" json:"title"`
	Amount        string          `gorm:"not null" json:"amount"`
	Status        MilestoneStatus `gorm:"not null; default:pending" json:"status"`
	EscrowAddress *string         `json:"escrow_address,omitempty"`
	OrderIndex    int             `gorm:"uniqueIndex:idx_job_milestones_order; not null" json:"order_index"`
	DueAt         *time.Time      `json:"due_at,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

func (JobMilestone) TableName() string {
	return "job_milestones"
}

func (self *JobMilestone) BeforeCreate(tx *gorm.DB) error {
	ensureId(&self.ID)
	if self.Status == "" {
		self.Status = MilestoneStatusPending
	}
	return nil
}

type JobBid struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	JobID        string    `gorm:"uniqueIndex:idx_job_bids_pair; not null" json:"job_id"`
	FreelancerID string    `gorm:"uniqueIndex:idx_job_bids_pair; not null" json:"freelancer_id"`
	Amount       *string   `json:"amount,omitempty"`
	CoverLetter  string    `json:"cover_letter"`
	Status       BidStatus `gorm:"not null; default:pending" json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (JobBid) TableName() string {
	return "job_bids"
}

func (self *JobBid) BeforeCreate(tx *gorm.DB) error {
	ensureId(&self.ID)
	if self.Status == "" {
		self.Status = BidStatusPending
	}
	return nil
}

type JobApplication struct {
	ID             string            `gorm:"primaryKey" json:"id"`
	JobID          string            `gorm:"uniqueIndex:idx_job_applications_pair; not null" json:"job_id"`
	FreelancerID   string            `gorm:"uniqueIndex:idx_job_applications_pair; not null" json:"freelancer_id"`
	CoverLetter    string            `json:"cover_letter"`
	ProposedAmount *string           `json:"proposed_amount,omitempty"`
	Status         ApplicationStatus `gorm:"not null; default:pending" json:"status"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

func (JobApplication) TableName() string {
	return "job_applications"
}

func (self *JobApplication) BeforeCreate(tx *gorm.DB) error {
	ensureId(&self.ID)
	if self.Status == "" {
		self.Status = ApplicationStatusPending
	}
	return nil
}

type Gig struct {
	ID            string      `gorm:"primaryKey" json:"id"`
	FreelancerID  string      `gorm:"index; not null" json:"freelancer_id"`
	Title         string      `gorm:"not null" json:"title"`
	DescriptionMd string      `json:"description_md"`
	Price         string      `gorm:"not null" json:"price"`
	DeliveryDays  int         `gorm:"not null; default:1" json:"delivery_days"`
	Tags          StringArray `json:"tags"`
	Status        GigStatus   `gorm:"index; not null; default:active" json:"status"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

func (Gig) TableName() string {
	return "gigs"
}

func (self *Gig) BeforeCreate(tx *gorm.DB) error {
	ensureId(&self.ID)
	if self.Status == "" {
		self.Status = GigStatusActive
	}
	return nil
}
