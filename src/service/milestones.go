package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/warp-contracts/marketplace/src/utils/apperr"
	"github.com/warp-contracts/marketplace/src/utils/config"
	"github.com/warp-contracts/marketplace/src/utils/eth"
	"github.com/warp-contracts/marketplace/src/utils/fsm"
	"github.com/warp-contracts/marketplace/src/utils/model"
	"gorm.io/gorm"
)

type MilestoneInput struct {
	JobID        string     `json:"job_id" binding:"required"`
	FreelancerID string     `json:"freelancer_id" binding:"required"`
	Title        string     `json:"title" binding:"required,max=200"`
	Amount       string     `json:"amount" binding:"required,numeric"`
	OrderIndex   *int       `json:"order_index" binding:"omitempty,gte=0"`
	DueAt        *time.Time `json:"due_at"`
}

type MilestoneUpdate struct {
	Title  *string    `json:"title" binding:"omitempty,max=200"`
	Amount *string    `json:"amount" binding:"omitempty,numeric"`
	DueAt  *time.Time `json:"due_at"`
}

type Milestones struct {
	base
	notifications *Notifications
}

func NewMilestones(config *config.Config, db *gorm.DB, table *fsm.Table, notifications *Notifications) (self *Milestones) {
	self = new(Milestones)
	self.base = newBase(config, db, table, "job milestone")
	self.notifications = notifications
	return
}

func (self *Milestones) Create(ctx context.Context, in *MilestoneInput) (out *model.JobMilestone, err error) {
	defer self.wrap(&err)

	err = self.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		out, err = self.create(ctx, tx, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return
}

// Order index defaults to the next free one
func (self *Milestones) create(ctx context.Context, tx *gorm.DB, in *MilestoneInput) (out *model.JobMilestone, err error) {
	amount, err := eth.ParseAmount(in.Amount)
	if err != nil {
		return nil, apperr.Validation(err)
	}

	err = exists[model.Job](ctx, tx, "job", in.JobID)
	if err != nil {
		return
	}
	err = exists[model.User](ctx, tx, "user", in.FreelancerID)
	if err != nil {
		return
	}

	var orderIndex int
	if in.OrderIndex != nil {
		orderIndex = *in.OrderIndex
	} else {
		var max sql.NullInt64
		err = tx.Model(&model.JobMilestone{}).
			Where("job_id = ?", in.JobID).
			Select("MAX(order_index)").
			Row().
			Scan(&max)
		if err != nil {
			return
		}
		if max.Valid {
			orderIndex = int(max.Int64) + 1
		}
	}

	out = &model.JobMilestone{
		JobID:        in.JobID,
		FreelancerID: in.FreelancerID,
		Title:        in.Title,
		Amount:       amount.String(),
		OrderIndex:   orderIndex,
		DueAt:        in.DueAt,
	}
	err = tx.Create(out).Error
	if err != nil {
		if model.IsUniqueViolation(err) {
			return nil, apperr.AlreadyExists("job milestone")
		}
		return nil, err
	}
	return
}

func (self *Milestones) Get(ctx context.Context, id string) (out *model.JobMilestone, err error) {
	defer self.wrap(&err)
	return first[model.JobMilestone](ctx, self.db, "job milestone", id)
}

func (self *Milestones) ListByJob(ctx context.Context, jobId string) (out []*model.JobMilestone, err error) {
	defer self.wrap(&err)

	err = self.db.WithContext(ctx).
		Where("job_id = ?", jobId).
		Order("order_index ASC").
		Find(&out).
		Error
	return
}

// Amount can't change once an escrow is attached
func (self *Milestones) Update(ctx context.Context, id string, in *MilestoneUpdate) (out *model.JobMilestone, err error) {
	defer self.wrap(&err)

	err = self.db.WithContext(ctx).Transaction(func(tx *gorm.DB) (err error) {
		out, err = lockFirst[model.JobMilestone](ctx, tx, "job milestone", id)
		if err != nil {
			return
		}

		if out.Status != model.MilestoneStatusPending && out.Status != model.MilestoneStatusInProgress {
			return notEditable("job milestone", string(out.Status))
		}

		if in.Title != nil {
			out.Title = *in.Title
		}
		if in.Amount != nil {
			if out.EscrowAddress != nil {
				return apperr.BadRequest("ESCROW_ALREADY_EXISTS", "amount is locked by the escrow")
			}
			amount, err := eth.ParseAmount(*in.Amount)
			if err != nil {
				return apperr.Validation(err)
			}
			out.Amount = amount.String()
		}
		if in.DueAt != nil {
			out.DueAt = in.DueAt
		}

		return tx.Save(out).Error
	})
	if err != nil {
		return nil, err
	}
	return
}

func (self *Milestones) UpdateStatus(ctx context.Context, id string, status model.MilestoneStatus) (out *model.JobMilestone, err error) {
	defer self.wrap(&err)

	err = self.db.WithContext(ctx).Transaction(func(tx *gorm.DB) (err error) {
		out, err = lockFirst[model.JobMilestone](ctx, tx, "job milestone", id)
		if err != nil {
			return
		}

		noop, err := fsm.Check(self.fsm, fsm.EntityMilestone, out.Status, status)
		if err != nil || noop {
			return
		}

		err = tx.Model(out).Update("status", status).Error
		if err != nil {
			return
		}
		out.Status = status

		return self.notify(ctx, tx, out)
	})
	if err != nil {
		return nil, err
	}
	return
}

// Both sides of the milestone hear about the change
func (self *Milestones) notify(ctx context.Context, tx *gorm.DB, milestone *model.JobMilestone) (err error) {
	job, err := first[model.Job](ctx, tx, "job", milestone.JobID)
	if err != nil {
		return
	}

	for _, userId := range []string{job.ClientID, milestone.FreelancerID} {
		_, err = self.notifications.Create(ctx, tx, &NotificationInput{
			UserID: userId,
			Type:   model.NotificationTypeMilestoneUpdated,
			Target: MilestoneTarget{JobID: job.ID, MilestoneID: milestone.ID},
			Title:  "Milestone updated",
			Body:   fmt.Sprintf("Milestone \"%s\" of \"%s\" is now %s", milestone.Title, job.Title, milestone.Status),
		})
		if err != nil {
			return
		}
	}
	return
}

func (self *Milestones) AttachEscrow(ctx context.Context, tx *gorm.DB, id, address string) (out *model.JobMilestone, err error) {
	defer self.wrap(&err)

	address, err = eth.NormalizeAddress(address)
	if err != nil {
		return nil, apperr.Validation(err)
	}

	err = self.inTx(ctx, tx, func(tx *gorm.DB) (err error) {
		out, err = lockFirst[model.JobMilestone](ctx, tx, "job milestone", id)
		if err != nil {
			return
		}
		if out.EscrowAddress != nil && *out.EscrowAddress == address {
			return
		}
		if out.EscrowAddress != nil {
			return apperr.AlreadyExists("escrow")
		}

		err = tx.Model(out).Update("escrow_address", address).Error
		if err != nil {
			return
		}
		out.EscrowAddress = &address
		return
	})
	if err != nil {
		return nil, err
	}
	return
}
