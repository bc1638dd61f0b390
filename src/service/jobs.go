package service

import (
	"context"
	"fmt"
	"time"

	"github.com/warp-contracts/marketplace/src/utils/apperr"
	"github.com/warp-contracts/marketplace/src/utils/config"
	"github.com/warp-contracts/marketplace/src/utils/fsm"
	"github.com/warp-contracts/marketplace/src/utils/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type JobInput struct {
	ClientID      string          `json:"client_id" binding:"required"`
	Title         string          `json:"title" binding:"required,max=200"`
	DescriptionMd string          `json:"description_md" binding:"required"`
	Status        model.JobStatus `json:"status" binding:"omitempty,oneof=draft open"`
	BudgetMin     *float64        `json:"budget_min" binding:"omitempty,gte=0"`
	BudgetMax     *float64        `json:"budget_max" binding:"omitempty,gte=0,gtefield=BudgetMin"`
	Currency      string          `json:"currency" binding:"omitempty,len=3"`
	Skills        []string        `json:"skills"`
	DeadlineAt    *time.Time      `json:"deadline_at"`
}

// Nil fields are left unchanged
type JobUpdate struct {
	Title         *string    `json:"title" binding:"omitempty,max=200"`
	DescriptionMd *string    `json:"description_md"`
	BudgetMin     *float64   `json:"budget_min" binding:"omitempty,gte=0"`
	BudgetMax     *float64   `json:"budget_max" binding:"omitempty,gte=0"`
	Currency      *string    `json:"currency" binding:"omitempty,len=3"`
	Skills        []string   `json:"skills"`
	DeadlineAt    *time.Time `json:"deadline_at"`
}

type JobFilter struct {
	Status   model.JobStatus `form:"status"`
	ClientID string          `form:"client_id"`
	Skill    string          `form:"skill"`
	Page
}

type Jobs struct {
	base
	notifications *Notifications
}

func NewJobs(config *config.Config, db *gorm.DB, table *fsm.Table, notifications *Notifications) (self *Jobs) {
	self = new(Jobs)
	self.base = newBase(config, db, table, "job")
	self.notifications = notifications
	return
}

func (self *Jobs) Create(ctx context.Context, in *JobInput) (out *model.Job, err error) {
	defer self.wrap(&err)

	err = exists[model.User](ctx, self.db, "user", in.ClientID)
	if err != nil {
		return
	}

	out = &model.Job{
		ClientID:      in.ClientID,
		Title:         in.Title,
		DescriptionMd: in.DescriptionMd,
		Status:        in.Status,
		BudgetMin:     in.BudgetMin,
		BudgetMax:     in.BudgetMax,
		Currency:      in.Currency,
		Skills:        model.StringArray(in.Skills),
		DeadlineAt:    in.DeadlineAt,
	}
	err = self.db.WithContext(ctx).Create(out).Error
	if err != nil {
		return nil, err
	}
	return
}

func (self *Jobs) Get(ctx context.Context, id string) (out *model.Job, err error) {
	defer self.wrap(&err)
	return first[model.Job](ctx, self.db, "job", id)
}

func (self *Jobs) List(ctx context.Context, filter *JobFilter) (out []*model.Job, err error) {
	defer self.wrap(&err)

	query := self.db.WithContext(ctx)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.ClientID != "" {
		query = query.Where("client_id = ?", filter.ClientID)
	}
	if filter.Skill != "" {
		query = query.Where(model.ArrayContains("skills", filter.Skill))
	}
	err = filter.Page.apply(query).Order("created_at DESC").Find(&out).Error
	return
}

// Only draft and open jobs can be edited
func (self *Jobs) Update(ctx context.Context, id string, in *JobUpdate) (out *model.Job, err error) {
	defer self.wrap(&err)

	err = self.db.WithContext(ctx).Transaction(func(tx *gorm.DB) (err error) {
		out, err = lockFirst[model.Job](ctx, tx, "job", id)
		if err != nil {
			return
		}

		if out.Status != model.JobStatusDraft && out.Status != model.JobStatusOpen {
			return notEditable("job", string(out.Status))
		}

		if in.Title != nil {
			out.Title = *in.Title
		}
		if in.DescriptionMd != nil {
			out.DescriptionMd = *in.DescriptionMd
		}
		if in.BudgetMin != nil {
			out.BudgetMin = in.BudgetMin
		}
		if in.BudgetMax != nil {
			out.BudgetMax = in.BudgetMax
		}
		if in.Currency != nil {
			out.Currency = *in.Currency
		}
		if in.Skills != nil {
			out.Skills = model.StringArray(in.Skills)
		}
		if in.DeadlineAt != nil {
			out.DeadlineAt = in.DeadlineAt
		}

		if out.BudgetMin != nil && out.BudgetMax != nil && *out.BudgetMax < *out.BudgetMin {
			return apperr.BadRequest("VALIDATION_ERROR", "budget_max must not be lower than budget_min")
		}

		return tx.Save(out).Error
	})
	if err != nil {
		return nil, err
	}
	return
}

// Moves the job through its lifecycle. Moving to the current status is a no-op.
func (self *Jobs) UpdateStatus(ctx context.Context, id string, status model.JobStatus) (out *model.Job, err error) {
	defer self.wrap(&err)

	err = self.db.WithContext(ctx).Transaction(func(tx *gorm.DB) (err error) {
		out, err = lockFirst[model.Job](ctx, tx, "job", id)
		if err != nil {
			return
		}

		noop, err := fsm.Check(self.fsm, fsm.EntityJob, out.Status, status)
		if err != nil || noop {
			return
		}

		from := out.Status
		err = tx.Model(out).Update("status", status).Error
		if err != nil {
			return
		}
		out.Status = status

		return self.notifyStatus(ctx, tx, out, from)
	})
	if err != nil {
		return nil, err
	}
	return
}

// Cancellation goes to everyone who bid, every other change to the client
func (self *Jobs) notifyStatus(ctx context.Context, tx *gorm.DB, job *model.Job, from model.JobStatus) (err error) {
	recipients := []string{job.ClientID}
	if job.Status == model.JobStatusCancelled {
		recipients = nil
		err = tx.Model(&model.JobBid{}).
			Where("job_id = ? AND status IN ?", job.ID, []model.BidStatus{model.BidStatusPending, model.BidStatusAccepted}).
			Distinct().
			Pluck("freelancer_id", &recipients).
			Error
		if err != nil {
			return
		}
	}

	for _, userId := range recipients {
		_, err = self.notifications.Create(ctx, tx, &NotificationInput{
			UserID:   userId,
			Type:     model.NotificationTypeJobStatusChanged,
			Target:   JobTarget{JobID: job.ID},
			Title:    "Job status changed",
			Body:     fmt.Sprintf("Job \"%s\" moved from %s to %s", job.Title, from, job.Status),
			Metadata: map[string]interface{}{"from": from, "to": job.Status},
		})
		if err != nil {
			return
		}
	}
	return
}

// Only draft and cancelled jobs without escrows can be deleted
func (self *Jobs) Delete(ctx context.Context, id string) (err error) {
	defer self.wrap(&err)

	return self.db.WithContext(ctx).Transaction(func(tx *gorm.DB) (err error) {
		job, err := lockFirst[model.Job](ctx, tx, "job", id)
		if err != nil {
			return
		}
		if job.Status != model.JobStatusDraft && job.Status != model.JobStatusCancelled {
			return notEditable("job", string(job.Status))
		}

		// Escrows stay as the record of what happened on chain
		var escrows int64
		err = tx.Model(&model.Escrow{}).Where("job_id = ?", id).Count(&escrows).Error
		if err != nil {
			return
		}
		if escrows > 0 {
			return apperr.BadRequest("JOB_HAS_ESCROW", "Job with an escrow can't be deleted")
		}

		for _, m := range []interface{}{&model.JobBid{}, &model.JobApplication{}, &model.JobMilestone{}} {
			err = tx.Where("job_id = ?", id).Delete(m).Error
			if err != nil {
				return
			}
		}
		return tx.Delete(job).Error
	})
}

// Loads a row by id and locks it until the transaction ends
var lockingUpdate = clause.Locking{Strength: "UPDATE"}

func lockFirst[T any](ctx context.Context, tx *gorm.DB, entity string, id string) (out *T, err error) {
	return first[T](ctx, tx.Clauses(lockingUpdate), entity, id)
}
