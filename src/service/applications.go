package service

import (
	"context"
	"fmt"

	"github.com/warp-contracts/marketplace/src/utils/apperr"
	"github.com/warp-contracts/marketplace/src/utils/config"
	"github.com/warp-contracts/marketplace/src/utils/fsm"
	"github.com/warp-contracts/marketplace/src/utils/model"
	"gorm.io/gorm"
)

type ApplicationInput struct {
	JobID          string  `json:"job_id" binding:"required"`
	FreelancerID   string  `json:"freelancer_id" binding:"required"`
	CoverLetter    string  `json:"cover_letter" binding:"max=10000"`
	ProposedAmount *string `json:"proposed_amount" binding:"omitempty,numeric"`
}

type Applications struct {
	base
	notifications *Notifications
	milestones    *Milestones
}

func NewApplications(config *config.Config, db *gorm.DB, table *fsm.Table, notifications *Notifications, milestones *Milestones) (self *Applications) {
	self = new(Applications)
	self.base = newBase(config, db, table, "job application")
	self.notifications = notifications
	self.milestones = milestones
	return
}

func (self *Applications) Create(ctx context.Context, in *ApplicationInput) (out *model.JobApplication, err error) {
	defer self.wrap(&err)

	err = self.db.WithContext(ctx).Transaction(func(tx *gorm.DB) (err error) {
		job, err := openJob(ctx, tx, in.JobID)
		if err != nil {
			return
		}
		err = exists[model.User](ctx, tx, "user", in.FreelancerID)
		if err != nil {
			return
		}
		if job.ClientID == in.FreelancerID {
			return apperr.Forbidden("Clients can't apply to their own jobs")
		}

		out = &model.JobApplication{
			JobID:          in.JobID,
			FreelancerID:   in.FreelancerID,
			CoverLetter:    in.CoverLetter,
			ProposedAmount: in.ProposedAmount,
			Status:         model.ApplicationStatusPending,
		}
		err = tx.Create(out).Error
		if err != nil {
			if model.IsUniqueViolation(err) {
				return apperr.AlreadyExists("job application")
			}
			return
		}

		_, err = self.notifications.Create(ctx, tx, &NotificationInput{
			UserID: job.ClientID,
			Type:   model.NotificationTypeNewApplication,
			Target: ApplicationTarget{JobID: job.ID, ApplicationID: out.ID},
			Title:  "New application",
			Body:   fmt.Sprintf("Your job \"%s\" received a new application", job.Title),
		})
		return
	})
	if err != nil {
		return nil, err
	}
	return
}

func (self *Applications) Get(ctx context.Context, id string) (out *model.JobApplication, err error) {
	defer self.wrap(&err)
	return first[model.JobApplication](ctx, self.db, "job application", id)
}

func (self *Applications) ListByJob(ctx context.Context, jobId string, page Page) (out []*model.JobApplication, err error) {
	defer self.wrap(&err)

	err = page.apply(self.db.WithContext(ctx)).
		Where("job_id = ?", jobId).
		Order("created_at ASC").
		Find(&out).
		Error
	return
}

func (self *Applications) ListByFreelancer(ctx context.Context, freelancerId string, page Page) (out []*model.JobApplication, err error) {
	defer self.wrap(&err)

	err = page.apply(self.db.WithContext(ctx)).
		Where("freelancer_id = ?", freelancerId).
		Order("created_at DESC").
		Find(&out).
		Error
	return
}

// Accepting creates the first milestone of the freelancer, priced at the proposed amount
func (self *Applications) UpdateStatus(ctx context.Context, id string, status model.ApplicationStatus) (out *model.JobApplication, err error) {
	defer self.wrap(&err)

	err = self.db.WithContext(ctx).Transaction(func(tx *gorm.DB) (err error) {
		out, err = lockFirst[model.JobApplication](ctx, tx, "job application", id)
		if err != nil {
			return
		}

		noop, err := fsm.Check(self.fsm, fsm.EntityApplication, out.Status, status)
		if err != nil || noop {
			return
		}

		err = tx.Model(out).Update("status", status).Error
		if err != nil {
			return
		}
		out.Status = status

		job, err := first[model.Job](ctx, tx, "job", out.JobID)
		if err != nil {
			return
		}

		switch status {
		case model.ApplicationStatusAccepted:
			err = self.createFirstMilestone(ctx, tx, job, out)
			if err != nil {
				return
			}
			return self.notify(ctx, tx, job, out, model.NotificationTypeApplicationAccepted, "Application accepted")
		case model.ApplicationStatusRejected:
			return self.notify(ctx, tx, job, out, model.NotificationTypeApplicationRejected, "Application rejected")
		}
		return
	})
	if err != nil {
		return nil, err
	}
	return
}

func (self *Applications) createFirstMilestone(ctx context.Context, tx *gorm.DB, job *model.Job, application *model.JobApplication) (err error) {
	var count int64
	err = tx.Model(&model.JobMilestone{}).
		Where("job_id = ? AND freelancer_id = ?", job.ID, application.FreelancerID).
		Count(&count).
		Error
	if err != nil || count > 0 {
		return
	}

	if application.ProposedAmount == nil {
		self.log.WithField("application_id", application.ID).Info("No proposed amount, milestone not created")
		return
	}

	_, err = self.milestones.create(ctx, tx, &MilestoneInput{
		JobID:        job.ID,
		FreelancerID: application.FreelancerID,
		Title:        job.Title,
		Amount:       *application.ProposedAmount,
	})
	return
}

func (self *Applications) notify(ctx context.Context, tx *gorm.DB, job *model.Job, application *model.JobApplication, kind model.NotificationType, title string) (err error) {
	_, err = self.notifications.Create(ctx, tx, &NotificationInput{
		UserID: application.FreelancerID,
		Type:   kind,
		Target: ApplicationTarget{JobID: job.ID, ApplicationID: application.ID},
		Title:  title,
		Body:   fmt.Sprintf("Your application to \"%s\" was %s", job.Title, application.Status),
	})
	return
}
