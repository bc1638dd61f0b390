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

type BidInput struct {
	JobID        string  `json:"job_id" binding:"required"`
	FreelancerID string  `json:"freelancer_id" binding:"required"`
	Amount       *string `json:"amount" binding:"omitempty,numeric"`
	CoverLetter  string  `json:"cover_letter" binding:"max=10000"`
}

type Bids struct {
	base
	notifications *Notifications
	chat          *Chat
}

func NewBids(config *config.Config, db *gorm.DB, table *fsm.Table, notifications *Notifications, chat *Chat) (self *Bids) {
	self = new(Bids)
	self.base = newBase(config, db, table, "job bid")
	self.notifications = notifications
	self.chat = chat
	return
}

// Jobs accept bids and applications only while open or in review
func openJob(ctx context.Context, tx *gorm.DB, jobId string) (job *model.Job, err error) {
	job, err = first[model.Job](ctx, tx, "job", jobId)
	if err != nil {
		return
	}
	if job.Status != model.JobStatusOpen && job.Status != model.JobStatusInReview {
		return nil, apperr.BadRequest("JOB_NOT_OPEN", fmt.Sprintf("Job is %s", job.Status))
	}
	return
}

func (self *Bids) Create(ctx context.Context, in *BidInput) (out *model.JobBid, err error) {
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
			return apperr.Forbidden("Clients can't bid on their own jobs")
		}

		out = &model.JobBid{
			JobID:        in.JobID,
			FreelancerID: in.FreelancerID,
			Amount:       in.Amount,
			CoverLetter:  in.CoverLetter,
			Status:       model.BidStatusPending,
		}
		err = tx.Create(out).Error
		if err != nil {
			if model.IsUniqueViolation(err) {
				return apperr.AlreadyExists("job bid")
			}
			return
		}

		_, err = self.notifications.Create(ctx, tx, &NotificationInput{
			UserID: job.ClientID,
			Type:   model.NotificationTypeNewBid,
			Target: BidTarget{JobID: job.ID, BidID: out.ID},
			Title:  "New bid",
			Body:   fmt.Sprintf("Your job \"%s\" received a new bid", job.Title),
		})
		return
	})
	if err != nil {
		return nil, err
	}
	return
}

func (self *Bids) Get(ctx context.Context, id string) (out *model.JobBid, err error) {
	defer self.wrap(&err)
	return first[model.JobBid](ctx, self.db, "job bid", id)
}

func (self *Bids) ListByJob(ctx context.Context, jobId string, page Page) (out []*model.JobBid, err error) {
	defer self.wrap(&err)

	err = page.apply(self.db.WithContext(ctx)).
		Where("job_id = ?", jobId).
		Order("created_at ASC").
		Find(&out).
		Error
	return
}

func (self *Bids) ListByFreelancer(ctx context.Context, freelancerId string, page Page) (out []*model.JobBid, err error) {
	defer self.wrap(&err)

	err = page.apply(self.db.WithContext(ctx)).
		Where("freelancer_id = ?", freelancerId).
		Order("created_at DESC").
		Find(&out).
		Error
	return
}

// Accepting notifies the freelancer and opens the conversation with the client
func (self *Bids) UpdateStatus(ctx context.Context, id string, status model.BidStatus) (out *model.JobBid, err error) {
	defer self.wrap(&err)

	err = self.db.WithContext(ctx).Transaction(func(tx *gorm.DB) (err error) {
		out, err = lockFirst[model.JobBid](ctx, tx, "job bid", id)
		if err != nil {
			return
		}

		noop, err := fsm.Check(self.fsm, fsm.EntityBid, out.Status, status)
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
		case model.BidStatusAccepted:
			_, err = self.chat.CreateConversation(ctx, tx, &ConversationInput{
				ClientID:     job.ClientID,
				FreelancerID: out.FreelancerID,
				JobID:        &job.ID,
			})
			if err != nil {
				return
			}
			return self.notify(ctx, tx, job, out, model.NotificationTypeBidAccepted, "Bid accepted")
		case model.BidStatusRejected:
			return self.notify(ctx, tx, job, out, model.NotificationTypeBidRejected, "Bid rejected")
		}
		return
	})
	if err != nil {
		return nil, err
	}
	return
}

func (self *Bids) notify(ctx context.Context, tx *gorm.DB, job *model.Job, bid *model.JobBid, kind model.NotificationType, title string) (err error) {
	_, err = self.notifications.Create(ctx, tx, &NotificationInput{
		UserID: bid.FreelancerID,
		Type:   kind,
		Target: BidTarget{JobID: job.ID, BidID: bid.ID},
		Title:  title,
		Body:   fmt.Sprintf("Your bid on \"%s\" was %s", job.Title, bid.Status),
	})
	return
}
