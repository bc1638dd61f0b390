package service

import (
	"context"
	"time"

	"github.com/warp-contracts/marketplace/src/utils/apperr"
	"github.com/warp-contracts/marketplace/src/utils/config"
	"github.com/warp-contracts/marketplace/src/utils/model"
	"gorm.io/gorm"
)

// Admin view of the outbox
type Outbox struct {
	base
}

func NewOutbox(config *config.Config, db *gorm.DB) (self *Outbox) {
	self = new(Outbox)
	self.base = newBase(config, db, nil, "outbox")
	return
}

func (self *Outbox) List(ctx context.Context, status model.OutboxStatus, page Page) (out []*model.OutboxMessage, err error) {
	defer self.wrap(&err)

	query := self.db.WithContext(ctx)
	if status != "" {
		query = query.Where("status = ?", status)
	}
	err = page.apply(query).Order("id DESC").Find(&out).Error
	return
}

// Gives a failed message another full set of attempts
func (self *Outbox) Requeue(ctx context.Context, id uint64) (out *model.OutboxMessage, err error) {
	defer self.wrap(&err)

	out = new(model.OutboxMessage)
	err = self.db.WithContext(ctx).Where("id = ?", id).First(out).Error
	if err != nil {
		if model.IsNotFound(err) {
			return nil, apperr.NotFound("outbox message")
		}
		return nil, err
	}

	if out.Status != model.OutboxStatusFailed {
		return nil, apperr.BadRequest("INVALID_TRANSITION", "only failed messages can be requeued")
	}

	err = self.db.WithContext(ctx).Model(out).Updates(map[string]interface{}{
		"status":          model.OutboxStatusPending,
		"attempts":        0,
		"next_attempt_at": time.Now().UTC(),
		"last_error":      "",
	}).Error
	if err != nil {
		return nil, err
	}

	err = self.db.WithContext(ctx).Where("id = ?", id).First(out).Error
	return
}

func (self *Outbox) RequeueFailed(ctx context.Context) (count int64, err error) {
	defer self.wrap(&err)

	res := self.db.WithContext(ctx).
		Model(&model.OutboxMessage{}).
		Where("status = ?", model.OutboxStatusFailed).
		Updates(map[string]interface{}{
			"status":          model.OutboxStatusPending,
			"attempts":        0,
			"next_attempt_at": time.Now().UTC(),
			"last_error":      "",
		})
	return res.RowsAffected, res.Error
}
