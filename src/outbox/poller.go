package outbox

import (
	"time"

	"github.com/warp-contracts/marketplace/src/utils/config"
	"github.com/warp-contracts/marketplace/src/utils/model"
	"github.com/warp-contracts/marketplace/src/utils/monitoring"
	"github.com/warp-contracts/marketplace/src/utils/task"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Periodically claims due outbox messages and passes them on.
// Concurrent pollers never claim the same row.
type Poller struct {
	*task.Task

	db      *gorm.DB
	monitor *monitoring.Monitor

	Output chan *model.OutboxMessage
}

func NewPoller(config *config.Config) (self *Poller) {
	self = new(Poller)

	self.Output = make(chan *model.OutboxMessage)

	self.Task = task.NewTask(config, "outbox-poller").
		WithPeriodicSubtaskFunc(config.Outbox.PollInterval, self.poll).
		WithOnAfterStop(func() {
			close(self.Output)
		})

	return
}

func (self *Poller) WithDB(db *gorm.DB) *Poller {
	self.db = db
	return self
}

func (self *Poller) WithMonitor(monitor *monitoring.Monitor) *Poller {
	self.monitor = monitor
	return self
}

func (self *Poller) poll() error {
	err := self.requeueStuck()
	if err != nil {
		self.monitor.GetReport().Outbox.Errors.PollErrors.Inc()
		self.Log.WithError(err).Error("Failed to requeue stuck messages")
	}

	messages, err := self.claim()
	if err != nil {
		// Next poll will try again
		self.monitor.GetReport().Outbox.Errors.PollErrors.Inc()
		self.Log.WithError(err).Error("Failed to claim messages")
		return nil
	}

	if len(messages) > 0 {
		self.Log.WithField("count", len(messages)).Debug("Claimed messages")
	}

	for _, message := range messages {
		select {
		case <-self.StopChannel:
			// Unsent messages get requeued after the processing timeout
			return nil
		case self.Output <- message:
		}
	}
	return nil
}

// Worker died or the process was killed while delivering
func (self *Poller) requeueStuck() error {
	res := self.db.WithContext(self.Ctx).
		Model(&model.OutboxMessage{}).
		Where("status = ? AND processing_started_at < ?", model.OutboxStatusProcessing, time.Now().UTC().Add(-self.Config.Outbox.ProcessingTimeout)).
		Updates(map[string]interface{}{
			"status":                model.OutboxStatusPending,
			"processing_started_at": nil,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		self.monitor.GetReport().Outbox.State.Requeued.Add(uint64(res.RowsAffected))
		self.Log.WithField("count", res.RowsAffected).Warn("Requeued stuck messages")
	}
	return nil
}

func (self *Poller) claim() (out []*model.OutboxMessage, err error) {
	err = self.db.WithContext(self.Ctx).Transaction(func(tx *gorm.DB) (err error) {
		now := time.Now().UTC()
		err = tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? AND next_attempt_at <= ?", model.OutboxStatusPending, now).
			Order("next_attempt_at ASC").
			Limit(self.Config.Outbox.BatchSize).
			Find(&out).
			Error
		if err != nil || len(out) == 0 {
			return
		}

		ids := make([]uint64, 0, len(out))
		for _, message := range out {
			ids = append(ids, message.ID)
			message.Status = model.OutboxStatusProcessing
			message.Attempts++
			message.ProcessingStartedAt = &now
		}

		return tx.Model(&model.OutboxMessage{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{
				"status":                model.OutboxStatusProcessing,
				"attempts":              gorm.Expr("attempts + 1"),
				"processing_started_at": now,
			}).
			Error
	})
	if err != nil {
		return nil, err
	}

	self.monitor.GetReport().Outbox.State.Claimed.Add(uint64(len(out)))
	return
}
