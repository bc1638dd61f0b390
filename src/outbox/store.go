package outbox

import (
	"context"
	"errors"
	"time"

	"github.com/warp-contracts/marketplace/src/utils/config"
	"github.com/warp-contracts/marketplace/src/utils/model"
	"github.com/warp-contracts/marketplace/src/utils/monitoring"
	"github.com/warp-contracts/marketplace/src/utils/task"
	"gorm.io/gorm"
)

// Saves delivery results in batches.
// Failed deliveries are scheduled again with exponential backoff until attempts run out.
type Store struct {
	*task.Hole[*Result]

	db      *gorm.DB
	monitor *monitoring.Monitor
}

func NewStore(config *config.Config) (self *Store) {
	self = new(Store)

	self.Hole = task.NewHole[*Result](config, "outbox-store").
		WithBatchSize(config.Outbox.StoreBatchSize).
		WithOnFlush(config.Outbox.StoreInterval, self.flush).
		WithBackoff(0, config.Outbox.RetryMaxInterval)

	return
}

func (self *Store) WithInputChannel(v chan *Result) *Store {
	self.Hole = self.Hole.WithInputChannel(v)
	return self
}

func (self *Store) WithDB(db *gorm.DB) *Store {
	self.db = db
	return self
}

func (self *Store) WithMonitor(monitor *monitoring.Monitor) *Store {
	self.monitor = monitor
	return self
}

func (self *Store) updates(result *Result, now time.Time) map[string]interface{} {
	message := result.Message
	if result.Err == nil {
		self.monitor.GetReport().Outbox.State.Delivered.Inc()
		return map[string]interface{}{
			"status":                model.OutboxStatusDelivered,
			"delivered_at":          now,
			"processing_started_at": nil,
			"last_error":            "",
		}
	}

	if errors.Is(result.Err, ErrPermanent) || message.Attempts >= message.MaxAttempts {
		self.monitor.GetReport().Outbox.State.Failed.Inc()
		self.Log.WithField("id", message.ID).WithField("attempts", message.Attempts).WithError(result.Err).Error("Message failed")
		return map[string]interface{}{
			"status":                model.OutboxStatusFailed,
			"processing_started_at": nil,
			"last_error":            result.Err.Error(),
		}
	}

	self.monitor.GetReport().Outbox.State.Retried.Inc()
	delay := task.NextAttemptDelay(message.Attempts, self.Config.Outbox.RetryInitialInterval, self.Config.Outbox.RetryMaxInterval)
	return map[string]interface{}{
		"status":                model.OutboxStatusPending,
		"next_attempt_at":       now.Add(delay),
		"processing_started_at": nil,
		"last_error":            result.Err.Error(),
	}
}

func (self *Store) flush(ctx context.Context, results []*Result) error {
	now := time.Now().UTC()
	err := self.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, result := range results {
			err := tx.Model(&model.OutboxMessage{}).
				Where("id = ? AND status = ?", result.Message.ID, model.OutboxStatusProcessing).
				Updates(self.updates(result, now)).
				Error
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		self.monitor.GetReport().Outbox.Errors.StoreErrors.Inc()
		return err
	}
	return nil
}
