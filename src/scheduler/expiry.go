package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron"
	"github.com/warp-contracts/marketplace/src/service"
	"github.com/warp-contracts/marketplace/src/utils/config"
	"github.com/warp-contracts/marketplace/src/utils/lock"
	"github.com/warp-contracts/marketplace/src/utils/model"
	"github.com/warp-contracts/marketplace/src/utils/monitoring"
	"github.com/warp-contracts/marketplace/src/utils/task"
	"gorm.io/gorm"
)

const lockKey = "market:scheduler:expiry"

// Notifies clients about open jobs whose deadline is near.
// Each job gets at most one JOB_EXPIRING_SOON notification, no matter how many instances run.
type Expiry struct {
	*task.Task

	db       *gorm.DB
	services *service.Services
	monitor  *monitoring.Monitor
	lock     *lock.Lock
	schedule cron.Schedule

	// Current time, replaced in tests
	now func() time.Time
}

func NewExpiry(config *config.Config, db *gorm.DB, services *service.Services) (self *Expiry) {
	self = new(Expiry)
	self.db = db
	self.services = services
	self.now = func() time.Time { return time.Now().UTC() }

	self.Task = task.NewTask(config, "expiry-scheduler").
		WithOnBeforeStart(self.parseSchedule).
		WithScheduledSubtaskFunc(self.next, self.pass)

	return
}

func (self *Expiry) WithMonitor(monitor *monitoring.Monitor) *Expiry {
	self.monitor = monitor
	return self
}

// Only one instance sharing this redis runs a pass at a time
func (self *Expiry) WithRedis(client *redis.Client) *Expiry {
	if client != nil && self.Config.Scheduler.LockEnabled {
		self.lock = lock.New(client, lockKey, self.Config.Scheduler.LockTTL)
	}
	return self
}

func (self *Expiry) parseSchedule() (err error) {
	self.schedule, err = cron.Parse(self.Config.Scheduler.ExpirySchedule)
	if err != nil {
		return fmt.Errorf("invalid expiry schedule %q: %w", self.Config.Scheduler.ExpirySchedule, err)
	}
	return
}

func (self *Expiry) next(last time.Time) time.Time {
	at := self.schedule.Next(last)
	self.Log.WithField("at", at).Debug("Next expiry pass")
	return at
}

func (self *Expiry) pass() error {
	_, err := self.Run(self.Ctx)
	if err != nil {
		self.Log.WithError(err).Error("Expiry pass failed")
	}
	return nil
}

// Runs one pass, returns the number of created notifications
func (self *Expiry) Run(ctx context.Context) (created int, err error) {
	if self.lock != nil {
		ok, err := self.lock.TryAcquire(ctx)
		if err != nil {
			self.monitor.GetReport().Scheduler.Errors.LockErrors.Inc()
			return 0, err
		}
		if !ok {
			self.monitor.GetReport().Scheduler.State.SkippedRuns.Inc()
			self.Log.Debug("Another instance holds the lock, skipping")
			return 0, nil
		}
		defer func() {
			err := self.lock.Release(context.Background())
			if err != nil {
				self.Log.WithError(err).Warn("Failed to release lock")
			}
		}()
	}

	now := self.now()
	jobs, err := self.expiring(ctx, now)
	if err != nil {
		self.monitor.GetReport().Scheduler.Errors.QueryErrors.Inc()
		return
	}

	for _, job := range jobs {
		err := self.notify(ctx, job)
		if err != nil {
			if model.IsUniqueViolation(err) {
				// Another pass got there first
				continue
			}
			self.monitor.GetReport().Scheduler.Errors.NotificationErrors.Inc()
			self.Log.WithError(err).WithField("job_id", job.ID).Error("Failed to notify about expiring job")
			continue
		}
		created++
	}

	self.monitor.GetReport().Scheduler.State.Runs.Inc()
	self.monitor.GetReport().Scheduler.State.NotificationsCreated.Add(uint64(created))
	self.monitor.GetReport().Scheduler.State.LastRunTimestamp.Store(now.Unix())

	err = self.services.Settings.RecordExpiryRun(ctx, now)
	if err != nil {
		self.Log.WithError(err).Warn("Failed to record expiry run")
		err = nil
	}

	self.Log.WithField("jobs", len(jobs)).WithField("created", created).Info("Expiry pass done")
	return
}

// Open jobs with the deadline within the window that weren't notified yet
func (self *Expiry) expiring(ctx context.Context, now time.Time) (out []*model.Job, err error) {
	err = self.db.WithContext(ctx).
		Where("status = ? AND deadline_at > ? AND deadline_at <= ?", model.JobStatusOpen, now, now.Add(self.Config.Scheduler.ExpiryWindow)).
		Where("NOT EXISTS (SELECT 1 FROM notifications n WHERE n.type = ? AND n.entity_id = jobs.id AND n.user_id = jobs.client_id)", model.NotificationTypeJobExpiringSoon).
		Order("deadline_at ASC").
		Find(&out).
		Error
	return
}

func (self *Expiry) notify(ctx context.Context, job *model.Job) (err error) {
	left := job.DeadlineAt.Sub(self.now()).Round(time.Minute)
	_, err = self.services.Notifications.Create(ctx, nil, &service.NotificationInput{
		UserID: job.ClientID,
		Type:   model.NotificationTypeJobExpiringSoon,
		Target: service.JobTarget{JobID: job.ID},
		Title:  "Job expiring soon",
		Body:   fmt.Sprintf("Your job %q reaches its deadline in %s.", job.Title, left),
		Metadata: map[string]interface{}{
			"deadline_at": job.DeadlineAt.UTC().Format(time.RFC3339),
		},
	})
	return
}
