package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/warp-contracts/marketplace/src/service"
	"github.com/warp-contracts/marketplace/src/utils/config"
	"github.com/warp-contracts/marketplace/src/utils/model"
	"github.com/warp-contracts/marketplace/src/utils/model/modeltest"
	"github.com/warp-contracts/marketplace/src/utils/monitoring"
	"gorm.io/gorm"
)

func TestExpiryTestSuite(t *testing.T) {
	suite.Run(t, new(ExpiryTestSuite))
}

type ExpiryTestSuite struct {
	suite.Suite
	ctx     context.Context
	config  *config.Config
	db      *gorm.DB
	monitor *monitoring.Monitor
	expiry  *Expiry
	now     time.Time
}

func (s *ExpiryTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.config = config.Default()
	s.db = modeltest.NewDB(s.T())
	s.monitor = monitoring.NewMonitor(s.config)
	s.now = time.Now().UTC().Truncate(time.Second)

	services := service.New(s.config, s.db, nil)
	s.expiry = NewExpiry(s.config, s.db, services).WithMonitor(s.monitor)
	s.expiry.now = func() time.Time { return s.now }

	modeltest.CreateUser(s.T(), s.db, "client", model.UserRoleClient)
}

func (s *ExpiryTestSuite) job(status model.JobStatus, deadline time.Duration) *model.Job {
	at := s.now.Add(deadline)
	job := &model.Job{
		ClientID:      "client",
		Title:         "Logo",
		DescriptionMd: "Design a logo",
		Status:        status,
		DeadlineAt:    &at,
	}
	require.NoError(s.T(), s.db.Create(job).Error)
	return job
}

func (s *ExpiryTestSuite) notified() (out []*model.Notification) {
	require.NoError(s.T(), s.db.Where("type = ?", model.NotificationTypeJobExpiringSoon).Find(&out).Error)
	return
}

func (s *ExpiryTestSuite) TestOnlyJobsInWindow() {
	due := s.job(model.JobStatusOpen, 2*time.Hour)
	s.job(model.JobStatusOpen, 48*time.Hour)
	s.job(model.JobStatusOpen, -time.Hour)
	s.job(model.JobStatusInProgress, 2*time.Hour)

	created, err := s.expiry.Run(s.ctx)
	require.NoError(s.T(), err)
	require.Equal(s.T(), 1, created)

	notifications := s.notified()
	require.Len(s.T(), notifications, 1)
	require.Equal(s.T(), due.ID, notifications[0].EntityID)
	require.Equal(s.T(), "client", notifications[0].UserID)
	require.Equal(s.T(), "job", notifications[0].EntityType)
}

func (s *ExpiryTestSuite) TestOneNotificationAcrossRuns() {
	s.job(model.JobStatusOpen, 2*time.Hour)

	for i := 0; i < 3; i++ {
		_, err := s.expiry.Run(s.ctx)
		require.NoError(s.T(), err)
		s.now = s.now.Add(time.Hour)
	}

	require.Len(s.T(), s.notified(), 1)
	require.EqualValues(s.T(), 3, s.monitor.GetReport().Scheduler.State.Runs.Load())
	require.EqualValues(s.T(), 1, s.monitor.GetReport().Scheduler.State.NotificationsCreated.Load())
}

func (s *ExpiryTestSuite) TestDuplicateIsRejectedByIndex() {
	job := s.job(model.JobStatusOpen, 2*time.Hour)

	require.NoError(s.T(), s.expiry.notify(s.ctx, job))
	err := s.expiry.notify(s.ctx, job)
	require.True(s.T(), model.IsUniqueViolation(err))
}

func (s *ExpiryTestSuite) TestRecordsRun() {
	_, err := s.expiry.Run(s.ctx)
	require.NoError(s.T(), err)

	var state model.SystemState
	require.NoError(s.T(), s.db.First(&state).Error)
	require.NotNil(s.T(), state.LastExpiryRunAt)
	require.True(s.T(), state.LastExpiryRunAt.Equal(s.now))
}

func (s *ExpiryTestSuite) TestInvalidSchedule() {
	s.config.Scheduler.ExpirySchedule = "every now and then"
	require.Error(s.T(), NewExpiry(s.config, s.db, nil).Start())
}
