package outbox

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgtype"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/warp-contracts/marketplace/src/utils/config"
	"github.com/warp-contracts/marketplace/src/utils/model"
	"github.com/warp-contracts/marketplace/src/utils/model/modeltest"
	"github.com/warp-contracts/marketplace/src/utils/monitoring"
	"gorm.io/gorm"
)

type emitted struct {
	room, event string
}

type recordingEmitter struct {
	mtx    sync.Mutex
	events []emitted
}

func (self *recordingEmitter) Emit(room, event string, data interface{}) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	self.events = append(self.events, emitted{room, event})
}

func (self *recordingEmitter) count() int {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	return len(self.events)
}

type fakeMailer struct {
	mtx  sync.Mutex
	err  error
	sent []string
}

func (self *fakeMailer) IsEnabled() bool { return true }

func (self *fakeMailer) Send(ctx context.Context, to, subject, body string) error {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	if self.err != nil {
		return self.err
	}
	self.sent = append(self.sent, to+":"+subject)
	return nil
}

func (self *fakeMailer) recipients() []string {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	return append([]string(nil), self.sent...)
}

func TestOutboxTestSuite(t *testing.T) {
	suite.Run(t, new(OutboxTestSuite))
}

type OutboxTestSuite struct {
	suite.Suite
	config  *config.Config
	db      *gorm.DB
	monitor *monitoring.Monitor
	emitter *recordingEmitter
	mailer  *fakeMailer
	outbox  *Outbox
}

func (s *OutboxTestSuite) SetupTest() {
	s.config = config.Default()
	s.config.StopTimeout = 5 * time.Second
	s.config.Outbox.PollInterval = 10 * time.Millisecond
	s.config.Outbox.StoreInterval = 10 * time.Millisecond
	s.config.Outbox.RetryInitialInterval = time.Millisecond
	s.config.Outbox.RetryMaxInterval = 5 * time.Millisecond
	s.config.Outbox.ProcessingTimeout = time.Minute

	s.db = modeltest.NewDB(s.T())
	s.monitor = monitoring.NewMonitor(s.config)
	s.emitter = new(recordingEmitter)
	s.mailer = new(fakeMailer)
}

func (s *OutboxTestSuite) start() {
	s.outbox = NewOutbox(s.config, s.db).
		WithMonitor(s.monitor).
		WithEmitter(s.emitter).
		WithMailer(s.mailer)
	require.NoError(s.T(), s.outbox.Start())
	s.T().Cleanup(s.outbox.StopWait)
}

func (s *OutboxTestSuite) insert(channel model.OutboxChannel, destination, payload string, maxAttempts int) *model.OutboxMessage {
	message := &model.OutboxMessage{
		Channel:     channel,
		Destination: destination,
		Event:       "newNotification",
		Payload:     pgtype.JSONB{Bytes: []byte(payload), Status: pgtype.Present},
		MaxAttempts: maxAttempts,
	}
	require.NoError(s.T(), s.db.Create(message).Error)
	return message
}

func (s *OutboxTestSuite) status(id uint64) (out model.OutboxMessage) {
	require.NoError(s.T(), s.db.First(&out, id).Error)
	return
}

func (s *OutboxTestSuite) eventually(id uint64, status model.OutboxStatus) {
	require.Eventually(s.T(), func() bool {
		return s.status(id).Status == status
	}, 5*time.Second, 10*time.Millisecond)
}

func (s *OutboxTestSuite) TestDelivers() {
	socket := s.insert(model.OutboxChannelSocket, "user:alice", `{"title":"hi"}`, 3)
	email := s.insert(model.OutboxChannelEmail, "alice@example.com", `{"subject":"Hi","body":"there"}`, 3)

	s.start()

	s.eventually(socket.ID, model.OutboxStatusDelivered)
	s.eventually(email.ID, model.OutboxStatusDelivered)

	require.Equal(s.T(), 1, s.emitter.count())
	require.Equal(s.T(), []string{"alice@example.com:Hi"}, s.mailer.recipients())

	row := s.status(email.ID)
	require.Equal(s.T(), 1, row.Attempts)
	require.NotNil(s.T(), row.DeliveredAt)
	require.Nil(s.T(), row.ProcessingStartedAt)
	require.EqualValues(s.T(), 2, s.monitor.GetReport().Outbox.State.Delivered.Load())
}

func (s *OutboxTestSuite) TestRetriesThenFails() {
	s.mailer.err = errors.New("connection refused")
	email := s.insert(model.OutboxChannelEmail, "alice@example.com", `{"subject":"Hi","body":"there"}`, 2)

	s.start()

	s.eventually(email.ID, model.OutboxStatusFailed)

	row := s.status(email.ID)
	require.Equal(s.T(), 2, row.Attempts)
	require.Equal(s.T(), "connection refused", row.LastError)
	require.EqualValues(s.T(), 1, s.monitor.GetReport().Outbox.State.Retried.Load())
	require.EqualValues(s.T(), 1, s.monitor.GetReport().Outbox.State.Failed.Load())
}

func (s *OutboxTestSuite) TestBadPayloadFailsAtOnce() {
	email := s.insert(model.OutboxChannelEmail, "alice@example.com", `"not an object"`, 5)

	s.start()

	s.eventually(email.ID, model.OutboxStatusFailed)
	require.Equal(s.T(), 1, s.status(email.ID).Attempts)
}

func (s *OutboxTestSuite) TestFutureMessageWaits() {
	socket := s.insert(model.OutboxChannelSocket, "user:alice", `{}`, 3)
	require.NoError(s.T(), s.db.Model(socket).Update("next_attempt_at", time.Now().UTC().Add(time.Hour)).Error)

	s.start()

	time.Sleep(100 * time.Millisecond)
	require.Equal(s.T(), model.OutboxStatusPending, s.status(socket.ID).Status)
	require.Equal(s.T(), 0, s.emitter.count())
}

func (s *OutboxTestSuite) TestRequeuesStuckMessages() {
	s.config.Outbox.ProcessingTimeout = time.Second

	started := time.Now().UTC().Add(-time.Hour)
	socket := s.insert(model.OutboxChannelSocket, "user:alice", `{}`, 3)
	require.NoError(s.T(), s.db.Model(socket).Updates(map[string]interface{}{
		"status":                model.OutboxStatusProcessing,
		"attempts":              1,
		"processing_started_at": started,
	}).Error)

	s.start()

	s.eventually(socket.ID, model.OutboxStatusDelivered)
	require.Equal(s.T(), 2, s.status(socket.ID).Attempts)
	require.EqualValues(s.T(), 1, s.monitor.GetReport().Outbox.State.Requeued.Load())
}
