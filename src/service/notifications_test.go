package service

import (
	"encoding/json"

	"github.com/stretchr/testify/require"
	"github.com/warp-contracts/marketplace/src/utils/model"
)

func (s *ServiceTestSuite) notify(userId string) *model.Notification {
	s.T().Helper()
	out, err := s.services.Notifications.Create(s.ctx, nil, &NotificationInput{
		UserID: userId,
		Type:   model.NotificationTypeSystem,
		Target: UserTarget{UserID: userId},
		Title:  "Hello",
		Body:   "World",
	})
	require.NoError(s.T(), err)
	return out
}

func (s *ServiceTestSuite) TestNotificationFansOut() {
	notification := s.notify(s.client.ID)
	require.Equal(s.T(), "user", notification.EntityType)
	require.NotEmpty(s.T(), notification.ActionUrl)

	require.Equal(s.T(), int64(1), s.countOutbox(model.OutboxChannelSocket, UserRoom(s.client.ID)))
	require.Equal(s.T(), int64(1), s.countOutbox(model.OutboxChannelEmail, "client@example.com"))

	var email model.OutboxMessage
	require.NoError(s.T(), s.db.Where("channel = ?", model.OutboxChannelEmail).First(&email).Error)
	require.Equal(s.T(), model.OutboxStatusPending, email.Status)
	require.Equal(s.T(), string(model.NotificationTypeSystem), email.Event)
	require.Equal(s.T(), notification.ID, *email.NotificationID)

	var payload EmailPayload
	require.NoError(s.T(), json.Unmarshal(email.Payload.Bytes, &payload))
	require.Equal(s.T(), "Hello", payload.Subject)
	require.Contains(s.T(), payload.Body, "World")
	require.Contains(s.T(), payload.Body, notification.ActionUrl)
}

func (s *ServiceTestSuite) TestNotificationWithoutEmail() {
	require.NoError(s.T(), s.db.Model(&model.User{}).Where("id = ?", s.client.ID).Update("email", nil).Error)

	s.notify(s.client.ID)
	require.Equal(s.T(), int64(1), s.countOutbox(model.OutboxChannelSocket, UserRoom(s.client.ID)))
	require.Equal(s.T(), int64(0), s.countOutbox(model.OutboxChannelEmail, "client@example.com"))
}

func (s *ServiceTestSuite) TestNotificationUnknownUser() {
	_, err := s.services.Notifications.Create(s.ctx, nil, &NotificationInput{
		UserID: "ghost",
		Type:   model.NotificationTypeSystem,
		Target: UserTarget{UserID: "ghost"},
	})
	s.requireCode(err, "USER_NOT_FOUND")
}

func (s *ServiceTestSuite) TestNotificationRead() {
	first := s.notify(s.client.ID)
	s.notify(s.client.ID)
	s.notify(s.freelancer.ID)

	count, err := s.services.Notifications.UnreadCount(s.ctx, s.client.ID)
	require.NoError(s.T(), err)
	require.Equal(s.T(), int64(2), count)

	read, err := s.services.Notifications.MarkRead(s.ctx, s.client.ID, first.ID)
	require.NoError(s.T(), err)
	require.NotNil(s.T(), read.ReadAt)

	// Someone else's notification
	_, err = s.services.Notifications.MarkRead(s.ctx, s.freelancer.ID, first.ID)
	s.requireCode(err, "NOTIFICATION_NOT_FOUND")

	unread, err := s.services.Notifications.List(s.ctx, s.client.ID, true, Page{})
	require.NoError(s.T(), err)
	require.Len(s.T(), unread, 1)

	updated, err := s.services.Notifications.MarkAllRead(s.ctx, s.client.ID)
	require.NoError(s.T(), err)
	require.Equal(s.T(), int64(1), updated)

	count, err = s.services.Notifications.UnreadCount(s.ctx, s.client.ID)
	require.NoError(s.T(), err)
	require.Zero(s.T(), count)

	count, err = s.services.Notifications.UnreadCount(s.ctx, s.freelancer.ID)
	require.NoError(s.T(), err)
	require.Equal(s.T(), int64(1), count)

	all, err := s.services.Notifications.List(s.ctx, s.client.ID, false, Page{})
	require.NoError(s.T(), err)
	require.Len(s.T(), all, 2)
}

func (s *ServiceTestSuite) TestOutboxRequeue() {
	s.notify(s.client.ID)

	var message model.OutboxMessage
	require.NoError(s.T(), s.db.Where("channel = ?", model.OutboxChannelSocket).First(&message).Error)

	_, err := s.services.Outbox.Requeue(s.ctx, message.ID)
	s.requireCode(err, "INVALID_TRANSITION")

	require.NoError(s.T(), s.db.Model(&message).Updates(map[string]interface{}{
		"status":     model.OutboxStatusFailed,
		"attempts":   5,
		"last_error": "boom",
	}).Error)

	requeued, err := s.services.Outbox.Requeue(s.ctx, message.ID)
	require.NoError(s.T(), err)
	require.Equal(s.T(), model.OutboxStatusPending, requeued.Status)
	require.Zero(s.T(), requeued.Attempts)

	failed, err := s.services.Outbox.List(s.ctx, model.OutboxStatusFailed, Page{})
	require.NoError(s.T(), err)
	require.Empty(s.T(), failed)

	_, err = s.services.Outbox.Requeue(s.ctx, 9999)
	s.requireCode(err, "OUTBOX_MESSAGE_NOT_FOUND")
}
