package service

import (
	"github.com/stretchr/testify/require"
	"github.com/warp-contracts/marketplace/src/utils/config"
	"github.com/warp-contracts/marketplace/src/utils/model"
)

func (s *ServiceTestSuite) conversation() *model.Conversation {
	s.T().Helper()
	out, err := s.services.Chat.CreateConversation(s.ctx, nil, &ConversationInput{ClientID: s.client.ID, FreelancerID: s.freelancer.ID})
	require.NoError(s.T(), err)
	return out
}

func (s *ServiceTestSuite) message(conversation *model.Conversation) *model.Message {
	s.T().Helper()
	out, err := s.services.Chat.CreateMessage(s.ctx, &MessageInput{
		ConversationID: conversation.ID,
		SenderID:       s.client.ID,
		Body:           "Hello",
	})
	require.NoError(s.T(), err)
	return out
}

func (s *ServiceTestSuite) TestConversationIdempotent() {
	first := s.conversation()
	second := s.conversation()
	require.Equal(s.T(), first.ID, second.ID)

	var count int64
	require.NoError(s.T(), s.db.Model(&model.Conversation{}).Count(&count).Error)
	require.Equal(s.T(), int64(1), count)
}

func (s *ServiceTestSuite) TestConversationNeedsTwoUsers() {
	_, err := s.services.Chat.CreateConversation(s.ctx, nil, &ConversationInput{ClientID: s.client.ID, FreelancerID: s.client.ID})
	s.requireCode(err, "VALIDATION_ERROR")
}

func (s *ServiceTestSuite) TestCreateMessage() {
	conversation := s.conversation()
	message := s.message(conversation)

	require.Equal(s.T(), model.MessageKindText, message.Kind)
	require.Len(s.T(), message.Receipts, 1)
	require.Equal(s.T(), s.freelancer.ID, message.Receipts[0].UserID)
	require.Equal(s.T(), model.ReceiptStateSent, message.Receipts[0].State)

	got, err := s.services.Chat.GetConversation(s.ctx, conversation.ID)
	require.NoError(s.T(), err)
	require.NotNil(s.T(), got.LastMessageAt)

	events := s.emitter.Events()
	require.Len(s.T(), events, 1)
	require.Equal(s.T(), ConversationRoom(conversation.ID), events[0].Room)
	require.Equal(s.T(), s.config.Websocket.EventNewMessage, events[0].Event)

	require.Len(s.T(), s.notificationsOf(s.freelancer.ID, model.NotificationTypeNewMessage), 1)

	messages, err := s.services.Chat.ListMessages(s.ctx, conversation.ID, &MessageFilter{})
	require.NoError(s.T(), err)
	require.Len(s.T(), messages, 1)
	require.Len(s.T(), messages[0].Receipts, 1)
}

func (s *ServiceTestSuite) TestCreateMessageOutsider() {
	conversation := s.conversation()
	_, err := s.services.Chat.CreateMessage(s.ctx, &MessageInput{
		ConversationID: conversation.ID,
		SenderID:       s.admin.ID,
		Body:           "Hi",
	})
	s.requireCode(err, "FORBIDDEN")
}

func (s *ServiceTestSuite) TestMarkDeliveredOnlyFromSent() {
	message := s.message(s.conversation())

	receipt, err := s.services.Chat.MarkMessageAsDelivered(s.ctx, message.ID, s.freelancer.ID)
	require.NoError(s.T(), err)
	require.NotNil(s.T(), receipt)
	require.Equal(s.T(), model.ReceiptStateDelivered, receipt.State)
	require.NotNil(s.T(), receipt.DeliveredAt)

	// Second time there's nothing to do
	receipt, err = s.services.Chat.MarkMessageAsDelivered(s.ctx, message.ID, s.freelancer.ID)
	require.NoError(s.T(), err)
	require.Nil(s.T(), receipt)

	// Sender has no receipt
	receipt, err = s.services.Chat.MarkMessageAsDelivered(s.ctx, message.ID, s.client.ID)
	require.NoError(s.T(), err)
	require.Nil(s.T(), receipt)

	read, err := s.services.Chat.MarkMessageAsRead(s.ctx, message.ID, s.freelancer.ID)
	require.NoError(s.T(), err)
	require.Equal(s.T(), model.ReceiptStateRead, read.State)

	// Read can't go back to delivered
	receipt, err = s.services.Chat.MarkMessageAsDelivered(s.ctx, message.ID, s.freelancer.ID)
	require.NoError(s.T(), err)
	require.Nil(s.T(), receipt)
}

func (s *ServiceTestSuite) TestMarkReadLenient() {
	message := s.message(s.conversation())

	receipt, err := s.services.Chat.MarkMessageAsRead(s.ctx, message.ID, s.freelancer.ID)
	require.NoError(s.T(), err)
	require.NotNil(s.T(), receipt)
	require.Equal(s.T(), model.ReceiptStateRead, receipt.State)
	require.NotNil(s.T(), receipt.ReadAt)

	receipt, err = s.services.Chat.MarkMessageAsRead(s.ctx, message.ID, s.freelancer.ID)
	require.NoError(s.T(), err)
	require.Nil(s.T(), receipt)

	var updates int
	for _, e := range s.emitter.Events() {
		if e.Event == s.config.Websocket.EventMessageReceiptUpdated {
			updates++
		}
	}
	require.Equal(s.T(), 1, updates)
}

func (s *ServiceTestSuite) TestMarkReadStrict() {
	s.config.Chat.ReadReceiptPolicy = config.ReadReceiptPolicyStrict
	s.services = New(s.config, s.db, s.emitter)
	message := s.message(s.conversation())

	receipt, err := s.services.Chat.MarkMessageAsRead(s.ctx, message.ID, s.freelancer.ID)
	require.NoError(s.T(), err)
	require.Nil(s.T(), receipt)

	_, err = s.services.Chat.MarkMessageAsDelivered(s.ctx, message.ID, s.freelancer.ID)
	require.NoError(s.T(), err)

	receipt, err = s.services.Chat.MarkMessageAsRead(s.ctx, message.ID, s.freelancer.ID)
	require.NoError(s.T(), err)
	require.NotNil(s.T(), receipt)
	require.Equal(s.T(), model.ReceiptStateRead, receipt.State)
}
