package socket

import (
	"context"
	"encoding/json"

	"github.com/warp-contracts/marketplace/src/service"
	"github.com/warp-contracts/marketplace/src/utils/apperr"
	"github.com/warp-contracts/marketplace/src/utils/model"
)

type newMessageData struct {
	ConversationID string            `json:"conversation_id"`
	Body           string            `json:"body"`
	Kind           model.MessageKind `json:"kind"`
	AttachmentUrl  *string           `json:"attachment_url"`
}

type receiptData struct {
	MessageID string             `json:"message_id"`
	UserID    string             `json:"user_id"`
	State     model.ReceiptState `json:"state"`
}

// Payload of writingMessage and stopWritingMessage
type WritingData struct {
	ConversationID string `json:"conversation_id"`
	UserID         string `json:"user_id"`
}

func decode(data json.RawMessage, v interface{}) error {
	if len(data) == 0 {
		return apperr.BadRequest("VALIDATION_ERROR", "missing data")
	}
	err := json.Unmarshal(data, v)
	if err != nil {
		return apperr.BadRequest("VALIDATION_ERROR", err.Error())
	}
	return nil
}

func (self *Hub) handle(ctx context.Context, client *Client, frame *Frame) error {
	events := &self.Config.Websocket
	switch frame.Event {
	case events.EventJoinRoom:
		return self.onJoinRoom(ctx, client, frame.Data)
	case events.EventJoinUserRoom:
		return self.onJoinUserRoom(client, frame.Data)
	case events.EventSendNewMessage:
		return self.onNewMessage(ctx, client, frame.Data)
	case events.EventSendMessageReceipt:
		return self.onReceipt(ctx, client, frame.Data)
	case events.EventSendWriting:
		return self.onWriting(client, frame.Data, events.EventWritingMessage)
	case events.EventSendStopWriting:
		return self.onWriting(client, frame.Data, events.EventStopWritingMessage)
	}
	self.monitor.GetReport().Socket.Errors.InvalidFrames.Inc()
	return apperr.BadRequest("UNKNOWN_EVENT", "Unknown event "+frame.Event)
}

// Participants and admins only
func (self *Hub) onJoinRoom(ctx context.Context, client *Client, data json.RawMessage) error {
	conversationId, err := stringArg(data, "conversation_id")
	if err != nil {
		return apperr.Validation(err)
	}

	conversation, err := self.services.Chat.GetConversation(ctx, conversationId)
	if err != nil {
		return err
	}
	if !conversation.HasParticipant(client.claims.UserID) && !client.claims.IsAdmin() {
		self.monitor.GetReport().Socket.Errors.RejectedJoins.Inc()
		return apperr.Forbidden("Not a participant of the conversation")
	}

	self.join(client, service.ConversationRoom(conversationId))
	return nil
}

// Own room only, admins any
func (self *Hub) onJoinUserRoom(client *Client, data json.RawMessage) error {
	userId, err := stringArg(data, "user_id")
	if err != nil {
		return apperr.Validation(err)
	}
	if userId != client.claims.UserID && !client.claims.IsAdmin() {
		self.monitor.GetReport().Socket.Errors.RejectedJoins.Inc()
		return apperr.Forbidden("Can't join another user's room")
	}

	self.join(client, service.UserRoom(userId))
	return nil
}

// The service stores the message and emits newMessage to the room
func (self *Hub) onNewMessage(ctx context.Context, client *Client, data json.RawMessage) error {
	var in newMessageData
	err := decode(data, &in)
	if err != nil {
		return err
	}
	if in.ConversationID == "" || in.Body == "" {
		return apperr.BadRequest("VALIDATION_ERROR", "conversation_id and body are required")
	}

	_, err = self.services.Chat.CreateMessage(ctx, &service.MessageInput{
		ConversationID: in.ConversationID,
		SenderID:       client.claims.UserID,
		Body:           in.Body,
		Kind:           in.Kind,
		AttachmentUrl:  in.AttachmentUrl,
	})
	return err
}

func (self *Hub) onReceipt(ctx context.Context, client *Client, data json.RawMessage) (err error) {
	var in receiptData
	err = decode(data, &in)
	if err != nil {
		return
	}
	if in.UserID == "" {
		in.UserID = client.claims.UserID
	}
	if in.UserID != client.claims.UserID {
		return apperr.Forbidden("Receipts can only be updated by their owner")
	}

	switch in.State {
	case model.ReceiptStateDelivered:
		_, err = self.services.Chat.MarkMessageAsDelivered(ctx, in.MessageID, in.UserID)
	case model.ReceiptStateRead:
		_, err = self.services.Chat.MarkMessageAsRead(ctx, in.MessageID, in.UserID)
	default:
		err = apperr.BadRequest("VALIDATION_ERROR", "state must be delivered or read")
	}
	return
}

// Typing indicators go to the others in the room, only from members
func (self *Hub) onWriting(client *Client, data json.RawMessage, event string) error {
	conversationId, err := stringArg(data, "conversation_id")
	if err != nil {
		return apperr.Validation(err)
	}

	room := service.ConversationRoom(conversationId)
	if !self.isMember(client, room) {
		return apperr.Forbidden("Join the conversation first")
	}

	raw, err := json.Marshal(&WritingData{ConversationID: conversationId, UserID: client.claims.UserID})
	if err != nil {
		return err
	}
	self.broadcast(room, event, raw, client)
	return nil
}
