package service

import (
	"context"
	"fmt"
	"time"

	"github.com/warp-contracts/marketplace/src/utils/apperr"
	"github.com/warp-contracts/marketplace/src/utils/config"
	"github.com/warp-contracts/marketplace/src/utils/fsm"
	"github.com/warp-contracts/marketplace/src/utils/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ConversationInput struct {
	ClientID     string  `json:"client_id" binding:"required"`
	FreelancerID string  `json:"freelancer_id" binding:"required,nefield=ClientID"`
	JobID        *string `json:"job_id"`
}

type MessageInput struct {
	ConversationID string            `json:"conversation_id" binding:"required"`
	SenderID       string            `json:"sender_id" binding:"required"`
	Body           string            `json:"body" binding:"required,max=10000"`
	Kind           model.MessageKind `json:"kind" binding:"omitempty,oneof=text image file system"`
	AttachmentUrl  *string           `json:"attachment_url" binding:"omitempty,max=2048"`
}

type MessageFilter struct {
	Before *time.Time `form:"before" time_format:"2006-01-02T15:04:05Z07:00"`
	Limit  int        `form:"limit"`
}

// Payload of messageReceiptUpdated
type ReceiptUpdate struct {
	ConversationID string                `json:"conversation_id"`
	Receipt        *model.MessageReceipt `json:"receipt"`
}

// Conversations, messages and their receipts
type Chat struct {
	base
	notifications *Notifications
	emitter       Emitter
}

func NewChat(config *config.Config, db *gorm.DB, table *fsm.Table, notifications *Notifications, emitter Emitter) (self *Chat) {
	self = new(Chat)
	self.base = newBase(config, db, table, "chat")
	self.notifications = notifications
	self.emitter = emitter
	if self.emitter == nil {
		self.emitter = noopEmitter{}
	}
	return
}

func (self *Chat) WithEmitter(emitter Emitter) *Chat {
	self.emitter = emitter
	return self
}

// Returns the pair's conversation, creating it on first use
func (self *Chat) CreateConversation(ctx context.Context, tx *gorm.DB, in *ConversationInput) (out *model.Conversation, err error) {
	defer self.wrap(&err)

	if in.ClientID == in.FreelancerID {
		return nil, apperr.BadRequest("VALIDATION_ERROR", "conversation needs two different users")
	}

	err = self.inTx(ctx, tx, func(tx *gorm.DB) (err error) {
		for _, id := range []string{in.ClientID, in.FreelancerID} {
			err = exists[model.User](ctx, tx, "user", id)
			if err != nil {
				return
			}
		}

		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "client_id"}, {Name: "freelancer_id"}},
			DoNothing: true,
		}).Create(&model.Conversation{
			ClientID:     in.ClientID,
			FreelancerID: in.FreelancerID,
			JobID:        in.JobID,
		}).Error
		if err != nil {
			return
		}

		out = new(model.Conversation)
		return tx.Where("client_id = ? AND freelancer_id = ?", in.ClientID, in.FreelancerID).First(out).Error
	})
	if err != nil {
		return nil, err
	}
	return
}

func (self *Chat) GetConversation(ctx context.Context, id string) (out *model.Conversation, err error) {
	defer self.wrap(&err)
	return first[model.Conversation](ctx, self.db, "conversation", id)
}

func (self *Chat) ListConversations(ctx context.Context, userId string, page Page) (out []*model.Conversation, err error) {
	defer self.wrap(&err)

	err = page.apply(self.db.WithContext(ctx)).
		Where("client_id = ? OR freelancer_id = ?", userId, userId).
		Order("last_message_at DESC NULLS LAST, created_at DESC").
		Find(&out).
		Error
	return
}

// Inserts the message with one receipt per recipient, then tells the room
func (self *Chat) CreateMessage(ctx context.Context, in *MessageInput) (out *model.Message, err error) {
	defer self.wrap(&err)

	var conversation *model.Conversation
	err = self.db.WithContext(ctx).Transaction(func(tx *gorm.DB) (err error) {
		conversation, err = lockFirst[model.Conversation](ctx, tx, "conversation", in.ConversationID)
		if err != nil {
			return
		}
		if !conversation.HasParticipant(in.SenderID) {
			return apperr.Forbidden("Sender is not a participant of the conversation")
		}

		recipient := conversation.Counterpart(in.SenderID)
		out = &model.Message{
			ConversationID: conversation.ID,
			SenderID:       in.SenderID,
			Body:           in.Body,
			Kind:           in.Kind,
			AttachmentUrl:  in.AttachmentUrl,
			Receipts: []model.MessageReceipt{{
				UserID: recipient,
				State:  model.ReceiptStateSent,
			}},
		}
		err = tx.Create(out).Error
		if err != nil {
			return
		}

		err = tx.Model(conversation).Update("last_message_at", out.CreatedAt).Error
		if err != nil {
			return
		}

		_, err = self.notifications.Create(ctx, tx, &NotificationInput{
			UserID: recipient,
			Type:   model.NotificationTypeNewMessage,
			Target: ConversationTarget{ConversationID: conversation.ID},
			Title:  "New message",
			Body:   preview(in.Body),
			Metadata: map[string]interface{}{
				"message_id": out.ID,
				"sender_id":  in.SenderID,
			},
		})
		return
	})
	if err != nil {
		return nil, err
	}

	self.emitter.Emit(ConversationRoom(conversation.ID), self.config.Websocket.EventNewMessage, out)
	return
}

func preview(body string) string {
	runes := []rune(body)
	if len(runes) <= 120 {
		return body
	}
	return fmt.Sprintf("%s...", string(runes[:120]))
}

// Messages newest first, older pages through the before cursor
func (self *Chat) ListMessages(ctx context.Context, conversationId string, filter *MessageFilter) (out []*model.Message, err error) {
	defer self.wrap(&err)

	limit := filter.Limit
	if limit <= 0 || limit > self.config.Chat.MaxPageSize {
		limit = self.config.Chat.MaxPageSize
	}

	query := self.db.WithContext(ctx).
		Preload("Receipts").
		Where("conversation_id = ?", conversationId)
	if filter.Before != nil {
		query = query.Where("created_at < ?", filter.Before.UTC())
	}

	err = query.Order("created_at DESC").Limit(limit).Find(&out).Error
	return
}

// Moves the receipt from sent to delivered.
// Returns nil without an error when the receipt doesn't exist or is already past sent.
func (self *Chat) MarkMessageAsDelivered(ctx context.Context, messageId, userId string) (out *model.MessageReceipt, err error) {
	return self.updateReceipt(ctx, messageId, userId, model.ReceiptStateDelivered)
}

// Moves the receipt to read. Lenient policy accepts sent receipts, strict only delivered ones.
// Returns nil without an error when the transition isn't possible.
func (self *Chat) MarkMessageAsRead(ctx context.Context, messageId, userId string) (out *model.MessageReceipt, err error) {
	return self.updateReceipt(ctx, messageId, userId, model.ReceiptStateRead)
}

func (self *Chat) updateReceipt(ctx context.Context, messageId, userId string, to model.ReceiptState) (out *model.MessageReceipt, err error) {
	defer self.wrap(&err)

	var conversationId string
	err = self.db.WithContext(ctx).Transaction(func(tx *gorm.DB) (err error) {
		receipt := new(model.MessageReceipt)
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("message_id = ? AND user_id = ?", messageId, userId).
			First(receipt).
			Error
		if err != nil {
			if model.IsNotFound(err) {
				self.log.WithField("message_id", messageId).WithField("user_id", userId).Warn("Receipt not found")
				return nil
			}
			return
		}

		noop, err := fsm.Check(self.fsm, fsm.EntityReceipt, receipt.State, to)
		if err != nil || noop {
			self.log.WithField("message_id", messageId).
				WithField("user_id", userId).
				WithField("state", receipt.State).
				WithField("to", to).
				Warn("Receipt can't be updated")
			return nil
		}

		now := time.Now().UTC()
		updates := map[string]interface{}{"state": to}
		if receipt.DeliveredAt == nil {
			updates["delivered_at"] = now
			receipt.DeliveredAt = &now
		}
		if to == model.ReceiptStateRead {
			updates["read_at"] = now
			receipt.ReadAt = &now
		}

		err = tx.Model(receipt).Updates(updates).Error
		if err != nil {
			return
		}
		receipt.State = to

		message, err := first[model.Message](ctx, tx, "message", messageId)
		if err != nil {
			return
		}
		conversationId = message.ConversationID

		out = receipt
		return
	})
	if err != nil || out == nil {
		return nil, err
	}

	self.emitter.Emit(ConversationRoom(conversationId), self.config.Websocket.EventMessageReceiptUpdated, &ReceiptUpdate{
		ConversationID: conversationId,
		Receipt:        out,
	})
	return
}
