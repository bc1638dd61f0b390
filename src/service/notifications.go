package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgtype"
	"github.com/warp-contracts/marketplace/src/utils/apperr"
	"github.com/warp-contracts/marketplace/src/utils/config"
	"github.com/warp-contracts/marketplace/src/utils/model"
	"gorm.io/gorm"
)

type NotificationInput struct {
	UserID   string
	Type     model.NotificationType
	Target   Target
	Title    string
	Body     string
	Metadata map[string]interface{}
}

// Payload of an email outbox message
type EmailPayload struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

type Notifications struct {
	base
}

func NewNotifications(config *config.Config, db *gorm.DB) (self *Notifications) {
	self = new(Notifications)
	self.base = newBase(config, db, nil, "notification")
	return
}

func jsonb(v interface{}) (out pgtype.JSONB, err error) {
	buf, err := json.Marshal(v)
	if err != nil {
		return
	}
	return pgtype.JSONB{Bytes: buf, Status: pgtype.Present}, nil
}

// Inserts the notification and its outbox messages in one transaction
func (self *Notifications) Create(ctx context.Context, tx *gorm.DB, in *NotificationInput) (out *model.Notification, err error) {
	defer self.wrap(&err)

	err = self.inTx(ctx, tx, func(tx *gorm.DB) (err error) {
		user, err := first[model.User](ctx, tx, "user", in.UserID)
		if err != nil {
			return
		}

		out = &model.Notification{
			UserID:     in.UserID,
			Type:       in.Type,
			EntityType: in.Target.EntityType(),
			EntityID:   in.Target.EntityID(),
			Title:      in.Title,
			Body:       in.Body,
			ActionUrl:  actionUrl(self.config.API.FrontendUrl, in.Target),
		}
		if in.Metadata != nil {
			out.Metadata, err = jsonb(in.Metadata)
			if err != nil {
				return
			}
		}

		err = tx.WithContext(ctx).Create(out).Error
		if err != nil {
			return
		}

		messages, err := self.outboxMessages(user, out)
		if err != nil {
			return
		}
		return tx.WithContext(ctx).Create(&messages).Error
	})
	if err != nil {
		return nil, err
	}
	return
}

// Socket message to the user's room, email when the user has an address
func (self *Notifications) outboxMessages(user *model.User, notification *model.Notification) (out []model.OutboxMessage, err error) {
	payload, err := jsonb(notification)
	if err != nil {
		return
	}

	out = append(out, model.OutboxMessage{
		NotificationID: &notification.ID,
		Channel:        model.OutboxChannelSocket,
		Destination:    UserRoom(user.ID),
		Event:          self.config.Websocket.EventNewNotification,
		Payload:        payload,
		MaxAttempts:    self.config.Outbox.MaxAttempts,
	})

	if user.Email == nil || *user.Email == "" {
		return
	}

	payload, err = jsonb(EmailPayload{
		Subject: notification.Title,
		Body:    fmt.Sprintf("%s\n\n%s\n", notification.Body, notification.ActionUrl),
	})
	if err != nil {
		return
	}

	out = append(out, model.OutboxMessage{
		NotificationID: &notification.ID,
		Channel:        model.OutboxChannelEmail,
		Destination:    *user.Email,
		Event:          string(notification.Type),
		Payload:        payload,
		MaxAttempts:    self.config.Outbox.MaxAttempts,
	})
	return
}

func (self *Notifications) List(ctx context.Context, userId string, unreadOnly bool, page Page) (out []*model.Notification, err error) {
	defer self.wrap(&err)

	query := self.db.WithContext(ctx).Where("user_id = ?", userId)
	if unreadOnly {
		query = query.Where("read_at IS NULL")
	}
	err = page.apply(query).Order("created_at DESC").Find(&out).Error
	return
}

func (self *Notifications) UnreadCount(ctx context.Context, userId string) (count int64, err error) {
	defer self.wrap(&err)

	err = self.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userId).
		Count(&count).
		Error
	return
}

// Marks a notification of the user as read, reading twice is fine
func (self *Notifications) MarkRead(ctx context.Context, userId, id string) (out *model.Notification, err error) {
	defer self.wrap(&err)

	out = new(model.Notification)
	err = self.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userId).First(out).Error
	if err != nil {
		if model.IsNotFound(err) {
			return nil, apperr.NotFound("notification")
		}
		return nil, err
	}

	if out.ReadAt != nil {
		return
	}

	now := time.Now().UTC()
	err = self.db.WithContext(ctx).Model(out).Update("read_at", now).Error
	if err != nil {
		return nil, err
	}
	out.ReadAt = &now
	return
}

func (self *Notifications) MarkAllRead(ctx context.Context, userId string) (count int64, err error) {
	defer self.wrap(&err)

	res := self.db.WithContext(ctx).
		Model(&model.Notification{}).
		Where("user_id = ? AND read_at IS NULL", userId).
		Update("read_at", time.Now().UTC())
	return res.RowsAffected, res.Error
}
