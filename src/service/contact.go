package service

import (
	"context"
	"fmt"

	"github.com/warp-contracts/marketplace/src/utils/config"
	"github.com/warp-contracts/marketplace/src/utils/model"
	"gorm.io/gorm"
)

type ContactInput struct {
	Name    string `json:"name" binding:"required,max=200"`
	Email   string `json:"email" binding:"required,email"`
	Subject string `json:"subject" binding:"required,max=200"`
	Message string `json:"message" binding:"required,max=10000"`
}

type Contact struct {
	base
}

func NewContact(config *config.Config, db *gorm.DB) (self *Contact) {
	self = new(Contact)
	self.base = newBase(config, db, nil, "contact")
	return
}

// Stores the message and queues an email to the admin
func (self *Contact) Create(ctx context.Context, in *ContactInput) (out *model.ContactMessage, err error) {
	defer self.wrap(&err)

	out = &model.ContactMessage{
		Name:    in.Name,
		Email:   in.Email,
		Subject: in.Subject,
		Message: in.Message,
	}

	err = self.db.WithContext(ctx).Transaction(func(tx *gorm.DB) (err error) {
		err = tx.Create(out).Error
		if err != nil {
			return
		}

		payload, err := jsonb(EmailPayload{
			Subject: "Contact form: " + in.Subject,
			Body:    fmt.Sprintf("From: %s <%s>\n\n%s\n", in.Name, in.Email, in.Message),
		})
		if err != nil {
			return
		}

		return tx.Create(&model.OutboxMessage{
			Channel:     model.OutboxChannelEmail,
			Destination: self.config.Smtp.AdminAddress,
			Event:       "CONTACT",
			Payload:     payload,
			MaxAttempts: self.config.Outbox.MaxAttempts,
		}).Error
	})
	if err != nil {
		return nil, err
	}
	return
}
