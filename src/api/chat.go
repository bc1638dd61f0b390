package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/warp-contracts/marketplace/src/service"
	"github.com/warp-contracts/marketplace/src/utils/apperr"
	"github.com/warp-contracts/marketplace/src/utils/model"
)

func (self *Server) participant(ctx context.Context, c *gin.Context, conversationId string) (out *model.Conversation, err error) {
	out, err = self.services.Chat.GetConversation(ctx, conversationId)
	if err != nil {
		return
	}
	caller := claims(c)
	if !caller.IsAdmin() && caller.UserID != out.ClientID && caller.UserID != out.FreelancerID {
		return nil, apperr.Forbidden("Not a participant of this conversation")
	}
	return
}

func (self *Server) onListConversations(c *gin.Context) {
	page, ok := bindQuery[service.Page](c)
	if !ok {
		return
	}

	out, err := self.services.Chat.ListConversations(c.Request.Context(), claims(c).UserID, *page)
	respond(c, out, err)
}

func (self *Server) onCreateConversation(c *gin.Context) {
	in, ok := bindJSON[service.ConversationInput](c)
	if !ok {
		return
	}
	if actingAs(c, in.ClientID) != nil && actingAs(c, in.FreelancerID) != nil {
		fail(c, apperr.Forbidden("Not a participant of this conversation"))
		return
	}

	out, err := self.services.Chat.CreateConversation(c.Request.Context(), nil, in)
	respond(c, out, err)
}

func (self *Server) onGetConversation(c *gin.Context) {
	out, err := self.participant(c.Request.Context(), c, c.Param("id"))
	respond(c, out, err)
}

func (self *Server) onListMessages(c *gin.Context) {
	ctx := c.Request.Context()
	filter, ok := bindQuery[service.MessageFilter](c)
	if !ok {
		return
	}

	conversation, err := self.participant(ctx, c, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	out, err := self.services.Chat.ListMessages(ctx, conversation.ID, filter)
	respond(c, out, err)
}

func (self *Server) onCreateMessage(c *gin.Context) {
	ctx := c.Request.Context()
	in, ok := bindJSON[service.MessageInput](c)
	if !ok {
		return
	}
	if err := actingAs(c, in.SenderID); err != nil {
		fail(c, err)
		return
	}

	out, err := self.services.Chat.CreateMessage(ctx, in)
	respond(c, out, err)
}

// Null data when the receipt didn't change
func (self *Server) onMarkDelivered(c *gin.Context) {
	out, err := self.services.Chat.MarkMessageAsDelivered(c.Request.Context(), c.Param("id"), claims(c).UserID)
	respond(c, out, err)
}

func (self *Server) onMarkRead(c *gin.Context) {
	out, err := self.services.Chat.MarkMessageAsRead(c.Request.Context(), c.Param("id"), claims(c).UserID)
	respond(c, out, err)
}
