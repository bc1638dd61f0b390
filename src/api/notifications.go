package api

import (
	"github.com/gin-gonic/gin"
	"github.com/warp-contracts/marketplace/src/service"
)

type notificationFilter struct {
	UnreadOnly bool `form:"unread_only"`
	service.Page
}

func (self *Server) onListNotifications(c *gin.Context) {
	filter, ok := bindQuery[notificationFilter](c)
	if !ok {
		return
	}

	out, err := self.services.Notifications.List(c.Request.Context(), claims(c).UserID, filter.UnreadOnly, filter.Page)
	respond(c, out, err)
}

func (self *Server) onUnreadCount(c *gin.Context) {
	count, err := self.services.Notifications.UnreadCount(c.Request.Context(), claims(c).UserID)
	respond(c, gin.H{"count": count}, err)
}

func (self *Server) onMarkNotificationRead(c *gin.Context) {
	out, err := self.services.Notifications.MarkRead(c.Request.Context(), claims(c).UserID, c.Param("id"))
	respond(c, out, err)
}

func (self *Server) onMarkAllNotificationsRead(c *gin.Context) {
	count, err := self.services.Notifications.MarkAllRead(c.Request.Context(), claims(c).UserID)
	respond(c, gin.H{"updated": count}, err)
}
