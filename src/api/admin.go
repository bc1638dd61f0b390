package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/warp-contracts/marketplace/src/service"
	"github.com/warp-contracts/marketplace/src/utils/apperr"
	. "github.com/warp-contracts/marketplace/src/utils/logger"
	"github.com/warp-contracts/marketplace/src/utils/model"
)

type roleInput struct {
	Role model.UserRole `json:"role" binding:"required,oneof=client freelancer admin"`
}

type outboxFilter struct {
	Status model.OutboxStatus `form:"status" binding:"omitempty,oneof=pending processing delivered failed"`
	service.Page
}

func (self *Server) registerAdmin(g *gin.RouterGroup) {
	g.GET("settings", self.onGetSettings)
	g.PATCH("settings", self.onUpdateSettings)
	g.GET("state", self.onGetState)
	g.PATCH("users/:id/role", self.onSetRole)
	g.POST("reconcile", self.onReconcile)

	outbox := g.Group("outbox")
	{
		outbox.GET("", self.onListOutbox)
		outbox.POST("requeue-failed", self.onRequeueFailed)
		outbox.POST(":id/requeue", self.onRequeue)
	}
}

func (self *Server) onGetSettings(c *gin.Context) {
	out, err := self.services.Settings.Get(c.Request.Context())
	respond(c, out, err)
}

func (self *Server) onUpdateSettings(c *gin.Context) {
	in, ok := bindJSON[service.SettingsUpdate](c)
	if !ok {
		return
	}

	out, err := self.services.Settings.Update(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}

	LOG(c).WithField("admin", claims(c).UserID).Info("Settings updated")
	reply(c, out)
}

func (self *Server) onGetState(c *gin.Context) {
	out, err := self.services.Settings.GetState(c.Request.Context())
	respond(c, out, err)
}

func (self *Server) onSetRole(c *gin.Context) {
	in, ok := bindJSON[roleInput](c)
	if !ok {
		return
	}

	out, err := self.services.Users.SetRole(c.Request.Context(), c.Param("id"), in.Role)
	respond(c, out, err)
}

// Runs a reconciliation pass now
func (self *Server) onReconcile(c *gin.Context) {
	if self.reconciler == nil {
		fail(c, apperr.Unavailable("RECONCILER_DISABLED", "Reconciler is not running in this process"))
		return
	}
	if !self.chain(c) {
		return
	}

	out, err := self.reconciler.Run(c.Request.Context())
	respond(c, out, err)
}

func (self *Server) onListOutbox(c *gin.Context) {
	filter, ok := bindQuery[outboxFilter](c)
	if !ok {
		return
	}
	if filter.Status == "" {
		filter.Status = model.OutboxStatusFailed
	}

	out, err := self.services.Outbox.List(c.Request.Context(), filter.Status, filter.Page)
	respond(c, out, err)
}

func (self *Server) onRequeue(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		fail(c, apperr.BadRequest("INVALID_ID", "Outbox message id must be a number"))
		return
	}

	out, err := self.services.Outbox.Requeue(c.Request.Context(), id)
	respond(c, out, err)
}

func (self *Server) onRequeueFailed(c *gin.Context) {
	count, err := self.services.Outbox.RequeueFailed(c.Request.Context())
	respond(c, gin.H{"requeued": count}, err)
}
