package api

import (
	"github.com/gin-gonic/gin"
	"github.com/warp-contracts/marketplace/src/service"
)

type statusInput[T ~string] struct {
	Status T `json:"status" binding:"required"`
}

func (self *Server) onListUsers(c *gin.Context) {
	filter, ok := bindQuery[service.UserFilter](c)
	if !ok {
		return
	}

	out, err := self.services.Users.List(c.Request.Context(), filter)
	respond(c, out, err)
}

func (self *Server) onCreateUser(c *gin.Context) {
	in, ok := bindJSON[service.UserInput](c)
	if !ok {
		return
	}

	out, err := self.services.Users.Create(c.Request.Context(), in)
	respond(c, out, err)
}

func (self *Server) onGetUser(c *gin.Context) {
	out, err := self.services.Users.Get(c.Request.Context(), c.Param("id"))
	respond(c, out, err)
}

func (self *Server) onGetUserByHandle(c *gin.Context) {
	out, err := self.services.Users.GetByHandle(c.Request.Context(), c.Param("handle"))
	respond(c, out, err)
}

func (self *Server) onUpdateUser(c *gin.Context) {
	id := c.Param("id")
	if err := actingAs(c, id); err != nil {
		fail(c, err)
		return
	}

	in, ok := bindJSON[service.UserUpdate](c)
	if !ok {
		return
	}

	out, err := self.services.Users.Update(c.Request.Context(), id, in)
	respond(c, out, err)
}

// Wallets always belong to the caller

func (self *Server) onListWallets(c *gin.Context) {
	out, err := self.services.Wallets.ListByUser(c.Request.Context(), claims(c).UserID)
	respond(c, out, err)
}

func (self *Server) onAddWallet(c *gin.Context) {
	in, ok := bindJSON[service.WalletInput](c)
	if !ok {
		return
	}

	out, err := self.services.Wallets.Add(c.Request.Context(), claims(c).UserID, in)
	respond(c, out, err)
}

func (self *Server) onSetPrimaryWallet(c *gin.Context) {
	out, err := self.services.Wallets.SetPrimary(c.Request.Context(), claims(c).UserID, c.Param("id"))
	respond(c, out, err)
}

func (self *Server) onDeleteWallet(c *gin.Context) {
	err := self.services.Wallets.Delete(c.Request.Context(), claims(c).UserID, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	replyMessage(c, "Wallet deleted")
}
