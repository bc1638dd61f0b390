package api

import (
	"github.com/gin-gonic/gin"
	"github.com/warp-contracts/marketplace/src/service"
	. "github.com/warp-contracts/marketplace/src/utils/logger"
)

func (self *Server) onNonce(c *gin.Context) {
	in, ok := bindJSON[service.NonceInput](c)
	if !ok {
		return
	}

	out, err := self.services.Auth.Nonce(c.Request.Context(), in)
	respond(c, out, err)
}

// Verifies the wallet signature and issues a token
func (self *Server) onVerify(c *gin.Context) {
	in, ok := bindJSON[service.LoginInput](c)
	if !ok {
		return
	}

	out, err := self.services.Auth.Login(c.Request.Context(), in)
	if err != nil {
		fail(c, err)
		return
	}

	LOG(c).WithField("user_id", out.User.ID).WithField("created", out.Created).Info("Wallet login")
	reply(c, out)
}

func (self *Server) onMe(c *gin.Context) {
	out, err := self.services.Users.Get(c.Request.Context(), claims(c).UserID)
	respond(c, out, err)
}

func (self *Server) onContact(c *gin.Context) {
	in, ok := bindJSON[service.ContactInput](c)
	if !ok {
		return
	}

	out, err := self.services.Contact.Create(c.Request.Context(), in)
	respond(c, out, err)
}
