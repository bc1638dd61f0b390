package api

import (
	"github.com/gin-gonic/gin"
	"github.com/warp-contracts/marketplace/src/service"
)

// Escrow mirror. Writes are admin only, parties go through /contract/escrow.

func (self *Server) onCreateEscrow(c *gin.Context) {
	in, ok := bindJSON[service.EscrowInput](c)
	if !ok {
		return
	}

	out, err := self.services.Escrows.Create(c.Request.Context(), nil, in)
	respond(c, out, err)
}

func (self *Server) onGetEscrow(c *gin.Context) {
	out, err := self.services.Escrows.Get(c.Request.Context(), c.Param("id"))
	respond(c, out, err)
}

func (self *Server) onGetEscrowByMilestone(c *gin.Context) {
	out, err := self.services.Escrows.GetByMilestone(c.Request.Context(), c.Param("milestone_id"))
	respond(c, out, err)
}

func (self *Server) onListEscrowsByJob(c *gin.Context) {
	out, err := self.services.Escrows.ListByJob(c.Request.Context(), c.Param("job_id"))
	respond(c, out, err)
}

func (self *Server) onGetEscrowHistory(c *gin.Context) {
	out, err := self.services.Escrows.History(c.Request.Context(), c.Param("id"))
	respond(c, out, err)
}

func (self *Server) onUpdateEscrowState(c *gin.Context) {
	in, ok := bindJSON[service.EscrowStateInput](c)
	if !ok {
		return
	}
	if in.ActorUserID == nil {
		in.ActorUserID = &claims(c).UserID
	}

	out, err := self.services.Escrows.UpdateState(c.Request.Context(), c.Param("id"), in)
	respond(c, out, err)
}

func (self *Server) onCreateChainTx(c *gin.Context) {
	in, ok := bindJSON[service.ChainTxInput](c)
	if !ok {
		return
	}
	if in.UserID == nil {
		in.UserID = &claims(c).UserID
	}
	if err := actingAs(c, *in.UserID); err != nil {
		fail(c, err)
		return
	}

	out, err := self.services.ChainTxs.Create(c.Request.Context(), nil, in)
	respond(c, out, err)
}

func (self *Server) onGetChainTx(c *gin.Context) {
	out, err := self.services.ChainTxs.GetByHash(c.Request.Context(), c.Param("hash"))
	respond(c, out, err)
}

func (self *Server) onListChainTxsByEscrow(c *gin.Context) {
	page, ok := bindQuery[service.Page](c)
	if !ok {
		return
	}

	out, err := self.services.ChainTxs.ListByEscrow(c.Request.Context(), c.Param("escrow_id"), *page)
	respond(c, out, err)
}

func (self *Server) onListChainTxsByUser(c *gin.Context) {
	userId := c.Param("user_id")
	if err := actingAs(c, userId); err != nil {
		fail(c, err)
		return
	}

	page, ok := bindQuery[service.Page](c)
	if !ok {
		return
	}

	out, err := self.services.ChainTxs.ListByUser(c.Request.Context(), userId, *page)
	respond(c, out, err)
}

func (self *Server) onUpdateChainTxStatus(c *gin.Context) {
	in, ok := bindJSON[service.ChainTxStatusInput](c)
	if !ok {
		return
	}

	out, err := self.services.ChainTxs.UpdateStatus(c.Request.Context(), nil, c.Param("hash"), in)
	respond(c, out, err)
}
