package api

import (
	"github.com/gin-gonic/gin"
	"github.com/warp-contracts/marketplace/src/contract"
	"github.com/warp-contracts/marketplace/src/utils/apperr"
)

func (self *Server) registerContract(g *gin.RouterGroup) {
	escrow := g.Group("escrow")
	{
		escrow.GET(":id", self.onGetEscrowState)
		escrow.POST(":id/fund", self.onFund)
		escrow.POST(":id/deliver", self.onDeliver)
		escrow.POST(":id/approve", self.onApprove)
		escrow.POST(":id/withdraw", self.onWithdraw)
		escrow.POST(":id/dispute", self.onDispute)
		escrow.POST(":id/resolve", self.onResolve)
		escrow.POST(":id/cancel", self.onCancel)
	}

	factory := g.Group("factory")
	{
		factory.GET("", self.onGetFactoryConfig)
		factory.POST("escrows", self.onDeployEscrow)
	}

	rewards := g.Group("rewards")
	{
		rewards.GET("", self.onGetRewardsConfig)
		rewards.GET("balance/:address", self.onGetTokenBalance)
		rewards.GET("pending/:address", self.onGetPendingRewards)
		rewards.PUT("rate", self.adminHandler, self.onSetRewardRate)
		rewards.POST("distribute", self.adminHandler, self.onDistribute)
	}
}

func (self *Server) chain(c *gin.Context) bool {
	if self.contract == nil || !self.contract.Enabled() {
		fail(c, apperr.Unavailable("CHAIN_DISABLED", "Chain integration is not configured"))
		return false
	}
	return true
}

func (self *Server) onGetEscrowState(c *gin.Context) {
	if !self.chain(c) {
		return
	}
	out, err := self.contract.State(c.Request.Context(), c.Param("id"))
	respond(c, out, err)
}

func (self *Server) onFund(c *gin.Context) {
	if !self.chain(c) {
		return
	}
	out, err := self.contract.Fund(c.Request.Context(), claims(c), c.Param("id"))
	respond(c, out, err)
}

func (self *Server) onDeliver(c *gin.Context) {
	if !self.chain(c) {
		return
	}
	in, ok := bindJSON[contract.DeliverInput](c)
	if !ok {
		return
	}

	out, err := self.contract.Deliver(c.Request.Context(), claims(c), c.Param("id"), in)
	respond(c, out, err)
}

func (self *Server) onApprove(c *gin.Context) {
	if !self.chain(c) {
		return
	}
	out, err := self.contract.Approve(c.Request.Context(), claims(c), c.Param("id"))
	respond(c, out, err)
}

func (self *Server) onWithdraw(c *gin.Context) {
	if !self.chain(c) {
		return
	}
	out, err := self.contract.Withdraw(c.Request.Context(), claims(c), c.Param("id"))
	respond(c, out, err)
}

func (self *Server) onDispute(c *gin.Context) {
	if !self.chain(c) {
		return
	}
	in, ok := bindJSON[contract.DisputeInput](c)
	if !ok {
		return
	}

	out, err := self.contract.Dispute(c.Request.Context(), claims(c), c.Param("id"), in)
	respond(c, out, err)
}

func (self *Server) onResolve(c *gin.Context) {
	if !self.chain(c) {
		return
	}
	in, ok := bindJSON[contract.ResolveInput](c)
	if !ok {
		return
	}

	out, err := self.contract.Resolve(c.Request.Context(), claims(c), c.Param("id"), in)
	respond(c, out, err)
}

func (self *Server) onCancel(c *gin.Context) {
	if !self.chain(c) {
		return
	}
	out, err := self.contract.Cancel(c.Request.Context(), claims(c), c.Param("id"))
	respond(c, out, err)
}

func (self *Server) onGetFactoryConfig(c *gin.Context) {
	if !self.chain(c) {
		return
	}
	out, err := self.contract.FactoryConfig(c.Request.Context())
	respond(c, out, err)
}

func (self *Server) onDeployEscrow(c *gin.Context) {
	if !self.chain(c) {
		return
	}
	in, ok := bindJSON[contract.DeployInput](c)
	if !ok {
		return
	}

	out, err := self.contract.Deploy(c.Request.Context(), claims(c), in)
	respond(c, out, err)
}

func (self *Server) onGetRewardsConfig(c *gin.Context) {
	if !self.chain(c) {
		return
	}
	out, err := self.contract.RewardsConfig(c.Request.Context())
	respond(c, out, err)
}

func (self *Server) onGetTokenBalance(c *gin.Context) {
	if !self.chain(c) {
		return
	}
	balance, err := self.contract.TokenBalance(c.Request.Context(), c.Param("address"))
	if err != nil {
		fail(c, err)
		return
	}
	reply(c, gin.H{"address": c.Param("address"), "balance": balance.String()})
}

func (self *Server) onGetPendingRewards(c *gin.Context) {
	if !self.chain(c) {
		return
	}
	pending, err := self.contract.PendingRewards(c.Request.Context(), c.Param("address"))
	if err != nil {
		fail(c, err)
		return
	}
	reply(c, gin.H{"address": c.Param("address"), "pending": pending.String()})
}

func (self *Server) onSetRewardRate(c *gin.Context) {
	if !self.chain(c) {
		return
	}
	in, ok := bindJSON[contract.RewardRateInput](c)
	if !ok {
		return
	}

	out, err := self.contract.SetRewardRate(c.Request.Context(), claims(c), in)
	respond(c, out, err)
}

func (self *Server) onDistribute(c *gin.Context) {
	if !self.chain(c) {
		return
	}
	in, ok := bindJSON[contract.DistributeInput](c)
	if !ok {
		return
	}

	out, err := self.contract.Distribute(c.Request.Context(), claims(c), in)
	respond(c, out, err)
}
