package api

import (
	"github.com/gin-gonic/gin"
)

func (self *Server) registerDatabase(g *gin.RouterGroup) {
	users := g.Group("users")
	{
		users.GET("", self.onListUsers)
		users.POST("", self.adminHandler, self.onCreateUser)
		users.GET("by-handle/:handle", self.onGetUserByHandle)
		users.GET(":id", self.onGetUser)
		users.PATCH(":id", self.onUpdateUser)
	}

	wallets := g.Group("wallets")
	{
		wallets.GET("", self.onListWallets)
		wallets.POST("", self.onAddWallet)
		wallets.PATCH(":id/primary", self.onSetPrimaryWallet)
		wallets.DELETE(":id", self.onDeleteWallet)
	}

	jobs := g.Group("jobs")
	{
		jobs.GET("", self.onListJobs)
		jobs.POST("", self.onCreateJob)
		jobs.GET(":id", self.onGetJob)
		jobs.PATCH(":id", self.onUpdateJob)
		jobs.PATCH(":id/status", self.onUpdateJobStatus)
		jobs.DELETE(":id", self.onDeleteJob)
	}

	milestones := g.Group("job-milestones")
	{
		milestones.POST("", self.onCreateMilestone)
		milestones.GET("by-job-id/:job_id", self.onListMilestonesByJob)
		milestones.GET(":id", self.onGetMilestone)
		milestones.PATCH(":id", self.onUpdateMilestone)
		milestones.PATCH(":id/status", self.onUpdateMilestoneStatus)
	}

	bids := g.Group("job-bids")
	{
		bids.POST("", self.onCreateBid)
		bids.GET("by-job-id/:job_id", self.onListBidsByJob)
		bids.GET("by-freelancer-id/:freelancer_id", self.onListBidsByFreelancer)
		bids.GET(":id", self.onGetBid)
		bids.PATCH(":id/status", self.onUpdateBidStatus)
	}

	applications := g.Group("job-applications")
	{
		applications.POST("", self.onCreateApplication)
		applications.GET("by-job-id/:job_id", self.onListApplicationsByJob)
		applications.GET("by-freelancer-id/:freelancer_id", self.onListApplicationsByFreelancer)
		applications.GET(":id", self.onGetApplication)
		applications.PATCH(":id/status", self.onUpdateApplicationStatus)
	}

	gigs := g.Group("gigs")
	{
		gigs.GET("", self.onListGigs)
		gigs.POST("", self.onCreateGig)
		gigs.GET(":id", self.onGetGig)
		gigs.PATCH(":id", self.onUpdateGig)
		gigs.DELETE(":id", self.onDeleteGig)
	}

	escrows := g.Group("escrows")
	{
		escrows.POST("", self.adminHandler, self.onCreateEscrow)
		escrows.GET("by-job-id/:job_id", self.onListEscrowsByJob)
		escrows.GET("by-milestone-id/:milestone_id", self.onGetEscrowByMilestone)
		escrows.GET(":id", self.onGetEscrow)
		escrows.GET(":id/history", self.onGetEscrowHistory)
		escrows.PATCH(":id/state", self.adminHandler, self.onUpdateEscrowState)
	}

	chainTxs := g.Group("chain-txs")
	{
		chainTxs.POST("", self.onCreateChainTx)
		chainTxs.GET("by-escrow-id/:escrow_id", self.onListChainTxsByEscrow)
		chainTxs.GET("by-user-id/:user_id", self.onListChainTxsByUser)
		chainTxs.GET(":hash", self.onGetChainTx)
		chainTxs.PATCH(":hash/status", self.adminHandler, self.onUpdateChainTxStatus)
	}

	conversations := g.Group("conversations")
	{
		conversations.GET("", self.onListConversations)
		conversations.POST("", self.onCreateConversation)
		conversations.GET(":id", self.onGetConversation)
		conversations.GET(":id/messages", self.onListMessages)
	}

	messages := g.Group("messages")
	{
		messages.POST("", self.onCreateMessage)
		messages.PATCH(":id/delivered", self.onMarkDelivered)
		messages.PATCH(":id/read", self.onMarkRead)
	}

	notifications := g.Group("notifications")
	{
		notifications.GET("", self.onListNotifications)
		notifications.GET("unread-count", self.onUnreadCount)
		notifications.PATCH("read-all", self.onMarkAllNotificationsRead)
		notifications.PATCH(":id/read", self.onMarkNotificationRead)
	}
}
