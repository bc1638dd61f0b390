package api

import (
	"github.com/gin-gonic/gin"
	"github.com/warp-contracts/marketplace/src/service"
	"github.com/warp-contracts/marketplace/src/utils/model"
)

func (self *Server) onCreateBid(c *gin.Context) {
	in, ok := bindJSON[service.BidInput](c)
	if !ok {
		return
	}
	if err := actingAs(c, in.FreelancerID); err != nil {
		fail(c, err)
		return
	}

	out, err := self.services.Bids.Create(c.Request.Context(), in)
	respond(c, out, err)
}

func (self *Server) onGetBid(c *gin.Context) {
	out, err := self.services.Bids.Get(c.Request.Context(), c.Param("id"))
	respond(c, out, err)
}

func (self *Server) onListBidsByJob(c *gin.Context) {
	page, ok := bindQuery[service.Page](c)
	if !ok {
		return
	}

	out, err := self.services.Bids.ListByJob(c.Request.Context(), c.Param("job_id"), *page)
	respond(c, out, err)
}

func (self *Server) onListBidsByFreelancer(c *gin.Context) {
	page, ok := bindQuery[service.Page](c)
	if !ok {
		return
	}

	out, err := self.services.Bids.ListByFreelancer(c.Request.Context(), c.Param("freelancer_id"), *page)
	respond(c, out, err)
}

// Client accepts or rejects, the freelancer withdraws
func (self *Server) onUpdateBidStatus(c *gin.Context) {
	ctx := c.Request.Context()
	in, ok := bindJSON[statusInput[model.BidStatus]](c)
	if !ok {
		return
	}

	bid, err := self.services.Bids.Get(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if in.Status == model.BidStatusWithdrawn {
		err = actingAs(c, bid.FreelancerID)
	} else {
		_, err = self.ownJob(ctx, c, bid.JobID)
	}
	if err != nil {
		fail(c, err)
		return
	}

	out, err := self.services.Bids.UpdateStatus(ctx, bid.ID, in.Status)
	respond(c, out, err)
}

func (self *Server) onCreateApplication(c *gin.Context) {
	in, ok := bindJSON[service.ApplicationInput](c)
	if !ok {
		return
	}
	if err := actingAs(c, in.FreelancerID); err != nil {
		fail(c, err)
		return
	}

	out, err := self.services.Applications.Create(c.Request.Context(), in)
	respond(c, out, err)
}

func (self *Server) onGetApplication(c *gin.Context) {
	out, err := self.services.Applications.Get(c.Request.Context(), c.Param("id"))
	respond(c, out, err)
}

func (self *Server) onListApplicationsByJob(c *gin.Context) {
	page, ok := bindQuery[service.Page](c)
	if !ok {
		return
	}

	out, err := self.services.Applications.ListByJob(c.Request.Context(), c.Param("job_id"), *page)
	respond(c, out, err)
}

func (self *Server) onListApplicationsByFreelancer(c *gin.Context) {
	page, ok := bindQuery[service.Page](c)
	if !ok {
		return
	}

	out, err := self.services.Applications.ListByFreelancer(c.Request.Context(), c.Param("freelancer_id"), *page)
	respond(c, out, err)
}

func (self *Server) onUpdateApplicationStatus(c *gin.Context) {
	ctx := c.Request.Context()
	in, ok := bindJSON[statusInput[model.ApplicationStatus]](c)
	if !ok {
		return
	}

	application, err := self.services.Applications.Get(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if in.Status == model.ApplicationStatusWithdrawn {
		err = actingAs(c, application.FreelancerID)
	} else {
		_, err = self.ownJob(ctx, c, application.JobID)
	}
	if err != nil {
		fail(c, err)
		return
	}

	out, err := self.services.Applications.UpdateStatus(ctx, application.ID, in.Status)
	respond(c, out, err)
}
