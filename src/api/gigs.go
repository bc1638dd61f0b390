package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/warp-contracts/marketplace/src/service"
	"github.com/warp-contracts/marketplace/src/utils/apperr"
	"github.com/warp-contracts/marketplace/src/utils/model"
)

func (self *Server) ownGig(ctx context.Context, c *gin.Context, id string) (gig *model.Gig, err error) {
	gig, err = self.services.Gigs.Get(ctx, id)
	if err != nil {
		return
	}
	if actingAs(c, gig.FreelancerID) != nil {
		return nil, apperr.Forbidden("Only the gig's freelancer can do this")
	}
	return
}

func (self *Server) onListGigs(c *gin.Context) {
	filter, ok := bindQuery[service.GigFilter](c)
	if !ok {
		return
	}

	out, err := self.services.Gigs.List(c.Request.Context(), filter)
	respond(c, out, err)
}

func (self *Server) onCreateGig(c *gin.Context) {
	in, ok := bindJSON[service.GigInput](c)
	if !ok {
		return
	}
	if err := actingAs(c, in.FreelancerID); err != nil {
		fail(c, err)
		return
	}

	out, err := self.services.Gigs.Create(c.Request.Context(), in)
	respond(c, out, err)
}

func (self *Server) onGetGig(c *gin.Context) {
	out, err := self.services.Gigs.Get(c.Request.Context(), c.Param("id"))
	respond(c, out, err)
}

func (self *Server) onUpdateGig(c *gin.Context) {
	ctx := c.Request.Context()
	in, ok := bindJSON[service.GigUpdate](c)
	if !ok {
		return
	}

	gig, err := self.ownGig(ctx, c, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	out, err := self.services.Gigs.Update(ctx, gig.ID, in)
	respond(c, out, err)
}

func (self *Server) onDeleteGig(c *gin.Context) {
	ctx := c.Request.Context()
	gig, err := self.ownGig(ctx, c, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	err = self.services.Gigs.Delete(ctx, gig.ID)
	if err != nil {
		fail(c, err)
		return
	}
	replyMessage(c, "Gig deleted")
}
