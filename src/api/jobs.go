package api

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/warp-contracts/marketplace/src/service"
	"github.com/warp-contracts/marketplace/src/utils/apperr"
	"github.com/warp-contracts/marketplace/src/utils/model"
)

// Job posted by the caller, admins pass for any job
func (self *Server) ownJob(ctx context.Context, c *gin.Context, jobId string) (job *model.Job, err error) {
	job, err = self.services.Jobs.Get(ctx, jobId)
	if err != nil {
		return
	}
	if !claims(c).IsAdmin() && job.ClientID != claims(c).UserID {
		return nil, apperr.Forbidden("Only the job's client can do this")
	}
	return
}

func (self *Server) onListJobs(c *gin.Context) {
	filter, ok := bindQuery[service.JobFilter](c)
	if !ok {
		return
	}

	out, err := self.services.Jobs.List(c.Request.Context(), filter)
	respond(c, out, err)
}

func (self *Server) onCreateJob(c *gin.Context) {
	in, ok := bindJSON[service.JobInput](c)
	if !ok {
		return
	}
	if err := actingAs(c, in.ClientID); err != nil {
		fail(c, err)
		return
	}

	out, err := self.services.Jobs.Create(c.Request.Context(), in)
	respond(c, out, err)
}

func (self *Server) onGetJob(c *gin.Context) {
	out, err := self.services.Jobs.Get(c.Request.Context(), c.Param("id"))
	respond(c, out, err)
}

func (self *Server) onUpdateJob(c *gin.Context) {
	ctx := c.Request.Context()
	in, ok := bindJSON[service.JobUpdate](c)
	if !ok {
		return
	}

	_, err := self.ownJob(ctx, c, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	out, err := self.services.Jobs.Update(ctx, c.Param("id"), in)
	respond(c, out, err)
}

func (self *Server) onUpdateJobStatus(c *gin.Context) {
	ctx := c.Request.Context()
	in, ok := bindJSON[statusInput[model.JobStatus]](c)
	if !ok {
		return
	}

	_, err := self.ownJob(ctx, c, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	out, err := self.services.Jobs.UpdateStatus(ctx, c.Param("id"), in.Status)
	respond(c, out, err)
}

func (self *Server) onDeleteJob(c *gin.Context) {
	ctx := c.Request.Context()
	_, err := self.ownJob(ctx, c, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	err = self.services.Jobs.Delete(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	replyMessage(c, "Job deleted")
}

func (self *Server) onCreateMilestone(c *gin.Context) {
	ctx := c.Request.Context()
	in, ok := bindJSON[service.MilestoneInput](c)
	if !ok {
		return
	}

	_, err := self.ownJob(ctx, c, in.JobID)
	if err != nil {
		fail(c, err)
		return
	}

	out, err := self.services.Milestones.Create(ctx, in)
	respond(c, out, err)
}

func (self *Server) onListMilestonesByJob(c *gin.Context) {
	out, err := self.services.Milestones.ListByJob(c.Request.Context(), c.Param("job_id"))
	respond(c, out, err)
}

func (self *Server) onGetMilestone(c *gin.Context) {
	out, err := self.services.Milestones.Get(c.Request.Context(), c.Param("id"))
	respond(c, out, err)
}

func (self *Server) onUpdateMilestone(c *gin.Context) {
	ctx := c.Request.Context()
	in, ok := bindJSON[service.MilestoneUpdate](c)
	if !ok {
		return
	}

	milestone, err := self.services.Milestones.Get(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	_, err = self.ownJob(ctx, c, milestone.JobID)
	if err != nil {
		fail(c, err)
		return
	}

	out, err := self.services.Milestones.Update(ctx, milestone.ID, in)
	respond(c, out, err)
}

// Client or the milestone's freelancer
func (self *Server) onUpdateMilestoneStatus(c *gin.Context) {
	ctx := c.Request.Context()
	in, ok := bindJSON[statusInput[model.MilestoneStatus]](c)
	if !ok {
		return
	}

	milestone, err := self.services.Milestones.Get(ctx, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	if milestone.FreelancerID != claims(c).UserID {
		_, err = self.ownJob(ctx, c, milestone.JobID)
		if err != nil {
			fail(c, err)
			return
		}
	}

	out, err := self.services.Milestones.UpdateStatus(ctx, milestone.ID, in.Status)
	respond(c, out, err)
}
