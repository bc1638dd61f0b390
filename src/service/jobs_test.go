package service

import (
	"net/http"

	"github.com/stretchr/testify/require"
	"github.com/warp-contracts/marketplace/src/utils/apperr"
	"github.com/warp-contracts/marketplace/src/utils/model"
)

func (s *ServiceTestSuite) TestJobCreateDefaultsToOpen() {
	job := s.createJob()
	require.Equal(s.T(), model.JobStatusOpen, job.Status)
	require.NotEmpty(s.T(), job.ID)

	got, err := s.services.Jobs.Get(s.ctx, job.ID)
	require.NoError(s.T(), err)
	require.Equal(s.T(), job.Title, got.Title)
}

func (s *ServiceTestSuite) TestJobCreateUnknownClient() {
	_, err := s.services.Jobs.Create(s.ctx, &JobInput{ClientID: "nobody", Title: "t", DescriptionMd: "d"})
	s.requireCode(err, "USER_NOT_FOUND")
}

func (s *ServiceTestSuite) TestJobGetMissing() {
	_, err := s.services.Jobs.Get(s.ctx, "missing")
	appErr, ok := apperr.As(err)
	require.True(s.T(), ok)
	require.Equal(s.T(), http.StatusNotFound, appErr.StatusCode)
	require.Equal(s.T(), "JOB_NOT_FOUND", appErr.Code)
}

func (s *ServiceTestSuite) TestJobListFilters() {
	s.createJob()
	_, err := s.services.Jobs.Create(s.ctx, &JobInput{
		ClientID:      s.client.ID,
		Title:         "Smart contract audit",
		DescriptionMd: "Audit",
		Status:        model.JobStatusDraft,
		Skills:        []string{"solidity", "security"},
	})
	require.NoError(s.T(), err)

	open, err := s.services.Jobs.List(s.ctx, &JobFilter{Status: model.JobStatusOpen})
	require.NoError(s.T(), err)
	require.Len(s.T(), open, 1)

	bySkill, err := s.services.Jobs.List(s.ctx, &JobFilter{Skill: "solidity"})
	require.NoError(s.T(), err)
	require.Len(s.T(), bySkill, 1)
	require.Equal(s.T(), "Smart contract audit", bySkill[0].Title)
	require.Equal(s.T(), model.StringArray{"solidity", "security"}, bySkill[0].Skills)
}

func (s *ServiceTestSuite) TestJobStatusTransitions() {
	job := s.createJob()

	// Same status is a no-op
	same, err := s.services.Jobs.UpdateStatus(s.ctx, job.ID, model.JobStatusOpen)
	require.NoError(s.T(), err)
	require.Equal(s.T(), model.JobStatusOpen, same.Status)
	require.Empty(s.T(), s.notificationsOf(s.client.ID, model.NotificationTypeJobStatusChanged))

	// Open can't jump to completed
	_, err = s.services.Jobs.UpdateStatus(s.ctx, job.ID, model.JobStatusCompleted)
	s.requireCode(err, "INVALID_TRANSITION")

	started, err := s.services.Jobs.UpdateStatus(s.ctx, job.ID, model.JobStatusInProgress)
	require.NoError(s.T(), err)
	require.Equal(s.T(), model.JobStatusInProgress, started.Status)
	require.Len(s.T(), s.notificationsOf(s.client.ID, model.NotificationTypeJobStatusChanged), 1)

	// Editing is over once work started
	title := "New title"
	_, err = s.services.Jobs.Update(s.ctx, job.ID, &JobUpdate{Title: &title})
	s.requireCode(err, "INVALID_TRANSITION")
}

func (s *ServiceTestSuite) TestJobCancelNotifiesBidders() {
	job := s.createJob()
	_, err := s.services.Bids.Create(s.ctx, &BidInput{JobID: job.ID, FreelancerID: s.freelancer.ID})
	require.NoError(s.T(), err)

	_, err = s.services.Jobs.UpdateStatus(s.ctx, job.ID, model.JobStatusCancelled)
	require.NoError(s.T(), err)

	require.Len(s.T(), s.notificationsOf(s.freelancer.ID, model.NotificationTypeJobStatusChanged), 1)
	require.Empty(s.T(), s.notificationsOf(s.client.ID, model.NotificationTypeJobStatusChanged))
}

func (s *ServiceTestSuite) TestJobDelete() {
	job := s.createJob()
	err := s.services.Jobs.Delete(s.ctx, job.ID)
	s.requireCode(err, "INVALID_TRANSITION")

	_, err = s.services.Jobs.UpdateStatus(s.ctx, job.ID, model.JobStatusCancelled)
	require.NoError(s.T(), err)
	require.NoError(s.T(), s.services.Jobs.Delete(s.ctx, job.ID))

	_, err = s.services.Jobs.Get(s.ctx, job.ID)
	s.requireCode(err, "JOB_NOT_FOUND")
}

func (s *ServiceTestSuite) TestJobWithEscrowIsNotDeleted() {
	escrow := s.createEscrow()
	_, err := s.services.Jobs.UpdateStatus(s.ctx, escrow.JobID, model.JobStatusCancelled)
	require.NoError(s.T(), err)

	err = s.services.Jobs.Delete(s.ctx, escrow.JobID)
	s.requireCode(err, "JOB_HAS_ESCROW")
	appErr, ok := apperr.As(err)
	require.True(s.T(), ok)
	require.Equal(s.T(), http.StatusBadRequest, appErr.StatusCode)

	_, err = s.services.Jobs.Get(s.ctx, escrow.JobID)
	require.NoError(s.T(), err)
	_, err = s.services.Milestones.Get(s.ctx, escrow.MilestoneID)
	require.NoError(s.T(), err)
}

func (s *ServiceTestSuite) TestMilestoneReferencedByEscrowIsKept() {
	escrow := s.createEscrow()
	err := s.db.Where("id = ?", escrow.MilestoneID).Delete(&model.JobMilestone{}).Error
	require.Error(s.T(), err)
}

func (s *ServiceTestSuite) TestMilestoneOrderAndAmount() {
	job := s.createJob()
	first := s.createMilestone(job)
	second := s.createMilestone(job)
	require.Equal(s.T(), 0, first.OrderIndex)
	require.Equal(s.T(), 1, second.OrderIndex)

	index := 1
	_, err := s.services.Milestones.Create(s.ctx, &MilestoneInput{
		JobID: job.ID, FreelancerID: s.freelancer.ID, Title: "dup", Amount: "5", OrderIndex: &index,
	})
	s.requireCode(err, "JOB_MILESTONE_ALREADY_EXISTS")

	_, err = s.services.Milestones.Create(s.ctx, &MilestoneInput{
		JobID: job.ID, FreelancerID: s.freelancer.ID, Title: "zero", Amount: "0",
	})
	s.requireCode(err, "VALIDATION_ERROR")

	list, err := s.services.Milestones.ListByJob(s.ctx, job.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), list, 2)
}

func (s *ServiceTestSuite) TestMilestoneStatusNotifiesBothSides() {
	milestone := s.createMilestone(s.createJob())

	_, err := s.services.Milestones.UpdateStatus(s.ctx, milestone.ID, model.MilestoneStatusPaid)
	s.requireCode(err, "INVALID_TRANSITION")

	updated, err := s.services.Milestones.UpdateStatus(s.ctx, milestone.ID, model.MilestoneStatusInProgress)
	require.NoError(s.T(), err)
	require.Equal(s.T(), model.MilestoneStatusInProgress, updated.Status)

	require.Len(s.T(), s.notificationsOf(s.client.ID, model.NotificationTypeMilestoneUpdated), 1)
	require.Len(s.T(), s.notificationsOf(s.freelancer.ID, model.NotificationTypeMilestoneUpdated), 1)
}
