package service

import (
	"github.com/stretchr/testify/require"
	"github.com/warp-contracts/marketplace/src/utils/model"
)

func (s *ServiceTestSuite) TestBidCreateAndList() {
	job := s.createJob()
	amount := "500"

	bid, err := s.services.Bids.Create(s.ctx, &BidInput{
		JobID:        job.ID,
		FreelancerID: s.freelancer.ID,
		Amount:       &amount,
		CoverLetter:  "I can do it",
	})
	require.NoError(s.T(), err)
	require.Equal(s.T(), model.BidStatusPending, bid.Status)

	list, err := s.services.Bids.ListByJob(s.ctx, job.ID, Page{})
	require.NoError(s.T(), err)
	require.Len(s.T(), list, 1)
	require.Equal(s.T(), bid.ID, list[0].ID)

	require.Len(s.T(), s.notificationsOf(s.client.ID, model.NotificationTypeNewBid), 1)
}

func (s *ServiceTestSuite) TestBidDuplicate() {
	job := s.createJob()
	_, err := s.services.Bids.Create(s.ctx, &BidInput{JobID: job.ID, FreelancerID: s.freelancer.ID})
	require.NoError(s.T(), err)

	_, err = s.services.Bids.Create(s.ctx, &BidInput{JobID: job.ID, FreelancerID: s.freelancer.ID})
	s.requireCode(err, "JOB_BID_ALREADY_EXISTS")
}

func (s *ServiceTestSuite) TestBidOnClosedJob() {
	job := s.createJob()
	_, err := s.services.Jobs.UpdateStatus(s.ctx, job.ID, model.JobStatusCancelled)
	require.NoError(s.T(), err)

	_, err = s.services.Bids.Create(s.ctx, &BidInput{JobID: job.ID, FreelancerID: s.freelancer.ID})
	s.requireCode(err, "JOB_NOT_OPEN")
}

func (s *ServiceTestSuite) TestBidAcceptOpensConversation() {
	job := s.createJob()
	bid, err := s.services.Bids.Create(s.ctx, &BidInput{JobID: job.ID, FreelancerID: s.freelancer.ID})
	require.NoError(s.T(), err)

	accepted, err := s.services.Bids.UpdateStatus(s.ctx, bid.ID, model.BidStatusAccepted)
	require.NoError(s.T(), err)
	require.Equal(s.T(), model.BidStatusAccepted, accepted.Status)

	var conversations []model.Conversation
	require.NoError(s.T(), s.db.Find(&conversations).Error)
	require.Len(s.T(), conversations, 1)
	require.Equal(s.T(), s.client.ID, conversations[0].ClientID)
	require.Equal(s.T(), s.freelancer.ID, conversations[0].FreelancerID)

	require.Len(s.T(), s.notificationsOf(s.freelancer.ID, model.NotificationTypeBidAccepted), 1)

	// Accepted is final
	_, err = s.services.Bids.UpdateStatus(s.ctx, bid.ID, model.BidStatusRejected)
	s.requireCode(err, "INVALID_TRANSITION")
}

func (s *ServiceTestSuite) TestApplicationAcceptCreatesMilestone() {
	job := s.createJob()
	amount := "2000"

	application, err := s.services.Applications.Create(s.ctx, &ApplicationInput{
		JobID:          job.ID,
		FreelancerID:   s.freelancer.ID,
		ProposedAmount: &amount,
	})
	require.NoError(s.T(), err)
	require.Equal(s.T(), model.ApplicationStatusPending, application.Status)

	_, err = s.services.Applications.Create(s.ctx, &ApplicationInput{JobID: job.ID, FreelancerID: s.freelancer.ID})
	s.requireCode(err, "JOB_APPLICATION_ALREADY_EXISTS")

	_, err = s.services.Applications.UpdateStatus(s.ctx, application.ID, model.ApplicationStatusAccepted)
	require.NoError(s.T(), err)

	milestones, err := s.services.Milestones.ListByJob(s.ctx, job.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), milestones, 1)
	require.Equal(s.T(), "2000", milestones[0].Amount)
	require.Equal(s.T(), s.freelancer.ID, milestones[0].FreelancerID)

	require.Len(s.T(), s.notificationsOf(s.freelancer.ID, model.NotificationTypeApplicationAccepted), 1)
}
