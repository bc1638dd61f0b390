package service

import (
	"time"

	"github.com/stretchr/testify/require"
	"github.com/warp-contracts/marketplace/src/utils/model"
)

func (s *ServiceTestSuite) TestSettingsCreatedOnFirstRead() {
	settings, err := s.services.Settings.Get(s.ctx)
	require.NoError(s.T(), err)
	require.Equal(s.T(), model.SingletonId, settings.ID)
	require.Equal(s.T(), s.config.Fees.PlatformFeeBps, settings.PlatformFeeBps)
	require.Equal(s.T(), s.config.Fees.RewardRateBps, settings.RewardRateBps)

	fee := uint16(500)
	updated, err := s.services.Settings.Update(s.ctx, &SettingsUpdate{PlatformFeeBps: &fee})
	require.NoError(s.T(), err)
	require.Equal(s.T(), fee, updated.PlatformFeeBps)

	// Cache is dropped on update
	settings, err = s.services.Settings.Get(s.ctx)
	require.NoError(s.T(), err)
	require.Equal(s.T(), fee, settings.PlatformFeeBps)

	var count int64
	require.NoError(s.T(), s.db.Model(&model.SystemSettings{}).Count(&count).Error)
	require.Equal(s.T(), int64(1), count)
}

func (s *ServiceTestSuite) TestSettingsArbiter() {
	arbiter, err := s.services.Settings.Arbiter(s.ctx)
	require.NoError(s.T(), err)
	require.Equal(s.T(), s.admin.ID, arbiter)

	ghost := "ghost"
	_, err = s.services.Settings.Update(s.ctx, &SettingsUpdate{ArbiterID: &ghost})
	s.requireCode(err, "USER_NOT_FOUND")

	_, err = s.services.Settings.Update(s.ctx, &SettingsUpdate{ArbiterID: &s.freelancer.ID})
	require.NoError(s.T(), err)

	arbiter, err = s.services.Settings.Arbiter(s.ctx)
	require.NoError(s.T(), err)
	require.Equal(s.T(), s.freelancer.ID, arbiter)
}

func (s *ServiceTestSuite) TestSystemState() {
	now := time.Now().UTC().Truncate(time.Second)
	require.NoError(s.T(), s.services.Settings.RecordExpiryRun(s.ctx, now))
	require.NoError(s.T(), s.services.Settings.RecordReconcile(s.ctx, now, 2))
	require.NoError(s.T(), s.services.Settings.RecordReconcile(s.ctx, now, 3))

	state, err := s.services.Settings.GetState(s.ctx)
	require.NoError(s.T(), err)
	require.NotNil(s.T(), state.LastExpiryRunAt)
	require.True(s.T(), now.Equal(*state.LastExpiryRunAt))
	require.NotNil(s.T(), state.LastReconcileAt)
	require.Equal(s.T(), int64(5), state.DivergencesFound)
}

func (s *ServiceTestSuite) TestContactQueuesEmail() {
	msg, err := s.services.Contact.Create(s.ctx, &ContactInput{
		Name:    "Bob",
		Email:   "bob@example.com",
		Subject: "Question",
		Message: "How do escrows work?",
	})
	require.NoError(s.T(), err)
	require.NotEmpty(s.T(), msg.ID)
	require.Equal(s.T(), int64(1), s.countOutbox(model.OutboxChannelEmail, s.config.Smtp.AdminAddress))
}

func (s *ServiceTestSuite) TestGigs() {
	gig, err := s.services.Gigs.Create(s.ctx, &GigInput{
		FreelancerID: s.freelancer.ID,
		Title:        "Audit",
		Price:        "100",
		Tags:         []string{"solidity", "audit"},
	})
	require.NoError(s.T(), err)
	require.Equal(s.T(), 1, gig.DeliveryDays)

	_, err = s.services.Gigs.Create(s.ctx, &GigInput{FreelancerID: s.freelancer.ID, Title: "Logo", Price: "10", Tags: []string{"design"}})
	require.NoError(s.T(), err)

	list, err := s.services.Gigs.List(s.ctx, &GigFilter{Tag: "solidity"})
	require.NoError(s.T(), err)
	require.Len(s.T(), list, 1)
	require.Equal(s.T(), gig.ID, list[0].ID)

	archived := model.GigStatusArchived
	_, err = s.services.Gigs.Update(s.ctx, gig.ID, &GigUpdate{Status: &archived})
	require.NoError(s.T(), err)

	title := "New title"
	_, err = s.services.Gigs.Update(s.ctx, gig.ID, &GigUpdate{Title: &title})
	s.requireCode(err, "INVALID_TRANSITION")

	require.NoError(s.T(), s.services.Gigs.Delete(s.ctx, gig.ID))
	s.requireCode(s.services.Gigs.Delete(s.ctx, gig.ID), "GIG_NOT_FOUND")
}
