package service

import (
	"net/http"

	"github.com/stretchr/testify/require"
	"github.com/warp-contracts/marketplace/src/utils/apperr"
	"github.com/warp-contracts/marketplace/src/utils/model"
)

func (s *ServiceTestSuite) TestEscrowCreateUnique() {
	escrow := s.createEscrow()
	require.Equal(s.T(), model.EscrowStateUnfunded, escrow.CurrentState)
	require.Equal(s.T(), "0x00000000000000000000000000000000000000aa", escrow.ProxyAddress)

	_, err := s.services.Escrows.Create(s.ctx, nil, &EscrowInput{
		JobID:        escrow.JobID,
		MilestoneID:  escrow.MilestoneID,
		BuyerID:      s.client.ID,
		SellerID:     s.freelancer.ID,
		ArbiterID:    s.admin.ID,
		ProxyAddress: "0x00000000000000000000000000000000000000bb",
		Amount:       "1",
	})
	s.requireCode(err, "ESCROW_ALREADY_EXISTS")
}

func (s *ServiceTestSuite) TestEscrowCreateChecksExistence() {
	job := s.createJob()
	milestone := s.createMilestone(job)

	_, err := s.services.Escrows.Create(s.ctx, nil, &EscrowInput{
		JobID:        job.ID,
		MilestoneID:  milestone.ID,
		BuyerID:      s.client.ID,
		SellerID:     "ghost",
		ArbiterID:    s.admin.ID,
		ProxyAddress: "0x00000000000000000000000000000000000000aa",
		Amount:       "1",
	})
	s.requireCode(err, "USER_NOT_FOUND")

	_, err = s.services.Escrows.Create(s.ctx, nil, &EscrowInput{
		JobID:        job.ID,
		MilestoneID:  "ghost",
		BuyerID:      s.client.ID,
		SellerID:     s.freelancer.ID,
		ArbiterID:    s.admin.ID,
		ProxyAddress: "0x00000000000000000000000000000000000000aa",
		Amount:       "1",
	})
	s.requireCode(err, "JOB_MILESTONE_NOT_FOUND")
}

func (s *ServiceTestSuite) TestEscrowUpdateStateUnknown() {
	_, err := s.services.Escrows.UpdateState(s.ctx, "missing", &EscrowStateInput{State: model.EscrowStateFunded})
	appErr, ok := apperr.As(err)
	require.True(s.T(), ok)
	require.Equal(s.T(), http.StatusNotFound, appErr.StatusCode)
	require.Equal(s.T(), "ESCROW_NOT_FOUND", appErr.Code)
}

func (s *ServiceTestSuite) TestEscrowUpdateStateIdempotent() {
	escrow := s.createEscrow()
	hash := hashOf(1)

	for i := 0; i < 2; i++ {
		updated, err := s.services.Escrows.UpdateState(s.ctx, escrow.ID, &EscrowStateInput{
			State:  model.EscrowStateFunded,
			TxHash: &hash,
		})
		require.NoError(s.T(), err)
		require.Equal(s.T(), model.EscrowStateFunded, updated.CurrentState)
	}

	history, err := s.services.Escrows.History(s.ctx, escrow.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), history, 1)
	require.Equal(s.T(), model.EscrowStateUnfunded, history[0].FromState)
	require.Equal(s.T(), model.EscrowStateFunded, history[0].ToState)
	require.Equal(s.T(), model.HistorySourceTx, history[0].Source)

	// Milestone follows the escrow
	milestone, err := s.services.Milestones.Get(s.ctx, escrow.MilestoneID)
	require.NoError(s.T(), err)
	require.Equal(s.T(), model.MilestoneStatusInProgress, milestone.Status)

	require.Len(s.T(), s.notificationsOf(s.client.ID, model.NotificationTypeEscrowStateChanged), 1)
	require.Len(s.T(), s.notificationsOf(s.freelancer.ID, model.NotificationTypeEscrowStateChanged), 1)
}

func (s *ServiceTestSuite) TestEscrowUpdateStateInvalid() {
	escrow := s.createEscrow()

	_, err := s.services.Escrows.UpdateState(s.ctx, escrow.ID, &EscrowStateInput{State: model.EscrowStatePaid})
	s.requireCode(err, "INVALID_TRANSITION")

	_, err = s.services.Escrows.UpdateState(s.ctx, escrow.ID, &EscrowStateInput{State: "Exploded"})
	s.requireCode(err, "VALIDATION_ERROR")

	got, err := s.services.Escrows.Get(s.ctx, escrow.ID)
	require.NoError(s.T(), err)
	require.Equal(s.T(), model.EscrowStateUnfunded, got.CurrentState)
}

func (s *ServiceTestSuite) TestChainTxDuplicate() {
	in := &ChainTxInput{TxHash: hashOf(2), Kind: model.ChainTxKindFund}

	created, err := s.services.ChainTxs.Create(s.ctx, nil, in)
	require.NoError(s.T(), err)
	require.Equal(s.T(), model.ChainTxStatusPending, created.Status)

	_, err = s.services.ChainTxs.Create(s.ctx, nil, in)
	appErr, ok := apperr.As(err)
	require.True(s.T(), ok)
	require.Equal(s.T(), http.StatusBadRequest, appErr.StatusCode)
	require.Equal(s.T(), "CHAIN_TX_ALREADY_EXISTS", appErr.Code)
}

func (s *ServiceTestSuite) TestChainTxUnknownKind() {
	escrow := s.createEscrow()
	_, err := s.services.ChainTxs.Create(s.ctx, nil, &ChainTxInput{TxHash: hashOf(4), EscrowID: &escrow.ID, Kind: "mint"})
	s.requireCode(err, "VALIDATION_ERROR")

	state := model.EscrowState("Lost")
	_, err = s.services.ChainTxs.Create(s.ctx, nil, &ChainTxInput{TxHash: hashOf(4), EscrowID: &escrow.ID, Kind: model.ChainTxKindFund, TargetState: &state})
	s.requireCode(err, "VALIDATION_ERROR")

	var count int64
	require.NoError(s.T(), s.db.Model(&model.ChainTx{}).Count(&count).Error)
	require.Zero(s.T(), count)
}

func (s *ServiceTestSuite) TestChainTxStatus() {
	escrow := s.createEscrow()
	hash := hashOf(3)
	_, err := s.services.ChainTxs.Create(s.ctx, nil, &ChainTxInput{TxHash: hash, EscrowID: &escrow.ID, Kind: model.ChainTxKindFund})
	require.NoError(s.T(), err)

	block := uint64(42)
	updated, err := s.services.ChainTxs.UpdateStatus(s.ctx, nil, hash, &ChainTxStatusInput{Status: model.ChainTxStatusConfirmed, BlockNumber: &block})
	require.NoError(s.T(), err)
	require.Equal(s.T(), model.ChainTxStatusConfirmed, updated.Status)

	_, err = s.services.ChainTxs.UpdateStatus(s.ctx, nil, hash, &ChainTxStatusInput{Status: model.ChainTxStatusFailed})
	s.requireCode(err, "INVALID_TRANSITION")

	list, err := s.services.ChainTxs.ListByEscrow(s.ctx, escrow.ID, Page{})
	require.NoError(s.T(), err)
	require.Len(s.T(), list, 1)
	require.Equal(s.T(), uint64(42), *list[0].BlockNumber)

	_, err = s.services.ChainTxs.GetByHash(s.ctx, hashOf(4))
	s.requireCode(err, "CHAIN_TX_NOT_FOUND")
}
