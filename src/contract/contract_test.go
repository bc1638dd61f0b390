package contract

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/warp-contracts/marketplace/src/service"
	"github.com/warp-contracts/marketplace/src/utils/apperr"
	"github.com/warp-contracts/marketplace/src/utils/auth"
	"github.com/warp-contracts/marketplace/src/utils/config"
	"github.com/warp-contracts/marketplace/src/utils/eth/ethtest"
	"github.com/warp-contracts/marketplace/src/utils/model"
	"github.com/warp-contracts/marketplace/src/utils/model/modeltest"
	"gorm.io/gorm"
)

func TestContractTestSuite(t *testing.T) {
	suite.Run(t, new(ContractTestSuite))
}

type ContractTestSuite struct {
	suite.Suite
	ctx      context.Context
	config   *config.Config
	db       *gorm.DB
	chain    *ethtest.Chain
	services *service.Services
	contract *Service

	client     *auth.Claims
	freelancer *auth.Claims
	admin      *auth.Claims
	milestone  *model.JobMilestone
}

func (s *ContractTestSuite) SetupTest() {
	s.ctx = context.Background()
	s.config = config.Default()
	s.config.Chain.Enabled = true
	s.config.Chain.FactoryAddress = "0x0000000000000000000000000000000000000fac"
	s.config.Chain.RewardDistributorAddress = "0x0000000000000000000000000000000000000d15"
	s.config.Chain.TokenAddress = "0x0000000000000000000000000000000000000707"

	s.db = modeltest.NewDB(s.T())
	s.chain = ethtest.NewChain()
	s.services = service.New(s.config, s.db, nil)
	s.contract = NewService(s.config, s.db, s.services).WithBackend(s.chain)

	for i, role := range []model.UserRole{model.UserRoleClient, model.UserRoleFreelancer, model.UserRoleAdmin} {
		user := modeltest.CreateUser(s.T(), s.db, string(role), role)
		address := common.BigToAddress(big.NewInt(int64(0xb0 + i))).Hex()
		_, err := s.services.Wallets.Add(s.ctx, user.ID, &service.WalletInput{Address: address})
		require.NoError(s.T(), err)

		claims := &auth.Claims{UserID: user.ID, Role: role}
		switch role {
		case model.UserRoleClient:
			s.client = claims
		case model.UserRoleFreelancer:
			s.freelancer = claims
		default:
			s.admin = claims
		}
	}

	job, err := s.services.Jobs.Create(s.ctx, &service.JobInput{ClientID: s.client.UserID, Title: "Audit", DescriptionMd: "Audit the escrow"})
	require.NoError(s.T(), err)
	s.milestone, err = s.services.Milestones.Create(s.ctx, &service.MilestoneInput{
		JobID:        job.ID,
		FreelancerID: s.freelancer.UserID,
		Title:        "Report",
		Amount:       "1000",
	})
	require.NoError(s.T(), err)
}

func (s *ContractTestSuite) requireCode(err error, code string) {
	s.T().Helper()
	require.Error(s.T(), err)
	require.Equal(s.T(), code, apperr.CodeOf(err), err.Error())
}

func (s *ContractTestSuite) deploy() *model.Escrow {
	s.T().Helper()
	out, err := s.contract.Deploy(s.ctx, s.client, &DeployInput{MilestoneID: s.milestone.ID})
	require.NoError(s.T(), err)
	return out.Escrow
}

func (s *ContractTestSuite) chainTx(hash string) *model.ChainTx {
	s.T().Helper()
	tx, err := s.services.ChainTxs.GetByHash(s.ctx, hash)
	require.NoError(s.T(), err)
	return tx
}

func (s *ContractTestSuite) TestDeploy() {
	out, err := s.contract.Deploy(s.ctx, s.client, &DeployInput{MilestoneID: s.milestone.ID})
	require.NoError(s.T(), err)
	require.Equal(s.T(), model.EscrowStateUnfunded, out.Escrow.CurrentState)
	require.Equal(s.T(), "0x00000000000000000000000000000000000000e1", out.Escrow.ProxyAddress)
	require.Equal(s.T(), s.client.UserID, out.Escrow.BuyerID)
	require.Equal(s.T(), s.freelancer.UserID, out.Escrow.SellerID)
	require.Equal(s.T(), s.admin.UserID, out.Escrow.ArbiterID)
	require.Equal(s.T(), s.config.Fees.PlatformFeeBps, out.Escrow.FeeBps)

	milestone, err := s.services.Milestones.Get(s.ctx, s.milestone.ID)
	require.NoError(s.T(), err)
	require.Equal(s.T(), out.Escrow.ProxyAddress, *milestone.EscrowAddress)

	tx := s.chainTx(out.TxHash)
	require.Equal(s.T(), model.ChainTxStatusConfirmed, tx.Status)
	require.Equal(s.T(), model.ChainTxKindDeploy, tx.Kind)
	require.Equal(s.T(), out.Escrow.ID, *tx.EscrowID)

	// One escrow per milestone
	_, err = s.contract.Deploy(s.ctx, s.client, &DeployInput{MilestoneID: s.milestone.ID})
	s.requireCode(err, "ESCROW_ALREADY_EXISTS")
}

func (s *ContractTestSuite) TestDeployOnlyByClient() {
	_, err := s.contract.Deploy(s.ctx, s.freelancer, &DeployInput{MilestoneID: s.milestone.ID})
	s.requireCode(err, "FORBIDDEN")
	require.Empty(s.T(), s.chain.Sent)
}

func (s *ContractTestSuite) TestHappyPath() {
	escrow := s.deploy()

	steps := []struct {
		run   func() (*TxResult, error)
		state model.EscrowState
	}{
		{func() (*TxResult, error) { return s.contract.Fund(s.ctx, s.client, escrow.ID) }, model.EscrowStateFunded},
		{func() (*TxResult, error) {
			return s.contract.Deliver(s.ctx, s.freelancer, escrow.ID, &DeliverInput{Cid: "bafycid"})
		}, model.EscrowStateDelivered},
		{func() (*TxResult, error) { return s.contract.Approve(s.ctx, s.client, escrow.ID) }, model.EscrowStateReleasable},
		{func() (*TxResult, error) { return s.contract.Withdraw(s.ctx, s.freelancer, escrow.ID) }, model.EscrowStatePaid},
	}
	for _, step := range steps {
		out, err := step.run()
		require.NoError(s.T(), err)
		require.Equal(s.T(), step.state, out.State)
		require.Equal(s.T(), step.state, out.Escrow.CurrentState)
		require.Equal(s.T(), model.ChainTxStatusConfirmed, s.chainTx(out.TxHash).Status)
	}

	history, err := s.services.Escrows.History(s.ctx, escrow.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), history, 4)
	for _, h := range history {
		require.Equal(s.T(), model.HistorySourceTx, h.Source)
		require.NotNil(s.T(), h.TxHash)
	}

	milestone, err := s.services.Milestones.Get(s.ctx, s.milestone.ID)
	require.NoError(s.T(), err)
	require.Equal(s.T(), model.MilestoneStatusPaid, milestone.Status)
	require.Equal(s.T(), []string{"createEscrow", "fund", "deliver", "approve", "withdraw"}, s.chain.Sent)
}

func (s *ContractTestSuite) TestActorIsEnforced() {
	escrow := s.deploy()

	_, err := s.contract.Fund(s.ctx, s.freelancer, escrow.ID)
	s.requireCode(err, "FORBIDDEN")

	_, err = s.contract.Resolve(s.ctx, s.client, escrow.ID, &ResolveInput{SellerBps: 5000})
	s.requireCode(err, "FORBIDDEN")
}

func (s *ContractTestSuite) TestOnChainStateDecides() {
	escrow := s.deploy()

	_, err := s.contract.Approve(s.ctx, s.client, escrow.ID)
	s.requireCode(err, "INVALID_TRANSITION")

	// Mirror lags behind, the chain is already funded
	s.chain.SetState(escrow.ProxyAddress, ethtest.Funded)
	out, err := s.contract.Deliver(s.ctx, s.freelancer, escrow.ID, &DeliverInput{Cid: "bafycid"})
	require.NoError(s.T(), err)
	require.Equal(s.T(), model.EscrowStateDelivered, out.Escrow.CurrentState)

	state, err := s.contract.State(s.ctx, escrow.ID)
	require.NoError(s.T(), err)
	require.Equal(s.T(), model.EscrowStateDelivered, state.OnChain)
	require.False(s.T(), state.Diverged)
}

func (s *ContractTestSuite) TestDisputeAndRefund() {
	escrow := s.deploy()
	s.chain.SetState(escrow.ProxyAddress, ethtest.Funded)

	_, err := s.contract.Dispute(s.ctx, s.freelancer, escrow.ID, &DisputeInput{Reason: "Client is silent"})
	require.NoError(s.T(), err)

	_, err = s.contract.Resolve(s.ctx, s.admin, escrow.ID, &ResolveInput{SellerBps: 10001})
	s.requireCode(err, "VALIDATION_ERROR")

	out, err := s.contract.Resolve(s.ctx, s.admin, escrow.ID, &ResolveInput{SellerBps: 0})
	require.NoError(s.T(), err)
	require.Equal(s.T(), model.EscrowStateRefunded, out.State)
	require.Equal(s.T(), ethtest.Refunded, s.chain.State(escrow.ProxyAddress))

	milestone, err := s.services.Milestones.Get(s.ctx, s.milestone.ID)
	require.NoError(s.T(), err)
	require.Equal(s.T(), model.MilestoneStatusRefunded, milestone.Status)
}

func (s *ContractTestSuite) TestFundNeedsBalance() {
	escrow := s.deploy()
	s.chain.Funds = big.NewInt(1000)

	_, err := s.contract.Fund(s.ctx, s.client, escrow.ID)
	s.requireCode(err, "CHAIN_INSUFFICIENT_FUNDS")
	require.Equal(s.T(), []string{"createEscrow"}, s.chain.Sent)
}

func (s *ContractTestSuite) TestRevertMarksTxFailed() {
	escrow := s.deploy()
	s.chain.Revert = true

	_, err := s.contract.Fund(s.ctx, s.client, escrow.ID)
	s.requireCode(err, "CHAIN_TX_REVERTED")

	txs, err := s.services.ChainTxs.ListByEscrow(s.ctx, escrow.ID, service.Page{})
	require.NoError(s.T(), err)

	var failed int
	for _, tx := range txs {
		if tx.Kind == model.ChainTxKindFund {
			require.Equal(s.T(), model.ChainTxStatusFailed, tx.Status)
			require.NotNil(s.T(), tx.BlockNumber)
			failed++
		}
	}
	require.Equal(s.T(), 1, failed)

	got, err := s.services.Escrows.Get(s.ctx, escrow.ID)
	require.NoError(s.T(), err)
	require.Equal(s.T(), model.EscrowStateUnfunded, got.CurrentState)
}

func (s *ContractTestSuite) TestUnknownOutcomeStaysPending() {
	escrow := s.deploy()
	s.chain.WaitErr = context.DeadlineExceeded

	_, err := s.contract.Fund(s.ctx, s.client, escrow.ID)
	s.requireCode(err, "CHAIN_TIMEOUT")

	pending, err := s.services.ChainTxs.ListPending(s.ctx, 0, 10)
	require.NoError(s.T(), err)
	require.Len(s.T(), pending, 1)
	require.Equal(s.T(), model.ChainTxKindFund, pending[0].Kind)
	require.Equal(s.T(), model.EscrowStateFunded, *pending[0].TargetState)
}

func (s *ContractTestSuite) TestSendFailureMarksTxFailed() {
	escrow := s.deploy()
	s.chain.SendErr = errors.New("nonce too low")

	_, err := s.contract.Fund(s.ctx, s.client, escrow.ID)
	s.requireCode(err, "CHAIN_NONCE_CONFLICT")

	txs, err := s.services.ChainTxs.ListByEscrow(s.ctx, escrow.ID, service.Page{})
	require.NoError(s.T(), err)
	for _, tx := range txs {
		if tx.Kind == model.ChainTxKindFund {
			require.Equal(s.T(), model.ChainTxStatusFailed, tx.Status)
			require.Contains(s.T(), tx.Error, "nonce too low")
		}
	}
}

func (s *ContractTestSuite) TestDeliverManifestNeedsIpfs() {
	escrow := s.deploy()
	s.chain.SetState(escrow.ProxyAddress, ethtest.Funded)

	_, err := s.contract.Deliver(s.ctx, s.freelancer, escrow.ID, &DeliverInput{Manifest: map[string]interface{}{"files": []string{"a"}}})
	s.requireCode(err, "IPFS_DISABLED")

	_, err = s.contract.Deliver(s.ctx, s.freelancer, escrow.ID, &DeliverInput{})
	s.requireCode(err, "VALIDATION_ERROR")
}

func (s *ContractTestSuite) TestChainDisabled() {
	s.config.Chain.Enabled = false

	_, err := s.contract.Deploy(s.ctx, s.client, &DeployInput{MilestoneID: s.milestone.ID})
	s.requireCode(err, "CHAIN_DISABLED")

	_, err = NewService(s.config, s.db, s.services).RewardsConfig(s.ctx)
	s.requireCode(err, "CHAIN_DISABLED")
}

func (s *ContractTestSuite) TestRewards() {
	s.chain.Values["reward_distributor.rewardRateBps"] = uint16(100)
	s.chain.Values["reward_distributor.pendingRewards"] = big.NewInt(42)
	s.chain.Values["token.symbol"] = "GRMPS"
	s.chain.Values["token.decimals"] = uint8(18)
	s.chain.Values["token.balanceOf"] = big.NewInt(7)

	config, err := s.contract.RewardsConfig(s.ctx)
	require.NoError(s.T(), err)
	require.Equal(s.T(), uint16(100), config.RateBps)
	require.Equal(s.T(), "GRMPS", config.Symbol)
	require.Equal(s.T(), uint8(18), config.Decimals)

	pending, err := s.contract.PendingRewards(s.ctx, "0x00000000000000000000000000000000000000b1")
	require.NoError(s.T(), err)
	require.Equal(s.T(), int64(42), pending.Int64())

	balance, err := s.contract.TokenBalance(s.ctx, "0x00000000000000000000000000000000000000b1")
	require.NoError(s.T(), err)
	require.Equal(s.T(), int64(7), balance.Int64())

	_, err = s.contract.TokenBalance(s.ctx, "nope")
	s.requireCode(err, "VALIDATION_ERROR")

	_, err = s.contract.SetRewardRate(s.ctx, s.client, &RewardRateInput{RateBps: 200})
	s.requireCode(err, "FORBIDDEN")

	out, err := s.contract.SetRewardRate(s.ctx, s.admin, &RewardRateInput{RateBps: 200})
	require.NoError(s.T(), err)
	require.Equal(s.T(), model.ChainTxStatusConfirmed, s.chainTx(out.TxHash).Status)

	settings, err := s.services.Settings.Get(s.ctx)
	require.NoError(s.T(), err)
	require.Equal(s.T(), uint16(200), settings.RewardRateBps)
}

func (s *ContractTestSuite) TestFactoryConfig() {
	s.chain.Values["factory.implementation"] = common.HexToAddress("0x0000000000000000000000000000000000000111")
	s.chain.Values["factory.feeBps"] = uint16(250)
	s.chain.Values["factory.feeRecipient"] = common.HexToAddress("0x0000000000000000000000000000000000000222")
	s.chain.Values["factory.escrowCount"] = big.NewInt(3)

	out, err := s.contract.FactoryConfig(s.ctx)
	require.NoError(s.T(), err)
	require.Equal(s.T(), uint16(250), out.FeeBps)
	require.Equal(s.T(), "3", out.EscrowCount)
	require.Equal(s.T(), common.HexToAddress("0x0000000000000000000000000000000000000111").Hex(), out.Implementation)
}
