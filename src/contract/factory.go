package contract

import (
	"context"
	"fmt"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/warp-contracts/marketplace/src/service"
	"github.com/warp-contracts/marketplace/src/utils/apperr"
	"github.com/warp-contracts/marketplace/src/utils/auth"
	"github.com/warp-contracts/marketplace/src/utils/eth"
	"github.com/warp-contracts/marketplace/src/utils/model"
	"gorm.io/gorm"
)

type DeployInput struct {
	MilestoneID string `json:"milestone_id" binding:"required"`
}

type FactoryConfig struct {
	Address        string `json:"address"`
	Implementation string `json:"implementation"`
	FeeBps         uint16 `json:"fee_bps"`
	FeeRecipient   string `json:"fee_recipient"`
	EscrowCount    string `json:"escrow_count"`
}

func (self *Service) factory() (common.Address, error) {
	return configuredAddress("factory", self.config.Chain.FactoryAddress)
}

func (self *Service) FactoryConfig(ctx context.Context) (out *FactoryConfig, err error) {
	address, err := self.factory()
	if err != nil {
		return
	}

	out = &FactoryConfig{Address: address.Hex()}

	implementation, err := callOne[common.Address](ctx, self, eth.Factory, address, "implementation")
	if err != nil {
		return
	}
	out.Implementation = implementation.Hex()

	out.FeeBps, err = callOne[uint16](ctx, self, eth.Factory, address, "feeBps")
	if err != nil {
		return
	}

	recipient, err := callOne[common.Address](ctx, self, eth.Factory, address, "feeRecipient")
	if err != nil {
		return
	}
	out.FeeRecipient = recipient.Hex()

	count, err := callOne[*big.Int](ctx, self, eth.Factory, address, "escrowCount")
	if err != nil {
		return
	}
	out.EscrowCount = count.String()
	return
}

func (self *Service) walletOf(ctx context.Context, userId string) (common.Address, error) {
	user, err := self.services.Users.Get(ctx, userId)
	if err != nil {
		return common.Address{}, err
	}
	if user.WalletAddress == nil || !common.IsHexAddress(*user.WalletAddress) {
		return common.Address{}, apperr.BadRequest("WALLET_NOT_SET", fmt.Sprintf("User %s has no primary wallet", user.Handle))
	}
	return common.HexToAddress(*user.WalletAddress), nil
}

// Deploys an escrow proxy for the milestone and creates its mirror.
// Buyer is the job's client, seller the milestone's freelancer, arbiter comes from settings.
func (self *Service) Deploy(ctx context.Context, actor *auth.Claims, in *DeployInput) (out *TxResult, err error) {
	factory, err := self.factory()
	if err != nil {
		return
	}

	milestone, err := self.services.Milestones.Get(ctx, in.MilestoneID)
	if err != nil {
		return
	}
	job, err := self.services.Jobs.Get(ctx, milestone.JobID)
	if err != nil {
		return
	}
	if actor == nil || (actor.UserID != job.ClientID && !actor.IsAdmin()) {
		return nil, apperr.Forbidden("Only the job's client can deploy its escrow")
	}

	_, err = self.services.Escrows.GetByMilestone(ctx, milestone.ID)
	if err == nil {
		return nil, apperr.AlreadyExists("escrow")
	}
	if apperr.CodeOf(err) != "ESCROW_NOT_FOUND" {
		return
	}

	arbiterId, err := self.services.Settings.Arbiter(ctx)
	if err != nil {
		return
	}
	settings, err := self.services.Settings.Get(ctx)
	if err != nil {
		return
	}

	var addresses [3]common.Address
	for i, userId := range []string{job.ClientID, milestone.FreelancerID, arbiterId} {
		addresses[i], err = self.walletOf(ctx, userId)
		if err != nil {
			return
		}
	}

	amount, err := eth.ParseAmount(milestone.Amount)
	if err != nil {
		return nil, apperr.Validation(err)
	}

	tx, receipt, err := self.send(ctx, &submission{
		contract: eth.Factory,
		address:  factory,
		method:   "createEscrow",
		args:     []interface{}{addresses[0], addresses[1], addresses[2], amount, settings.PlatformFeeBps},
		kind:     model.ChainTxKindDeploy,
		userId:   actorId(actor),
	})
	if err != nil {
		return
	}

	hash := tx.Hash().Hex()
	block := receipt.BlockNumber.Uint64()
	log := self.log.WithField("tx", hash).WithField("milestone_id", milestone.ID)

	created, err := eth.GetTransactionLog(receipt, eth.Factory.ABI(), "EscrowCreated")
	if err != nil {
		log.WithError(err).Error("Deployment receipt has no EscrowCreated event")
		return nil, apperr.New(http.StatusBadGateway, "CHAIN_ERROR", "Escrow deployment event not found").WithCause(err)
	}
	proxy, ok := created["escrow"].(common.Address)
	if !ok {
		return nil, apperr.New(http.StatusBadGateway, "CHAIN_ERROR", "Escrow deployment event is malformed")
	}

	out = &TxResult{TxHash: hash, BlockNumber: block, State: model.EscrowStateUnfunded}
	err = self.db.WithContext(ctx).Transaction(func(tx *gorm.DB) (err error) {
		out.Escrow, err = self.services.Escrows.Create(ctx, tx, &service.EscrowInput{
			JobID:        job.ID,
			MilestoneID:  milestone.ID,
			BuyerID:      job.ClientID,
			SellerID:     milestone.FreelancerID,
			ArbiterID:    arbiterId,
			ProxyAddress: proxy.Hex(),
			Amount:       amount.String(),
			FeeBps:       settings.PlatformFeeBps,
		})
		if err != nil {
			return
		}

		_, err = self.services.Milestones.AttachEscrow(ctx, tx, milestone.ID, proxy.Hex())
		if err != nil {
			return
		}

		_, err = self.services.ChainTxs.UpdateStatus(ctx, tx, hash, &service.ChainTxStatusInput{
			Status:      model.ChainTxStatusConfirmed,
			BlockNumber: &block,
		})
		if err != nil {
			return
		}

		return tx.Model(&model.ChainTx{}).Where("tx_hash = ?", hash).Update("escrow_id", out.Escrow.ID).Error
	})
	if err != nil {
		self.report.Errors.DbWriteErrors.Inc()
		log.WithError(err).WithField("proxy", proxy.Hex()).Error("Failed to mirror deployed escrow")
		return nil, err
	}

	log.WithField("proxy", proxy.Hex()).Info("Escrow deployed")
	return
}
