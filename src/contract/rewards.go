package contract

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/warp-contracts/marketplace/src/service"
	"github.com/warp-contracts/marketplace/src/utils/apperr"
	"github.com/warp-contracts/marketplace/src/utils/auth"
	"github.com/warp-contracts/marketplace/src/utils/eth"
	"github.com/warp-contracts/marketplace/src/utils/model"
)

type RewardsConfig struct {
	Distributor string `json:"distributor"`
	Token       string `json:"token"`
	RateBps     uint16 `json:"rate_bps"`
	Symbol      string `json:"symbol"`
	Decimals    uint8  `json:"decimals"`
}

type RewardRateInput struct {
	RateBps uint16 `json:"rate_bps" binding:"bps"`
}

type DistributeInput struct {
	EscrowID string `json:"escrow_id" binding:"required"`
}

func (self *Service) distributor() (common.Address, error) {
	return configuredAddress("reward distributor", self.config.Chain.RewardDistributorAddress)
}

func (self *Service) token() (common.Address, error) {
	return configuredAddress("token", self.config.Chain.TokenAddress)
}

func (self *Service) RewardsConfig(ctx context.Context) (out *RewardsConfig, err error) {
	distributor, err := self.distributor()
	if err != nil {
		return
	}
	token, err := self.token()
	if err != nil {
		return
	}

	out = &RewardsConfig{Distributor: distributor.Hex(), Token: token.Hex()}
	out.RateBps, err = callOne[uint16](ctx, self, eth.RewardDistributor, distributor, "rewardRateBps")
	if err != nil {
		return
	}
	out.Symbol, err = callOne[string](ctx, self, eth.Token, token, "symbol")
	if err != nil {
		return
	}
	out.Decimals, err = callOne[uint8](ctx, self, eth.Token, token, "decimals")
	return
}

func parseAccount(address string) (common.Address, error) {
	if !common.IsHexAddress(address) {
		return common.Address{}, apperr.BadRequest("VALIDATION_ERROR", "invalid address")
	}
	return common.HexToAddress(address), nil
}

// GRMPS balance of the account
func (self *Service) TokenBalance(ctx context.Context, address string) (out *big.Int, err error) {
	account, err := parseAccount(address)
	if err != nil {
		return
	}
	token, err := self.token()
	if err != nil {
		return
	}
	return callOne[*big.Int](ctx, self, eth.Token, token, "balanceOf", account)
}

func (self *Service) PendingRewards(ctx context.Context, address string) (out *big.Int, err error) {
	account, err := parseAccount(address)
	if err != nil {
		return
	}
	distributor, err := self.distributor()
	if err != nil {
		return
	}
	return callOne[*big.Int](ctx, self, eth.RewardDistributor, distributor, "pendingRewards", account)
}

// Changes the on-chain rate and keeps the settings in sync
func (self *Service) SetRewardRate(ctx context.Context, actor *auth.Claims, in *RewardRateInput) (out *TxResult, err error) {
	if actor == nil || !actor.IsAdmin() {
		return nil, apperr.Forbidden("Admin only")
	}
	if in.RateBps > maxBps {
		return nil, apperr.BadRequest("VALIDATION_ERROR", "rate_bps must be at most 10000")
	}
	distributor, err := self.distributor()
	if err != nil {
		return
	}

	tx, receipt, err := self.send(ctx, &submission{
		contract: eth.RewardDistributor,
		address:  distributor,
		method:   "setRewardRateBps",
		args:     []interface{}{in.RateBps},
		kind:     model.ChainTxKindReward,
		userId:   actorId(actor),
	})
	if err != nil {
		return
	}

	out = &TxResult{TxHash: tx.Hash().Hex(), BlockNumber: receipt.BlockNumber.Uint64()}
	err = self.confirm(ctx, out)
	if err != nil {
		return
	}

	_, err = self.services.Settings.Update(ctx, &service.SettingsUpdate{RewardRateBps: &in.RateBps})
	return
}

// Pays out rewards of a released escrow
func (self *Service) Distribute(ctx context.Context, actor *auth.Claims, in *DistributeInput) (out *TxResult, err error) {
	if actor == nil || !actor.IsAdmin() {
		return nil, apperr.Forbidden("Admin only")
	}
	distributor, err := self.distributor()
	if err != nil {
		return
	}
	escrow, err := self.services.Escrows.Get(ctx, in.EscrowID)
	if err != nil {
		return
	}

	tx, receipt, err := self.send(ctx, &submission{
		contract: eth.RewardDistributor,
		address:  distributor,
		method:   "distribute",
		args:     []interface{}{common.HexToAddress(escrow.ProxyAddress)},
		kind:     model.ChainTxKindReward,
		escrowId: &escrow.ID,
		userId:   actorId(actor),
	})
	if err != nil {
		return
	}

	out = &TxResult{TxHash: tx.Hash().Hex(), BlockNumber: receipt.BlockNumber.Uint64(), Escrow: escrow}
	err = self.confirm(ctx, out)
	return
}

func (self *Service) confirm(ctx context.Context, result *TxResult) (err error) {
	_, err = self.services.ChainTxs.UpdateStatus(ctx, nil, result.TxHash, &service.ChainTxStatusInput{
		Status:      model.ChainTxStatusConfirmed,
		BlockNumber: &result.BlockNumber,
	})
	if err != nil {
		self.report.Errors.DbWriteErrors.Inc()
	}
	return
}
