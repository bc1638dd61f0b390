package contract

import (
	"context"
	"errors"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/warp-contracts/marketplace/src/service"
	"github.com/warp-contracts/marketplace/src/utils/eth"
	"github.com/warp-contracts/marketplace/src/utils/fsm"
	"github.com/warp-contracts/marketplace/src/utils/model"
	"gorm.io/gorm"
)

func (self *Service) Enabled() bool {
	_, err := self.chain()
	return err == nil
}

// Settles a chain tx left pending by a crash or a timeout.
// Returns false while the transaction isn't mined yet.
func (self *Service) FinalizeTx(ctx context.Context, chainTx *model.ChainTx) (final bool, err error) {
	backend, err := self.chain()
	if err != nil {
		return
	}

	receipt, err := backend.Receipt(ctx, common.HexToHash(chainTx.TxHash))
	if err != nil {
		if errors.Is(err, ethereum.NotFound) {
			return false, nil
		}
		return false, eth.Classify(err)
	}

	block := receipt.BlockNumber.Uint64()
	if receipt.Status != types.ReceiptStatusSuccessful {
		_, err = self.services.ChainTxs.UpdateStatus(ctx, nil, chainTx.TxHash, &service.ChainTxStatusInput{
			Status:      model.ChainTxStatusFailed,
			BlockNumber: &block,
			Error:       eth.ErrTxReverted.Error(),
		})
		return err == nil, err
	}

	err = self.db.WithContext(ctx).Transaction(func(tx *gorm.DB) (err error) {
		_, err = self.services.ChainTxs.UpdateStatus(ctx, tx, chainTx.TxHash, &service.ChainTxStatusInput{
			Status:      model.ChainTxStatusConfirmed,
			BlockNumber: &block,
		})
		if err != nil {
			return
		}

		if chainTx.EscrowID == nil || chainTx.TargetState == nil {
			return
		}

		escrow, err := lockEscrow(tx, *chainTx.EscrowID)
		if err != nil {
			return
		}

		// The mirror may have moved on since the tx was sent. Only forward moves are applied,
		// anything else is left to ReconcileEscrow, which reads the contract.
		noop, err := fsm.Check(self.table, fsm.EntityEscrow, escrow.CurrentState, *chainTx.TargetState)
		if err != nil || noop {
			self.log.WithField("tx", chainTx.TxHash).
				WithField("escrow_id", escrow.ID).
				WithField("mirror", escrow.CurrentState).
				WithField("target", *chainTx.TargetState).
				Info("Confirmed tx doesn't move the mirror")
			return nil
		}

		hash := chainTx.TxHash
		_, err = self.services.Escrows.ApplyState(ctx, tx, escrow, &service.StateChange{
			To:          *chainTx.TargetState,
			TxHash:      &hash,
			ActorUserID: chainTx.UserID,
			Source:      model.HistorySourceReconcile,
		})
		return
	})
	if err != nil {
		return
	}
	return true, nil
}

// Brings the mirror in line with the contract. Returns the on-chain state and whether the mirror was behind.
func (self *Service) ReconcileEscrow(ctx context.Context, escrow *model.Escrow) (onChain model.EscrowState, diverged bool, err error) {
	onChain, err = self.OnChainState(ctx, escrow.ProxyAddress)
	if err != nil {
		return
	}

	if onChain == escrow.CurrentState {
		err = self.services.Escrows.Touch(ctx, escrow.ID)
		return
	}

	self.log.WithField("escrow_id", escrow.ID).
		WithField("address", escrow.ProxyAddress).
		WithField("mirror", escrow.CurrentState).
		WithField("chain", onChain).
		Warn("Escrow mirror diverged from the contract")

	err = self.db.WithContext(ctx).Transaction(func(tx *gorm.DB) (err error) {
		locked, err := lockEscrow(tx, escrow.ID)
		if err != nil {
			return
		}
		diverged, err = self.services.Escrows.ApplyState(ctx, tx, locked, &service.StateChange{
			To:     onChain,
			Source: model.HistorySourceReconcile,
			Force:  true,
		})
		return
	})
	return
}
