package service

import (
	"context"
	"fmt"
	"time"

	"github.com/warp-contracts/marketplace/src/utils/apperr"
	"github.com/warp-contracts/marketplace/src/utils/config"
	"github.com/warp-contracts/marketplace/src/utils/eth"
	"github.com/warp-contracts/marketplace/src/utils/model"
	"gorm.io/gorm"
)

type ChainTxInput struct {
	TxHash      string              `json:"tx_hash" binding:"required,len=66,startswith=0x"`
	EscrowID    *string             `json:"escrow_id"`
	UserID      *string             `json:"user_id"`
	Kind        model.ChainTxKind   `json:"kind" binding:"required,oneof=deploy fund deliver approve withdraw dispute resolve cancel reward other"`
	Status      model.ChainTxStatus `json:"status" binding:"omitempty,oneof=pending confirmed failed"`
	TargetState *model.EscrowState  `json:"target_state"`
	BlockNumber *uint64             `json:"block_number"`
}

type ChainTxStatusInput struct {
	Status      model.ChainTxStatus `json:"status" binding:"required,oneof=pending confirmed failed"`
	BlockNumber *uint64             `json:"block_number"`
	Error       string              `json:"error"`
}

type ChainTxs struct {
	base
}

func NewChainTxs(config *config.Config, db *gorm.DB) (self *ChainTxs) {
	self = new(ChainTxs)
	self.base = newBase(config, db, nil, "chain tx")
	return
}

// Duplicate hashes are rejected with CHAIN_TX_ALREADY_EXISTS
func (self *ChainTxs) Create(ctx context.Context, tx *gorm.DB, in *ChainTxInput) (out *model.ChainTx, err error) {
	defer self.wrap(&err)

	hash, err := eth.NormalizeHash(in.TxHash)
	if err != nil {
		return nil, apperr.Validation(err)
	}
	if !in.Kind.IsValid() {
		return nil, apperr.BadRequest("VALIDATION_ERROR", fmt.Sprintf("unknown chain tx kind: %s", in.Kind))
	}
	if in.TargetState != nil && !in.TargetState.IsValid() {
		return nil, apperr.BadRequest("VALIDATION_ERROR", fmt.Sprintf("unknown escrow state: %s", *in.TargetState))
	}

	out = &model.ChainTx{
		TxHash:      hash,
		EscrowID:    in.EscrowID,
		UserID:      in.UserID,
		Kind:        in.Kind,
		Status:      in.Status,
		TargetState: in.TargetState,
		BlockNumber: in.BlockNumber,
	}

	err = self.inTx(ctx, tx, func(tx *gorm.DB) (err error) {
		if in.EscrowID != nil {
			err = exists[model.Escrow](ctx, tx, "escrow", *in.EscrowID)
			if err != nil {
				return
			}
		}
		err = tx.Create(out).Error
		if model.IsUniqueViolation(err) {
			return apperr.AlreadyExists("chain tx")
		}
		return
	})
	if err != nil {
		return nil, err
	}
	return
}

func (self *ChainTxs) GetByHash(ctx context.Context, hash string) (out *model.ChainTx, err error) {
	defer self.wrap(&err)

	hash, err = eth.NormalizeHash(hash)
	if err != nil {
		return nil, apperr.Validation(err)
	}

	out = new(model.ChainTx)
	err = self.db.WithContext(ctx).Where("tx_hash = ?", hash).First(out).Error
	if err != nil {
		if model.IsNotFound(err) {
			return nil, apperr.NotFound("chain tx")
		}
		return nil, err
	}
	return
}

func (self *ChainTxs) ListByEscrow(ctx context.Context, escrowId string, page Page) (out []*model.ChainTx, err error) {
	defer self.wrap(&err)

	err = page.apply(self.db.WithContext(ctx)).
		Where("escrow_id = ?", escrowId).
		Order("created_at DESC").
		Find(&out).
		Error
	return
}

func (self *ChainTxs) ListByUser(ctx context.Context, userId string, page Page) (out []*model.ChainTx, err error) {
	defer self.wrap(&err)

	err = page.apply(self.db.WithContext(ctx)).
		Where("user_id = ?", userId).
		Order("created_at DESC").
		Find(&out).
		Error
	return
}

// Pending transactions older than the given age, oldest first
func (self *ChainTxs) ListPending(ctx context.Context, olderThan time.Duration, limit int) (out []*model.ChainTx, err error) {
	defer self.wrap(&err)

	err = self.db.WithContext(ctx).
		Where("status = ? AND created_at < ?", model.ChainTxStatusPending, time.Now().UTC().Add(-olderThan)).
		Order("created_at ASC").
		Limit(limit).
		Find(&out).
		Error
	return
}

// Final statuses don't change anymore
func (self *ChainTxs) UpdateStatus(ctx context.Context, tx *gorm.DB, hash string, in *ChainTxStatusInput) (out *model.ChainTx, err error) {
	defer self.wrap(&err)

	hash, err = eth.NormalizeHash(hash)
	if err != nil {
		return nil, apperr.Validation(err)
	}

	err = self.inTx(ctx, tx, func(tx *gorm.DB) (err error) {
		out = new(model.ChainTx)
		err = tx.Clauses(lockingUpdate).Where("tx_hash = ?", hash).First(out).Error
		if err != nil {
			if model.IsNotFound(err) {
				return apperr.NotFound("chain tx")
			}
			return
		}

		if out.Status == in.Status {
			return
		}
		if out.Status != model.ChainTxStatusPending {
			return apperr.InvalidTransition("chain tx", string(out.Status), string(in.Status))
		}

		err = tx.Model(out).Updates(map[string]interface{}{
			"status":       in.Status,
			"block_number": in.BlockNumber,
			"error":        in.Error,
		}).Error
		if err != nil {
			return
		}
		out.Status = in.Status
		out.BlockNumber = in.BlockNumber
		out.Error = in.Error
		return
	})
	if err != nil {
		return nil, err
	}
	return
}
