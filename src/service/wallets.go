package service

import (
	"context"

	"github.com/warp-contracts/marketplace/src/utils/apperr"
	"github.com/warp-contracts/marketplace/src/utils/config"
	"github.com/warp-contracts/marketplace/src/utils/eth"
	"github.com/warp-contracts/marketplace/src/utils/model"
	"gorm.io/gorm"
)

type WalletInput struct {
	Address   string `json:"address" binding:"required,eth_addr"`
	ChainID   int64  `json:"chain_id"`
	Label     string `json:"label" binding:"max=64"`
	IsPrimary bool   `json:"is_primary"`
}

type Wallets struct {
	base
}

func NewWallets(config *config.Config, db *gorm.DB) (self *Wallets) {
	self = new(Wallets)
	self.base = newBase(config, db, nil, "wallet")
	return
}

// Adds a wallet to the user. The first wallet becomes primary.
func (self *Wallets) Add(ctx context.Context, userId string, in *WalletInput) (out *model.Wallet, err error) {
	defer self.wrap(&err)

	address, err := eth.NormalizeAddress(in.Address)
	if err != nil {
		return nil, apperr.Validation(err)
	}

	chainId := in.ChainID
	if chainId == 0 {
		chainId = self.config.Chain.ChainId
	}

	err = self.db.WithContext(ctx).Transaction(func(tx *gorm.DB) (err error) {
		return self.add(ctx, tx, userId, address, chainId, in.Label, in.IsPrimary, &out)
	})
	if err != nil {
		return nil, err
	}
	return
}

func (self *Wallets) add(ctx context.Context, tx *gorm.DB, userId, address string, chainId int64, label string, isPrimary bool, out **model.Wallet) (err error) {
	err = exists[model.User](ctx, tx, "user", userId)
	if err != nil {
		return
	}

	var count int64
	err = tx.Model(&model.Wallet{}).Where("user_id = ?", userId).Count(&count).Error
	if err != nil {
		return
	}

	wallet := &model.Wallet{
		UserID:  userId,
		Address: address,
		ChainID: chainId,
		Label:   label,
	}
	err = tx.Create(wallet).Error
	if err != nil {
		if model.IsUniqueViolation(err) {
			return apperr.AlreadyExists("wallet")
		}
		return
	}

	if isPrimary || count == 0 {
		err = self.setPrimary(tx, wallet)
		if err != nil {
			return
		}
	}

	*out = wallet
	return
}

func (self *Wallets) setPrimary(tx *gorm.DB, wallet *model.Wallet) (err error) {
	err = tx.Model(&model.Wallet{}).
		Where("user_id = ? AND id <> ?", wallet.UserID, wallet.ID).
		Update("is_primary", false).
		Error
	if err != nil {
		return
	}

	err = tx.Model(wallet).Update("is_primary", true).Error
	if err != nil {
		return
	}
	wallet.IsPrimary = true

	return tx.Model(&model.User{}).
		Where("id = ?", wallet.UserID).
		Update("wallet_address", wallet.Address).
		Error
}

func (self *Wallets) ListByUser(ctx context.Context, userId string) (out []*model.Wallet, err error) {
	defer self.wrap(&err)

	err = self.db.WithContext(ctx).
		Where("user_id = ?", userId).
		Order("is_primary DESC, created_at ASC").
		Find(&out).
		Error
	return
}

func (self *Wallets) getOwned(ctx context.Context, tx *gorm.DB, userId, id string) (out *model.Wallet, err error) {
	out = new(model.Wallet)
	err = tx.WithContext(ctx).Where("id = ? AND user_id = ?", id, userId).First(out).Error
	if err != nil {
		if model.IsNotFound(err) {
			return nil, apperr.NotFound("wallet")
		}
		return nil, err
	}
	return
}

func (self *Wallets) SetPrimary(ctx context.Context, userId, id string) (out *model.Wallet, err error) {
	defer self.wrap(&err)

	err = self.db.WithContext(ctx).Transaction(func(tx *gorm.DB) (err error) {
		out, err = self.getOwned(ctx, tx, userId, id)
		if err != nil {
			return
		}
		if out.IsPrimary {
			return
		}
		return self.setPrimary(tx, out)
	})
	if err != nil {
		return nil, err
	}
	return
}

// Removing the primary wallet clears the user's address
func (self *Wallets) Delete(ctx context.Context, userId, id string) (err error) {
	defer self.wrap(&err)

	return self.db.WithContext(ctx).Transaction(func(tx *gorm.DB) (err error) {
		wallet, err := self.getOwned(ctx, tx, userId, id)
		if err != nil {
			return
		}

		err = tx.Delete(wallet).Error
		if err != nil {
			return
		}

		if !wallet.IsPrimary {
			return
		}
		return tx.Model(&model.User{}).
			Where("id = ?", userId).
			Update("wallet_address", nil).
			Error
	})
}
