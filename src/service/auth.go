package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"strings"
	"time"

	"github.com/warp-contracts/marketplace/src/utils/apperr"
	"github.com/warp-contracts/marketplace/src/utils/auth"
	"github.com/warp-contracts/marketplace/src/utils/config"
	"github.com/warp-contracts/marketplace/src/utils/eth"
	"github.com/warp-contracts/marketplace/src/utils/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type NonceInput struct {
	Address string `json:"address" binding:"required,eth_addr"`
}

type NonceOutput struct {
	Address   string    `json:"address"`
	Nonce     string    `json:"nonce"`
	Message   string    `json:"message"`
	ExpiresAt time.Time `json:"expires_at"`
}

type LoginInput struct {
	Address   string         `json:"address" binding:"required,eth_addr"`
	Signature string         `json:"signature" binding:"required"`
	Role      model.UserRole `json:"role" binding:"omitempty,oneof=client freelancer"`
}

type LoginOutput struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      *model.User `json:"user"`
	Created   bool        `json:"created"`
}

// Wallet signature login
type Auth struct {
	base
	tokens *auth.Tokens
}

func NewAuth(config *config.Config, db *gorm.DB, tokens *auth.Tokens) (self *Auth) {
	self = new(Auth)
	self.base = newBase(config, db, nil, "auth")
	self.tokens = tokens
	return
}

func (self *Auth) Tokens() *auth.Tokens {
	return self.tokens
}

// Issues a one-time nonce the wallet has to sign
func (self *Auth) Nonce(ctx context.Context, in *NonceInput) (out *NonceOutput, err error) {
	defer self.wrap(&err)

	address, err := eth.NormalizeAddress(in.Address)
	if err != nil {
		return nil, apperr.Validation(err)
	}

	buf := make([]byte, 16)
	_, err = rand.Read(buf)
	if err != nil {
		return
	}

	nonce := &model.AuthNonce{
		Address:   address,
		Nonce:     hex.EncodeToString(buf),
		ExpiresAt: time.Now().UTC().Add(self.config.Auth.NonceTTL),
	}

	err = self.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "address"}},
			DoUpdates: clause.AssignmentColumns([]string{"nonce", "expires_at"}),
		}).
		Create(nonce).
		Error
	if err != nil {
		return
	}

	return &NonceOutput{
		Address:   address,
		Nonce:     nonce.Nonce,
		Message:   eth.LoginMessage(address, nonce.Nonce),
		ExpiresAt: nonce.ExpiresAt,
	}, nil
}

// Verifies the signed nonce and issues a token. Unknown wallets get a new account.
func (self *Auth) Login(ctx context.Context, in *LoginInput) (out *LoginOutput, err error) {
	defer self.wrap(&err)

	address, err := eth.NormalizeAddress(in.Address)
	if err != nil {
		return nil, apperr.Validation(err)
	}

	nonce, err := self.consumeNonce(ctx, address)
	if err != nil {
		return
	}

	if time.Now().UTC().After(nonce.ExpiresAt) {
		return nil, apperr.Unauthorized("Nonce expired, request a new one")
	}

	err = eth.VerifySignature(address, eth.LoginMessage(address, nonce.Nonce), in.Signature)
	if err != nil {
		return nil, apperr.Unauthorized("Invalid signature").WithCause(err)
	}

	out = new(LoginOutput)
	err = self.db.WithContext(ctx).Transaction(func(tx *gorm.DB) (err error) {
		out.User, out.Created, err = self.userByWallet(ctx, tx, address, in.Role)
		return
	})
	if err != nil {
		return nil, err
	}

	var claims *auth.Claims
	out.Token, claims, err = self.tokens.Issue(out.User.ID, out.User.Role)
	if err != nil {
		return nil, err
	}
	out.ExpiresAt = claims.ExpiresAt
	return
}

// Nonce is single use: it's removed before anything is verified, so a failed login burns it too
func (self *Auth) consumeNonce(ctx context.Context, address string) (nonce *model.AuthNonce, err error) {
	nonce = new(model.AuthNonce)
	err = self.db.WithContext(ctx).Where("address = ?", address).First(nonce).Error
	if err != nil {
		if model.IsNotFound(err) {
			return nil, apperr.Unauthorized("Nonce not found, request a new one")
		}
		return
	}

	// Only one of concurrent logins gets to delete it
	res := self.db.WithContext(ctx).
		Where("address = ? AND nonce = ?", address, nonce.Nonce).
		Delete(&model.AuthNonce{})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, apperr.Unauthorized("Nonce not found, request a new one")
	}
	return
}

func (self *Auth) userByWallet(ctx context.Context, tx *gorm.DB, address string, role model.UserRole) (user *model.User, created bool, err error) {
	var wallet model.Wallet
	err = tx.Where("address = ?", address).First(&wallet).Error
	if err == nil {
		user, err = first[model.User](ctx, tx, "user", wallet.UserID)
		return
	}
	if !model.IsNotFound(err) {
		return
	}

	handle := strings.TrimPrefix(address, "0x")[:10]
	var taken int64
	err = tx.Model(&model.User{}).Where("handle = ?", handle).Count(&taken).Error
	if err != nil {
		return
	}
	if taken > 0 {
		handle = address
	}

	user = &model.User{
		Handle:        handle,
		DisplayName:   address,
		Role:          role,
		WalletAddress: &address,
	}
	err = tx.Create(user).Error
	if err != nil {
		return
	}

	err = tx.Create(&model.Wallet{
		UserID:    user.ID,
		Address:   address,
		ChainID:   self.config.Chain.ChainId,
		IsPrimary: true,
	}).Error
	return user, true, err
}
