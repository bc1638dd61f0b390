package service

import (
	"strings"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/require"
	"github.com/warp-contracts/marketplace/src/utils/model"
)

func (s *ServiceTestSuite) TestUserCreateDuplicate() {
	user, err := s.services.Users.Create(s.ctx, &UserInput{Handle: " alice ", Role: model.UserRoleClient})
	require.NoError(s.T(), err)
	require.Equal(s.T(), "alice", user.Handle)
	require.Equal(s.T(), "alice", user.DisplayName)

	_, err = s.services.Users.Create(s.ctx, &UserInput{Handle: "alice"})
	s.requireCode(err, "USER_ALREADY_EXISTS")

	got, err := s.services.Users.GetByHandle(s.ctx, "alice")
	require.NoError(s.T(), err)
	require.Equal(s.T(), user.ID, got.ID)

	_, err = s.services.Users.Get(s.ctx, "nobody")
	s.requireCode(err, "USER_NOT_FOUND")
}

func (s *ServiceTestSuite) TestUserSetRole() {
	user, err := s.services.Users.SetRole(s.ctx, s.freelancer.ID, model.UserRoleAdmin)
	require.NoError(s.T(), err)
	require.Equal(s.T(), model.UserRoleAdmin, user.Role)

	admins, err := s.services.Users.List(s.ctx, &UserFilter{Role: model.UserRoleAdmin})
	require.NoError(s.T(), err)
	require.Len(s.T(), admins, 2)
}

func (s *ServiceTestSuite) TestWalletFirstIsPrimary() {
	first, err := s.services.Wallets.Add(s.ctx, s.client.ID, &WalletInput{Address: "0x00000000000000000000000000000000000000AB"})
	require.NoError(s.T(), err)
	require.True(s.T(), first.IsPrimary)
	require.Equal(s.T(), "0x00000000000000000000000000000000000000ab", first.Address)

	second, err := s.services.Wallets.Add(s.ctx, s.client.ID, &WalletInput{Address: "0x00000000000000000000000000000000000000cd"})
	require.NoError(s.T(), err)
	require.False(s.T(), second.IsPrimary)

	_, err = s.services.Wallets.Add(s.ctx, s.freelancer.ID, &WalletInput{Address: "0x00000000000000000000000000000000000000ab"})
	s.requireCode(err, "WALLET_ALREADY_EXISTS")

	_, err = s.services.Wallets.SetPrimary(s.ctx, s.client.ID, second.ID)
	require.NoError(s.T(), err)

	wallets, err := s.services.Wallets.ListByUser(s.ctx, s.client.ID)
	require.NoError(s.T(), err)
	require.Len(s.T(), wallets, 2)
	primaries := 0
	for _, w := range wallets {
		if w.IsPrimary {
			primaries++
			require.Equal(s.T(), second.ID, w.ID)
		}
	}
	require.Equal(s.T(), 1, primaries)

	user, err := s.services.Users.Get(s.ctx, s.client.ID)
	require.NoError(s.T(), err)
	require.Equal(s.T(), second.Address, *user.WalletAddress)
}

func (s *ServiceTestSuite) TestWalletLogin() {
	key, err := crypto.GenerateKey()
	require.NoError(s.T(), err)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	sign := func(message string) string {
		sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
		require.NoError(s.T(), err)
		sig[crypto.RecoveryIDOffset] += 27
		return hexutil.Encode(sig)
	}

	nonce, err := s.services.Auth.Nonce(s.ctx, &NonceInput{Address: address})
	require.NoError(s.T(), err)
	require.Equal(s.T(), strings.ToLower(address), nonce.Address)

	out, err := s.services.Auth.Login(s.ctx, &LoginInput{Address: address, Signature: sign(nonce.Message), Role: model.UserRoleClient})
	require.NoError(s.T(), err)
	require.True(s.T(), out.Created)
	require.NotEmpty(s.T(), out.Token)
	require.Equal(s.T(), model.UserRoleClient, out.User.Role)
	require.Equal(s.T(), strings.ToLower(address), *out.User.WalletAddress)

	claims, err := s.services.Auth.Tokens().Verify(out.Token)
	require.NoError(s.T(), err)
	require.Equal(s.T(), out.User.ID, claims.UserID)

	// Nonce is gone after use
	_, err = s.services.Auth.Login(s.ctx, &LoginInput{Address: address, Signature: sign(nonce.Message)})
	s.requireCode(err, "UNAUTHORIZED")

	// Second login finds the same user
	nonce, err = s.services.Auth.Nonce(s.ctx, &NonceInput{Address: address})
	require.NoError(s.T(), err)
	again, err := s.services.Auth.Login(s.ctx, &LoginInput{Address: address, Signature: sign(nonce.Message)})
	require.NoError(s.T(), err)
	require.False(s.T(), again.Created)
	require.Equal(s.T(), out.User.ID, again.User.ID)
}

func (s *ServiceTestSuite) TestWalletLoginBadSignature() {
	key, err := crypto.GenerateKey()
	require.NoError(s.T(), err)
	other, err := crypto.GenerateKey()
	require.NoError(s.T(), err)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	nonce, err := s.services.Auth.Nonce(s.ctx, &NonceInput{Address: address})
	require.NoError(s.T(), err)

	sig, err := crypto.Sign(accounts.TextHash([]byte(nonce.Message)), other)
	require.NoError(s.T(), err)

	_, err = s.services.Auth.Login(s.ctx, &LoginInput{Address: address, Signature: hexutil.Encode(sig)})
	s.requireCode(err, "UNAUTHORIZED")

	var count int64
	require.NoError(s.T(), s.db.Model(&model.User{}).Count(&count).Error)
	require.Equal(s.T(), int64(3), count)

	// The failed attempt used the nonce up, a valid signature of it no longer works
	require.NoError(s.T(), s.db.Model(&model.AuthNonce{}).Count(&count).Error)
	require.Zero(s.T(), count)

	sig, err = crypto.Sign(accounts.TextHash([]byte(nonce.Message)), key)
	require.NoError(s.T(), err)
	sig[crypto.RecoveryIDOffset] += 27
	_, err = s.services.Auth.Login(s.ctx, &LoginInput{Address: address, Signature: hexutil.Encode(sig)})
	s.requireCode(err, "UNAUTHORIZED")
}
