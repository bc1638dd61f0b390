package eth

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"testing"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/sony/gobreaker/v2"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

func TestEthTestSuite(t *testing.T) {
	suite.Run(t, new(EthTestSuite))
}

type EthTestSuite struct {
	suite.Suite
}

func (s *EthTestSuite) TestABIsLoad() {
	for _, c := range []Contract{Escrow, Factory, RewardDistributor, Token} {
		require.NotNil(s.T(), c.ABI(), c.String())
	}
	_, ok := Escrow.ABI().Methods["resolveDispute"]
	require.True(s.T(), ok)
	_, ok = Factory.ABI().Events["EscrowCreated"]
	require.True(s.T(), ok)
}

func (s *EthTestSuite) TestGetTransactionLog() {
	factory := Factory.ABI()
	event := factory.Events["EscrowCreated"]

	escrow := common.HexToAddress("0x00000000000000000000000000000000000000e1")
	buyer := common.HexToAddress("0x00000000000000000000000000000000000000b1")
	seller := common.HexToAddress("0x00000000000000000000000000000000000000c1")
	arbiter := common.HexToAddress("0x00000000000000000000000000000000000000a1")

	data, err := event.Inputs.NonIndexed().Pack(arbiter, big.NewInt(1000))
	require.NoError(s.T(), err)

	receipt := &types.Receipt{
		Logs: []*types.Log{
			// Unrelated log
			{Topics: []common.Hash{crypto.Keccak256Hash([]byte("Other()"))}},
			{
				Address: common.HexToAddress("0x0000000000000000000000000000000000000f00"),
				Topics: []common.Hash{
					event.ID,
					common.BytesToHash(escrow.Bytes()),
					common.BytesToHash(buyer.Bytes()),
					common.BytesToHash(seller.Bytes()),
				},
				Data: data,
			},
		},
	}

	log, err := GetTransactionLog(receipt, factory, "EscrowCreated")
	require.NoError(s.T(), err)
	require.Equal(s.T(), escrow, log["escrow"])
	require.Equal(s.T(), buyer, log["buyer"])
	require.Equal(s.T(), seller, log["seller"])
	require.Equal(s.T(), arbiter, log["arbiter"])
	require.Equal(s.T(), 0, big.NewInt(1000).Cmp(log["amount"].(*big.Int)))

	_, err = GetTransactionLog(&types.Receipt{}, factory, "EscrowCreated")
	require.ErrorIs(s.T(), err, ErrEventNotFound)
}

func (s *EthTestSuite) TestClassify() {
	cases := []struct {
		err    error
		code   string
		status int
	}{
		{gobreaker.ErrOpenState, "CHAIN_RPC_UNAVAILABLE", http.StatusServiceUnavailable},
		{context.DeadlineExceeded, "CHAIN_TIMEOUT", http.StatusGatewayTimeout},
		{errors.New("insufficient funds for gas * price + value"), "CHAIN_INSUFFICIENT_FUNDS", http.StatusBadRequest},
		{errors.New("nonce too low"), "CHAIN_NONCE_CONFLICT", http.StatusConflict},
		{errors.New("execution reverted: not buyer"), "CHAIN_TX_REVERTED", http.StatusBadRequest},
		{ErrTxReverted, "CHAIN_TX_REVERTED", http.StatusBadRequest},
		{errors.New("dial tcp: connection refused"), "CHAIN_RPC_UNAVAILABLE", http.StatusServiceUnavailable},
		{ErrChainDisabled, "CHAIN_DISABLED", http.StatusServiceUnavailable},
		{errors.New("something else"), "CHAIN_ERROR", http.StatusInternalServerError},
	}
	for _, c := range cases {
		appErr := Classify(fmt.Errorf("wrapped: %w", c.err))
		require.Equal(s.T(), c.code, appErr.Code, c.err.Error())
		require.Equal(s.T(), c.status, appErr.StatusCode, c.err.Error())
	}
}

func (s *EthTestSuite) TestCallerErrorsDontTripBreaker() {
	require.True(s.T(), isCallerError(errors.New("execution reverted")))
	require.True(s.T(), isCallerError(ErrInsufficientFund))
	require.False(s.T(), isCallerError(errors.New("connection refused")))
}

func (s *EthTestSuite) TestVerifySignature() {
	key, err := crypto.GenerateKey()
	require.NoError(s.T(), err)
	address := crypto.PubkeyToAddress(key.PublicKey).Hex()

	message := LoginMessage(address, "abc")
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), key)
	require.NoError(s.T(), err)
	sig[crypto.RecoveryIDOffset] += 27

	require.NoError(s.T(), VerifySignature(address, message, hexutil.Encode(sig)))

	// Different message
	require.ErrorIs(s.T(), VerifySignature(address, message+"x", hexutil.Encode(sig)), ErrInvalidSignature)

	// Garbage
	require.ErrorIs(s.T(), VerifySignature(address, message, "0x1234"), ErrInvalidSignature)
}

func (s *EthTestSuite) TestParseAmount() {
	v, err := ParseAmount("1000000000000000000000")
	require.NoError(s.T(), err)
	require.Equal(s.T(), "1000000000000000000000", v.String())

	_, err = ParseAmount("0")
	require.Error(s.T(), err)
	_, err = ParseAmount("1.5")
	require.Error(s.T(), err)
}

func (s *EthTestSuite) TestNormalizeAddress() {
	v, err := NormalizeAddress("0xAbCdEf0000000000000000000000000000000001")
	require.NoError(s.T(), err)
	require.Equal(s.T(), "0xabcdef0000000000000000000000000000000001", v)

	_, err = NormalizeAddress("nope")
	require.Error(s.T(), err)
}
