package eth

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker/v2"
	"github.com/teivah/onecontext"
	"github.com/warp-contracts/marketplace/src/utils/config"
	"github.com/warp-contracts/marketplace/src/utils/logger"
)

// Everything the platform needs from the chain
type Backend interface {
	// Read only contract call
	Call(ctx context.Context, contract Contract, address common.Address, method string, args ...interface{}) ([]interface{}, error)

	// Signs a transaction, passes it to beforeSend and broadcasts it if beforeSend succeeds
	Submit(ctx context.Context, contract Contract, address common.Address, value *big.Int, beforeSend func(*types.Transaction) error, method string, args ...interface{}) (*types.Transaction, error)

	// Estimated fee of the call, in wei
	EstimateFee(ctx context.Context, contract Contract, address common.Address, value *big.Int, method string, args ...interface{}) (*big.Int, error)

	// Waits for the transaction to be mined. Returns ErrTxReverted with the receipt if it failed.
	WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error)

	// Receipt of a mined transaction, ethereum.NotFound if it's still pending
	Receipt(ctx context.Context, hash common.Hash) (*types.Receipt, error)

	Balance(ctx context.Context, account common.Address) (*big.Int, error)

	SignerAddress() common.Address
}

type Client struct {
	log    *logrus.Entry
	config *config.Chain

	// Cancelled when the application stops
	ctx context.Context

	rpc     *ethclient.Client
	chainId *big.Int
	key     *ecdsa.PrivateKey
	signer  common.Address
	breaker *gobreaker.CircuitBreaker[any]

	// Signing and broadcasting are serialized so nonces don't collide
	nonceMtx sync.Mutex
}

func NewClient(ctx context.Context, config *config.Config) (self *Client, err error) {
	self = new(Client)
	self.log = logger.NewSublogger("eth-client")
	self.config = &config.Chain
	self.ctx = ctx
	self.chainId = big.NewInt(config.Chain.ChainId)

	if config.Chain.SignerPrivateKey != "" {
		self.key, err = crypto.HexToECDSA(strings.TrimPrefix(config.Chain.SignerPrivateKey, "0x"))
		if err != nil {
			return nil, fmt.Errorf("invalid signer key: %w", err)
		}
		self.signer = crypto.PubkeyToAddress(self.key.PublicKey)
	}

	self.rpc, err = ethclient.DialContext(ctx, config.Chain.RpcUrl)
	if err != nil {
		self.log.WithError(err).Error("Cannot get ETH client")
		return nil, err
	}

	self.breaker = gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:    "chain-rpc",
		Timeout: config.Chain.BreakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= config.Chain.BreakerMaxFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			self.log.WithField("from", from.String()).WithField("to", to.String()).Warn("RPC circuit breaker changed state")
		},
		IsSuccessful: isCallerError,
	})

	self.log.WithField("chain_id", config.Chain.ChainId).WithField("signer", self.signer.Hex()).Info("Chain client ready")
	return
}

func protect[T any](cb *gobreaker.CircuitBreaker[any], f func() (T, error)) (T, error) {
	out, err := cb.Execute(func() (any, error) {
		v, err := f()
		return v, err
	})
	if err != nil {
		var zero T
		return zero, err
	}
	v, _ := out.(T)
	return v, nil
}

func (self *Client) Close() {
	self.rpc.Close()
}

func (self *Client) SignerAddress() common.Address {
	return self.signer
}

func (self *Client) BreakerState() gobreaker.State {
	return self.breaker.State()
}

func (self *Client) bound(contract Contract, address common.Address) *bind.BoundContract {
	return bind.NewBoundContract(address, *contract.ABI(), self.rpc, self.rpc, self.rpc)
}

func (self *Client) Call(ctx context.Context, contract Contract, address common.Address, method string, args ...interface{}) ([]interface{}, error) {
	ctx, cancel := context.WithTimeout(ctx, self.config.CallTimeout)
	defer cancel()

	return protect(self.breaker, func() (out []interface{}, err error) {
		err = self.bound(contract, address).Call(&bind.CallOpts{Context: ctx}, &out, method, args...)
		return
	})
}

func (self *Client) estimateGas(ctx context.Context, contract Contract, address common.Address, value *big.Int, method string, args ...interface{}) (uint64, error) {
	data, err := contract.ABI().Pack(method, args...)
	if err != nil {
		return 0, err
	}

	gas, err := protect(self.breaker, func() (uint64, error) {
		return self.rpc.EstimateGas(ctx, ethereum.CallMsg{
			From:  self.signer,
			To:    &address,
			Value: value,
			Data:  data,
		})
	})
	if err != nil {
		return 0, err
	}
	return gas * (100 + self.config.GasLimitMarginPercent) / 100, nil
}

func (self *Client) EstimateFee(ctx context.Context, contract Contract, address common.Address, value *big.Int, method string, args ...interface{}) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, self.config.CallTimeout)
	defer cancel()

	gas, err := self.estimateGas(ctx, contract, address, value, method, args...)
	if err != nil {
		return nil, err
	}

	price, err := protect(self.breaker, func() (*big.Int, error) {
		return self.rpc.SuggestGasPrice(ctx)
	})
	if err != nil {
		return nil, err
	}
	return new(big.Int).Mul(price, new(big.Int).SetUint64(gas)), nil
}

func (self *Client) Submit(ctx context.Context, contract Contract, address common.Address, value *big.Int, beforeSend func(*types.Transaction) error, method string, args ...interface{}) (tx *types.Transaction, err error) {
	if self.key == nil {
		return nil, ErrSignerNotSet
	}

	self.nonceMtx.Lock()
	defer self.nonceMtx.Unlock()

	callCtx, cancel := context.WithTimeout(ctx, self.config.CallTimeout)
	defer cancel()

	opts, err := bind.NewKeyedTransactorWithChainID(self.key, self.chainId)
	if err != nil {
		return
	}
	opts.Context = callCtx
	opts.Value = value
	opts.NoSend = true

	// Estimation fails early when the call would revert
	opts.GasLimit, err = self.estimateGas(callCtx, contract, address, value, method, args...)
	if err != nil {
		return
	}

	tx, err = protect(self.breaker, func() (*types.Transaction, error) {
		return self.bound(contract, address).Transact(opts, method, args...)
	})
	if err != nil {
		return
	}

	if beforeSend != nil {
		err = beforeSend(tx)
		if err != nil {
			return nil, err
		}
	}

	_, err = protect(self.breaker, func() (any, error) {
		return nil, self.rpc.SendTransaction(callCtx, tx)
	})
	if err != nil {
		return tx, err
	}

	self.log.WithField("method", method).WithField("contract", contract.String()).WithField("tx", tx.Hash().Hex()).Info("Transaction sent")
	return
}

func (self *Client) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	// Stop waiting when either the request or the application is done
	ctx, cancel := onecontext.Merge(ctx, self.ctx)
	defer cancel()

	ctx, cancelTimeout := context.WithTimeout(ctx, self.config.TxWaitTimeout)
	defer cancelTimeout()

	receipt, err := bind.WaitMined(ctx, self.rpc, tx)
	if err != nil {
		return nil, err
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, ErrTxReverted
	}
	return receipt, nil
}

func (self *Client) Receipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, self.config.CallTimeout)
	defer cancel()

	return protect(self.breaker, func() (*types.Receipt, error) {
		return self.rpc.TransactionReceipt(ctx, hash)
	})
}

func (self *Client) Balance(ctx context.Context, account common.Address) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(ctx, self.config.CallTimeout)
	defer cancel()

	return protect(self.breaker, func() (*big.Int, error) {
		return self.rpc.BalanceAt(ctx, account, nil)
	})
}

// Calls a view method returning a single value
func CallOne[T any](ctx context.Context, backend Backend, contract Contract, address common.Address, method string, args ...interface{}) (out T, err error) {
	if backend == nil {
		err = ErrChainDisabled
		return
	}
	res, err := backend.Call(ctx, contract, address, method, args...)
	if err != nil {
		return
	}
	if len(res) != 1 {
		err = fmt.Errorf("%s.%s returned %d values", contract, method, len(res))
		return
	}
	out, ok := res[0].(T)
	if !ok {
		err = fmt.Errorf("%s.%s returned unexpected type %T", contract, method, res[0])
	}
	return
}
