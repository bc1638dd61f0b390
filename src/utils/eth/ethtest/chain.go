// Package ethtest provides an in-memory eth.Backend for tests.
package ethtest

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/warp-contracts/marketplace/src/utils/eth"
)

// Contract state indexes, same order as the contract's enum
const (
	Unfunded uint8 = iota
	Funded
	Delivered
	Disputed
	Releasable
	Paid
	Refunded
)

// Chain that mines every transaction immediately and moves escrow states the way the contract does
type Chain struct {
	mtx sync.Mutex

	Signer common.Address
	Funds  *big.Int
	Fee    *big.Int

	// Escrow proxy state by address
	States map[common.Address]uint8

	// Read only values returned by Call, keyed "contract.method"
	Values map[string]interface{}

	// Address emitted in EscrowCreated
	NextEscrow common.Address

	// Errors injected into the next calls
	SendErr   error
	Revert    bool
	WaitErr   error
	CallErr   error
	HoldState bool

	Sent     []string
	receipts map[common.Hash]*types.Receipt
	nonce    uint64
	block    int64
}

func NewChain() *Chain {
	return &Chain{
		Signer:     common.HexToAddress("0x00000000000000000000000000000000000000f1"),
		Funds:      new(big.Int).Exp(big.NewInt(10), big.NewInt(20), nil),
		Fee:        big.NewInt(21000),
		States:     make(map[common.Address]uint8),
		Values:     make(map[string]interface{}),
		NextEscrow: common.HexToAddress("0x00000000000000000000000000000000000000e1"),
		receipts:   make(map[common.Hash]*types.Receipt),
		block:      100,
	}
}

func (self *Chain) SetState(address string, state uint8) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	self.States[common.HexToAddress(address)] = state
}

func (self *Chain) State(address string) uint8 {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	return self.States[common.HexToAddress(address)]
}

func (self *Chain) Call(ctx context.Context, contract eth.Contract, address common.Address, method string, args ...interface{}) ([]interface{}, error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	if self.CallErr != nil {
		return nil, self.CallErr
	}
	if contract == eth.Escrow && method == "state" {
		return []interface{}{self.States[address]}, nil
	}
	v, ok := self.Values[fmt.Sprintf("%s.%s", contract, method)]
	if !ok {
		return nil, fmt.Errorf("execution reverted: no value for %s.%s", contract, method)
	}
	return []interface{}{v}, nil
}

func (self *Chain) Submit(ctx context.Context, contract eth.Contract, address common.Address, value *big.Int, beforeSend func(*types.Transaction) error, method string, args ...interface{}) (*types.Transaction, error) {
	data, err := contract.ABI().Pack(method, args...)
	if err != nil {
		return nil, err
	}

	self.mtx.Lock()
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    self.nonce,
		To:       &address,
		Value:    value,
		Gas:      100000,
		GasPrice: big.NewInt(1),
		Data:     data,
	})
	self.nonce++
	self.mtx.Unlock()

	if beforeSend != nil {
		err = beforeSend(tx)
		if err != nil {
			return nil, err
		}
	}

	self.mtx.Lock()
	defer self.mtx.Unlock()

	if self.SendErr != nil {
		return tx, self.SendErr
	}
	self.Sent = append(self.Sent, method)

	self.block++
	receipt := &types.Receipt{
		Status:      types.ReceiptStatusSuccessful,
		TxHash:      tx.Hash(),
		BlockNumber: big.NewInt(self.block),
	}
	if self.Revert {
		receipt.Status = types.ReceiptStatusFailed
		self.receipts[tx.Hash()] = receipt
		return tx, nil
	}

	switch contract {
	case eth.Escrow:
		if !self.HoldState {
			self.States[address] = next(self.States[address], method, args)
		}
	case eth.Factory:
		log, err := escrowCreated(self.NextEscrow, args)
		if err != nil {
			return nil, err
		}
		receipt.Logs = append(receipt.Logs, log)
		self.States[self.NextEscrow] = Unfunded
	}
	self.receipts[tx.Hash()] = receipt
	return tx, nil
}

func next(state uint8, method string, args []interface{}) uint8 {
	switch method {
	case "fund":
		return Funded
	case "deliver":
		return Delivered
	case "approve":
		return Releasable
	case "withdraw":
		return Paid
	case "initiateDispute":
		return Disputed
	case "cancel":
		return Refunded
	case "resolveDispute":
		if bps, ok := args[0].(uint16); ok && bps == 0 {
			return Refunded
		}
		return Releasable
	}
	return state
}

func escrowCreated(escrow common.Address, args []interface{}) (*types.Log, error) {
	event := eth.Factory.ABI().Events["EscrowCreated"]
	data, err := event.Inputs.NonIndexed().Pack(args[2], args[3])
	if err != nil {
		return nil, err
	}
	return &types.Log{
		Topics: []common.Hash{
			event.ID,
			common.BytesToHash(escrow.Bytes()),
			common.BytesToHash(args[0].(common.Address).Bytes()),
			common.BytesToHash(args[1].(common.Address).Bytes()),
		},
		Data: data,
	}, nil
}

func (self *Chain) EstimateFee(ctx context.Context, contract eth.Contract, address common.Address, value *big.Int, method string, args ...interface{}) (*big.Int, error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	return new(big.Int).Set(self.Fee), nil
}

func (self *Chain) WaitMined(ctx context.Context, tx *types.Transaction) (*types.Receipt, error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	if self.WaitErr != nil {
		return nil, self.WaitErr
	}
	receipt, ok := self.receipts[tx.Hash()]
	if !ok {
		return nil, ethereum.NotFound
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return receipt, eth.ErrTxReverted
	}
	return receipt, nil
}

func (self *Chain) Receipt(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	receipt, ok := self.receipts[hash]
	if !ok {
		return nil, ethereum.NotFound
	}
	return receipt, nil
}

// Adds a receipt for a transaction sent elsewhere
func (self *Chain) Mine(hash common.Hash, status uint64) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	self.block++
	self.receipts[hash] = &types.Receipt{Status: status, TxHash: hash, BlockNumber: big.NewInt(self.block)}
}

func (self *Chain) Balance(ctx context.Context, account common.Address) (*big.Int, error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	return new(big.Int).Set(self.Funds), nil
}

func (self *Chain) SignerAddress() common.Address {
	return self.Signer
}
