package contract

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
	"github.com/warp-contracts/marketplace/src/service"
	"github.com/warp-contracts/marketplace/src/utils/apperr"
	"github.com/warp-contracts/marketplace/src/utils/auth"
	"github.com/warp-contracts/marketplace/src/utils/config"
	"github.com/warp-contracts/marketplace/src/utils/eth"
	"github.com/warp-contracts/marketplace/src/utils/fsm"
	"github.com/warp-contracts/marketplace/src/utils/ipfs"
	"github.com/warp-contracts/marketplace/src/utils/logger"
	"github.com/warp-contracts/marketplace/src/utils/model"
	"github.com/warp-contracts/marketplace/src/utils/monitoring"
	"github.com/warp-contracts/marketplace/src/utils/monitoring/report"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Outcome of a mined contract call
type TxResult struct {
	TxHash      string            `json:"tx_hash"`
	BlockNumber uint64            `json:"block_number"`
	State       model.EscrowState `json:"state,omitempty"`
	Escrow      *model.Escrow     `json:"escrow,omitempty"`
}

// Contract endpoints: escrow proxies, the factory and the reward distributor.
// Every write is signed by the platform signer and mirrored in the database.
type Service struct {
	config *config.Config
	log    *logrus.Entry
	db     *gorm.DB

	backend  eth.Backend
	ipfs     *ipfs.Client
	table    *fsm.Table
	services *service.Services
	report   *report.ChainReport
}

func NewService(config *config.Config, db *gorm.DB, services *service.Services) (self *Service) {
	self = new(Service)
	self.config = config
	self.log = logger.NewSublogger("contract")
	self.db = db
	self.services = services
	self.table = fsm.Default(config.Chat.IsLenient())
	self.report = &report.ChainReport{}
	return
}

// Nil backend disables all chain endpoints
func (self *Service) WithBackend(v eth.Backend) *Service {
	self.backend = v
	return self
}

func (self *Service) WithIpfs(v *ipfs.Client) *Service {
	self.ipfs = v
	return self
}

func (self *Service) WithMonitor(v *monitoring.Monitor) *Service {
	self.report = v.GetReport().Chain
	return self
}

func (self *Service) chain() (eth.Backend, error) {
	if self.backend == nil || !self.config.Chain.Enabled {
		return nil, eth.Classify(eth.ErrChainDisabled)
	}
	return self.backend, nil
}

func (self *Service) call(ctx context.Context, contract eth.Contract, address common.Address, method string, args ...interface{}) ([]interface{}, error) {
	backend, err := self.chain()
	if err != nil {
		return nil, err
	}
	self.report.State.Calls.Inc()
	out, err := backend.Call(ctx, contract, address, method, args...)
	if err != nil {
		self.report.Errors.CallErrors.Inc()
		return nil, eth.Classify(err)
	}
	return out, nil
}

func callOne[T any](ctx context.Context, self *Service, contract eth.Contract, address common.Address, method string, args ...interface{}) (out T, err error) {
	backend, err := self.chain()
	if err != nil {
		return
	}
	self.report.State.Calls.Inc()
	out, err = eth.CallOne[T](ctx, backend, contract, address, method, args...)
	if err != nil {
		self.report.Errors.CallErrors.Inc()
		err = eth.Classify(err)
	}
	return
}

func configuredAddress(name, value string) (common.Address, error) {
	if !common.IsHexAddress(value) {
		return common.Address{}, apperr.Unavailable("CHAIN_NOT_CONFIGURED", name+" address is not configured")
	}
	return common.HexToAddress(value), nil
}

// Transaction to send
type submission struct {
	contract eth.Contract
	address  common.Address
	value    *big.Int
	method   string
	args     []interface{}

	// Stored on the pending chain tx
	kind     model.ChainTxKind
	escrowId *string
	userId   *string
	target   *model.EscrowState
}

// Signs the transaction, stores it as pending, broadcasts it and waits until it's mined.
// A failure after the pending row is stored leaves the row for the reconciler or marks it failed.
func (self *Service) send(ctx context.Context, s *submission) (tx *types.Transaction, receipt *types.Receipt, err error) {
	backend, err := self.chain()
	if err != nil {
		return
	}

	persisted := false
	tx, err = backend.Submit(ctx, s.contract, s.address, s.value, func(tx *types.Transaction) error {
		_, err := self.services.ChainTxs.Create(ctx, nil, &service.ChainTxInput{
			TxHash:      tx.Hash().Hex(),
			EscrowID:    s.escrowId,
			UserID:      s.userId,
			Kind:        s.kind,
			TargetState: s.target,
		})
		if err != nil {
			self.report.Errors.DbWriteErrors.Inc()
			return err
		}
		persisted = true
		return nil
	}, s.method, s.args...)
	if err != nil {
		self.report.Errors.TxSendErrors.Inc()
		if persisted {
			self.markFailed(tx.Hash().Hex(), nil, err)
		}
		return nil, nil, eth.Classify(err)
	}
	self.report.State.TxSent.Inc()

	log := self.log.WithField("tx", tx.Hash().Hex()).WithField("method", s.method)
	receipt, err = backend.WaitMined(ctx, tx)
	if err != nil {
		if receipt != nil {
			// Mined, but reverted
			self.report.Errors.TxFailed.Inc()
			block := receipt.BlockNumber.Uint64()
			self.markFailed(tx.Hash().Hex(), &block, err)
			log.WithError(err).Warn("Transaction reverted")
		} else {
			// Outcome unknown, the reconciler picks it up
			self.report.Errors.TxWaitErrors.Inc()
			log.WithError(err).Warn("Failed to wait for transaction")
		}
		return tx, receipt, eth.Classify(err)
	}
	self.report.State.TxConfirmed.Inc()
	return
}

func (self *Service) markFailed(hash string, block *uint64, cause error) {
	// Request may already be cancelled
	_, err := self.services.ChainTxs.UpdateStatus(context.Background(), nil, hash, &service.ChainTxStatusInput{
		Status:      model.ChainTxStatusFailed,
		BlockNumber: block,
		Error:       cause.Error(),
	})
	if err != nil {
		self.report.Errors.DbWriteErrors.Inc()
		self.log.WithError(err).WithField("tx", hash).Error("Failed to mark transaction as failed")
	}
}

func lockEscrow(tx *gorm.DB, id string) (out *model.Escrow, err error) {
	out = new(model.Escrow)
	err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("id = ?", id).First(out).Error
	if model.IsNotFound(err) {
		return nil, apperr.NotFound("escrow")
	}
	return
}

func actorId(actor *auth.Claims) *string {
	if actor == nil {
		return nil
	}
	id := actor.UserID
	return &id
}
