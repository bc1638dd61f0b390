package contract

import (
	"context"
	"fmt"
	"math/big"
	"net/http"

	"github.com/ethereum/go-ethereum/common"
	"github.com/warp-contracts/marketplace/src/service"
	"github.com/warp-contracts/marketplace/src/utils/apperr"
	"github.com/warp-contracts/marketplace/src/utils/auth"
	"github.com/warp-contracts/marketplace/src/utils/eth"
	"github.com/warp-contracts/marketplace/src/utils/fsm"
	"github.com/warp-contracts/marketplace/src/utils/model"
	"gorm.io/gorm"
)

const maxBps = 10000

type DeliverInput struct {
	// CID of already pinned deliverable
	Cid string `json:"cid" binding:"omitempty,max=128"`

	// Pinned to IPFS when no CID is given
	Manifest map[string]interface{} `json:"manifest"`
}

type DisputeInput struct {
	Reason string `json:"reason" binding:"required,max=2000"`
}

type ResolveInput struct {
	// Share of the escrow paid to the seller, the rest is refunded
	SellerBps uint16 `json:"seller_bps" binding:"bps"`
}

// On-chain view of an escrow next to its mirror
type EscrowState struct {
	Escrow   *model.Escrow     `json:"escrow"`
	OnChain  model.EscrowState `json:"on_chain_state"`
	Diverged bool              `json:"diverged"`
}

type role func(escrow *model.Escrow, actor *auth.Claims) bool

func buyer(escrow *model.Escrow, actor *auth.Claims) bool {
	return actor.UserID == escrow.BuyerID
}

func seller(escrow *model.Escrow, actor *auth.Claims) bool {
	return actor.UserID == escrow.SellerID
}

func party(escrow *model.Escrow, actor *auth.Claims) bool {
	return buyer(escrow, actor) || seller(escrow, actor)
}

func arbiter(escrow *model.Escrow, actor *auth.Claims) bool {
	return actor.UserID == escrow.ArbiterID || actor.IsAdmin()
}

// Escrow call to make
type operation struct {
	event  fsm.Event
	kind   model.ChainTxKind
	allow  role
	method string
	args   []interface{}
	value  *big.Int
}

// Authoritative state of the escrow, read from the contract
func (self *Service) OnChainState(ctx context.Context, address string) (out model.EscrowState, err error) {
	state, err := callOne[uint8](ctx, self, eth.Escrow, common.HexToAddress(address), "state")
	if err != nil {
		return
	}
	out, err = model.EscrowStateFromUint8(state)
	if err != nil {
		return "", apperr.New(http.StatusBadGateway, "CHAIN_ERROR", err.Error())
	}
	return
}

func (self *Service) State(ctx context.Context, escrowId string) (out *EscrowState, err error) {
	escrow, err := self.services.Escrows.Get(ctx, escrowId)
	if err != nil {
		return
	}

	onChain, err := self.OnChainState(ctx, escrow.ProxyAddress)
	if err != nil {
		return
	}

	return &EscrowState{
		Escrow:   escrow,
		OnChain:  onChain,
		Diverged: onChain != escrow.CurrentState,
	}, nil
}

func (self *Service) Fund(ctx context.Context, actor *auth.Claims, escrowId string) (out *TxResult, err error) {
	escrow, err := self.services.Escrows.Get(ctx, escrowId)
	if err != nil {
		return
	}
	amount, err := eth.ParseAmount(escrow.Amount)
	if err != nil {
		return nil, apperr.Validation(err)
	}

	return self.execute(ctx, actor, escrow, &operation{
		event:  fsm.EventFund,
		kind:   model.ChainTxKindFund,
		allow:  buyer,
		method: "fund",
		value:  amount,
	})
}

func (self *Service) Deliver(ctx context.Context, actor *auth.Claims, escrowId string, in *DeliverInput) (out *TxResult, err error) {
	escrow, err := self.services.Escrows.Get(ctx, escrowId)
	if err != nil {
		return
	}
	if !seller(escrow, actor) {
		return nil, apperr.Forbidden("Only the seller can deliver")
	}

	cid := in.Cid
	if cid == "" {
		if in.Manifest == nil {
			return nil, apperr.BadRequest("VALIDATION_ERROR", "cid or manifest is required")
		}
		if self.ipfs == nil || !self.ipfs.IsEnabled() {
			return nil, apperr.Unavailable("IPFS_DISABLED", "IPFS pinning is disabled, pass a cid")
		}

		pinned, err := self.ipfs.PinJSON(ctx, fmt.Sprintf("deliverable-%s", escrow.ID), in.Manifest)
		if err != nil {
			return nil, apperr.New(http.StatusBadGateway, "IPFS_ERROR", "Failed to pin deliverable").WithCause(err)
		}
		self.report.State.PinnedFiles.Inc()
		cid = pinned.Cid
	}

	return self.execute(ctx, actor, escrow, &operation{
		event:  fsm.EventDeliver,
		kind:   model.ChainTxKindDeliver,
		allow:  seller,
		method: "deliver",
		args:   []interface{}{cid},
	})
}

func (self *Service) Approve(ctx context.Context, actor *auth.Claims, escrowId string) (out *TxResult, err error) {
	return self.executeById(ctx, actor, escrowId, &operation{
		event:  fsm.EventApprove,
		kind:   model.ChainTxKindApprove,
		allow:  buyer,
		method: "approve",
	})
}

func (self *Service) Withdraw(ctx context.Context, actor *auth.Claims, escrowId string) (out *TxResult, err error) {
	return self.executeById(ctx, actor, escrowId, &operation{
		event:  fsm.EventWithdraw,
		kind:   model.ChainTxKindWithdraw,
		allow:  seller,
		method: "withdraw",
	})
}

func (self *Service) Dispute(ctx context.Context, actor *auth.Claims, escrowId string, in *DisputeInput) (out *TxResult, err error) {
	return self.executeById(ctx, actor, escrowId, &operation{
		event:  fsm.EventDispute,
		kind:   model.ChainTxKindDispute,
		allow:  party,
		method: "initiateDispute",
		args:   []interface{}{in.Reason},
	})
}

// Zero seller share refunds the buyer, anything else makes the escrow releasable
func (self *Service) Resolve(ctx context.Context, actor *auth.Claims, escrowId string, in *ResolveInput) (out *TxResult, err error) {
	if in.SellerBps > maxBps {
		return nil, apperr.BadRequest("VALIDATION_ERROR", "seller_bps must be at most 10000")
	}

	event := fsm.EventResolveRelease
	if in.SellerBps == 0 {
		event = fsm.EventResolveRefund
	}

	return self.executeById(ctx, actor, escrowId, &operation{
		event:  event,
		kind:   model.ChainTxKindResolve,
		allow:  arbiter,
		method: "resolveDispute",
		args:   []interface{}{in.SellerBps},
	})
}

func (self *Service) Cancel(ctx context.Context, actor *auth.Claims, escrowId string) (out *TxResult, err error) {
	return self.executeById(ctx, actor, escrowId, &operation{
		event:  fsm.EventCancel,
		kind:   model.ChainTxKindCancel,
		allow:  buyer,
		method: "cancel",
	})
}

func (self *Service) executeById(ctx context.Context, actor *auth.Claims, escrowId string, op *operation) (out *TxResult, err error) {
	escrow, err := self.services.Escrows.Get(ctx, escrowId)
	if err != nil {
		return
	}
	return self.execute(ctx, actor, escrow, op)
}

func (self *Service) execute(ctx context.Context, actor *auth.Claims, escrow *model.Escrow, op *operation) (out *TxResult, err error) {
	if actor == nil || !op.allow(escrow, actor) {
		return nil, apperr.Forbidden(fmt.Sprintf("Not allowed to %s this escrow", op.method))
	}

	// Chain decides, the mirror may lag behind
	onChain, err := self.OnChainState(ctx, escrow.ProxyAddress)
	if err != nil {
		return
	}
	to, err := fsm.Fire(self.table, fsm.EntityEscrow, onChain, op.event)
	if err != nil {
		return
	}

	if op.value != nil {
		err = self.checkBalance(ctx, escrow, op)
		if err != nil {
			return
		}
	}

	log := self.log.WithField("escrow_id", escrow.ID).WithField("method", op.method)

	tx, receipt, err := self.send(ctx, &submission{
		contract: eth.Escrow,
		address:  common.HexToAddress(escrow.ProxyAddress),
		value:    op.value,
		method:   op.method,
		args:     op.args,
		kind:     op.kind,
		escrowId: &escrow.ID,
		userId:   actorId(actor),
		target:   &to,
	})
	if err != nil {
		return
	}

	hash := tx.Hash().Hex()
	block := receipt.BlockNumber.Uint64()
	out = &TxResult{TxHash: hash, BlockNumber: block, State: to}

	err = self.db.WithContext(ctx).Transaction(func(tx *gorm.DB) (err error) {
		_, err = self.services.ChainTxs.UpdateStatus(ctx, tx, hash, &service.ChainTxStatusInput{
			Status:      model.ChainTxStatusConfirmed,
			BlockNumber: &block,
		})
		if err != nil {
			return
		}

		out.Escrow, err = lockEscrow(tx, escrow.ID)
		if err != nil {
			return
		}

		_, err = self.services.Escrows.ApplyState(ctx, tx, out.Escrow, &service.StateChange{
			To:          to,
			TxHash:      &hash,
			ActorUserID: actorId(actor),
			Source:      model.HistorySourceTx,
			Force:       true,
		})
		return
	})
	if err != nil {
		// Transaction is mined, the reconciler will fix the mirror
		self.report.Errors.DbWriteErrors.Inc()
		log.WithError(err).WithField("tx", hash).Error("Failed to mirror mined transaction")
		return nil, err
	}

	log.WithField("tx", hash).WithField("state", to).Info("Escrow updated")
	return
}

// Signer has to cover the value and the fee
func (self *Service) checkBalance(ctx context.Context, escrow *model.Escrow, op *operation) (err error) {
	backend, err := self.chain()
	if err != nil {
		return
	}

	address := common.HexToAddress(escrow.ProxyAddress)
	fee, err := backend.EstimateFee(ctx, eth.Escrow, address, op.value, op.method, op.args...)
	if err != nil {
		return eth.Classify(err)
	}

	balance, err := backend.Balance(ctx, backend.SignerAddress())
	if err != nil {
		return eth.Classify(err)
	}

	required := new(big.Int).Add(op.value, fee)
	if balance.Cmp(required) < 0 {
		return eth.Classify(fmt.Errorf("%w: have %s, need %s", eth.ErrInsufficientFund, balance, required))
	}
	return
}
