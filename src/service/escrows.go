package service

import (
	"context"
	"fmt"
	"time"

	"github.com/warp-contracts/marketplace/src/utils/apperr"
	"github.com/warp-contracts/marketplace/src/utils/config"
	"github.com/warp-contracts/marketplace/src/utils/eth"
	"github.com/warp-contracts/marketplace/src/utils/fsm"
	"github.com/warp-contracts/marketplace/src/utils/model"
	"gorm.io/gorm"
)

type EscrowInput struct {
	JobID        string `json:"job_id" binding:"required"`
	MilestoneID  string `json:"milestone_id" binding:"required"`
	BuyerID      string `json:"buyer_id" binding:"required"`
	SellerID     string `json:"seller_id" binding:"required,nefield=BuyerID"`
	ArbiterID    string `json:"arbiter_id" binding:"required"`
	ProxyAddress string `json:"proxy_address" binding:"required,eth_addr"`
	Amount       string `json:"amount" binding:"required,numeric"`
	FeeBps       uint16 `json:"fee_bps" binding:"bps"`
}

type EscrowStateInput struct {
	State       model.EscrowState `json:"state" binding:"required"`
	TxHash      *string           `json:"tx_hash"`
	ActorUserID *string           `json:"actor_user_id"`
}

// State change of the mirror
type StateChange struct {
	To          model.EscrowState
	TxHash      *string
	ActorUserID *string
	Source      model.HistorySource

	// Skip the transition table, the chain already made the move
	Force bool
}

type Escrows struct {
	base
	notifications *Notifications
}

func NewEscrows(config *config.Config, db *gorm.DB, table *fsm.Table, notifications *Notifications) (self *Escrows) {
	self = new(Escrows)
	self.base = newBase(config, db, table, "escrow")
	self.notifications = notifications
	return
}

// Unique milestone and proxy address settle concurrent creates
func (self *Escrows) Create(ctx context.Context, tx *gorm.DB, in *EscrowInput) (out *model.Escrow, err error) {
	defer self.wrap(&err)

	address, err := eth.NormalizeAddress(in.ProxyAddress)
	if err != nil {
		return nil, apperr.Validation(err)
	}
	amount, err := eth.ParseAmount(in.Amount)
	if err != nil {
		return nil, apperr.Validation(err)
	}

	err = self.inTx(ctx, tx, func(tx *gorm.DB) (err error) {
		err = exists[model.Job](ctx, tx, "job", in.JobID)
		if err != nil {
			return
		}
		milestone, err := first[model.JobMilestone](ctx, tx, "job milestone", in.MilestoneID)
		if err != nil {
			return
		}
		if milestone.JobID != in.JobID {
			return apperr.BadRequest("VALIDATION_ERROR", "milestone belongs to another job")
		}
		for _, id := range []string{in.BuyerID, in.SellerID, in.ArbiterID} {
			err = exists[model.User](ctx, tx, "user", id)
			if err != nil {
				return
			}
		}

		out = &model.Escrow{
			JobID:        in.JobID,
			MilestoneID:  in.MilestoneID,
			BuyerID:      in.BuyerID,
			SellerID:     in.SellerID,
			ArbiterID:    in.ArbiterID,
			ProxyAddress: address,
			Amount:       amount.String(),
			FeeBps:       in.FeeBps,
			CurrentState: model.EscrowStateUnfunded,
		}
		err = tx.Create(out).Error
		if model.IsUniqueViolation(err) {
			return apperr.AlreadyExists("escrow")
		}
		return
	})
	if err != nil {
		return nil, err
	}
	return
}

func (self *Escrows) Get(ctx context.Context, id string) (out *model.Escrow, err error) {
	defer self.wrap(&err)
	return first[model.Escrow](ctx, self.db, "escrow", id)
}

func (self *Escrows) GetByMilestone(ctx context.Context, milestoneId string) (out *model.Escrow, err error) {
	defer self.wrap(&err)

	out = new(model.Escrow)
	err = self.db.WithContext(ctx).Where("milestone_id = ?", milestoneId).First(out).Error
	if err != nil {
		if model.IsNotFound(err) {
			return nil, apperr.NotFound("escrow")
		}
		return nil, err
	}
	return
}

func (self *Escrows) ListByJob(ctx context.Context, jobId string) (out []*model.Escrow, err error) {
	defer self.wrap(&err)

	err = self.db.WithContext(ctx).
		Where("job_id = ?", jobId).
		Order("created_at ASC").
		Find(&out).
		Error
	return
}

// Escrows whose state may still change, least recently reconciled first
func (self *Escrows) ListActive(ctx context.Context, limit int) (out []*model.Escrow, err error) {
	defer self.wrap(&err)

	err = self.db.WithContext(ctx).
		Where("current_state NOT IN ?", []model.EscrowState{model.EscrowStatePaid, model.EscrowStateRefunded}).
		Order("last_reconciled_at ASC NULLS FIRST").
		Limit(limit).
		Find(&out).
		Error
	return
}

func (self *Escrows) History(ctx context.Context, id string) (out []*model.EscrowStateHistory, err error) {
	defer self.wrap(&err)

	err = exists[model.Escrow](ctx, self.db, "escrow", id)
	if err != nil {
		return
	}

	err = self.db.WithContext(ctx).
		Where("escrow_id = ?", id).
		Order("created_at ASC").
		Find(&out).
		Error
	return
}

// Manual state update. 404 when missing, no-op for the current state, transition table otherwise.
func (self *Escrows) UpdateState(ctx context.Context, id string, in *EscrowStateInput) (out *model.Escrow, err error) {
	defer self.wrap(&err)

	if !in.State.IsValid() {
		return nil, apperr.BadRequest("VALIDATION_ERROR", fmt.Sprintf("unknown escrow state: %s", in.State))
	}

	source := model.HistorySourceManual
	if in.TxHash != nil {
		source = model.HistorySourceTx
	}

	err = self.db.WithContext(ctx).Transaction(func(tx *gorm.DB) (err error) {
		out, err = lockFirst[model.Escrow](ctx, tx, "escrow", id)
		if err != nil {
			return
		}
		_, err = self.ApplyState(ctx, tx, out, &StateChange{
			To:          in.State,
			TxHash:      in.TxHash,
			ActorUserID: in.ActorUserID,
			Source:      source,
		})
		return
	})
	if err != nil {
		return nil, err
	}
	return
}

// Updates the mirror in the caller's transaction: state, history row, milestone status and notifications.
// The escrow should be locked by the caller.
func (self *Escrows) ApplyState(ctx context.Context, tx *gorm.DB, escrow *model.Escrow, change *StateChange) (changed bool, err error) {
	if escrow.CurrentState == change.To {
		return false, nil
	}

	if !change.Force {
		_, err = fsm.Check(self.fsm, fsm.EntityEscrow, escrow.CurrentState, change.To)
		if err != nil {
			return
		}
	}

	from := escrow.CurrentState
	updates := map[string]interface{}{"current_state": change.To}
	if change.Source == model.HistorySourceReconcile {
		now := time.Now().UTC()
		updates["last_reconciled_at"] = now
		escrow.LastReconciledAt = &now
	}

	err = tx.Model(escrow).Updates(updates).Error
	if err != nil {
		return
	}
	escrow.CurrentState = change.To

	var hash *string
	if change.TxHash != nil {
		normalized, err := eth.NormalizeHash(*change.TxHash)
		if err != nil {
			return false, apperr.Validation(err)
		}
		hash = &normalized
	}

	err = tx.Create(&model.EscrowStateHistory{
		EscrowID:    escrow.ID,
		FromState:   from,
		ToState:     change.To,
		TxHash:      hash,
		ActorUserID: change.ActorUserID,
		Source:      change.Source,
	}).Error
	if err != nil {
		if model.IsUniqueViolation(err) {
			return false, apperr.AlreadyExists("escrow state history")
		}
		return
	}

	if status, ok := milestoneStatusFor(change.To); ok {
		err = tx.Model(&model.JobMilestone{}).
			Where("id = ?", escrow.MilestoneID).
			Update("status", status).
			Error
		if err != nil {
			return
		}
	}

	for _, userId := range []string{escrow.BuyerID, escrow.SellerID} {
		_, err = self.notifications.Create(ctx, tx, &NotificationInput{
			UserID: userId,
			Type:   model.NotificationTypeEscrowStateChanged,
			Target: EscrowTarget{EscrowID: escrow.ID},
			Title:  "Escrow updated",
			Body:   fmt.Sprintf("Escrow moved from %s to %s", from, change.To),
			Metadata: map[string]interface{}{
				"from":    from,
				"to":      change.To,
				"tx_hash": hash,
				"source":  change.Source,
			},
		})
		if err != nil {
			return
		}
	}
	return true, nil
}

// Marks the escrow as checked against the chain
func (self *Escrows) Touch(ctx context.Context, id string) (err error) {
	defer self.wrap(&err)

	return self.db.WithContext(ctx).
		Model(&model.Escrow{}).
		Where("id = ?", id).
		Update("last_reconciled_at", time.Now().UTC()).
		Error
}

// Milestone status that follows from the escrow's state
func milestoneStatusFor(state model.EscrowState) (model.MilestoneStatus, bool) {
	switch state {
	case model.EscrowStateFunded:
		return model.MilestoneStatusInProgress, true
	case model.EscrowStateDelivered:
		return model.MilestoneStatusSubmitted, true
	case model.EscrowStateReleasable:
		return model.MilestoneStatusApproved, true
	case model.EscrowStateDisputed:
		return model.MilestoneStatusDisputed, true
	case model.EscrowStatePaid:
		return model.MilestoneStatusPaid, true
	case model.EscrowStateRefunded:
		return model.MilestoneStatusRefunded, true
	}
	return "", false
}
