package reconciler

import (
	"context"
	"sync"
	"time"

	"github.com/warp-contracts/marketplace/src/contract"
	"github.com/warp-contracts/marketplace/src/service"
	"github.com/warp-contracts/marketplace/src/utils/config"
	"github.com/warp-contracts/marketplace/src/utils/monitoring"
	"github.com/warp-contracts/marketplace/src/utils/task"
)

// Outcome of one pass
type Result struct {
	PendingFinalized int `json:"pending_finalized"`
	EscrowsChecked   int `json:"escrows_checked"`
	Divergences      int `json:"divergences"`
}

// Periodically compares the escrow mirror with the contracts.
// Finalizes transactions whose outcome was never written, then corrects escrows that drifted.
type Reconciler struct {
	*task.Task

	services *service.Services
	contract *contract.Service
	monitor  *monitoring.Monitor

	// One pass at a time, the admin trigger shares it with the timer
	mtx sync.Mutex
}

func NewReconciler(config *config.Config, services *service.Services, contract *contract.Service) (self *Reconciler) {
	self = new(Reconciler)
	self.services = services
	self.contract = contract

	self.Task = task.NewTask(config, "reconciler").
		WithPeriodicSubtaskFunc(config.Reconciler.Interval, self.pass)

	return
}

func (self *Reconciler) WithMonitor(monitor *monitoring.Monitor) *Reconciler {
	self.monitor = monitor
	return self
}

func (self *Reconciler) pass() error {
	if !self.contract.Enabled() {
		self.Log.Debug("Chain disabled, skipping")
		return nil
	}

	result, err := self.Run(self.Ctx)
	if err != nil {
		self.Log.WithError(err).Error("Reconciliation failed")
		return nil
	}
	self.Log.WithField("finalized", result.PendingFinalized).
		WithField("checked", result.EscrowsChecked).
		WithField("divergences", result.Divergences).
		Info("Reconciliation done")
	return nil
}

// Runs one pass. Errors of single escrows are logged and skipped.
func (self *Reconciler) Run(ctx context.Context) (out *Result, err error) {
	self.mtx.Lock()
	defer self.mtx.Unlock()

	out = new(Result)
	report := self.monitor.GetReport().Reconciler

	pending, err := self.services.ChainTxs.ListPending(ctx, self.Config.Reconciler.PendingTxMinAge, self.Config.Reconciler.BatchSize)
	if err != nil {
		report.Errors.DbErrors.Inc()
		return
	}

	for _, chainTx := range pending {
		final, err := self.contract.FinalizeTx(ctx, chainTx)
		if err != nil {
			report.Errors.ChainErrors.Inc()
			self.Log.WithError(err).WithField("tx", chainTx.TxHash).Warn("Failed to finalize transaction")
			continue
		}
		if final {
			out.PendingFinalized++
		}
	}

	escrows, err := self.services.Escrows.ListActive(ctx, self.Config.Reconciler.BatchSize)
	if err != nil {
		report.Errors.DbErrors.Inc()
		return
	}

	for _, escrow := range escrows {
		_, diverged, err := self.contract.ReconcileEscrow(ctx, escrow)
		if err != nil {
			report.Errors.ChainErrors.Inc()
			self.Log.WithError(err).WithField("escrow_id", escrow.ID).Warn("Failed to reconcile escrow")
			continue
		}
		out.EscrowsChecked++
		if diverged {
			out.Divergences++
		}
	}

	now := time.Now().UTC()
	report.State.Runs.Inc()
	report.State.PendingTxFinalized.Add(uint64(out.PendingFinalized))
	report.State.EscrowsChecked.Add(uint64(out.EscrowsChecked))
	report.State.Divergences.Add(uint64(out.Divergences))
	report.State.LastRunTimestamp.Store(now.Unix())

	err = self.services.Settings.RecordReconcile(ctx, now, int64(out.Divergences))
	if err != nil {
		report.Errors.DbErrors.Inc()
		return
	}
	return
}
