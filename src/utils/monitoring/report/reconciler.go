package report

import "go.uber.org/atomic"

type ReconcilerErrors struct {
	ChainErrors atomic.Uint64 `json:"chain_errors"`
	DbErrors    atomic.Uint64 `json:"db_errors"`
}

type ReconcilerState struct {
	Runs               atomic.Uint64 `json:"runs"`
	EscrowsChecked     atomic.Uint64 `json:"escrows_checked"`
	Divergences        atomic.Uint64 `json:"divergences"`
	PendingTxFinalized atomic.Uint64 `json:"pending_tx_finalized"`
	LastRunTimestamp   atomic.Int64  `json:"last_run_timestamp"`
}

type ReconcilerReport struct {
	State  ReconcilerState  `json:"state"`
	Errors ReconcilerErrors `json:"errors"`
}
