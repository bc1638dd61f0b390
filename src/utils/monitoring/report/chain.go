package report

import "go.uber.org/atomic"

type ChainErrors struct {
	TxFailed      atomic.Uint64 `json:"tx_failed"`
	TxSendErrors  atomic.Uint64 `json:"tx_send_errors"`
	TxWaitErrors  atomic.Uint64 `json:"tx_wait_errors"`
	CallErrors    atomic.Uint64 `json:"call_errors"`
	DbWriteErrors atomic.Uint64 `json:"db_write_errors"`
}

type ChainState struct {
	TxSent      atomic.Uint64 `json:"tx_sent"`
	TxConfirmed atomic.Uint64 `json:"tx_confirmed"`
	Calls       atomic.Uint64 `json:"calls"`
	PinnedFiles atomic.Uint64 `json:"pinned_files"`
}

type ChainReport struct {
	State  ChainState  `json:"state"`
	Errors ChainErrors `json:"errors"`
}
