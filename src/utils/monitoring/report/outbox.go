package report

import "go.uber.org/atomic"

type OutboxErrors struct {
	PollErrors     atomic.Uint64 `json:"poll_errors"`
	DeliveryErrors atomic.Uint64 `json:"delivery_errors"`
	StoreErrors    atomic.Uint64 `json:"store_errors"`
}

type OutboxState struct {
	Claimed               atomic.Uint64  `json:"claimed"`
	Delivered             atomic.Uint64  `json:"delivered"`
	Retried               atomic.Uint64  `json:"retried"`
	Failed                atomic.Uint64  `json:"failed"`
	Requeued              atomic.Uint64  `json:"requeued"`
	WorkerQueueFillFactor atomic.Float64 `json:"worker_queue_fill_factor"`
}

type OutboxReport struct {
	State  OutboxState  `json:"state"`
	Errors OutboxErrors `json:"errors"`
}
