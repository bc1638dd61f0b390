package report

import "go.uber.org/atomic"

type RedisErrors struct {
	Publish           atomic.Uint64 `json:"redis_publish_error"`
	PersistentFailure atomic.Uint64 `json:"redis_persistent_error"`
	ReceiveErrors     atomic.Uint64 `json:"redis_receive_error"`
}

type RedisState struct {
	Published atomic.Uint64 `json:"published"`
	Received  atomic.Uint64 `json:"received"`
}

type RedisReport struct {
	State  RedisState  `json:"state"`
	Errors RedisErrors `json:"errors"`
}
