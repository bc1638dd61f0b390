package report

import "go.uber.org/atomic"

type ApiErrors struct {
	ClientErrors atomic.Uint64 `json:"client_errors"`
	ServerErrors atomic.Uint64 `json:"server_errors"`
}

type ApiState struct {
	Requests atomic.Uint64 `json:"requests"`
	Uploads  atomic.Uint64 `json:"uploads"`
}

type ApiReport struct {
	State  ApiState  `json:"state"`
	Errors ApiErrors `json:"errors"`
}
