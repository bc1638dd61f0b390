package report

import "go.uber.org/atomic"

type SocketErrors struct {
	RejectedJoins   atomic.Uint64 `json:"rejected_joins"`
	RateLimited     atomic.Uint64 `json:"rate_limited"`
	DroppedMessages atomic.Uint64 `json:"dropped_messages"`
	InvalidFrames   atomic.Uint64 `json:"invalid_frames"`
	BridgeErrors    atomic.Uint64 `json:"bridge_errors"`
}

type SocketState struct {
	Connections      atomic.Int64  `json:"connections"`
	Rooms            atomic.Int64  `json:"rooms"`
	MessagesReceived atomic.Uint64 `json:"messages_received"`
	MessagesSent     atomic.Uint64 `json:"messages_sent"`
	EscrowEvents     atomic.Uint64 `json:"escrow_events"`
}

type SocketReport struct {
	State  SocketState  `json:"state"`
	Errors SocketErrors `json:"errors"`
}
