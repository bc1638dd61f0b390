package report

import "go.uber.org/atomic"

type MailerErrors struct {
	SendErrors atomic.Uint64 `json:"send_errors"`
}

type MailerState struct {
	Sent atomic.Uint64 `json:"sent"`
}

type MailerReport struct {
	State  MailerState  `json:"state"`
	Errors MailerErrors `json:"errors"`
}
