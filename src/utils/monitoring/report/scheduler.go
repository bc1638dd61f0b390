package report

import "go.uber.org/atomic"

type SchedulerErrors struct {
	QueryErrors        atomic.Uint64 `json:"query_errors"`
	NotificationErrors atomic.Uint64 `json:"notification_errors"`
	LockErrors         atomic.Uint64 `json:"lock_errors"`
}

type SchedulerState struct {
	Runs                 atomic.Uint64 `json:"runs"`
	SkippedRuns          atomic.Uint64 `json:"skipped_runs"`
	NotificationsCreated atomic.Uint64 `json:"notifications_created"`
	LastRunTimestamp     atomic.Int64  `json:"last_run_timestamp"`
}

type SchedulerReport struct {
	State  SchedulerState  `json:"state"`
	Errors SchedulerErrors `json:"errors"`
}
