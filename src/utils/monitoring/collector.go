package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/warp-contracts/marketplace/src/utils/monitoring/report"
)

type metric struct {
	desc      *prometheus.Desc
	valueType prometheus.ValueType
	value     func(r *report.Report) float64
}

type Collector struct {
	monitor *Monitor
	metrics []metric
}

func newMetric(name string, valueType prometheus.ValueType, value func(r *report.Report) float64) metric {
	return metric{
		desc:      prometheus.NewDesc("market_"+name, "", nil, nil),
		valueType: valueType,
		value:     value,
	}
}

func NewCollector() *Collector {
	c, g := prometheus.CounterValue, prometheus.GaugeValue
	return &Collector{
		metrics: []metric{
			// Run
			newMetric("up_for_seconds", g, func(r *report.Report) float64 { return float64(r.Run.State.UpForSeconds.Load()) }),

			// Api
			newMetric("api_requests", c, func(r *report.Report) float64 { return float64(r.Api.State.Requests.Load()) }),
			newMetric("api_uploads", c, func(r *report.Report) float64 { return float64(r.Api.State.Uploads.Load()) }),
			newMetric("api_client_errors", c, func(r *report.Report) float64 { return float64(r.Api.Errors.ClientErrors.Load()) }),
			newMetric("api_server_errors", c, func(r *report.Report) float64 { return float64(r.Api.Errors.ServerErrors.Load()) }),

			// Chain
			newMetric("chain_tx_sent", c, func(r *report.Report) float64 { return float64(r.Chain.State.TxSent.Load()) }),
			newMetric("chain_tx_confirmed", c, func(r *report.Report) float64 { return float64(r.Chain.State.TxConfirmed.Load()) }),
			newMetric("chain_calls", c, func(r *report.Report) float64 { return float64(r.Chain.State.Calls.Load()) }),
			newMetric("chain_pinned_files", c, func(r *report.Report) float64 { return float64(r.Chain.State.PinnedFiles.Load()) }),
			newMetric("chain_tx_failed", c, func(r *report.Report) float64 { return float64(r.Chain.Errors.TxFailed.Load()) }),
			newMetric("chain_tx_send_errors", c, func(r *report.Report) float64 { return float64(r.Chain.Errors.TxSendErrors.Load()) }),
			newMetric("chain_tx_wait_errors", c, func(r *report.Report) float64 { return float64(r.Chain.Errors.TxWaitErrors.Load()) }),
			newMetric("chain_call_errors", c, func(r *report.Report) float64 { return float64(r.Chain.Errors.CallErrors.Load()) }),
			newMetric("chain_db_write_errors", c, func(r *report.Report) float64 { return float64(r.Chain.Errors.DbWriteErrors.Load()) }),

			// Outbox
			newMetric("outbox_claimed", c, func(r *report.Report) float64 { return float64(r.Outbox.State.Claimed.Load()) }),
			newMetric("outbox_delivered", c, func(r *report.Report) float64 { return float64(r.Outbox.State.Delivered.Load()) }),
			newMetric("outbox_retried", c, func(r *report.Report) float64 { return float64(r.Outbox.State.Retried.Load()) }),
			newMetric("outbox_failed", c, func(r *report.Report) float64 { return float64(r.Outbox.State.Failed.Load()) }),
			newMetric("outbox_requeued", c, func(r *report.Report) float64 { return float64(r.Outbox.State.Requeued.Load()) }),
			newMetric("outbox_worker_queue_fill_factor", g, func(r *report.Report) float64 { return r.Outbox.State.WorkerQueueFillFactor.Load() }),
			newMetric("outbox_poll_errors", c, func(r *report.Report) float64 { return float64(r.Outbox.Errors.PollErrors.Load()) }),
			newMetric("outbox_delivery_errors", c, func(r *report.Report) float64 { return float64(r.Outbox.Errors.DeliveryErrors.Load()) }),
			newMetric("outbox_store_errors", c, func(r *report.Report) float64 { return float64(r.Outbox.Errors.StoreErrors.Load()) }),

			// Scheduler
			newMetric("scheduler_runs", c, func(r *report.Report) float64 { return float64(r.Scheduler.State.Runs.Load()) }),
			newMetric("scheduler_skipped_runs", c, func(r *report.Report) float64 { return float64(r.Scheduler.State.SkippedRuns.Load()) }),
			newMetric("scheduler_notifications_created", c, func(r *report.Report) float64 { return float64(r.Scheduler.State.NotificationsCreated.Load()) }),
			newMetric("scheduler_last_run_timestamp", g, func(r *report.Report) float64 { return float64(r.Scheduler.State.LastRunTimestamp.Load()) }),
			newMetric("scheduler_query_errors", c, func(r *report.Report) float64 { return float64(r.Scheduler.Errors.QueryErrors.Load()) }),
			newMetric("scheduler_notification_errors", c, func(r *report.Report) float64 { return float64(r.Scheduler.Errors.NotificationErrors.Load()) }),
			newMetric("scheduler_lock_errors", c, func(r *report.Report) float64 { return float64(r.Scheduler.Errors.LockErrors.Load()) }),

			// Reconciler
			newMetric("reconciler_runs", c, func(r *report.Report) float64 { return float64(r.Reconciler.State.Runs.Load()) }),
			newMetric("reconciler_escrows_checked", c, func(r *report.Report) float64 { return float64(r.Reconciler.State.EscrowsChecked.Load()) }),
			newMetric("reconciler_divergences", c, func(r *report.Report) float64 { return float64(r.Reconciler.State.Divergences.Load()) }),
			newMetric("reconciler_pending_tx_finalized", c, func(r *report.Report) float64 { return float64(r.Reconciler.State.PendingTxFinalized.Load()) }),
			newMetric("reconciler_chain_errors", c, func(r *report.Report) float64 { return float64(r.Reconciler.Errors.ChainErrors.Load()) }),
			newMetric("reconciler_db_errors", c, func(r *report.Report) float64 { return float64(r.Reconciler.Errors.DbErrors.Load()) }),

			// Socket
			newMetric("socket_connections", g, func(r *report.Report) float64 { return float64(r.Socket.State.Connections.Load()) }),
			newMetric("socket_rooms", g, func(r *report.Report) float64 { return float64(r.Socket.State.Rooms.Load()) }),
			newMetric("socket_messages_received", c, func(r *report.Report) float64 { return float64(r.Socket.State.MessagesReceived.Load()) }),
			newMetric("socket_messages_sent", c, func(r *report.Report) float64 { return float64(r.Socket.State.MessagesSent.Load()) }),
			newMetric("socket_escrow_events", c, func(r *report.Report) float64 { return float64(r.Socket.State.EscrowEvents.Load()) }),
			newMetric("socket_rejected_joins", c, func(r *report.Report) float64 { return float64(r.Socket.Errors.RejectedJoins.Load()) }),
			newMetric("socket_rate_limited", c, func(r *report.Report) float64 { return float64(r.Socket.Errors.RateLimited.Load()) }),
			newMetric("socket_dropped_messages", c, func(r *report.Report) float64 { return float64(r.Socket.Errors.DroppedMessages.Load()) }),
			newMetric("socket_invalid_frames", c, func(r *report.Report) float64 { return float64(r.Socket.Errors.InvalidFrames.Load()) }),
			newMetric("socket_bridge_errors", c, func(r *report.Report) float64 { return float64(r.Socket.Errors.BridgeErrors.Load()) }),

			// Mailer
			newMetric("mailer_sent", c, func(r *report.Report) float64 { return float64(r.Mailer.State.Sent.Load()) }),
			newMetric("mailer_send_errors", c, func(r *report.Report) float64 { return float64(r.Mailer.Errors.SendErrors.Load()) }),

			// Redis
			newMetric("redis_published", c, func(r *report.Report) float64 { return float64(r.Redis.State.Published.Load()) }),
			newMetric("redis_received", c, func(r *report.Report) float64 { return float64(r.Redis.State.Received.Load()) }),
			newMetric("redis_publish_errors", c, func(r *report.Report) float64 { return float64(r.Redis.Errors.Publish.Load()) }),
			newMetric("redis_persistent_errors", c, func(r *report.Report) float64 { return float64(r.Redis.Errors.PersistentFailure.Load()) }),
			newMetric("redis_receive_errors", c, func(r *report.Report) float64 { return float64(r.Redis.Errors.ReceiveErrors.Load()) }),
		},
	}
}

func (self *Collector) WithMonitor(m *Monitor) *Collector {
	self.monitor = m
	return self
}

func (self *Collector) Describe(ch chan<- *prometheus.Desc) {
	for _, m := range self.metrics {
		ch <- m.desc
	}
}

// Collect implements required collect function for all promehteus collectors
func (self *Collector) Collect(ch chan<- prometheus.Metric) {
	for _, m := range self.metrics {
		ch <- prometheus.MustNewConstMetric(m.desc, m.valueType, m.value(&self.monitor.Report))
	}
}
