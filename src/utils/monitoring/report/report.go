package report

type Report struct {
	Run        *RunReport        `json:"run,omitempty"`
	Api        *ApiReport        `json:"api,omitempty"`
	Chain      *ChainReport      `json:"chain,omitempty"`
	Outbox     *OutboxReport     `json:"outbox,omitempty"`
	Scheduler  *SchedulerReport  `json:"scheduler,omitempty"`
	Reconciler *ReconcilerReport `json:"reconciler,omitempty"`
	Socket     *SocketReport     `json:"socket,omitempty"`
	Mailer     *MailerReport     `json:"mailer,omitempty"`
	Redis      *RedisReport      `json:"redis,omitempty"`
}
