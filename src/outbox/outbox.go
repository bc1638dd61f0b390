package outbox

import (
	"github.com/warp-contracts/marketplace/src/service"
	"github.com/warp-contracts/marketplace/src/utils/config"
	"github.com/warp-contracts/marketplace/src/utils/mail"
	"github.com/warp-contracts/marketplace/src/utils/monitoring"
	"github.com/warp-contracts/marketplace/src/utils/task"
	"gorm.io/gorm"
)

// Pipeline delivering outbox messages: poller -> dispatcher -> store
type Outbox struct {
	*task.Task

	poller     *Poller
	dispatcher *Dispatcher
	store      *Store
}

func NewOutbox(config *config.Config, db *gorm.DB) (self *Outbox) {
	self = new(Outbox)

	self.poller = NewPoller(config).
		WithDB(db)

	self.dispatcher = NewDispatcher(config).
		WithInputChannel(self.poller.Output)

	self.store = NewStore(config).
		WithInputChannel(self.dispatcher.Output).
		WithDB(db)

	self.Task = task.NewTask(config, "outbox").
		WithSubtask(self.poller.Task).
		WithSubtask(self.dispatcher.Task).
		WithSubtask(self.store.Task)

	return
}

func (self *Outbox) WithMonitor(monitor *monitoring.Monitor) *Outbox {
	self.poller.WithMonitor(monitor)
	self.dispatcher.WithMonitor(monitor)
	self.store.WithMonitor(monitor)
	return self
}

func (self *Outbox) WithEmitter(emitter service.Emitter) *Outbox {
	self.dispatcher.WithEmitter(emitter)
	return self
}

func (self *Outbox) WithMailer(mailer mail.Mailer) *Outbox {
	self.dispatcher.WithMailer(mailer)
	return self
}
