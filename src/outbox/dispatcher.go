package outbox

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/warp-contracts/marketplace/src/service"
	"github.com/warp-contracts/marketplace/src/utils/config"
	"github.com/warp-contracts/marketplace/src/utils/mail"
	"github.com/warp-contracts/marketplace/src/utils/model"
	"github.com/warp-contracts/marketplace/src/utils/monitoring"
	"github.com/warp-contracts/marketplace/src/utils/task"
)

// Delivery that can't succeed on a retry
var ErrPermanent = errors.New("permanent delivery failure")

// Outcome of one delivery attempt
type Result struct {
	Message *model.OutboxMessage
	Err     error
}

// Delivers claimed messages using a pool of workers
type Dispatcher struct {
	*task.Task

	monitor *monitoring.Monitor
	emitter service.Emitter
	mailer  mail.Mailer

	input  chan *model.OutboxMessage
	Output chan *Result
}

func NewDispatcher(config *config.Config) (self *Dispatcher) {
	self = new(Dispatcher)

	self.Output = make(chan *Result)

	self.Task = task.NewTask(config, "outbox-dispatcher").
		WithSubtaskFunc(self.run).
		WithWorkerPool(config.Outbox.NumWorkers, config.Outbox.WorkerQueueSize).
		WithOnAfterStop(func() {
			close(self.Output)
		})

	return
}

func (self *Dispatcher) WithInputChannel(v chan *model.OutboxMessage) *Dispatcher {
	self.input = v
	return self
}

func (self *Dispatcher) WithMonitor(monitor *monitoring.Monitor) *Dispatcher {
	self.monitor = monitor
	return self
}

func (self *Dispatcher) WithEmitter(emitter service.Emitter) *Dispatcher {
	self.emitter = emitter
	return self
}

func (self *Dispatcher) WithMailer(mailer mail.Mailer) *Dispatcher {
	self.mailer = mailer
	return self
}

func (self *Dispatcher) run() error {
	for {
		select {
		case <-self.StopChannel:
			return nil
		case message, ok := <-self.input:
			if !ok {
				return nil
			}

			self.SubmitToWorker(func() {
				err := self.deliver(message)
				if err != nil {
					self.monitor.GetReport().Outbox.Errors.DeliveryErrors.Inc()
					self.Log.WithError(err).
						WithField("id", message.ID).
						WithField("channel", message.Channel).
						WithField("attempt", message.Attempts).
						Warn("Failed to deliver message")
				}

				// Store keeps reading until this channel is closed
				self.Output <- &Result{Message: message, Err: err}
			})
			self.monitor.GetReport().Outbox.State.WorkerQueueFillFactor.Store(float64(self.GetWorkerQueueFillFactor()))
		}
	}
}

func (self *Dispatcher) deliver(message *model.OutboxMessage) error {
	switch message.Channel {
	case model.OutboxChannelSocket:
		if self.emitter == nil {
			return fmt.Errorf("%w: no socket emitter", ErrPermanent)
		}
		self.emitter.Emit(message.Destination, message.Event, json.RawMessage(message.Payload.Bytes))
		return nil

	case model.OutboxChannelEmail:
		if self.mailer == nil || !self.mailer.IsEnabled() {
			return fmt.Errorf("%w: mail is disabled", ErrPermanent)
		}

		var payload service.EmailPayload
		err := json.Unmarshal(message.Payload.Bytes, &payload)
		if err != nil {
			return fmt.Errorf("%w: %s", ErrPermanent, err)
		}

		// Don't let a hanging server block the worker forever
		ctx, cancel := context.WithTimeout(self.Ctx, self.Config.Smtp.Timeout)
		defer cancel()

		return self.mailer.Send(ctx, message.Destination, payload.Subject, payload.Body)
	}
	return fmt.Errorf("%w: unknown channel %q", ErrPermanent, message.Channel)
}
