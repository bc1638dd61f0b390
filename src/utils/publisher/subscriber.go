package publisher

import (
	"github.com/redis/go-redis/v9"
	"github.com/warp-contracts/marketplace/src/utils/config"
	"github.com/warp-contracts/marketplace/src/utils/monitoring"
	"github.com/warp-contracts/marketplace/src/utils/task"
)

// Receives messages published to a Redis channel, puts payloads on the output channel
type RedisSubscriber struct {
	*task.Task

	monitor *monitoring.Monitor

	client      *redis.Client
	pubsub      *redis.PubSub
	channelName string

	Output chan string
}

func NewRedisSubscriber(config *config.Config, client *redis.Client, name string) (self *RedisSubscriber) {
	self = new(RedisSubscriber)
	self.client = client
	self.Output = make(chan string, 100)

	self.Task = task.NewTask(config, name).
		WithOnBeforeStart(self.subscribe).
		WithSubtaskFunc(self.run).
		WithOnStop(func() {
			// Unblocks the receiving loop
			err := self.pubsub.Close()
			if err != nil {
				self.Log.WithError(err).Error("Failed to close subscription")
			}
		})
	return
}

func (self *RedisSubscriber) WithChannelName(v string) *RedisSubscriber {
	self.channelName = v
	return self
}

func (self *RedisSubscriber) WithMonitor(monitor *monitoring.Monitor) *RedisSubscriber {
	self.monitor = monitor
	return self
}

func (self *RedisSubscriber) subscribe() error {
	self.pubsub = self.client.Subscribe(self.Ctx, self.channelName)

	// Wait for the confirmation, so no message published after Start is lost
	_, err := self.pubsub.Receive(self.Ctx)
	return err
}

func (self *RedisSubscriber) run() error {
	defer close(self.Output)

	ch := self.pubsub.Channel()
	for {
		select {
		case <-self.StopChannel:
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			self.monitor.GetReport().Redis.State.Received.Inc()

			select {
			case self.Output <- msg.Payload:
			case <-self.StopChannel:
				return nil
			}
		}
	}
}
