package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx"
	"github.com/warp-contracts/marketplace/src/utils/config"
	"github.com/warp-contracts/marketplace/src/utils/task"
)

// Listens on a postgres NOTIFY channel and decodes JSON payloads into T.
// The connection is reestablished when it dies, notifications sent in the meantime are lost.
type Streamer[T any] struct {
	*task.Task

	pool       *pgx.ConnPool
	connection *pgx.Conn

	channelName string
	onInvalid   func(payload string, err error)

	Output chan *T
}

func NewStreamer[T any](config *config.Config, name string) (self *Streamer[T]) {
	self = new(Streamer[T])
	self.Output = make(chan *T)

	self.Task = task.NewTask(config, name).
		WithOnBeforeStart(self.connect).
		WithSubtaskFunc(self.run).
		WithOnAfterStop(self.disconnect)

	return
}

func (self *Streamer[T]) WithNotificationChannelName(name string) *Streamer[T] {
	self.channelName = name
	return self
}

func (self *Streamer[T]) WithCapacity(size int) *Streamer[T] {
	self.Output = make(chan *T, size)
	return self
}

// Called for payloads that aren't valid JSON for T
func (self *Streamer[T]) WithOnInvalid(f func(payload string, err error)) *Streamer[T] {
	self.onInvalid = f
	return self
}

func connConfig(dbConfig *config.Database) (pgx.ConnConfig, error) {
	if dbConfig.Url != "" {
		return pgx.ParseConnectionString(dbConfig.Url)
	}
	return pgx.ParseDSN(fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		dbConfig.Host,
		dbConfig.Port,
		dbConfig.User,
		dbConfig.Password,
		dbConfig.Name,
		dbConfig.SslMode))
}

func (self *Streamer[T]) connect() (err error) {
	connConfig, err := connConfig(&self.Config.Database)
	if err != nil {
		return
	}

	self.pool, err = pgx.NewConnPool(pgx.ConnPoolConfig{ConnConfig: connConfig, MaxConnections: 1})
	if err != nil {
		return
	}

	return self.listen()
}

func (self *Streamer[T]) listen() (err error) {
	self.connection, err = self.pool.Acquire()
	if err != nil {
		return
	}
	return self.connection.Listen(self.channelName)
}

func (self *Streamer[T]) disconnect() {
	if self.connection != nil {
		self.pool.Release(self.connection)
	}
	self.pool.Close()
}

// Replaces a dead connection, retrying until it works or the task stops
func (self *Streamer[T]) reconnect() error {
	self.pool.Release(self.connection)
	self.connection = nil

	return task.NewRetry().
		WithContext(self.Ctx).
		WithMaxInterval(10 * time.Second).
		WithOnError(func(err error, _ bool) error {
			self.Log.WithError(err).Warn("Failed to listen again, retrying")
			return err
		}).
		Run(self.listen)
}

func (self *Streamer[T]) decode(payload string) *T {
	out := new(T)
	err := json.Unmarshal([]byte(payload), out)
	if err != nil {
		self.Log.WithError(err).WithField("channel", self.channelName).Warn("Invalid notification payload")
		if self.onInvalid != nil {
			self.onInvalid(payload, err)
		}
		return nil
	}
	return out
}

func (self *Streamer[T]) run() error {
	// Nothing is sent after run() exits
	defer close(self.Output)

	for {
		msg, err := self.connection.WaitForNotification(self.Ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		if err != nil {
			if self.connection.IsAlive() {
				self.Log.WithError(err).Warn("Failed to wait for notification")
				continue
			}
			self.Log.WithError(err).Warn("Connection lost, listening again")
			if err := self.reconnect(); err != nil {
				// Only fails when stopping
				return nil
			}
			continue
		}

		out := self.decode(msg.Payload)
		if out == nil {
			continue
		}

		select {
		case self.Output <- out:
		case <-self.StopChannel:
			return nil
		}
	}
}
