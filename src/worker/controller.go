package worker

import (
	"errors"

	"github.com/warp-contracts/marketplace/src/contract"
	"github.com/warp-contracts/marketplace/src/outbox"
	"github.com/warp-contracts/marketplace/src/reconciler"
	"github.com/warp-contracts/marketplace/src/scheduler"
	"github.com/warp-contracts/marketplace/src/service"
	"github.com/warp-contracts/marketplace/src/socket"
	"github.com/warp-contracts/marketplace/src/utils/config"
	"github.com/warp-contracts/marketplace/src/utils/eth"
	"github.com/warp-contracts/marketplace/src/utils/ipfs"
	"github.com/warp-contracts/marketplace/src/utils/mail"
	"github.com/warp-contracts/marketplace/src/utils/model"
	"github.com/warp-contracts/marketplace/src/utils/monitoring"
	"github.com/warp-contracts/marketplace/src/utils/publisher"
	"github.com/warp-contracts/marketplace/src/utils/task"

	"github.com/redis/go-redis/v9"
)

type Controller struct {
	*task.Task
}

// Runs background jobs without serving clients: outbox delivery, job expiry and chain reconciliation.
// Socket events reach clients of the API instances through redis.
func NewController(config *config.Config) (self *Controller, err error) {
	self = new(Controller)
	self.Task = task.NewTask(config, "worker-controller")

	if !config.Outbox.Enabled && !config.Scheduler.Enabled && !config.Reconciler.Enabled {
		err = errors.New("all background jobs are disabled")
		return
	}

	// SQL database
	db, err := model.NewConnection(self.Ctx, config, "worker")
	if err != nil {
		return
	}

	// Monitoring
	monitor := monitoring.NewMonitor(config).
		WithHealthCheck("database", func() error {
			return model.Ping(self.Ctx, &config.Database, db)
		})

	server := monitoring.NewServer(config).
		WithMonitor(monitor)

	// Hub without clients, only publishes to other instances
	hub := socket.NewHub(config).
		WithMonitor(monitor)

	services := service.New(config, db, hub)
	hub.WithServices(services)

	self.Task = self.Task.
		WithSubtask(server.Task).
		WithSubtask(monitor.Task)

	var redisClient *redis.Client
	if config.Redis.Enabled {
		redisClient, err = publisher.NewRedisClient(self.Ctx, &config.Redis, "worker")
		if err != nil {
			return
		}
		hub.WithRedis(redisClient)
	} else {
		self.Log.Warn("Redis disabled, socket events emitted by the worker won't reach clients")
	}
	self.Task = self.Task.WithSubtask(hub.Task)

	if config.Scheduler.Enabled {
		expiry := scheduler.NewExpiry(config, db, services).
			WithMonitor(monitor).
			WithRedis(redisClient)
		self.Task = self.Task.WithSubtask(expiry.Task)
	}

	if config.Outbox.Enabled {
		mailer, err := mail.NewClient(config)
		if err != nil {
			return nil, err
		}

		outboxTask := outbox.NewOutbox(config, db).
			WithMonitor(monitor).
			WithEmitter(hub).
			WithMailer(mailer.WithMonitor(monitor))
		self.Task = self.Task.WithSubtask(outboxTask.Task)
	}

	if config.Reconciler.Enabled {
		contractService := contract.NewService(config, db, services).
			WithIpfs(ipfs.NewClient(config)).
			WithMonitor(monitor)

		if config.Chain.Enabled {
			client, err := eth.NewClient(self.Ctx, config)
			if err != nil {
				return nil, err
			}
			contractService.WithBackend(client)
			self.Task = self.Task.WithOnAfterStop(client.Close)
		}

		reconcilerTask := reconciler.NewReconciler(config, services, contractService).
			WithMonitor(monitor)
		self.Task = self.Task.WithSubtask(reconcilerTask.Task)
	}

	if config.Profiler.Enabled {
		self.Task = self.Task.WithSubtask(monitoring.NewProfiler(config).Task)
	}

	return
}
