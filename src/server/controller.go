package server

import (
	"github.com/warp-contracts/marketplace/src/api"
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

// Serves the REST API and websockets.
// Background jobs run here as well unless they're disabled in favor of a worker process.
func NewController(config *config.Config) (self *Controller, err error) {
	self = new(Controller)
	self.Task = task.NewTask(config, "server-controller")

	// SQL database
	db, err := model.NewConnection(self.Ctx, config, "server")
	if err != nil {
		return
	}

	// Monitoring
	monitor := monitoring.NewMonitor(config).
		WithHealthCheck("database", func() error {
			return model.Ping(self.Ctx, &config.Database, db)
		})

	// Socket rooms, also the emitter used by services
	hub := socket.NewHub(config).
		WithMonitor(monitor)

	services := service.New(config, db, hub)
	hub.WithServices(services)

	// Redis fan out between instances
	var redisClient *redis.Client
	if config.Redis.Enabled {
		redisClient, err = publisher.NewRedisClient(self.Ctx, &config.Redis, "server")
		if err != nil {
			return
		}
		hub.WithRedis(redisClient)

		monitor.WithHealthCheck("redis", func() error {
			return redisClient.Ping(self.Ctx).Err()
		})
	}
	hub.WithEscrowNotifications()

	// Pinata
	ipfsClient := ipfs.NewClient(config)

	// Contracts
	contractService := contract.NewService(config, db, services).
		WithIpfs(ipfsClient).
		WithMonitor(monitor)

	if config.Chain.Enabled {
		var client *eth.Client
		client, err = eth.NewClient(self.Ctx, config)
		if err != nil {
			return
		}
		contractService.WithBackend(client)
		self.Task = self.Task.WithOnAfterStop(client.Close)
	}

	reconcilerTask := reconciler.NewReconciler(config, services, contractService).
		WithMonitor(monitor)

	server := api.NewServer(config).
		WithServices(services).
		WithContract(contractService).
		WithReconciler(reconcilerTask).
		WithHub(hub).
		WithIpfs(ipfsClient).
		WithMonitor(monitor)

	// Setup everything, will start upon calling Controller.Start()
	self.Task = self.Task.
		WithSubtask(server.Task).
		WithSubtask(hub.Task).
		WithSubtask(monitor.Task)

	if config.Outbox.Enabled {
		var mailer *mail.Client
		mailer, err = mail.NewClient(config)
		if err != nil {
			return
		}

		outboxTask := outbox.NewOutbox(config, db).
			WithMonitor(monitor).
			WithEmitter(hub).
			WithMailer(mailer.WithMonitor(monitor))
		self.Task = self.Task.WithSubtask(outboxTask.Task)
	}

	if config.Scheduler.Enabled {
		expiry := scheduler.NewExpiry(config, db, services).
			WithMonitor(monitor).
			WithRedis(redisClient)
		self.Task = self.Task.WithSubtask(expiry.Task)
	}

	if config.Reconciler.Enabled {
		self.Task = self.Task.WithSubtask(reconcilerTask.Task)
	}

	if config.Profiler.Enabled {
		self.Task = self.Task.WithSubtask(monitoring.NewProfiler(config).Task)
	}

	return
}
