package api

import (
	"context"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/warp-contracts/marketplace/src/contract"
	"github.com/warp-contracts/marketplace/src/reconciler"
	"github.com/warp-contracts/marketplace/src/service"
	"github.com/warp-contracts/marketplace/src/socket"
	"github.com/warp-contracts/marketplace/src/utils/auth"
	"github.com/warp-contracts/marketplace/src/utils/config"
	"github.com/warp-contracts/marketplace/src/utils/ipfs"
	"github.com/warp-contracts/marketplace/src/utils/logger"
	"github.com/warp-contracts/marketplace/src/utils/monitoring"
	"github.com/warp-contracts/marketplace/src/utils/task"
)

// Rest API server
type Server struct {
	*task.Task

	httpServer *http.Server
	Router     *gin.Engine

	services   *service.Services
	tokens     *auth.Tokens
	contract   *contract.Service
	reconciler *reconciler.Reconciler
	hub        *socket.Hub
	ipfs       *ipfs.Client
	monitor    *monitoring.Monitor
}

func NewServer(config *config.Config) (self *Server) {
	self = new(Server)

	self.Task = task.NewTask(config, "api").
		WithOnBeforeStart(self.register).
		WithSubtaskFunc(self.run).
		WithOnStop(self.stop)

	if !config.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	self.Router = gin.New()

	self.httpServer = &http.Server{
		Addr:    config.API.ListenAddress(),
		Handler: self.Router,
	}

	return
}

func (self *Server) WithServices(v *service.Services) *Server {
	self.services = v
	self.tokens = v.Auth.Tokens()
	return self
}

func (self *Server) WithContract(v *contract.Service) *Server {
	self.contract = v
	return self
}

// Nil reconciler makes the admin trigger unavailable
func (self *Server) WithReconciler(v *reconciler.Reconciler) *Server {
	self.reconciler = v
	return self
}

func (self *Server) WithHub(v *socket.Hub) *Server {
	self.hub = v
	return self
}

func (self *Server) WithIpfs(v *ipfs.Client) *Server {
	self.ipfs = v
	return self
}

func (self *Server) WithMonitor(v *monitoring.Monitor) *Server {
	self.monitor = v
	return self
}

func (self *Server) register() (err error) {
	err = registerValidators()
	if err != nil {
		return
	}

	self.Router.Use(
		gin.CustomRecovery(self.onPanic),
		logger.Middleware(),
		self.cors(),
		self.errorHandler,
	)
	self.Router.NoRoute(self.onNoRoute)

	// Root
	self.Router.Static("/uploads", self.Config.Upload.Dir)
	if self.monitor != nil {
		self.Router.GET("/metrics", monitoring.MetricsHandler(self.monitor))
	}

	root := self.Router.Group(self.Config.API.Prefix)

	// Long lived, no request timeout
	if self.hub != nil {
		root.GET("ws", self.hub.Handle)
	}

	// Waits for receipts are bounded by Chain.TxWaitTimeout
	self.registerContract(root.Group("contract", self.authHandler))

	v1 := root.Group("", self.timeout)
	if self.monitor != nil {
		v1.GET("health", self.monitor.OnGetHealth)
		v1.GET("monitor/state", self.monitor.OnGetState)
	}

	a := v1.Group("auth")
	{
		a.POST("nonce", self.onNonce)
		a.POST("verify", self.onVerify)
		a.GET("me", self.authHandler, self.onMe)
	}

	v1.POST("contact", self.onContact)
	v1.POST("upload", self.authHandler, self.onUpload)

	self.registerDatabase(v1.Group("database", self.authHandler))
	self.registerAdmin(v1.Group("admin", self.authHandler, self.adminHandler))
	return
}

func (self *Server) cors() gin.HandlerFunc {
	conf := cors.DefaultConfig()
	if len(self.Config.API.CorsOrigins) == 0 {
		conf.AllowAllOrigins = true
	} else {
		conf.AllowOrigins = self.Config.API.CorsOrigins
		conf.AllowCredentials = true
	}
	conf.AddAllowHeaders("Authorization", "X-Request-Id")
	conf.AddExposeHeaders("X-Request-Id")
	return cors.New(conf)
}

func (self *Server) run() (err error) {
	self.Log.WithField("address", self.httpServer.Addr).Info("Starting REST server")

	err = self.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		self.Log.WithError(err).Error("Failed to start REST server")
		return
	}
	return nil
}

func (self *Server) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), self.Config.StopTimeout)
	defer cancel()

	err := self.httpServer.Shutdown(ctx)
	if err != nil {
		self.Log.WithError(err).Error("Failed to gracefully shutdown REST server")
		return
	}
}
