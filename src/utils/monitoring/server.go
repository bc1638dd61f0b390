package monitoring

import (
	"context"
	"net/http"
	"runtime"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/warp-contracts/marketplace/src/utils/config"
	"github.com/warp-contracts/marketplace/src/utils/task"
)

// Serves monitor counters of processes without the REST API, or profiling endpoints
type Server struct {
	*task.Task

	httpServer *http.Server
	Router     *gin.Engine

	monitor *Monitor
}

func NewServer(config *config.Config) *Server {
	return newServer(config, "monitoring-server", config.API.ListenAddress())
}

// Profiling endpoints on Profiler.ListenAddress
func NewProfiler(config *config.Config) (self *Server) {
	self = newServer(config, "profiler", config.Profiler.ListenAddress)

	runtime.SetBlockProfileRate(config.Profiler.BlockProfileRate)
	pprof.Register(self.Router)
	return
}

func newServer(config *config.Config, name, address string) (self *Server) {
	self = new(Server)

	self.Task = task.NewTask(config, name).
		WithSubtaskFunc(self.run).
		WithOnStop(self.stop)

	self.Router = gin.New()
	self.Router.Use(gin.Recovery())

	self.httpServer = &http.Server{
		Addr:    address,
		Handler: self.Router,
	}

	return
}

func (self *Server) WithMonitor(monitor *Monitor) *Server {
	self.monitor = monitor

	v1 := self.Router.Group(self.Config.API.Prefix)
	{
		v1.GET("health", monitor.OnGetHealth)
		v1.GET("monitor/state", monitor.OnGetState)
	}

	self.Router.GET("/metrics", MetricsHandler(monitor))
	return self
}

// Prometheus endpoint exposing only the monitor's collector
func MetricsHandler(monitor *Monitor) gin.HandlerFunc {
	registry := prometheus.NewRegistry()
	registry.MustRegister(monitor.GetPrometheusCollector())
	return gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
}

func (self *Server) run() (err error) {
	self.Log.WithField("address", self.httpServer.Addr).Info("Starting server")

	err = self.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		self.Log.WithError(err).Error("Failed to start server")
		return
	}
	return nil
}

func (self *Server) stop() {
	ctx, cancel := context.WithTimeout(context.Background(), self.Config.StopTimeout)
	defer cancel()

	err := self.httpServer.Shutdown(ctx)
	if err != nil {
		self.Log.WithError(err).Error("Failed to gracefully shutdown server")
		return
	}
}
