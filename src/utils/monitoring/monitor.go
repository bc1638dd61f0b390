package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/warp-contracts/marketplace/src/utils/config"
	"github.com/warp-contracts/marketplace/src/utils/monitoring/report"
	"github.com/warp-contracts/marketplace/src/utils/task"
)

// Stores and computes monitor counters
type Monitor struct {
	*task.Task

	Report    report.Report
	collector *Collector

	mtx          sync.RWMutex
	healthChecks map[string]func() error
}

func NewMonitor(config *config.Config) (self *Monitor) {
	self = new(Monitor)

	self.Report = report.Report{
		Run:        &report.RunReport{},
		Api:        &report.ApiReport{},
		Chain:      &report.ChainReport{},
		Outbox:     &report.OutboxReport{},
		Scheduler:  &report.SchedulerReport{},
		Reconciler: &report.ReconcilerReport{},
		Socket:     &report.SocketReport{},
		Mailer:     &report.MailerReport{},
		Redis:      &report.RedisReport{},
	}

	// Initialization
	self.Report.Run.State.StartTimestamp.Store(time.Now().Unix())

	self.healthChecks = make(map[string]func() error)
	self.collector = NewCollector().WithMonitor(self)

	self.Task = task.NewTask(config, "monitor").
		WithPeriodicSubtaskFunc(10*time.Second, self.updateUptime)
	return
}

// Named check run on every health request
func (self *Monitor) WithHealthCheck(name string, f func() error) *Monitor {
	self.mtx.Lock()
	defer self.mtx.Unlock()
	self.healthChecks[name] = f
	return self
}

func (self *Monitor) updateUptime() error {
	self.Report.Run.State.UpForSeconds.Store(uint64(time.Now().Unix() - self.Report.Run.State.StartTimestamp.Load()))
	return nil
}

func (self *Monitor) GetReport() *report.Report {
	return &self.Report
}

func (self *Monitor) GetPrometheusCollector() (collector prometheus.Collector) {
	return self.collector
}

// Failed checks, empty when healthy
func (self *Monitor) Check() map[string]string {
	self.mtx.RLock()
	defer self.mtx.RUnlock()

	failed := make(map[string]string)
	for name, check := range self.healthChecks {
		if err := check(); err != nil {
			failed[name] = err.Error()
		}
	}
	return failed
}

func (self *Monitor) IsOK() bool {
	return len(self.Check()) == 0
}

func (self *Monitor) OnGetState(c *gin.Context) {
	_ = self.updateUptime()
	c.JSON(http.StatusOK, gin.H{"success": true, "data": &self.Report})
}

func (self *Monitor) OnGetHealth(c *gin.Context) {
	failed := self.Check()
	if len(failed) == 0 {
		c.JSON(http.StatusOK, gin.H{"success": true, "data": gin.H{"status": "ok"}})
		return
	}
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"success": false,
		"data":    gin.H{"status": "unhealthy", "checks": failed},
		"error":   gin.H{"message": "Service unhealthy", "code": "UNHEALTHY"},
	})
}
