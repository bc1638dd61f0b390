package task

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gammazero/workerpool"
	"github.com/sirupsen/logrus"
	"github.com/warp-contracts/marketplace/src/utils/config"
	"github.com/warp-contracts/marketplace/src/utils/logger"
)

// Lifecycle shared by every long running part of the marketplace: the REST server, the socket hub,
// the outbox pipeline, the schedulers.
//
// A task is built with the With* methods, then Start()ed once. Stop() cancels Ctx and closes
// StopChannel, subtasks are expected to return soon after. CtxRunning is cancelled when
// everything inside the task has returned and the after-stop hooks ran.
type Task struct {
	Name   string
	Config *config.Config
	Log    *logrus.Entry

	// Closed by Stop()
	StopChannel chan bool
	IsStopping  *atomic.Bool
	stopOnce    sync.Once

	// Cancelled by Stop(). Used inside the task.
	Ctx    context.Context
	cancel context.CancelFunc

	// Cancelled when nothing runs in the task anymore. Used outside the task.
	CtxRunning    context.Context
	cancelRunning context.CancelFunc

	// Counts running subtasks, both funcs and nested tasks
	running sync.WaitGroup

	// Optional worker pool
	Workers        *workerpool.WorkerPool
	workerMaxQueue int

	onBeforeStart []func() error
	onStop        []func()
	onAfterStop   []func()
	funcs         []func() error
	subtasks      []*Task
}

func NewTask(config *config.Config, name string) (self *Task) {
	self = new(Task)
	self.Name = name
	self.Config = config
	self.Log = logger.NewSublogger(name)

	self.Ctx, self.cancel = context.WithCancel(context.Background())
	self.CtxRunning, self.cancelRunning = context.WithCancel(context.Background())

	self.IsStopping = &atomic.Bool{}
	self.StopChannel = make(chan bool, 1)
	return
}

// Runs before anything starts. An error aborts Start().
func (self *Task) WithOnBeforeStart(f func() error) *Task {
	self.onBeforeStart = append(self.onBeforeStart, f)
	return self
}

// Runs synchronously inside Stop(), after Ctx is cancelled
func (self *Task) WithOnStop(f func()) *Task {
	self.onStop = append(self.onStop, f)
	return self
}

// Runs once every subtask returned, right before CtxRunning is cancelled
func (self *Task) WithOnAfterStop(f func()) *Task {
	self.onAfterStop = append(self.onAfterStop, f)
	return self
}

// Nested task, started before this task's funcs and stopped before StopChannel is closed.
// This task keeps running until the nested one finished.
func (self *Task) WithSubtask(t *Task) *Task {
	t.WithOnBeforeStart(func() error {
		self.running.Add(1)
		return nil
	}).WithOnAfterStop(self.running.Done)

	self.subtasks = append(self.subtasks, t)
	return self
}

// Function run in its own goroutine. It should return when StopChannel is closed.
func (self *Task) WithSubtaskFunc(f func() error) *Task {
	self.funcs = append(self.funcs, f)
	return self
}

// Calls f immediately and then period after each call returned.
// An error ends the loop.
func (self *Task) WithPeriodicSubtaskFunc(period time.Duration, f func() error) *Task {
	return self.WithSubtaskFunc(func() error {
		if err := f(); err != nil {
			return err
		}
		return self.repeat(func(last time.Time) time.Time { return last.Add(period) }, f)
	})
}

// Calls f at the times returned by next, starting with next(now).
// next gets the time the previous call finished. An error ends the loop.
func (self *Task) WithScheduledSubtaskFunc(next func(time.Time) time.Time, f func() error) *Task {
	return self.WithSubtaskFunc(func() error {
		return self.repeat(next, f)
	})
}

func (self *Task) repeat(next func(time.Time) time.Time, f func() error) error {
	for {
		timer := time.NewTimer(time.Until(next(time.Now())))
		select {
		case <-self.StopChannel:
			timer.Stop()
			self.Log.Debug("Task stopped")
			return nil
		case <-timer.C:
		}

		if err := f(); err != nil {
			return err
		}
	}
}

func (self *Task) WithWorkerPool(maxWorkers int, maxQueueSize int) *Task {
	self.Workers = workerpool.New(maxWorkers)
	self.workerMaxQueue = maxQueueSize
	return self.WithOnAfterStop(self.Workers.StopWait)
}

// Submits f to the worker pool. Blocks while the queue is full, gives up when the task is stopping.
func (self *Task) SubmitToWorker(f func()) {
	for self.workerMaxQueue > 0 && self.Workers.WaitingQueueSize() >= self.workerMaxQueue {
		select {
		case <-self.Ctx.Done():
			return
		case <-time.After(10 * time.Millisecond):
		}
	}
	self.Workers.Submit(f)
}

// 0 when the queue is empty, 1 when it's full
func (self *Task) GetWorkerQueueFillFactor() float32 {
	if self.Workers == nil || self.workerMaxQueue <= 0 {
		return 0
	}
	return float32(self.Workers.WaitingQueueSize()) / float32(self.workerMaxQueue)
}

func (self *Task) spawn(f func() error) {
	self.running.Add(1)
	go func() {
		defer self.running.Done()
		defer func() {
			if p := recover(); p != nil {
				err, ok := p.(error)
				if !ok {
					err = fmt.Errorf("%v", p)
				}
				self.Log.WithError(err).Error("Panic in subtask")
				panic(p)
			}
		}()

		if err := f(); err != nil {
			self.Log.WithError(err).Error("Subtask failed")
		}
	}()
}

func (self *Task) Start() (err error) {
	for _, cb := range self.onBeforeStart {
		if err = cb(); err != nil {
			return
		}
	}

	for i, subtask := range self.subtasks {
		if err = subtask.Start(); err != nil {
			// Don't leave the ones that started running
			for _, started := range self.subtasks[:i] {
				started.Stop()
			}
			return fmt.Errorf("failed to start %s: %w", subtask.Name, err)
		}
	}

	for _, f := range self.funcs {
		self.spawn(f)
	}

	go func() {
		self.running.Wait()
		for _, cb := range self.onAfterStop {
			cb()
		}
		self.cancelRunning()
	}()

	return nil
}

func (self *Task) Stop() {
	self.stopOnce.Do(func() {
		self.Log.Info("Stopping...")
		self.IsStopping.Store(true)

		for _, subtask := range self.subtasks {
			subtask.Stop()
		}

		close(self.StopChannel)
		self.cancel()

		for _, cb := range self.onStop {
			cb()
		}
	})
}

// Stops the task and waits at most Config.StopTimeout for it to finish
func (self *Task) StopWait() {
	self.Stop()

	timer := time.NewTimer(self.Config.StopTimeout)
	defer timer.Stop()

	select {
	case <-timer.C:
		self.Log.Error("Timeout reached, failed to stop")
	case <-self.CtxRunning.Done():
		self.Log.Info("Task finished")
	}
}
