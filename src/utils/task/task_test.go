package task

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/warp-contracts/marketplace/src/utils/config"
	"go.uber.org/atomic"
	"go.uber.org/goleak"
)

func TestTaskTestSuite(t *testing.T) {
	suite.Run(t, new(TaskTestSuite))
}

type TaskTestSuite struct {
	suite.Suite
	config *config.Config
	ignore goleak.Option
}

func (s *TaskTestSuite) SetupSuite() {
	s.config = config.Default()
	s.config.StopTimeout = 5 * time.Second
}

func (s *TaskTestSuite) SetupTest() {
	s.ignore = goleak.IgnoreCurrent()
}

func (s *TaskTestSuite) TearDownTest() {
	goleak.VerifyNone(s.T(), s.ignore)
}

func (s *TaskTestSuite) TestPeriodicSubtask() {
	var calls atomic.Int32
	task := NewTask(s.config, "periodic").
		WithPeriodicSubtaskFunc(10*time.Millisecond, func() error {
			calls.Inc()
			return nil
		})

	require.NoError(s.T(), task.Start())
	require.Eventually(s.T(), func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	task.StopWait()
	require.NotNil(s.T(), task.CtxRunning.Err())
}

func (s *TaskTestSuite) TestScheduledSubtaskWaitsForFirstActivation() {
	var calls atomic.Int32
	var asked atomic.Int32
	task := NewTask(s.config, "scheduled").
		WithScheduledSubtaskFunc(func(last time.Time) time.Time {
			asked.Inc()
			return last.Add(100 * time.Millisecond)
		}, func() error {
			calls.Inc()
			return nil
		})

	require.NoError(s.T(), task.Start())
	require.Eventually(s.T(), func() bool { return asked.Load() >= 1 }, time.Second, time.Millisecond)
	require.Equal(s.T(), int32(0), calls.Load())

	require.Eventually(s.T(), func() bool { return calls.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	task.StopWait()
	require.NotNil(s.T(), task.CtxRunning.Err())
}

func (s *TaskTestSuite) TestScheduledSubtaskStopsBeforeActivation() {
	var calls atomic.Int32
	task := NewTask(s.config, "scheduled-far").
		WithScheduledSubtaskFunc(func(last time.Time) time.Time {
			return last.Add(time.Hour)
		}, func() error {
			calls.Inc()
			return nil
		})

	require.NoError(s.T(), task.Start())
	task.StopWait()
	require.NotNil(s.T(), task.CtxRunning.Err())
	require.Equal(s.T(), int32(0), calls.Load())
}

func (s *TaskTestSuite) TestFailedSubtaskStartStopsStartedOnes() {
	started := NewTask(s.config, "started")
	started = started.WithSubtaskFunc(func() error {
		<-started.StopChannel
		return nil
	})
	failing := NewTask(s.config, "failing-child").
		WithOnBeforeStart(func() error {
			return errors.New("nope")
		})

	parent := NewTask(s.config, "parent").
		WithSubtask(started).
		WithSubtask(failing)

	err := parent.Start()
	require.ErrorContains(s.T(), err, "failing-child")
	require.True(s.T(), started.IsStopping.Load())

	select {
	case <-started.CtxRunning.Done():
	case <-time.After(time.Second):
		s.T().Fatal("started subtask didn't stop")
	}
}

func (s *TaskTestSuite) TestSubtasksStopTogether() {
	var stopped sync.WaitGroup
	stopped.Add(2)

	var child *Task
	child = NewTask(s.config, "child").
		WithSubtaskFunc(func() error {
			defer stopped.Done()
			<-child.StopChannel
			return nil
		})

	var parent *Task
	parent = NewTask(s.config, "parent").
		WithSubtask(child).
		WithSubtaskFunc(func() error {
			defer stopped.Done()
			<-parent.Ctx.Done()
			return nil
		})

	require.NoError(s.T(), parent.Start())
	parent.StopWait()

	stopped.Wait()
	require.True(s.T(), child.IsStopping.Load())
	require.NotNil(s.T(), parent.CtxRunning.Err())
}

func (s *TaskTestSuite) TestOnBeforeStartError() {
	task := NewTask(s.config, "failing").
		WithOnBeforeStart(func() error {
			return errors.New("nope")
		})
	require.Error(s.T(), task.Start())
}

func (s *TaskTestSuite) TestWorkerPool() {
	var done atomic.Int32
	task := NewTask(s.config, "workers").
		WithWorkerPool(2, 10)
	task = task.WithSubtaskFunc(func() error {
		for i := 0; i < 5; i++ {
			task.SubmitToWorker(func() { done.Inc() })
		}
		return nil
	})

	require.NoError(s.T(), task.Start())
	require.Eventually(s.T(), func() bool { return done.Load() == 5 }, time.Second, 5*time.Millisecond)
	task.StopWait()
}

func (s *TaskTestSuite) TestHoleFlushesBatches() {
	input := make(chan int)

	var mtx sync.Mutex
	var batches [][]int
	hole := NewHole[int](s.config, "hole").
		WithBatchSize(2).
		WithInputChannel(input).
		WithOnFlush(time.Hour, func(ctx context.Context, data []int) error {
			mtx.Lock()
			defer mtx.Unlock()
			batches = append(batches, data)
			return nil
		})

	require.NoError(s.T(), hole.Start())
	input <- 1
	input <- 2
	input <- 3
	close(input)

	select {
	case <-hole.CtxRunning.Done():
	case <-time.After(time.Second):
		s.T().Fatal("hole didn't finish")
	}
	hole.StopWait()

	mtx.Lock()
	defer mtx.Unlock()
	require.Equal(s.T(), [][]int{{1, 2}, {3}}, batches)
}

func (s *TaskTestSuite) TestHoleRetriesFlush() {
	input := make(chan int, 1)

	var attempts atomic.Int32
	hole := NewHole[int](s.config, "hole-retry").
		WithBatchSize(1).
		WithInputChannel(input).
		WithBackoff(time.Second, 10*time.Millisecond).
		WithOnFlush(time.Hour, func(ctx context.Context, data []int) error {
			if attempts.Inc() < 3 {
				return errors.New("temporary")
			}
			return nil
		})

	require.NoError(s.T(), hole.Start())
	input <- 1
	close(input)

	<-hole.CtxRunning.Done()
	hole.StopWait()
	require.Equal(s.T(), int32(3), attempts.Load())
}

func (s *TaskTestSuite) TestNextAttemptDelay() {
	require.Equal(s.T(), 5*time.Second, NextAttemptDelay(1, 5*time.Second, time.Minute))
	require.Equal(s.T(), 10*time.Second, NextAttemptDelay(2, 5*time.Second, time.Minute))
	require.Equal(s.T(), 40*time.Second, NextAttemptDelay(4, 5*time.Second, time.Minute))
	require.Equal(s.T(), time.Minute, NextAttemptDelay(10, 5*time.Second, time.Minute))
}
