package task

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gammazero/deque"
	"github.com/warp-contracts/marketplace/src/utils/config"
)

// Sink that collects items from a channel and hands them over in batches.
// A batch is flushed when it's full, when the flush interval passes or when the input gets closed.
// Flushes never overlap and failed ones are retried with backoff.
type Hole[In any] struct {
	*Task

	input   chan In
	pending deque.Deque[In]

	// Called with a context that outlives Stop, so the last batch still gets written
	onFlush       func(ctx context.Context, batch []In) error
	flushInterval time.Duration
	batchSize     int

	// Retry limits. Zero max elapsed time retries until the stop timeout.
	maxElapsedTime time.Duration
	maxInterval    time.Duration
}

func NewHole[In any](config *config.Config, name string) (self *Hole[In]) {
	self = new(Hole[In])
	self.batchSize = 1
	self.flushInterval = time.Second

	self.Task = NewTask(config, name).
		WithSubtaskFunc(self.collect)

	return
}

func (self *Hole[In]) WithBatchSize(batchSize int) *Hole[In] {
	if batchSize < 1 {
		batchSize = 1
	}
	self.batchSize = batchSize
	self.pending.SetMinCapacity(uint(math.Ceil(math.Log2(float64(batchSize)))) + 1)
	return self
}

func (self *Hole[In]) WithInputChannel(v chan In) *Hole[In] {
	self.input = v
	return self
}

func (self *Hole[In]) WithOnFlush(interval time.Duration, f func(ctx context.Context, batch []In) error) *Hole[In] {
	self.flushInterval = interval
	self.onFlush = f
	return self
}

func (self *Hole[In]) WithBackoff(maxElapsedTime, maxInterval time.Duration) *Hole[In] {
	self.maxElapsedTime = maxElapsedTime
	self.maxInterval = maxInterval
	return self
}

// Takes everything queued so far
func (self *Hole[In]) drain() []In {
	batch := make([]In, 0, self.pending.Len())
	for self.pending.Len() > 0 {
		batch = append(batch, self.pending.PopFront())
	}
	return batch
}

func (self *Hole[In]) flush() error {
	if self.pending.Len() == 0 {
		return nil
	}
	batch := self.drain()

	ctx, cancel := context.WithTimeout(context.Background(), self.Config.StopTimeout)
	defer cancel()

	err := NewRetry().
		WithContext(ctx).
		WithMaxElapsedTime(self.maxElapsedTime).
		WithMaxInterval(self.maxInterval).
		WithOnError(func(err error, isDurationAcceptable bool) error {
			if errors.Is(err, context.DeadlineExceeded) {
				return backoff.Permanent(err)
			}
			self.Log.WithError(err).WithField("size", len(batch)).Warn("Flush failed, retrying")
			return err
		}).
		Run(func() error {
			return self.onFlush(ctx, batch)
		})
	if err != nil {
		self.Log.WithError(err).WithField("size", len(batch)).Error("Flush failed, batch dropped")
	}
	return err
}

func (self *Hole[In]) collect() error {
	ticker := time.NewTicker(self.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case in, ok := <-self.input:
			if !ok {
				// The source stopped, nothing more will come
				return self.flush()
			}
			self.pending.PushBack(in)
			if self.pending.Len() < self.batchSize {
				continue
			}
		case <-ticker.C:
		}

		// A dropped batch doesn't stop the sink, the error is already logged
		_ = self.flush()
		ticker.Reset(self.flushInterval)
	}
}
