package task

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Implement operation retrying
type Retry struct {
	ctx             context.Context
	maxElapsedTime  time.Duration
	maxInterval     time.Duration
	initialInterval time.Duration
	onError         func(error, bool) error
}

func NewRetry() *Retry {
	return &Retry{ctx: context.Background()}
}

func (self *Retry) WithMaxElapsedTime(maxElapsedTime time.Duration) *Retry {
	self.maxElapsedTime = maxElapsedTime
	return self
}

func (self *Retry) WithMaxInterval(maxInterval time.Duration) *Retry {
	self.maxInterval = maxInterval
	return self
}

func (self *Retry) WithInitialInterval(v time.Duration) *Retry {
	self.initialInterval = v
	return self
}

func (self *Retry) WithContext(ctx context.Context) *Retry {
	self.ctx = ctx
	return self
}

// Called after each failed attempt. Second argument tells if the elapsed time is still acceptable.
// Returning backoff.Permanent stops retrying.
func (self *Retry) WithOnError(v func(error, bool) error) *Retry {
	self.onError = v
	return self
}

func (self *Retry) Run(f func() error) error {
	b := backoff.NewExponentialBackOff()
	b.MaxElapsedTime = self.maxElapsedTime
	if self.maxInterval > 0 {
		b.MaxInterval = self.maxInterval
	}
	if self.initialInterval > 0 {
		b.InitialInterval = self.initialInterval
	}
	started := time.Now()

	return backoff.Retry(func() error {
		err := f()
		if err == nil || self.onError == nil {
			return err
		}
		isDurationAcceptable := self.maxElapsedTime == 0 || time.Since(started) < self.maxElapsedTime
		return self.onError(err, isDurationAcceptable)
	}, backoff.WithContext(b, self.ctx))
}

// Delay before the given attempt (counted from 1) with exponential growth capped by max
func NextAttemptDelay(attempt int, initial, max time.Duration) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := initial
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= max || delay <= 0 {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}
