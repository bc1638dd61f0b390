package lock

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrNotHeld = errors.New("lock is not held")

// Deletes the key only if it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Lock held by at most one process at a time, expires after ttl
type Lock struct {
	client *redis.Client
	key    string
	ttl    time.Duration
	token  string
}

func New(client *redis.Client, key string, ttl time.Duration) *Lock {
	return &Lock{
		client: client,
		key:    key,
		ttl:    ttl,
	}
}

// Returns false when someone else holds the lock
func (self *Lock) TryAcquire(ctx context.Context) (ok bool, err error) {
	token := uuid.NewString()
	ok, err = self.client.SetNX(ctx, self.key, token, self.ttl).Result()
	if err != nil || !ok {
		return
	}
	self.token = token
	return
}

func (self *Lock) Release(ctx context.Context) error {
	if self.token == "" {
		return ErrNotHeld
	}
	res, err := releaseScript.Run(ctx, self.client, []string{self.key}, self.token).Int()
	self.token = ""
	if err != nil {
		return err
	}
	if res == 0 {
		return ErrNotHeld
	}
	return nil
}
