package publisher

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/warp-contracts/marketplace/src/utils/config"
)

// Connects to Redis and checks the connection
func NewRedisClient(ctx context.Context, redisConfig *config.Redis, name string) (client *redis.Client, err error) {
	var opts *redis.Options
	if redisConfig.Url != "" {
		opts, err = redis.ParseURL(redisConfig.Url)
		if err != nil {
			return
		}
	} else {
		opts = &redis.Options{
			Addr:     fmt.Sprintf("%s:%d", redisConfig.Host, redisConfig.Port),
			Password: redisConfig.Password,
			Username: redisConfig.User,
			DB:       redisConfig.DB,
		}
	}
	opts.ClientName = fmt.Sprintf("market/%s", name)
	opts.MinIdleConns = redisConfig.MinIdleConns
	opts.MaxIdleConns = redisConfig.MaxIdleConns
	opts.ConnMaxIdleTime = redisConfig.ConnMaxIdleTime
	opts.PoolSize = redisConfig.MaxOpenConns
	opts.ConnMaxLifetime = redisConfig.ConnMaxLifetime

	if redisConfig.ClientCert != "" && redisConfig.ClientKey != "" && redisConfig.CaCert != "" {
		var cert tls.Certificate
		cert, err = tls.X509KeyPair([]byte(redisConfig.ClientCert), []byte(redisConfig.ClientKey))
		if err != nil {
			return
		}

		caCertPool := x509.NewCertPool()
		if !caCertPool.AppendCertsFromPEM([]byte(redisConfig.CaCert)) {
			return nil, errors.New("failed to append CA cert to pool")
		}

		opts.TLSConfig = &tls.Config{
			RootCAs:      caCertPool,
			Certificates: []tls.Certificate{cert},
		}
	}

	client = redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	err = client.Ping(ctx).Err()
	if err != nil {
		client.Close()
		return nil, err
	}

	return
}
