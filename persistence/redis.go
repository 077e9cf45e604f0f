package persistence

import (
	"context"

	redigo "github.com/gomodule/redigo/redis"
	"github.com/pkg/errors"

	"github.com/DrmagicE/pushstore/config"
	"github.com/DrmagicE/pushstore/persistence/inflight"
	redis_inflight "github.com/DrmagicE/pushstore/persistence/inflight/redis"
	"github.com/DrmagicE/pushstore/persistence/queue"
	redis_queue "github.com/DrmagicE/pushstore/persistence/queue/redis"
	"github.com/DrmagicE/pushstore/persistence/retained"
	redis_retained "github.com/DrmagicE/pushstore/persistence/retained/redis"
	"github.com/DrmagicE/pushstore/persistence/unack"
	redis_unack "github.com/DrmagicE/pushstore/persistence/unack/redis"
)

func init() {
	RegisterFactory(config.PersistenceTypeRedis, NewRedis)
}

func NewRedis(config config.Config) (Persistence, error) {
	return &redis{
		config: config,
	}, nil
}

type redis struct {
	pool   *redigo.Pool
	config config.Config
}

func newPool(config config.Config) *redigo.Pool {
	return &redigo.Pool{
		DialContext: func(ctx context.Context) (redigo.Conn, error) {
			c, err := redigo.DialContext(ctx, "tcp", config.Persistence.Redis.Addr)
			if err != nil {
				return nil, err
			}
			if pswd := config.Persistence.Redis.Password; pswd != "" {
				if _, err := c.Do("AUTH", pswd); err != nil {
					c.Close()
					return nil, err
				}
			}
			if _, err := c.Do("SELECT", config.Persistence.Redis.Database); err != nil {
				c.Close()
				return nil, err
			}
			return c, nil
		},
		MaxIdle:     int(config.Persistence.Redis.MaxIdle),
		MaxActive:   int(config.Persistence.Redis.MaxActive),
		IdleTimeout: config.Persistence.Redis.IdleTimeout,
	}
}

func (r *redis) Open(ctx context.Context) error {
	r.pool = newPool(r.config)
	conn, err := r.pool.GetContext(ctx)
	if err != nil {
		return errors.Wrap(err, "redis: connect")
	}
	defer conn.Close()
	// Test the connection
	_, err = conn.Do("PING")
	return errors.Wrap(err, "redis: ping")
}

func (r *redis) NewQueueStore(opts queue.Options) (queue.Store, error) {
	return redis_queue.New(redis_queue.Options{
		Options: opts,
		Pool:    r.pool,
	}), nil
}

func (r *redis) NewUnackStore() (unack.Store, error) {
	return redis_unack.New(redis_unack.Options{
		Pool: r.pool,
	}), nil
}

func (r *redis) NewPublishStore() (inflight.PublishStore, error) {
	return redis_inflight.NewPublishStore(redis_inflight.Options{Pool: r.pool}), nil
}

func (r *redis) NewPubrelStore() (inflight.PubrelStore, error) {
	return redis_inflight.NewPubrelStore(redis_inflight.Options{Pool: r.pool}), nil
}

func (r *redis) NewRetainedStore() (retained.Store, error) {
	return redis_retained.New(redis_retained.Options{Pool: r.pool}), nil
}

func (r *redis) Close() error {
	if r.pool == nil {
		return nil
	}
	return r.pool.Close()
}
