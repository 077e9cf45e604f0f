package redis

import (
	"context"

	"github.com/gomodule/redigo/redis"

	"github.com/DrmagicE/pushstore"
	"github.com/DrmagicE/pushstore/persistence/inflight"
)

var (
	_ inflight.PublishStore = (*Cache[*pushstore.PublishEvent])(nil)
	_ inflight.PubrelStore  = (*Cache[*pushstore.PubrelEvent])(nil)
)

type Options struct {
	Pool *redis.Pool
}

// Cache is the redis in-flight store, one hash per client whose fields are packet ids.
type Cache[V any] struct {
	pool  *redis.Pool
	codec inflight.Codec[V]
}

func New[V any](opts Options, codec inflight.Codec[V]) *Cache[V] {
	return &Cache[V]{
		pool:  opts.Pool,
		codec: codec,
	}
}

func NewPublishStore(opts Options) *Cache[*pushstore.PublishEvent] {
	return New(opts, inflight.PublishCodec)
}

func NewPubrelStore(opts Options) *Cache[*pushstore.PubrelEvent] {
	return New(opts, inflight.PubrelCodec)
}

func (c *Cache[V]) getKey(clientID string) string {
	return c.codec.Namespace + clientID
}

func (c *Cache[V]) op(name string) string {
	return c.codec.Namespace + name
}

func (c *Cache[V]) Put(ctx context.Context, key pushstore.Key, v V) error {
	b, err := c.codec.Encode(v)
	if err != nil {
		return err
	}
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return pushstore.WrapStorage(c.op("put"), err)
	}
	defer conn.Close()
	_, err = conn.Do("hset", c.getKey(key.ClientID), key.PacketID, b)
	return pushstore.WrapStorage(c.op("put"), err)
}

func (c *Cache[V]) Get(ctx context.Context, key pushstore.Key) (V, error) {
	var zero V
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return zero, pushstore.WrapStorage(c.op("get"), err)
	}
	defer conn.Close()
	b, err := redis.Bytes(conn.Do("hget", c.getKey(key.ClientID), key.PacketID))
	if err == redis.ErrNil {
		return zero, nil
	}
	if err != nil {
		return zero, pushstore.WrapStorage(c.op("get"), err)
	}
	v, err := c.codec.Decode(b)
	if err != nil {
		return zero, pushstore.WrapStorage(c.op("get"), err)
	}
	return v, nil
}

func (c *Cache[V]) Remove(ctx context.Context, key pushstore.Key) (bool, error) {
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return false, pushstore.WrapStorage(c.op("remove"), err)
	}
	defer conn.Close()
	n, err := redis.Int(conn.Do("hdel", c.getKey(key.ClientID), key.PacketID))
	if err != nil {
		return false, pushstore.WrapStorage(c.op("remove"), err)
	}
	return n > 0, nil
}

func (c *Cache[V]) RemoveAll(ctx context.Context, clientID string) error {
	conn, err := c.pool.GetContext(ctx)
	if err != nil {
		return pushstore.WrapStorage(c.op("remove_all"), err)
	}
	defer conn.Close()
	_, err = conn.Do("del", c.getKey(clientID))
	return pushstore.WrapStorage(c.op("remove_all"), err)
}
