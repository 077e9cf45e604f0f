package redis

import (
	"context"

	"github.com/gomodule/redigo/redis"

	"github.com/DrmagicE/pushstore"
	"github.com/DrmagicE/pushstore/persistence/unack"
	"github.com/DrmagicE/pushstore/pkg/packets"
)

const (
	unackPrefix = "unack:"
)

var _ unack.Store = (*Store)(nil)

// Store is the redis packet id tracker, one redis set per client and direction.
type Store struct {
	pool *redis.Pool
}

type Options struct {
	Pool *redis.Pool
}

func New(opts Options) *Store {
	return &Store{
		pool: opts.Pool,
	}
}

func getKey(dir unack.Direction, clientID string) string {
	return unackPrefix + dir.String() + ":" + clientID
}

func (s *Store) Reserve(ctx context.Context, dir unack.Direction, clientID string, id packets.PacketID) (bool, error) {
	c, err := s.pool.GetContext(ctx)
	if err != nil {
		return false, pushstore.WrapStorage("unack.reserve", err)
	}
	defer c.Close()
	added, err := redis.Int(c.Do("sadd", getKey(dir, clientID), id))
	if err != nil {
		return false, pushstore.WrapStorage("unack.reserve", err)
	}
	return added == 0, nil
}

func (s *Store) Release(ctx context.Context, dir unack.Direction, clientID string, id packets.PacketID) error {
	c, err := s.pool.GetContext(ctx)
	if err != nil {
		return pushstore.WrapStorage("unack.release", err)
	}
	defer c.Close()
	_, err = c.Do("srem", getKey(dir, clientID), id)
	return pushstore.WrapStorage("unack.release", err)
}

func (s *Store) IsReserved(ctx context.Context, dir unack.Direction, clientID string, id packets.PacketID) (bool, error) {
	c, err := s.pool.GetContext(ctx)
	if err != nil {
		return false, pushstore.WrapStorage("unack.is_reserved", err)
	}
	defer c.Close()
	ok, err := redis.Bool(c.Do("sismember", getKey(dir, clientID), id))
	if err != nil {
		return false, pushstore.WrapStorage("unack.is_reserved", err)
	}
	return ok, nil
}

func (s *Store) ClearAll(ctx context.Context, clientID string) error {
	c, err := s.pool.GetContext(ctx)
	if err != nil {
		return pushstore.WrapStorage("unack.clear_all", err)
	}
	defer c.Close()
	_, err = c.Do("del", getKey(unack.Publish, clientID), getKey(unack.Pubrec, clientID))
	return pushstore.WrapStorage("unack.clear_all", err)
}
