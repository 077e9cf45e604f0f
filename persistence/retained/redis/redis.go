package redis

import (
	"context"

	"github.com/gomodule/redigo/redis"

	"github.com/DrmagicE/pushstore"
	"github.com/DrmagicE/pushstore/persistence/encoding"
	"github.com/DrmagicE/pushstore/persistence/retained"
)

const (
	retainedKey = "retained"
	scanCount   = 100
)

var _ retained.Store = (*Store)(nil)

type Options struct {
	Pool *redis.Pool
}

// Store keeps all retained messages in one redis hash, field: topic, value: encoded message.
type Store struct {
	pool *redis.Pool
}

func New(opts Options) *Store {
	return &Store{
		pool: opts.Pool,
	}
}

func (s *Store) Store(ctx context.Context, topic string, payload []byte, qos pushstore.QoS) error {
	b, err := encoding.EncodeStoredMessage(&pushstore.StoredMessage{Topic: topic, Payload: payload, QoS: qos})
	if err != nil {
		return err
	}
	c, err := s.pool.GetContext(ctx)
	if err != nil {
		return pushstore.WrapStorage("retained.store", err)
	}
	defer c.Close()
	_, err = c.Do("hset", retainedKey, topic, b)
	return pushstore.WrapStorage("retained.store", err)
}

func (s *Store) Clean(ctx context.Context, topic string) error {
	c, err := s.pool.GetContext(ctx)
	if err != nil {
		return pushstore.WrapStorage("retained.clean", err)
	}
	defer c.Close()
	_, err = c.Do("hdel", retainedKey, topic)
	return pushstore.WrapStorage("retained.clean", err)
}

func (s *Store) Search(ctx context.Context, topics ...string) ([]*pushstore.StoredMessage, error) {
	if len(topics) == 0 {
		return nil, nil
	}
	c, err := s.pool.GetContext(ctx)
	if err != nil {
		return nil, pushstore.WrapStorage("retained.search", err)
	}
	defer c.Close()
	args := redis.Args{}.Add(retainedKey).AddFlat(topics)
	values, err := redis.ByteSlices(c.Do("hmget", args...))
	if err != nil {
		return nil, pushstore.WrapStorage("retained.search", err)
	}
	var rs []*pushstore.StoredMessage
	for _, v := range values {
		if v == nil {
			continue
		}
		msg, err := encoding.DecodeStoredMessage(v)
		if err != nil {
			return nil, pushstore.WrapStorage("retained.search", err)
		}
		rs = append(rs, msg)
	}
	return rs, nil
}

func (s *Store) Iterate(ctx context.Context, fn retained.IterateFn) error {
	c, err := s.pool.GetContext(ctx)
	if err != nil {
		return pushstore.WrapStorage("retained.iterate", err)
	}
	defer c.Close()
	cursor := 0
	for {
		values, err := redis.Values(c.Do("hscan", retainedKey, cursor, "count", scanCount))
		if err != nil {
			return pushstore.WrapStorage("retained.iterate", err)
		}
		var fields [][]byte
		if _, err = redis.Scan(values, &cursor, &fields); err != nil {
			return pushstore.WrapStorage("retained.iterate", err)
		}
		// fields holds topic, value pairs.
		for i := 1; i < len(fields); i += 2 {
			msg, err := encoding.DecodeStoredMessage(fields[i])
			if err != nil {
				return pushstore.WrapStorage("retained.iterate", err)
			}
			if !fn(msg) {
				return nil
			}
		}
		if cursor == 0 {
			return nil
		}
	}
}

func (s *Store) ClearAll(ctx context.Context) error {
	c, err := s.pool.GetContext(ctx)
	if err != nil {
		return pushstore.WrapStorage("retained.clear_all", err)
	}
	defer c.Close()
	_, err = c.Do("del", retainedKey)
	return pushstore.WrapStorage("retained.clear_all", err)
}
