package mem

import (
	"context"
	"sync"

	"github.com/DrmagicE/pushstore"
	"github.com/DrmagicE/pushstore/persistence/inflight"
	"github.com/DrmagicE/pushstore/pkg/keylock"
	"github.com/DrmagicE/pushstore/pkg/packets"
)

const shardCount = 64

var (
	_ inflight.PublishStore = (*Cache[*pushstore.PublishEvent])(nil)
	_ inflight.PubrelStore  = (*Cache[*pushstore.PubrelEvent])(nil)
)

type shard[V any] struct {
	mu      sync.RWMutex
	clients map[string]map[packets.PacketID]V
}

// Cache is the in-memory in-flight store. Values are copied in and out.
type Cache[V any] struct {
	codec  inflight.Codec[V]
	shards [shardCount]shard[V]
}

func New[V any](codec inflight.Codec[V]) *Cache[V] {
	c := &Cache[V]{codec: codec}
	for i := range c.shards {
		c.shards[i].clients = make(map[string]map[packets.PacketID]V)
	}
	return c
}

func NewPublishStore() *Cache[*pushstore.PublishEvent] {
	return New(inflight.PublishCodec)
}

func NewPubrelStore() *Cache[*pushstore.PubrelEvent] {
	return New(inflight.PubrelCodec)
}

func (c *Cache[V]) shard(clientID string) *shard[V] {
	return &c.shards[keylock.Index(clientID, shardCount)]
}

func (c *Cache[V]) Put(ctx context.Context, key pushstore.Key, v V) error {
	s := c.shard(key.ClientID)
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.clients[key.ClientID]
	if !ok {
		m = make(map[packets.PacketID]V)
		s.clients[key.ClientID] = m
	}
	m[key.PacketID] = c.codec.Copy(v)
	return nil
}

func (c *Cache[V]) Get(ctx context.Context, key pushstore.Key) (V, error) {
	s := c.shard(key.ClientID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if v, ok := s.clients[key.ClientID][key.PacketID]; ok {
		return c.codec.Copy(v), nil
	}
	var zero V
	return zero, nil
}

func (c *Cache[V]) Remove(ctx context.Context, key pushstore.Key) (bool, error) {
	s := c.shard(key.ClientID)
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.clients[key.ClientID]
	if !ok {
		return false, nil
	}
	if _, ok = m[key.PacketID]; !ok {
		return false, nil
	}
	delete(m, key.PacketID)
	if len(m) == 0 {
		delete(s.clients, key.ClientID)
	}
	return true, nil
}

func (c *Cache[V]) RemoveAll(ctx context.Context, clientID string) error {
	s := c.shard(clientID)
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, clientID)
	return nil
}
