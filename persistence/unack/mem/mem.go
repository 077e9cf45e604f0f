package mem

import (
	"context"
	"sync"

	"github.com/DrmagicE/pushstore/persistence/unack"
	"github.com/DrmagicE/pushstore/pkg/keylock"
	"github.com/DrmagicE/pushstore/pkg/packets"
)

const shardCount = 64

var _ unack.Store = (*Store)(nil)

type ids struct {
	publish map[packets.PacketID]struct{}
	pubrec  map[packets.PacketID]struct{}
}

func (i *ids) set(dir unack.Direction) map[packets.PacketID]struct{} {
	if dir == unack.Pubrec {
		return i.pubrec
	}
	return i.publish
}

func (i *ids) empty() bool {
	return len(i.publish) == 0 && len(i.pubrec) == 0
}

type shard struct {
	mu      sync.Mutex
	clients map[string]*ids
}

// Store is the in-memory packet id tracker.
type Store struct {
	shards [shardCount]shard
}

func New() *Store {
	s := &Store{}
	for i := range s.shards {
		s.shards[i].clients = make(map[string]*ids)
	}
	return s
}

func (s *Store) shard(clientID string) *shard {
	return &s.shards[keylock.Index(clientID, shardCount)]
}

func (s *Store) Reserve(ctx context.Context, dir unack.Direction, clientID string, id packets.PacketID) (bool, error) {
	sh := s.shard(clientID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	c, ok := sh.clients[clientID]
	if !ok {
		c = &ids{
			publish: make(map[packets.PacketID]struct{}),
			pubrec:  make(map[packets.PacketID]struct{}),
		}
		sh.clients[clientID] = c
	}
	set := c.set(dir)
	if _, ok := set[id]; ok {
		return true, nil
	}
	set[id] = struct{}{}
	return false, nil
}

func (s *Store) Release(ctx context.Context, dir unack.Direction, clientID string, id packets.PacketID) error {
	sh := s.shard(clientID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if c, ok := sh.clients[clientID]; ok {
		delete(c.set(dir), id)
		if c.empty() {
			delete(sh.clients, clientID)
		}
	}
	return nil
}

func (s *Store) IsReserved(ctx context.Context, dir unack.Direction, clientID string, id packets.PacketID) (bool, error) {
	sh := s.shard(clientID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if c, ok := sh.clients[clientID]; ok {
		_, ok = c.set(dir)[id]
		return ok, nil
	}
	return false, nil
}

func (s *Store) ClearAll(ctx context.Context, clientID string) error {
	sh := s.shard(clientID)
	sh.mu.Lock()
	defer sh.mu.Unlock()
	delete(sh.clients, clientID)
	return nil
}
