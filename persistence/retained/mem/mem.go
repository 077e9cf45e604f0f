package mem

import (
	"context"
	"strings"
	"sync"

	"github.com/DrmagicE/pushstore"
	"github.com/DrmagicE/pushstore/persistence/retained"
	"github.com/DrmagicE/pushstore/pkg/keylock"
)

var _ retained.Store = (*TrieDB)(nil)

// shardCount must be a power of two.
const shardCount = 16

// TrieDB stores retained messages in topic tries, sharded by the first topic level.
// Each shard holds one trie for user topics and one for system topics that start with '$'.
// Operations on topics of different shards do not block each other.
type TrieDB struct {
	shards [shardCount]*shard
}

type shard struct {
	sync.RWMutex
	userTrie   *topicNode
	systemTrie *topicNode
	count      int
}

func newShard() *shard {
	return &shard{
		userTrie:   newTopicTrie(),
		systemTrie: newTopicTrie(),
	}
}

func New() *TrieDB {
	t := &TrieDB{}
	for i := range t.shards {
		t.shards[i] = newShard()
	}
	return t
}

func (t *TrieDB) shard(topicName string) *shard {
	first := topicName
	if i := strings.IndexByte(topicName, '/'); i >= 0 {
		first = topicName[:i]
	}
	return t.shards[keylock.Index(first, shardCount)]
}

func (s *shard) getTrie(topicName string) *topicNode {
	if isSystemTopic(topicName) {
		return s.systemTrie
	}
	return s.userTrie
}

func (t *TrieDB) Store(ctx context.Context, topic string, payload []byte, qos pushstore.QoS) error {
	msg := pushstore.NewStoredMessage(topic, payload, qos)
	s := t.shard(topic)
	s.Lock()
	defer s.Unlock()
	if s.getTrie(topic).put(topic, msg) {
		s.count++
	}
	return nil
}

func (t *TrieDB) Clean(ctx context.Context, topic string) error {
	s := t.shard(topic)
	s.Lock()
	defer s.Unlock()
	if s.getTrie(topic).remove(topic) {
		s.count--
	}
	return nil
}

func (t *TrieDB) Search(ctx context.Context, topics ...string) ([]*pushstore.StoredMessage, error) {
	var rs []*pushstore.StoredMessage
	for _, topic := range topics {
		s := t.shard(topic)
		s.RLock()
		if n := s.getTrie(topic).find(topic); n != nil {
			rs = append(rs, n.msg.Copy())
		}
		s.RUnlock()
	}
	return rs, nil
}

// Iterate visits the user topics of every shard, then the system topics.
// Only one shard is locked at a time, a concurrent Store may or may not be seen.
func (t *TrieDB) Iterate(ctx context.Context, fn retained.IterateFn) error {
	for _, system := range []bool{false, true} {
		for _, s := range t.shards {
			s.RLock()
			root := s.userTrie
			if system {
				root = s.systemTrie
			}
			cont := root.preOrderTraverse(fn)
			s.RUnlock()
			if !cont {
				return nil
			}
		}
	}
	return nil
}

func (t *TrieDB) ClearAll(ctx context.Context) error {
	for _, s := range t.shards {
		s.Lock()
		s.userTrie = newTopicTrie()
		s.systemTrie = newTopicTrie()
		s.count = 0
		s.Unlock()
	}
	return nil
}

// Len returns the number of retained messages.
func (t *TrieDB) Len() int {
	n := 0
	for _, s := range t.shards {
		s.RLock()
		n += s.count
		s.RUnlock()
	}
	return n
}
