package mem

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/DrmagicE/pushstore"
	retained_test "github.com/DrmagicE/pushstore/persistence/retained/test"
)

func TestTrieDB(t *testing.T) {
	retained_test.TestSuite(t, New())
}

func TestTrieDB_PruneOnClean(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()
	s := New()
	a.Nil(s.Store(ctx, "a/b/c/d", []byte{1}, pushstore.QoS0))
	a.Nil(s.Store(ctx, "a/b", []byte{2}, pushstore.QoS0))
	a.Equal(2, s.Len())

	a.Nil(s.Clean(ctx, "a/b/c/d"))
	a.Equal(1, s.Len())
	// "c" and "d" are pruned, "b" still holds a message.
	b := s.shard("a").userTrie.children["a"].children["b"]
	a.NotNil(b)
	a.Len(b.children, 0)

	a.Nil(s.Clean(ctx, "a/b"))
	a.Len(s.shard("a").userTrie.children, 0)
	a.Equal(0, s.Len())

	// cleaning twice keeps the count
	a.Nil(s.Clean(ctx, "a/b"))
	a.Equal(0, s.Len())
}

func TestTrieDB_SystemTopic(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()
	s := New()
	a.Nil(s.Store(ctx, "$SYS/a", []byte{1}, pushstore.QoS0))
	a.Len(s.shard("$SYS/a").userTrie.children, 0)
	a.Len(s.shard("$SYS/a").systemTrie.children, 1)
}

// otherShardTopic returns a topic whose first level maps to a shard other than topic's.
func otherShardTopic(s *TrieDB, topic string) string {
	for i := 0; ; i++ {
		other := fmt.Sprintf("t%d/x", i)
		if s.shard(other) != s.shard(topic) {
			return other
		}
	}
}

func TestTrieDB_ShardsDoNotBlock(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()
	s := New()
	busy := "busy/topic"
	free := otherShardTopic(s, busy)
	a.Nil(s.Store(ctx, free, []byte{1}, pushstore.QoS1))

	// a writer holds the shard of busy
	sh := s.shard(busy)
	sh.Lock()
	done := make(chan struct{})
	go func() {
		defer close(done)
		msgs, err := s.Search(ctx, free)
		a.Nil(err)
		a.Len(msgs, 1)
		a.Nil(s.Store(ctx, free, []byte{2}, pushstore.QoS0))
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("operation on another shard is blocked")
	}
	sh.Unlock()

	a.Nil(s.Store(ctx, busy, []byte{3}, pushstore.QoS0))
	msgs, err := s.Search(ctx, busy, free)
	a.Nil(err)
	a.Len(msgs, 2)
	a.Equal(2, s.Len())
}

func TestTrieDB_ConcurrentShards(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			topic := fmt.Sprintf("level%d/a/b", i)
			for j := 0; j < 50; j++ {
				a.Nil(s.Store(ctx, topic, []byte{byte(j)}, pushstore.QoS1))
				msgs, err := s.Search(ctx, topic)
				a.Nil(err)
				a.Len(msgs, 1)
			}
		}(i)
	}
	wg.Wait()
	a.Equal(64, s.Len())
	n := 0
	a.Nil(s.Iterate(ctx, func(msg *pushstore.StoredMessage) bool {
		n++
		return true
	}))
	a.Equal(64, n)
	a.Nil(s.ClearAll(ctx))
	a.Equal(0, s.Len())
}
