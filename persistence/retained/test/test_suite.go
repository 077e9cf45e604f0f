package test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrmagicE/pushstore"
	"github.com/DrmagicE/pushstore/persistence/retained"
)

var ctx = context.Background()

// TestSuite clears s and runs the retained store cases against it.
func TestSuite(t *testing.T, s retained.Store) {
	require.Nil(t, s.ClearAll(ctx))
	t.Run("store_and_search", func(t *testing.T) { testStoreAndSearch(t, s) })
	t.Run("overwrite", func(t *testing.T) { testOverwrite(t, s) })
	t.Run("clean", func(t *testing.T) { testClean(t, s) })
	t.Run("copy_on_store", func(t *testing.T) { testCopyOnStore(t, s) })
	t.Run("iterate", func(t *testing.T) { testIterate(t, s) })
	t.Run("concurrent", func(t *testing.T) { testConcurrent(t, s) })
}

func testStoreAndSearch(t *testing.T, s retained.Store) {
	a := assert.New(t)
	msgs := []*pushstore.StoredMessage{
		{Topic: "a/b/c/d", Payload: []byte{1, 2, 3}, QoS: pushstore.QoS1},
		{Topic: "a/b/c/", Payload: []byte{1, 2, 3, 4}, QoS: pushstore.QoS0},
		{Topic: "a/", Payload: []byte{1}, QoS: pushstore.QoS2},
		{Topic: "$SYS/broker", Payload: []byte("up"), QoS: pushstore.QoS0},
	}
	for _, m := range msgs {
		a.Nil(s.Store(ctx, m.Topic, m.Payload, m.QoS))
	}
	for _, m := range msgs {
		rs, err := s.Search(ctx, m.Topic)
		a.Nil(err)
		if a.Len(rs, 1) {
			a.True(m.Equal(rs[0]))
		}
	}
	// "a/b" only exists as a prefix of other topics
	rs, err := s.Search(ctx, "a/b")
	a.Nil(err)
	a.Len(rs, 0)

	// misses are skipped, order follows the input
	rs, err = s.Search(ctx, "$SYS/broker", "x/y", "a/", "a/b/c/d")
	a.Nil(err)
	if a.Len(rs, 3) {
		a.True(msgs[3].Equal(rs[0]))
		a.True(msgs[2].Equal(rs[1]))
		a.True(msgs[0].Equal(rs[2]))
	}

	rs, err = s.Search(ctx)
	a.Nil(err)
	a.Len(rs, 0)
	a.Nil(s.ClearAll(ctx))
}

func testOverwrite(t *testing.T, s retained.Store) {
	a := assert.New(t)
	a.Nil(s.Store(ctx, "sensor/1", []byte("v1"), pushstore.QoS1))
	a.Nil(s.Store(ctx, "sensor/1", []byte("v2"), pushstore.QoS0))
	rs, err := s.Search(ctx, "sensor/1")
	a.Nil(err)
	if a.Len(rs, 1) {
		a.Equal("v2", string(rs[0].Payload))
		a.Equal(pushstore.QoS0, rs[0].QoS)
	}
	n, err := retained.Count(ctx, s)
	a.Nil(err)
	a.Equal(1, n)
	a.Nil(s.ClearAll(ctx))
}

func testClean(t *testing.T, s retained.Store) {
	a := assert.New(t)
	a.Nil(s.Store(ctx, "a/b", []byte("ab"), pushstore.QoS1))
	a.Nil(s.Store(ctx, "a/b/c", []byte("abc"), pushstore.QoS1))

	a.Nil(s.Clean(ctx, "a/b/c"))
	rs, err := s.Search(ctx, "a/b/c")
	a.Nil(err)
	a.Len(rs, 0)
	rs, err = s.Search(ctx, "a/b")
	a.Nil(err)
	a.Len(rs, 1)

	// idempotent
	a.Nil(s.Clean(ctx, "a/b/c"))
	a.Nil(s.Clean(ctx, "not/exist"))

	a.Nil(s.Clean(ctx, "a/b"))
	n, err := retained.Count(ctx, s)
	a.Nil(err)
	a.Equal(0, n)
}

func testCopyOnStore(t *testing.T, s retained.Store) {
	a := assert.New(t)
	payload := []byte("hello")
	a.Nil(s.Store(ctx, "copy", payload, pushstore.QoS1))
	payload[0] = 'j'
	rs, err := s.Search(ctx, "copy")
	a.Nil(err)
	if a.Len(rs, 1) {
		a.Equal("hello", string(rs[0].Payload))
		rs[0].Payload[0] = 'c'
	}
	rs, err = s.Search(ctx, "copy")
	a.Nil(err)
	if a.Len(rs, 1) {
		a.Equal("hello", string(rs[0].Payload))
	}
	a.Nil(s.Clean(ctx, "copy"))
}

func testIterate(t *testing.T, s retained.Store) {
	a := assert.New(t)
	want := make(map[string]string)
	for i := 0; i < 10; i++ {
		topic := fmt.Sprintf("iterate/%d", i)
		want[topic] = fmt.Sprintf("payload-%d", i)
		a.Nil(s.Store(ctx, topic, []byte(want[topic]), pushstore.QoS1))
	}
	got := make(map[string]string)
	a.Nil(s.Iterate(ctx, func(msg *pushstore.StoredMessage) bool {
		got[msg.Topic] = string(msg.Payload)
		return true
	}))
	a.Equal(want, got)

	var n int
	a.Nil(s.Iterate(ctx, func(msg *pushstore.StoredMessage) bool {
		n++
		return n < 3
	}))
	a.Equal(3, n)

	a.Nil(s.ClearAll(ctx))
	n, err := retained.Count(ctx, s)
	a.Nil(err)
	a.Equal(0, n)
}

func testConcurrent(t *testing.T, s retained.Store) {
	a := assert.New(t)
	const topics = 16
	const writers = 8
	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		for i := 0; i < topics; i++ {
			wg.Add(1)
			go func(w, i int) {
				defer wg.Done()
				topic := fmt.Sprintf("concurrent/%d", i)
				a.Nil(s.Store(ctx, topic, []byte(fmt.Sprintf("%d-%d", i, w)), pushstore.QoS1))
				rs, err := s.Search(ctx, topic)
				a.Nil(err)
				// a reader sees one whole message of some writer
				if a.Len(rs, 1) {
					var gi, gw int
					_, err = fmt.Sscanf(string(rs[0].Payload), "%d-%d", &gi, &gw)
					a.Nil(err)
					a.Equal(i, gi)
				}
			}(w, i)
		}
	}
	wg.Wait()
	n, err := retained.Count(ctx, s)
	a.Nil(err)
	a.Equal(topics, n)
	a.Nil(s.ClearAll(ctx))
}
