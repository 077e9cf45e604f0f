package test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrmagicE/pushstore"
	"github.com/DrmagicE/pushstore/persistence/queue"
	"github.com/DrmagicE/pushstore/pkg/packets"
)

// NewFn builds a queue store with the given options.
// Stores built by the same NewFn may share the backend, so every case uses its own client ids.
type NewFn func(opts queue.Options) queue.Store

var ctx = context.Background()

func newEvent(cid string, pid packets.PacketID) *pushstore.PublishEvent {
	return &pushstore.PublishEvent{
		ClientID: cid,
		Topic:    "/topic/" + cid,
		Payload:  []byte(fmt.Sprintf("payload-%d", pid)),
		QoS:      packets.Qos1,
		PacketID: pid,
	}
}

func pids(evs []*pushstore.PublishEvent) []packets.PacketID {
	var rs []packets.PacketID
	for _, v := range evs {
		rs = append(rs, v.PacketID)
	}
	return rs
}

// TestSuite runs all queue cases against the store built by newFn.
func TestSuite(t *testing.T, newFn NewFn) {
	t.Run("fifo", func(t *testing.T) { testFIFO(t, newFn(queue.Options{})) })
	t.Run("remove", func(t *testing.T) { testRemove(t, newFn(queue.Options{})) })
	t.Run("copy", func(t *testing.T) { testCopy(t, newFn(queue.Options{})) })
	t.Run("isolation", func(t *testing.T) { testIsolation(t, newFn(queue.Options{})) })
	t.Run("reject", func(t *testing.T) {
		testReject(t, newFn(queue.Options{MaxQueuedMsg: 3, Policy: queue.PolicyReject}))
	})
	t.Run("drop_oldest", func(t *testing.T) {
		var mu sync.Mutex
		var dropped []*pushstore.PublishEvent
		var dropErr error
		n := queue.NotifierFunc(func(ev *pushstore.PublishEvent, err error) {
			mu.Lock()
			defer mu.Unlock()
			dropped = append(dropped, ev)
			dropErr = err
		})
		testDropOldest(t, newFn(queue.Options{MaxQueuedMsg: 3, Policy: queue.PolicyDropOldest, Notifier: n}))
		mu.Lock()
		defer mu.Unlock()
		if assert.Len(t, dropped, 2) {
			assert.EqualValues(t, 1, dropped[0].PacketID)
			assert.EqualValues(t, 2, dropped[1].PacketID)
		}
		assert.Equal(t, queue.ErrDropQueueFull, dropErr)
	})
	t.Run("concurrent", func(t *testing.T) { testConcurrent(t, newFn(queue.Options{})) })
}

func testFIFO(t *testing.T, s queue.Store) {
	a := assert.New(t)
	cid := "queue_fifo"
	require.Nil(t, s.Clean(ctx, cid))

	l, err := s.List(ctx, cid)
	a.Nil(err)
	a.Len(l, 0)

	e1, e2, e3 := newEvent(cid, 1), newEvent(cid, 2), newEvent(cid, 3)
	for _, e := range []*pushstore.PublishEvent{e1, e2, e3} {
		a.Nil(s.Enqueue(ctx, e))
	}
	l, err = s.List(ctx, cid)
	a.Nil(err)
	if a.Len(l, 3) {
		a.True(e1.Equal(l[0]))
		a.True(e2.Equal(l[1]))
		a.True(e3.Equal(l[2]))
	}
	// List must not mutate
	l, err = s.List(ctx, cid)
	a.Nil(err)
	a.Equal([]packets.PacketID{1, 2, 3}, pids(l))

	n, err := s.Len(ctx, cid)
	a.Nil(err)
	a.Equal(3, n)

	a.Nil(s.Clean(ctx, cid))
	n, err = s.Len(ctx, cid)
	a.Nil(err)
	a.Equal(0, n)
	a.Nil(s.Clean(ctx, cid))
}

func testRemove(t *testing.T, s queue.Store) {
	a := assert.New(t)
	cid := "queue_remove"
	require.Nil(t, s.Clean(ctx, cid))
	for i := packets.PacketID(1); i <= 5; i++ {
		a.Nil(s.Enqueue(ctx, newEvent(cid, i)))
	}
	a.Nil(s.Remove(ctx, cid, 2))
	l, err := s.List(ctx, cid)
	a.Nil(err)
	a.Equal([]packets.PacketID{1, 3, 4, 5}, pids(l))

	// idempotent
	a.Nil(s.Remove(ctx, cid, 2))
	a.Nil(s.Remove(ctx, cid, 100))
	a.Nil(s.Remove(ctx, "queue_remove_unknown", 1))
	l, err = s.List(ctx, cid)
	a.Nil(err)
	a.Equal([]packets.PacketID{1, 3, 4, 5}, pids(l))

	a.Nil(s.Remove(ctx, cid, 5))
	a.Nil(s.Remove(ctx, cid, 1))
	l, err = s.List(ctx, cid)
	a.Nil(err)
	a.Equal([]packets.PacketID{3, 4}, pids(l))

	// qos0 events share packet id 0, only the first one is removed.
	a.Nil(s.Enqueue(ctx, &pushstore.PublishEvent{ClientID: cid, Topic: "t", Payload: []byte("a")}))
	a.Nil(s.Enqueue(ctx, &pushstore.PublishEvent{ClientID: cid, Topic: "t", Payload: []byte("b")}))
	a.Nil(s.Remove(ctx, cid, 0))
	l, err = s.List(ctx, cid)
	a.Nil(err)
	if a.Len(l, 3) {
		a.Equal([]byte("b"), l[2].Payload)
	}
	a.Nil(s.Clean(ctx, cid))
}

func testCopy(t *testing.T, s queue.Store) {
	a := assert.New(t)
	cid := "queue_copy"
	require.Nil(t, s.Clean(ctx, cid))
	payload := []byte("hello")
	a.Nil(s.Enqueue(ctx, &pushstore.PublishEvent{ClientID: cid, Topic: "t", Payload: payload, QoS: 1, PacketID: 1}))
	payload[0] = 'X'
	l, err := s.List(ctx, cid)
	a.Nil(err)
	if a.Len(l, 1) {
		a.Equal([]byte("hello"), l[0].Payload)
		l[0].Payload[0] = 'Y'
	}
	l, err = s.List(ctx, cid)
	a.Nil(err)
	if a.Len(l, 1) {
		a.Equal([]byte("hello"), l[0].Payload)
	}
	a.Nil(s.Clean(ctx, cid))
}

func testIsolation(t *testing.T, s queue.Store) {
	a := assert.New(t)
	c1, c2 := "queue_iso_1", "queue_iso_2"
	require.Nil(t, s.Clean(ctx, c1))
	require.Nil(t, s.Clean(ctx, c2))
	a.Nil(s.Enqueue(ctx, newEvent(c1, 1)))
	a.Nil(s.Enqueue(ctx, newEvent(c2, 1)))
	a.Nil(s.Remove(ctx, c1, 1))
	l, err := s.List(ctx, c2)
	a.Nil(err)
	a.Equal([]packets.PacketID{1}, pids(l))
	l, err = s.List(ctx, c1)
	a.Nil(err)
	a.Len(l, 0)
	a.Nil(s.Clean(ctx, c2))
}

func testReject(t *testing.T, s queue.Store) {
	a := assert.New(t)
	cid := "queue_reject"
	require.Nil(t, s.Clean(ctx, cid))
	for i := packets.PacketID(1); i <= 3; i++ {
		a.Nil(s.Enqueue(ctx, newEvent(cid, i)))
	}
	a.Equal(queue.ErrDropQueueFull, s.Enqueue(ctx, newEvent(cid, 4)))
	l, err := s.List(ctx, cid)
	a.Nil(err)
	a.Equal([]packets.PacketID{1, 2, 3}, pids(l))

	// removing one makes room again
	a.Nil(s.Remove(ctx, cid, 2))
	a.Nil(s.Enqueue(ctx, newEvent(cid, 4)))
	l, err = s.List(ctx, cid)
	a.Nil(err)
	a.Equal([]packets.PacketID{1, 3, 4}, pids(l))
	a.Nil(s.Clean(ctx, cid))
}

func testDropOldest(t *testing.T, s queue.Store) {
	a := assert.New(t)
	cid := "queue_drop_oldest"
	require.Nil(t, s.Clean(ctx, cid))
	for i := packets.PacketID(1); i <= 5; i++ {
		a.Nil(s.Enqueue(ctx, newEvent(cid, i)))
	}
	l, err := s.List(ctx, cid)
	a.Nil(err)
	a.Equal([]packets.PacketID{3, 4, 5}, pids(l))
	a.Nil(s.Clean(ctx, cid))
}

func testConcurrent(t *testing.T, s queue.Store) {
	a := assert.New(t)
	const clients = 8
	const perClient = 20
	for c := 0; c < clients; c++ {
		require.Nil(t, s.Clean(ctx, fmt.Sprintf("queue_conc_%d", c)))
	}
	var wg sync.WaitGroup
	for c := 0; c < clients; c++ {
		for i := 1; i <= perClient; i++ {
			wg.Add(1)
			go func(cid string, pid packets.PacketID) {
				defer wg.Done()
				a.Nil(s.Enqueue(ctx, newEvent(cid, pid)))
			}(fmt.Sprintf("queue_conc_%d", c), packets.PacketID(i))
		}
	}
	wg.Wait()
	for c := 0; c < clients; c++ {
		cid := fmt.Sprintf("queue_conc_%d", c)
		n, err := s.Len(ctx, cid)
		a.Nil(err)
		a.Equal(perClient, n)
	}

	// racing removes on the same client leave exactly the even ids.
	cid := "queue_conc_0"
	for i := 1; i <= perClient; i += 2 {
		wg.Add(2)
		go func(pid packets.PacketID) {
			defer wg.Done()
			a.Nil(s.Remove(ctx, cid, pid))
		}(packets.PacketID(i))
		go func(pid packets.PacketID) {
			defer wg.Done()
			a.Nil(s.Remove(ctx, cid, pid))
		}(packets.PacketID(i))
	}
	wg.Wait()
	l, err := s.List(ctx, cid)
	a.Nil(err)
	a.Len(l, perClient/2)
	for _, v := range l {
		a.EqualValues(0, v.PacketID%2)
	}
	for c := 0; c < clients; c++ {
		a.Nil(s.Clean(ctx, fmt.Sprintf("queue_conc_%d", c)))
	}
}
