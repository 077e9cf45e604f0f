package test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrmagicE/pushstore"
	"github.com/DrmagicE/pushstore/persistence/inflight"
	"github.com/DrmagicE/pushstore/pkg/packets"
)

var ctx = context.Background()

func newPublish(cid string, pid packets.PacketID) *pushstore.PublishEvent {
	return &pushstore.PublishEvent{
		ClientID: cid,
		Topic:    "a/b",
		Payload:  []byte(fmt.Sprintf("payload-%d", pid)),
		QoS:      packets.Qos2,
		PacketID: pid,
		Retain:   true,
	}
}

// TestSuite runs the cases of both stores and checks that they do not share keys.
func TestSuite(t *testing.T, pub inflight.PublishStore, rel inflight.PubrelStore) {
	t.Run("publish", func(t *testing.T) { TestPublishStore(t, pub) })
	t.Run("pubrel", func(t *testing.T) { TestPubrelStore(t, rel) })
	t.Run("namespace", func(t *testing.T) { testNamespace(t, pub, rel) })
}

func TestPublishStore(t *testing.T, s inflight.PublishStore) {
	a := assert.New(t)
	cid := "inflight_pub"
	require.Nil(t, s.RemoveAll(ctx, cid))

	ev := newPublish(cid, 5)
	key := ev.Key()
	got, err := s.Get(ctx, key)
	a.Nil(err)
	a.Nil(got)

	a.Nil(s.Put(ctx, key, ev))
	got, err = s.Get(ctx, key)
	a.Nil(err)
	a.True(ev.Equal(got))

	// Get does not mutate, mutating the returned value does not leak into the store
	got.Dup = true
	got.Payload[0] = 'X'
	got, err = s.Get(ctx, key)
	a.Nil(err)
	a.True(ev.Equal(got))

	// overwrite
	ev2 := ev.Duplicate()
	ev2.Payload = []byte("second")
	a.Nil(s.Put(ctx, key, ev2))
	got, err = s.Get(ctx, key)
	a.Nil(err)
	a.True(ev2.Equal(got))

	removed, err := s.Remove(ctx, key)
	a.Nil(err)
	a.True(removed)
	got, err = s.Get(ctx, key)
	a.Nil(err)
	a.Nil(got)
	// idempotent, an absent key reports nothing removed
	removed, err = s.Remove(ctx, key)
	a.Nil(err)
	a.False(removed)
	removed, err = s.Remove(ctx, pushstore.Key{ClientID: "inflight_pub_unknown", PacketID: 1})
	a.Nil(err)
	a.False(removed)

	// RemoveAll only touches the given client
	for i := packets.PacketID(1); i <= 3; i++ {
		a.Nil(s.Put(ctx, pushstore.Key{ClientID: cid, PacketID: i}, newPublish(cid, i)))
	}
	other := newPublish(cid+"_other", 1)
	a.Nil(s.Put(ctx, other.Key(), other))
	a.Nil(s.RemoveAll(ctx, cid))
	for i := packets.PacketID(1); i <= 3; i++ {
		got, err = s.Get(ctx, pushstore.Key{ClientID: cid, PacketID: i})
		a.Nil(err)
		a.Nil(got)
	}
	got, err = s.Get(ctx, other.Key())
	a.Nil(err)
	a.True(other.Equal(got))
	a.Nil(s.RemoveAll(ctx, other.ClientID))

	testPublishConcurrent(t, s)
}

func testPublishConcurrent(t *testing.T, s inflight.PublishStore) {
	a := assert.New(t)
	const clients = 8
	const ids = 16
	var wg sync.WaitGroup
	for c := 0; c < clients; c++ {
		for i := 1; i <= ids; i++ {
			wg.Add(1)
			go func(cid string, pid packets.PacketID) {
				defer wg.Done()
				ev := newPublish(cid, pid)
				a.Nil(s.Put(ctx, ev.Key(), ev))
			}(fmt.Sprintf("inflight_conc_%d", c), packets.PacketID(i))
		}
	}
	wg.Wait()
	for c := 0; c < clients; c++ {
		cid := fmt.Sprintf("inflight_conc_%d", c)
		for i := 1; i <= ids; i++ {
			ev := newPublish(cid, packets.PacketID(i))
			got, err := s.Get(ctx, ev.Key())
			a.Nil(err)
			a.True(ev.Equal(got))
		}
	}

	// get racing remove on the same key: every get sees either the whole event or nothing,
	// and exactly one remove reports the removal.
	key := pushstore.Key{ClientID: "inflight_conc_0", PacketID: 1}
	want := newPublish(key.ClientID, key.PacketID)
	var removedCnt int32
	for i := 0; i < 16; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			removed, err := s.Remove(ctx, key)
			a.Nil(err)
			if removed {
				atomic.AddInt32(&removedCnt, 1)
			}
		}()
		go func() {
			defer wg.Done()
			got, err := s.Get(ctx, key)
			a.Nil(err)
			if got != nil {
				a.True(want.Equal(got))
			}
		}()
	}
	wg.Wait()
	a.EqualValues(1, removedCnt)
	got, err := s.Get(ctx, key)
	a.Nil(err)
	a.Nil(got)
	for c := 0; c < clients; c++ {
		a.Nil(s.RemoveAll(ctx, fmt.Sprintf("inflight_conc_%d", c)))
	}
}

func TestPubrelStore(t *testing.T, s inflight.PubrelStore) {
	a := assert.New(t)
	cid := "inflight_rel"
	require.Nil(t, s.RemoveAll(ctx, cid))

	ev := &pushstore.PubrelEvent{ClientID: cid, PacketID: 5, Topic: "a/b"}
	key := ev.Key()
	got, err := s.Get(ctx, key)
	a.Nil(err)
	a.Nil(got)

	a.Nil(s.Put(ctx, key, ev))
	got, err = s.Get(ctx, key)
	a.Nil(err)
	a.Equal(ev, got)

	ev2 := &pushstore.PubrelEvent{ClientID: cid, PacketID: 5, Topic: "c/d"}
	a.Nil(s.Put(ctx, key, ev2))
	got, err = s.Get(ctx, key)
	a.Nil(err)
	a.Equal(ev2, got)

	removed, err := s.Remove(ctx, key)
	a.Nil(err)
	a.True(removed)
	removed, err = s.Remove(ctx, key)
	a.Nil(err)
	a.False(removed)
	got, err = s.Get(ctx, key)
	a.Nil(err)
	a.Nil(got)

	a.Nil(s.Put(ctx, key, ev))
	a.Nil(s.RemoveAll(ctx, cid))
	got, err = s.Get(ctx, key)
	a.Nil(err)
	a.Nil(got)
}

func testNamespace(t *testing.T, pub inflight.PublishStore, rel inflight.PubrelStore) {
	a := assert.New(t)
	cid := "inflight_ns"
	require.Nil(t, pub.RemoveAll(ctx, cid))
	require.Nil(t, rel.RemoveAll(ctx, cid))
	key := pushstore.Key{ClientID: cid, PacketID: 9}

	a.Nil(pub.Put(ctx, key, newPublish(cid, 9)))
	r, err := rel.Get(ctx, key)
	a.Nil(err)
	a.Nil(r)

	a.Nil(rel.Put(ctx, key, &pushstore.PubrelEvent{ClientID: cid, PacketID: 9}))
	removed, err := pub.Remove(ctx, key)
	a.Nil(err)
	a.True(removed)
	// the pubrel entry of the same key is untouched
	removed, err = pub.Remove(ctx, key)
	a.Nil(err)
	a.False(removed)
	r, err = rel.Get(ctx, key)
	a.Nil(err)
	a.NotNil(r)

	a.Nil(pub.Put(ctx, key, newPublish(cid, 9)))
	a.Nil(rel.RemoveAll(ctx, cid))
	p, err := pub.Get(ctx, key)
	a.Nil(err)
	a.NotNil(p)
	a.Nil(pub.RemoveAll(ctx, cid))
}
