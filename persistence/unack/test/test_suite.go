package test

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DrmagicE/pushstore/persistence/unack"
	"github.com/DrmagicE/pushstore/pkg/packets"
)

var (
	ctx          = context.Background()
	cid          = "unack_cid"
	TestClientID = cid
)

func TestSuite(t *testing.T, store unack.Store) {
	a := assert.New(t)
	require.Nil(t, store.ClearAll(ctx, cid))
	for _, dir := range []unack.Direction{unack.Publish, unack.Pubrec} {
		for i := packets.PacketID(1); i < 10; i++ {
			rs, err := store.Reserve(ctx, dir, cid, i)
			a.Nil(err)
			a.False(rs)
			rs, err = store.Reserve(ctx, dir, cid, i)
			a.Nil(err)
			a.True(rs)
			rs, err = store.IsReserved(ctx, dir, cid, i)
			a.Nil(err)
			a.True(rs)
			a.Nil(store.Release(ctx, dir, cid, i))
			rs, err = store.IsReserved(ctx, dir, cid, i)
			a.Nil(err)
			a.False(rs)
			// idempotent
			a.Nil(store.Release(ctx, dir, cid, i))
			rs, err = store.Reserve(ctx, dir, cid, i)
			a.Nil(err)
			a.False(rs)
		}
	}
	testDirectionIndependent(t, store)
	testClearAll(t, store)
	testConcurrent(t, store)
}

func testDirectionIndependent(t *testing.T, store unack.Store) {
	a := assert.New(t)
	c := "unack_dir"
	require.Nil(t, store.ClearAll(ctx, c))
	rs, err := store.Reserve(ctx, unack.Publish, c, 7)
	a.Nil(err)
	a.False(rs)
	rs, err = store.IsReserved(ctx, unack.Pubrec, c, 7)
	a.Nil(err)
	a.False(rs)
	rs, err = store.Reserve(ctx, unack.Pubrec, c, 7)
	a.Nil(err)
	a.False(rs)
	a.Nil(store.Release(ctx, unack.Pubrec, c, 7))
	rs, err = store.IsReserved(ctx, unack.Publish, c, 7)
	a.Nil(err)
	a.True(rs)

	// other clients are not affected
	rs, err = store.IsReserved(ctx, unack.Publish, c+"_other", 7)
	a.Nil(err)
	a.False(rs)
	a.Nil(store.ClearAll(ctx, c))
}

func testClearAll(t *testing.T, store unack.Store) {
	a := assert.New(t)
	a.Nil(store.ClearAll(ctx, cid))
	for _, dir := range []unack.Direction{unack.Publish, unack.Pubrec} {
		for i := packets.PacketID(1); i < 10; i++ {
			rs, err := store.IsReserved(ctx, dir, cid, i)
			a.Nil(err)
			a.False(rs)
			rs, err = store.Reserve(ctx, dir, cid, i)
			a.Nil(err)
			a.False(rs)
		}
	}
	a.Nil(store.ClearAll(ctx, cid))
	a.Nil(store.ClearAll(ctx, cid))
}

func testConcurrent(t *testing.T, store unack.Store) {
	a := assert.New(t)
	const clients = 8
	const ids = 32
	for c := 0; c < clients; c++ {
		require.Nil(t, store.ClearAll(ctx, fmt.Sprintf("unack_conc_%d", c)))
	}
	var wg sync.WaitGroup
	for c := 0; c < clients; c++ {
		for i := 1; i <= ids; i++ {
			wg.Add(1)
			go func(cid string, id packets.PacketID) {
				defer wg.Done()
				_, err := store.Reserve(ctx, unack.Publish, cid, id)
				a.Nil(err)
			}(fmt.Sprintf("unack_conc_%d", c), packets.PacketID(i))
		}
	}
	wg.Wait()
	for c := 0; c < clients; c++ {
		for i := 1; i <= ids; i++ {
			rs, err := store.IsReserved(ctx, unack.Publish, fmt.Sprintf("unack_conc_%d", c), packets.PacketID(i))
			a.Nil(err)
			a.True(rs)
		}
	}

	// exactly one of the racing reservations of the same id wins.
	var winners int32
	c := "unack_conc_race"
	require.Nil(t, store.ClearAll(ctx, c))
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			existed, err := store.Reserve(ctx, unack.Publish, c, 42)
			a.Nil(err)
			if !existed {
				atomic.AddInt32(&winners, 1)
			}
		}()
	}
	wg.Wait()
	a.EqualValues(1, winners)
	for c := 0; c < clients; c++ {
		a.Nil(store.ClearAll(ctx, fmt.Sprintf("unack_conc_%d", c)))
	}
	a.Nil(store.ClearAll(ctx, c))
}
