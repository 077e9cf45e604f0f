package persistence

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/DrmagicE/pushstore"
	"github.com/DrmagicE/pushstore/config"
	"github.com/DrmagicE/pushstore/persistence/queue"
)

func TestLevelDB(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Persistence.Type = config.PersistenceTypeLevelDB
	cfg.Persistence.LevelDB.InMemory = true
	suite.Run(t, &BackendSuite{
		config: cfg,
	})
}

// TestLevelDB_Reopen checks that the on disk backend keeps its state across a restart.
func TestLevelDB_Reopen(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()
	cfg := config.DefaultConfig()
	cfg.Persistence.Type = config.PersistenceTypeLevelDB
	cfg.Persistence.LevelDB.Path = filepath.Join(t.TempDir(), "db")

	open := func() Persistence {
		p, err := New(cfg)
		require.Nil(t, err)
		require.Nil(t, p.Open(ctx))
		return p
	}

	p := open()
	qs, err := p.NewQueueStore(queue.Options{})
	require.Nil(t, err)
	ev := &pushstore.PublishEvent{ClientID: "c1", Topic: "t", Payload: []byte("p"), QoS: pushstore.QoS1, PacketID: 7}
	a.Nil(qs.Enqueue(ctx, ev))
	rs, err := p.NewRetainedStore()
	require.Nil(t, err)
	a.Nil(rs.Store(ctx, "t", []byte("retained"), pushstore.QoS1))
	pub, err := p.NewPublishStore()
	require.Nil(t, err)
	a.Nil(pub.Put(ctx, ev.Key(), ev))
	a.Nil(p.Close())

	p = open()
	defer p.Close()
	qs, err = p.NewQueueStore(queue.Options{})
	require.Nil(t, err)
	evs, err := qs.List(ctx, "c1")
	a.Nil(err)
	if a.Len(evs, 1) {
		a.True(ev.Equal(evs[0]))
	}
	rs, err = p.NewRetainedStore()
	require.Nil(t, err)
	msgs, err := rs.Search(ctx, "t")
	a.Nil(err)
	if a.Len(msgs, 1) {
		a.Equal("retained", string(msgs[0].Payload))
	}
	pub, err = p.NewPublishStore()
	require.Nil(t, err)
	got, err := pub.Get(ctx, ev.Key())
	a.Nil(err)
	a.True(ev.Equal(got))
}
