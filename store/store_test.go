package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/DrmagicE/pushstore"
	"github.com/DrmagicE/pushstore/config"
	"github.com/DrmagicE/pushstore/persistence/queue"
	"github.com/DrmagicE/pushstore/pkg/packets"
)

type StoreSuite struct {
	suite.Suite
	config config.Config
	store  *Store
	ctx    context.Context
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = New(WithConfig(s.config))
	s.Require().Nil(s.store.Open(s.ctx))
}

func (s *StoreSuite) TearDownTest() {
	s.Nil(s.store.Close())
}

func newClientID() string {
	return uuid.NewString()
}

func newPublish(cid string, pid packets.PacketID, qos pushstore.QoS) *pushstore.PublishEvent {
	return &pushstore.PublishEvent{
		ClientID: cid,
		Topic:    "topic/" + cid,
		Payload:  []byte(fmt.Sprintf("payload-%d", pid)),
		QoS:      qos,
		PacketID: pid,
	}
}

func (s *StoreSuite) TestOpenTwice() {
	s.Equal(ErrAlreadyOpened, s.store.Open(s.ctx))
}

func (s *StoreSuite) TestSessionQueue() {
	cid := newClientID()
	e1, e2, e3 := newPublish(cid, 1, pushstore.QoS1), newPublish(cid, 2, pushstore.QoS1), newPublish(cid, 3, pushstore.QoS2)
	for _, e := range []*pushstore.PublishEvent{e1, e2, e3} {
		s.Nil(s.store.StoreMessageToSessionForPublish(s.ctx, e))
	}
	evs, err := s.store.ListMessagesInSession(s.ctx, cid)
	s.Nil(err)
	s.Require().Len(evs, 3)
	s.True(e1.Equal(evs[0]))
	s.True(e2.Equal(evs[1]))
	s.True(e3.Equal(evs[2]))

	s.Nil(s.store.RemoveMessageInSessionForPublish(s.ctx, cid, 2))
	s.Nil(s.store.RemoveMessageInSessionForPublish(s.ctx, cid, 2))
	evs, err = s.store.ListMessagesInSession(s.ctx, cid)
	s.Nil(err)
	s.Require().Len(evs, 2)
	s.True(e1.Equal(evs[0]))
	s.True(e3.Equal(evs[1]))

	n, err := s.store.QueueLen(s.ctx, cid)
	s.Nil(err)
	s.Equal(2, n)
}

func (s *StoreSuite) TestPacketID() {
	cid := newClientID()
	existed, err := s.store.StorePublishPacketID(s.ctx, cid, 10)
	s.Nil(err)
	s.False(existed)
	existed, err = s.store.StorePublishPacketID(s.ctx, cid, 10)
	s.Nil(err)
	s.True(existed)

	// the other direction is independent
	existed, err = s.store.StorePubrecPacketID(s.ctx, cid, 10)
	s.Nil(err)
	s.False(existed)

	s.Nil(s.store.RemovePublishPacketID(s.ctx, cid, 10))
	s.Nil(s.store.RemovePublishPacketID(s.ctx, cid, 10))
	existed, err = s.store.StorePublishPacketID(s.ctx, cid, 10)
	s.Nil(err)
	s.False(existed)

	s.Nil(s.store.RemovePubrecPacketID(s.ctx, cid, 10))
	s.Nil(s.store.RemovePubrecPacketID(s.ctx, cid, 10))
}

func (s *StoreSuite) TestInflight() {
	cid := newClientID()
	ev := newPublish(cid, 3, pushstore.QoS1)
	key := ev.Key()
	s.Nil(s.store.StoreQoSPublishMessage(s.ctx, key, ev))
	got, err := s.store.SearchQoSPublishMessage(s.ctx, key)
	s.Nil(err)
	s.True(ev.Equal(got))
	s.Nil(s.store.RemoveQoSPublishMessage(s.ctx, key))
	s.Nil(s.store.RemoveQoSPublishMessage(s.ctx, key))
	got, err = s.store.SearchQoSPublishMessage(s.ctx, key)
	s.Nil(err)
	s.Nil(got)

	rel := &pushstore.PubrelEvent{ClientID: cid, PacketID: 3, Topic: ev.Topic}
	s.Nil(s.store.StorePubrelMessage(s.ctx, key, rel))
	gotRel, err := s.store.SearchPubrelMessage(s.ctx, key)
	s.Nil(err)
	s.Equal(rel, gotRel)
	s.Nil(s.store.RemovePubrelMessage(s.ctx, key))
	s.Nil(s.store.RemovePubrelMessage(s.ctx, key))
	gotRel, err = s.store.SearchPubrelMessage(s.ctx, key)
	s.Nil(err)
	s.Nil(gotRel)
}

func (s *StoreSuite) TestRetained() {
	topic := "retained/" + newClientID()
	s.Nil(s.store.StoreRetained(s.ctx, topic, []byte("payload1"), pushstore.QoS1))
	s.Nil(s.store.StoreRetained(s.ctx, topic, []byte("payload2"), pushstore.QoS2))
	msgs, err := s.store.SearchRetained(s.ctx, topic)
	s.Nil(err)
	s.Require().Len(msgs, 1)
	s.Equal("payload2", string(msgs[0].Payload))
	s.Equal(pushstore.QoS2, msgs[0].QoS)

	s.Nil(s.store.CleanRetained(s.ctx, topic))
	s.Nil(s.store.CleanRetained(s.ctx, topic))
	msgs, err = s.store.SearchRetained(s.ctx, topic)
	s.Nil(err)
	s.Len(msgs, 0)

	// an empty payload cleans
	s.Nil(s.store.StoreRetained(s.ctx, topic, []byte("payload3"), pushstore.QoS0))
	s.Nil(s.store.StoreRetained(s.ctx, topic, nil, pushstore.QoS0))
	msgs, err = s.store.SearchRetained(s.ctx, topic)
	s.Nil(err)
	s.Len(msgs, 0)

	s.Equal(packets.ErrInvalQos, s.store.StoreRetained(s.ctx, topic, []byte("x"), 3))
}

func (s *StoreSuite) TestDestroySession() {
	cid := newClientID()
	other := newClientID()
	for _, c := range []string{cid, other} {
		s.Nil(s.store.StoreMessageToSessionForPublish(s.ctx, newPublish(c, 1, pushstore.QoS1)))
		s.Nil(s.store.SendPublish(s.ctx, newPublish(c, 2, pushstore.QoS2)))
		ok, err := s.store.ReceivePubrec(s.ctx, pushstore.Key{ClientID: c, PacketID: 2})
		s.Nil(err)
		s.True(ok)
		s.Nil(s.store.SendPublish(s.ctx, newPublish(c, 3, pushstore.QoS1)))
		_, err = s.store.ReceivePublishQoS2(s.ctx, c, 4)
		s.Nil(err)
	}
	s.Nil(s.store.DestroySession(s.ctx, cid))
	s.Nil(s.store.DestroySession(s.ctx, cid))

	evs, err := s.store.ListMessagesInSession(s.ctx, cid)
	s.Nil(err)
	s.Len(evs, 0)
	rel, err := s.store.RetryPubrel(s.ctx, pushstore.Key{ClientID: cid, PacketID: 2})
	s.Nil(err)
	s.Nil(rel)
	pub, err := s.store.RetryPublish(s.ctx, pushstore.Key{ClientID: cid, PacketID: 3})
	s.Nil(err)
	s.Nil(pub)
	existed, err := s.store.StorePublishPacketID(s.ctx, cid, 3)
	s.Nil(err)
	s.False(existed)
	existed, err = s.store.StorePubrecPacketID(s.ctx, cid, 4)
	s.Nil(err)
	s.False(existed)

	// the other session is untouched
	evs, err = s.store.ListMessagesInSession(s.ctx, other)
	s.Nil(err)
	s.Len(evs, 1)
	rel, err = s.store.RetryPubrel(s.ctx, pushstore.Key{ClientID: other, PacketID: 2})
	s.Nil(err)
	s.NotNil(rel)
}

func (s *StoreSuite) TestConcurrentDistinctKeys() {
	const clients = 10
	const ids = 20
	cids := make([]string, clients)
	for i := range cids {
		cids[i] = newClientID()
	}
	var wg sync.WaitGroup
	for _, cid := range cids {
		for i := 1; i <= ids; i++ {
			wg.Add(1)
			go func(cid string, pid packets.PacketID) {
				defer wg.Done()
				s.Nil(s.store.SendPublish(s.ctx, newPublish(cid, pid, pushstore.QoS1)))
				if pid%2 == 0 {
					s.Nil(s.store.ReceivePuback(s.ctx, pushstore.Key{ClientID: cid, PacketID: pid}))
				}
			}(cid, packets.PacketID(i))
		}
	}
	wg.Wait()
	for _, cid := range cids {
		for i := 1; i <= ids; i++ {
			key := pushstore.Key{ClientID: cid, PacketID: packets.PacketID(i)}
			ev, err := s.store.RetryPublish(s.ctx, key)
			s.Nil(err)
			if i%2 == 0 {
				s.Nil(ev)
			} else {
				s.NotNil(ev)
			}
		}
	}
}

func (s *StoreSuite) TestLatePubcompAfterReuse() {
	cid := newClientID()
	key := pushstore.Key{ClientID: cid, PacketID: 5}
	s.Nil(s.store.SendPublish(s.ctx, newPublish(cid, 5, pushstore.QoS2)))
	ok, err := s.store.ReceivePubrec(s.ctx, key)
	s.Nil(err)
	s.True(ok)
	s.Nil(s.store.ReceivePubcomp(s.ctx, key))

	// the id is reused by a new exchange, then a retransmitted PUBCOMP of the old one arrives.
	ev := newPublish(cid, 5, pushstore.QoS1)
	s.Nil(s.store.SendPublish(s.ctx, ev))
	s.Nil(s.store.ReceivePubcomp(s.ctx, key))

	s.Equal(ErrPacketIDInUse, s.store.SendPublish(s.ctx, newPublish(cid, 5, pushstore.QoS2)))
	got, err := s.store.RetryPublish(s.ctx, key)
	s.Nil(err)
	s.Require().NotNil(got)
	s.Equal(ev.Payload, got.Payload)
	s.Equal(pushstore.QoS1, got.QoS)

	s.Nil(s.store.ReceivePuback(s.ctx, key))
	s.Nil(s.store.SendPublish(s.ctx, newPublish(cid, 5, pushstore.QoS2)))
}

func (s *StoreSuite) TestStrayPubackInReleasePhase() {
	cid := newClientID()
	key := pushstore.Key{ClientID: cid, PacketID: 6}
	s.Nil(s.store.SendPublish(s.ctx, newPublish(cid, 6, pushstore.QoS2)))
	ok, err := s.store.ReceivePubrec(s.ctx, key)
	s.Nil(err)
	s.True(ok)

	s.Nil(s.store.ReceivePuback(s.ctx, key))
	s.Equal(ErrPacketIDInUse, s.store.SendPublish(s.ctx, newPublish(cid, 6, pushstore.QoS1)))
	rel, err := s.store.RetryPubrel(s.ctx, key)
	s.Nil(err)
	s.NotNil(rel)

	s.Nil(s.store.ReceivePubcomp(s.ctx, key))
	s.Nil(s.store.SendPublish(s.ctx, newPublish(cid, 6, pushstore.QoS1)))
}

func (s *StoreSuite) TestStringTooLong() {
	cid := newClientID()
	long := strings.Repeat("a", packets.MaxStringLen+1)
	ok := strings.Repeat("b", packets.MaxStringLen)

	s.Equal(packets.ErrStringTooLong, s.store.StoreRetained(s.ctx, long, []byte("p"), pushstore.QoS1))
	ev := newPublish(cid, 1, pushstore.QoS1)
	ev.Topic = long
	s.Equal(packets.ErrStringTooLong, s.store.SendPublish(s.ctx, ev))
	s.Equal(packets.ErrStringTooLong, s.store.StoreMessageToSessionForPublish(s.ctx, ev))
	s.Equal(packets.ErrStringTooLong, s.store.StoreQoSPublishMessage(s.ctx, ev.Key(), ev))
	rel := &pushstore.PubrelEvent{ClientID: long, PacketID: 1}
	s.Equal(packets.ErrStringTooLong, s.store.StorePubrelMessage(s.ctx, pushstore.Key{ClientID: long, PacketID: 1}, rel))

	// nothing was reserved or stored
	existed, err := s.store.StorePublishPacketID(s.ctx, cid, 1)
	s.Nil(err)
	s.False(existed)
	s.Nil(s.store.IterateRetained(s.ctx, func(m *pushstore.StoredMessage) bool {
		s.NotEqual(long, m.Topic)
		return true
	}))

	// the longest allowed topic is stored and found
	s.Nil(s.store.StoreRetained(s.ctx, ok, []byte("p"), pushstore.QoS1))
	msgs, err := s.store.SearchRetained(s.ctx, ok)
	s.Nil(err)
	s.Require().Len(msgs, 1)
	s.Equal(ok, msgs[0].Topic)
	s.Nil(s.store.CleanRetained(s.ctx, ok))
}

func (s *StoreSuite) TestStats() {
	cid := newClientID()
	s.Nil(s.store.SendPublish(s.ctx, newPublish(cid, 1, pushstore.QoS1)))
	s.Equal(ErrPacketIDInUse, s.store.SendPublish(s.ctx, newPublish(cid, 1, pushstore.QoS1)))
	s.Nil(s.store.ReceivePuback(s.ctx, pushstore.Key{ClientID: cid, PacketID: 1}))

	st := s.store.Stats()
	s.Equal(OperationStats{Total: 2, Errors: 1}, st.Operations["send_publish"])
	s.Equal(OperationStats{Total: 1}, st.Operations["receive_puback"])
}

func TestMemoryStore(t *testing.T) {
	suite.Run(t, &StoreSuite{config: config.DefaultConfig()})
}

func TestLevelDBStore(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Persistence.Type = config.PersistenceTypeLevelDB
	cfg.Persistence.LevelDB.InMemory = true
	suite.Run(t, &StoreSuite{config: cfg})
}

func TestQueuePolicy(t *testing.T) {
	for _, policy := range []string{config.QueuePolicyReject, config.QueuePolicyDropOldest} {
		t.Run(policy, func(t *testing.T) {
			a := assert.New(t)
			ctx := context.Background()
			cfg := config.DefaultConfig()
			cfg.Queue.MaxQueuedMsg = 2
			cfg.Queue.Policy = policy
			var dropped []packets.PacketID
			s := New(WithConfig(cfg), WithNotifier(queue.NotifierFunc(func(ev *pushstore.PublishEvent, err error) {
				a.Equal(queue.ErrDropQueueFull, err)
				dropped = append(dropped, ev.PacketID)
			})))
			require.Nil(t, s.Open(ctx))
			defer s.Close()

			cid := newClientID()
			for i := packets.PacketID(1); i <= 2; i++ {
				require.Nil(t, s.StoreMessageToSessionForPublish(ctx, newPublish(cid, i, pushstore.QoS1)))
			}
			err := s.StoreMessageToSessionForPublish(ctx, newPublish(cid, 3, pushstore.QoS1))
			evs, lerr := s.ListMessagesInSession(ctx, cid)
			require.Nil(t, lerr)
			var pids []packets.PacketID
			for _, ev := range evs {
				pids = append(pids, ev.PacketID)
			}
			st := s.Stats()

			if policy == config.QueuePolicyReject {
				a.Equal(queue.ErrDropQueueFull, err)
				a.Equal([]packets.PacketID{1, 2}, pids)
				a.EqualValues(1, st.QueueRejected)
				a.Len(dropped, 0)
				return
			}
			a.Nil(err)
			a.Equal([]packets.PacketID{2, 3}, pids)
			a.EqualValues(1, st.QueueDropped)
			a.Equal([]packets.PacketID{1}, dropped)
		})
	}
}
