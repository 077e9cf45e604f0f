package store

import (
	"context"
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/DrmagicE/pushstore"
	"github.com/DrmagicE/pushstore/persistence/inflight"
	"github.com/DrmagicE/pushstore/persistence/queue"
	"github.com/DrmagicE/pushstore/persistence/retained"
	"github.com/DrmagicE/pushstore/persistence/unack"
)

// mockPersistence hands out the given stores.
type mockPersistence struct {
	openErr  error
	closed   bool
	queue    queue.Store
	unack    unack.Store
	publish  inflight.PublishStore
	pubrel   inflight.PubrelStore
	retained retained.Store
}

func (m *mockPersistence) Open(ctx context.Context) error { return m.openErr }
func (m *mockPersistence) NewQueueStore(opts queue.Options) (queue.Store, error) {
	return m.queue, nil
}
func (m *mockPersistence) NewUnackStore() (unack.Store, error)             { return m.unack, nil }
func (m *mockPersistence) NewPublishStore() (inflight.PublishStore, error) { return m.publish, nil }
func (m *mockPersistence) NewPubrelStore() (inflight.PubrelStore, error)   { return m.pubrel, nil }
func (m *mockPersistence) NewRetainedStore() (retained.Store, error)       { return m.retained, nil }
func (m *mockPersistence) Close() error {
	m.closed = true
	return nil
}

type mocks struct {
	queue    *queue.MockStore
	unack    *unack.MockStore
	publish  *inflight.MockPublishStore
	pubrel   *inflight.MockPubrelStore
	retained *retained.MockStore
}

func newMockStore(t *testing.T, opts ...Options) (*Store, *mocks) {
	ctrl := gomock.NewController(t)
	m := &mocks{
		queue:    queue.NewMockStore(ctrl),
		unack:    unack.NewMockStore(ctrl),
		publish:  inflight.NewMockPublishStore(ctrl),
		pubrel:   inflight.NewMockPubrelStore(ctrl),
		retained: retained.NewMockStore(ctrl),
	}
	p := &mockPersistence{
		queue:    m.queue,
		unack:    m.unack,
		publish:  m.publish,
		pubrel:   m.pubrel,
		retained: m.retained,
	}
	s := New(append([]Options{WithPersistence(p)}, opts...)...)
	require.Nil(t, s.Open(context.Background()))
	return s, m
}

var errBackend = pushstore.WrapStorage("test", errors.New("connection refused"))

func TestOpen_Error(t *testing.T) {
	a := assert.New(t)
	p := &mockPersistence{openErr: errors.New("dial tcp: connection refused")}
	s := New(WithPersistence(p))
	err := s.Open(context.Background())
	a.NotNil(err)
	a.Contains(err.Error(), "open persistence")
	// Close on a store that never opened is a no-op.
	a.Nil(s.Close())
	a.False(p.closed)
}

func TestStorageErrorPropagation(t *testing.T) {
	a := assert.New(t)
	ctx := context.Background()
	s, m := newMockStore(t)
	key := pushstore.Key{ClientID: "cid", PacketID: 1}
	ev := &pushstore.PublishEvent{ClientID: "cid", PacketID: 1, QoS: pushstore.QoS1}

	m.queue.EXPECT().Enqueue(gomock.Any(), ev).Return(errBackend)
	m.queue.EXPECT().List(gomock.Any(), "cid").Return(nil, errBackend)
	m.queue.EXPECT().Remove(gomock.Any(), "cid", uint16(1)).Return(errBackend)
	m.unack.EXPECT().Reserve(gomock.Any(), unack.Publish, "cid", uint16(1)).Return(false, errBackend)
	m.unack.EXPECT().Release(gomock.Any(), unack.Pubrec, "cid", uint16(1)).Return(errBackend)
	m.publish.EXPECT().Put(gomock.Any(), key, ev).Return(errBackend)
	m.publish.EXPECT().Get(gomock.Any(), key).Return(nil, errBackend)
	m.pubrel.EXPECT().Remove(gomock.Any(), key).Return(false, errBackend)
	m.retained.EXPECT().Store(gomock.Any(), "a/b", []byte("p"), pushstore.QoS1).Return(errBackend)
	m.retained.EXPECT().Search(gomock.Any(), "a/b", "c").Return(nil, errBackend)

	errs := []error{
		s.StoreMessageToSessionForPublish(ctx, ev),
		func() error { _, err := s.ListMessagesInSession(ctx, "cid"); return err }(),
		s.RemoveMessageInSessionForPublish(ctx, "cid", 1),
		func() error { _, err := s.StorePublishPacketID(ctx, "cid", 1); return err }(),
		s.RemovePubrecPacketID(ctx, "cid", 1),
		s.StoreQoSPublishMessage(ctx, key, ev),
		func() error { _, err := s.SearchQoSPublishMessage(ctx, key); return err }(),
		s.RemovePubrelMessage(ctx, key),
		s.StoreRetained(ctx, "a/b", []byte("p"), pushstore.QoS1),
		func() error { _, err := s.SearchRetained(ctx, "a/b", "c"); return err }(),
	}
	for i, err := range errs {
		a.True(errors.Is(err, pushstore.ErrStorageUnavailable), "case %d: %v", i, err)
		a.False(errors.Is(err, queue.ErrDropQueueFull), "case %d", i)
	}
}

func TestQueueFull_IsNotStorageError(t *testing.T) {
	a := assert.New(t)
	s, m := newMockStore(t)
	ev := &pushstore.PublishEvent{ClientID: "cid", PacketID: 1, QoS: pushstore.QoS1}
	m.queue.EXPECT().Enqueue(gomock.Any(), ev).Return(queue.ErrDropQueueFull)
	err := s.StoreMessageToSessionForPublish(context.Background(), ev)
	a.Equal(queue.ErrDropQueueFull, err)
	a.False(errors.Is(err, pushstore.ErrStorageUnavailable))
	a.EqualValues(1, s.Stats().QueueRejected)
}

func TestSendPublish_PutFailedReleasesID(t *testing.T) {
	a := assert.New(t)
	s, m := newMockStore(t)
	ev := &pushstore.PublishEvent{ClientID: "cid", PacketID: 3, QoS: pushstore.QoS2}
	gomock.InOrder(
		m.unack.EXPECT().Reserve(gomock.Any(), unack.Publish, "cid", uint16(3)).Return(false, nil),
		m.publish.EXPECT().Put(gomock.Any(), ev.Key(), ev).Return(errBackend),
		m.unack.EXPECT().Release(gomock.Any(), unack.Publish, "cid", uint16(3)).Return(nil),
	)
	err := s.SendPublish(context.Background(), ev)
	a.True(errors.Is(err, pushstore.ErrStorageUnavailable))
}

func TestSendPublish_InUseLeavesCache(t *testing.T) {
	s, m := newMockStore(t)
	ev := &pushstore.PublishEvent{ClientID: "cid", PacketID: 3, QoS: pushstore.QoS1}
	m.unack.EXPECT().Reserve(gomock.Any(), unack.Publish, "cid", uint16(3)).Return(true, nil)
	// no Put expected
	assert.Equal(t, ErrPacketIDInUse, s.SendPublish(context.Background(), ev))
}

func TestReceivePubrec_Order(t *testing.T) {
	a := assert.New(t)
	s, m := newMockStore(t)
	ev := &pushstore.PublishEvent{ClientID: "cid", PacketID: 3, QoS: pushstore.QoS2, Topic: "t"}
	key := ev.Key()
	gomock.InOrder(
		m.publish.EXPECT().Get(gomock.Any(), key).Return(ev, nil),
		m.pubrel.EXPECT().Put(gomock.Any(), key, &pushstore.PubrelEvent{ClientID: "cid", PacketID: 3, Topic: "t"}).Return(nil),
		m.publish.EXPECT().Remove(gomock.Any(), key).Return(true, nil),
	)
	ok, err := s.ReceivePubrec(context.Background(), key)
	a.Nil(err)
	a.True(ok)
}

func TestReceivePubrec_LostRace(t *testing.T) {
	a := assert.New(t)
	s, m := newMockStore(t)
	ev := &pushstore.PublishEvent{ClientID: "cid", PacketID: 3, QoS: pushstore.QoS2, Topic: "t"}
	key := ev.Key()
	m.publish.EXPECT().Get(gomock.Any(), key).Return(ev, nil)
	m.pubrel.EXPECT().Put(gomock.Any(), key, gomock.Any()).Return(nil)
	// a concurrent duplicate removed the publish first.
	m.publish.EXPECT().Remove(gomock.Any(), key).Return(false, nil)
	ok, err := s.ReceivePubrec(context.Background(), key)
	a.Nil(err)
	a.False(ok)
}

func TestReceiveAck_NotInFlightKeepsID(t *testing.T) {
	a := assert.New(t)
	s, m := newMockStore(t)
	key := pushstore.Key{ClientID: "cid", PacketID: 9}
	m.publish.EXPECT().Remove(gomock.Any(), key).Return(false, nil)
	m.pubrel.EXPECT().Remove(gomock.Any(), key).Return(false, nil)
	// no Release expected
	a.Nil(s.ReceivePuback(context.Background(), key))
	a.Nil(s.ReceivePubcomp(context.Background(), key))
}

func TestReceiveAck_RemoveFailedKeepsID(t *testing.T) {
	a := assert.New(t)
	s, m := newMockStore(t)
	key := pushstore.Key{ClientID: "cid", PacketID: 9}
	m.publish.EXPECT().Remove(gomock.Any(), key).Return(false, errBackend)
	m.pubrel.EXPECT().Remove(gomock.Any(), key).Return(false, errBackend)
	a.True(errors.Is(s.ReceivePuback(context.Background(), key), pushstore.ErrStorageUnavailable))
	a.True(errors.Is(s.ReceivePubcomp(context.Background(), key), pushstore.ErrStorageUnavailable))
}

func TestNotOpened(t *testing.T) {
	ctx := context.Background()
	key := pushstore.Key{ClientID: "cid", PacketID: 1}
	ev := &pushstore.PublishEvent{ClientID: "cid", PacketID: 1, QoS: pushstore.QoS1, Topic: "t"}
	calls := func(s *Store) []error {
		var errs []error
		add := func(err error) { errs = append(errs, err) }
		add(s.StoreMessageToSessionForPublish(ctx, ev))
		_, err := s.ListMessagesInSession(ctx, "cid")
		add(err)
		add(s.RemoveMessageInSessionForPublish(ctx, "cid", 1))
		_, err = s.StorePublishPacketID(ctx, "cid", 1)
		add(err)
		add(s.RemovePublishPacketID(ctx, "cid", 1))
		_, err = s.StorePubrecPacketID(ctx, "cid", 1)
		add(err)
		add(s.RemovePubrecPacketID(ctx, "cid", 1))
		add(s.StoreQoSPublishMessage(ctx, key, ev))
		add(s.RemoveQoSPublishMessage(ctx, key))
		_, err = s.SearchQoSPublishMessage(ctx, key)
		add(err)
		add(s.StorePubrelMessage(ctx, key, &pushstore.PubrelEvent{ClientID: "cid", PacketID: 1}))
		add(s.RemovePubrelMessage(ctx, key))
		_, err = s.SearchPubrelMessage(ctx, key)
		add(err)
		add(s.StoreRetained(ctx, "t", []byte("p"), pushstore.QoS0))
		add(s.CleanRetained(ctx, "t"))
		_, err = s.SearchRetained(ctx, "t")
		add(err)
		add(s.IterateRetained(ctx, func(*pushstore.StoredMessage) bool { return true }))
		_, err = s.QueueLen(ctx, "cid")
		add(err)
		add(s.DestroySession(ctx, "cid"))
		add(s.SendPublish(ctx, ev))
		add(s.ReceivePuback(ctx, key))
		_, err = s.ReceivePubrec(ctx, key)
		add(err)
		add(s.ReceivePubcomp(ctx, key))
		_, err = s.RetryPublish(ctx, key)
		add(err)
		_, err = s.RetryPubrel(ctx, key)
		add(err)
		_, err = s.ReceivePublishQoS2(ctx, "cid", 1)
		add(err)
		add(s.ReceivePubrel(ctx, "cid", 1))
		return errs
	}

	t.Run("before open", func(t *testing.T) {
		a := assert.New(t)
		ctrl := gomock.NewController(t)
		// the mocks fail the test on any call.
		s := New(WithPersistence(&mockPersistence{
			queue:    queue.NewMockStore(ctrl),
			unack:    unack.NewMockStore(ctrl),
			publish:  inflight.NewMockPublishStore(ctrl),
			pubrel:   inflight.NewMockPubrelStore(ctrl),
			retained: retained.NewMockStore(ctrl),
		}))
		for i, err := range calls(s) {
			a.Equal(ErrNotOpened, err, "case %d", i)
		}
	})
	t.Run("after close", func(t *testing.T) {
		a := assert.New(t)
		s, _ := newMockStore(t)
		a.Nil(s.Close())
		for i, err := range calls(s) {
			a.Equal(ErrNotOpened, err, "case %d", i)
		}
	})
}

func TestReceivePubrec_PubrelPutFailed(t *testing.T) {
	a := assert.New(t)
	s, m := newMockStore(t)
	ev := &pushstore.PublishEvent{ClientID: "cid", PacketID: 3, QoS: pushstore.QoS2}
	key := ev.Key()
	m.publish.EXPECT().Get(gomock.Any(), key).Return(ev, nil)
	m.pubrel.EXPECT().Put(gomock.Any(), key, gomock.Any()).Return(errBackend)
	// the publish entry stays, it can still be retried.
	ok, err := s.ReceivePubrec(context.Background(), key)
	a.False(ok)
	a.True(errors.Is(err, pushstore.ErrStorageUnavailable))
}

func TestDestroySession_CombinesErrors(t *testing.T) {
	a := assert.New(t)
	s, m := newMockStore(t)
	m.queue.EXPECT().Clean(gomock.Any(), "cid").Return(errBackend)
	m.unack.EXPECT().ClearAll(gomock.Any(), "cid").Return(nil)
	m.publish.EXPECT().RemoveAll(gomock.Any(), "cid").Return(nil)
	m.pubrel.EXPECT().RemoveAll(gomock.Any(), "cid").Return(errors.New("other"))
	err := s.DestroySession(context.Background(), "cid")
	a.NotNil(err)
	a.True(errors.Is(err, pushstore.ErrStorageUnavailable))
	a.Contains(err.Error(), "other")
	a.Equal(OperationStats{Total: 1, Errors: 1}, s.Stats().Operations["destroy_session"])
}

func TestCollector(t *testing.T) {
	a := assert.New(t)
	reg := prometheus.NewRegistry()
	s, m := newMockStore(t, WithRegisterer(reg))
	m.retained.EXPECT().Iterate(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, fn retained.IterateFn) error {
		fn(&pushstore.StoredMessage{Topic: "a"})
		fn(&pushstore.StoredMessage{Topic: "b"})
		return nil
	}).AnyTimes()
	m.pubrel.EXPECT().Remove(gomock.Any(), gomock.Any()).Return(true, nil)
	m.unack.EXPECT().Release(gomock.Any(), unack.Publish, "cid", uint16(1)).Return(nil)
	a.Nil(s.ReceivePubcomp(context.Background(), pushstore.Key{ClientID: "cid", PacketID: 1}))

	mfs, err := reg.Gather()
	a.Nil(err)
	values := make(map[string]float64)
	for _, mf := range mfs {
		for _, metric := range mf.GetMetric() {
			name := mf.GetName()
			for _, l := range metric.GetLabel() {
				name += "/" + l.GetValue()
			}
			if c := metric.GetCounter(); c != nil {
				values[name] = c.GetValue()
			}
			if g := metric.GetGauge(); g != nil {
				values[name] = g.GetValue()
			}
		}
	}
	a.Equal(float64(1), values["pushstore_operations_total/receive_pubcomp"])
	a.Equal(float64(0), values["pushstore_operation_errors_total/receive_pubcomp"])
	a.Equal(float64(2), values["pushstore_retained_messages"])

	a.Nil(s.Close())
	// unregistered on close
	mfs, err = reg.Gather()
	a.Nil(err)
	a.Len(mfs, 0)
}
