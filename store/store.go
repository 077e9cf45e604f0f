// Package store is the facade the protocol layer talks to. It owns one instance of
// each of the five stores, built from the configured backend.
package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	pkgerrors "github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DrmagicE/pushstore"
	"github.com/DrmagicE/pushstore/config"
	"github.com/DrmagicE/pushstore/logger"
	"github.com/DrmagicE/pushstore/persistence"
	"github.com/DrmagicE/pushstore/persistence/inflight"
	"github.com/DrmagicE/pushstore/persistence/queue"
	"github.com/DrmagicE/pushstore/persistence/retained"
	"github.com/DrmagicE/pushstore/persistence/unack"
	"github.com/DrmagicE/pushstore/pkg/packets"
)

var (
	// ErrNotOpened is returned by the store operations before Open and after Close.
	ErrNotOpened     = errors.New("store is not opened")
	ErrAlreadyOpened = errors.New("store is already opened")
)

// Store status
const (
	statusInit = iota
	statusOpened
	statusClosed
)

type Store struct {
	mu sync.Mutex
	// status is written under mu and read atomically by the operations.
	status int32

	config      config.Config
	logger      *zap.Logger
	log         *zap.Logger
	persistence persistence.Persistence
	notifier    queue.Notifier
	registerer  prometheus.Registerer
	collector   prometheus.Collector
	stats       *statsManager

	queue    queue.Store
	unack    unack.Store
	publish  inflight.PublishStore
	pubrel   inflight.PubrelStore
	retained retained.Store
}

// New returns a store which is not opened yet.
func New(opts ...Options) *Store {
	s := &Store{
		config: config.DefaultConfig(),
		stats:  newStatsManager(),
	}
	for _, fn := range opts {
		fn(s)
	}
	return s
}

// Open prepares the backing storage and builds the stores.
// A failure is fatal to the caller and is returned as is, nothing is retried.
func (s *Store) Open(ctx context.Context) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if atomic.LoadInt32(&s.status) != statusInit {
		return ErrAlreadyOpened
	}
	if s.logger != nil {
		logger.SetLogger(s.logger)
	}
	s.log = logger.WithField(zap.String("component", "store"))
	if s.persistence == nil {
		s.persistence, err = persistence.New(s.config)
		if err != nil {
			return err
		}
	}
	if err = s.persistence.Open(ctx); err != nil {
		return pkgerrors.Wrap(err, "open persistence")
	}
	defer func() {
		if err != nil {
			_ = s.persistence.Close()
		}
	}()
	s.queue, err = s.persistence.NewQueueStore(queue.Options{
		MaxQueuedMsg: s.config.Queue.MaxQueuedMsg,
		Policy:       s.config.Queue.Policy,
		Notifier:     &dropNotifier{store: s},
	})
	if err != nil {
		return pkgerrors.Wrap(err, "new queue store")
	}
	if s.unack, err = s.persistence.NewUnackStore(); err != nil {
		return pkgerrors.Wrap(err, "new unack store")
	}
	if s.publish, err = s.persistence.NewPublishStore(); err != nil {
		return pkgerrors.Wrap(err, "new publish store")
	}
	if s.pubrel, err = s.persistence.NewPubrelStore(); err != nil {
		return pkgerrors.Wrap(err, "new pubrel store")
	}
	if s.retained, err = s.persistence.NewRetainedStore(); err != nil {
		return pkgerrors.Wrap(err, "new retained store")
	}
	if s.registerer != nil {
		s.collector = newCollector(s)
		if err = s.registerer.Register(s.collector); err != nil {
			return pkgerrors.Wrap(err, "register metrics")
		}
	}
	atomic.StoreInt32(&s.status, statusOpened)
	s.log.Info("store opened", zap.String("persistence", s.config.Persistence.Type))
	return nil
}

// Close releases the backing storage.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if atomic.LoadInt32(&s.status) != statusOpened {
		return nil
	}
	atomic.StoreInt32(&s.status, statusClosed)
	if s.collector != nil {
		s.registerer.Unregister(s.collector)
	}
	s.log.Info("store closed")
	return s.persistence.Close()
}

// Stats returns a snapshot of the operation counters.
func (s *Store) Stats() Stats {
	return s.stats.snapshot()
}

func (s *Store) ready() error {
	if atomic.LoadInt32(&s.status) != statusOpened {
		return ErrNotOpened
	}
	return nil
}

// observe records the result of an operation and logs storage failures.
func (s *Store) observe(op string, err error, fields ...zap.Field) error {
	s.stats.observe(op, err)
	if err != nil && errors.Is(err, pushstore.ErrStorageUnavailable) {
		s.log.Error("storage failure", append(fields, zap.String("op", op), zap.Error(err))...)
	}
	return err
}

// ListMessagesInSession returns the offline queue of the client in insertion order.
func (s *Store) ListMessagesInSession(ctx context.Context, clientID string) ([]*pushstore.PublishEvent, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	evs, err := s.queue.List(ctx, clientID)
	return evs, s.observe(opListMessagesInSession, err, zap.String("client_id", clientID))
}

// StoreMessageToSessionForPublish appends the event to the offline queue of ev.ClientID.
// A full queue under the reject policy returns queue.ErrDropQueueFull.
func (s *Store) StoreMessageToSessionForPublish(ctx context.Context, ev *pushstore.PublishEvent) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := packets.ValidateStrings(ev.ClientID, ev.Topic); err != nil {
		return err
	}
	err := s.queue.Enqueue(ctx, ev)
	if errors.Is(err, queue.ErrDropQueueFull) {
		s.stats.queueRejected()
	}
	return s.observe(opStoreMessageToSessionForPublish, err, zap.String("client_id", ev.ClientID))
}

// RemoveMessageInSessionForPublish removes the queued event with the packet id. Idempotent.
func (s *Store) RemoveMessageInSessionForPublish(ctx context.Context, clientID string, pid packets.PacketID) error {
	if err := s.ready(); err != nil {
		return err
	}
	err := s.queue.Remove(ctx, clientID, pid)
	return s.observe(opRemoveMessageInSessionForPublish, err, zap.String("client_id", clientID))
}

// StorePublishPacketID reserves a publish direction packet id.
// existed reports that the id was still outstanding.
func (s *Store) StorePublishPacketID(ctx context.Context, clientID string, pid packets.PacketID) (existed bool, err error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	existed, err = s.unack.Reserve(ctx, unack.Publish, clientID, pid)
	return existed, s.observe(opStorePublishPacketID, err, zap.String("client_id", clientID))
}

// RemovePublishPacketID releases a publish direction packet id. Idempotent.
func (s *Store) RemovePublishPacketID(ctx context.Context, clientID string, pid packets.PacketID) error {
	if err := s.ready(); err != nil {
		return err
	}
	err := s.unack.Release(ctx, unack.Publish, clientID, pid)
	return s.observe(opRemovePublishPacketID, err, zap.String("client_id", clientID))
}

// StorePubrecPacketID reserves a PUBREC direction packet id.
// existed reports that the id was still outstanding.
func (s *Store) StorePubrecPacketID(ctx context.Context, clientID string, pid packets.PacketID) (existed bool, err error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	existed, err = s.unack.Reserve(ctx, unack.Pubrec, clientID, pid)
	return existed, s.observe(opStorePubrecPacketID, err, zap.String("client_id", clientID))
}

// RemovePubrecPacketID releases a PUBREC direction packet id. Idempotent.
func (s *Store) RemovePubrecPacketID(ctx context.Context, clientID string, pid packets.PacketID) error {
	if err := s.ready(); err != nil {
		return err
	}
	err := s.unack.Release(ctx, unack.Pubrec, clientID, pid)
	return s.observe(opRemovePubrecPacketID, err, zap.String("client_id", clientID))
}

// StoreQoSPublishMessage caches the in-flight publish of key, overwriting any previous one.
func (s *Store) StoreQoSPublishMessage(ctx context.Context, key pushstore.Key, ev *pushstore.PublishEvent) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := packets.ValidateStrings(key.ClientID, ev.ClientID, ev.Topic); err != nil {
		return err
	}
	err := s.publish.Put(ctx, key, ev)
	return s.observe(opStoreQosPublishMessage, err, zap.Stringer("key", key))
}

// RemoveQoSPublishMessage removes the in-flight publish of key. Idempotent.
func (s *Store) RemoveQoSPublishMessage(ctx context.Context, key pushstore.Key) error {
	if err := s.ready(); err != nil {
		return err
	}
	_, err := s.publish.Remove(ctx, key)
	return s.observe(opRemoveQosPublishMessage, err, zap.Stringer("key", key))
}

// SearchQoSPublishMessage returns the in-flight publish of key, nil if it was acknowledged.
func (s *Store) SearchQoSPublishMessage(ctx context.Context, key pushstore.Key) (*pushstore.PublishEvent, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	ev, err := s.publish.Get(ctx, key)
	return ev, s.observe(opSearchQosPublishMessage, err, zap.Stringer("key", key))
}

// StorePubrelMessage caches the in-flight pubrel of key, overwriting any previous one.
func (s *Store) StorePubrelMessage(ctx context.Context, key pushstore.Key, ev *pushstore.PubrelEvent) error {
	if err := s.ready(); err != nil {
		return err
	}
	if err := packets.ValidateStrings(key.ClientID, ev.ClientID, ev.Topic); err != nil {
		return err
	}
	err := s.pubrel.Put(ctx, key, ev)
	return s.observe(opStorePubrelMessage, err, zap.Stringer("key", key))
}

// RemovePubrelMessage removes the in-flight pubrel of key. Idempotent.
func (s *Store) RemovePubrelMessage(ctx context.Context, key pushstore.Key) error {
	if err := s.ready(); err != nil {
		return err
	}
	_, err := s.pubrel.Remove(ctx, key)
	return s.observe(opRemovePubrelMessage, err, zap.Stringer("key", key))
}

// SearchPubrelMessage returns the in-flight pubrel of key, nil if it was completed.
func (s *Store) SearchPubrelMessage(ctx context.Context, key pushstore.Key) (*pushstore.PubrelEvent, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	ev, err := s.pubrel.Get(ctx, key)
	return ev, s.observe(opSearchPubrelMessage, err, zap.Stringer("key", key))
}

// StoreRetained stores a copy of payload as the retained message of topic.
// An empty payload removes the retained message instead.
// A topic longer than packets.MaxStringLen bytes returns packets.ErrStringTooLong.
func (s *Store) StoreRetained(ctx context.Context, topic string, payload []byte, qos pushstore.QoS) error {
	if err := s.ready(); err != nil {
		return err
	}
	if len(payload) == 0 {
		return s.CleanRetained(ctx, topic)
	}
	if !pushstore.ValidQoS(qos) {
		return packets.ErrInvalQos
	}
	if err := packets.ValidateStrings(topic); err != nil {
		return err
	}
	err := s.retained.Store(ctx, topic, payload, qos)
	return s.observe(opStoreRetained, err, zap.String("topic", topic))
}

// CleanRetained removes the retained message of topic. Idempotent.
func (s *Store) CleanRetained(ctx context.Context, topic string) error {
	if err := s.ready(); err != nil {
		return err
	}
	err := s.retained.Clean(ctx, topic)
	return s.observe(opCleanRetained, err, zap.String("topic", topic))
}

// SearchRetained returns the retained messages of the exact topic names, skipping misses.
func (s *Store) SearchRetained(ctx context.Context, topics ...string) ([]*pushstore.StoredMessage, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	msgs, err := s.retained.Search(ctx, topics...)
	return msgs, s.observe(opSearchRetained, err)
}

// IterateRetained calls fn for every retained message.
func (s *Store) IterateRetained(ctx context.Context, fn retained.IterateFn) error {
	if err := s.ready(); err != nil {
		return err
	}
	return s.observe(opIterateRetained, s.retained.Iterate(ctx, fn))
}

// QueueLen returns the length of the offline queue of the client.
func (s *Store) QueueLen(ctx context.Context, clientID string) (int, error) {
	if err := s.ready(); err != nil {
		return 0, err
	}
	n, err := s.queue.Len(ctx, clientID)
	return n, s.observe(opQueueLen, err, zap.String("client_id", clientID))
}

// DestroySession drops every piece of state of the client: its offline queue, both packet id sets
// and its in-flight publish and pubrel entries. It does not touch retained messages.
// All parts are attempted, the returned error combines the failures.
func (s *Store) DestroySession(ctx context.Context, clientID string) error {
	if err := s.ready(); err != nil {
		return err
	}
	err := multierr.Combine(
		s.queue.Clean(ctx, clientID),
		s.unack.ClearAll(ctx, clientID),
		s.publish.RemoveAll(ctx, clientID),
		s.pubrel.RemoveAll(ctx, clientID),
	)
	if err == nil {
		s.log.Debug("session destroyed", zap.String("client_id", clientID))
	}
	return s.observe(opDestroySession, err, zap.String("client_id", clientID))
}

// dropNotifier counts and logs the events dropped by the drop_oldest policy before
// passing them to the configured notifier.
type dropNotifier struct {
	store *Store
}

func (d *dropNotifier) NotifyDropped(ev *pushstore.PublishEvent, err error) {
	d.store.stats.queueDropped()
	d.store.log.Warn("message dropped",
		zap.String("client_id", ev.ClientID),
		zap.Uint16("packet_id", ev.PacketID),
		zap.Error(err),
	)
	if d.store.notifier != nil {
		d.store.notifier.NotifyDropped(ev, err)
	}
}
