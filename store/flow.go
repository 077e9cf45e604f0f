package store

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/DrmagicE/pushstore"
	"github.com/DrmagicE/pushstore/persistence/unack"
	"github.com/DrmagicE/pushstore/pkg/packets"
)

// ErrPacketIDInUse is returned by SendPublish when the packet id is still owned by an
// outstanding exchange of the same client.
var ErrPacketIDInUse = errors.New("packet id is in use")

// The helpers below drive the outbound QoS1/QoS2 exchanges:
//
//	QoS1: SendPublish -> ReceivePuback
//	QoS2: SendPublish -> ReceivePubrec -> ReceivePubcomp
//
// and the inbound QoS2 exchange: ReceivePublishQoS2 -> ReceivePubrel.
// A retry scheduler polls RetryPublish and RetryPubrel, a nil result means there is nothing to resend.

// SendPublish records an outbound QoS1/QoS2 publish: the packet id is reserved and the event is
// cached for retransmission. A QoS0 event is not tracked.
func (s *Store) SendPublish(ctx context.Context, ev *pushstore.PublishEvent) error {
	if err := s.ready(); err != nil {
		return err
	}
	if ev.QoS == pushstore.QoS0 {
		return nil
	}
	if err := packets.ValidatePublish(ev.QoS, ev.PacketID); err != nil {
		return err
	}
	if err := packets.ValidateStrings(ev.ClientID, ev.Topic); err != nil {
		return err
	}
	existed, err := s.unack.Reserve(ctx, unack.Publish, ev.ClientID, ev.PacketID)
	if err != nil {
		return s.observe(opSendPublish, err, zap.Stringer("key", ev.Key()))
	}
	if existed {
		return s.observe(opSendPublish, ErrPacketIDInUse, zap.Stringer("key", ev.Key()))
	}
	if err = s.publish.Put(ctx, ev.Key(), ev); err != nil {
		// give the id back, the exchange never started.
		if rerr := s.unack.Release(ctx, unack.Publish, ev.ClientID, ev.PacketID); rerr != nil {
			s.log.Error("fail to release packet id", zap.Stringer("key", ev.Key()), zap.Error(rerr))
		}
		return s.observe(opSendPublish, err, zap.Stringer("key", ev.Key()))
	}
	return s.observe(opSendPublish, nil)
}

// ReceivePuback completes a QoS1 exchange and releases the packet id.
// The id is released only if the publish of key was in flight: a duplicate PUBACK, or a PUBACK
// for an exchange already in the release phase, is a no-op.
func (s *Store) ReceivePuback(ctx context.Context, key pushstore.Key) error {
	if err := s.ready(); err != nil {
		return err
	}
	removed, err := s.publish.Remove(ctx, key)
	if err != nil || !removed {
		return s.observe(opReceivePuback, err, zap.Stringer("key", key))
	}
	err = s.unack.Release(ctx, unack.Publish, key.ClientID, key.PacketID)
	return s.observe(opReceivePuback, err, zap.Stringer("key", key))
}

// ReceivePubrec moves a QoS2 exchange from the publish phase to the release phase.
// The packet id stays reserved. It returns false if no publish is in flight for key,
// e.g. for a duplicate PUBREC, in which case nothing changes. Of concurrent duplicates
// exactly one returns true.
func (s *Store) ReceivePubrec(ctx context.Context, key pushstore.Key) (bool, error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	ev, err := s.publish.Get(ctx, key)
	if err != nil {
		return false, s.observe(opReceivePubrec, err, zap.Stringer("key", key))
	}
	if ev == nil {
		return false, s.observe(opReceivePubrec, nil)
	}
	// the pubrel entry is written before the publish entry is removed,
	// an interruption in between leaves the exchange retryable.
	rel := &pushstore.PubrelEvent{
		ClientID: key.ClientID,
		PacketID: key.PacketID,
		Topic:    ev.Topic,
	}
	if err = s.pubrel.Put(ctx, key, rel); err != nil {
		return false, s.observe(opReceivePubrec, err, zap.Stringer("key", key))
	}
	removed, err := s.publish.Remove(ctx, key)
	if err != nil {
		return false, s.observe(opReceivePubrec, err, zap.Stringer("key", key))
	}
	return removed, s.observe(opReceivePubrec, nil)
}

// ReceivePubcomp completes a QoS2 exchange and releases the packet id.
// The id is released only if the pubrel of key was in flight: a late duplicate PUBCOMP is a
// no-op and never frees an id reused by a newer exchange.
func (s *Store) ReceivePubcomp(ctx context.Context, key pushstore.Key) error {
	if err := s.ready(); err != nil {
		return err
	}
	removed, err := s.pubrel.Remove(ctx, key)
	if err != nil || !removed {
		return s.observe(opReceivePubcomp, err, zap.Stringer("key", key))
	}
	err = s.unack.Release(ctx, unack.Publish, key.ClientID, key.PacketID)
	return s.observe(opReceivePubcomp, err, zap.Stringer("key", key))
}

// RetryPublish returns the cached publish of key with the Dup flag set, or nil if it was acknowledged.
// The cache is not modified.
func (s *Store) RetryPublish(ctx context.Context, key pushstore.Key) (*pushstore.PublishEvent, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	ev, err := s.publish.Get(ctx, key)
	if err != nil || ev == nil {
		return nil, s.observe(opRetryPublish, err, zap.Stringer("key", key))
	}
	return ev.Duplicate(), s.observe(opRetryPublish, nil)
}

// RetryPubrel returns the cached pubrel of key, or nil if it was completed.
func (s *Store) RetryPubrel(ctx context.Context, key pushstore.Key) (*pushstore.PubrelEvent, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	ev, err := s.pubrel.Get(ctx, key)
	return ev, s.observe(opRetryPubrel, err, zap.Stringer("key", key))
}

// ReceivePublishQoS2 records an inbound QoS2 publish awaiting PUBREL.
// duplicate reports that the packet id was already recorded: the message must not be delivered again.
func (s *Store) ReceivePublishQoS2(ctx context.Context, clientID string, pid packets.PacketID) (duplicate bool, err error) {
	if err := s.ready(); err != nil {
		return false, err
	}
	if err = packets.ValidatePublish(packets.Qos2, pid); err != nil {
		return false, err
	}
	duplicate, err = s.unack.Reserve(ctx, unack.Pubrec, clientID, pid)
	return duplicate, s.observe(opReceivePublishQoS2, err, zap.String("client_id", clientID))
}

// ReceivePubrel completes an inbound QoS2 exchange.
func (s *Store) ReceivePubrel(ctx context.Context, clientID string, pid packets.PacketID) error {
	if err := s.ready(); err != nil {
		return err
	}
	err := s.unack.Release(ctx, unack.Pubrec, clientID, pid)
	return s.observe(opReceivePubrel, err, zap.String("client_id", clientID))
}
