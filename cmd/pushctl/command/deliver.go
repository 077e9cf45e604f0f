package command

import (
	"context"

	"github.com/DrmagicE/pushstore"
	"github.com/DrmagicE/pushstore/store"
)

// deliver simulates the delivery of a queued message to an online client that acknowledges at once.
func deliver(ctx context.Context, s *store.Store, ev *pushstore.PublishEvent) error {
	if err := s.SendPublish(ctx, ev); err != nil {
		return err
	}
	if err := s.RemoveMessageInSessionForPublish(ctx, ev.ClientID, ev.PacketID); err != nil {
		return err
	}
	if ev.QoS == pushstore.QoS1 {
		return s.ReceivePuback(ctx, ev.Key())
	}
	if _, err := s.ReceivePubrec(ctx, ev.Key()); err != nil {
		return err
	}
	return s.ReceivePubcomp(ctx, ev.Key())
}
