// Package retained defines the retained message store: at most one message per topic,
// overwritten by every store and removed entirely by a clean.
package retained

import (
	"context"

	"github.com/DrmagicE/pushstore"
)

// IterateFn is called for every retained message. Return false to stop the iteration.
type IterateFn func(msg *pushstore.StoredMessage) bool

type Store interface {
	// Store copies payload and stores it as the retained message of topic, replacing any previous one.
	Store(ctx context.Context, topic string, payload []byte, qos pushstore.QoS) error
	// Clean removes the retained message of topic. Cleaning an absent topic is a no-op.
	Clean(ctx context.Context, topic string) error
	// Search returns the retained messages of the given topic names, in input order.
	// Topics without a retained message are skipped.
	Search(ctx context.Context, topics ...string) ([]*pushstore.StoredMessage, error)
	// Iterate calls fn for every retained message.
	Iterate(ctx context.Context, fn IterateFn) error
	// ClearAll removes all retained messages.
	ClearAll(ctx context.Context) error
}

// Count returns the number of retained messages in s.
func Count(ctx context.Context, s Store) (int, error) {
	n := 0
	err := s.Iterate(ctx, func(msg *pushstore.StoredMessage) bool {
		n++
		return true
	})
	return n, err
}
