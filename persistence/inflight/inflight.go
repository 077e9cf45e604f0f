// Package inflight defines the stores of PUBLISH and PUBREL packets that were sent but
// not yet acknowledged. The retry scheduler reads them to retransmit; an absent entry
// means the packet has been acknowledged and no retry is needed.
//
// The publish and pubrel stores never share a key namespace: a QoS2 message passes
// through both of them with independent entries.
package inflight

import (
	"context"

	"github.com/DrmagicE/pushstore"
	"github.com/DrmagicE/pushstore/persistence/encoding"
)

// PublishStore caches in-flight PUBLISH events.
type PublishStore interface {
	// Put stores the event under key, overwriting any previous one.
	Put(ctx context.Context, key pushstore.Key, ev *pushstore.PublishEvent) error
	// Get returns the event of key, or nil if absent. Get never mutates the store.
	Get(ctx context.Context, key pushstore.Key) (*pushstore.PublishEvent, error)
	// Remove removes the event of key. removed reports whether an event was present,
	// removing an absent key is a no-op.
	Remove(ctx context.Context, key pushstore.Key) (removed bool, err error)
	// RemoveAll removes all events of the client.
	RemoveAll(ctx context.Context, clientID string) error
}

// PubrelStore caches in-flight PUBREL events.
type PubrelStore interface {
	// Put stores the event under key, overwriting any previous one.
	Put(ctx context.Context, key pushstore.Key, ev *pushstore.PubrelEvent) error
	// Get returns the event of key, or nil if absent. Get never mutates the store.
	Get(ctx context.Context, key pushstore.Key) (*pushstore.PubrelEvent, error)
	// Remove removes the event of key. removed reports whether an event was present,
	// removing an absent key is a no-op.
	Remove(ctx context.Context, key pushstore.Key) (removed bool, err error)
	// RemoveAll removes all events of the client.
	RemoveAll(ctx context.Context, clientID string) error
}

// Namespace separates the publish and pubrel entries in a shared backend.
type Namespace = string

const (
	PublishNamespace Namespace = "inflight:publish:"
	PubrelNamespace  Namespace = "inflight:pubrel:"
)

// Codec tells a generic backend how to copy and serialise the cached value.
type Codec[V any] struct {
	Namespace Namespace
	Copy      func(V) V
	Encode    func(V) ([]byte, error)
	Decode    func([]byte) (V, error)
}

var PublishCodec = Codec[*pushstore.PublishEvent]{
	Namespace: PublishNamespace,
	Copy:      (*pushstore.PublishEvent).Copy,
	Encode:    encoding.EncodePublish,
	Decode:    encoding.DecodePublish,
}

var PubrelCodec = Codec[*pushstore.PubrelEvent]{
	Namespace: PubrelNamespace,
	Copy:      (*pushstore.PubrelEvent).Copy,
	Encode:    encoding.EncodePubrel,
	Decode:    encoding.DecodePubrel,
}
