package queue

import (
	"context"

	"github.com/DrmagicE/pushstore"
	"github.com/DrmagicE/pushstore/pkg/packets"
)

// Policy decides what Enqueue does when a client queue is full.
type Policy = string

const (
	// PolicyReject rejects the new event with ErrDropQueueFull.
	PolicyReject Policy = "reject"
	// PolicyDropOldest evicts the head of the queue to make room for the new event.
	PolicyDropOldest Policy = "drop_oldest"
)

// Options is used to build a queue store.
type Options struct {
	// MaxQueuedMsg is the maximum number of events in one client queue.
	// Zero means unbounded.
	MaxQueuedMsg int
	// Policy is the full queue policy, PolicyReject if empty.
	Policy Policy
	// Notifier is optional.
	Notifier Notifier
}

// Store represents the offline queue store of all clients.
// Each client has its own FIFO queue keyed by client id.
type Store interface {
	// Enqueue appends the event to the end of the queue of ev.ClientID, creating the queue if absent.
	// When the queue is full, the implementation must follow the configured Policy:
	// PolicyReject returns ErrDropQueueFull and leaves the queue unchanged,
	// PolicyDropOldest removes the head and notifies the Notifier before appending.
	Enqueue(ctx context.Context, ev *pushstore.PublishEvent) error
	// List returns the whole queue of the client in insertion order without mutating it.
	// An unknown client has an empty queue.
	List(ctx context.Context, clientID string) ([]*pushstore.PublishEvent, error)
	// Remove removes the first event with the given packet id from the client queue.
	// The event does not need to be at the head. Removing an absent event is a no-op.
	Remove(ctx context.Context, clientID string, pid packets.PacketID) error
	// Len returns the length of the client queue.
	Len(ctx context.Context, clientID string) (int, error)
	// Clean removes the client queue.
	Clean(ctx context.Context, clientID string) error
}

// Notifier receives the events which are dropped from a queue.
type Notifier interface {
	// NotifyDropped will be called when an event in the queue is dropped.
	// The err indicates the reason of why it is dropped.
	NotifyDropped(ev *pushstore.PublishEvent, err error)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ev *pushstore.PublishEvent, err error)

func (f NotifierFunc) NotifyDropped(ev *pushstore.PublishEvent, err error) {
	f(ev, err)
}

// Full reports whether a queue of length l is full under max.
func Full(l, max int) bool {
	return max > 0 && l >= max
}

// LockKey is the keylock key of the client queue, for backends that serialise in process.
func LockKey(clientID string) string {
	return "queue:" + clientID
}
