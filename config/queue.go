package config

import (
	"fmt"
)

const (
	QueuePolicyReject     = "reject"
	QueuePolicyDropOldest = "drop_oldest"
)

var (
	// DefaultQueueConfig is the default value of Queue
	DefaultQueueConfig = Queue{
		MaxQueuedMsg: 1000,
		Policy:       QueuePolicyReject,
	}
)

// Queue is the configuration of the session offline queue.
type Queue struct {
	// MaxQueuedMsg is the maximum number of events queued for one client.
	// Zero means unbounded.
	MaxQueuedMsg int `yaml:"max_queued_messages"`
	// Policy decides what happens to a new event when the queue is full:
	// "reject" refuses it, "drop_oldest" evicts the head of the queue.
	Policy string `yaml:"policy"`
}

func (q Queue) Validate() error {
	if q.MaxQueuedMsg < 0 {
		return fmt.Errorf("invalid max_queued_messages: %d", q.MaxQueuedMsg)
	}
	if q.Policy != QueuePolicyReject && q.Policy != QueuePolicyDropOldest {
		return fmt.Errorf("invalid queue policy: %s", q.Policy)
	}
	return nil
}
