package mem

import (
	"testing"

	"github.com/DrmagicE/pushstore/persistence/queue"
	queue_test "github.com/DrmagicE/pushstore/persistence/queue/test"
)

func TestQueue(t *testing.T) {
	queue_test.TestSuite(t, func(opts queue.Options) queue.Store {
		return New(opts)
	})
}
