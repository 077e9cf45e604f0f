package persistence

import (
	"context"

	"github.com/DrmagicE/pushstore/config"
	"github.com/DrmagicE/pushstore/persistence/inflight"
	mem_inflight "github.com/DrmagicE/pushstore/persistence/inflight/mem"
	"github.com/DrmagicE/pushstore/persistence/queue"
	mem_queue "github.com/DrmagicE/pushstore/persistence/queue/mem"
	"github.com/DrmagicE/pushstore/persistence/retained"
	mem_retained "github.com/DrmagicE/pushstore/persistence/retained/mem"
	"github.com/DrmagicE/pushstore/persistence/unack"
	mem_unack "github.com/DrmagicE/pushstore/persistence/unack/mem"
)

func init() {
	RegisterFactory(config.PersistenceTypeMemory, NewMemory)
}

func NewMemory(config config.Config) (Persistence, error) {
	return &memory{}, nil
}

// memory keeps everything in process, nothing survives a restart.
type memory struct {
}

func (m *memory) Open(ctx context.Context) error {
	return nil
}

func (m *memory) NewQueueStore(opts queue.Options) (queue.Store, error) {
	return mem_queue.New(opts), nil
}

func (m *memory) NewUnackStore() (unack.Store, error) {
	return mem_unack.New(), nil
}

func (m *memory) NewPublishStore() (inflight.PublishStore, error) {
	return mem_inflight.NewPublishStore(), nil
}

func (m *memory) NewPubrelStore() (inflight.PubrelStore, error) {
	return mem_inflight.NewPubrelStore(), nil
}

func (m *memory) NewRetainedStore() (retained.Store, error) {
	return mem_retained.New(), nil
}

func (m *memory) Close() error {
	return nil
}
