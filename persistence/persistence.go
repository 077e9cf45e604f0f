// Package persistence wires the store backends. A backend registers a NewPersistence
// factory under its config name and builds every store of the same engine.
package persistence

import (
	"context"
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/DrmagicE/pushstore/config"
	"github.com/DrmagicE/pushstore/persistence/inflight"
	"github.com/DrmagicE/pushstore/persistence/queue"
	"github.com/DrmagicE/pushstore/persistence/retained"
	"github.com/DrmagicE/pushstore/persistence/unack"
)

type NewPersistence func(config config.Config) (Persistence, error)

// Persistence is a storage engine. Open must be called before any New*Store call.
type Persistence interface {
	Open(ctx context.Context) error
	NewQueueStore(opts queue.Options) (queue.Store, error)
	NewUnackStore() (unack.Store, error)
	NewPublishStore() (inflight.PublishStore, error)
	NewPubrelStore() (inflight.PubrelStore, error)
	NewRetainedStore() (retained.Store, error)
	Close() error
}

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]NewPersistence)
)

// RegisterFactory registers the factory of a backend. It is called from init functions.
func RegisterFactory(name string, factory NewPersistence) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = factory
}

// Factories returns the registered backend names.
func Factories() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the backend selected by config.Persistence.Type.
func New(config config.Config) (Persistence, error) {
	factoriesMu.RLock()
	factory, ok := factories[config.Persistence.Type]
	factoriesMu.RUnlock()
	if !ok {
		return nil, errors.Errorf("persistence factory: %s not found", config.Persistence.Type)
	}
	return factory(config)
}
