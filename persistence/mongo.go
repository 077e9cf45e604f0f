package persistence

import (
	"context"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/event"
	mongodrv "go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/DrmagicE/pushstore/config"
	"github.com/DrmagicE/pushstore/logger"
	"github.com/DrmagicE/pushstore/persistence/inflight"
	mongo_inflight "github.com/DrmagicE/pushstore/persistence/inflight/mongo"
	"github.com/DrmagicE/pushstore/persistence/queue"
	mongo_queue "github.com/DrmagicE/pushstore/persistence/queue/mongo"
	"github.com/DrmagicE/pushstore/persistence/retained"
	mongo_retained "github.com/DrmagicE/pushstore/persistence/retained/mongo"
	"github.com/DrmagicE/pushstore/persistence/unack"
	mongo_unack "github.com/DrmagicE/pushstore/persistence/unack/mongo"
	"github.com/DrmagicE/pushstore/pkg/keylock"
)

func init() {
	RegisterFactory(config.PersistenceTypeMongo, NewMongo)
}

func NewMongo(config config.Config) (Persistence, error) {
	return &mongo{
		config: config,
		locks:  keylock.New(0),
	}, nil
}

type mongo struct {
	config config.Config
	client *mongodrv.Client
	db     *mongodrv.Database
	// locks is shared by every store built from this backend.
	locks *keylock.Locks
}

func (m *mongo) collectionIndexes() map[string][]mongodrv.IndexModel {
	return map[string][]mongodrv.IndexModel{
		mongo_queue.CollectionName:           mongo_queue.Indexes(),
		mongo_unack.CollectionName:           mongo_unack.Indexes(),
		mongo_inflight.PublishCollectionName: mongo_inflight.Indexes(),
		mongo_inflight.PubrelCollectionName:  mongo_inflight.Indexes(),
	}
}

func (m *mongo) Open(ctx context.Context) error {
	cfg := m.config.Persistence.Mongo
	log := logger.WithField(zap.String("persistence", "mongo"))
	clientOptions := options.Client().ApplyURI(cfg.URI).SetAppName("pushstore")
	if cfg.ConnectTimeout > 0 {
		clientOptions.SetConnectTimeout(cfg.ConnectTimeout)
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}
	clientOptions.SetPoolMonitor(&event.PoolMonitor{
		Event: func(evt *event.PoolEvent) {
			switch evt.Type {
			case event.ConnectionCreated:
				log.Debug("mongo connection created", zap.String("address", evt.Address))
			case event.ConnectionClosed:
				log.Debug("mongo connection closed", zap.String("address", evt.Address), zap.String("reason", evt.Reason))
			}
		},
	})
	client, err := mongodrv.Connect(ctx, clientOptions)
	if err != nil {
		return errors.Wrap(err, "mongo: connect")
	}
	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return errors.Wrap(err, "mongo: ping")
	}
	m.client = client
	m.db = client.Database(cfg.Database)
	for name, indexes := range m.collectionIndexes() {
		if _, err = m.db.Collection(name).Indexes().CreateMany(ctx, indexes); err != nil {
			return errors.Wrapf(err, "mongo: create indexes of %s", name)
		}
	}
	return nil
}

func (m *mongo) NewQueueStore(opts queue.Options) (queue.Store, error) {
	return mongo_queue.New(mongo_queue.Options{
		Options:  opts,
		Database: m.db,
		Locks:    m.locks,
	}), nil
}

func (m *mongo) NewUnackStore() (unack.Store, error) {
	return mongo_unack.New(mongo_unack.Options{Database: m.db}), nil
}

func (m *mongo) NewPublishStore() (inflight.PublishStore, error) {
	return mongo_inflight.NewPublishStore(mongo_inflight.Options{Database: m.db}), nil
}

func (m *mongo) NewPubrelStore() (inflight.PubrelStore, error) {
	return mongo_inflight.NewPubrelStore(mongo_inflight.Options{Database: m.db}), nil
}

func (m *mongo) NewRetainedStore() (retained.Store, error) {
	return mongo_retained.New(mongo_retained.Options{Database: m.db}), nil
}

func (m *mongo) Close() error {
	if m.client == nil {
		return nil
	}
	ctx := context.Background()
	if t := m.config.Persistence.Mongo.ConnectTimeout; t > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}
	return m.client.Disconnect(ctx)
}
