package persistence

import (
	"context"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"

	"github.com/DrmagicE/pushstore/config"
	"github.com/DrmagicE/pushstore/persistence/inflight"
	leveldb_inflight "github.com/DrmagicE/pushstore/persistence/inflight/leveldb"
	"github.com/DrmagicE/pushstore/persistence/queue"
	leveldb_queue "github.com/DrmagicE/pushstore/persistence/queue/leveldb"
	"github.com/DrmagicE/pushstore/persistence/retained"
	leveldb_retained "github.com/DrmagicE/pushstore/persistence/retained/leveldb"
	"github.com/DrmagicE/pushstore/persistence/unack"
	leveldb_unack "github.com/DrmagicE/pushstore/persistence/unack/leveldb"
	"github.com/DrmagicE/pushstore/pkg/keylock"
)

func init() {
	RegisterFactory(config.PersistenceTypeLevelDB, NewLevelDB)
}

func NewLevelDB(config config.Config) (Persistence, error) {
	return &levelDB{
		config: config,
		locks:  keylock.New(0),
	}, nil
}

// levelDB stores everything in one local leveldb database, stores are separated by key namespace.
type levelDB struct {
	config config.Config
	db     *leveldb.DB
	locks  *keylock.Locks
}

func (l *levelDB) Open(ctx context.Context) error {
	cfg := l.config.Persistence.LevelDB
	var (
		db  *leveldb.DB
		err error
	)
	if cfg.InMemory {
		db, err = leveldb.Open(storage.NewMemStorage(), nil)
	} else {
		db, err = leveldb.OpenFile(cfg.Path, nil)
	}
	if err != nil {
		return errors.Wrap(err, "leveldb: open")
	}
	l.db = db
	return nil
}

func (l *levelDB) NewQueueStore(opts queue.Options) (queue.Store, error) {
	return leveldb_queue.New(leveldb_queue.Options{
		Options: opts,
		DB:      l.db,
		Locks:   l.locks,
	}), nil
}

func (l *levelDB) NewUnackStore() (unack.Store, error) {
	return leveldb_unack.New(leveldb_unack.Options{
		DB:    l.db,
		Locks: l.locks,
	}), nil
}

func (l *levelDB) NewPublishStore() (inflight.PublishStore, error) {
	return leveldb_inflight.NewPublishStore(leveldb_inflight.Options{
		DB:    l.db,
		Locks: l.locks,
	}), nil
}

func (l *levelDB) NewPubrelStore() (inflight.PubrelStore, error) {
	return leveldb_inflight.NewPubrelStore(leveldb_inflight.Options{
		DB:    l.db,
		Locks: l.locks,
	}), nil
}

func (l *levelDB) NewRetainedStore() (retained.Store, error) {
	return leveldb_retained.New(leveldb_retained.Options{DB: l.db}), nil
}

func (l *levelDB) Close() error {
	if l.db == nil {
		return nil
	}
	return l.db.Close()
}
