package leveldb

import (
	"context"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/DrmagicE/pushstore"
	"github.com/DrmagicE/pushstore/persistence/encoding"
	"github.com/DrmagicE/pushstore/persistence/unack"
	"github.com/DrmagicE/pushstore/pkg/keylock"
	"github.com/DrmagicE/pushstore/pkg/packets"
)

const unackPrefix = "unack:"

var _ unack.Store = (*Store)(nil)

type Options struct {
	DB    *leveldb.DB
	Locks *keylock.Locks
}

// Store is the leveldb packet id tracker.
// Key: unack:<direction>: | client id | 2 bytes packet id, empty value.
type Store struct {
	db    *leveldb.DB
	locks *keylock.Locks
}

func New(opts Options) *Store {
	locks := opts.Locks
	if locks == nil {
		locks = keylock.New(0)
	}
	return &Store{
		db:    opts.DB,
		locks: locks,
	}
}

func namespace(dir unack.Direction) string {
	return unackPrefix + dir.String() + ":"
}

func lockKey(clientID string) string {
	return unackPrefix + clientID
}

func (s *Store) Reserve(ctx context.Context, dir unack.Direction, clientID string, id packets.PacketID) (bool, error) {
	unlock := s.locks.Lock(lockKey(clientID))
	defer unlock()
	key := encoding.PacketIDKey(namespace(dir), clientID, id)
	ok, err := s.db.Has(key, nil)
	if err != nil {
		return false, pushstore.WrapStorage("unack.reserve", err)
	}
	if ok {
		return true, nil
	}
	return false, pushstore.WrapStorage("unack.reserve", s.db.Put(key, nil, nil))
}

func (s *Store) Release(ctx context.Context, dir unack.Direction, clientID string, id packets.PacketID) error {
	unlock := s.locks.Lock(lockKey(clientID))
	defer unlock()
	return pushstore.WrapStorage("unack.release", s.db.Delete(encoding.PacketIDKey(namespace(dir), clientID, id), nil))
}

func (s *Store) IsReserved(ctx context.Context, dir unack.Direction, clientID string, id packets.PacketID) (bool, error) {
	ok, err := s.db.Has(encoding.PacketIDKey(namespace(dir), clientID, id), nil)
	if err != nil {
		return false, pushstore.WrapStorage("unack.is_reserved", err)
	}
	return ok, nil
}

func (s *Store) ClearAll(ctx context.Context, clientID string) error {
	unlock := s.locks.Lock(lockKey(clientID))
	defer unlock()
	batch := new(leveldb.Batch)
	for _, dir := range []unack.Direction{unack.Publish, unack.Pubrec} {
		iter := s.db.NewIterator(util.BytesPrefix(encoding.KeyPrefix(namespace(dir), clientID)), nil)
		for iter.Next() {
			batch.Delete(append([]byte(nil), iter.Key()...))
		}
		iter.Release()
		if err := iter.Error(); err != nil {
			return pushstore.WrapStorage("unack.clear_all", err)
		}
	}
	if batch.Len() == 0 {
		return nil
	}
	return pushstore.WrapStorage("unack.clear_all", s.db.Write(batch, nil))
}
