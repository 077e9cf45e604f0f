package leveldb

import (
	"context"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"

	"github.com/DrmagicE/pushstore"
	"github.com/DrmagicE/pushstore/persistence/encoding"
	"github.com/DrmagicE/pushstore/persistence/retained"
	"github.com/DrmagicE/pushstore/pkg/leveldbutil"
)

const namespace = "retained:"

var _ retained.Store = (*Store)(nil)

type Options struct {
	DB *leveldb.DB
}

// Store is the leveldb retained store. Key: namespace | topic, value: encoded message.
type Store struct {
	db *leveldb.DB
}

func New(opts Options) *Store {
	return &Store{
		db: opts.DB,
	}
}

func key(topic string) []byte {
	return append([]byte(namespace), topic...)
}

func (s *Store) Store(ctx context.Context, topic string, payload []byte, qos pushstore.QoS) error {
	b, err := encoding.EncodeStoredMessage(&pushstore.StoredMessage{Topic: topic, Payload: payload, QoS: qos})
	if err != nil {
		return err
	}
	return pushstore.WrapStorage("retained.store", s.db.Put(key(topic), b, nil))
}

func (s *Store) Clean(ctx context.Context, topic string) error {
	return pushstore.WrapStorage("retained.clean", s.db.Delete(key(topic), nil))
}

func (s *Store) Search(ctx context.Context, topics ...string) ([]*pushstore.StoredMessage, error) {
	var rs []*pushstore.StoredMessage
	for _, topic := range topics {
		b, err := s.db.Get(key(topic), nil)
		if err == leveldb.ErrNotFound {
			continue
		}
		if err != nil {
			return nil, pushstore.WrapStorage("retained.search", err)
		}
		msg, err := encoding.DecodeStoredMessage(b)
		if err != nil {
			return nil, pushstore.WrapStorage("retained.search", err)
		}
		rs = append(rs, msg)
	}
	return rs, nil
}

func (s *Store) Iterate(ctx context.Context, fn retained.IterateFn) error {
	iter := s.db.NewIterator(util.BytesPrefix([]byte(namespace)), nil)
	defer iter.Release()
	for iter.Next() {
		msg, err := encoding.DecodeStoredMessage(iter.Value())
		if err != nil {
			return pushstore.WrapStorage("retained.iterate", err)
		}
		if !fn(msg) {
			return nil
		}
	}
	return pushstore.WrapStorage("retained.iterate", iter.Error())
}

func (s *Store) ClearAll(ctx context.Context) error {
	return pushstore.WrapStorage("retained.clear_all", leveldbutil.DeletePrefix(s.db, []byte(namespace)))
}
