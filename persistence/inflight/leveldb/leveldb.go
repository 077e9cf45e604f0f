package leveldb

import (
	"context"

	"github.com/syndtr/goleveldb/leveldb"

	"github.com/DrmagicE/pushstore"
	"github.com/DrmagicE/pushstore/persistence/encoding"
	"github.com/DrmagicE/pushstore/persistence/inflight"
	"github.com/DrmagicE/pushstore/pkg/keylock"
	"github.com/DrmagicE/pushstore/pkg/leveldbutil"
)

var (
	_ inflight.PublishStore = (*Cache[*pushstore.PublishEvent])(nil)
	_ inflight.PubrelStore  = (*Cache[*pushstore.PubrelEvent])(nil)
)

type Options struct {
	DB *leveldb.DB
	// Locks serialises Put and Remove of the same key, a private set is used when nil.
	Locks *keylock.Locks
}

// Cache is the leveldb in-flight store.
// Key: namespace | client id | 2 bytes packet id, value: encoded event.
type Cache[V any] struct {
	db    *leveldb.DB
	locks *keylock.Locks
	codec inflight.Codec[V]
}

func New[V any](opts Options, codec inflight.Codec[V]) *Cache[V] {
	locks := opts.Locks
	if locks == nil {
		locks = keylock.New(0)
	}
	return &Cache[V]{
		db:    opts.DB,
		locks: locks,
		codec: codec,
	}
}

func NewPublishStore(opts Options) *Cache[*pushstore.PublishEvent] {
	return New(opts, inflight.PublishCodec)
}

func NewPubrelStore(opts Options) *Cache[*pushstore.PubrelEvent] {
	return New(opts, inflight.PubrelCodec)
}

func (c *Cache[V]) key(key pushstore.Key) []byte {
	return encoding.PacketIDKey(c.codec.Namespace, key.ClientID, key.PacketID)
}

func (c *Cache[V]) op(name string) string {
	return c.codec.Namespace + name
}

func (c *Cache[V]) lock(key pushstore.Key) (unlock func()) {
	return c.locks.Lock(c.codec.Namespace + key.String())
}

func (c *Cache[V]) Put(ctx context.Context, key pushstore.Key, v V) error {
	b, err := c.codec.Encode(v)
	if err != nil {
		return err
	}
	unlock := c.lock(key)
	defer unlock()
	return pushstore.WrapStorage(c.op("put"), c.db.Put(c.key(key), b, nil))
}

func (c *Cache[V]) Get(ctx context.Context, key pushstore.Key) (V, error) {
	var zero V
	b, err := c.db.Get(c.key(key), nil)
	if err == leveldb.ErrNotFound {
		return zero, nil
	}
	if err != nil {
		return zero, pushstore.WrapStorage(c.op("get"), err)
	}
	v, err := c.codec.Decode(b)
	if err != nil {
		return zero, pushstore.WrapStorage(c.op("get"), err)
	}
	return v, nil
}

func (c *Cache[V]) Remove(ctx context.Context, key pushstore.Key) (bool, error) {
	unlock := c.lock(key)
	defer unlock()
	k := c.key(key)
	ok, err := c.db.Has(k, nil)
	if err != nil {
		return false, pushstore.WrapStorage(c.op("remove"), err)
	}
	if !ok {
		return false, nil
	}
	if err = c.db.Delete(k, nil); err != nil {
		return false, pushstore.WrapStorage(c.op("remove"), err)
	}
	return true, nil
}

func (c *Cache[V]) RemoveAll(ctx context.Context, clientID string) error {
	return pushstore.WrapStorage(c.op("remove_all"),
		leveldbutil.DeletePrefix(c.db, encoding.KeyPrefix(c.codec.Namespace, clientID)))
}
