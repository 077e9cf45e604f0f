package leveldb

import (
	"context"
	"encoding/binary"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
	"go.uber.org/zap"

	"github.com/DrmagicE/pushstore"
	"github.com/DrmagicE/pushstore/logger"
	"github.com/DrmagicE/pushstore/persistence/encoding"
	"github.com/DrmagicE/pushstore/persistence/queue"
	"github.com/DrmagicE/pushstore/pkg/keylock"
	"github.com/DrmagicE/pushstore/pkg/leveldbutil"
	"github.com/DrmagicE/pushstore/pkg/packets"
)

const namespace = "queue:"

var _ queue.Store = (*Queue)(nil)

type Options struct {
	queue.Options
	DB    *leveldb.DB
	Locks *keylock.Locks
}

// Queue is the leveldb queue store.
// Key: namespace | client id | 8 bytes seq, value: encoded publish event.
type Queue struct {
	db       *leveldb.DB
	locks    *keylock.Locks
	max      int
	policy   queue.Policy
	notifier queue.Notifier
	log      *zap.Logger
}

func New(opts Options) *Queue {
	locks := opts.Locks
	if locks == nil {
		locks = keylock.New(0)
	}
	return &Queue{
		db:       opts.DB,
		locks:    locks,
		max:      opts.MaxQueuedMsg,
		policy:   opts.Policy,
		notifier: opts.Notifier,
		log:      logger.WithField(zap.String("queue", "leveldb")),
	}
}

type scanResult struct {
	n        int
	firstKey []byte
	firstVal []byte
	lastSeq  uint64
}

func (q *Queue) scan(clientID string) (scanResult, error) {
	prefix := encoding.KeyPrefix(namespace, clientID)
	var rs scanResult
	iter := q.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()
	for iter.Next() {
		if rs.n == 0 {
			rs.firstKey = append([]byte(nil), iter.Key()...)
			rs.firstVal = append([]byte(nil), iter.Value()...)
		}
		rs.n++
		rs.lastSeq = binary.BigEndian.Uint64(iter.Key()[len(prefix):])
	}
	return rs, iter.Error()
}

func (q *Queue) Enqueue(ctx context.Context, ev *pushstore.PublishEvent) error {
	b, err := encoding.EncodePublish(ev)
	if err != nil {
		return err
	}
	unlock := q.locks.Lock(queue.LockKey(ev.ClientID))
	defer unlock()
	rs, err := q.scan(ev.ClientID)
	if err != nil {
		return pushstore.WrapStorage("queue.enqueue", err)
	}
	batch := new(leveldb.Batch)
	var dropped *pushstore.PublishEvent
	if queue.Full(rs.n, q.max) {
		if q.policy != queue.PolicyDropOldest {
			q.log.Warn("message queue is full, reject message",
				zap.String("client_id", ev.ClientID),
				zap.Uint16("packet_id", ev.PacketID),
			)
			return queue.ErrDropQueueFull
		}
		dropped, err = encoding.DecodePublish(rs.firstVal)
		if err != nil {
			return pushstore.WrapStorage("queue.enqueue", err)
		}
		batch.Delete(rs.firstKey)
	}
	batch.Put(encoding.SeqKey(namespace, ev.ClientID, rs.lastSeq+1), b)
	if err = q.db.Write(batch, nil); err != nil {
		return pushstore.WrapStorage("queue.enqueue", err)
	}
	if dropped != nil {
		q.log.Warn("message queue is full, drop oldest message",
			zap.String("client_id", ev.ClientID),
			zap.Uint16("packet_id", dropped.PacketID),
		)
		if q.notifier != nil {
			q.notifier.NotifyDropped(dropped, queue.ErrDropQueueFull)
		}
	}
	return nil
}

func (q *Queue) List(ctx context.Context, clientID string) ([]*pushstore.PublishEvent, error) {
	iter := q.db.NewIterator(util.BytesPrefix(encoding.KeyPrefix(namespace, clientID)), nil)
	defer iter.Release()
	var evs []*pushstore.PublishEvent
	for iter.Next() {
		ev, err := encoding.DecodePublish(iter.Value())
		if err != nil {
			return nil, pushstore.WrapStorage("queue.list", err)
		}
		evs = append(evs, ev)
	}
	return evs, pushstore.WrapStorage("queue.list", iter.Error())
}

func (q *Queue) Remove(ctx context.Context, clientID string, pid packets.PacketID) error {
	unlock := q.locks.Lock(queue.LockKey(clientID))
	defer unlock()
	iter := q.db.NewIterator(util.BytesPrefix(encoding.KeyPrefix(namespace, clientID)), nil)
	defer iter.Release()
	for iter.Next() {
		ev, err := encoding.DecodePublish(iter.Value())
		if err != nil {
			return pushstore.WrapStorage("queue.remove", err)
		}
		if ev.PacketID == pid {
			return pushstore.WrapStorage("queue.remove", q.db.Delete(iter.Key(), nil))
		}
	}
	return pushstore.WrapStorage("queue.remove", iter.Error())
}

func (q *Queue) Len(ctx context.Context, clientID string) (int, error) {
	rs, err := q.scan(clientID)
	if err != nil {
		return 0, pushstore.WrapStorage("queue.len", err)
	}
	return rs.n, nil
}

func (q *Queue) Clean(ctx context.Context, clientID string) error {
	unlock := q.locks.Lock(queue.LockKey(clientID))
	defer unlock()
	return pushstore.WrapStorage("queue.clean", leveldbutil.DeletePrefix(q.db, encoding.KeyPrefix(namespace, clientID)))
}
