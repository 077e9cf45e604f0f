package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	"github.com/DrmagicE/pushstore"
	"github.com/DrmagicE/pushstore/logger"
	"github.com/DrmagicE/pushstore/persistence/encoding"
	"github.com/DrmagicE/pushstore/persistence/queue"
	"github.com/DrmagicE/pushstore/pkg/keylock"
	"github.com/DrmagicE/pushstore/pkg/packets"
)

const (
	CollectionName    = "offline_queue"
	SeqCollectionName = "offline_queue_seq"
)

var _ queue.Store = (*Queue)(nil)

type elem struct {
	ClientID string `bson:"client_id"`
	Seq      int64  `bson:"seq"`
	PacketID int32  `bson:"packet_id"`
	Event    []byte `bson:"event"`
}

type seqDoc struct {
	ClientID string `bson:"_id"`
	Seq      int64  `bson:"seq"`
}

// Indexes returns the indexes required by the queue collection.
func Indexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "client_id", Value: 1}, {Key: "seq", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("offline_queue_client_id_seq_unique"),
		},
		{
			Keys:    bson.D{{Key: "client_id", Value: 1}, {Key: "packet_id", Value: 1}},
			Options: options.Index().SetName("offline_queue_client_id_packet_id"),
		},
	}
}

type Options struct {
	queue.Options
	Database *mongo.Database
	// Locks serialises the multi-document operations of one client.
	Locks *keylock.Locks
}

// Queue is the mongo queue store. Each event is one document ordered by a per-client sequence.
type Queue struct {
	elems    *mongo.Collection
	seqs     *mongo.Collection
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
		elems:    opts.Database.Collection(CollectionName),
		seqs:     opts.Database.Collection(SeqCollectionName),
		locks:    locks,
		max:      opts.MaxQueuedMsg,
		policy:   opts.Policy,
		notifier: opts.Notifier,
		log:      logger.WithField(zap.String("queue", "mongo")),
	}
}

func (q *Queue) nextSeq(ctx context.Context, clientID string) (int64, error) {
	var doc seqDoc
	err := q.seqs.FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: clientID}},
		bson.D{{Key: "$inc", Value: bson.D{{Key: "seq", Value: int64(1)}}}},
		options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After),
	).Decode(&doc)
	return doc.Seq, err
}

func (q *Queue) Enqueue(ctx context.Context, ev *pushstore.PublishEvent) error {
	b, err := encoding.EncodePublish(ev)
	if err != nil {
		return err
	}
	unlock := q.locks.Lock(queue.LockKey(ev.ClientID))
	defer unlock()
	if q.max > 0 {
		n, err := q.elems.CountDocuments(ctx, bson.D{{Key: "client_id", Value: ev.ClientID}})
		if err != nil {
			return pushstore.WrapStorage("queue.enqueue", err)
		}
		if queue.Full(int(n), q.max) {
			if q.policy != queue.PolicyDropOldest {
				q.log.Warn("message queue is full, reject message",
					zap.String("client_id", ev.ClientID),
					zap.Uint16("packet_id", ev.PacketID),
				)
				return queue.ErrDropQueueFull
			}
			if err := q.dropOldest(ctx, ev.ClientID); err != nil {
				return pushstore.WrapStorage("queue.enqueue", err)
			}
		}
	}
	seq, err := q.nextSeq(ctx, ev.ClientID)
	if err != nil {
		return pushstore.WrapStorage("queue.enqueue", err)
	}
	_, err = q.elems.InsertOne(ctx, elem{
		ClientID: ev.ClientID,
		Seq:      seq,
		PacketID: int32(ev.PacketID),
		Event:    b,
	})
	return pushstore.WrapStorage("queue.enqueue", err)
}

func (q *Queue) dropOldest(ctx context.Context, clientID string) error {
	var e elem
	err := q.elems.FindOneAndDelete(ctx,
		bson.D{{Key: "client_id", Value: clientID}},
		options.FindOneAndDelete().SetSort(bson.D{{Key: "seq", Value: 1}}),
	).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	if err != nil {
		return err
	}
	dropped, err := encoding.DecodePublish(e.Event)
	if err != nil {
		return err
	}
	q.log.Warn("message queue is full, drop oldest message",
		zap.String("client_id", clientID),
		zap.Uint16("packet_id", dropped.PacketID),
	)
	if q.notifier != nil {
		q.notifier.NotifyDropped(dropped, queue.ErrDropQueueFull)
	}
	return nil
}

func (q *Queue) List(ctx context.Context, clientID string) ([]*pushstore.PublishEvent, error) {
	cur, err := q.elems.Find(ctx,
		bson.D{{Key: "client_id", Value: clientID}},
		options.Find().SetSort(bson.D{{Key: "seq", Value: 1}}),
	)
	if err != nil {
		return nil, pushstore.WrapStorage("queue.list", err)
	}
	defer cur.Close(ctx)
	var evs []*pushstore.PublishEvent
	for cur.Next(ctx) {
		var e elem
		if err := cur.Decode(&e); err != nil {
			return nil, pushstore.WrapStorage("queue.list", err)
		}
		ev, err := encoding.DecodePublish(e.Event)
		if err != nil {
			return nil, pushstore.WrapStorage("queue.list", err)
		}
		evs = append(evs, ev)
	}
	return evs, pushstore.WrapStorage("queue.list", cur.Err())
}

func (q *Queue) Remove(ctx context.Context, clientID string, pid packets.PacketID) error {
	err := q.elems.FindOneAndDelete(ctx,
		bson.D{{Key: "client_id", Value: clientID}, {Key: "packet_id", Value: int32(pid)}},
		options.FindOneAndDelete().SetSort(bson.D{{Key: "seq", Value: 1}}),
	).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil
	}
	return pushstore.WrapStorage("queue.remove", err)
}

func (q *Queue) Len(ctx context.Context, clientID string) (int, error) {
	n, err := q.elems.CountDocuments(ctx, bson.D{{Key: "client_id", Value: clientID}})
	if err != nil {
		return 0, pushstore.WrapStorage("queue.len", err)
	}
	return int(n), nil
}

func (q *Queue) Clean(ctx context.Context, clientID string) error {
	unlock := q.locks.Lock(queue.LockKey(clientID))
	defer unlock()
	_, err := q.elems.DeleteMany(ctx, bson.D{{Key: "client_id", Value: clientID}})
	return pushstore.WrapStorage("queue.clean", err)
}
