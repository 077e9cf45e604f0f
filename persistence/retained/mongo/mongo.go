package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/DrmagicE/pushstore"
	"github.com/DrmagicE/pushstore/persistence/retained"
)

const CollectionName = "retained"

var _ retained.Store = (*Store)(nil)

type Options struct {
	Database *mongo.Database
}

type doc struct {
	Topic   string `bson:"_id"`
	QoS     int32  `bson:"qos"`
	Payload []byte `bson:"payload"`
}

func (d *doc) message() *pushstore.StoredMessage {
	return &pushstore.StoredMessage{
		Topic:   d.Topic,
		QoS:     pushstore.QoS(d.QoS),
		Payload: d.Payload,
	}
}

// Store keeps one document per topic, keyed by the topic name.
type Store struct {
	c *mongo.Collection
}

func New(opts Options) *Store {
	return &Store{
		c: opts.Database.Collection(CollectionName),
	}
}

func (s *Store) Store(ctx context.Context, topic string, payload []byte, qos pushstore.QoS) error {
	d := doc{Topic: topic, QoS: int32(qos), Payload: payload}
	if d.Payload == nil {
		d.Payload = []byte{}
	}
	filter := bson.D{{Key: "_id", Value: topic}}
	_, err := s.c.ReplaceOne(ctx, filter, d, options.Replace().SetUpsert(true))
	if mongo.IsDuplicateKeyError(err) {
		_, err = s.c.ReplaceOne(ctx, filter, d)
	}
	return pushstore.WrapStorage("retained.store", err)
}

func (s *Store) Clean(ctx context.Context, topic string) error {
	_, err := s.c.DeleteOne(ctx, bson.D{{Key: "_id", Value: topic}})
	return pushstore.WrapStorage("retained.clean", err)
}

func (s *Store) Search(ctx context.Context, topics ...string) ([]*pushstore.StoredMessage, error) {
	if len(topics) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: topics}}}})
	if err != nil {
		return nil, pushstore.WrapStorage("retained.search", err)
	}
	var docs []doc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, pushstore.WrapStorage("retained.search", err)
	}
	found := make(map[string]*doc, len(docs))
	for i := range docs {
		found[docs[i].Topic] = &docs[i]
	}
	var rs []*pushstore.StoredMessage
	for _, topic := range topics {
		if d, ok := found[topic]; ok {
			rs = append(rs, d.message())
		}
	}
	return rs, nil
}

func (s *Store) Iterate(ctx context.Context, fn retained.IterateFn) error {
	cur, err := s.c.Find(ctx, bson.D{})
	if err != nil {
		return pushstore.WrapStorage("retained.iterate", err)
	}
	defer cur.Close(ctx)
	for cur.Next(ctx) {
		var d doc
		if err = cur.Decode(&d); err != nil {
			return pushstore.WrapStorage("retained.iterate", err)
		}
		if !fn(d.message()) {
			return nil
		}
	}
	return pushstore.WrapStorage("retained.iterate", cur.Err())
}

func (s *Store) ClearAll(ctx context.Context) error {
	_, err := s.c.DeleteMany(ctx, bson.D{})
	return pushstore.WrapStorage("retained.clear_all", err)
}
