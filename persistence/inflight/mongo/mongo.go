package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/DrmagicE/pushstore"
	"github.com/DrmagicE/pushstore/persistence/inflight"
)

const (
	PublishCollectionName = "inflight_publish"
	PubrelCollectionName  = "inflight_pubrel"
)

var (
	_ inflight.PublishStore = (*Cache[*pushstore.PublishEvent])(nil)
	_ inflight.PubrelStore  = (*Cache[*pushstore.PubrelEvent])(nil)
)

// Indexes returns the indexes required by both in-flight collections.
func Indexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "client_id", Value: 1}},
			Options: options.Index().SetName("inflight_client_id"),
		},
	}
}

type Options struct {
	Database *mongo.Database
}

type doc struct {
	ID       bson.D `bson:"_id"`
	ClientID string `bson:"client_id"`
	Event    []byte `bson:"event"`
}

// Cache is the mongo in-flight store, one document per key in a collection per namespace.
type Cache[V any] struct {
	c     *mongo.Collection
	codec inflight.Codec[V]
}

func New[V any](c *mongo.Collection, codec inflight.Codec[V]) *Cache[V] {
	return &Cache[V]{
		c:     c,
		codec: codec,
	}
}

func NewPublishStore(opts Options) *Cache[*pushstore.PublishEvent] {
	return New(opts.Database.Collection(PublishCollectionName), inflight.PublishCodec)
}

func NewPubrelStore(opts Options) *Cache[*pushstore.PubrelEvent] {
	return New(opts.Database.Collection(PubrelCollectionName), inflight.PubrelCodec)
}

func docID(key pushstore.Key) bson.D {
	return bson.D{
		{Key: "client_id", Value: key.ClientID},
		{Key: "packet_id", Value: int32(key.PacketID)},
	}
}

func (c *Cache[V]) op(name string) string {
	return c.codec.Namespace + name
}

func (c *Cache[V]) Put(ctx context.Context, key pushstore.Key, v V) error {
	b, err := c.codec.Encode(v)
	if err != nil {
		return err
	}
	id := docID(key)
	_, err = c.c.ReplaceOne(ctx,
		bson.D{{Key: "_id", Value: id}},
		doc{ID: id, ClientID: key.ClientID, Event: b},
		options.Replace().SetUpsert(true),
	)
	if mongo.IsDuplicateKeyError(err) {
		// a concurrent upsert inserted the document first, retry as a plain replace.
		_, err = c.c.ReplaceOne(ctx,
			bson.D{{Key: "_id", Value: id}},
			doc{ID: id, ClientID: key.ClientID, Event: b},
		)
	}
	return pushstore.WrapStorage(c.op("put"), err)
}

func (c *Cache[V]) Get(ctx context.Context, key pushstore.Key) (V, error) {
	var zero V
	var d doc
	err := c.c.FindOne(ctx, bson.D{{Key: "_id", Value: docID(key)}}).Decode(&d)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return zero, nil
	}
	if err != nil {
		return zero, pushstore.WrapStorage(c.op("get"), err)
	}
	v, err := c.codec.Decode(d.Event)
	if err != nil {
		return zero, pushstore.WrapStorage(c.op("get"), err)
	}
	return v, nil
}

func (c *Cache[V]) Remove(ctx context.Context, key pushstore.Key) (bool, error) {
	rs, err := c.c.DeleteOne(ctx, bson.D{{Key: "_id", Value: docID(key)}})
	if err != nil {
		return false, pushstore.WrapStorage(c.op("remove"), err)
	}
	return rs.DeletedCount > 0, nil
}

func (c *Cache[V]) RemoveAll(ctx context.Context, clientID string) error {
	_, err := c.c.DeleteMany(ctx, bson.D{{Key: "client_id", Value: clientID}})
	return pushstore.WrapStorage(c.op("remove_all"), err)
}
