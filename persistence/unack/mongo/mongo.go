package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/DrmagicE/pushstore"
	"github.com/DrmagicE/pushstore/persistence/unack"
	"github.com/DrmagicE/pushstore/pkg/packets"
)

const CollectionName = "packet_ids"

var _ unack.Store = (*Store)(nil)

// Indexes returns the indexes required by the packet id collection.
func Indexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "client_id", Value: 1}},
			Options: options.Index().SetName("packet_ids_client_id"),
		},
	}
}

// Store is the mongo packet id tracker.
// Each reserved id is one document whose _id is built from client id, direction and packet id,
// so reserving is a single upsert.
type Store struct {
	c *mongo.Collection
}

type Options struct {
	Database *mongo.Database
}

func New(opts Options) *Store {
	return &Store{
		c: opts.Database.Collection(CollectionName),
	}
}

type idDoc struct {
	ClientID  string `bson:"client_id"`
	Direction int32  `bson:"direction"`
	PacketID  int32  `bson:"packet_id"`
}

func docID(dir unack.Direction, clientID string, id packets.PacketID) bson.D {
	return bson.D{
		{Key: "client_id", Value: clientID},
		{Key: "direction", Value: int32(dir)},
		{Key: "packet_id", Value: int32(id)},
	}
}

func (s *Store) Reserve(ctx context.Context, dir unack.Direction, clientID string, id packets.PacketID) (bool, error) {
	rs, err := s.c.UpdateOne(ctx,
		bson.D{{Key: "_id", Value: docID(dir, clientID, id)}},
		bson.D{{Key: "$setOnInsert", Value: idDoc{
			ClientID:  clientID,
			Direction: int32(dir),
			PacketID:  int32(id),
		}}},
		options.Update().SetUpsert(true),
	)
	if mongo.IsDuplicateKeyError(err) {
		// lost an upsert race on the same _id, the id is reserved by the winner.
		return true, nil
	}
	if err != nil {
		return false, pushstore.WrapStorage("unack.reserve", err)
	}
	return rs.UpsertedCount == 0, nil
}

func (s *Store) Release(ctx context.Context, dir unack.Direction, clientID string, id packets.PacketID) error {
	_, err := s.c.DeleteOne(ctx, bson.D{{Key: "_id", Value: docID(dir, clientID, id)}})
	return pushstore.WrapStorage("unack.release", err)
}

func (s *Store) IsReserved(ctx context.Context, dir unack.Direction, clientID string, id packets.PacketID) (bool, error) {
	err := s.c.FindOne(ctx, bson.D{{Key: "_id", Value: docID(dir, clientID, id)}}).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	if err != nil {
		return false, pushstore.WrapStorage("unack.is_reserved", err)
	}
	return true, nil
}

func (s *Store) ClearAll(ctx context.Context, clientID string) error {
	_, err := s.c.DeleteMany(ctx, bson.D{{Key: "client_id", Value: clientID}})
	return pushstore.WrapStorage("unack.clear_all", err)
}
