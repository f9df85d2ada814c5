// Package sequence assigns the integer _ids used by the books, users and
// comments collections.
//
// Ids are served from a counters collection updated with an atomic $inc, so
// two concurrent creations can never observe the same next id. The earlier
// read-max-then-insert approach had exactly that race.
package sequence

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type counter struct {
	ID  string `bson:"_id"`
	Seq int    `bson:"seq"`
}

// Allocator hands out sequential ids backed by a counters collection.
// One counter document per data collection, keyed by collection name.
type Allocator struct {
	Counters *mongo.Collection
}

// Next returns the next free id for the given data collection.
func (a *Allocator) Next(ctx context.Context, data *mongo.Collection) (int, error) {
	return a.Reserve(ctx, data, 1)
}

// Reserve claims a contiguous block of n ids and returns the first one.
// The block is base, base+1, ..., base+n-1 in that order.
//
// If no counter document exists yet (a collection imported before the
// counters were introduced), the counter is seeded from max(_id) of the data
// collection, so existing ids keep their monotonic continuation.
func (a *Allocator) Reserve(ctx context.Context, data *mongo.Collection, n int) (int, error) {
	if n < 1 {
		return 0, errors.New("sequence: block size must be at least 1")
	}

	key := data.Name()

	seeded, err := a.counterExists(ctx, key)
	if err != nil {
		return 0, err
	}
	if !seeded {
		if err := a.seed(ctx, key, data); err != nil {
			return 0, err
		}
	}

	var c counter
	err = a.Counters.FindOneAndUpdate(ctx,
		bson.M{"_id": key},
		bson.M{"$inc": bson.M{"seq": n}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&c)
	if err != nil {
		return 0, err
	}

	return c.Seq - n + 1, nil
}

func (a *Allocator) counterExists(ctx context.Context, key string) (bool, error) {
	count, err := a.Counters.CountDocuments(ctx, bson.M{"_id": key})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// seed writes the starting value for a collection's counter. $setOnInsert
// keeps the write idempotent: if two callers race on first use, only one
// upsert lands and the other becomes a no-op.
func (a *Allocator) seed(ctx context.Context, key string, data *mongo.Collection) error {
	max, err := maxID(ctx, data)
	if err != nil {
		return err
	}

	_, err = a.Counters.UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$setOnInsert": bson.M{"seq": max}},
		options.Update().SetUpsert(true),
	)
	return err
}

// maxID returns the current largest integer _id, or 0 for an empty
// collection so that the first assigned id is 1.
func maxID(ctx context.Context, coll *mongo.Collection) (int, error) {
	opts := options.FindOne().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetProjection(bson.M{"_id": 1})

	var doc struct {
		ID int `bson:"_id"`
	}
	err := coll.FindOne(ctx, bson.M{}, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return doc.ID, nil
}
