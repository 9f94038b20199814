package geocode

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoCache backs the address cache with a MongoDB collection so resolved
// addresses survive restarts. The resolution algorithm does not change; this
// is purely a durable Cache implementation keyed the same way as the
// in-memory one.
type MongoCache struct {
	client     *mongo.Client
	collection *mongo.Collection
	log        *zap.Logger
}

type addressEntry struct {
	Key        string    `bson:"_id"`
	Address    string    `bson:"address"`
	ResolvedAt time.Time `bson:"resolved_at"`
}

// ConnectMongoCache connects and pings before returning a usable cache.
func ConnectMongoCache(uri, database, collection string, log *zap.Logger) (*MongoCache, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	log.Info("connected to MongoDB address cache",
		zap.String("database", database), zap.String("collection", collection))
	return &MongoCache{
		client:     client,
		collection: client.Database(database).Collection(collection),
		log:        log,
	}, nil
}

func (c *MongoCache) Get(key string) (string, bool) {
	var entry addressEntry
	err := c.collection.FindOne(context.TODO(), bson.D{{Key: "_id", Value: key}}).Decode(&entry)
	if err != nil {
		if !errors.Is(err, mongo.ErrNoDocuments) {
			c.log.Warn("address cache read failed", zap.String("key", key), zap.Error(err))
		}
		return "", false
	}
	return entry.Address, true
}

func (c *MongoCache) Put(key, address string) {
	entry := addressEntry{Key: key, Address: address, ResolvedAt: time.Now()}
	opts := options.Replace().SetUpsert(true)
	_, err := c.collection.ReplaceOne(context.TODO(), bson.D{{Key: "_id", Value: key}}, entry, opts)
	if err != nil {
		// A failed write only costs a future re-resolution.
		c.log.Warn("address cache write failed", zap.String("key", key), zap.Error(err))
	}
}

func (c *MongoCache) Close() error {
	if c.client == nil {
		return nil
	}
	return c.client.Disconnect(context.TODO())
}
