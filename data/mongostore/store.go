// Package mongostore persists experiment results to MongoDB, one document
// per saved result.
package mongostore

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/perceptlab/go-frame-scheduler/data"
)

const (
	// DefaultURI is the connection string used when Config does not name one.
	DefaultURI = "mongodb://localhost:27017"

	// DefaultDatabase is the database name used when Config does not name one.
	DefaultDatabase = "experiments"

	// DefaultCollection is the collection name used when Config does not name one.
	DefaultCollection = "results"

	// DefaultConnectTimeout bounds Connect when Config does not name one.
	DefaultConnectTimeout = 10 * time.Second
)

// Config holds connection settings for a result store.
type Config struct {
	// URI is the MongoDB connection string. Defaults to DefaultURI.
	URI string

	// Database is the database name. Defaults to DefaultDatabase.
	Database string

	// Collection is the collection name. Defaults to DefaultCollection.
	Collection string

	// ConnectTimeout bounds the dial and the liveness ping.
	// Defaults to DefaultConnectTimeout.
	ConnectTimeout time.Duration
}

func (c *Config) withDefaults() Config {
	cfg := Config{}
	if c != nil {
		cfg = *c
	}
	if cfg.URI == "" {
		cfg.URI = DefaultURI
	}
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	return cfg
}

// Store persists results into one MongoDB collection.
type Store struct {
	collection *mongo.Collection
}

// New wraps an existing collection. Use Connect to dial and wrap in one
// step. Panics on a nil collection.
func New(collection *mongo.Collection) *Store {
	if collection == nil {
		panic("mongostore: New called with a nil collection")
	}
	return &Store{collection: collection}
}

// Connect dials MongoDB per config, verifies the connection with a ping,
// and returns the store plus the owned client. The caller is responsible
// for disconnecting the client when done.
func Connect(ctx context.Context, config *Config) (*Store, *mongo.Client, error) {
	cfg := config.withDefaults()

	dialCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(dialCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, errors.Wrap(err, "connect to mongodb")
	}
	if err := client.Ping(dialCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, errors.Wrap(err, "ping mongodb")
	}
	return New(client.Database(cfg.Database).Collection(cfg.Collection)), client, nil
}

// Save inserts one result document.
func (s *Store) Save(ctx context.Context, result *data.Result) error {
	if result == nil {
		return errors.New("save nil result")
	}
	if _, err := s.collection.InsertOne(ctx, buildDocument(result)); err != nil {
		return errors.Wrapf(err, "insert result for experiment %q", result.Experiment)
	}
	return nil
}

// buildDocument shapes a result as a BSON document. Kept apart from Save
// so the document shape is testable without a server.
func buildDocument(result *data.Result) bson.M {
	rows := make(bson.A, 0, len(result.Rows))
	for _, row := range result.Rows {
		doc := bson.M{}
		for k, v := range row {
			doc[k] = v
		}
		rows = append(rows, doc)
	}
	return bson.M{
		"experiment": result.Experiment,
		"session":    result.Session,
		"started":    result.Started,
		"columns":    result.Columns,
		"rows":       rows,
		"saved_at":   time.Now(),
	}
}
