package db

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
)

const (
	BackendMongo    = "mongo"
	BackendPostgres = "postgres"
)

// OpenOptions selects and locates the maintenance history store.
type OpenOptions struct {
	Backend         string
	MongoURI        string
	MongoDatabase   string
	MongoCollection string
	PostgresDSN     string
}

// Open connects to the configured backend, prepares its indexes or schema and returns
// the store with a function that releases its connections.
func Open(ctx context.Context, opts OpenOptions) (MaintenanceCollection, func(context.Context), error) {
	switch opts.Backend {
	case BackendMongo, "":
		client, err := ConnectMongo(ctx, opts.MongoURI)
		if err != nil {
			return nil, nil, err
		}
		store := &MongoCollection{Collection: client.Database(opts.MongoDatabase).Collection(opts.MongoCollection)}
		if err := store.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(ctx)
			return nil, nil, fmt.Errorf("failed to create indexes: %w", err)
		}
		log.WithFields(log.Fields{"database": opts.MongoDatabase, "collection": opts.MongoCollection}).Info("Connected to MongoDB")
		return store, func(ctx context.Context) { _ = client.Disconnect(ctx) }, nil

	case BackendPostgres:
		pool, err := ConnectPostgres(ctx, opts.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		store := &PostgresStore{Pool: pool}
		if err := store.EnsureSchema(ctx); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("failed to create schema: %w", err)
		}
		log.Info("Connected to PostgreSQL")
		return store, func(context.Context) { pool.Close() }, nil

	default:
		return nil, nil, fmt.Errorf("unknown history backend %q", opts.Backend)
	}
}
