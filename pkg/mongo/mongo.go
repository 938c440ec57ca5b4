package mongo

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// Config is bound from MONGO_* variables.
type Config struct {
	URI                    string `envconfig:"MONGO_URI"`
	Database               string `envconfig:"MONGO_DATABASE" default:"agent_memory_repli_post"`
	ServerSelectionTimeout int    `envconfig:"MONGO_SERVER_SELECTION_TIMEOUT" default:"5"`
}

var (
	sharedMu     sync.Mutex
	sharedClient *mongo.Client
)

// Client returns the process-wide client, connecting and pinging on first use.
func (c *Config) Client(ctx context.Context) (*mongo.Client, error) {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if sharedClient != nil {
		return sharedClient, nil
	}
	if c.URI == "" {
		return nil, fmt.Errorf("mongo uri is required")
	}

	opts := options.Client().
		ApplyURI(c.URI).
		SetServerSelectionTimeout(time.Duration(c.ServerSelectionTimeout) * time.Second)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	sharedClient = client
	return client, nil
}

// DB returns a handle to the configured database.
func (c *Config) DB(ctx context.Context) (*mongo.Database, error) {
	client, err := c.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Database(c.Database), nil
}

// Close disconnects the shared client if one was created.
func Close(ctx context.Context) error {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	if sharedClient == nil {
		return nil
	}
	err := sharedClient.Disconnect(ctx)
	sharedClient = nil
	return err
}
