// shared/mongodb/client.go
package mongodb

import (
	"context"
	"time"

	"github.com/cockroachdb/errors"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/RocketLeagueLatvia/discord-bot/shared/logging"
)

// Client is a wrapper around *mongo.Client bound to one database.
type Client struct {
	mongoClient *mongo.Client
	database    string
	logger      *logging.Logger
}

// NewClient connects to MongoDB and pings the primary.
func NewClient(connStr, databaseName string, logger *logging.Logger) (*Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(connStr))
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to MongoDB")
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		if disconnectErr := client.Disconnect(context.Background()); disconnectErr != nil {
			logger.Warn("failed to disconnect MongoDB client after ping failure", "error", disconnectErr)
		}
		return nil, errors.Wrap(err, "failed to ping MongoDB")
	}

	logger.Info("connected to MongoDB", "database", databaseName)
	return &Client{
		mongoClient: client,
		database:    databaseName,
		logger:      logger,
	}, nil
}

// Collection returns a collection of the bound database.
func (mc *Client) Collection(collectionName string) *mongo.Collection {
	return mc.mongoClient.Database(mc.database).Collection(collectionName)
}

// Ping checks that the primary is reachable. Used by the health endpoint.
func (mc *Client) Ping(ctx context.Context) error {
	return mc.mongoClient.Ping(ctx, readpref.Primary())
}

// Disconnect closes the connection.
func (mc *Client) Disconnect(ctx context.Context) error {
	mc.logger.Info("disconnecting from MongoDB")
	return mc.mongoClient.Disconnect(ctx)
}
