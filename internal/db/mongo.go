package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/wuwenbin0122/studybot/internal/utils"
)

const (
	defaultConversationCollection = "conversations"
	recentIndexName               = "user_recent"
)

var errMongoClosed = errors.New("mongo: client not initialised")

// Mongo holds the client and the conversations collection it was opened for.
type Mongo struct {
	Client        *mongo.Client
	Database      *mongo.Database
	Conversations *mongo.Collection
}

func NewMongo(ctx context.Context, cfg utils.MongoConfig) (*Mongo, error) {
	if cfg.URI == "" {
		return nil, errors.New("mongo: uri is required")
	}
	if cfg.Database == "" {
		return nil, errors.New("mongo: database is required")
	}

	timeout := timeoutOrDefault(cfg.ConnectTimeout)
	clientOpts := options.Client().
		ApplyURI(cfg.URI).
		SetServerSelectionTimeout(timeout).
		SetAppName("study-bot")

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}

	// Connect does not dial; fail on an unreachable server here.
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo: ping: %w", err)
	}

	collection := cfg.Collection
	if collection == "" {
		collection = defaultConversationCollection
	}

	database := client.Database(cfg.Database)
	return &Mongo{
		Client:        client,
		Database:      database,
		Conversations: database.Collection(collection),
	}, nil
}

func (m *Mongo) Ping(ctx context.Context) error {
	if m == nil || m.Client == nil {
		return errMongoClosed
	}

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return m.Client.Ping(pingCtx, readpref.Primary())
}

func (m *Mongo) Close(ctx context.Context) error {
	if m == nil || m.Client == nil {
		return nil
	}

	closeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	return m.Client.Disconnect(closeCtx)
}

// EnsureCollections creates the index serving newest-first reads of one
// conversation. Re-running it is a no-op.
func (m *Mongo) EnsureCollections(ctx context.Context) error {
	if m == nil || m.Conversations == nil {
		return errMongoClosed
	}

	indexCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := m.Conversations.Indexes().CreateOne(indexCtx, mongo.IndexModel{
		Keys: bson.D{
			{Key: "user_id", Value: 1},
			{Key: "timestamp", Value: -1},
			{Key: "_id", Value: -1},
		},
		Options: options.Index().SetName(recentIndexName),
	})
	if err != nil {
		return fmt.Errorf("mongo: create %s index: %w", recentIndexName, err)
	}

	return nil
}

func timeoutOrDefault(value time.Duration) time.Duration {
	if value > 0 {
		return value
	}
	return 10 * time.Second
}
