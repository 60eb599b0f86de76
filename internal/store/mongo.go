package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wuwenbin0122/studybot/internal/db"
	"github.com/wuwenbin0122/studybot/internal/models"
)

// messageDocument matches the field names already used by the conversations collection.
type messageDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    string             `bson:"user_id"`
	Role      string             `bson:"role"`
	Message   string             `bson:"message"`
	Timestamp time.Time          `bson:"timestamp"`
}

func (d messageDocument) toModel() models.Message {
	return models.Message{
		ID:             d.ID.Hex(),
		ConversationID: d.UserID,
		Role:           models.Role(d.Role),
		Text:           d.Message,
		CreatedAt:      d.Timestamp.UTC(),
	}
}

// Mongo stores one document per message. ObjectIDs are generated here and
// grow monotonically within a process, so they order records sharing a
// timestamp.
type Mongo struct {
	conn *db.Mongo
	opts storeOptions
}

func NewMongo(conn *db.Mongo, opts ...Option) *Mongo {
	return &Mongo{conn: conn, opts: buildOptions(opts)}
}

var newestFirst = bson.D{{Key: "timestamp", Value: -1}, {Key: "_id", Value: -1}}

func (m *Mongo) Insert(ctx context.Context, conversationID string, role models.Role, text string) (*models.Message, error) {
	doc := messageDocument{
		ID:        primitive.NewObjectID(),
		UserID:    conversationID,
		Role:      string(role),
		Message:   text,
		Timestamp: m.opts.stamp(),
	}

	if _, err := m.conn.Conversations.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("mongo: insert message: %w", err)
	}

	msg := doc.toModel()
	return &msg, nil
}

func (m *Mongo) QueryRecent(ctx context.Context, conversationID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	return m.find(ctx, conversationID, options.Find().SetSort(newestFirst).SetLimit(int64(limit)))
}

func (m *Mongo) QueryAll(ctx context.Context, conversationID string) ([]models.Message, error) {
	return m.find(ctx, conversationID, options.Find().SetSort(newestFirst))
}

func (m *Mongo) find(ctx context.Context, conversationID string, opts *options.FindOptions) ([]models.Message, error) {
	cursor, err := m.conn.Conversations.Find(ctx, bson.M{"user_id": conversationID}, opts)
	if err != nil {
		return nil, fmt.Errorf("mongo: find messages: %w", err)
	}

	var docs []messageDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("mongo: decode messages: %w", err)
	}

	result := make([]models.Message, 0, len(docs))
	for _, doc := range docs {
		result = append(result, doc.toModel())
	}
	return result, nil
}

func (m *Mongo) DeleteAll(ctx context.Context, conversationID string) (int64, error) {
	res, err := m.conn.Conversations.DeleteMany(ctx, bson.M{"user_id": conversationID})
	if err != nil {
		return 0, fmt.Errorf("mongo: delete messages: %w", err)
	}
	return res.DeletedCount, nil
}

func (m *Mongo) Count(ctx context.Context, conversationID string, role models.Role) (int64, error) {
	filter := bson.M{"user_id": conversationID}
	if role != "" {
		filter["role"] = string(role)
	}

	total, err := m.conn.Conversations.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("mongo: count messages: %w", err)
	}
	return total, nil
}

func (m *Mongo) Ping(ctx context.Context) error {
	return m.conn.Ping(ctx)
}

func (m *Mongo) Close(ctx context.Context) error {
	return m.conn.Close(ctx)
}
