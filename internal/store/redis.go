package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/wuwenbin0122/studybot/internal/models"
)

type redisRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Role      string    `json:"role"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Seq       int64     `json:"seq"`
}

func (r redisRecord) toModel() models.Message {
	return models.Message{
		ID:             r.ID,
		ConversationID: r.UserID,
		Role:           models.Role(r.Role),
		Text:           r.Message,
		CreatedAt:      r.Timestamp.UTC(),
		Seq:            r.Seq,
	}
}

// Redis keeps each conversation as a list of JSON records appended with
// RPUSH, so list position is insertion order.
type Redis struct {
	client *redis.Client
	prefix string
	opts   storeOptions
}

func NewRedis(client *redis.Client, keyPrefix string, opts ...Option) *Redis {
	return &Redis{client: client, prefix: keyPrefix, opts: buildOptions(opts)}
}

func (r *Redis) key(conversationID string) string {
	return r.prefix + "msgs:" + conversationID
}

func (r *Redis) seqKey() string {
	return r.prefix + "seq"
}

func (r *Redis) Insert(ctx context.Context, conversationID string, role models.Role, text string) (*models.Message, error) {
	seq, err := r.client.Incr(ctx, r.seqKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: next sequence: %w", err)
	}

	record := redisRecord{
		ID:        uuid.NewString(),
		UserID:    conversationID,
		Role:      string(role),
		Message:   text,
		Timestamp: r.opts.stamp(),
		Seq:       seq,
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return nil, fmt.Errorf("redis: encode message: %w", err)
	}

	if err := r.client.RPush(ctx, r.key(conversationID), payload).Err(); err != nil {
		return nil, fmt.Errorf("redis: append message: %w", err)
	}

	msg := record.toModel()
	return &msg, nil
}

func (r *Redis) QueryRecent(ctx context.Context, conversationID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	return r.lrange(ctx, conversationID, int64(-limit))
}

func (r *Redis) QueryAll(ctx context.Context, conversationID string) ([]models.Message, error) {
	return r.lrange(ctx, conversationID, 0)
}

func (r *Redis) lrange(ctx context.Context, conversationID string, start int64) ([]models.Message, error) {
	records, err := r.load(ctx, conversationID, start)
	if err != nil {
		return nil, err
	}

	result := make([]models.Message, 0, len(records))
	for _, record := range records {
		result = append(result, record.toModel())
	}
	reverse(result)
	return result, nil
}

func (r *Redis) load(ctx context.Context, conversationID string, start int64) ([]redisRecord, error) {
	raw, err := r.client.LRange(ctx, r.key(conversationID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis: read messages: %w", err)
	}

	records := make([]redisRecord, 0, len(raw))
	for _, item := range raw {
		var record redisRecord
		if err := json.Unmarshal([]byte(item), &record); err != nil {
			return nil, fmt.Errorf("redis: decode message: %w", err)
		}
		records = append(records, record)
	}
	return records, nil
}

func (r *Redis) DeleteAll(ctx context.Context, conversationID string) (int64, error) {
	var length *redis.IntCmd
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		length = pipe.LLen(ctx, r.key(conversationID))
		pipe.Del(ctx, r.key(conversationID))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis: delete messages: %w", err)
	}
	return length.Val(), nil
}

func (r *Redis) Count(ctx context.Context, conversationID string, role models.Role) (int64, error) {
	if role == "" {
		total, err := r.client.LLen(ctx, r.key(conversationID)).Result()
		if err != nil {
			return 0, fmt.Errorf("redis: count messages: %w", err)
		}
		return total, nil
	}

	records, err := r.load(ctx, conversationID, 0)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, record := range records {
		if record.Role == string(role) {
			total++
		}
	}
	return total, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close(context.Context) error {
	return r.client.Close()
}
