// Package store persists conversation logs. Every backend keeps records
// append-only and returns them newest first, breaking timestamp ties by
// insertion order.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/wuwenbin0122/studybot/internal/models"
)

// ErrInvalidLimit is returned by QueryRecent for a non-positive limit.
var ErrInvalidLimit = errors.New("store: limit must be positive")

// Store is the message log consumed by the chat service.
type Store interface {
	// Insert stamps the record with the store clock and appends it.
	Insert(ctx context.Context, conversationID string, role models.Role, text string) (*models.Message, error)
	// QueryRecent returns up to limit records, newest first.
	QueryRecent(ctx context.Context, conversationID string, limit int) ([]models.Message, error)
	// QueryAll returns every record of the conversation, newest first.
	QueryAll(ctx context.Context, conversationID string) ([]models.Message, error)
	// DeleteAll removes the conversation and reports how many records went with it.
	DeleteAll(ctx context.Context, conversationID string) (int64, error)
	// Count counts records of the conversation; an empty role counts all of them.
	Count(ctx context.Context, conversationID string, role models.Role) (int64, error)
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

type Option func(*storeOptions)

type storeOptions struct {
	clock func() time.Time
}

// WithClock overrides the clock used to stamp inserted records.
func WithClock(clock func() time.Time) Option {
	return func(o *storeOptions) {
		if clock != nil {
			o.clock = clock
		}
	}
}

func buildOptions(opts []Option) storeOptions {
	o := storeOptions{clock: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// stamp truncates to milliseconds, the resolution of BSON dates, so every
// backend hands back the same timestamp it was given.
func (o storeOptions) stamp() time.Time {
	return o.clock().UTC().Truncate(time.Millisecond)
}

func reverse(messages []models.Message) {
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
}
