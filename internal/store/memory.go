package store

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/wuwenbin0122/studybot/internal/models"
)

// Memory keeps conversations in process memory. It backs local development
// and tests; nothing survives a restart.
type Memory struct {
	opts storeOptions

	mu            sync.RWMutex
	seq           int64
	conversations map[string][]models.Message
}

func NewMemory(opts ...Option) *Memory {
	return &Memory{
		opts:          buildOptions(opts),
		conversations: make(map[string][]models.Message),
	}
}

func (m *Memory) Insert(ctx context.Context, conversationID string, role models.Role, text string) (*models.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.seq++
	msg := models.Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Text:           text,
		CreatedAt:      m.opts.stamp(),
		Seq:            m.seq,
	}
	m.conversations[conversationID] = append(m.conversations[conversationID], msg)

	return &msg, nil
}

func (m *Memory) QueryRecent(ctx context.Context, conversationID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	return m.query(ctx, conversationID, limit)
}

func (m *Memory) QueryAll(ctx context.Context, conversationID string) ([]models.Message, error) {
	return m.query(ctx, conversationID, 0)
}

func (m *Memory) query(ctx context.Context, conversationID string, limit int) ([]models.Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	log := m.conversations[conversationID]
	start := 0
	if limit > 0 && len(log) > limit {
		start = len(log) - limit
	}

	result := make([]models.Message, len(log)-start)
	copy(result, log[start:])
	reverse(result)

	return result, nil
}

func (m *Memory) DeleteAll(ctx context.Context, conversationID string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := int64(len(m.conversations[conversationID]))
	delete(m.conversations, conversationID)

	return removed, nil
}

func (m *Memory) Count(ctx context.Context, conversationID string, role models.Role) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var total int64
	for _, msg := range m.conversations[conversationID] {
		if role == "" || msg.Role == role {
			total++
		}
	}

	return total, nil
}

func (m *Memory) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (m *Memory) Close(context.Context) error {
	return nil
}
