package store

import (
	"context"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"

	"github.com/wuwenbin0122/studybot/internal/db"
	"github.com/wuwenbin0122/studybot/internal/models"
)

// Postgres stores messages in the conversations table created by
// db.Postgres.EnsureSchema; the BIGSERIAL id breaks timestamp ties.
type Postgres struct {
	conn *db.Postgres
	opts storeOptions
}

func NewPostgres(conn *db.Postgres, opts ...Option) *Postgres {
	return &Postgres{conn: conn, opts: buildOptions(opts)}
}

const selectMessages = `SELECT id, user_id, role, message, timestamp FROM conversations WHERE user_id = $1 ORDER BY timestamp DESC, id DESC`

func (p *Postgres) Insert(ctx context.Context, conversationID string, role models.Role, text string) (*models.Message, error) {
	msg := models.Message{
		ConversationID: conversationID,
		Role:           role,
		Text:           text,
		CreatedAt:      p.opts.stamp(),
	}

	const query = `INSERT INTO conversations (user_id, role, message, timestamp) VALUES ($1, $2, $3, $4) RETURNING id`
	if err := p.conn.Pool.QueryRow(ctx, query, conversationID, string(role), text, msg.CreatedAt).Scan(&msg.Seq); err != nil {
		return nil, fmt.Errorf("postgres: insert message: %w", err)
	}
	msg.ID = strconv.FormatInt(msg.Seq, 10)

	return &msg, nil
}

func (p *Postgres) QueryRecent(ctx context.Context, conversationID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	return p.query(ctx, selectMessages+" LIMIT $2", conversationID, limit)
}

func (p *Postgres) QueryAll(ctx context.Context, conversationID string) ([]models.Message, error) {
	return p.query(ctx, selectMessages, conversationID)
}

func (p *Postgres) query(ctx context.Context, query string, args ...any) ([]models.Message, error) {
	rows, err := p.conn.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: query messages: %w", err)
	}

	messages, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (models.Message, error) {
		var (
			msg  models.Message
			role string
		)
		if err := row.Scan(&msg.Seq, &msg.ConversationID, &role, &msg.Text, &msg.CreatedAt); err != nil {
			return msg, err
		}
		msg.ID = strconv.FormatInt(msg.Seq, 10)
		msg.Role = models.Role(role)
		msg.CreatedAt = msg.CreatedAt.UTC()
		return msg, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: scan messages: %w", err)
	}

	return messages, nil
}

func (p *Postgres) DeleteAll(ctx context.Context, conversationID string) (int64, error) {
	tag, err := p.conn.Pool.Exec(ctx, `DELETE FROM conversations WHERE user_id = $1`, conversationID)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete messages: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (p *Postgres) Count(ctx context.Context, conversationID string, role models.Role) (int64, error) {
	var (
		total int64
		err   error
	)
	if role == "" {
		err = p.conn.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM conversations WHERE user_id = $1`, conversationID).Scan(&total)
	} else {
		err = p.conn.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM conversations WHERE user_id = $1 AND role = $2`, conversationID, string(role)).Scan(&total)
	}
	if err != nil {
		return 0, fmt.Errorf("postgres: count messages: %w", err)
	}
	return total, nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.conn.Ping(ctx)
}

func (p *Postgres) Close(context.Context) error {
	p.conn.Close()
	return nil
}
