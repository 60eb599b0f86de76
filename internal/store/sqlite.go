package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"

	"github.com/wuwenbin0122/studybot/internal/models"
)

type messageRow struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	UserID    string    `gorm:"not null;index:idx_conversations_user_recent,priority:1"`
	Role      string    `gorm:"not null"`
	Message   string    `gorm:"not null"`
	Timestamp time.Time `gorm:"not null;index:idx_conversations_user_recent,priority:2"`
}

func (messageRow) TableName() string {
	return "conversations"
}

func (r messageRow) toModel() models.Message {
	return models.Message{
		ID:             strconv.FormatInt(r.ID, 10),
		ConversationID: r.UserID,
		Role:           models.Role(r.Role),
		Text:           r.Message,
		CreatedAt:      r.Timestamp.UTC(),
		Seq:            r.ID,
	}
}

// SQLite is an embedded single-file backend built on gorm.
type SQLite struct {
	db   *gorm.DB
	opts storeOptions
}

// NewSQLite migrates the conversations table on gormDB and returns the store.
func NewSQLite(gormDB *gorm.DB, opts ...Option) (*SQLite, error) {
	if err := gormDB.AutoMigrate(&messageRow{}); err != nil {
		return nil, fmt.Errorf("sqlite: migrate conversations: %w", err)
	}
	return &SQLite{db: gormDB, opts: buildOptions(opts)}, nil
}

func (s *SQLite) Insert(ctx context.Context, conversationID string, role models.Role, text string) (*models.Message, error) {
	row := messageRow{
		UserID:    conversationID,
		Role:      string(role),
		Message:   text,
		Timestamp: s.opts.stamp(),
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("sqlite: insert message: %w", err)
	}

	msg := row.toModel()
	return &msg, nil
}

func (s *SQLite) QueryRecent(ctx context.Context, conversationID string, limit int) ([]models.Message, error) {
	if limit <= 0 {
		return nil, ErrInvalidLimit
	}
	return s.find(ctx, conversationID, limit)
}

func (s *SQLite) QueryAll(ctx context.Context, conversationID string) ([]models.Message, error) {
	return s.find(ctx, conversationID, 0)
}

func (s *SQLite) find(ctx context.Context, conversationID string, limit int) ([]models.Message, error) {
	query := s.db.WithContext(ctx).
		Where("user_id = ?", conversationID).
		Order("timestamp DESC").
		Order("id DESC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var rows []messageRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("sqlite: query messages: %w", err)
	}

	result := make([]models.Message, 0, len(rows))
	for _, row := range rows {
		result = append(result, row.toModel())
	}
	return result, nil
}

func (s *SQLite) DeleteAll(ctx context.Context, conversationID string) (int64, error) {
	res := s.db.WithContext(ctx).Where("user_id = ?", conversationID).Delete(&messageRow{})
	if res.Error != nil {
		return 0, fmt.Errorf("sqlite: delete messages: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *SQLite) Count(ctx context.Context, conversationID string, role models.Role) (int64, error) {
	query := s.db.WithContext(ctx).Model(&messageRow{}).Where("user_id = ?", conversationID)
	if role != "" {
		query = query.Where("role = ?", string(role))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, fmt.Errorf("sqlite: count messages: %w", err)
	}
	return total, nil
}

func (s *SQLite) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQLite) Close(context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("sqlite: %w", err)
	}
	return sqlDB.Close()
}
