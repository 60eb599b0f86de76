// Package chat runs study-assistant exchanges: it builds prompt context from
// the conversation log, asks the model, and records both sides of the turn.
package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wuwenbin0122/studybot/internal/completion"
	"github.com/wuwenbin0122/studybot/internal/models"
	"github.com/wuwenbin0122/studybot/internal/store"
)

const (
	DefaultHistoryWindow = 6
	DefaultTemperature   = 0.3
)

// Exchange is the outcome of one question. Saved is false when the answer
// was generated but could not be recorded.
type Exchange struct {
	ConversationID string
	Question       string
	Answer         string
	Timestamp      time.Time
	Saved          bool
	HistoryTurns   int
	Degraded       bool
}

// Stats holds raw per-conversation record counts.
type Stats struct {
	Total     int64
	User      int64
	Assistant int64
}

type Service struct {
	store        store.Store
	provider     completion.Provider
	assembler    *HistoryAssembler
	logger       *zap.SugaredLogger
	systemPrompt string
	window       int
	temperature  float64
	now          func() time.Time
}

type Option func(*Service)

// WithHistoryWindow sets how many past exchanges are sent to the model.
func WithHistoryWindow(pairs int) Option {
	return func(s *Service) { s.window = pairs }
}

func WithTemperature(t float64) Option {
	return func(s *Service) { s.temperature = t }
}

func WithSystemPrompt(prompt string) Option {
	return func(s *Service) { s.systemPrompt = prompt }
}

func WithLogger(logger *zap.SugaredLogger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func NewService(st store.Store, provider completion.Provider, opts ...Option) *Service {
	s := &Service{
		store:        st,
		provider:     provider,
		logger:       zap.NewNop().Sugar(),
		systemPrompt: completion.StudyAssistantPrompt,
		window:       DefaultHistoryWindow,
		temperature:  DefaultTemperature,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.assembler = NewHistoryAssembler(st, s.logger)
	return s
}

// Converse answers question in the context of the conversation's recent
// history. History is read before anything is written so the new question
// never appears twice in the prompt.
//
// If the answer was generated but persisting it failed, Converse returns
// both the unsaved Exchange and a *StorageError.
func (s *Service) Converse(ctx context.Context, conversationID, question string) (*Exchange, error) {
	if strings.TrimSpace(conversationID) == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrValidation)
	}
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("%w: question is required", ErrValidation)
	}

	history := s.assembler.Assemble(ctx, conversationID, s.window)

	answer, err := s.provider.Complete(ctx, completion.Prompt{
		System:      s.systemPrompt,
		History:     history.Turns,
		Question:    question,
		Temperature: s.temperature,
	})
	if err != nil {
		s.logger.Warnw("completion failed", "user_id", conversationID, "error", err)
		return nil, &CompletionError{Err: err}
	}

	exchange := &Exchange{
		ConversationID: conversationID,
		Question:       question,
		Answer:         answer,
		Timestamp:      s.now().UTC(),
		HistoryTurns:   len(history.Turns),
		Degraded:       history.Degraded(),
	}

	if _, err := s.store.Insert(ctx, conversationID, models.RoleUser, question); err != nil {
		s.logger.Errorw("saving question failed", "user_id", conversationID, "error", err)
		return exchange, &StorageError{Op: "insert user message", Err: err}
	}

	reply, err := s.store.Insert(ctx, conversationID, models.RoleAssistant, answer)
	if err != nil {
		s.logger.Errorw("saving answer failed", "user_id", conversationID, "error", err)
		return exchange, &StorageError{Op: "insert assistant message", Err: err}
	}

	exchange.Timestamp = reply.CreatedAt
	exchange.Saved = true

	s.logger.Debugw("exchange recorded",
		"user_id", conversationID,
		"history_turns", exchange.HistoryTurns,
		"degraded", exchange.Degraded,
	)

	return exchange, nil
}

// History returns every stored record of the conversation, newest first.
func (s *Service) History(ctx context.Context, conversationID string) ([]models.Message, error) {
	messages, err := s.store.QueryAll(ctx, conversationID)
	if err != nil {
		return nil, &StorageError{Op: "query all", Err: err}
	}
	return messages, nil
}

// Clear deletes the conversation and returns how many records were removed.
func (s *Service) Clear(ctx context.Context, conversationID string) (int64, error) {
	removed, err := s.store.DeleteAll(ctx, conversationID)
	if err != nil {
		return 0, &StorageError{Op: "delete all", Err: err}
	}
	s.logger.Infow("history cleared", "user_id", conversationID, "removed", removed)
	return removed, nil
}

func (s *Service) Stats(ctx context.Context, conversationID string) (Stats, error) {
	var (
		stats Stats
		err   error
	)

	if stats.Total, err = s.store.Count(ctx, conversationID, ""); err != nil {
		return Stats{}, &StorageError{Op: "count", Err: err}
	}
	if stats.User, err = s.store.Count(ctx, conversationID, models.RoleUser); err != nil {
		return Stats{}, &StorageError{Op: "count user", Err: err}
	}
	if stats.Assistant, err = s.store.Count(ctx, conversationID, models.RoleAssistant); err != nil {
		return Stats{}, &StorageError{Op: "count assistant", Err: err}
	}

	return stats, nil
}

// Ping checks that the message store is reachable.
func (s *Service) Ping(ctx context.Context) error {
	if err := s.store.Ping(ctx); err != nil {
		return &StorageError{Op: "ping", Err: err}
	}
	return nil
}
