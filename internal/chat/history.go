package chat

import (
	"context"

	"go.uber.org/zap"

	"github.com/wuwenbin0122/studybot/internal/completion"
	"github.com/wuwenbin0122/studybot/internal/models"
	"github.com/wuwenbin0122/studybot/internal/store"
)

// HistoryResult is the prompt context for one exchange. A non-nil Cause
// means the store read failed and Turns was left empty.
type HistoryResult struct {
	Turns []completion.Turn
	Cause error
}

func (r HistoryResult) Degraded() bool {
	return r.Cause != nil
}

// HistoryAssembler turns the tail of a conversation log into prompt turns.
type HistoryAssembler struct {
	store  store.Store
	logger *zap.SugaredLogger
}

func NewHistoryAssembler(st store.Store, logger *zap.SugaredLogger) *HistoryAssembler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &HistoryAssembler{store: st, logger: logger}
}

// Assemble returns up to windowPairs user/assistant exchanges, oldest first.
// Records with any other role are skipped.
func (a *HistoryAssembler) Assemble(ctx context.Context, conversationID string, windowPairs int) HistoryResult {
	if windowPairs <= 0 {
		return HistoryResult{}
	}

	records, err := a.store.QueryRecent(ctx, conversationID, 2*windowPairs)
	if err != nil {
		a.logger.Warnw("history read failed, continuing without context",
			"user_id", conversationID,
			"error", err,
		)
		return HistoryResult{Cause: &StorageError{Op: "query recent", Err: err}}
	}

	turns := make([]completion.Turn, 0, len(records))
	for i := len(records) - 1; i >= 0; i-- {
		record := records[i]
		if !record.Role.Valid() {
			continue
		}

		speaker := completion.SpeakerHuman
		if record.Role == models.RoleAssistant {
			speaker = completion.SpeakerAI
		}
		turns = append(turns, completion.Turn{Speaker: speaker, Text: record.Text})
	}

	return HistoryResult{Turns: turns}
}
