package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wuwenbin0122/studybot/internal/auth"
	"github.com/wuwenbin0122/studybot/internal/chat"
	"github.com/wuwenbin0122/studybot/internal/models"
)

const (
	serviceVersion = "1.0"
	subjectKey     = "auth.subject"
)

type Handler struct {
	chat        *chat.Service
	authService *auth.Service
	logger      *zap.SugaredLogger

	deliverUnsaved bool
}

// NewHandler wires the HTTP surface to svc. A nil authService leaves every
// route open.
func NewHandler(svc *chat.Service, authService *auth.Service, logger *zap.SugaredLogger) *Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Handler{chat: svc, authService: authService, logger: logger}
}

// SetDeliverUnsaved makes /chat return a generated answer even when it could
// not be stored, flagged with "saved": false.
func (h *Handler) SetDeliverUnsaved(enabled bool) {
	h.deliverUnsaved = enabled
}

func (h *Handler) RegisterRoutes(router *gin.Engine) {
	router.GET("/", h.handleIndex)
	router.GET("/health", h.handleHealth)

	protected := router.Group("/")
	if h.authService != nil {
		protected.Use(h.requireToken)
	}

	protected.POST("/chat", h.handleChat)
	protected.GET("/history/:user_id", h.handleHistory)
	protected.DELETE("/history/:user_id", h.handleClearHistory)
	protected.GET("/stats/:user_id", h.handleStats)
	protected.GET("/ws/chat", h.handleChatSocket)
}

type chatRequest struct {
	UserID   string `json:"user_id" binding:"required"`
	Question string `json:"question" binding:"required"`
}

type chatResponse struct {
	Response  string `json:"response"`
	UserID    string `json:"user_id"`
	Timestamp string `json:"timestamp"`
	Saved     *bool  `json:"saved,omitempty"`
}

type historyMessage struct {
	Role      string `json:"role"`
	Message   string `json:"message"`
	Timestamp string `json:"timestamp"`
}

type historyResponse struct {
	UserID        string           `json:"user_id"`
	TotalMessages int              `json:"total_messages"`
	Messages      []historyMessage `json:"messages"`
}

type statsResponse struct {
	UserID            string `json:"user_id"`
	TotalMessages     int64  `json:"total_messages"`
	UserMessages      int64  `json:"user_messages"`
	AssistantMessages int64  `json:"assistant_messages"`
}

func (h *Handler) handleIndex(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"message": "Study Bot API is running",
		"status":  "active",
		"version": serviceVersion,
		"endpoints": gin.H{
			"chat":          "POST /chat",
			"history":       "GET /history/{user_id}",
			"clear_history": "DELETE /history/{user_id}",
			"stats":         "GET /stats/{user_id}",
			"chat_socket":   "GET /ws/chat",
		},
	})
}

func (h *Handler) handleHealth(c *gin.Context) {
	status, code := "ok", http.StatusOK
	if err := h.chat.Ping(c.Request.Context()); err != nil {
		h.logger.Warnw("health check failed", "error", err)
		status, code = "degraded", http.StatusServiceUnavailable
	}

	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *Handler) handleChat(c *gin.Context) {
	var req chatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, http.StatusBadRequest, "invalid payload", err)
		return
	}

	if !h.authorize(c, req.UserID) {
		return
	}

	exchange, err := h.chat.Converse(c.Request.Context(), req.UserID, req.Question)
	if err != nil {
		var storageErr *chat.StorageError
		if exchange != nil && h.deliverUnsaved && errors.As(err, &storageErr) {
			h.logger.Warnw("delivering unsaved answer", "user_id", req.UserID, "error", err)
			saved := false
			c.JSON(http.StatusOK, chatResponse{
				Response:  exchange.Answer,
				UserID:    req.UserID,
				Timestamp: formatTimestamp(exchange.Timestamp),
				Saved:     &saved,
			})
			return
		}

		if errors.Is(err, chat.ErrValidation) {
			writeError(c, http.StatusBadRequest, "invalid payload", err)
			return
		}

		h.logger.Errorw("chat processing failed", "user_id", req.UserID, "error", err)
		writeError(c, http.StatusInternalServerError, "chat processing error", err)
		return
	}

	c.JSON(http.StatusOK, chatResponse{
		Response:  exchange.Answer,
		UserID:    req.UserID,
		Timestamp: formatTimestamp(exchange.Timestamp),
	})
}

func (h *Handler) handleHistory(c *gin.Context) {
	userID := c.Param("user_id")
	if !h.authorize(c, userID) {
		return
	}

	records, err := h.chat.History(c.Request.Context(), userID)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "error retrieving history", err)
		return
	}

	c.JSON(http.StatusOK, historyResponse{
		UserID:        userID,
		TotalMessages: len(records),
		Messages:      toHistoryMessages(records),
	})
}

func (h *Handler) handleClearHistory(c *gin.Context) {
	userID := c.Param("user_id")
	if !h.authorize(c, userID) {
		return
	}

	removed, err := h.chat.Clear(c.Request.Context(), userID)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "error clearing history", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": fmt.Sprintf("Deleted %d messages", removed),
		"user_id": userID,
	})
}

func (h *Handler) handleStats(c *gin.Context) {
	userID := c.Param("user_id")
	if !h.authorize(c, userID) {
		return
	}

	stats, err := h.chat.Stats(c.Request.Context(), userID)
	if err != nil {
		writeError(c, http.StatusInternalServerError, "error getting stats", err)
		return
	}

	c.JSON(http.StatusOK, statsResponse{
		UserID:            userID,
		TotalMessages:     stats.Total,
		UserMessages:      stats.User,
		AssistantMessages: stats.Assistant,
	})
}

func toHistoryMessages(records []models.Message) []historyMessage {
	messages := make([]historyMessage, 0, len(records))
	for _, record := range records {
		messages = append(messages, historyMessage{
			Role:      string(record.Role),
			Message:   record.Text,
			Timestamp: formatTimestamp(record.CreatedAt),
		})
	}
	return messages
}

func formatTimestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func writeError(c *gin.Context, status int, message string, err error) {
	c.JSON(status, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}
