package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/wuwenbin0122/studybot/internal/chat"
)

const maxSocketMessageBytes = 64 * 1024

var chatUpgrader = websocket.Upgrader{
	ReadBufferSize:  4 * 1024,
	WriteBufferSize: 4 * 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type socketError struct {
	Error   string `json:"error"`
	Details string `json:"details"`
}

// handleChatSocket runs one exchange per inbound frame over a long-lived
// websocket. Frames use the same shapes as POST /chat.
func (h *Handler) handleChatSocket(c *gin.Context) {
	conn, err := chatUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Warnw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	conn.SetReadLimit(maxSocketMessageBytes)
	subject := c.GetString(subjectKey)

	for {
		var req chatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.logger.Warnw("websocket read failed", "error", err)
			}
			return
		}

		if h.authService != nil && req.UserID != subject {
			if err := conn.WriteJSON(socketError{Error: "forbidden", Details: errUserIDMismatch.Error()}); err != nil {
				return
			}
			continue
		}

		exchange, err := h.chat.Converse(c.Request.Context(), req.UserID, req.Question)
		var reply any
		switch {
		case err == nil:
			reply = chatResponse{Response: exchange.Answer, UserID: req.UserID, Timestamp: formatTimestamp(exchange.Timestamp)}
		case errors.Is(err, chat.ErrValidation):
			reply = socketError{Error: "invalid payload", Details: err.Error()}
		default:
			h.logger.Errorw("socket chat processing failed", "user_id", req.UserID, "error", err)
			reply = socketError{Error: "chat processing error", Details: err.Error()}
		}

		if err := conn.WriteJSON(reply); err != nil {
			h.logger.Warnw("websocket write failed", "error", err)
			return
		}
	}
}
