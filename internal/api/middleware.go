package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/wuwenbin0122/studybot/internal/auth"
)

const requestIDHeader = "X-Request-ID"

var (
	errMissingToken   = errors.New("missing bearer token")
	errUserIDMismatch = errors.New("token does not grant access to this user_id")
)

// CORS allows every origin when origins is empty or contains "*".
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "Authorization", requestIDHeader},
		ExposeHeaders: []string{requestIDHeader},
		MaxAge:        12 * time.Hour,
	}

	allowAll := len(origins) == 0
	for _, origin := range origins {
		if origin == "*" {
			allowAll = true
		}
	}

	if allowAll {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}

	return cors.New(cfg)
}

// RequestLogger tags each request with an id and logs it once it completes.
func RequestLogger(logger *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		c.Next()

		status := c.Writer.Status()
		fields := []interface{}{
			"request_id", requestID,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", status,
			"latency", time.Since(start),
			"client_ip", c.ClientIP(),
		}

		switch {
		case status >= http.StatusInternalServerError:
			logger.Errorw("request failed", fields...)
		case status >= http.StatusBadRequest:
			logger.Warnw("request rejected", fields...)
		default:
			logger.Infow("request served", fields...)
		}
	}
}

func (h *Handler) requireToken(c *gin.Context) {
	token := auth.BearerToken(c.GetHeader("Authorization"))
	if token == "" {
		token = c.Query("token")
	}
	if token == "" {
		writeError(c, http.StatusUnauthorized, "unauthorized", errMissingToken)
		c.Abort()
		return
	}

	subject, err := h.authService.VerifyToken(token)
	if err != nil {
		writeError(c, http.StatusUnauthorized, "unauthorized", err)
		c.Abort()
		return
	}

	c.Set(subjectKey, subject)
	c.Next()
}

// authorize checks the token subject against userID when auth is enabled and
// writes a 403 when they differ.
func (h *Handler) authorize(c *gin.Context, userID string) bool {
	if h.authService == nil {
		return true
	}

	if c.GetString(subjectKey) != userID {
		writeError(c, http.StatusForbidden, "forbidden", errUserIDMismatch)
		return false
	}
	return true
}
