package models

import "time"

// Role tags who produced a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Valid reports whether r is one of the roles written by the chat service.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is a single immutable entry in a conversation log.
type Message struct {
	ID             string
	ConversationID string
	Role           Role
	Text           string
	CreatedAt      time.Time
	// Seq breaks CreatedAt ties; only comparable within one backend.
	Seq int64
}
