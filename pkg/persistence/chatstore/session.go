package chatstore

import (
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// StorageKey is the key under which the whole session collection is persisted.
const StorageKey = "chefbot_chats"

const (
	titleMaxRunes = 30
	titleEllipsis = "..."
	sessionPrefix = "chat_"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation. Messages are immutable once written,
// except for the last assistant message which may be truncated by a stop.
type Message struct {
	Role    Role   `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// Session is a single conversation as persisted in the store.
type Session struct {
	ID        string    `json:"id" yaml:"id"`
	Title     string    `json:"title" yaml:"title"`
	Messages  []Message `json:"messages" yaml:"messages"`
	Timestamp int64     `json:"timestamp" yaml:"timestamp"`
}

// Summary is what the sidebar renders for a session.
type Summary struct {
	ID           string `json:"id" yaml:"id"`
	Title        string `json:"title" yaml:"title"`
	LastActivity int64  `json:"last_activity_ms" yaml:"last_activity_ms"`
	MessageCount int    `json:"message_count" yaml:"message_count"`
}

// DeriveTitle returns the first 30 characters of the first user message,
// followed by an ellipsis when the message is longer.
func DeriveTitle(firstMessage string) string {
	if utf8.RuneCountInString(firstMessage) <= titleMaxRunes {
		return firstMessage
	}
	runes := []rune(firstMessage)
	return string(runes[:titleMaxRunes]) + titleEllipsis
}

func NewSessionID() string {
	return sessionPrefix + uuid.NewString()
}

func (s Session) clone() Session {
	out := s
	out.Messages = append([]Message(nil), s.Messages...)
	return out
}

func (s Session) summary() Summary {
	return Summary{
		ID:           s.ID,
		Title:        s.Title,
		LastActivity: s.Timestamp,
		MessageCount: len(s.Messages),
	}
}

func validRole(r Role) bool {
	switch Role(strings.ToLower(string(r))) {
	case RoleUser, RoleAssistant:
		return true
	default:
		return false
	}
}
