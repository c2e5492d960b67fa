package chat

import (
	"errors"
	"strings"
	"time"

	identity "carechat/internal/pkg/identity/domain"
)

var ErrEmptyMessage = errors.New("chat: message content is empty")

// Message is an immutable log entry in a chat. Ordering within a chat follows
// creation order, which persistence preserves even for same-millisecond sends.
type Message struct {
	ID        string
	ChatID    string
	Sender    identity.Ref
	Content   string
	CreatedAt time.Time
}

// NewMessage validates and builds a message. Content is trimmed and must be
// non-empty after trimming; membership of the sender is checked by the caller
// against the current participant set.
func NewMessage(chatID string, sender identity.Ref, content string) (*Message, error) {
	if chatID == "" || sender.Zero() {
		return nil, errors.New("chat: chat id and sender are required")
	}
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil, ErrEmptyMessage
	}
	return &Message{
		ChatID:    chatID,
		Sender:    sender,
		Content:   trimmed,
		CreatedAt: time.Now().UTC(),
	}, nil
}
