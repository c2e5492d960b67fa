package repository

import (
	"context"
	"errors"

	chat "carechat/internal/pkg/chat/application/domain"
	identity "carechat/internal/pkg/identity/domain"
)

var (
	// ErrChatNotFound is returned when no chat matches the lookup.
	ErrChatNotFound = errors.New("chat repository: chat not found")
	// ErrDuplicateSourceRequest is returned by CreateChat when another chat
	// already claimed the same source request; callers re-read and return
	// the winner.
	ErrDuplicateSourceRequest = errors.New("chat repository: chat already exists for source request")
)

// ChatRepository defines persistence for chats and their message log.
type ChatRepository interface {
	// CreateChat persists a new chat, assigning its id. At most one chat may
	// exist per source request; violating that yields
	// ErrDuplicateSourceRequest.
	CreateChat(ctx context.Context, c *chat.Chat) error

	// GetChat loads a chat with its full participant set.
	GetChat(ctx context.Context, id string) (*chat.Chat, error)

	// FindBySourceRequest returns the chat materialized from the request,
	// or ErrChatNotFound.
	FindBySourceRequest(ctx context.Context, requestID string) (*chat.Chat, error)

	// FindPrivateBetween returns the private chat for the unordered pair,
	// or ErrChatNotFound.
	FindPrivateBetween(ctx context.Context, a identity.Ref, b identity.Ref) (*chat.Chat, error)

	// AddParticipant adds ref to the chat's participant set (add-if-absent).
	AddParticipant(ctx context.Context, chatID string, ref identity.Ref) error

	// SaveMessage appends a message, assigning its id, and moves the chat's
	// latest-message pointer best-effort: a failed pointer update does not
	// fail the append.
	SaveMessage(ctx context.Context, m *chat.Message) error

	// GetMessagesByChat returns messages oldest first for conversational
	// replay.
	GetMessagesByChat(ctx context.Context, chatID string, limit int, offset int) ([]chat.Message, error)

	// ListChatsByParticipant returns the participant's chats, most recently
	// created first.
	ListChatsByParticipant(ctx context.Context, ref identity.Ref) ([]chat.Chat, error)
}
