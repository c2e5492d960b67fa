package adapter

import (
	"context"
	"sort"
	"sync"
	"time"

	chat "carechat/internal/pkg/chat/application/domain"
	repository "carechat/internal/pkg/chat/persistence/repository/port"
	identity "carechat/internal/pkg/identity/domain"

	"github.com/google/uuid"
)

// MemoryChatRepository is an in-memory registry and message store for tests
// and local development. Message order per chat is insertion order, matching
// the seq column of the Postgres adapter.
type MemoryChatRepository struct {
	mu       sync.RWMutex
	chats    map[string]chat.Chat
	bySource map[string]string // source request id -> chat id
	messages map[string][]chat.Message
}

func NewMemoryChatRepository() *MemoryChatRepository {
	return &MemoryChatRepository{
		chats:    make(map[string]chat.Chat),
		bySource: make(map[string]string),
		messages: make(map[string][]chat.Message),
	}
}

var _ repository.ChatRepository = (*MemoryChatRepository)(nil)

func (m *MemoryChatRepository) CreateChat(ctx context.Context, c *chat.Chat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c.SourceRequestID != "" {
		if _, exists := m.bySource[c.SourceRequestID]; exists {
			return repository.ErrDuplicateSourceRequest
		}
	}
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	m.chats[c.ID] = cloneChat(*c)
	if c.SourceRequestID != "" {
		m.bySource[c.SourceRequestID] = c.ID
	}
	return nil
}

func (m *MemoryChatRepository) GetChat(ctx context.Context, id string) (*chat.Chat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stored, ok := m.chats[id]
	if !ok {
		return nil, repository.ErrChatNotFound
	}
	cp := cloneChat(stored)
	return &cp, nil
}

func (m *MemoryChatRepository) FindBySourceRequest(ctx context.Context, requestID string) (*chat.Chat, error) {
	m.mu.RLock()
	id, ok := m.bySource[requestID]
	m.mu.RUnlock()
	if !ok {
		return nil, repository.ErrChatNotFound
	}
	return m.GetChat(ctx, id)
}

func (m *MemoryChatRepository) FindPrivateBetween(ctx context.Context, a identity.Ref, b identity.Ref) (*chat.Chat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.chats {
		if c.IsGroup {
			continue
		}
		if c.HasParticipant(a) && c.HasParticipant(b) {
			cp := cloneChat(c)
			return &cp, nil
		}
	}
	return nil, repository.ErrChatNotFound
}

func (m *MemoryChatRepository) AddParticipant(ctx context.Context, chatID string, ref identity.Ref) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.chats[chatID]
	if !ok {
		return repository.ErrChatNotFound
	}
	stored.AddParticipant(ref)
	m.chats[chatID] = stored
	return nil
}

func (m *MemoryChatRepository) SaveMessage(ctx context.Context, msg *chat.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.chats[msg.ChatID]
	if !ok {
		return repository.ErrChatNotFound
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}
	m.messages[msg.ChatID] = append(m.messages[msg.ChatID], *msg)
	stored.LatestMessageID = msg.ID
	m.chats[msg.ChatID] = stored
	return nil
}

func (m *MemoryChatRepository) GetMessagesByChat(ctx context.Context, chatID string, limit int, offset int) ([]chat.Message, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.chats[chatID]; !ok {
		return nil, repository.ErrChatNotFound
	}
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	all := m.messages[chatID]
	if offset >= len(all) {
		return nil, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	out := make([]chat.Message, end-offset)
	copy(out, all[offset:end])
	return out, nil
}

func (m *MemoryChatRepository) ListChatsByParticipant(ctx context.Context, ref identity.Ref) ([]chat.Chat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []chat.Chat
	for _, c := range m.chats {
		if c.HasParticipant(ref) {
			out = append(out, cloneChat(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func cloneChat(c chat.Chat) chat.Chat {
	participants := make([]identity.Ref, len(c.Participants))
	copy(participants, c.Participants)
	c.Participants = participants
	if c.Owner != nil {
		owner := *c.Owner
		c.Owner = &owner
	}
	return c
}
