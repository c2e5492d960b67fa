package usecase

import (
	"context"
	"errors"
	"fmt"

	"carechat/internal/infrastructure/locking"
	chat "carechat/internal/pkg/chat/application/domain"
	repository "carechat/internal/pkg/chat/persistence/repository/port"
	identity "carechat/internal/pkg/identity/domain"
	notifyport "carechat/internal/pkg/notify/port"
)

// Broadcaster fans a freshly persisted message out to live connections.
// Delivery is best-effort notification; the persisted message is the source
// of truth.
type Broadcaster interface {
	MessageAppended(m chat.Message)
}

// SendMessageInput carries the data needed to append a message to a chat.
type SendMessageInput struct {
	ChatID  string
	Sender  identity.Ref
	Content string
}

// SendMessageUseCase appends a message and fans it out. Persist-then-broadcast
// is serialized per chat so live recipients observe messages in append order.
type SendMessageUseCase struct {
	Repo        repository.ChatRepository
	Broadcaster Broadcaster             // optional; nil when running in a worker
	Notifier    notifyport.Notifier     // optional
	chatLocks   *locking.KeyedMutex
}

func NewSendMessageUseCase(repo repository.ChatRepository) *SendMessageUseCase {
	return &SendMessageUseCase{Repo: repo, chatLocks: locking.NewKeyedMutex()}
}

// WithBroadcaster wires live fan-out into the send path.
func (uc *SendMessageUseCase) WithBroadcaster(b Broadcaster) *SendMessageUseCase {
	uc.Broadcaster = b
	return uc
}

// WithNotifier wires offline notification dispatch into the send path.
func (uc *SendMessageUseCase) WithNotifier(n notifyport.Notifier) *SendMessageUseCase {
	uc.Notifier = n
	return uc
}

// Execute validates membership, persists the message, then broadcasts it.
func (uc *SendMessageUseCase) Execute(ctx context.Context, in SendMessageInput) (*chat.Message, error) {
	c, err := uc.Repo.GetChat(ctx, in.ChatID)
	if err != nil {
		if errors.Is(err, repository.ErrChatNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !c.HasParticipant(in.Sender) {
		return nil, chat.ErrNotParticipant
	}

	msg, err := chat.NewMessage(in.ChatID, in.Sender, in.Content)
	if err != nil {
		return nil, err
	}

	// Holding the chat lock across persist and broadcast keeps fan-out in
	// append order for concurrent sends to the same chat.
	uc.chatLocks.Lock(in.ChatID)
	err = uc.Repo.SaveMessage(ctx, msg)
	if err == nil && uc.Broadcaster != nil {
		uc.Broadcaster.MessageAppended(*msg)
	}
	uc.chatLocks.Unlock(in.ChatID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if uc.Notifier != nil {
		for _, p := range c.Participants {
			if p.Equal(in.Sender) {
				continue
			}
			uc.Notifier.Notify(ctx, notifyport.Notification{
				Recipient: p,
				Event:     notifyport.EventNewMessage,
				ChatID:    c.ID,
				MessageID: msg.ID,
			})
		}
	}

	return msg, nil
}
