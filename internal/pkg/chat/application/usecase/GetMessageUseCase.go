package usecase

import (
	"context"
	"errors"
	"fmt"

	chat "carechat/internal/pkg/chat/application/domain"
	repository "carechat/internal/pkg/chat/persistence/repository/port"
)

// GetMessageInput carries parameters to fetch messages of a chat.
type GetMessageInput struct {
	ChatID string
	Limit  int
	Offset int
}

// GetMessageUseCase returns messages oldest first: history is replayed
// top-to-bottom, unlike the newest-first request listings.
type GetMessageUseCase struct {
	Repo repository.ChatRepository
}

func NewGetMessageUseCase(repo repository.ChatRepository) *GetMessageUseCase {
	return &GetMessageUseCase{Repo: repo}
}

func (uc *GetMessageUseCase) Execute(ctx context.Context, in GetMessageInput) ([]chat.Message, error) {
	if in.ChatID == "" {
		return nil, fmt.Errorf("chat_id is required")
	}
	msgs, err := uc.Repo.GetMessagesByChat(ctx, in.ChatID, in.Limit, in.Offset)
	if err != nil {
		if errors.Is(err, repository.ErrChatNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return msgs, nil
}
