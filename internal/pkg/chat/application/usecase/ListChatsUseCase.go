package usecase

import (
	"context"
	"fmt"

	chat "carechat/internal/pkg/chat/application/domain"
	repository "carechat/internal/pkg/chat/persistence/repository/port"
	identity "carechat/internal/pkg/identity/domain"
)

// ListChatsInput wraps the participant whose chats are listed.
type ListChatsInput struct {
	Participant identity.Ref
}

// ListChatsUseCase returns the participant's chats, newest first.
type ListChatsUseCase struct {
	Repo repository.ChatRepository
}

func NewListChatsUseCase(repo repository.ChatRepository) *ListChatsUseCase {
	return &ListChatsUseCase{Repo: repo}
}

func (uc *ListChatsUseCase) Execute(ctx context.Context, in ListChatsInput) ([]chat.Chat, error) {
	if in.Participant.Zero() {
		return nil, fmt.Errorf("participant is required")
	}
	chats, err := uc.Repo.ListChatsByParticipant(ctx, in.Participant)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return chats, nil
}
