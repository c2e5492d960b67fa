package usecase

import (
	"context"
	"errors"
	"fmt"

	chat "carechat/internal/pkg/chat/application/domain"
	repository "carechat/internal/pkg/chat/persistence/repository/port"
	identity "carechat/internal/pkg/identity/domain"
)

// JoinChatInput validates a request to attach a live session to a chat room.
type JoinChatInput struct {
	ChatID      string
	Participant identity.Ref
}

// JoinChatUseCase ensures the participant belongs to the chat before the
// session joins its realtime room.
type JoinChatUseCase struct {
	Repo repository.ChatRepository
}

func NewJoinChatUseCase(repo repository.ChatRepository) *JoinChatUseCase {
	return &JoinChatUseCase{Repo: repo}
}

func (uc *JoinChatUseCase) Execute(ctx context.Context, in JoinChatInput) error {
	if in.ChatID == "" || in.Participant.Zero() {
		return fmt.Errorf("chat_id and participant are required")
	}

	c, err := uc.Repo.GetChat(ctx, in.ChatID)
	if err != nil {
		if errors.Is(err, repository.ErrChatNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !c.HasParticipant(in.Participant) {
		return chat.ErrNotParticipant
	}
	return nil
}
