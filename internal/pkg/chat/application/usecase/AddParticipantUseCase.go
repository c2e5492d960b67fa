package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"

	chat "carechat/internal/pkg/chat/application/domain"
	repository "carechat/internal/pkg/chat/persistence/repository/port"
	identity "carechat/internal/pkg/identity/domain"
	idport "carechat/internal/pkg/identity/port"
)

// AddParticipantInput identifies the group chat and the participant to add.
type AddParticipantInput struct {
	ChatID      string
	Participant identity.Ref
}

// AddParticipantUseCase grows a group chat by accretion as a late acceptance
// arrives. Adding an existing participant is a no-op.
type AddParticipantUseCase struct {
	Repo      repository.ChatRepository
	Directory idport.Directory
}

func NewAddParticipantUseCase(repo repository.ChatRepository, directory idport.Directory) *AddParticipantUseCase {
	return &AddParticipantUseCase{Repo: repo, Directory: directory}
}

func (uc *AddParticipantUseCase) Execute(ctx context.Context, in AddParticipantInput) (*chat.Chat, error) {
	c, err := uc.Repo.GetChat(ctx, in.ChatID)
	if err != nil {
		if errors.Is(err, repository.ErrChatNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if !c.IsGroup {
		return nil, chat.ErrNotAGroupChat
	}
	if c.HasParticipant(in.Participant) {
		return c, nil
	}

	if err := uc.Repo.AddParticipant(ctx, in.ChatID, in.Participant); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	if err := uc.Directory.LinkChat(ctx, in.Participant, in.ChatID); err != nil {
		log.Printf("add participant: link %s to chat %s: %v", in.Participant.Key(), in.ChatID, err)
	}

	c.AddParticipant(in.Participant)
	return c, nil
}
