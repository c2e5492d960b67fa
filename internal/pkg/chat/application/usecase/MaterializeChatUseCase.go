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

// MaterializeChatInput carries the data to turn an accepted request into a chat.
type MaterializeChatInput struct {
	Participants    []identity.Ref
	IsGroup         bool
	GroupName       string
	Owner           *identity.Ref
	SourceRequestID string
}

// MaterializeChatUseCase creates the chat for a request that reached quorum.
// It is idempotent per source request: two concurrent quorum evaluations
// racing on the same request converge on one chat.
type MaterializeChatUseCase struct {
	Repo      repository.ChatRepository
	Directory idport.Directory
}

func NewMaterializeChatUseCase(repo repository.ChatRepository, directory idport.Directory) *MaterializeChatUseCase {
	return &MaterializeChatUseCase{Repo: repo, Directory: directory}
}

// Execute returns the existing chat for the source request if one exists,
// otherwise creates it and links every participant's membership.
func (uc *MaterializeChatUseCase) Execute(ctx context.Context, in MaterializeChatInput) (*chat.Chat, error) {
	if in.SourceRequestID != "" {
		existing, err := uc.Repo.FindBySourceRequest(ctx, in.SourceRequestID)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, repository.ErrChatNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
	}

	if !in.IsGroup && len(in.Participants) == 2 {
		// A private pair owns at most one chat. A second accepted request
		// between the same two people lands in the chat they already have.
		existing, err := uc.Repo.FindPrivateBetween(ctx, in.Participants[0], in.Participants[1])
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, repository.ErrChatNotFound) {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
	}

	c, err := chat.NewChat(in.Participants, in.IsGroup, in.GroupName, in.Owner, in.SourceRequestID)
	if err != nil {
		return nil, err
	}

	if err := uc.Repo.CreateChat(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicateSourceRequest) {
			// Lost the race; the winner's chat is the chat.
			winner, findErr := uc.Repo.FindBySourceRequest(ctx, in.SourceRequestID)
			if findErr != nil {
				return nil, fmt.Errorf("%w: %v", ErrPersistence, findErr)
			}
			return winner, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	for _, p := range c.Participants {
		if err := uc.Directory.LinkChat(ctx, p, c.ID); err != nil {
			// Membership is recorded on the chat itself; the reverse index
			// is repaired by the next idempotent link.
			log.Printf("materialize chat %s: link participant %s: %v", c.ID, p.Key(), err)
		}
	}

	return c, nil
}
