package usecase

import (
	"context"
	"errors"
	"fmt"

	chat "carechat/internal/pkg/chat/application/domain"
	repository "carechat/internal/pkg/chat/persistence/repository/port"
	identity "carechat/internal/pkg/identity/domain"
	idport "carechat/internal/pkg/identity/port"

	"carechat/internal/infrastructure/locking"
)

// EstablishDirectChatInput names the unordered pair to connect.
type EstablishDirectChatInput struct {
	A identity.Ref
	B identity.Ref
}

// EstablishDirectChatUseCase finds or creates the private chat between two
// participants whose consent is already implied externally, bypassing the
// request ledger. It never creates a duplicate chat for the same pair.
type EstablishDirectChatUseCase struct {
	Repo        repository.ChatRepository
	Directory   idport.Directory
	Materialize *MaterializeChatUseCase

	pairLocks *locking.KeyedMutex
}

func NewEstablishDirectChatUseCase(repo repository.ChatRepository, directory idport.Directory) *EstablishDirectChatUseCase {
	return &EstablishDirectChatUseCase{
		Repo:        repo,
		Directory:   directory,
		Materialize: NewMaterializeChatUseCase(repo, directory),
		pairLocks:   locking.NewKeyedMutex(),
	}
}

func (uc *EstablishDirectChatUseCase) Execute(ctx context.Context, in EstablishDirectChatInput) (*chat.Chat, error) {
	if in.A.Equal(in.B) {
		return nil, errors.New("direct chat: participants must differ")
	}
	for _, ref := range []identity.Ref{in.A, in.B} {
		ok, err := uc.Directory.Exists(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		if !ok {
			return nil, identity.ErrUnknownParticipant
		}
	}

	// Pair lock keyed independent of argument order so two racing calls for
	// (A,B) and (B,A) serialize.
	key := pairKey(in.A, in.B)
	uc.pairLocks.Lock(key)
	defer uc.pairLocks.Unlock(key)

	existing, err := uc.Repo.FindPrivateBetween(ctx, in.A, in.B)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, repository.ErrChatNotFound) {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	return uc.Materialize.Execute(ctx, MaterializeChatInput{
		Participants: []identity.Ref{in.A, in.B},
		IsGroup:      false,
	})
}

func pairKey(a identity.Ref, b identity.Ref) string {
	ak, bk := a.Key(), b.Key()
	if ak < bk {
		return ak + "|" + bk
	}
	return bk + "|" + ak
}
