package usecase

import (
	"context"
	"fmt"

	identity "carechat/internal/pkg/identity/domain"
	request "carechat/internal/pkg/request/application/domain"
	repository "carechat/internal/pkg/request/persistence/repository/port"
)

// RequestBox selects which side of the ledger to list.
type RequestBox string

const (
	BoxSent     RequestBox = "sent"
	BoxReceived RequestBox = "received"
)

// ListRequestsInput wraps the participant and the box to list.
type ListRequestsInput struct {
	Participant identity.Ref
	Box         RequestBox
}

// ListRequestsUseCase returns a participant's requests, newest first.
type ListRequestsUseCase struct {
	Repo repository.RequestRepository
}

func NewListRequestsUseCase(repo repository.RequestRepository) *ListRequestsUseCase {
	return &ListRequestsUseCase{Repo: repo}
}

func (uc *ListRequestsUseCase) Execute(ctx context.Context, in ListRequestsInput) ([]request.ChatRequest, error) {
	if in.Participant.Zero() {
		return nil, fmt.Errorf("participant is required")
	}

	var (
		reqs []request.ChatRequest
		err  error
	)
	switch in.Box {
	case BoxSent:
		reqs, err = uc.Repo.ListSent(ctx, in.Participant)
	case BoxReceived:
		reqs, err = uc.Repo.ListReceived(ctx, in.Participant)
	default:
		return nil, fmt.Errorf("unknown request box %q", in.Box)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return reqs, nil
}
