package usecase

import (
	"context"
	"fmt"
	"log"

	"carechat/internal/pkg/entitlement"
	identity "carechat/internal/pkg/identity/domain"
	idport "carechat/internal/pkg/identity/port"
	notifyport "carechat/internal/pkg/notify/port"
	request "carechat/internal/pkg/request/application/domain"
	repository "carechat/internal/pkg/request/persistence/repository/port"
	"carechat/internal/pkg/scoring"
)

// ReasonSimilarity marks a request created from similarity matching. It
// requires an entitlement and triggers advisory scoring of each invitee.
const ReasonSimilarity = "similarity"

// CreateRequestInput carries the owner's proposal.
type CreateRequestInput struct {
	Owner     identity.Ref
	ChatType  request.ChatType
	Invitees  []identity.Ref
	GroupName string
	Reason    string
}

// CreateRequestUseCase validates and records a proposed conversation, links
// it into the owner's and invitees' reverse indices, and notifies invitees.
//
// Creation is all-or-nothing: invitees are resolved before any write, and if
// reverse-index linking fails afterwards the request record is rolled back.
type CreateRequestUseCase struct {
	Repo      repository.RequestRepository
	Directory idport.Directory
	Scorer    scoring.Scorer
	Gate      entitlement.Gate
	Notifier  notifyport.Notifier
}

func NewCreateRequestUseCase(repo repository.RequestRepository, directory idport.Directory, scorer scoring.Scorer, gate entitlement.Gate, notifier notifyport.Notifier) *CreateRequestUseCase {
	if notifier == nil {
		notifier = notifyport.Discard{}
	}
	return &CreateRequestUseCase{Repo: repo, Directory: directory, Scorer: scorer, Gate: gate, Notifier: notifier}
}

func (uc *CreateRequestUseCase) Execute(ctx context.Context, in CreateRequestInput) (*request.ChatRequest, error) {
	// Domain validation first: cardinality, self-invite, duplicate invitee,
	// group-name presence. No writes happen on failure.
	req, err := request.New(in.Owner, in.ChatType, in.Invitees, in.GroupName, in.Reason)
	if err != nil {
		return nil, err
	}

	if in.Reason == ReasonSimilarity && uc.Gate != nil {
		if !uc.Gate.IsEntitled(ctx, in.Owner, entitlement.FeatureSimilarityMatching) {
			return nil, ErrNotEntitled
		}
	}

	for _, ref := range in.Invitees {
		ok, err := uc.Directory.Exists(ctx, ref)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrInvalidInvitee, ref.Key())
		}
	}

	switch in.ChatType {
	case request.ChatTypeGroup:
		taken, err := uc.Repo.HasActiveGroupName(ctx, req.GroupName)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		if taken {
			return nil, ErrDuplicateGroupName
		}
	case request.ChatTypePrivate:
		dup, err := uc.Repo.HasActivePrivateBetween(ctx, in.Owner, in.Invitees[0])
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
		}
		if dup {
			return nil, ErrDuplicatePendingRequest
		}
	}

	if in.Reason == ReasonSimilarity && uc.Scorer != nil {
		uc.scoreInvitees(ctx, req)
	}

	if err := uc.Repo.Create(ctx, req); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if err := uc.linkAll(ctx, req); err != nil {
		// Creation is treated as failed; compensate by removing the record.
		if rmErr := uc.Repo.Remove(ctx, req.ID); rmErr != nil {
			log.Printf("create request %s: rollback after link failure: %v", req.ID, rmErr)
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	for i := range req.Invitees {
		uc.Notifier.Notify(ctx, notifyport.Notification{
			Recipient: req.Invitees[i].Participant,
			Event:     notifyport.EventRequestCreated,
			RequestID: req.ID,
			Reason:    req.Reason,
		})
	}

	return req, nil
}

func (uc *CreateRequestUseCase) linkAll(ctx context.Context, req *request.ChatRequest) error {
	if err := uc.Directory.LinkSentRequest(ctx, req.Owner, req.ID); err != nil {
		return err
	}
	for i := range req.Invitees {
		if err := uc.Directory.LinkReceivedRequest(ctx, req.Invitees[i].Participant, req.ID); err != nil {
			return err
		}
	}
	return nil
}

// scoreInvitees attaches advisory similarity scores. Scoring failures leave
// the score unset and never block creation.
func (uc *CreateRequestUseCase) scoreInvitees(ctx context.Context, req *request.ChatRequest) {
	for i := range req.Invitees {
		score, err := uc.Scorer.Score(ctx, req.Owner, req.Invitees[i].Participant)
		if err != nil {
			log.Printf("create request: score %s: %v", req.Invitees[i].Participant.Key(), err)
			continue
		}
		if score < 0 {
			score = 0
		}
		if score > 100 {
			score = 100
		}
		req.Invitees[i].SimilarityScore = &score
	}
}
