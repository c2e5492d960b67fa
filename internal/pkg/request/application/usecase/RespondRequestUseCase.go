package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"carechat/internal/infrastructure/locking"
	chatusecase "carechat/internal/pkg/chat/application/usecase"
	identity "carechat/internal/pkg/identity/domain"
	notifyport "carechat/internal/pkg/notify/port"
	request "carechat/internal/pkg/request/application/domain"
	repository "carechat/internal/pkg/request/persistence/repository/port"
)

const maxRespondRetries = 3

// RespondRequestInput carries one invitee's terminal answer.
type RespondRequestInput struct {
	RequestID       string
	Participant     identity.Ref
	Decision        request.Decision
	RejectionReason *string
}

// RespondRequestUseCase records an invitee response and evaluates quorum
// atomically per request: a per-request lock serializes in-process responders
// and the repository's version check guards cross-process races. Losing the
// version race re-reads and retries, so two concurrent acceptances can never
// both count as the same acceptance.
//
// Quorum rules: a private request materializes on its single acceptance; a
// group request materializes on the second acceptance with the owner and the
// first two acceptors, and every later acceptance accretes that one invitee
// onto the existing chat. Rejections never affect other invitees.
type RespondRequestUseCase struct {
	Repo           repository.RequestRepository
	Materialize    *chatusecase.MaterializeChatUseCase
	AddParticipant *chatusecase.AddParticipantUseCase
	Notifier       notifyport.Notifier

	requestLocks *locking.KeyedMutex
	now          func() time.Time
}

func NewRespondRequestUseCase(repo repository.RequestRepository, materialize *chatusecase.MaterializeChatUseCase, addParticipant *chatusecase.AddParticipantUseCase, notifier notifyport.Notifier) *RespondRequestUseCase {
	if notifier == nil {
		notifier = notifyport.Discard{}
	}
	return &RespondRequestUseCase{
		Repo:           repo,
		Materialize:    materialize,
		AddParticipant: addParticipant,
		Notifier:       notifier,
		requestLocks:   locking.NewKeyedMutex(),
		now:            time.Now,
	}
}

func (uc *RespondRequestUseCase) Execute(ctx context.Context, in RespondRequestInput) (*request.ChatRequest, error) {
	if in.RequestID == "" {
		return nil, fmt.Errorf("request_id is required")
	}

	uc.requestLocks.Lock(in.RequestID)
	defer uc.requestLocks.Unlock(in.RequestID)

	var (
		req *request.ChatRequest
		err error
	)
	for attempt := 0; attempt < maxRespondRetries; attempt++ {
		req, err = uc.respondOnce(ctx, in)
		if !errors.Is(err, repository.ErrVersionConflict) {
			break
		}
	}
	if err != nil {
		return nil, err
	}

	event := notifyport.EventRequestAccepted
	reason := ""
	if in.Decision == request.DecisionReject {
		event = notifyport.EventRequestRejected
		if in.RejectionReason != nil {
			reason = *in.RejectionReason
		}
	}
	uc.Notifier.Notify(ctx, notifyport.Notification{
		Recipient: req.Owner,
		Event:     event,
		RequestID: req.ID,
		ChatID:    req.ResultingChatID,
		Reason:    reason,
	})

	return req, nil
}

func (uc *RespondRequestUseCase) respondOnce(ctx context.Context, in RespondRequestInput) (*request.ChatRequest, error) {
	req, err := uc.Repo.Get(ctx, in.RequestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}

	if err := req.Respond(in.Participant, in.Decision, in.RejectionReason, uc.now()); err != nil {
		return nil, err
	}

	if in.Decision == request.DecisionAccept {
		if err := uc.evaluateQuorum(ctx, req, in.Participant); err != nil {
			return nil, err
		}
	}

	if err := uc.Repo.Update(ctx, req); err != nil {
		if errors.Is(err, repository.ErrVersionConflict) {
			return nil, repository.ErrVersionConflict
		}
		return nil, fmt.Errorf("%w: %v", ErrPersistence, err)
	}
	return req, nil
}

// evaluateQuorum runs after an acceptance has been applied to req in memory.
// Materialization is idempotent per source request, so a retried evaluation
// converges instead of double-creating.
func (uc *RespondRequestUseCase) evaluateQuorum(ctx context.Context, req *request.ChatRequest, accepted identity.Ref) error {
	switch req.ChatType {
	case request.ChatTypePrivate:
		if req.AcceptedCount() != 1 {
			return nil
		}
		c, err := uc.Materialize.Execute(ctx, chatusecase.MaterializeChatInput{
			Participants:    []identity.Ref{req.Owner, accepted},
			IsGroup:         false,
			SourceRequestID: req.ID,
		})
		if err != nil {
			return err
		}
		req.ResultingChatID = c.ID

	case request.ChatTypeGroup:
		switch n := req.AcceptedCount(); {
		case n < 2:
			// Not enough acceptances yet; the request stays open.
		case n == 2 || req.ResultingChatID == "":
			// First two acceptances start the chat with the owner. The
			// second arm also self-heals a request whose chat was somehow
			// never recorded.
			owner := req.Owner
			c, err := uc.Materialize.Execute(ctx, chatusecase.MaterializeChatInput{
				Participants:    append([]identity.Ref{owner}, req.AcceptedRefs()...),
				IsGroup:         true,
				GroupName:       req.GroupName,
				Owner:           &owner,
				SourceRequestID: req.ID,
			})
			if err != nil {
				return err
			}
			req.ResultingChatID = c.ID
		default:
			// Late acceptance: accrete just this invitee onto the chat.
			if _, err := uc.AddParticipant.Execute(ctx, chatusecase.AddParticipantInput{
				ChatID:      req.ResultingChatID,
				Participant: accepted,
			}); err != nil {
				return err
			}
		}
	}
	return nil
}
