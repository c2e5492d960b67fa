package request

import (
	"errors"
	"strings"
	"time"

	identity "carechat/internal/pkg/identity/domain"
)

// ChatType distinguishes a two-party proposal from a group proposal.
type ChatType string

const (
	ChatTypePrivate ChatType = "private"
	ChatTypeGroup   ChatType = "group"
)

// Valid reports whether t is a known chat type.
func (t ChatType) Valid() bool {
	return t == ChatTypePrivate || t == ChatTypeGroup
}

// InviteeStatus tracks one invitee's response. Responses are terminal: once
// accepted or rejected, an invitee never re-responds.
type InviteeStatus string

const (
	StatusPending  InviteeStatus = "pending"
	StatusAccepted InviteeStatus = "accepted"
	StatusRejected InviteeStatus = "rejected"
)

// Decision is an invitee's answer to a request.
type Decision string

const (
	DecisionAccept Decision = "accept"
	DecisionReject Decision = "reject"
)

// Minimum acceptances needed before a group chat materializes.
const groupQuorum = 2

var (
	ErrInvalidChatType  = errors.New("request: invalid chat type")
	ErrSelfInvite       = errors.New("request: owner cannot invite themselves")
	ErrDuplicateInvitee = errors.New("request: duplicate invitee")
	ErrCardinality      = errors.New("request: invitee count does not match chat type")
	ErrGroupNameMissing = errors.New("request: group requests require a group name")
	ErrGroupNameOnGroup = errors.New("request: group name is only valid for group requests")
	ErrNotInvitee       = errors.New("request: participant is not an invitee")
	ErrAlreadyResponded = errors.New("request: invitee already responded")
	ErrInvalidDecision  = errors.New("request: invalid decision")
)

// Invitee is one invited participant and their response state.
type Invitee struct {
	Participant     identity.Ref
	Status          InviteeStatus
	SimilarityScore *float64
	RejectionReason *string
	RespondedAt     *time.Time
}

// ChatRequest is the durable record of a proposed conversation. It is created
// by the owner, mutated only by invitee responses, and never deleted; the
// record stays as provenance after the chat materializes.
type ChatRequest struct {
	ID              string
	Owner           identity.Ref
	ChatType        ChatType
	GroupName       string
	Reason          string
	Invitees        []Invitee
	ResultingChatID string
	CreatedAt       time.Time

	// Version supports optimistic concurrency on the read-modify-write of
	// the invitee list. Persistence bumps it on every successful update.
	Version int64
}

// New validates and builds a ChatRequest. Cardinality: a private request has
// exactly one invitee, a group request at least two.
func New(owner identity.Ref, chatType ChatType, invitees []identity.Ref, groupName string, reason string) (*ChatRequest, error) {
	switch chatType {
	case ChatTypePrivate:
		if len(invitees) != 1 {
			return nil, ErrCardinality
		}
		if strings.TrimSpace(groupName) != "" {
			return nil, ErrGroupNameOnGroup
		}
	case ChatTypeGroup:
		if len(invitees) < groupQuorum {
			return nil, ErrCardinality
		}
		if strings.TrimSpace(groupName) == "" {
			return nil, ErrGroupNameMissing
		}
	default:
		return nil, ErrInvalidChatType
	}

	seen := make(map[string]struct{}, len(invitees))
	list := make([]Invitee, 0, len(invitees))
	for _, ref := range invitees {
		if ref.Equal(owner) {
			return nil, ErrSelfInvite
		}
		if _, dup := seen[ref.Key()]; dup {
			return nil, ErrDuplicateInvitee
		}
		seen[ref.Key()] = struct{}{}
		list = append(list, Invitee{Participant: ref, Status: StatusPending})
	}

	return &ChatRequest{
		Owner:     owner,
		ChatType:  chatType,
		GroupName: strings.TrimSpace(groupName),
		Reason:    reason,
		Invitees:  list,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// Invitee returns the entry for ref, or nil if ref was never invited.
func (r *ChatRequest) Invitee(ref identity.Ref) *Invitee {
	for i := range r.Invitees {
		if r.Invitees[i].Participant.Equal(ref) {
			return &r.Invitees[i]
		}
	}
	return nil
}

// Respond records a terminal accept/reject for the invitee.
func (r *ChatRequest) Respond(ref identity.Ref, decision Decision, rejectionReason *string, now time.Time) error {
	inv := r.Invitee(ref)
	if inv == nil {
		return ErrNotInvitee
	}
	if inv.Status != StatusPending {
		return ErrAlreadyResponded
	}

	switch decision {
	case DecisionAccept:
		inv.Status = StatusAccepted
	case DecisionReject:
		inv.Status = StatusRejected
		inv.RejectionReason = rejectionReason
	default:
		return ErrInvalidDecision
	}
	ts := now.UTC()
	inv.RespondedAt = &ts
	return nil
}

// AcceptedCount returns the number of invitees that have accepted.
func (r *ChatRequest) AcceptedCount() int {
	n := 0
	for i := range r.Invitees {
		if r.Invitees[i].Status == StatusAccepted {
			n++
		}
	}
	return n
}

// AcceptedRefs returns accepted invitees in invitation order.
func (r *ChatRequest) AcceptedRefs() []identity.Ref {
	refs := make([]identity.Ref, 0, len(r.Invitees))
	for i := range r.Invitees {
		if r.Invitees[i].Status == StatusAccepted {
			refs = append(refs, r.Invitees[i].Participant)
		}
	}
	return refs
}

// Active reports whether any invitee is still pending. Duplicate-name and
// duplicate-pair checks only consider active requests.
func (r *ChatRequest) Active() bool {
	for i := range r.Invitees {
		if r.Invitees[i].Status == StatusPending {
			return true
		}
	}
	return false
}

// QuorumReached reports whether enough acceptances exist to materialize a
// chat: one for private requests, two for group requests.
func (r *ChatRequest) QuorumReached() bool {
	switch r.ChatType {
	case ChatTypePrivate:
		return r.AcceptedCount() >= 1
	case ChatTypeGroup:
		return r.AcceptedCount() >= groupQuorum
	default:
		return false
	}
}
