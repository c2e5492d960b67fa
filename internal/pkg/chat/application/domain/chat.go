package chat

import (
	"errors"
	"time"

	identity "carechat/internal/pkg/identity/domain"
)

var (
	ErrNotParticipant = errors.New("chat: sender is not a participant in the chat")
	ErrNotAGroupChat  = errors.New("chat: operation only valid on group chats")
	ErrTooFewMembers  = errors.New("chat: a chat needs at least two participants")
)

// Chat is an established conversation that messages attach to. Private chats
// hold exactly two participants and are immutable after creation; group chats
// grow by accretion as late acceptances arrive.
type Chat struct {
	ID              string
	Participants    []identity.Ref
	IsGroup         bool
	GroupName       string
	Owner           *identity.Ref // set for group chats
	SourceRequestID string        // request this chat materialized from, if any
	LatestMessageID string
	CreatedAt       time.Time
}

// NewChat validates and builds a chat over the given participant set.
func NewChat(participants []identity.Ref, isGroup bool, groupName string, owner *identity.Ref, sourceRequestID string) (*Chat, error) {
	unique := dedupeRefs(participants)
	if len(unique) < 2 {
		return nil, ErrTooFewMembers
	}
	if !isGroup && len(unique) != 2 {
		return nil, ErrTooFewMembers
	}
	return &Chat{
		Participants:    unique,
		IsGroup:         isGroup,
		GroupName:       groupName,
		Owner:           owner,
		SourceRequestID: sourceRequestID,
		CreatedAt:       time.Now().UTC(),
	}, nil
}

// HasParticipant tells whether ref is part of this chat.
func (c *Chat) HasParticipant(ref identity.Ref) bool {
	for _, p := range c.Participants {
		if p.Equal(ref) {
			return true
		}
	}
	return false
}

// AddParticipant appends ref if absent and reports whether it was added.
func (c *Chat) AddParticipant(ref identity.Ref) bool {
	if c.HasParticipant(ref) {
		return false
	}
	c.Participants = append(c.Participants, ref)
	return true
}

func dedupeRefs(refs []identity.Ref) []identity.Ref {
	seen := make(map[string]struct{}, len(refs))
	out := make([]identity.Ref, 0, len(refs))
	for _, ref := range refs {
		if _, ok := seen[ref.Key()]; ok {
			continue
		}
		seen[ref.Key()] = struct{}{}
		out = append(out, ref)
	}
	return out
}
