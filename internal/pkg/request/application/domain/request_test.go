package request

import (
	"testing"
	"time"

	identity "carechat/internal/pkg/identity/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func user(id string) identity.Ref {
	return identity.Ref{ID: id, Kind: identity.KindUser}
}

func expert(id string) identity.Ref {
	return identity.Ref{ID: id, Kind: identity.KindExpert}
}

func TestNewPrivateRequest(t *testing.T) {
	req, err := New(user("alice"), ChatTypePrivate, []identity.Ref{expert("bob")}, "", "")
	require.NoError(t, err)

	require.Len(t, req.Invitees, 1)
	assert.Equal(t, StatusPending, req.Invitees[0].Status)
	assert.Equal(t, expert("bob"), req.Invitees[0].Participant)
	assert.Empty(t, req.ResultingChatID)
}

func TestNewRejectsBadCardinality(t *testing.T) {
	_, err := New(user("alice"), ChatTypePrivate, []identity.Ref{user("b"), user("c")}, "", "")
	assert.ErrorIs(t, err, ErrCardinality)

	_, err = New(user("alice"), ChatTypeGroup, []identity.Ref{user("b")}, "book club", "")
	assert.ErrorIs(t, err, ErrCardinality)
}

func TestNewRejectsSelfInvite(t *testing.T) {
	_, err := New(user("alice"), ChatTypePrivate, []identity.Ref{user("alice")}, "", "")
	assert.ErrorIs(t, err, ErrSelfInvite)
}

func TestNewSameIDDifferentKindIsNotSelfInvite(t *testing.T) {
	// A user and an expert can share an ID; they are distinct participants.
	_, err := New(user("alice"), ChatTypePrivate, []identity.Ref{expert("alice")}, "", "")
	assert.NoError(t, err)
}

func TestNewRejectsDuplicateInvitee(t *testing.T) {
	_, err := New(user("alice"), ChatTypeGroup, []identity.Ref{user("b"), user("b")}, "book club", "")
	assert.ErrorIs(t, err, ErrDuplicateInvitee)
}

func TestNewGroupNameRules(t *testing.T) {
	_, err := New(user("alice"), ChatTypeGroup, []identity.Ref{user("b"), user("c")}, "   ", "")
	assert.ErrorIs(t, err, ErrGroupNameMissing)

	_, err = New(user("alice"), ChatTypePrivate, []identity.Ref{user("b")}, "book club", "")
	assert.ErrorIs(t, err, ErrGroupNameOnGroup)

	_, err = New(user("alice"), "broadcast", []identity.Ref{user("b")}, "", "")
	assert.ErrorIs(t, err, ErrInvalidChatType)
}

func TestRespondIsTerminal(t *testing.T) {
	req, err := New(user("alice"), ChatTypeGroup, []identity.Ref{user("b"), user("c")}, "book club", "")
	require.NoError(t, err)

	now := time.Now()
	require.NoError(t, req.Respond(user("b"), DecisionAccept, nil, now))
	assert.Equal(t, StatusAccepted, req.Invitees[0].Status)
	require.NotNil(t, req.Invitees[0].RespondedAt)

	// no flip in either direction
	assert.ErrorIs(t, req.Respond(user("b"), DecisionReject, nil, now), ErrAlreadyResponded)
	assert.ErrorIs(t, req.Respond(user("b"), DecisionAccept, nil, now), ErrAlreadyResponded)
}

func TestRespondRejectKeepsReason(t *testing.T) {
	req, err := New(user("alice"), ChatTypeGroup, []identity.Ref{user("b"), user("c")}, "book club", "")
	require.NoError(t, err)

	reason := "not interested"
	require.NoError(t, req.Respond(user("c"), DecisionReject, &reason, time.Now()))

	inv := req.Invitee(user("c"))
	require.NotNil(t, inv)
	assert.Equal(t, StatusRejected, inv.Status)
	require.NotNil(t, inv.RejectionReason)
	assert.Equal(t, "not interested", *inv.RejectionReason)
}

func TestRespondRejectsOutsiders(t *testing.T) {
	req, err := New(user("alice"), ChatTypePrivate, []identity.Ref{user("b")}, "", "")
	require.NoError(t, err)

	assert.ErrorIs(t, req.Respond(user("stranger"), DecisionAccept, nil, time.Now()), ErrNotInvitee)
	// the owner is not an invitee of their own request
	assert.ErrorIs(t, req.Respond(user("alice"), DecisionAccept, nil, time.Now()), ErrNotInvitee)
}

func TestRespondRejectsUnknownDecision(t *testing.T) {
	req, err := New(user("alice"), ChatTypePrivate, []identity.Ref{user("b")}, "", "")
	require.NoError(t, err)
	assert.ErrorIs(t, req.Respond(user("b"), Decision("maybe"), nil, time.Now()), ErrInvalidDecision)
}

func TestActiveAndQuorum(t *testing.T) {
	req, err := New(user("alice"), ChatTypeGroup, []identity.Ref{user("b"), user("c"), user("d")}, "book club", "")
	require.NoError(t, err)
	assert.True(t, req.Active())
	assert.False(t, req.QuorumReached())

	require.NoError(t, req.Respond(user("b"), DecisionAccept, nil, time.Now()))
	assert.False(t, req.QuorumReached())

	require.NoError(t, req.Respond(user("c"), DecisionAccept, nil, time.Now()))
	assert.True(t, req.QuorumReached())
	assert.Equal(t, 2, req.AcceptedCount())
	assert.Equal(t, []identity.Ref{user("b"), user("c")}, req.AcceptedRefs())

	// still active while one invitee is pending
	assert.True(t, req.Active())
	require.NoError(t, req.Respond(user("d"), DecisionReject, nil, time.Now()))
	assert.False(t, req.Active())
}
