package usecase

import (
	"context"
	"sync"
	"testing"

	chatusecase "carechat/internal/pkg/chat/application/usecase"
	chatadapter "carechat/internal/pkg/chat/persistence/repository/adapter"
	"carechat/internal/pkg/entitlement"
	idadapter "carechat/internal/pkg/identity/adapter"
	identity "carechat/internal/pkg/identity/domain"
	notifyadapter "carechat/internal/pkg/notify/adapter"
	notifyport "carechat/internal/pkg/notify/port"
	request "carechat/internal/pkg/request/application/domain"
	repoadapter "carechat/internal/pkg/request/persistence/repository/adapter"
	repository "carechat/internal/pkg/request/persistence/repository/port"
	"carechat/internal/pkg/scoring"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type respondFixture struct {
	requests  *repoadapter.MemoryRequestRepository
	chats     *chatadapter.MemoryChatRepository
	directory *idadapter.MemoryDirectory
	recorder  *notifyadapter.Recorder
	create    *CreateRequestUseCase
	respond   *RespondRequestUseCase
}

func newRespondFixture(refs ...identity.Ref) *respondFixture {
	f := &respondFixture{
		requests:  repoadapter.NewMemoryRequestRepository(),
		chats:     chatadapter.NewMemoryChatRepository(),
		directory: idadapter.NewMemoryDirectory(),
		recorder:  notifyadapter.NewRecorder(),
	}
	for _, ref := range refs {
		f.directory.Register(ref, identity.Profile{DisplayName: ref.ID})
	}
	f.create = NewCreateRequestUseCase(f.requests, f.directory, scoring.Fixed(0), entitlement.AllowAll(), f.recorder)
	materialize := chatusecase.NewMaterializeChatUseCase(f.chats, f.directory)
	addParticipant := chatusecase.NewAddParticipantUseCase(f.chats, f.directory)
	f.respond = NewRespondRequestUseCase(f.requests, materialize, addParticipant, f.recorder)
	return f
}

func (f *respondFixture) mustCreate(t *testing.T, in CreateRequestInput) *request.ChatRequest {
	t.Helper()
	req, err := f.create.Execute(context.Background(), in)
	require.NoError(t, err)
	return req
}

func (f *respondFixture) accept(t *testing.T, requestID string, ref identity.Ref) *request.ChatRequest {
	t.Helper()
	req, err := f.respond.Execute(context.Background(), RespondRequestInput{
		RequestID:   requestID,
		Participant: ref,
		Decision:    request.DecisionAccept,
	})
	require.NoError(t, err)
	return req
}

func TestPrivateAcceptanceMaterializesChat(t *testing.T) {
	f := newRespondFixture(user("alice"), expert("bob"))
	req := f.mustCreate(t, CreateRequestInput{
		Owner:    user("alice"),
		ChatType: request.ChatTypePrivate,
		Invitees: []identity.Ref{expert("bob")},
	})

	updated := f.accept(t, req.ID, expert("bob"))
	require.NotEmpty(t, updated.ResultingChatID)

	c, err := f.chats.GetChat(context.Background(), updated.ResultingChatID)
	require.NoError(t, err)
	assert.False(t, c.IsGroup)
	assert.True(t, c.HasParticipant(user("alice")))
	assert.True(t, c.HasParticipant(expert("bob")))
	assert.Equal(t, req.ID, c.SourceRequestID)

	// both members see the chat in their index
	assert.Contains(t, f.directory.ChatIDs(user("alice")), c.ID)
	assert.Contains(t, f.directory.ChatIDs(expert("bob")), c.ID)
}

func TestPrivateRejectionLeavesNoChat(t *testing.T) {
	f := newRespondFixture(user("alice"), expert("bob"))
	req := f.mustCreate(t, CreateRequestInput{
		Owner:    user("alice"),
		ChatType: request.ChatTypePrivate,
		Invitees: []identity.Ref{expert("bob")},
	})

	reason := "fully booked"
	updated, err := f.respond.Execute(context.Background(), RespondRequestInput{
		RequestID:       req.ID,
		Participant:     expert("bob"),
		Decision:        request.DecisionReject,
		RejectionReason: &reason,
	})
	require.NoError(t, err)
	assert.Empty(t, updated.ResultingChatID)
	assert.Empty(t, f.directory.ChatIDs(user("alice")))

	// the record stays as provenance
	stored, err := f.requests.Get(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, request.StatusRejected, stored.Invitees[0].Status)
}

func TestRespondUnknownRequest(t *testing.T) {
	f := newRespondFixture(user("alice"))
	_, err := f.respond.Execute(context.Background(), RespondRequestInput{
		RequestID:   "missing",
		Participant: user("alice"),
		Decision:    request.DecisionAccept,
	})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestRespondIsTerminalAcrossCalls(t *testing.T) {
	f := newRespondFixture(user("alice"), expert("bob"))
	req := f.mustCreate(t, CreateRequestInput{
		Owner:    user("alice"),
		ChatType: request.ChatTypePrivate,
		Invitees: []identity.Ref{expert("bob")},
	})

	f.accept(t, req.ID, expert("bob"))

	_, err := f.respond.Execute(context.Background(), RespondRequestInput{
		RequestID:   req.ID,
		Participant: expert("bob"),
		Decision:    request.DecisionReject,
	})
	assert.ErrorIs(t, err, request.ErrAlreadyResponded)
}

func TestGroupChatStartsOnSecondAcceptance(t *testing.T) {
	f := newRespondFixture(user("alice"), user("bob"), user("carol"), user("dave"))
	req := f.mustCreate(t, CreateRequestInput{
		Owner:     user("alice"),
		ChatType:  request.ChatTypeGroup,
		Invitees:  []identity.Ref{user("bob"), user("carol"), user("dave")},
		GroupName: "book club",
	})

	first := f.accept(t, req.ID, user("bob"))
	assert.Empty(t, first.ResultingChatID, "one acceptance is below quorum")

	second := f.accept(t, req.ID, user("carol"))
	require.NotEmpty(t, second.ResultingChatID)

	c, err := f.chats.GetChat(context.Background(), second.ResultingChatID)
	require.NoError(t, err)
	assert.True(t, c.IsGroup)
	assert.Equal(t, "book club", c.GroupName)
	require.NotNil(t, c.Owner)
	assert.Equal(t, user("alice"), *c.Owner)
	assert.Len(t, c.Participants, 3)
	assert.False(t, c.HasParticipant(user("dave")), "pending invitee is not a member yet")
}

func TestLateAcceptanceAccretesOntoExistingChat(t *testing.T) {
	f := newRespondFixture(user("alice"), user("bob"), user("carol"), user("dave"))
	req := f.mustCreate(t, CreateRequestInput{
		Owner:     user("alice"),
		ChatType:  request.ChatTypeGroup,
		Invitees:  []identity.Ref{user("bob"), user("carol"), user("dave")},
		GroupName: "book club",
	})

	f.accept(t, req.ID, user("bob"))
	second := f.accept(t, req.ID, user("carol"))
	third := f.accept(t, req.ID, user("dave"))

	assert.Equal(t, second.ResultingChatID, third.ResultingChatID, "late acceptance reuses the chat")

	c, err := f.chats.GetChat(context.Background(), third.ResultingChatID)
	require.NoError(t, err)
	assert.Len(t, c.Participants, 4)
	assert.True(t, c.HasParticipant(user("dave")))
}

func TestGroupRejectionDoesNotBlockOthers(t *testing.T) {
	f := newRespondFixture(user("alice"), user("bob"), user("carol"), user("dave"))
	req := f.mustCreate(t, CreateRequestInput{
		Owner:     user("alice"),
		ChatType:  request.ChatTypeGroup,
		Invitees:  []identity.Ref{user("bob"), user("carol"), user("dave")},
		GroupName: "book club",
	})

	reason := "no time"
	_, err := f.respond.Execute(context.Background(), RespondRequestInput{
		RequestID:       req.ID,
		Participant:     user("bob"),
		Decision:        request.DecisionReject,
		RejectionReason: &reason,
	})
	require.NoError(t, err)

	f.accept(t, req.ID, user("carol"))
	final := f.accept(t, req.ID, user("dave"))
	require.NotEmpty(t, final.ResultingChatID)

	c, err := f.chats.GetChat(context.Background(), final.ResultingChatID)
	require.NoError(t, err)
	assert.False(t, c.HasParticipant(user("bob")), "rejector never becomes a member")
	assert.Len(t, c.Participants, 3)
}

func TestConcurrentGroupAcceptancesCountOnce(t *testing.T) {
	f := newRespondFixture(user("alice"), user("bob"), user("carol"), user("dave"), user("erin"))
	req := f.mustCreate(t, CreateRequestInput{
		Owner:     user("alice"),
		ChatType:  request.ChatTypeGroup,
		Invitees:  []identity.Ref{user("bob"), user("carol"), user("dave"), user("erin")},
		GroupName: "book club",
	})

	accepters := []identity.Ref{user("bob"), user("carol"), user("dave"), user("erin")}
	var wg sync.WaitGroup
	for _, ref := range accepters {
		wg.Add(1)
		go func(ref identity.Ref) {
			defer wg.Done()
			_, err := f.respond.Execute(context.Background(), RespondRequestInput{
				RequestID:   req.ID,
				Participant: ref,
				Decision:    request.DecisionAccept,
			})
			assert.NoError(t, err)
		}(ref)
	}
	wg.Wait()

	stored, err := f.requests.Get(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.AcceptedCount())
	require.NotEmpty(t, stored.ResultingChatID)

	c, err := f.chats.GetChat(context.Background(), stored.ResultingChatID)
	require.NoError(t, err)
	assert.Len(t, c.Participants, 5, "owner plus each accepter exactly once")
	for _, ref := range accepters {
		assert.True(t, c.HasParticipant(ref))
	}
}

func TestOwnerNotifiedOfResponses(t *testing.T) {
	f := newRespondFixture(user("alice"), expert("bob"))
	req := f.mustCreate(t, CreateRequestInput{
		Owner:    user("alice"),
		ChatType: request.ChatTypePrivate,
		Invitees: []identity.Ref{expert("bob")},
	})

	updated := f.accept(t, req.ID, expert("bob"))

	var accepted []notifyport.Notification
	for _, n := range f.recorder.Events() {
		if n.Event == notifyport.EventRequestAccepted {
			accepted = append(accepted, n)
		}
	}
	require.Len(t, accepted, 1)
	assert.Equal(t, user("alice"), accepted[0].Recipient)
	assert.Equal(t, updated.ResultingChatID, accepted[0].ChatID)
}
