package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	chat "carechat/internal/pkg/chat/application/domain"
	repoadapter "carechat/internal/pkg/chat/persistence/repository/adapter"
	idadapter "carechat/internal/pkg/identity/adapter"
	identity "carechat/internal/pkg/identity/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDirectory(refs ...identity.Ref) *idadapter.MemoryDirectory {
	d := idadapter.NewMemoryDirectory()
	for _, ref := range refs {
		d.Register(ref, identity.Profile{DisplayName: ref.ID})
	}
	return d
}

func TestEstablishDirectChatCreatesOnce(t *testing.T) {
	repo := repoadapter.NewMemoryChatRepository()
	directory := newDirectory(user("alice"), expert("bob"))
	uc := NewEstablishDirectChatUseCase(repo, directory)

	first, err := uc.Execute(context.Background(), EstablishDirectChatInput{A: user("alice"), B: expert("bob")})
	require.NoError(t, err)
	require.NotEmpty(t, first.ID)
	assert.False(t, first.IsGroup)

	// same pair in reversed order resolves to the same chat
	second, err := uc.Execute(context.Background(), EstablishDirectChatInput{A: expert("bob"), B: user("alice")})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
}

func TestEstablishDirectChatRejectsSamePair(t *testing.T) {
	repo := repoadapter.NewMemoryChatRepository()
	directory := newDirectory(user("alice"))
	uc := NewEstablishDirectChatUseCase(repo, directory)

	_, err := uc.Execute(context.Background(), EstablishDirectChatInput{A: user("alice"), B: user("alice")})
	assert.Error(t, err)
}

func TestEstablishDirectChatConcurrentCallsConverge(t *testing.T) {
	repo := repoadapter.NewMemoryChatRepository()
	directory := newDirectory(user("alice"), expert("bob"))
	uc := NewEstablishDirectChatUseCase(repo, directory)

	const n = 10
	ids := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			a, b := user("alice"), expert("bob")
			if i%2 == 1 {
				a, b = b, a
			}
			c, err := uc.Execute(context.Background(), EstablishDirectChatInput{A: a, B: b})
			assert.NoError(t, err)
			ids[i] = c.ID
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		assert.Equal(t, ids[0], ids[i], "every caller gets the same chat")
	}

	chats, err := repo.ListChatsByParticipant(context.Background(), user("alice"))
	require.NoError(t, err)
	assert.Len(t, chats, 1)
}

func TestMaterializeIsIdempotentPerSourceRequest(t *testing.T) {
	repo := repoadapter.NewMemoryChatRepository()
	directory := newDirectory(user("alice"), user("bob"), user("carol"))
	owner := user("alice")
	uc := NewMaterializeChatUseCase(repo, directory)

	in := MaterializeChatInput{
		Participants:    []identity.Ref{owner, user("bob"), user("carol")},
		IsGroup:         true,
		GroupName:       "book club",
		Owner:           &owner,
		SourceRequestID: "req-1",
	}

	first, err := uc.Execute(context.Background(), in)
	require.NoError(t, err)

	second, err := uc.Execute(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	chats, err := repo.ListChatsByParticipant(context.Background(), owner)
	require.NoError(t, err)
	assert.Len(t, chats, 1)
}

func TestMaterializeReusesExistingPrivateChat(t *testing.T) {
	repo := repoadapter.NewMemoryChatRepository()
	directory := newDirectory(user("alice"), expert("bob"))
	uc := NewMaterializeChatUseCase(repo, directory)

	pair := []identity.Ref{user("alice"), expert("bob")}
	first, err := uc.Execute(context.Background(), MaterializeChatInput{
		Participants:    pair,
		SourceRequestID: "req-a",
	})
	require.NoError(t, err)

	// a later accepted request between the same pair lands in the same chat
	second, err := uc.Execute(context.Background(), MaterializeChatInput{
		Participants:    []identity.Ref{expert("bob"), user("alice")},
		SourceRequestID: "req-b",
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	chats, err := repo.ListChatsByParticipant(context.Background(), user("alice"))
	require.NoError(t, err)
	assert.Len(t, chats, 1)
}

func TestMaterializeReusesChatFromDirectEstablish(t *testing.T) {
	repo := repoadapter.NewMemoryChatRepository()
	directory := newDirectory(user("alice"), expert("bob"))

	direct := NewEstablishDirectChatUseCase(repo, directory)
	established, err := direct.Execute(context.Background(), EstablishDirectChatInput{A: user("alice"), B: expert("bob")})
	require.NoError(t, err)

	uc := NewMaterializeChatUseCase(repo, directory)
	materialized, err := uc.Execute(context.Background(), MaterializeChatInput{
		Participants:    []identity.Ref{user("alice"), expert("bob")},
		SourceRequestID: "req-c",
	})
	require.NoError(t, err)
	assert.Equal(t, established.ID, materialized.ID)
}

func TestMaterializeLinksParticipantIndices(t *testing.T) {
	repo := repoadapter.NewMemoryChatRepository()
	directory := newDirectory(user("alice"), expert("bob"))
	uc := NewMaterializeChatUseCase(repo, directory)

	c, err := uc.Execute(context.Background(), MaterializeChatInput{
		Participants:    []identity.Ref{user("alice"), expert("bob")},
		SourceRequestID: "req-2",
	})
	require.NoError(t, err)

	assert.Equal(t, []string{c.ID}, directory.ChatIDs(user("alice")))
	assert.Equal(t, []string{c.ID}, directory.ChatIDs(expert("bob")))
}

func TestAddParticipantOnlyOnGroups(t *testing.T) {
	repo := repoadapter.NewMemoryChatRepository()
	directory := newDirectory(user("alice"), expert("bob"), user("carol"))
	uc := NewAddParticipantUseCase(repo, directory)

	private := seedChat(t, repo, user("alice"), expert("bob"))
	_, err := uc.Execute(context.Background(), AddParticipantInput{ChatID: private.ID, Participant: user("carol")})
	assert.ErrorIs(t, err, chat.ErrNotAGroupChat)
}

func TestAddParticipantIsIdempotent(t *testing.T) {
	repo := repoadapter.NewMemoryChatRepository()
	directory := newDirectory(user("alice"), user("bob"), user("carol"), user("dave"))
	uc := NewAddParticipantUseCase(repo, directory)

	group := seedChat(t, repo, user("alice"), user("bob"), user("carol"))

	updated, err := uc.Execute(context.Background(), AddParticipantInput{ChatID: group.ID, Participant: user("dave")})
	require.NoError(t, err)
	assert.Len(t, updated.Participants, 4)

	again, err := uc.Execute(context.Background(), AddParticipantInput{ChatID: group.ID, Participant: user("dave")})
	require.NoError(t, err)
	assert.Len(t, again.Participants, 4)
}

func TestJoinChatRequiresMembership(t *testing.T) {
	repo := repoadapter.NewMemoryChatRepository()
	uc := NewJoinChatUseCase(repo)

	c := seedChat(t, repo, user("alice"), expert("bob"))

	assert.NoError(t, uc.Execute(context.Background(), JoinChatInput{ChatID: c.ID, Participant: user("alice")}))
	assert.ErrorIs(t,
		uc.Execute(context.Background(), JoinChatInput{ChatID: c.ID, Participant: user("stranger")}),
		chat.ErrNotParticipant)
}

func TestGetMessagesOldestFirstWithPaging(t *testing.T) {
	repo := repoadapter.NewMemoryChatRepository()
	c := seedChat(t, repo, user("alice"), expert("bob"))

	send := NewSendMessageUseCase(repo)
	for _, content := range []string{"one", "two", "three"} {
		_, err := send.Execute(context.Background(), SendMessageInput{
			ChatID:  c.ID,
			Sender:  user("alice"),
			Content: content,
		})
		require.NoError(t, err)
	}

	uc := NewGetMessageUseCase(repo)
	msgs, err := uc.Execute(context.Background(), GetMessageInput{ChatID: c.ID, Limit: 10})
	require.NoError(t, err)
	require.Len(t, msgs, 3)
	assert.Equal(t, "one", msgs[0].Content)
	assert.Equal(t, "three", msgs[2].Content)

	page, err := uc.Execute(context.Background(), GetMessageInput{ChatID: c.ID, Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "two", page[0].Content)
}

func TestListChatsNewestFirst(t *testing.T) {
	repo := repoadapter.NewMemoryChatRepository()
	directory := newDirectory(user("alice"), user("bob"), user("carol"))
	direct := NewEstablishDirectChatUseCase(repo, directory)

	first, err := direct.Execute(context.Background(), EstablishDirectChatInput{A: user("alice"), B: user("bob")})
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond) // distinct creation timestamps
	second, err := direct.Execute(context.Background(), EstablishDirectChatInput{A: user("alice"), B: user("carol")})
	require.NoError(t, err)

	uc := NewListChatsUseCase(repo)
	chats, err := uc.Execute(context.Background(), ListChatsInput{Participant: user("alice")})
	require.NoError(t, err)
	require.Len(t, chats, 2)
	assert.Equal(t, second.ID, chats[0].ID)
	assert.Equal(t, first.ID, chats[1].ID)
}
