package usecase

import (
	"context"
	"sync"
	"testing"

	chat "carechat/internal/pkg/chat/application/domain"
	repoadapter "carechat/internal/pkg/chat/persistence/repository/adapter"
	repository "carechat/internal/pkg/chat/persistence/repository/port"
	identity "carechat/internal/pkg/identity/domain"
	notifyadapter "carechat/internal/pkg/notify/adapter"
	notifyport "carechat/internal/pkg/notify/port"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func user(id string) identity.Ref {
	return identity.Ref{ID: id, Kind: identity.KindUser}
}

func expert(id string) identity.Ref {
	return identity.Ref{ID: id, Kind: identity.KindExpert}
}

// recordingBroadcaster captures fan-out order.
type recordingBroadcaster struct {
	mu       sync.Mutex
	messages []chat.Message
}

func (b *recordingBroadcaster) MessageAppended(m chat.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.messages = append(b.messages, m)
}

func (b *recordingBroadcaster) contents() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, 0, len(b.messages))
	for _, m := range b.messages {
		out = append(out, m.Content)
	}
	return out
}

func seedChat(t *testing.T, repo *repoadapter.MemoryChatRepository, members ...identity.Ref) *chat.Chat {
	t.Helper()
	c, err := chat.NewChat(members, len(members) > 2, groupNameFor(members), nil, "")
	require.NoError(t, err)
	require.NoError(t, repo.CreateChat(context.Background(), c))
	return c
}

func groupNameFor(members []identity.Ref) string {
	if len(members) > 2 {
		return "room"
	}
	return ""
}

func TestSendMessagePersistsAndBroadcasts(t *testing.T) {
	repo := repoadapter.NewMemoryChatRepository()
	c := seedChat(t, repo, user("alice"), expert("bob"))

	b := &recordingBroadcaster{}
	uc := NewSendMessageUseCase(repo).WithBroadcaster(b)

	msg, err := uc.Execute(context.Background(), SendMessageInput{
		ChatID:  c.ID,
		Sender:  user("alice"),
		Content: "hello",
	})
	require.NoError(t, err)
	require.NotEmpty(t, msg.ID)

	stored, err := repo.GetMessagesByChat(context.Background(), c.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	assert.Equal(t, "hello", stored[0].Content)

	assert.Equal(t, []string{"hello"}, b.contents())
}

func TestSendMessageRejectsNonParticipant(t *testing.T) {
	repo := repoadapter.NewMemoryChatRepository()
	c := seedChat(t, repo, user("alice"), expert("bob"))

	b := &recordingBroadcaster{}
	uc := NewSendMessageUseCase(repo).WithBroadcaster(b)

	_, err := uc.Execute(context.Background(), SendMessageInput{
		ChatID:  c.ID,
		Sender:  user("stranger"),
		Content: "let me in",
	})
	assert.ErrorIs(t, err, chat.ErrNotParticipant)

	stored, err := repo.GetMessagesByChat(context.Background(), c.ID, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, stored, "nothing persisted")
	assert.Empty(t, b.contents(), "nothing broadcast")
}

func TestSendMessageRejectsEmptyContent(t *testing.T) {
	repo := repoadapter.NewMemoryChatRepository()
	c := seedChat(t, repo, user("alice"), expert("bob"))
	uc := NewSendMessageUseCase(repo)

	_, err := uc.Execute(context.Background(), SendMessageInput{
		ChatID:  c.ID,
		Sender:  user("alice"),
		Content: "   ",
	})
	assert.ErrorIs(t, err, chat.ErrEmptyMessage)
}

func TestSendMessageUnknownChat(t *testing.T) {
	uc := NewSendMessageUseCase(repoadapter.NewMemoryChatRepository())
	_, err := uc.Execute(context.Background(), SendMessageInput{
		ChatID:  "missing",
		Sender:  user("alice"),
		Content: "hello",
	})
	assert.ErrorIs(t, err, repository.ErrChatNotFound)
}

func TestSendMessageNotifiesEveryoneButSender(t *testing.T) {
	repo := repoadapter.NewMemoryChatRepository()
	c := seedChat(t, repo, user("alice"), user("bob"), user("carol"))

	recorder := notifyadapter.NewRecorder()
	uc := NewSendMessageUseCase(repo).WithNotifier(recorder)

	_, err := uc.Execute(context.Background(), SendMessageInput{
		ChatID:  c.ID,
		Sender:  user("alice"),
		Content: "hello",
	})
	require.NoError(t, err)

	events := recorder.Events()
	require.Len(t, events, 2)
	recipients := []identity.Ref{events[0].Recipient, events[1].Recipient}
	assert.ElementsMatch(t, []identity.Ref{user("bob"), user("carol")}, recipients)
	for _, n := range events {
		assert.Equal(t, notifyport.EventNewMessage, n.Event)
		assert.Equal(t, c.ID, n.ChatID)
	}
}

func TestConcurrentSendsKeepPersistAndFanoutOrderAligned(t *testing.T) {
	repo := repoadapter.NewMemoryChatRepository()
	c := seedChat(t, repo, user("alice"), expert("bob"))

	b := &recordingBroadcaster{}
	uc := NewSendMessageUseCase(repo).WithBroadcaster(b)

	const n = 20
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := uc.Execute(context.Background(), SendMessageInput{
				ChatID:  c.ID,
				Sender:  user("alice"),
				Content: "msg-" + string(rune('a'+i)),
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	stored, err := repo.GetMessagesByChat(context.Background(), c.ID, n, 0)
	require.NoError(t, err)
	require.Len(t, stored, n)

	persisted := make([]string, 0, n)
	for _, m := range stored {
		persisted = append(persisted, m.Content)
	}
	assert.Equal(t, persisted, b.contents(), "broadcast order matches storage order")
}
