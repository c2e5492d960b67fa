package task

import (
	"context"
	"fmt"
	"testing"

	qport "carechat/internal/infrastructure/queue/port"
	chat "carechat/internal/pkg/chat/application/domain"
	"carechat/internal/pkg/chat/application/usecase"
	repository "carechat/internal/pkg/chat/persistence/repository/port"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeServer captures registered handlers so tests can invoke them directly.
type fakeServer struct {
	handlers map[string]qport.Handler
}

func newFakeServer() *fakeServer {
	return &fakeServer{handlers: make(map[string]qport.Handler)}
}

func (s *fakeServer) Register(taskType string, h qport.Handler) { s.handlers[taskType] = h }
func (s *fakeServer) Run(ctx context.Context) error             { return nil }
func (s *fakeServer) Stop(ctx context.Context) error            { return nil }

type nopClient struct{}

func (nopClient) Enqueue(ctx context.Context, t qport.Task, opts ...qport.EnqueueOption) (string, error) {
	return "task-id", nil
}
func (nopClient) Close() error { return nil }

func TestRetryableOnlyForPersistenceFailures(t *testing.T) {
	assert.True(t, retryable(usecase.ErrPersistence))
	assert.True(t, retryable(fmt.Errorf("%w: connection refused", usecase.ErrPersistence)))

	assert.False(t, retryable(chat.ErrNotParticipant))
	assert.False(t, retryable(chat.ErrEmptyMessage))
	assert.False(t, retryable(repository.ErrChatNotFound))
}

func TestHandlerDropsUndecodablePayloads(t *testing.T) {
	srv := newFakeServer()
	RegisterSendMessageTask(srv, nil, nopClient{})
	handler := srv.handlers[SendMessageTaskType]
	require.NotNil(t, handler)

	// malformed JSON: terminal, must not signal a retry
	err := handler(context.Background(), qport.Task{
		Type:    SendMessageTaskType,
		Payload: []byte("{not json"),
	})
	assert.NoError(t, err)

	// unknown participant kind: terminal as well
	err = handler(context.Background(), qport.Task{
		Type:    SendMessageTaskType,
		Payload: []byte(`{"chatId":"c1","senderId":"alice","senderKind":"Robot","content":"hi"}`),
	})
	assert.NoError(t, err)
}
