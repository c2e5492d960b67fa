package task

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	qport "carechat/internal/infrastructure/queue/port"
	"carechat/internal/pkg/chat/application/usecase"
	repoAdapter "carechat/internal/pkg/chat/persistence/repository/adapter"
	identity "carechat/internal/pkg/identity/domain"
	notifyAdapter "carechat/internal/pkg/notify/adapter"

	"github.com/jackc/pgx/v5/pgxpool"
)

// SendMessageTaskType is the queue task name for appending a chat message.
const SendMessageTaskType = "chat:send_message"

// SendMessageTaskPayload is the JSON payload transported via the queue.
// Kept decoupled from domain types to avoid tight coupling with JSON tags.
type SendMessageTaskPayload struct {
	ChatID     string `json:"chatId"`
	SenderID   string `json:"senderId"`
	SenderKind string `json:"senderKind"`
	Content    string `json:"content"`
}

// RegisterSendMessageTask binds the task handler to the provided server.
// The worker persists and dispatches notifications; live fan-out happens in
// the API process when the message is read back or sent over a socket.
func RegisterSendMessageTask(srv qport.Server, pool *pgxpool.Pool, client qport.Client) {
	srv.Register(SendMessageTaskType, func(ctx context.Context, t qport.Task) error {
		var p SendMessageTaskPayload
		if err := json.Unmarshal(t.Payload, &p); err != nil {
			// malformed payload cannot become valid on retry
			log.Printf("chat task: drop malformed payload: %v", err)
			return nil
		}

		sender, err := identity.NewRef(p.SenderID, identity.Kind(p.SenderKind))
		if err != nil {
			log.Printf("chat task: drop %s: %v", p.ChatID, err)
			return nil
		}

		repo := repoAdapter.NewPgChatRepository(pool)
		uc := usecase.NewSendMessageUseCase(repo).
			WithNotifier(notifyAdapter.NewQueueNotifier(client))

		// give DB a reasonable time budget per task execution
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		_, err = uc.Execute(ctx, usecase.SendMessageInput{
			ChatID:  p.ChatID,
			Sender:  sender,
			Content: p.Content,
		})
		if err != nil && !retryable(err) {
			// validation and not-found failures are terminal; retrying
			// replays the same outcome 20 times
			log.Printf("chat task: drop send to %s from %s: %v", p.ChatID, sender.Key(), err)
			return nil
		}
		return err
	})
}

// retryable reports whether the queue should re-run the task. Only
// infrastructure failures can succeed on a later attempt.
func retryable(err error) bool {
	return errors.Is(err, usecase.ErrPersistence)
}
