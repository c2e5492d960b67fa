package adapter

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	qport "carechat/internal/infrastructure/queue/port"
	"carechat/internal/pkg/notify/port"
)

// NotifyTaskType is the queue task name for notification dispatch.
const NotifyTaskType = "notify:event"

// NotifyQueue is the logical queue notifications are enqueued on.
const NotifyQueue = "notify"

// QueueNotifier enqueues notifications as background tasks. Enqueue failures
// are logged and swallowed: delivery is best-effort by contract.
type QueueNotifier struct {
	client qport.Client
}

func NewQueueNotifier(client qport.Client) *QueueNotifier {
	return &QueueNotifier{client: client}
}

var _ port.Notifier = (*QueueNotifier)(nil)

func (n *QueueNotifier) Notify(ctx context.Context, notification port.Notification) {
	payload, err := json.Marshal(notification)
	if err != nil {
		log.Printf("notify: encode %s for %s: %v", notification.Event, notification.Recipient.Key(), err)
		return
	}
	opts := qport.EnqueueOption{Queue: NotifyQueue, MaxRetry: 5}
	if _, err := n.client.Enqueue(ctx, qport.Task{Type: NotifyTaskType, Payload: payload}, opts); err != nil {
		log.Printf("notify: enqueue %s for %s: %v", notification.Event, notification.Recipient.Key(), err)
	}
}

// RegisterNotifyTask binds the notification handler to the worker server.
// Real delivery channels (push, email) are external collaborators; the worker
// records the event so those systems can be attached later.
func RegisterNotifyTask(srv qport.Server) {
	srv.Register(NotifyTaskType, func(ctx context.Context, t qport.Task) error {
		var n port.Notification
		if err := json.Unmarshal(t.Payload, &n); err != nil {
			return err
		}
		log.Printf("notify: %s -> %s request=%s chat=%s message=%s",
			n.Event, n.Recipient.Key(), n.RequestID, n.ChatID, n.MessageID)
		return nil
	})
}

// Recorder captures notifications for assertions in tests.
type Recorder struct {
	mu            sync.Mutex
	notifications []port.Notification
}

func NewRecorder() *Recorder { return &Recorder{} }

var _ port.Notifier = (*Recorder)(nil)

func (r *Recorder) Notify(_ context.Context, n port.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notifications = append(r.notifications, n)
}

// Events returns the captured notifications in arrival order.
func (r *Recorder) Events() []port.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]port.Notification, len(r.notifications))
	copy(out, r.notifications)
	return out
}
