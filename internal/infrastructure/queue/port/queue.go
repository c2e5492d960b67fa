package port

import (
	"context"
	"time"
)

// Task is one unit of background work: a stable type string (e.g. the chat
// send-message task) plus opaque payload bytes. Encoding is the producer's
// business; the port carries bytes only.
type Task struct {
	Type    string
	Payload []byte
}

// Handler processes one Task. Returning a non-nil error asks the adapter to
// retry under its own policy, so handlers must be idempotent and must swallow
// terminal failures themselves.
type Handler func(ctx context.Context, task Task) error

// EnqueueOption tunes how a task is scheduled. Adapters map the fields onto
// their backend best-effort and ignore what they cannot honor. Zero values
// mean "unspecified".
type EnqueueOption struct {
	Queue     string        // logical queue name
	ProcessIn time.Duration // delay before processing
	ProcessAt time.Time     // absolute schedule time, wins over ProcessIn when set
	MaxRetry  int           // retry budget for the task
	UniqueTTL time.Duration // suppress duplicate enqueues within this window
	Retention time.Duration // keep result metadata around after completion
	Deadline  time.Time     // hard processing deadline
}

// Client enqueues tasks. Controllers hold this, never the concrete broker.
type Client interface {
	Enqueue(ctx context.Context, t Task, opts ...EnqueueOption) (id string, err error)
	Close() error
}

// Server runs the workers. Run blocks until Stop is called or the context is
// canceled; Register must happen before Run.
type Server interface {
	Register(taskType string, h Handler)
	Run(ctx context.Context) error
	Stop(ctx context.Context) error
}
