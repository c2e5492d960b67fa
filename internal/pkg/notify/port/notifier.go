package port

import (
	"context"

	identity "carechat/internal/pkg/identity/domain"
)

// Event names the notification kinds emitted by the core.
type Event string

const (
	EventRequestCreated  Event = "requestCreated"
	EventRequestAccepted Event = "requestAccepted"
	EventRequestRejected Event = "requestRejected"
	EventNewMessage      Event = "newMessage"
)

// Notification carries the event and the identifiers a delivery channel needs.
// Fields not relevant to an event are left empty.
type Notification struct {
	Recipient identity.Ref `json:"recipient"`
	Event     Event        `json:"event"`
	RequestID string       `json:"request_id,omitempty"`
	ChatID    string       `json:"chat_id,omitempty"`
	MessageID string       `json:"message_id,omitempty"`
	Reason    string       `json:"reason,omitempty"`
}

// Notifier delivers notifications fire-and-forget. Implementations must
// swallow their own failures; a notification must never fail the operation
// that produced it.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// Discard drops every notification.
type Discard struct{}

func (Discard) Notify(context.Context, Notification) {}
