package controller

import (
	"encoding/json"
	"log"
	"time"

	"carechat/internal/infrastructure/realtime"
	chat "carechat/internal/pkg/chat/application/domain"
)

// MessageFanout broadcasts persisted messages to the chat's realtime room.
// It implements usecase.Broadcaster; every connection in the room receives
// the frame, the sender's other devices included.
type MessageFanout struct {
	Hub *realtime.Hub
}

func NewMessageFanout(hub *realtime.Hub) *MessageFanout {
	return &MessageFanout{Hub: hub}
}

type outboundMessage struct {
	Type    string         `json:"type"`
	ChatID  string         `json:"chat_id"`
	Message messagePayload `json:"message"`
}

type messagePayload struct {
	ID         string    `json:"id"`
	ChatID     string    `json:"chat_id"`
	SenderID   string    `json:"sender_id"`
	SenderKind string    `json:"sender_kind"`
	Content    string    `json:"content"`
	CreatedAt  time.Time `json:"created_at"`
}

func (f *MessageFanout) MessageAppended(m chat.Message) {
	payload, err := json.Marshal(outboundMessage{
		Type:    "message",
		ChatID:  m.ChatID,
		Message: toPayload(m),
	})
	if err != nil {
		log.Printf("fanout: encode message %s: %v", m.ID, err)
		return
	}
	f.Hub.Broadcast(m.ChatID, payload)
}

func toPayload(m chat.Message) messagePayload {
	return messagePayload{
		ID:         m.ID,
		ChatID:     m.ChatID,
		SenderID:   m.Sender.ID,
		SenderKind: string(m.Sender.Kind),
		Content:    m.Content,
		CreatedAt:  m.CreatedAt,
	}
}
