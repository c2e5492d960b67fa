package controller

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"carechat/internal/infrastructure/realtime"
	"carechat/internal/pkg/call"
	chat "carechat/internal/pkg/chat/application/domain"
	"carechat/internal/pkg/chat/application/usecase"
	identity "carechat/internal/pkg/identity/domain"
	idport "carechat/internal/pkg/identity/port"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// ChatSocketController handles the websocket endpoint for realtime chat and
// call signaling traffic. A connection arrives anonymous and must identify
// before joining rooms or sending.
type ChatSocketController struct {
	hub             *realtime.Hub
	calls           *call.Coordinator
	directory       idport.Directory
	sendMessageUC   *usecase.SendMessageUseCase
	joinChatUC      *usecase.JoinChatUseCase
	inflightTimeout time.Duration
}

func NewChatSocketController(hub *realtime.Hub, calls *call.Coordinator, directory idport.Directory, sendUC *usecase.SendMessageUseCase, joinUC *usecase.JoinChatUseCase) *ChatSocketController {
	return &ChatSocketController{
		hub:             hub,
		calls:           calls,
		directory:       directory,
		sendMessageUC:   sendUC,
		joinChatUC:      joinUC,
		inflightTimeout: 5 * time.Second,
	}
}

var wsUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Allow all origins for now; plug a proper checker when auth is added.
		return true
	},
}

type inboundFrame struct {
	Type string `json:"type"`

	// identify
	ParticipantID   string `json:"participant_id,omitempty"`
	ParticipantKind string `json:"participant_kind,omitempty"`

	// join / leave / message
	ChatID  string `json:"chat_id,omitempty"`
	Content string `json:"content,omitempty"`

	// call frames
	RoomID  string          `json:"room_id,omitempty"`
	To      string          `json:"to,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type errorFrame struct {
	Type  string `json:"type"`
	Code  string `json:"code"`
	Error string `json:"error"`
}

type ackFrame struct {
	Type         string   `json:"type"`
	ChatID       string   `json:"chat_id,omitempty"`
	RoomID       string   `json:"room_id,omitempty"`
	ConnectionID string   `json:"connection_id,omitempty"`
	Members      []string `json:"members,omitempty"`
}

const defaultReadTimeout = 60 * time.Second

// Handle upgrades HTTP connections to websocket and processes frames until the client disconnects.
func (ctl *ChatSocketController) Handle() gin.HandlerFunc {
	return func(c *gin.Context) {
		ws, err := wsUpgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade already wrote the response; just log and return.
			return
		}

		conn := realtime.NewConnection(ws)
		ctl.hub.Attach(conn)
		defer func() {
			ctl.calls.Disconnect(conn.ID)
			ctl.hub.Detach(conn)
			conn.Close(websocket.CloseNormalClosure, "session closed")
		}()

		ws.SetReadLimit(1 << 20) // 1MB payload cap
		_ = ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		ws.SetPongHandler(func(string) error {
			return ws.SetReadDeadline(time.Now().Add(defaultReadTimeout))
		})

		if payload, err := json.Marshal(ackFrame{Type: "connected", ConnectionID: conn.ID}); err == nil {
			_ = conn.Send(payload)
		}

		// The identified participant, tracked session-locally alongside the
		// hub binding so use cases get a typed ref.
		var participant *identity.Ref

		for {
			_, data, err := ws.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived) ||
					errors.Is(err, websocket.ErrCloseSent) {
					return
				}
				ctl.replyError(conn, "read_error", err.Error())
				return
			}

			var frame inboundFrame
			if err := json.Unmarshal(data, &frame); err != nil {
				ctl.replyError(conn, "bad_request", "invalid payload")
				continue
			}

			switch frame.Type {
			case "identify":
				participant = ctl.handleIdentify(c, conn, participant, frame)
			case "join":
				ctl.handleJoin(c, conn, participant, frame)
			case "leave":
				ctl.handleLeave(conn, frame)
			case "message":
				ctl.handleMessage(c, conn, participant, frame)
			case "call:join":
				ctl.handleCallJoin(conn, participant, frame)
			case "call:leave":
				ctl.calls.Leave(conn.ID)
				ctl.ack(conn, ackFrame{Type: "call:left"})
			case "call:signal":
				ctl.handleCallSignal(conn, frame)
			case "call:message":
				ctl.handleCallMessage(c, conn, participant, frame)
			default:
				ctl.replyError(conn, "unsupported_type", "unknown frame type")
			}
		}
	}
}

func (ctl *ChatSocketController) handleIdentify(c *gin.Context, conn *realtime.Connection, current *identity.Ref, frame inboundFrame) *identity.Ref {
	ref, err := identity.NewRef(frame.ParticipantID, identity.Kind(frame.ParticipantKind))
	if err != nil {
		ctl.replyError(conn, "bad_request", err.Error())
		return current
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.inflightTimeout)
	defer cancel()
	ok, err := ctl.directory.Exists(ctx, ref)
	if err != nil {
		ctl.replyError(conn, "internal_error", "identity lookup failed")
		return current
	}
	if !ok {
		ctl.replyError(conn, "unknown_participant", "participant does not exist")
		return current
	}

	if err := ctl.hub.Identify(conn.ID, ref.Key()); err != nil {
		ctl.replyError(conn, "already_identified", err.Error())
		return current
	}

	ctl.ack(conn, ackFrame{Type: "identified"})
	return &ref
}

func (ctl *ChatSocketController) handleJoin(c *gin.Context, conn *realtime.Connection, participant *identity.Ref, frame inboundFrame) {
	if participant == nil {
		ctl.replyError(conn, "not_identified", "identify before joining")
		return
	}
	if frame.ChatID == "" {
		ctl.replyError(conn, "bad_request", "chat_id is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.inflightTimeout)
	defer cancel()

	if err := ctl.joinChatUC.Execute(ctx, usecase.JoinChatInput{ChatID: frame.ChatID, Participant: *participant}); err != nil {
		ctl.handleUseCaseError(conn, err)
		return
	}

	ctl.hub.Join(frame.ChatID, conn)
	ctl.ack(conn, ackFrame{Type: "joined", ChatID: frame.ChatID})
}

func (ctl *ChatSocketController) handleLeave(conn *realtime.Connection, frame inboundFrame) {
	if frame.ChatID == "" {
		ctl.replyError(conn, "bad_request", "chat_id is required")
		return
	}
	ctl.hub.Leave(frame.ChatID, conn)
	ctl.ack(conn, ackFrame{Type: "left", ChatID: frame.ChatID})
}

func (ctl *ChatSocketController) handleMessage(c *gin.Context, conn *realtime.Connection, participant *identity.Ref, frame inboundFrame) {
	if participant == nil {
		ctl.replyError(conn, "not_identified", "identify before sending")
		return
	}
	if frame.ChatID == "" {
		ctl.replyError(conn, "bad_request", "chat_id is required")
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.inflightTimeout)
	defer cancel()

	// The use case broadcasts through the fanout after persisting, so the
	// sender's devices receive the message via the room like everyone else.
	_, err := ctl.sendMessageUC.Execute(ctx, usecase.SendMessageInput{
		ChatID:  frame.ChatID,
		Sender:  *participant,
		Content: frame.Content,
	})
	if err != nil {
		ctl.handleUseCaseError(conn, err)
	}
}

func (ctl *ChatSocketController) handleCallJoin(conn *realtime.Connection, participant *identity.Ref, frame inboundFrame) {
	if participant == nil {
		ctl.replyError(conn, "not_identified", "identify before joining a call")
		return
	}
	if frame.RoomID == "" {
		ctl.replyError(conn, "bad_request", "room_id is required")
		return
	}

	members, err := ctl.calls.Join(conn.ID, frame.RoomID)
	if err != nil {
		ctl.replyError(conn, "call_error", err.Error())
		return
	}
	ctl.ack(conn, ackFrame{Type: "call:joined", RoomID: frame.RoomID, Members: members})
}

func (ctl *ChatSocketController) handleCallSignal(conn *realtime.Connection, frame inboundFrame) {
	if frame.To == "" {
		ctl.replyError(conn, "bad_request", "to is required")
		return
	}
	if err := ctl.calls.RelaySignal(conn.ID, frame.To, frame.Payload); err != nil {
		ctl.replyError(conn, "call_error", "peer is not reachable")
	}
}

func (ctl *ChatSocketController) handleCallMessage(c *gin.Context, conn *realtime.Connection, participant *identity.Ref, frame inboundFrame) {
	if participant == nil {
		ctl.replyError(conn, "not_identified", "identify before sending")
		return
	}

	label := participant.Key()
	ctx, cancel := context.WithTimeout(c.Request.Context(), ctl.inflightTimeout)
	defer cancel()
	if profile, err := ctl.directory.GetProfile(ctx, *participant); err == nil && profile.DisplayName != "" {
		label = profile.DisplayName
	}

	if err := ctl.calls.PostMessage(conn.ID, frame.Data, label); err != nil {
		ctl.replyError(conn, "call_error", err.Error())
	}
}

func (ctl *ChatSocketController) handleUseCaseError(conn *realtime.Connection, err error) {
	switch {
	case errors.Is(err, usecase.ErrPersistence):
		ctl.replyError(conn, "internal_error", "unexpected persistence error")
	case errors.Is(err, chat.ErrNotParticipant):
		ctl.replyError(conn, "forbidden", "participant is not a member of this chat")
	default:
		ctl.replyError(conn, "bad_request", err.Error())
	}
}

func (ctl *ChatSocketController) ack(conn *realtime.Connection, frame ackFrame) {
	if payload, err := json.Marshal(frame); err == nil {
		_ = conn.Send(payload)
	}
}

func (ctl *ChatSocketController) replyError(conn *realtime.Connection, code string, message string) {
	frame := errorFrame{
		Type:  "error",
		Code:  code,
		Error: message,
	}
	if payload, err := json.Marshal(frame); err == nil {
		_ = conn.Send(payload)
	}
}
