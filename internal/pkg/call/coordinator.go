// Package call is the signaling relay for live audio/video session setup.
// Rooms, membership and the in-call chat transcript are memory-only and
// discarded once a room empties; this is deliberately a weaker durability
// tier than the persisted chat message log.
package call

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"
)

var (
	ErrNotInCall     = errors.New("call: connection is not in a call room")
	ErrAlreadyInCall = errors.New("call: connection is already in a call room")
)

// Transport delivers a payload to a single live connection. The realtime hub
// satisfies this.
type Transport interface {
	SendTo(connectionID string, payload []byte) error
}

// TranscriptEntry is one buffered in-call chat message.
type TranscriptEntry struct {
	SenderLabel string          `json:"sender_label"`
	Data        json.RawMessage `json:"data"`
	SentAt      time.Time       `json:"sent_at"`
}

type room struct {
	id         string
	members    []string // ordered by join time
	joinedAt   map[string]time.Time
	transcript []TranscriptEntry
}

// Coordinator relays signaling between call room members. Payloads are
// opaque: the coordinator forwards them without interpretation.
type Coordinator struct {
	transport Transport

	mu     sync.Mutex
	rooms  map[string]*room
	byConn map[string]string // connectionID -> roomID
}

func NewCoordinator(transport Transport) *Coordinator {
	return &Coordinator{
		transport: transport,
		rooms:     make(map[string]*room),
		byConn:    make(map[string]string),
	}
}

type memberEvent struct {
	Type         string `json:"type"`
	RoomID       string `json:"room_id"`
	ConnectionID string `json:"connection_id"`
}

type signalEvent struct {
	Type    string          `json:"type"`
	From    string          `json:"from"`
	Payload json.RawMessage `json:"payload"`
}

type chatEvent struct {
	Type        string          `json:"type"`
	RoomID      string          `json:"room_id"`
	SenderLabel string          `json:"sender_label"`
	Data        json.RawMessage `json:"data"`
	SentAt      time.Time       `json:"sent_at"`
}

// Join adds the connection to the room, notifies existing members, replays
// the buffered in-room chat to the joiner, and returns the member list as it
// was before the join so the joiner can initiate peer connections.
func (c *Coordinator) Join(connectionID string, roomID string) ([]string, error) {
	c.mu.Lock()
	if _, in := c.byConn[connectionID]; in {
		c.mu.Unlock()
		return nil, ErrAlreadyInCall
	}
	r := c.rooms[roomID]
	if r == nil {
		r = &room{id: roomID, joinedAt: make(map[string]time.Time)}
		c.rooms[roomID] = r
	}
	existing := make([]string, len(r.members))
	copy(existing, r.members)
	replay := make([]TranscriptEntry, len(r.transcript))
	copy(replay, r.transcript)

	r.members = append(r.members, connectionID)
	r.joinedAt[connectionID] = time.Now()
	c.byConn[connectionID] = roomID
	c.mu.Unlock()

	c.fanOut(existing, memberEvent{Type: "participantJoinedCall", RoomID: roomID, ConnectionID: connectionID})

	for _, entry := range replay {
		c.send(connectionID, chatEvent{
			Type:        "callMessage",
			RoomID:      roomID,
			SenderLabel: entry.SenderLabel,
			Data:        entry.Data,
			SentAt:      entry.SentAt,
		})
	}

	return existing, nil
}

// RelaySignal forwards an opaque signaling payload to one peer.
func (c *Coordinator) RelaySignal(fromConnectionID string, toConnectionID string, payload json.RawMessage) error {
	return c.transport.SendTo(toConnectionID, mustMarshal(signalEvent{
		Type:    "signal",
		From:    fromConnectionID,
		Payload: payload,
	}))
}

// PostMessage appends to the room's ephemeral transcript and broadcasts to
// all other members.
func (c *Coordinator) PostMessage(connectionID string, payload json.RawMessage, senderLabel string) error {
	c.mu.Lock()
	roomID, in := c.byConn[connectionID]
	if !in {
		c.mu.Unlock()
		return ErrNotInCall
	}
	r := c.rooms[roomID]
	entry := TranscriptEntry{SenderLabel: senderLabel, Data: payload, SentAt: time.Now()}
	r.transcript = append(r.transcript, entry)

	targets := make([]string, 0, len(r.members))
	for _, id := range r.members {
		if id != connectionID {
			targets = append(targets, id)
		}
	}
	c.mu.Unlock()

	c.fanOut(targets, chatEvent{
		Type:        "callMessage",
		RoomID:      roomID,
		SenderLabel: entry.SenderLabel,
		Data:        entry.Data,
		SentAt:      entry.SentAt,
	})
	return nil
}

// Leave removes the connection from its room, notifies the remaining
// members, and deletes the room (transcript included) once empty.
func (c *Coordinator) Leave(connectionID string) {
	c.mu.Lock()
	roomID, in := c.byConn[connectionID]
	if !in {
		c.mu.Unlock()
		return
	}
	delete(c.byConn, connectionID)
	r := c.rooms[roomID]
	for i, id := range r.members {
		if id == connectionID {
			r.members = append(r.members[:i], r.members[i+1:]...)
			break
		}
	}
	delete(r.joinedAt, connectionID)

	var remaining []string
	if len(r.members) == 0 {
		delete(c.rooms, roomID)
	} else {
		remaining = make([]string, len(r.members))
		copy(remaining, r.members)
	}
	c.mu.Unlock()

	c.fanOut(remaining, memberEvent{Type: "participantLeftCall", RoomID: roomID, ConnectionID: connectionID})
}

// Disconnect handles a dropped connection the same way as an explicit leave.
func (c *Coordinator) Disconnect(connectionID string) {
	c.Leave(connectionID)
}

// RoomMembers returns the current member list, ordered by join time.
func (c *Coordinator) RoomMembers(roomID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.rooms[roomID]
	if r == nil {
		return nil
	}
	out := make([]string, len(r.members))
	copy(out, r.members)
	return out
}

func (c *Coordinator) fanOut(connectionIDs []string, event any) {
	payload := mustMarshal(event)
	for _, id := range connectionIDs {
		if err := c.transport.SendTo(id, payload); err != nil {
			log.Printf("call: send to %s: %v", id, err)
		}
	}
}

func (c *Coordinator) send(connectionID string, event any) {
	if err := c.transport.SendTo(connectionID, mustMarshal(event)); err != nil {
		log.Printf("call: send to %s: %v", connectionID, err)
	}
}

func mustMarshal(v any) []byte {
	payload, err := json.Marshal(v)
	if err != nil {
		// Event types marshal by construction; this indicates a bug.
		panic(err)
	}
	return payload
}
