// Package realtime tracks live websocket sessions and fans events out to
// logical rooms. The hub is process-local state: it is instantiated once and
// injected into handlers, and it never owns durable data.
package realtime

import (
	"errors"
	"sync"
)

var (
	ErrAlreadyIdentified = errors.New("realtime: connection already identified")
	ErrUnknownConnection = errors.New("realtime: unknown connection")
)

// Hub coordinates live connections, their identities, and room membership.
//
// A connection moves through: attached (anonymous) -> identified -> joined to
// zero or more rooms -> detached. Identification happens at most once per
// connection; a participant may hold several connections at a time
// (multi-device), all of which receive room broadcasts.
type Hub struct {
	mu           sync.RWMutex
	sessions     map[string]*Connection            // connectionID -> connection
	participants map[string]map[string]struct{}    // participant key -> set of connectionIDs
	rooms        map[string]map[string]*Connection // roomID -> connectionID -> connection
	sessionRooms map[string]map[string]struct{}    // connectionID -> set of roomIDs

	// roomOrder serializes broadcasts per room so two concurrent sends to the
	// same room cannot interleave across recipients.
	roomOrderMu sync.Mutex
	roomOrder   map[string]*sync.Mutex
}

// NewHub constructs an initialized Hub.
func NewHub() *Hub {
	return &Hub{
		sessions:     make(map[string]*Connection),
		participants: make(map[string]map[string]struct{}),
		rooms:        make(map[string]map[string]*Connection),
		sessionRooms: make(map[string]map[string]struct{}),
		roomOrder:    make(map[string]*sync.Mutex),
	}
}

// Attach registers an anonymous connection and starts its write loop.
func (h *Hub) Attach(conn *Connection) {
	h.mu.Lock()
	h.sessions[conn.ID] = conn
	h.sessionRooms[conn.ID] = make(map[string]struct{})
	h.mu.Unlock()

	conn.Start()
}

// Identify binds a participant to the connection. A connection identifies at
// most once; callers wanting a different identity open a new connection.
func (h *Hub) Identify(connectionID string, participantKey string) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn, ok := h.sessions[connectionID]
	if !ok {
		return ErrUnknownConnection
	}
	if !conn.bindParticipant(participantKey) {
		return ErrAlreadyIdentified
	}

	set := h.participants[participantKey]
	if set == nil {
		set = make(map[string]struct{})
		h.participants[participantKey] = set
	}
	set[connectionID] = struct{}{}
	return nil
}

// Join adds the connection to the room. Joining a room twice is a no-op.
func (h *Hub) Join(roomID string, conn *Connection) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.sessions[conn.ID]; !ok {
		return
	}

	room := h.rooms[roomID]
	if room == nil {
		room = make(map[string]*Connection)
		h.rooms[roomID] = room
	}
	room[conn.ID] = conn
	h.sessionRooms[conn.ID][roomID] = struct{}{}
}

// Leave removes the connection from the room.
func (h *Hub) Leave(roomID string, conn *Connection) {
	h.mu.Lock()
	h.leaveLocked(roomID, conn.ID)
	h.mu.Unlock()
}

// Broadcast writes payload to every connection currently joined to the room,
// the sender's own connections included. A failed write to one recipient
// never blocks delivery to the rest. Returns the number of deliveries that
// were accepted for writing.
func (h *Hub) Broadcast(roomID string, payload []byte) int {
	order := h.orderFor(roomID)
	order.Lock()
	defer order.Unlock()

	h.mu.RLock()
	members := make([]*Connection, 0, len(h.rooms[roomID]))
	for _, conn := range h.rooms[roomID] {
		members = append(members, conn)
	}
	h.mu.RUnlock()

	delivered := 0
	for _, conn := range members {
		if err := conn.Send(payload); err == nil {
			delivered++
		}
	}
	return delivered
}

// NotifyParticipant delivers payload to every live connection of the
// participant, regardless of room membership.
func (h *Hub) NotifyParticipant(participantKey string, payload []byte) int {
	h.mu.RLock()
	conns := make([]*Connection, 0, len(h.participants[participantKey]))
	for id := range h.participants[participantKey] {
		if conn := h.sessions[id]; conn != nil {
			conns = append(conns, conn)
		}
	}
	h.mu.RUnlock()

	delivered := 0
	for _, conn := range conns {
		if err := conn.Send(payload); err == nil {
			delivered++
		}
	}
	return delivered
}

// SendTo delivers payload to a single connection.
func (h *Hub) SendTo(connectionID string, payload []byte) error {
	h.mu.RLock()
	conn := h.sessions[connectionID]
	h.mu.RUnlock()
	if conn == nil {
		return ErrUnknownConnection
	}
	return conn.Send(payload)
}

// Detach removes the connection from every room it joined and forgets it.
// Durable state is untouched; this only frees in-memory bookkeeping.
func (h *Hub) Detach(conn *Connection) {
	h.mu.Lock()
	h.detachLocked(conn.ID)
	h.mu.Unlock()
}

// RoomSize reports the current number of connections in the room.
func (h *Hub) RoomSize(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// Close terminates all tracked connections and clears hub state.
func (h *Hub) Close() {
	h.mu.Lock()
	sessions := make([]*Connection, 0, len(h.sessions))
	for _, conn := range h.sessions {
		sessions = append(sessions, conn)
	}
	h.sessions = make(map[string]*Connection)
	h.participants = make(map[string]map[string]struct{})
	h.rooms = make(map[string]map[string]*Connection)
	h.sessionRooms = make(map[string]map[string]struct{})
	h.mu.Unlock()

	h.roomOrderMu.Lock()
	h.roomOrder = make(map[string]*sync.Mutex)
	h.roomOrderMu.Unlock()

	for _, conn := range sessions {
		conn.Close(1001, "hub shutdown")
	}
}

func (h *Hub) orderFor(roomID string) *sync.Mutex {
	h.roomOrderMu.Lock()
	defer h.roomOrderMu.Unlock()
	m := h.roomOrder[roomID]
	if m == nil {
		m = &sync.Mutex{}
		h.roomOrder[roomID] = m
	}
	return m
}

func (h *Hub) detachLocked(connectionID string) {
	conn, ok := h.sessions[connectionID]
	if !ok {
		return
	}
	delete(h.sessions, connectionID)

	if key := conn.Participant(); key != "" {
		if set, ok := h.participants[key]; ok {
			delete(set, connectionID)
			if len(set) == 0 {
				delete(h.participants, key)
			}
		}
	}

	for roomID := range h.sessionRooms[connectionID] {
		h.leaveLocked(roomID, connectionID)
	}
	delete(h.sessionRooms, connectionID)
}

func (h *Hub) leaveLocked(roomID string, connectionID string) {
	room := h.rooms[roomID]
	if room == nil {
		return
	}
	delete(room, connectionID)
	if len(room) == 0 {
		delete(h.rooms, roomID)
		// Drop the room's broadcast-order mutex with it; an in-flight
		// broadcast keeps its own reference, and a re-created room gets a
		// fresh one.
		h.roomOrderMu.Lock()
		delete(h.roomOrder, roomID)
		h.roomOrderMu.Unlock()
	}
	if memberships, ok := h.sessionRooms[connectionID]; ok {
		delete(memberships, roomID)
	}
}
