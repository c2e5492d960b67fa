package call

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingTransport struct {
	mu   sync.Mutex
	sent map[string][][]byte
	fail map[string]bool
}

func newRecordingTransport() *recordingTransport {
	return &recordingTransport{sent: make(map[string][][]byte), fail: make(map[string]bool)}
}

func (t *recordingTransport) SendTo(connectionID string, payload []byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.fail[connectionID] {
		return errors.New("connection gone")
	}
	t.sent[connectionID] = append(t.sent[connectionID], payload)
	return nil
}

func (t *recordingTransport) payloads(connectionID string) [][]byte {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]byte, len(t.sent[connectionID]))
	copy(out, t.sent[connectionID])
	return out
}

func decode(t *testing.T, payload []byte) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(payload, &m))
	return m
}

func TestJoinReturnsExistingMembersAndNotifiesThem(t *testing.T) {
	transport := newRecordingTransport()
	c := NewCoordinator(transport)

	members, err := c.Join("alice", "room-1")
	require.NoError(t, err)
	assert.Empty(t, members)

	members, err = c.Join("bob", "room-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, members)

	got := transport.payloads("alice")
	require.Len(t, got, 1)
	event := decode(t, got[0])
	assert.Equal(t, "participantJoinedCall", event["type"])
	assert.Equal(t, "bob", event["connection_id"])
}

func TestJoinTwiceRejected(t *testing.T) {
	c := NewCoordinator(newRecordingTransport())

	_, err := c.Join("alice", "room-1")
	require.NoError(t, err)
	_, err = c.Join("alice", "room-1")
	assert.ErrorIs(t, err, ErrAlreadyInCall)
	_, err = c.Join("alice", "room-2")
	assert.ErrorIs(t, err, ErrAlreadyInCall)
}

func TestRelaySignalForwardsOpaquePayload(t *testing.T) {
	transport := newRecordingTransport()
	c := NewCoordinator(transport)
	_, _ = c.Join("alice", "room-1")
	_, _ = c.Join("bob", "room-1")

	sdp := json.RawMessage(`{"kind":"offer","sdp":"v=0..."}`)
	require.NoError(t, c.RelaySignal("alice", "bob", sdp))

	got := transport.payloads("bob")
	require.Len(t, got, 1)
	event := decode(t, got[0])
	assert.Equal(t, "signal", event["type"])
	assert.Equal(t, "alice", event["from"])
	assert.Equal(t, map[string]any{"kind": "offer", "sdp": "v=0..."}, event["payload"])
}

func TestPostMessageBroadcastsToOthersOnly(t *testing.T) {
	transport := newRecordingTransport()
	c := NewCoordinator(transport)
	_, _ = c.Join("alice", "room-1")
	_, _ = c.Join("bob", "room-1")

	aliceBefore := len(transport.payloads("alice"))
	require.NoError(t, c.PostMessage("alice", json.RawMessage(`"hi"`), "Alice"))

	require.Len(t, transport.payloads("bob"), 1)
	event := decode(t, transport.payloads("bob")[0])
	assert.Equal(t, "callMessage", event["type"])
	assert.Equal(t, "Alice", event["sender_label"])
	assert.Equal(t, "hi", event["data"])

	// the sender receives nothing for their own message
	assert.Len(t, transport.payloads("alice"), aliceBefore)
}

func TestPostMessageOutsideCall(t *testing.T) {
	c := NewCoordinator(newRecordingTransport())
	err := c.PostMessage("ghost", json.RawMessage(`"hi"`), "Ghost")
	assert.ErrorIs(t, err, ErrNotInCall)
}

func TestTranscriptReplayedToLateJoiner(t *testing.T) {
	transport := newRecordingTransport()
	c := NewCoordinator(transport)
	_, _ = c.Join("alice", "room-1")
	require.NoError(t, c.PostMessage("alice", json.RawMessage(`"first"`), "Alice"))
	require.NoError(t, c.PostMessage("alice", json.RawMessage(`"second"`), "Alice"))

	_, err := c.Join("bob", "room-1")
	require.NoError(t, err)

	got := transport.payloads("bob")
	require.Len(t, got, 2)
	assert.Equal(t, "first", decode(t, got[0])["data"])
	assert.Equal(t, "second", decode(t, got[1])["data"])
}

func TestLeaveNotifiesRemainingAndDropsEmptyRoom(t *testing.T) {
	transport := newRecordingTransport()
	c := NewCoordinator(transport)
	_, _ = c.Join("alice", "room-1")
	_, _ = c.Join("bob", "room-1")
	require.NoError(t, c.PostMessage("alice", json.RawMessage(`"hi"`), "Alice"))

	c.Leave("alice")

	got := transport.payloads("bob")
	event := decode(t, got[len(got)-1])
	assert.Equal(t, "participantLeftCall", event["type"])
	assert.Equal(t, "alice", event["connection_id"])

	c.Leave("bob")
	assert.Nil(t, c.RoomMembers("room-1"))

	// the room and its transcript are gone: a fresh joiner gets no replay
	before := len(transport.payloads("carol"))
	_, err := c.Join("carol", "room-1")
	require.NoError(t, err)
	assert.Len(t, transport.payloads("carol"), before)
}

func TestLeaveUnknownConnectionIsNoop(t *testing.T) {
	c := NewCoordinator(newRecordingTransport())
	c.Leave("ghost")
	c.Disconnect("ghost")
}

func TestDisconnectBehavesLikeLeave(t *testing.T) {
	transport := newRecordingTransport()
	c := NewCoordinator(transport)
	_, _ = c.Join("alice", "room-1")
	_, _ = c.Join("bob", "room-1")

	c.Disconnect("bob")

	assert.Equal(t, []string{"alice"}, c.RoomMembers("room-1"))
	got := transport.payloads("alice")
	event := decode(t, got[len(got)-1])
	assert.Equal(t, "participantLeftCall", event["type"])
}

func TestSendFailureDoesNotBlockOthers(t *testing.T) {
	transport := newRecordingTransport()
	transport.fail["bob"] = true
	c := NewCoordinator(transport)
	_, _ = c.Join("alice", "room-1")
	_, _ = c.Join("bob", "room-1")
	_, _ = c.Join("carol", "room-1")

	require.NoError(t, c.PostMessage("alice", json.RawMessage(`"hi"`), "Alice"))

	require.NotEmpty(t, transport.payloads("carol"))
	last := decode(t, transport.payloads("carol")[len(transport.payloads("carol"))-1])
	assert.Equal(t, "callMessage", last["type"])
}

func TestMembersOrderedByJoin(t *testing.T) {
	c := NewCoordinator(newRecordingTransport())
	_, _ = c.Join("alice", "room-1")
	_, _ = c.Join("bob", "room-1")
	_, _ = c.Join("carol", "room-1")
	assert.Equal(t, []string{"alice", "bob", "carol"}, c.RoomMembers("room-1"))
}
