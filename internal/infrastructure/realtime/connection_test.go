package realtime

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendAfterCloseReturnsError(t *testing.T) {
	tr := &fakeTransport{}
	conn := NewConnection(tr)
	conn.Start()

	conn.Close(1000, "bye")

	// must not panic, must report the closed state
	for i := 0; i < 10; i++ {
		assert.ErrorIs(t, conn.Send([]byte("late")), ErrConnectionClosed)
	}
}

func TestSendRacingCloseNeverPanics(t *testing.T) {
	for i := 0; i < 50; i++ {
		tr := &fakeTransport{}
		conn := NewConnection(tr)
		conn.Start()

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for j := 0; j < 20; j++ {
				_ = conn.Send([]byte("payload"))
			}
		}()
		go func() {
			defer wg.Done()
			conn.Close(1001, "going away")
		}()
		wg.Wait()
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	tr := &fakeTransport{}
	conn := NewConnection(tr)
	conn.Start()

	conn.Close(1000, "first")
	conn.Close(1000, "second")

	tr.mu.Lock()
	closed := tr.closed
	tr.mu.Unlock()
	assert.True(t, closed)
}

func TestBroadcastToDisconnectingMemberSkipsIt(t *testing.T) {
	h := NewHub()
	alice, atr := attach(t, h)
	bob, _ := attach(t, h)
	h.Join("room-1", alice)
	h.Join("room-1", bob)

	// bob's socket closed but the hub has not detached it yet, as happens
	// while its read loop is unwinding
	bob.Close(1001, "client gone")

	delivered := h.Broadcast("room-1", []byte("m1"))
	assert.Equal(t, 1, delivered)

	frames := atr.waitFor(t, 1)
	require.Equal(t, "m1", string(frames[0]))
}
