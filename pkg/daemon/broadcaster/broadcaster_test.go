package broadcaster

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcaster_Register(t *testing.T) {
	b := New(0)
	defer b.Close()

	c, err := b.Register()
	require.NoError(t, err)
	assert.NotEmpty(t, c.ID)
	assert.Equal(t, 1, b.Count())

	other, err := b.Register()
	require.NoError(t, err)
	assert.NotEqual(t, c.ID, other.ID)
	assert.Equal(t, 2, b.Count())
}

func TestBroadcaster_BroadcastKeepsOrder(t *testing.T) {
	b := New(8)
	defer b.Close()

	c, err := b.Register()
	require.NoError(t, err)

	for _, line := range []string{"a\n", "b\n", "c\n"} {
		assert.Equal(t, 1, b.Broadcast([]byte(line)))
	}

	for _, want := range []string{"a\n", "b\n", "c\n"} {
		select {
		case got := <-c.Outbox():
			assert.Equal(t, want, string(got))
		case <-time.After(100 * time.Millisecond):
			t.Fatal("expected line not received")
		}
	}
}

func TestBroadcaster_PrunesDeadClients(t *testing.T) {
	b := New(8)
	defer b.Close()

	live, err := b.Register()
	require.NoError(t, err)
	dead, err := b.Register()
	require.NoError(t, err)
	dead.Close()

	assert.Equal(t, 1, b.Broadcast([]byte("x\n")))
	assert.Equal(t, 1, b.Count())
	assert.False(t, live.Closed())
}

func TestBroadcaster_PrunesStalledClients(t *testing.T) {
	b := New(1)
	defer b.Close()

	stalled, err := b.Register()
	require.NoError(t, err)

	assert.Equal(t, 1, b.Broadcast([]byte("first\n")))
	assert.Equal(t, 0, b.Broadcast([]byte("second\n")), "full queue is not delivered to")
	assert.Equal(t, 0, b.Count())
	assert.True(t, stalled.Closed())
}

func TestBroadcaster_Unregister(t *testing.T) {
	b := New(0)
	defer b.Close()

	c, err := b.Register()
	require.NoError(t, err)
	b.Unregister(c.ID)

	assert.Equal(t, 0, b.Count())
	select {
	case <-c.Done():
	default:
		t.Fatal("client should be closed after unregister")
	}
	assert.False(t, c.Send([]byte("late\n")))
	assert.False(t, c.TrySend([]byte("late\n")))
}

func TestBroadcaster_Close(t *testing.T) {
	b := New(0)
	c, err := b.Register()
	require.NoError(t, err)

	b.Close()
	b.Close()

	assert.True(t, c.Closed())
	assert.Equal(t, 0, b.Count())

	_, err = b.Register()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestClient_SendUnblocksOnClose(t *testing.T) {
	b := New(1)
	defer b.Close()

	c, err := b.Register()
	require.NoError(t, err)
	require.True(t, c.Send([]byte("fill\n")))

	result := make(chan bool, 1)
	go func() { result <- c.Send([]byte("blocked\n")) }()

	time.Sleep(20 * time.Millisecond)
	c.Close()

	select {
	case ok := <-result:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("Send should return once the client closes")
	}
}
