package game

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dyu-Ganadi/Urikkiri-Server/internal"
)

// fakeConn records everything written to it. It stands in for a websocket
// connection in every game package test.
type fakeConn struct {
	mu        sync.Mutex
	msgs      []internal.Message
	closed    bool
	failWrite bool
}

func (f *fakeConn) WriteJSON(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failWrite {
		return errors.New("connection gone")
	}
	msg, ok := v.(internal.Message)
	if !ok {
		return fmt.Errorf("unexpected payload type %T", v)
	}
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeConn) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeConn) messages() []internal.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]internal.Message, len(f.msgs))
	copy(out, f.msgs)
	return out
}

func (f *fakeConn) countType(t internal.MessageType) int {
	count := 0
	for _, m := range f.messages() {
		if m.Type == t {
			count++
		}
	}
	return count
}

func (f *fakeConn) lastOfType(t internal.MessageType) (internal.Message, bool) {
	msgs := f.messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Type == t {
			return msgs[i], true
		}
	}
	return internal.Message{}, false
}

func newTestClient(userID int64, nickname string, clientType ClientType) (*Client, *fakeConn) {
	conn := &fakeConn{}
	user := internal.User{ID: userID, Nickname: nickname, Level: 1}
	return NewClient(conn, user, clientType), conn
}

func TestRegistryAddAndSnapshot(t *testing.T) {
	r := NewRegistry()
	a, _ := newTestClient(1, "alice", ClientLobby)
	b, _ := newTestClient(2, "bob", ClientLobby)
	g, _ := newTestClient(1, "alice", ClientGame)

	r.AddLobby("123456", a)
	r.AddLobby("123456", a) // idempotent
	r.AddLobby("123456", b)
	r.AddGame("123456", g)

	assert.Len(t, r.LobbyConns("123456"), 2)
	assert.Len(t, r.GameConns("123456"), 1)

	code, ok := r.RoomCodeOf(a)
	require.True(t, ok)
	assert.Equal(t, "123456", code)

	found, ok := r.GameConnOf("123456", 1)
	require.True(t, ok)
	assert.Same(t, g, found)

	_, ok = r.GameConnOf("123456", 2)
	assert.False(t, ok)
}

func TestRegistryDisplacesStaleConnectionOfSameUser(t *testing.T) {
	r := NewRegistry()
	stale, _ := newTestClient(1, "alice", ClientLobby)
	fresh, _ := newTestClient(1, "alice", ClientLobby)

	r.AddLobby("123456", stale)
	r.AddLobby("123456", fresh)

	conns := r.LobbyConns("123456")
	require.Len(t, conns, 1)
	assert.Same(t, fresh, conns[0])

	_, ok := r.RoomCodeOf(stale)
	assert.False(t, ok)
}

func TestRegistryRemoveDropsEmptyRoom(t *testing.T) {
	r := NewRegistry()
	a, _ := newTestClient(1, "alice", ClientLobby)

	r.AddLobby("123456", a)
	r.Remove("123456", a)

	assert.Empty(t, r.LobbyConns("123456"))
	_, ok := r.RoomCodeOf(a)
	assert.False(t, ok)
	assert.Empty(t, r.AllConns())
}

func TestBroadcastPrunesDeadConnections(t *testing.T) {
	r := NewRegistry()
	alive, aliveConn := newTestClient(1, "alice", ClientLobby)
	dead, deadConn := newTestClient(2, "bob", ClientLobby)
	deadConn.failWrite = true

	r.AddLobby("123456", alive)
	r.AddLobby("123456", dead)

	r.Broadcast(r.LobbyConns("123456"), internal.NewMessage(internal.TypeKeepAlive, "", "ping"))

	assert.Equal(t, 1, aliveConn.countType(internal.TypeKeepAlive))
	assert.True(t, deadConn.closed)

	conns := r.LobbyConns("123456")
	require.Len(t, conns, 1)
	assert.Same(t, alive, conns[0])
}
