package game

import (
	"sync"

	"github.com/gorilla/websocket"

	"github.com/Dyu-Ganadi/Urikkiri-Server/internal"
)

// ClientType distinguishes the two connection phases. A player holds a lobby
// connection during room formation and opens a separate game connection once
// the room is full.
type ClientType string

const (
	ClientLobby ClientType = "LOBBY"
	ClientGame  ClientType = "GAME"
)

// Conn is the transport a client talks over. Production wraps
// *websocket.Conn; tests plug in in-memory fakes.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

// Client is one live connection with its authenticated identity.
type Client struct {
	conn Conn
	User internal.User
	Type ClientType
}

func NewClient(conn Conn, user internal.User, clientType ClientType) *Client {
	return &Client{conn: conn, User: user, Type: clientType}
}

// Send writes one envelope to the client.
func (c *Client) Send(msg internal.Message) error {
	return c.conn.WriteJSON(msg)
}

func (c *Client) Close() error {
	return c.conn.Close()
}

// wsConn serializes writes to a gorilla connection; concurrent WriteJSON on
// the same *websocket.Conn is not allowed.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{conn: conn}
}

func (w *wsConn) WriteJSON(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(v)
}

func (w *wsConn) Close() error {
	return w.conn.Close()
}
