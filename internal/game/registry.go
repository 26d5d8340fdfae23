package game

import (
	"log"
	"sync"

	"github.com/Dyu-Ganadi/Urikkiri-Server/internal"
)

// Registry tracks the live connections of every room, split into the lobby
// set and the game set, plus the reverse map from connection to room. Rooms
// are created on first insert and dropped when both sets empty out; the
// durable room row is untouched either way.
type Registry struct {
	mu     sync.RWMutex
	rooms  map[string]*roomEntry
	byConn map[*Client]string
}

type roomEntry struct {
	lobby map[*Client]struct{}
	game  map[*Client]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		rooms:  make(map[string]*roomEntry),
		byConn: make(map[*Client]string),
	}
}

func (r *Registry) entry(roomCode string) *roomEntry {
	e, ok := r.rooms[roomCode]
	if !ok {
		e = &roomEntry{
			lobby: make(map[*Client]struct{}),
			game:  make(map[*Client]struct{}),
		}
		r.rooms[roomCode] = e
	}
	return e
}

// AddLobby registers a lobby connection. Idempotent. A stale lobby
// connection of the same user in the same room is displaced so a user never
// holds two live lobby connections there.
func (r *Registry) AddLobby(roomCode string, c *Client) {
	r.add(roomCode, c, false)
}

// AddGame registers a game connection, with the same displacement rule.
func (r *Registry) AddGame(roomCode string, c *Client) {
	r.add(roomCode, c, true)
}

func (r *Registry) add(roomCode string, c *Client, game bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e := r.entry(roomCode)
	set := e.lobby
	if game {
		set = e.game
	}
	if _, ok := set[c]; ok {
		return
	}
	for existing := range set {
		if existing.User.ID == c.User.ID {
			delete(set, existing)
			delete(r.byConn, existing)
		}
	}
	set[c] = struct{}{}
	r.byConn[c] = roomCode
}

// Remove deregisters the connection from both sets of the room. The room
// entry is dropped once empty.
func (r *Registry) Remove(roomCode string, c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.rooms[roomCode]
	if !ok {
		return
	}
	delete(e.lobby, c)
	delete(e.game, c)
	delete(r.byConn, c)
	if len(e.lobby) == 0 && len(e.game) == 0 {
		delete(r.rooms, roomCode)
	}
}

// LobbyConns returns a snapshot of the room's lobby connections.
func (r *Registry) LobbyConns(roomCode string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.rooms[roomCode]
	if !ok {
		return nil
	}
	return snapshot(e.lobby)
}

// GameConns returns a snapshot of the room's game connections.
func (r *Registry) GameConns(roomCode string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.rooms[roomCode]
	if !ok {
		return nil
	}
	return snapshot(e.game)
}

// GameConnOf finds the game connection a user holds in the room.
func (r *Registry) GameConnOf(roomCode string, userID int64) (*Client, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.rooms[roomCode]
	if !ok {
		return nil, false
	}
	for c := range e.game {
		if c.User.ID == userID {
			return c, true
		}
	}
	return nil, false
}

// RoomCodeOf is the reverse lookup.
func (r *Registry) RoomCodeOf(c *Client) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	code, ok := r.byConn[c]
	return code, ok
}

// AllConns snapshots every registered connection across all rooms. The
// keep-alive loop uses it.
func (r *Registry) AllConns() []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Client
	for _, e := range r.rooms {
		out = append(out, snapshot(e.lobby)...)
		out = append(out, snapshot(e.game)...)
	}
	return out
}

// Broadcast sends the envelope to each client. A failed send never blocks
// the rest of the fan-out; the dead connection is closed and pruned so the
// registry heals itself.
func (r *Registry) Broadcast(clients []*Client, msg internal.Message) {
	for _, c := range clients {
		if err := c.Send(msg); err != nil {
			log.Printf("[Broadcast] send to user %d failed, pruning connection: %v", c.User.ID, err)
			if code, ok := r.RoomCodeOf(c); ok {
				r.Remove(code, c)
			}
			_ = c.Close()
		}
	}
}

func snapshot(set map[*Client]struct{}) []*Client {
	out := make([]*Client, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}
