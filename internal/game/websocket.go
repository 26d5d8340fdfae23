package game

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Dyu-Ganadi/Urikkiri-Server/internal"
	"github.com/Dyu-Ganadi/Urikkiri-Server/internal/auth"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler upgrades HTTP requests to websocket connections and runs the read
// loop, feeding inbound envelopes to the coordinator.
type Handler struct {
	coordinator   *Coordinator
	authenticator auth.Authenticator
}

func NewHandler(coordinator *Coordinator, authenticator auth.Authenticator) *Handler {
	return &Handler{coordinator: coordinator, authenticator: authenticator}
}

// ServeLobby handles the room formation channel.
func (h *Handler) ServeLobby(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, ClientLobby)
}

// ServeGame handles the in-game channel players reconnect on after
// GAME_READY.
func (h *Handler) ServeGame(w http.ResponseWriter, r *http.Request) {
	h.serve(w, r, ClientGame)
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request, clientType ClientType) {
	// Authentication happens before the upgrade so an anonymous request
	// costs no socket.
	user, err := h.authenticator.Authenticate(r.Context(), auth.TokenFromRequest(r))
	if err != nil {
		log.Printf("[WebSocket] rejected unauthenticated %s connection from %s", clientType, r.RemoteAddr)
		http.Error(w, ErrAuthenticationRequired.Text, http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[WebSocket] upgrade failed for user %s: %v", user.Nickname, err)
		return
	}

	client := NewClient(newWSConn(conn), user, clientType)
	log.Printf("[WebSocket] user %s connected on %s channel", user.Nickname, clientType)
	h.coordinator.Connect(client)

	defer func() {
		h.coordinator.Disconnect(client)
		client.Close()
		log.Printf("[WebSocket] user %s disconnected from %s channel", user.Nickname, clientType)
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Printf("[WebSocket] read error for user %s: %v", user.Nickname, err)
			}
			return
		}

		var msg internal.InboundMessage
		if err := json.Unmarshal(raw, &msg); err != nil || msg.Type == "" {
			log.Printf("[WebSocket] malformed message from user %s: %v", user.Nickname, err)
			h.coordinator.sendError(client, ErrInvalidMessageFormat)
			continue
		}

		h.coordinator.HandleMessage(r.Context(), client, msg)
	}
}
