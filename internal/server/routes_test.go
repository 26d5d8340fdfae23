package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dyu-Ganadi/Urikkiri-Server/internal"
	"github.com/Dyu-Ganadi/Urikkiri-Server/internal/auth"
	"github.com/Dyu-Ganadi/Urikkiri-Server/internal/game"
	"github.com/Dyu-Ganadi/Urikkiri-Server/internal/store"
)

func newTestServer(t *testing.T) (*httptest.Server, *store.MemoryStore) {
	t.Helper()
	st := store.NewMemoryStore()
	coordinator := game.NewCoordinator(st)
	authenticator := auth.NewTokenAuthenticator(st)
	s := &Server{
		store:         st,
		authenticator: authenticator,
		coordinator:   coordinator,
		wsHandler:     game.NewHandler(coordinator, authenticator),
	}
	ts := httptest.NewServer(s.RegisterRoutes())
	t.Cleanup(ts.Close)
	return ts, st
}

func decodeResponse(t *testing.T, resp *http.Response) internal.Response {
	t.Helper()
	defer resp.Body.Close()
	var out internal.Response
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealthEndpoint(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	out := decodeResponse(t, resp)
	assert.Equal(t, http.StatusOK, out.StatusCode)
}

func TestCreateRoomEndpoint(t *testing.T) {
	ts, st := newTestServer(t)

	// No token, no room.
	resp, err := http.Post(ts.URL+"/play-together", "application/json", nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()

	st.SeedUser("alice", "alice-token")
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/play-together", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer alice-token")

	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	out := decodeResponse(t, resp)
	room := out.Data.(map[string]any)
	code := room["code"].(string)
	assert.Len(t, code, internal.RoomCodeLength)

	exists, err := st.RoomCodeExists(context.Background(), code)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCardsEndpoint(t *testing.T) {
	ts, st := newTestServer(t)

	resp, err := http.Get(ts.URL + "/play-together/cards")
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	for i := 0; i < internal.HandSize+2; i++ {
		st.SeedCard("word", "meaning")
	}

	resp, err = http.Get(ts.URL + "/play-together/cards")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	out := decodeResponse(t, resp)
	assert.Len(t, out.Data.([]any), internal.HandSize)
}

func TestCorsHeadersAndPreflight(t *testing.T) {
	ts, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/health", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestWebsocketRequiresToken(t *testing.T) {
	ts, _ := newTestServer(t)
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")

	_, resp, err := websocket.DefaultDialer.Dial(wsURL+"/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestWebsocketLobbyRoundTrip(t *testing.T) {
	ts, st := newTestServer(t)
	st.SeedUser("alice", "alice-token")
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http")

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"/ws?token=alice-token", nil)
	require.NoError(t, err)
	defer conn.Close()

	var greeting internal.Message
	require.NoError(t, conn.ReadJSON(&greeting))
	assert.Equal(t, internal.TypeConnected, greeting.Type)

	require.NoError(t, conn.WriteJSON(internal.Message{Type: internal.TypeCreateRoom}))

	var created internal.Message
	require.NoError(t, conn.ReadJSON(&created))
	require.Equal(t, internal.TypeRoomCreated, created.Type)
	assert.Len(t, created.RoomCode, internal.RoomCodeLength)
}
