package utils

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dyu-Ganadi/Urikkiri-Server/internal"
)

func TestGenerateRoomCode(t *testing.T) {
	for i := 0; i < 1000; i++ {
		code := GenerateRoomCode()
		require.Len(t, code, internal.RoomCodeLength)
		for _, r := range code {
			require.True(t, r >= '0' && r <= '9', "code %q must be numeric", code)
		}
		assert.NotEqual(t, '0', rune(code[0]), "code %q must not drop its leading digit", code)
	}
}

func TestWriteJSON(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteJSON(rec, http.StatusOK, map[string]string{"hello": "world"}))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var resp internal.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Error)
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	require.NoError(t, WriteError(rec, http.StatusNotFound, "nothing here"))

	assert.Equal(t, http.StatusNotFound, rec.Code)

	var resp internal.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "nothing here", resp.Error)
	assert.Nil(t, resp.Data)
}
