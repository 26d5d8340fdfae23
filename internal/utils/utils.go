package utils

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"

	"github.com/Dyu-Ganadi/Urikkiri-Server/internal"
)

// GenerateRoomCode returns a random 6 digit numeric code. Uniqueness against
// existing rooms is the caller's job.
func GenerateRoomCode() string {
	return fmt.Sprintf("%06d", rand.Intn(900000)+100000)
}

// WriteJSON writes a REST envelope with the given status.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(internal.Response{
		StatusCode: status,
		Data:       data,
	})
}

// WriteError writes a REST error envelope.
func WriteError(w http.ResponseWriter, status int, message string) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(internal.Response{
		StatusCode: status,
		Error:      message,
	})
}
