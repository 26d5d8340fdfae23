package server

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/Dyu-Ganadi/Urikkiri-Server/internal/auth"
	"github.com/Dyu-Ganadi/Urikkiri-Server/internal/game"
	"github.com/Dyu-Ganadi/Urikkiri-Server/internal/store"
)

type Server struct {
	port int

	store         store.Store
	authenticator auth.Authenticator
	coordinator   *game.Coordinator
	wsHandler     *game.Handler
}

// NewServer wires the HTTP surface around an already-constructed store and
// coordinator. PORT comes from the environment, defaulting to 8080.
func NewServer(st store.Store, coordinator *game.Coordinator) *http.Server {
	port, _ := strconv.Atoi(os.Getenv("PORT"))
	if port == 0 {
		port = 8080
	}

	authenticator := auth.NewTokenAuthenticator(st)
	s := &Server{
		port:          port,
		store:         st,
		authenticator: authenticator,
		coordinator:   coordinator,
		wsHandler:     game.NewHandler(coordinator, authenticator),
	}

	return &http.Server{
		Addr:         fmt.Sprintf(":%d", s.port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}
