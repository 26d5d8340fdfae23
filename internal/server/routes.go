package server

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/Dyu-Ganadi/Urikkiri-Server/internal"
	"github.com/Dyu-Ganadi/Urikkiri-Server/internal/auth"
	"github.com/Dyu-Ganadi/Urikkiri-Server/internal/store"
	"github.com/Dyu-Ganadi/Urikkiri-Server/internal/utils"
)

func (s *Server) RegisterRoutes() http.Handler {
	r := mux.NewRouter()

	// Apply CORS middleware
	r.Use(s.corsMiddleware)

	r.HandleFunc("/health", s.HealthHandler).Methods(http.MethodGet)

	r.HandleFunc("/play-together", s.CreateRoomHandler).Methods(http.MethodPost)
	r.HandleFunc("/play-together/cards", s.GetCardsHandler).Methods(http.MethodGet)

	r.HandleFunc("/ws", s.wsHandler.ServeLobby)
	r.HandleFunc("/ws/game", s.wsHandler.ServeGame)

	return r
}

// CORS middleware
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// CORS Headers
		w.Header().Set("Access-Control-Allow-Origin", "*") // Wildcard allows all origins
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS, PATCH")
		w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type")
		w.Header().Set("Access-Control-Allow-Credentials", "false") // Credentials not allowed with wildcard origins

		// If it's a websocket upgrade, skip further CORS checks
		if strings.ToLower(r.Header.Get("Upgrade")) == "websocket" {
			next.ServeHTTP(w, r)
			return
		}

		// Handle preflight OPTIONS requests
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if err := utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"}); err != nil {
		log.Printf("[HealthHandler] error encoding response: %v", err)
	}
}

// CreateRoomHandler allocates a room over REST. The caller still joins it
// through the lobby websocket, so the room starts empty and the first joiner
// takes the examiner seat.
func (s *Server) CreateRoomHandler(w http.ResponseWriter, r *http.Request) {
	if _, err := s.authenticator.Authenticate(r.Context(), auth.TokenFromRequest(r)); err != nil {
		utils.WriteError(w, http.StatusUnauthorized, "invalid or missing token")
		return
	}

	for {
		code := utils.GenerateRoomCode()
		exists, err := s.store.RoomCodeExists(r.Context(), code)
		if err != nil {
			log.Printf("[CreateRoomHandler] code check failed: %v", err)
			utils.WriteError(w, http.StatusInternalServerError, "internal server error")
			return
		}
		if exists {
			continue
		}

		room, err := s.store.CreateRoom(r.Context(), code)
		if err != nil {
			log.Printf("[CreateRoomHandler] room insert failed: %v", err)
			utils.WriteError(w, http.StatusInternalServerError, "internal server error")
			return
		}

		log.Printf("[CreateRoomHandler] created room %s", room.Code)
		if err := utils.WriteJSON(w, http.StatusCreated, room); err != nil {
			log.Printf("[CreateRoomHandler] error encoding response: %v", err)
		}
		return
	}
}

// GetCardsHandler deals a random hand of answer cards.
func (s *Server) GetCardsHandler(w http.ResponseWriter, r *http.Request) {
	cards, err := s.store.RandomCards(r.Context(), internal.HandSize)
	if err != nil {
		if errors.Is(err, store.ErrInsufficientCards) {
			utils.WriteError(w, http.StatusNotFound, "not enough cards available")
			return
		}
		log.Printf("[GetCardsHandler] card lookup failed: %v", err)
		utils.WriteError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if err := utils.WriteJSON(w, http.StatusOK, cards); err != nil {
		log.Printf("[GetCardsHandler] error encoding response: %v", err)
	}
}
