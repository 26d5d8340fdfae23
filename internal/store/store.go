package store

import (
	"context"
	"errors"

	"github.com/Dyu-Ganadi/Urikkiri-Server/internal"
)

var (
	ErrRoomNotFound        = errors.New("room not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrQuizNotFound        = errors.New("quiz not found")
	ErrCardNotFound        = errors.New("card not found")
	ErrInsufficientCards   = errors.New("not enough cards")
)

// Store is the durable side of the game: rooms, participants, users, quizzes
// and cards. The websocket coordinator owns all multi-step sequences; the
// store only promises that each individual call is atomic.
type Store interface {
	CreateRoom(ctx context.Context, code string) (internal.Room, error)
	FindRoomByCode(ctx context.Context, code string) (internal.Room, error)
	RoomCodeExists(ctx context.Context, code string) (bool, error)

	CreateParticipant(ctx context.Context, roomID, userID int64, isExaminer bool) (internal.Participant, error)
	FindParticipant(ctx context.Context, roomID, userID int64) (internal.Participant, error)
	FindParticipantByID(ctx context.Context, roomID, participantID int64) (internal.Participant, error)
	// ListParticipants returns participants with user fields joined in,
	// ordered by participant id (creation order).
	ListParticipants(ctx context.Context, roomID int64) ([]internal.Participant, error)
	CountParticipants(ctx context.Context, roomID int64) (int, error)
	DeleteParticipant(ctx context.Context, participantID int64) error
	// DeleteParticipantsByUser removes the user from every room they are in.
	// Joining a new room silently migrates the user this way.
	DeleteParticipantsByUser(ctx context.Context, userID int64) error
	SetExaminer(ctx context.Context, participantID int64, isExaminer bool) error
	// IncrementScore adds one point and returns the new score.
	IncrementScore(ctx context.Context, participantID int64) (int, error)

	FindCardByID(ctx context.Context, cardID int64) (internal.Card, error)
	RandomCards(ctx context.Context, n int) ([]internal.Card, error)
	RandomQuiz(ctx context.Context) (internal.Quiz, error)

	FindUserByToken(ctx context.Context, token string) (internal.User, error)
	AddUserXp(ctx context.Context, userID int64, amount int) error
}
