package store

import (
	"context"
	"math/rand"
	"sort"
	"sync"

	"github.com/Dyu-Ganadi/Urikkiri-Server/internal"
)

// MemoryStore keeps everything in maps behind one RWMutex. It backs local
// development without a database and every unit test in the game package.
type MemoryStore struct {
	mu sync.RWMutex

	users        map[int64]*internal.User
	tokens       map[string]int64
	rooms        map[int64]internal.Room
	roomsByCode  map[string]int64
	participants map[int64]internal.Participant
	quizzes      []internal.Quiz
	cards        map[int64]internal.Card

	nextUserID        int64
	nextRoomID        int64
	nextParticipantID int64
	nextCardID        int64
	nextQuizID        int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:        make(map[int64]*internal.User),
		tokens:       make(map[string]int64),
		rooms:        make(map[int64]internal.Room),
		roomsByCode:  make(map[string]int64),
		participants: make(map[int64]internal.Participant),
		cards:        make(map[int64]internal.Card),
	}
}

// SeedUser registers a user reachable through token. Test and dev helper.
func (s *MemoryStore) SeedUser(nickname, token string) internal.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextUserID++
	u := &internal.User{ID: s.nextUserID, Nickname: nickname, Level: 1}
	s.users[u.ID] = u
	s.tokens[token] = u.ID
	return *u
}

// SeedQuiz adds a quiz to the pool.
func (s *MemoryStore) SeedQuiz(content string) internal.Quiz {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextQuizID++
	q := internal.Quiz{ID: s.nextQuizID, Content: content}
	s.quizzes = append(s.quizzes, q)
	return q
}

// SeedCard adds a card to the deck.
func (s *MemoryStore) SeedCard(word, meaning string) internal.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextCardID++
	c := internal.Card{ID: s.nextCardID, Word: word, Meaning: meaning}
	s.cards[c.ID] = c
	return c
}

func (s *MemoryStore) CreateRoom(_ context.Context, code string) (internal.Room, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextRoomID++
	room := internal.Room{ID: s.nextRoomID, Code: code}
	s.rooms[room.ID] = room
	s.roomsByCode[code] = room.ID
	return room, nil
}

func (s *MemoryStore) FindRoomByCode(_ context.Context, code string) (internal.Room, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.roomsByCode[code]
	if !ok {
		return internal.Room{}, ErrRoomNotFound
	}
	return s.rooms[id], nil
}

func (s *MemoryStore) RoomCodeExists(_ context.Context, code string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.roomsByCode[code]
	return ok, nil
}

func (s *MemoryStore) CreateParticipant(_ context.Context, roomID, userID int64, isExaminer bool) (internal.Participant, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[userID]
	if !ok {
		return internal.Participant{}, ErrUserNotFound
	}
	s.nextParticipantID++
	p := internal.Participant{
		ID:         s.nextParticipantID,
		RoomID:     roomID,
		UserID:     userID,
		Nickname:   user.Nickname,
		Level:      user.Level,
		IsExaminer: isExaminer,
	}
	s.participants[p.ID] = p
	return p, nil
}

func (s *MemoryStore) FindParticipant(_ context.Context, roomID, userID int64) (internal.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.participants {
		if p.RoomID == roomID && p.UserID == userID {
			return p, nil
		}
	}
	return internal.Participant{}, ErrParticipantNotFound
}

func (s *MemoryStore) FindParticipantByID(_ context.Context, roomID, participantID int64) (internal.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.participants[participantID]
	if !ok || p.RoomID != roomID {
		return internal.Participant{}, ErrParticipantNotFound
	}
	return p, nil
}

func (s *MemoryStore) ListParticipants(_ context.Context, roomID int64) ([]internal.Participant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []internal.Participant
	for _, p := range s.participants {
		if p.RoomID == roomID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) CountParticipants(_ context.Context, roomID int64) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, p := range s.participants {
		if p.RoomID == roomID {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) DeleteParticipant(_ context.Context, participantID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.participants[participantID]; !ok {
		return ErrParticipantNotFound
	}
	delete(s.participants, participantID)
	return nil
}

func (s *MemoryStore) DeleteParticipantsByUser(_ context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, p := range s.participants {
		if p.UserID == userID {
			delete(s.participants, id)
		}
	}
	return nil
}

func (s *MemoryStore) SetExaminer(_ context.Context, participantID int64, isExaminer bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[participantID]
	if !ok {
		return ErrParticipantNotFound
	}
	p.IsExaminer = isExaminer
	s.participants[participantID] = p
	return nil
}

func (s *MemoryStore) IncrementScore(_ context.Context, participantID int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.participants[participantID]
	if !ok {
		return 0, ErrParticipantNotFound
	}
	p.Score++
	s.participants[participantID] = p
	return p.Score, nil
}

func (s *MemoryStore) FindCardByID(_ context.Context, cardID int64) (internal.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.cards[cardID]
	if !ok {
		return internal.Card{}, ErrCardNotFound
	}
	return c, nil
}

func (s *MemoryStore) RandomCards(_ context.Context, n int) ([]internal.Card, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.cards) < n {
		return nil, ErrInsufficientCards
	}
	all := make([]internal.Card, 0, len(s.cards))
	for _, c := range s.cards {
		all = append(all, c)
	}
	rand.Shuffle(len(all), func(i, j int) { all[i], all[j] = all[j], all[i] })
	return all[:n], nil
}

func (s *MemoryStore) RandomQuiz(_ context.Context) (internal.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.quizzes) == 0 {
		return internal.Quiz{}, ErrQuizNotFound
	}
	return s.quizzes[rand.Intn(len(s.quizzes))], nil
}

func (s *MemoryStore) FindUserByToken(_ context.Context, token string) (internal.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.tokens[token]
	if !ok {
		return internal.User{}, ErrUserNotFound
	}
	return *s.users[id], nil
}

func (s *MemoryStore) AddUserXp(_ context.Context, userID int64, amount int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	u.AddXp(amount)
	return nil
}
