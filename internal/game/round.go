package game

import (
	"math/rand"
	"sync"

	"github.com/Dyu-Ganadi/Urikkiri-Server/internal"
)

// RoundStore holds the ephemeral state of every active game: the cards
// submitted this turn, the rotation history of past examiners, and whether
// the examiner has been shown this turn's submissions yet. All of it is
// reconstructible and deliberately never persisted; a crash just ends the
// game for the connected clients.
type RoundStore struct {
	mu    sync.Mutex
	rooms map[string]*roundState
}

type roundState struct {
	cards          []internal.SubmittedCard
	history        []int64
	quorumNotified bool
}

func NewRoundStore() *RoundStore {
	return &RoundStore{rooms: make(map[string]*roundState)}
}

// StartGame marks the room active with a clean slate. Calling it on an
// already-active room just resets it.
func (s *RoundStore) StartGame(roomCode string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[roomCode] = &roundState{}
}

// NextTurn clears this turn's submissions but keeps the examiner history;
// the rotation spans the whole game, not one turn.
func (s *RoundStore) NextTurn(roomCode string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.rooms[roomCode]; ok {
		st.cards = nil
		st.quorumNotified = false
	}
}

// EndGame drops all ephemeral state for the room.
func (s *RoundStore) EndGame(roomCode string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.rooms, roomCode)
}

// Active reports whether a game is running in the room.
func (s *RoundStore) Active(roomCode string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rooms[roomCode]
	return ok
}

// SubmitCard appends a submission. Duplicate prevention is the caller's
// precondition; this layer only stores.
func (s *RoundStore) SubmitCard(roomCode string, card internal.SubmittedCard) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.rooms[roomCode]; ok {
		st.cards = append(st.cards, card)
	}
}

// HasSubmitted reports whether the participant already played this turn.
func (s *RoundStore) HasSubmitted(roomCode string, participantID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.rooms[roomCode]
	if !ok {
		return false
	}
	for _, c := range st.cards {
		if c.ParticipantID == participantID {
			return true
		}
	}
	return false
}

// SubmittedCards returns a copy of this turn's submissions in arrival order.
func (s *RoundStore) SubmittedCards(roomCode string) []internal.SubmittedCard {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.rooms[roomCode]
	if !ok {
		return nil
	}
	out := make([]internal.SubmittedCard, len(st.cards))
	copy(out, st.cards)
	return out
}

// SubmittedCount reports how many cards are in this turn.
func (s *RoundStore) SubmittedCount(roomCode string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.rooms[roomCode]; ok {
		return len(st.cards)
	}
	return 0
}

// QuorumReached reports whether enough cards are in. requiredCount is the
// participant count minus the examiner.
func (s *RoundStore) QuorumReached(roomCode string, requiredCount int) bool {
	return s.SubmittedCount(roomCode) >= requiredCount
}

// MarkQuorumNotified flips the per-turn notification latch and reports
// whether this caller won it. The examiner gets the submission list exactly
// once per turn no matter how submissions race.
func (s *RoundStore) MarkQuorumNotified(roomCode string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.rooms[roomCode]
	if !ok || st.quorumNotified {
		return false
	}
	st.quorumNotified = true
	return true
}

// RecordExaminer appends to the rotation history.
func (s *RoundStore) RecordExaminer(roomCode string, participantID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok := s.rooms[roomCode]; ok {
		st.history = append(st.history, participantID)
	}
}

// ExaminerHistory returns a copy of the rotation history.
func (s *RoundStore) ExaminerHistory(roomCode string) []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.rooms[roomCode]
	if !ok {
		return nil
	}
	out := make([]int64, len(st.history))
	copy(out, st.history)
	return out
}

// SelectNextExaminer picks uniformly among the participants who have not
// served yet. When everyone has served the history resets and the whole
// table becomes eligible again, so every participant examines exactly once
// per rotation cycle. The caller records the choice via RecordExaminer.
func (s *RoundStore) SelectNextExaminer(roomCode string, allParticipantIDs []int64) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.rooms[roomCode]
	if !ok {
		st = &roundState{}
		s.rooms[roomCode] = st
	}

	served := make(map[int64]struct{}, len(st.history))
	for _, id := range st.history {
		served[id] = struct{}{}
	}

	candidates := make([]int64, 0, len(allParticipantIDs))
	for _, id := range allParticipantIDs {
		if _, ok := served[id]; !ok {
			candidates = append(candidates, id)
		}
	}

	if len(candidates) == 0 {
		st.history = nil
		candidates = append(candidates, allParticipantIDs...)
	}

	return candidates[rand.Intn(len(candidates))]
}
