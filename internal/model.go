package internal

const (
	// MaxParticipantsPerRoom is the fixed room capacity. Quorum for a
	// submission turn is everyone except the examiner.
	MaxParticipantsPerRoom = 4

	// WinScore ends the game when any participant reaches it.
	WinScore = 5

	// RoomCodeLength is the number of digits in a room code.
	RoomCodeLength = 6

	// HandSize is how many cards the REST card endpoint deals.
	HandSize = 5
)

// XpRewards is indexed by zero-based final rank. Ranks beyond the table
// receive nothing.
var XpRewards = [4]int{20, 10, 5, 2}

// User is the durable account record. Password handling lives outside this
// server; only the fields the game touches are carried here.
type User struct {
	ID       int64  `json:"id"`
	Email    string `json:"email"`
	Nickname string `json:"nickname"`
	Level    int    `json:"level"`
	Xp       int    `json:"xp"`
}

// AddXp grants xp and recomputes the level from the fixed thresholds.
func (u *User) AddXp(reward int) {
	u.Xp += reward
	switch {
	case u.Xp <= 10:
		u.Level = 1
	case u.Xp <= 20:
		u.Level = 2
	case u.Xp <= 30:
		u.Level = 3
	default:
		u.Level = 4
	}
}

// Room is the durable room record. Rooms are never deleted by the game so a
// code stays joinable after everyone leaves.
type Room struct {
	ID   int64  `json:"id"`
	Code string `json:"code"`
}

// Participant ties a user to a room for one game. Score and the examiner
// flag are durable; everything else about a round is ephemeral.
type Participant struct {
	ID         int64  `json:"id"`
	RoomID     int64  `json:"-"`
	UserID     int64  `json:"userId"`
	Nickname   string `json:"nickname"`
	Level      int    `json:"level"`
	Score      int    `json:"score"`
	IsExaminer bool   `json:"isExaminer"`
}

// Quiz is one question prompt shown to the whole room.
type Quiz struct {
	ID      int64  `json:"quizId"`
	Content string `json:"content"`
}

// Card is one answer card a participant can play.
type Card struct {
	ID      int64  `json:"cardId"`
	Word    string `json:"word"`
	Meaning string `json:"meaning"`
}

// SubmittedCard snapshots a submission so later display never re-queries the
// card or user rows.
type SubmittedCard struct {
	ParticipantID int64  `json:"participantId"`
	Nickname      string `json:"nickname"`
	CardID        int64  `json:"cardId"`
	Word          string `json:"word"`
	Meaning       string `json:"meaning"`
}

// Response is the REST envelope used by the HTTP handlers.
type Response struct {
	StatusCode int    `json:"status_code"`
	Data       any    `json:"data,omitempty"`
	Error      string `json:"error,omitempty"`
}
