package internal

import "encoding/json"

// MessageType identifies a websocket envelope in either direction.
type MessageType string

const (
	// Server -> client
	TypeConnected         MessageType = "CONNECTED"
	TypeRoomCreated       MessageType = "ROOM_CREATED"
	TypeRoomJoined        MessageType = "ROOM_JOINED"
	TypeUserJoined        MessageType = "USER_JOINED"
	TypeGameReady         MessageType = "GAME_READY"
	TypeGameStart         MessageType = "GAME_START"
	TypeCardSubmitted     MessageType = "CARD_SUBMITTED"
	TypeAllCardsSubmitted MessageType = "ALL_CARDS_SUBMITTED"
	TypeExaminerSelected  MessageType = "EXAMINER_SELECTED"
	TypeNextRound         MessageType = "NEXT_ROUND"
	TypeRoundEnd          MessageType = "ROUND_END"
	TypeKeepAlive         MessageType = "KEEPALIVE"
	TypeError             MessageType = "ERROR"

	// Client -> server
	TypeCreateRoom     MessageType = "CREATE_ROOM"
	TypeJoinRoom       MessageType = "JOIN_ROOM"
	TypeConnectGame    MessageType = "CONNECT_GAME"
	TypeSubmitCard     MessageType = "SUBMIT_CARD"
	TypeExaminerSelect MessageType = "EXAMINER_SELECT"
	TypeRoomExit       MessageType = "ROOM_EXIT"
	TypeLeaveRoom      MessageType = "LEAVE_ROOM"
)

// Message is the wire envelope for both directions. Unset fields are omitted
// from the JSON output rather than emitted as null.
type Message struct {
	Type     MessageType `json:"type"`
	RoomCode string      `json:"roomCode,omitempty"`
	Data     any         `json:"data,omitempty"`
	Message  string      `json:"message,omitempty"`
}

// InboundMessage is the read-side of the envelope: data stays raw until the
// handler for the message type knows what to decode it into.
type InboundMessage struct {
	Type     MessageType     `json:"type"`
	RoomCode string          `json:"roomCode"`
	Data     json.RawMessage `json:"data"`
}

// NewMessage builds a data-less envelope.
func NewMessage(t MessageType, roomCode, text string) Message {
	return Message{Type: t, RoomCode: roomCode, Message: text}
}

// NewDataMessage builds an envelope carrying a payload.
func NewDataMessage(t MessageType, roomCode string, data any, text string) Message {
	return Message{Type: t, RoomCode: roomCode, Data: data, Message: text}
}

// SubmitCardData is the SUBMIT_CARD payload.
type SubmitCardData struct {
	CardID int64 `json:"cardId"`
}

// ExaminerSelectData is the EXAMINER_SELECT payload.
type ExaminerSelectData struct {
	ParticipantID int64 `json:"participantId"`
}

// GameReadyData tells every lobby client to open its game connection.
type GameReadyData struct {
	Participants []Participant `json:"participants"`
	Message      string        `json:"message"`
}

// GameStartData opens the first turn on the game channel.
type GameStartData struct {
	Participants []Participant `json:"participants"`
	Question     Quiz          `json:"question"`
}

// ExaminerSelection announces the turn winner to the whole room.
type ExaminerSelection struct {
	ParticipantID  int64  `json:"participantId"`
	CardWord       string `json:"cardWord"`
	WinnerNickname string `json:"winnerNickname"`
	NewScore       int    `json:"newScore"`
}

// NextRoundData announces the rotated examiner and the fresh quiz.
type NextRoundData struct {
	NewExaminerID       int64  `json:"newExaminerId"`
	NewExaminerNickname string `json:"newExaminerNickname"`
	Quiz                Quiz   `json:"quiz"`
}

// PlayerRank is one row of the final ranking.
type PlayerRank struct {
	Rank     int    `json:"rank"`
	Nickname string `json:"nickname"`
	Level    int    `json:"level"`
	Score    int    `json:"score"`
}

// GameResult is the ROUND_END payload.
type GameResult struct {
	Rankings []PlayerRank `json:"rankings"`
}

// UserExit notifies remaining members that someone left.
type UserExit struct {
	UserID         int64  `json:"userId"`
	Nickname       string `json:"nickname"`
	RemainingCount int    `json:"remainingCount"`
}
