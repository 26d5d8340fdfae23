package game

// ProtocolError is a user-facing precondition violation. It travels back to
// the offending connection as an ERROR envelope and never reaches anyone
// else in the room.
type ProtocolError struct {
	Code string
	Text string
}

func (e *ProtocolError) Error() string { return e.Text }

var (
	ErrAuthenticationRequired = &ProtocolError{"WEBSOCKET_AUTHENTICATION_REQUIRED", "WebSocket Authentication Required"}
	ErrInvalidMessageFormat   = &ProtocolError{"WEBSOCKET_INVALID_MESSAGE_FORMAT", "Invalid WebSocket Message Format"}
	ErrRoomCodeRequired       = &ProtocolError{"WEBSOCKET_ROOM_CODE_REQUIRED", "Room Code is Required"}
	ErrRoomCreationFailed     = &ProtocolError{"WEBSOCKET_ROOM_CREATION_FAILED", "Failed to Create Room"}
	ErrNotParticipant         = &ProtocolError{"WEBSOCKET_NOT_PARTICIPANT", "You are not a participant of this room"}

	ErrRoomNotFound         = &ProtocolError{"ROOM_NOT_FOUND", "Room Not Found"}
	ErrRoomAlreadyFull      = &ProtocolError{"ROOM_ALREADY_FULL", "Room is Already Full"}
	ErrParticipantNotFound  = &ProtocolError{"PARTICIPANT_NOT_FOUND", "Participant Not Found"}
	ErrExaminerNotFound     = &ProtocolError{"EXAMINER_NOT_FOUND", "Examiner Not Found"}
	ErrExaminerCannotSubmit = &ProtocolError{"EXAMINER_CANNOT_SUBMIT_CARD", "Examiner Cannot Submit a Card"}
	ErrCardNotFound         = &ProtocolError{"CARD_NOT_FOUND", "Card Not Found"}
	ErrQuizNotFound         = &ProtocolError{"QUIZ_NOT_FOUND", "Quiz Not Found"}
	ErrGameAlreadyStarted   = &ProtocolError{"GAME_ALREADY_STARTED", "Cannot Exit After the Game Has Started"}
)
