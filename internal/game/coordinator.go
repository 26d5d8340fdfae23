package game

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sort"
	"sync"

	"github.com/Dyu-Ganadi/Urikkiri-Server/internal"
	"github.com/Dyu-Ganadi/Urikkiri-Server/internal/store"
	"github.com/Dyu-Ganadi/Urikkiri-Server/internal/utils"
)

// Coordinator drives the room protocol: lobby formation over lobby
// connections, the handoff to game connections, submission turns and
// examiner judging until someone wins.
//
// Every mutating handler runs under that room's mutex so quorum detection,
// win detection and examiner rotation cannot race between connections of the
// same room. Recipient sets are snapshotted and the lock released before any
// fan-out, so one slow connection never stalls the room.
type Coordinator struct {
	store    store.Store
	registry *Registry
	rounds   *RoundStore

	locks sync.Map // roomCode -> *sync.Mutex
}

func NewCoordinator(st store.Store) *Coordinator {
	return &Coordinator{
		store:    st,
		registry: NewRegistry(),
		rounds:   NewRoundStore(),
	}
}

// Registry exposes the connection registry to the transport and the
// keep-alive loop.
func (c *Coordinator) Registry() *Registry { return c.registry }

// Rounds exposes the ephemeral round store.
func (c *Coordinator) Rounds() *RoundStore { return c.rounds }

func (c *Coordinator) lockRoom(roomCode string) func() {
	v, _ := c.locks.LoadOrStore(roomCode, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// Connect greets a freshly authenticated connection.
func (c *Coordinator) Connect(client *Client) {
	text := "WebSocket connection established. Send CREATE_ROOM or JOIN_ROOM message."
	if client.Type == ClientGame {
		text = "Game WebSocket connection established. Send CONNECT_GAME message with room code."
	}
	if err := client.Send(internal.NewMessage(internal.TypeConnected, "", text)); err != nil {
		log.Printf("[Connect] failed to greet user %d: %v", client.User.ID, err)
	}
}

// Disconnect deregisters the connection. Durable state is untouched; a
// dropped socket is not a room exit.
func (c *Coordinator) Disconnect(client *Client) {
	if roomCode, ok := c.registry.RoomCodeOf(client); ok {
		c.registry.Remove(roomCode, client)
		log.Printf("[Disconnect] user %s left room %s", client.User.Nickname, roomCode)
	}
}

// HandleMessage dispatches one inbound envelope. Precondition violations go
// back to the sender as ERROR envelopes; anything unexpected is logged and
// reported as a generic invalid-message error. The connection stays open in
// every case.
func (c *Coordinator) HandleMessage(ctx context.Context, client *Client, msg internal.InboundMessage) {
	var err error
	switch msg.Type {
	case internal.TypeCreateRoom:
		err = c.handleCreateRoom(ctx, client)
	case internal.TypeJoinRoom:
		err = c.handleJoinRoom(ctx, client, msg.RoomCode)
	case internal.TypeConnectGame:
		err = c.handleConnectGame(ctx, client, msg.RoomCode)
	case internal.TypeSubmitCard:
		err = c.handleSubmitCard(ctx, client, msg)
	case internal.TypeExaminerSelect:
		err = c.handleExaminerSelect(ctx, client, msg)
	case internal.TypeRoomExit:
		err = c.handleRoomExit(ctx, client, msg.RoomCode)
	case internal.TypeLeaveRoom:
		err = c.handleLeaveRoom(ctx, client, msg.RoomCode)
	default:
		log.Printf("[HandleMessage] ignoring message type %q from user %s", msg.Type, client.User.Nickname)
		return
	}

	if err == nil {
		return
	}
	var perr *ProtocolError
	if !errors.As(err, &perr) {
		log.Printf("[HandleMessage] %s from user %s failed: %v", msg.Type, client.User.Nickname, err)
		perr = ErrInvalidMessageFormat
	}
	c.sendError(client, perr)
}

func (c *Coordinator) sendError(client *Client, perr *ProtocolError) {
	msg := internal.Message{Type: internal.TypeError, Data: perr.Code, Message: perr.Text}
	if err := client.Send(msg); err != nil {
		log.Printf("[sendError] failed to deliver %s to user %d: %v", perr.Code, client.User.ID, err)
	}
}

func (c *Coordinator) handleCreateRoom(ctx context.Context, client *Client) error {
	code, err := c.allocateRoomCode(ctx)
	if err != nil {
		log.Printf("[CreateRoom] code allocation failed for user %s: %v", client.User.Nickname, err)
		return ErrRoomCreationFailed
	}

	unlock := c.lockRoom(code)
	room, err := c.store.CreateRoom(ctx, code)
	if err != nil {
		unlock()
		log.Printf("[CreateRoom] failed for user %s: %v", client.User.Nickname, err)
		return ErrRoomCreationFailed
	}
	if _, err := c.store.CreateParticipant(ctx, room.ID, client.User.ID, true); err != nil {
		unlock()
		log.Printf("[CreateRoom] participant insert failed for user %s: %v", client.User.Nickname, err)
		return ErrRoomCreationFailed
	}
	participants, err := c.store.ListParticipants(ctx, room.ID)
	if err != nil {
		unlock()
		return err
	}
	c.registry.AddLobby(code, client)
	unlock()

	log.Printf("[CreateRoom] user %s created room %s", client.User.Nickname, code)
	return client.Send(internal.NewDataMessage(internal.TypeRoomCreated, code, participants, "Room created successfully"))
}

func (c *Coordinator) allocateRoomCode(ctx context.Context) (string, error) {
	for {
		code := utils.GenerateRoomCode()
		exists, err := c.store.RoomCodeExists(ctx, code)
		if err != nil {
			return "", err
		}
		if !exists {
			return code, nil
		}
	}
}

func (c *Coordinator) handleJoinRoom(ctx context.Context, client *Client, roomCode string) error {
	if roomCode == "" {
		return ErrRoomCodeRequired
	}

	unlock := c.lockRoom(roomCode)
	room, err := c.store.FindRoomByCode(ctx, roomCode)
	if err != nil {
		unlock()
		if errors.Is(err, store.ErrRoomNotFound) {
			return ErrRoomNotFound
		}
		return err
	}

	// A user still registered in another room is silently migrated.
	if err := c.store.DeleteParticipantsByUser(ctx, client.User.ID); err != nil {
		unlock()
		return err
	}

	count, err := c.store.CountParticipants(ctx, room.ID)
	if err != nil {
		unlock()
		return err
	}
	if count >= internal.MaxParticipantsPerRoom {
		unlock()
		return ErrRoomAlreadyFull
	}

	// First joiner of an empty room becomes the examiner.
	if _, err := c.store.CreateParticipant(ctx, room.ID, client.User.ID, count == 0); err != nil {
		unlock()
		return err
	}
	participants, err := c.store.ListParticipants(ctx, room.ID)
	if err != nil {
		unlock()
		return err
	}
	c.registry.AddLobby(roomCode, client)
	lobby := c.registry.LobbyConns(roomCode)
	unlock()

	log.Printf("[JoinRoom] user %s joined room %s (%d/%d)",
		client.User.Nickname, roomCode, len(participants), internal.MaxParticipantsPerRoom)

	if err := client.Send(internal.NewDataMessage(internal.TypeRoomJoined, roomCode, participants, "Successfully joined room")); err != nil {
		log.Printf("[JoinRoom] ack to user %d failed: %v", client.User.ID, err)
	}
	c.registry.Broadcast(lobby, internal.NewDataMessage(
		internal.TypeUserJoined, roomCode, participants, client.User.Nickname+" joined the room"))

	if len(participants) == internal.MaxParticipantsPerRoom {
		log.Printf("[JoinRoom] room %s is full, announcing game handoff", roomCode)
		ready := internal.GameReadyData{
			Participants: participants,
			Message:      "All players ready. Reconnect on the game channel with your token and room code.",
		}
		c.registry.Broadcast(lobby, internal.NewDataMessage(
			internal.TypeGameReady, roomCode, ready, "All players ready!"))
	}
	return nil
}

func (c *Coordinator) handleConnectGame(ctx context.Context, client *Client, roomCode string) error {
	if roomCode == "" {
		return ErrRoomCodeRequired
	}

	unlock := c.lockRoom(roomCode)
	room, err := c.store.FindRoomByCode(ctx, roomCode)
	if err != nil {
		unlock()
		if errors.Is(err, store.ErrRoomNotFound) {
			return ErrRoomNotFound
		}
		return err
	}
	if _, err := c.store.FindParticipant(ctx, room.ID, client.User.ID); err != nil {
		unlock()
		if errors.Is(err, store.ErrParticipantNotFound) {
			return ErrParticipantNotFound
		}
		return err
	}

	c.registry.AddGame(roomCode, client)

	participants, err := c.store.ListParticipants(ctx, room.ID)
	if err != nil {
		unlock()
		return err
	}
	gameConns := c.registry.GameConns(roomCode)
	log.Printf("[ConnectGame] user %s connected to game channel for room %s (%d/%d)",
		client.User.Nickname, roomCode, len(gameConns), len(participants))

	if len(gameConns) < len(participants) || c.rounds.Active(roomCode) {
		unlock()
		return nil
	}

	examiner, ok := findExaminer(participants)
	if !ok {
		unlock()
		return ErrExaminerNotFound
	}
	quiz, err := c.store.RandomQuiz(ctx)
	if err != nil {
		unlock()
		if errors.Is(err, store.ErrQuizNotFound) {
			return ErrQuizNotFound
		}
		return err
	}
	c.rounds.StartGame(roomCode)
	c.rounds.RecordExaminer(roomCode, examiner.ID)
	unlock()

	log.Printf("[GameStart] room %s: %d players connected, examiner is %s",
		roomCode, len(participants), examiner.Nickname)

	data := internal.GameStartData{Participants: participants, Question: quiz}
	c.registry.Broadcast(gameConns, internal.NewDataMessage(
		internal.TypeGameStart, roomCode, data, "Game is starting! All players connected."))
	return nil
}

func (c *Coordinator) handleSubmitCard(ctx context.Context, client *Client, msg internal.InboundMessage) error {
	roomCode := msg.RoomCode
	if roomCode == "" {
		return ErrRoomCodeRequired
	}
	var payload internal.SubmitCardData
	if err := json.Unmarshal(msg.Data, &payload); err != nil {
		return ErrInvalidMessageFormat
	}

	unlock := c.lockRoom(roomCode)
	room, err := c.store.FindRoomByCode(ctx, roomCode)
	if err != nil {
		unlock()
		if errors.Is(err, store.ErrRoomNotFound) {
			return ErrRoomNotFound
		}
		return err
	}
	participant, err := c.store.FindParticipant(ctx, room.ID, client.User.ID)
	if err != nil {
		unlock()
		if errors.Is(err, store.ErrParticipantNotFound) {
			return ErrParticipantNotFound
		}
		return err
	}
	if participant.IsExaminer {
		unlock()
		return ErrExaminerCannotSubmit
	}
	if c.rounds.HasSubmitted(roomCode, participant.ID) {
		unlock()
		return ErrInvalidMessageFormat
	}
	card, err := c.store.FindCardByID(ctx, payload.CardID)
	if err != nil {
		unlock()
		if errors.Is(err, store.ErrCardNotFound) {
			return ErrCardNotFound
		}
		return err
	}

	c.rounds.SubmitCard(roomCode, internal.SubmittedCard{
		ParticipantID: participant.ID,
		Nickname:      participant.Nickname,
		CardID:        card.ID,
		Word:          card.Word,
		Meaning:       card.Meaning,
	})
	log.Printf("[SubmitCard] user %s submitted %q in room %s (%d submitted)",
		client.User.Nickname, card.Word, roomCode, c.rounds.SubmittedCount(roomCode))

	count, err := c.store.CountParticipants(ctx, room.ID)
	if err != nil {
		unlock()
		return err
	}

	// The quorum latch trips exactly once per turn even when the last few
	// submissions race; only the tripping submission notifies the examiner.
	var examinerConn *Client
	var submitted []internal.SubmittedCard
	if c.rounds.QuorumReached(roomCode, count-1) && c.rounds.MarkQuorumNotified(roomCode) {
		participants, err := c.store.ListParticipants(ctx, room.ID)
		if err != nil {
			unlock()
			return err
		}
		examiner, ok := findExaminer(participants)
		if !ok {
			unlock()
			return ErrExaminerNotFound
		}
		// The examiner's own game connection, found by user id; the
		// submitting socket belongs to somebody else.
		if conn, ok := c.registry.GameConnOf(roomCode, examiner.UserID); ok {
			examinerConn = conn
			submitted = c.rounds.SubmittedCards(roomCode)
		}
	}
	unlock()

	if err := client.Send(internal.NewMessage(internal.TypeCardSubmitted, roomCode, "Card submitted successfully")); err != nil {
		log.Printf("[SubmitCard] ack to user %d failed: %v", client.User.ID, err)
	}
	if examinerConn != nil {
		log.Printf("[SubmitCard] quorum reached in room %s, notifying examiner", roomCode)
		c.registry.Broadcast([]*Client{examinerConn}, internal.NewDataMessage(
			internal.TypeAllCardsSubmitted, roomCode, submitted, "All cards have been submitted"))
	}
	return nil
}

func (c *Coordinator) handleExaminerSelect(ctx context.Context, client *Client, msg internal.InboundMessage) error {
	roomCode := msg.RoomCode
	if roomCode == "" {
		return ErrRoomCodeRequired
	}
	var payload internal.ExaminerSelectData
	if err := json.Unmarshal(msg.Data, &payload); err != nil || payload.ParticipantID == 0 {
		return ErrInvalidMessageFormat
	}

	unlock := c.lockRoom(roomCode)
	room, err := c.store.FindRoomByCode(ctx, roomCode)
	if err != nil {
		unlock()
		if errors.Is(err, store.ErrRoomNotFound) {
			return ErrRoomNotFound
		}
		return err
	}
	examiner, err := c.store.FindParticipant(ctx, room.ID, client.User.ID)
	if err != nil {
		unlock()
		if errors.Is(err, store.ErrParticipantNotFound) {
			return ErrParticipantNotFound
		}
		return err
	}
	if !examiner.IsExaminer {
		unlock()
		return ErrInvalidMessageFormat
	}
	winner, err := c.store.FindParticipantByID(ctx, room.ID, payload.ParticipantID)
	if err != nil {
		unlock()
		if errors.Is(err, store.ErrParticipantNotFound) {
			return ErrParticipantNotFound
		}
		return err
	}

	newScore, err := c.store.IncrementScore(ctx, winner.ID)
	if err != nil {
		unlock()
		return err
	}

	winnerCard, ok := findSubmission(c.rounds.SubmittedCards(roomCode), winner.ID)
	if !ok {
		unlock()
		return ErrCardNotFound
	}

	gameConns := c.registry.GameConns(roomCode)
	selection := internal.ExaminerSelection{
		ParticipantID:  winner.ID,
		CardWord:       winnerCard.Word,
		WinnerNickname: winner.Nickname,
		NewScore:       newScore,
	}
	log.Printf("[ExaminerSelect] examiner %s picked %s (score %d) in room %s",
		client.User.Nickname, winner.Nickname, newScore, roomCode)

	if newScore >= internal.WinScore {
		result, err := c.finishGame(ctx, room)
		unlock()
		if err != nil {
			return err
		}
		c.registry.Broadcast(gameConns, internal.NewDataMessage(
			internal.TypeExaminerSelected, roomCode, selection, "Examiner has selected a card"))
		c.registry.Broadcast(gameConns, internal.NewDataMessage(
			internal.TypeRoundEnd, roomCode, result, "Game has ended!"))
		c.rounds.EndGame(roomCode)
		return nil
	}

	nextRound, err := c.rotateExaminer(ctx, room, examiner)
	unlock()
	if err != nil {
		return err
	}
	c.registry.Broadcast(gameConns, internal.NewDataMessage(
		internal.TypeExaminerSelected, roomCode, selection, "Examiner has selected a card"))
	c.registry.Broadcast(gameConns, internal.NewDataMessage(
		internal.TypeNextRound, roomCode, nextRound, "Next turn is starting!"))
	return nil
}

// finishGame runs under the room lock: ranks by descending score (stable, so
// equal scores keep join order), grants XP down the reward table and builds
// the final result.
func (c *Coordinator) finishGame(ctx context.Context, room internal.Room) (internal.GameResult, error) {
	participants, err := c.store.ListParticipants(ctx, room.ID)
	if err != nil {
		return internal.GameResult{}, err
	}
	sort.SliceStable(participants, func(i, j int) bool {
		return participants[i].Score > participants[j].Score
	})

	rankings := make([]internal.PlayerRank, 0, len(participants))
	for i, p := range participants {
		if i < len(internal.XpRewards) {
			if err := c.store.AddUserXp(ctx, p.UserID, internal.XpRewards[i]); err != nil {
				return internal.GameResult{}, err
			}
		}
		rankings = append(rankings, internal.PlayerRank{
			Rank:     i + 1,
			Nickname: p.Nickname,
			Level:    p.Level,
			Score:    p.Score,
		})
		log.Printf("[GameEnd] room %s rank %d: %s (score %d)", room.Code, i+1, p.Nickname, p.Score)
	}
	return internal.GameResult{Rankings: rankings}, nil
}

// rotateExaminer runs under the room lock: clears the turn, rotates the
// examiner flag through the fairness algorithm and fetches the next quiz.
func (c *Coordinator) rotateExaminer(ctx context.Context, room internal.Room, current internal.Participant) (internal.NextRoundData, error) {
	c.rounds.NextTurn(room.Code)

	participants, err := c.store.ListParticipants(ctx, room.ID)
	if err != nil {
		return internal.NextRoundData{}, err
	}
	ids := make([]int64, 0, len(participants))
	for _, p := range participants {
		ids = append(ids, p.ID)
	}

	nextID := c.rounds.SelectNextExaminer(room.Code, ids)
	c.rounds.RecordExaminer(room.Code, nextID)

	if err := c.store.SetExaminer(ctx, current.ID, false); err != nil {
		return internal.NextRoundData{}, err
	}
	if err := c.store.SetExaminer(ctx, nextID, true); err != nil {
		return internal.NextRoundData{}, err
	}

	var next internal.Participant
	for _, p := range participants {
		if p.ID == nextID {
			next = p
			break
		}
	}

	quiz, err := c.store.RandomQuiz(ctx)
	if err != nil {
		if errors.Is(err, store.ErrQuizNotFound) {
			return internal.NextRoundData{}, ErrQuizNotFound
		}
		return internal.NextRoundData{}, err
	}

	log.Printf("[NextRound] room %s: new examiner is %s", room.Code, next.Nickname)
	return internal.NextRoundData{
		NewExaminerID:       next.ID,
		NewExaminerNickname: next.Nickname,
		Quiz:                quiz,
	}, nil
}

func (c *Coordinator) handleRoomExit(ctx context.Context, client *Client, roomCode string) error {
	if roomCode == "" {
		return ErrRoomCodeRequired
	}

	unlock := c.lockRoom(roomCode)
	room, err := c.store.FindRoomByCode(ctx, roomCode)
	if err != nil {
		unlock()
		if errors.Is(err, store.ErrRoomNotFound) {
			return ErrRoomNotFound
		}
		return err
	}
	if c.rounds.Active(roomCode) {
		unlock()
		return ErrGameAlreadyStarted
	}
	participant, err := c.store.FindParticipant(ctx, room.ID, client.User.ID)
	if err != nil {
		unlock()
		if errors.Is(err, store.ErrParticipantNotFound) {
			return ErrParticipantNotFound
		}
		return err
	}
	if err := c.store.DeleteParticipant(ctx, participant.ID); err != nil {
		unlock()
		return err
	}
	c.registry.Remove(roomCode, client)
	remaining, err := c.store.ListParticipants(ctx, room.ID)
	if err != nil {
		unlock()
		return err
	}
	lobby := c.registry.LobbyConns(roomCode)
	unlock()

	log.Printf("[RoomExit] user %s left room %s before game start (%d remaining)",
		client.User.Nickname, roomCode, len(remaining))

	if err := client.Send(internal.NewMessage(internal.TypeRoomExit, roomCode, "Successfully exited the room")); err != nil {
		log.Printf("[RoomExit] ack to user %d failed: %v", client.User.ID, err)
	}
	if len(remaining) > 0 {
		exit := internal.UserExit{
			UserID:         client.User.ID,
			Nickname:       client.User.Nickname,
			RemainingCount: len(remaining),
		}
		c.registry.Broadcast(lobby, internal.NewDataMessage(
			internal.TypeRoomExit, roomCode, exit, client.User.Nickname+" has left the room"))
	}
	return nil
}

func (c *Coordinator) handleLeaveRoom(ctx context.Context, client *Client, roomCode string) error {
	if roomCode == "" {
		return ErrRoomCodeRequired
	}

	unlock := c.lockRoom(roomCode)
	room, err := c.store.FindRoomByCode(ctx, roomCode)
	if err != nil {
		unlock()
		if errors.Is(err, store.ErrRoomNotFound) {
			return ErrRoomNotFound
		}
		return err
	}
	participant, err := c.store.FindParticipant(ctx, room.ID, client.User.ID)
	if err != nil {
		unlock()
		if errors.Is(err, store.ErrParticipantNotFound) {
			return ErrParticipantNotFound
		}
		return err
	}
	if err := c.store.DeleteParticipant(ctx, participant.ID); err != nil {
		unlock()
		return err
	}
	c.registry.Remove(roomCode, client)

	remaining, err := c.store.ListParticipants(ctx, room.ID)
	if err != nil {
		unlock()
		return err
	}
	// The room row stays; the code is reusable once everyone is gone.
	if len(remaining) == 0 {
		c.rounds.EndGame(roomCode)
	} else if participant.IsExaminer {
		if err := c.store.SetExaminer(ctx, remaining[0].ID, true); err != nil {
			unlock()
			return err
		}
	}
	gameConns := c.registry.GameConns(roomCode)
	unlock()

	log.Printf("[LeaveRoom] user %s left room %s (%d remaining)",
		client.User.Nickname, roomCode, len(remaining))

	if err := client.Send(internal.NewMessage(internal.TypeLeaveRoom, roomCode, "Successfully left the room")); err != nil {
		log.Printf("[LeaveRoom] ack to user %d failed: %v", client.User.ID, err)
	}
	if len(remaining) > 0 {
		exit := internal.UserExit{
			UserID:         client.User.ID,
			Nickname:       client.User.Nickname,
			RemainingCount: len(remaining),
		}
		c.registry.Broadcast(gameConns, internal.NewDataMessage(
			internal.TypeLeaveRoom, roomCode, exit, client.User.Nickname+" has left the game"))
	}
	return nil
}

func findExaminer(participants []internal.Participant) (internal.Participant, bool) {
	for _, p := range participants {
		if p.IsExaminer {
			return p, true
		}
	}
	return internal.Participant{}, false
}

func findSubmission(cards []internal.SubmittedCard, participantID int64) (internal.SubmittedCard, bool) {
	for _, card := range cards {
		if card.ParticipantID == participantID {
			return card, true
		}
	}
	return internal.SubmittedCard{}, false
}
