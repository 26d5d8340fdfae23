package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Dyu-Ganadi/Urikkiri-Server/internal"
)

// Schema creates the tables the game touches. Kept here so the integration
// test can spin up a blank database; account provisioning lives elsewhere.
const Schema = `
CREATE TABLE IF NOT EXISTS tbl_user (
	id BIGSERIAL PRIMARY KEY,
	email VARCHAR(255) NOT NULL UNIQUE,
	nickname VARCHAR(15) NOT NULL UNIQUE,
	token VARCHAR(255) NOT NULL UNIQUE,
	level INT NOT NULL DEFAULT 1,
	xp INT NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS tbl_room (
	id BIGSERIAL PRIMARY KEY,
	code VARCHAR(6) NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS tbl_participant (
	id BIGSERIAL PRIMARY KEY,
	room_id BIGINT NOT NULL REFERENCES tbl_room(id),
	user_id BIGINT NOT NULL REFERENCES tbl_user(id),
	score INT NOT NULL DEFAULT 0,
	is_examiner BOOLEAN NOT NULL DEFAULT FALSE,
	UNIQUE (room_id, user_id)
);

CREATE TABLE IF NOT EXISTS tbl_quiz (
	id BIGSERIAL PRIMARY KEY,
	content TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tbl_card (
	id BIGSERIAL PRIMARY KEY,
	word VARCHAR(255) NOT NULL,
	meaning TEXT NOT NULL
);
`

// PostgresStore is the production Store backed by a pgx pool.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}

// Migrate applies the schema. Idempotent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, Schema)
	return err
}

func (s *PostgresStore) CreateRoom(ctx context.Context, code string) (internal.Room, error) {
	var room internal.Room
	err := s.pool.QueryRow(ctx,
		`INSERT INTO tbl_room (code) VALUES ($1) RETURNING id, code`,
		code,
	).Scan(&room.ID, &room.Code)
	return room, err
}

func (s *PostgresStore) FindRoomByCode(ctx context.Context, code string) (internal.Room, error) {
	var room internal.Room
	err := s.pool.QueryRow(ctx,
		`SELECT id, code FROM tbl_room WHERE code = $1`,
		code,
	).Scan(&room.ID, &room.Code)
	if errors.Is(err, pgx.ErrNoRows) {
		return internal.Room{}, ErrRoomNotFound
	}
	return room, err
}

func (s *PostgresStore) RoomCodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM tbl_room WHERE code = $1)`,
		code,
	).Scan(&exists)
	return exists, err
}

const participantColumns = `p.id, p.room_id, p.user_id, u.nickname, u.level, p.score, p.is_examiner`

func scanParticipant(row pgx.Row) (internal.Participant, error) {
	var p internal.Participant
	err := row.Scan(&p.ID, &p.RoomID, &p.UserID, &p.Nickname, &p.Level, &p.Score, &p.IsExaminer)
	return p, err
}

func (s *PostgresStore) CreateParticipant(ctx context.Context, roomID, userID int64, isExaminer bool) (internal.Participant, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`INSERT INTO tbl_participant (room_id, user_id, is_examiner) VALUES ($1, $2, $3) RETURNING id`,
		roomID, userID, isExaminer,
	).Scan(&id)
	if err != nil {
		return internal.Participant{}, err
	}
	return s.FindParticipantByID(ctx, roomID, id)
}

func (s *PostgresStore) FindParticipant(ctx context.Context, roomID, userID int64) (internal.Participant, error) {
	p, err := scanParticipant(s.pool.QueryRow(ctx,
		`SELECT `+participantColumns+`
		 FROM tbl_participant p JOIN tbl_user u ON u.id = p.user_id
		 WHERE p.room_id = $1 AND p.user_id = $2`,
		roomID, userID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return internal.Participant{}, ErrParticipantNotFound
	}
	return p, err
}

func (s *PostgresStore) FindParticipantByID(ctx context.Context, roomID, participantID int64) (internal.Participant, error) {
	p, err := scanParticipant(s.pool.QueryRow(ctx,
		`SELECT `+participantColumns+`
		 FROM tbl_participant p JOIN tbl_user u ON u.id = p.user_id
		 WHERE p.room_id = $1 AND p.id = $2`,
		roomID, participantID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return internal.Participant{}, ErrParticipantNotFound
	}
	return p, err
}

func (s *PostgresStore) ListParticipants(ctx context.Context, roomID int64) ([]internal.Participant, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+participantColumns+`
		 FROM tbl_participant p JOIN tbl_user u ON u.id = p.user_id
		 WHERE p.room_id = $1
		 ORDER BY p.id`,
		roomID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountParticipants(ctx context.Context, roomID int64) (int, error) {
	var count int
	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM tbl_participant WHERE room_id = $1`,
		roomID,
	).Scan(&count)
	return count, err
}

func (s *PostgresStore) DeleteParticipant(ctx context.Context, participantID int64) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM tbl_participant WHERE id = $1`,
		participantID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrParticipantNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteParticipantsByUser(ctx context.Context, userID int64) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM tbl_participant WHERE user_id = $1`,
		userID,
	)
	return err
}

func (s *PostgresStore) SetExaminer(ctx context.Context, participantID int64, isExaminer bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tbl_participant SET is_examiner = $2 WHERE id = $1`,
		participantID, isExaminer,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrParticipantNotFound
	}
	return nil
}

func (s *PostgresStore) IncrementScore(ctx context.Context, participantID int64) (int, error) {
	var score int
	err := s.pool.QueryRow(ctx,
		`UPDATE tbl_participant SET score = score + 1 WHERE id = $1 RETURNING score`,
		participantID,
	).Scan(&score)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrParticipantNotFound
	}
	return score, err
}

func (s *PostgresStore) FindCardByID(ctx context.Context, cardID int64) (internal.Card, error) {
	var c internal.Card
	err := s.pool.QueryRow(ctx,
		`SELECT id, word, meaning FROM tbl_card WHERE id = $1`,
		cardID,
	).Scan(&c.ID, &c.Word, &c.Meaning)
	if errors.Is(err, pgx.ErrNoRows) {
		return internal.Card{}, ErrCardNotFound
	}
	return c, err
}

func (s *PostgresStore) RandomCards(ctx context.Context, n int) ([]internal.Card, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, word, meaning FROM tbl_card ORDER BY RANDOM() LIMIT $1`,
		n,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []internal.Card
	for rows.Next() {
		var c internal.Card
		if err := rows.Scan(&c.ID, &c.Word, &c.Meaning); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) < n {
		return nil, ErrInsufficientCards
	}
	return out, nil
}

func (s *PostgresStore) RandomQuiz(ctx context.Context) (internal.Quiz, error) {
	var q internal.Quiz
	err := s.pool.QueryRow(ctx,
		`SELECT id, content FROM tbl_quiz ORDER BY RANDOM() LIMIT 1`,
	).Scan(&q.ID, &q.Content)
	if errors.Is(err, pgx.ErrNoRows) {
		return internal.Quiz{}, ErrQuizNotFound
	}
	return q, err
}

func (s *PostgresStore) FindUserByToken(ctx context.Context, token string) (internal.User, error) {
	var u internal.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, nickname, level, xp FROM tbl_user WHERE token = $1`,
		token,
	).Scan(&u.ID, &u.Email, &u.Nickname, &u.Level, &u.Xp)
	if errors.Is(err, pgx.ErrNoRows) {
		return internal.User{}, ErrUserNotFound
	}
	return u, err
}

func (s *PostgresStore) AddUserXp(ctx context.Context, userID int64, amount int) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE tbl_user SET
			xp = xp + $2,
			level = CASE
				WHEN xp + $2 <= 10 THEN 1
				WHEN xp + $2 <= 20 THEN 2
				WHEN xp + $2 <= 30 THEN 3
				ELSE 4
			END
		 WHERE id = $1`,
		userID, amount,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}
