package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/Dyu-Ganadi/Urikkiri-Server/internal"
)

var pg *PostgresStore

func TestMain(m *testing.M) {
	ctx := context.Background()

	postgresContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testusername"),
		postgres.WithPassword("testpassword"),
		testcontainers.WithWaitStrategy(wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		panic(err)
	}

	connString, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		panic(err)
	}

	pg, err = NewPostgresStore(ctx, connString)
	if err != nil {
		panic(err)
	}
	if err := pg.Migrate(ctx); err != nil {
		panic(err)
	}

	code := m.Run()

	// Cleanup
	pg.Close()
	postgresContainer.Terminate(ctx)
	os.Exit(code)
}

func seedPgUser(t *testing.T, nickname string) internal.User {
	t.Helper()
	var u internal.User
	err := pg.pool.QueryRow(context.Background(),
		`INSERT INTO tbl_user (email, nickname, token) VALUES ($1, $2, $3)
		 RETURNING id, email, nickname, level, xp`,
		nickname+"@test.local", nickname, "token-"+nickname,
	).Scan(&u.ID, &u.Email, &u.Nickname, &u.Level, &u.Xp)
	require.NoError(t, err)
	return u
}

func TestPostgresRooms(t *testing.T) {
	ctx := context.Background()

	t.Run("CreateAndFind", func(t *testing.T) {
		room, err := pg.CreateRoom(ctx, "100001")
		require.NoError(t, err)
		assert.NotZero(t, room.ID)

		found, err := pg.FindRoomByCode(ctx, "100001")
		require.NoError(t, err)
		assert.Equal(t, room.ID, found.ID)

		exists, err := pg.RoomCodeExists(ctx, "100001")
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := pg.FindRoomByCode(ctx, "999999")
		assert.ErrorIs(t, err, ErrRoomNotFound)

		exists, err := pg.RoomCodeExists(ctx, "999999")
		require.NoError(t, err)
		assert.False(t, exists)
	})
}

func TestPostgresParticipants(t *testing.T) {
	ctx := context.Background()

	room, err := pg.CreateRoom(ctx, "100002")
	require.NoError(t, err)
	ana := seedPgUser(t, "ana")
	ben := seedPgUser(t, "ben")

	t.Run("CreateJoinsUserFields", func(t *testing.T) {
		p, err := pg.CreateParticipant(ctx, room.ID, ana.ID, true)
		require.NoError(t, err)
		assert.Equal(t, "ana", p.Nickname)
		assert.Equal(t, 1, p.Level)
		assert.True(t, p.IsExaminer)
		assert.Zero(t, p.Score)

		_, err = pg.CreateParticipant(ctx, room.ID, ben.ID, false)
		require.NoError(t, err)
	})

	t.Run("ListInJoinOrder", func(t *testing.T) {
		list, err := pg.ListParticipants(ctx, room.ID)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "ana", list[0].Nickname)
		assert.Equal(t, "ben", list[1].Nickname)

		count, err := pg.CountParticipants(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, count)
	})

	t.Run("FindByUserAndByID", func(t *testing.T) {
		p, err := pg.FindParticipant(ctx, room.ID, ben.ID)
		require.NoError(t, err)

		byID, err := pg.FindParticipantByID(ctx, room.ID, p.ID)
		require.NoError(t, err)
		assert.Equal(t, p, byID)

		_, err = pg.FindParticipant(ctx, room.ID, 99999)
		assert.ErrorIs(t, err, ErrParticipantNotFound)
	})

	t.Run("ScoreAndExaminerFlag", func(t *testing.T) {
		p, err := pg.FindParticipant(ctx, room.ID, ben.ID)
		require.NoError(t, err)

		score, err := pg.IncrementScore(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, score)
		score, err = pg.IncrementScore(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, score)

		require.NoError(t, pg.SetExaminer(ctx, p.ID, true))
		updated, err := pg.FindParticipantByID(ctx, room.ID, p.ID)
		require.NoError(t, err)
		assert.True(t, updated.IsExaminer)
		assert.Equal(t, 2, updated.Score)
	})

	t.Run("DeleteByUserClearsEveryRoom", func(t *testing.T) {
		other, err := pg.CreateRoom(ctx, "100003")
		require.NoError(t, err)
		_, err = pg.CreateParticipant(ctx, other.ID, ana.ID, false)
		// ana is still in the first room; the unique constraint only spans
		// one room, so this insert must succeed.
		require.NoError(t, err)

		require.NoError(t, pg.DeleteParticipantsByUser(ctx, ana.ID))

		count, err := pg.CountParticipants(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, count)
		count, err = pg.CountParticipants(ctx, other.ID)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("DeleteMissingParticipant", func(t *testing.T) {
		assert.ErrorIs(t, pg.DeleteParticipant(ctx, 99999), ErrParticipantNotFound)
	})
}

func TestPostgresQuizzesAndCards(t *testing.T) {
	ctx := context.Background()

	t.Run("EmptyPools", func(t *testing.T) {
		_, err := pg.RandomQuiz(ctx)
		assert.ErrorIs(t, err, ErrQuizNotFound)

		_, err = pg.RandomCards(ctx, 5)
		assert.ErrorIs(t, err, ErrInsufficientCards)

		_, err = pg.FindCardByID(ctx, 1)
		assert.ErrorIs(t, err, ErrCardNotFound)
	})

	t.Run("SeededPools", func(t *testing.T) {
		_, err := pg.pool.Exec(ctx, `INSERT INTO tbl_quiz (content) VALUES ('Pick the best word')`)
		require.NoError(t, err)
		for i := 0; i < 6; i++ {
			_, err := pg.pool.Exec(ctx,
				`INSERT INTO tbl_card (word, meaning) VALUES ($1, $2)`,
				fmt.Sprintf("word-%d", i), fmt.Sprintf("meaning %d", i))
			require.NoError(t, err)
		}

		quiz, err := pg.RandomQuiz(ctx)
		require.NoError(t, err)
		assert.Equal(t, "Pick the best word", quiz.Content)

		cards, err := pg.RandomCards(ctx, 5)
		require.NoError(t, err)
		assert.Len(t, cards, 5)

		card, err := pg.FindCardByID(ctx, cards[0].ID)
		require.NoError(t, err)
		assert.Equal(t, cards[0].Word, card.Word)
	})
}

func TestPostgresUsers(t *testing.T) {
	ctx := context.Background()
	cleo := seedPgUser(t, "cleo")

	t.Run("FindByToken", func(t *testing.T) {
		user, err := pg.FindUserByToken(ctx, "token-cleo")
		require.NoError(t, err)
		assert.Equal(t, cleo.ID, user.ID)

		_, err = pg.FindUserByToken(ctx, "no-such-token")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})

	t.Run("XpRaisesLevelAtThresholds", func(t *testing.T) {
		require.NoError(t, pg.AddUserXp(ctx, cleo.ID, 10))
		user, err := pg.FindUserByToken(ctx, "token-cleo")
		require.NoError(t, err)
		assert.Equal(t, 10, user.Xp)
		assert.Equal(t, 1, user.Level)

		require.NoError(t, pg.AddUserXp(ctx, cleo.ID, 20))
		user, err = pg.FindUserByToken(ctx, "token-cleo")
		require.NoError(t, err)
		assert.Equal(t, 30, user.Xp)
		assert.Equal(t, 3, user.Level)

		require.NoError(t, pg.AddUserXp(ctx, cleo.ID, 5))
		user, err = pg.FindUserByToken(ctx, "token-cleo")
		require.NoError(t, err)
		assert.Equal(t, 4, user.Level)
	})

	t.Run("XpForMissingUser", func(t *testing.T) {
		assert.ErrorIs(t, pg.AddUserXp(ctx, 99999, 10), ErrUserNotFound)
	})
}
