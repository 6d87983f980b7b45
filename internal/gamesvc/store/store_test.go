package store

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/avvvet/bingo-rooms/internal/gamesvc/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mongodb "github.com/avvvet/bingo-rooms/internal/db"
)

func TestHistoryLimit(t *testing.T) {
	assert.Equal(t, defaultHistoryLimit, historyLimit(0))
	assert.Equal(t, defaultHistoryLimit, historyLimit(-3))
	assert.Equal(t, 5, historyLimit(5))
}

func TestStampEvent(t *testing.T) {
	s := &EventStore{ttl: time.Hour}
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	e := s.stamp(models.RoomEvent{Type: "game-started"}, now)
	assert.Equal(t, now, e.CreatedAt)
	assert.Equal(t, now.Add(time.Hour), e.ExpiresAt)

	// an explicit creation time wins over the clock
	created := now.Add(-30 * time.Minute)
	e = s.stamp(models.RoomEvent{CreatedAt: created}, now)
	assert.Equal(t, created, e.CreatedAt)
	assert.Equal(t, created.Add(time.Hour), e.ExpiresAt)
}

func sampleGame(room string) *models.Game {
	started := time.Now().Add(-time.Minute).UTC().Truncate(time.Millisecond)
	return &models.Game{
		RoomID:       uuid.New().String(),
		RoomName:     room,
		Winner:       "alice",
		WinningCards: []int32{1},
		TotalCards:   2,
		NumbersDrawn: []int32{7, 21, 44},
		Players:      3,
		Prize:        "cake",
		StartedAt:    started,
		FinishedAt:   started.Add(time.Minute),
	}
}

func TestGameStorePostgres(t *testing.T) {
	dsn := os.Getenv("POSTGRES_URL")
	if dsn == "" {
		t.Skip("POSTGRES_URL not set")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	s := NewGameStore(pool)
	require.NoError(t, s.EnsureSchema(ctx))
	require.NoError(t, s.EnsureSchema(ctx), "schema bootstrap is repeatable")

	room := "room-" + uuid.New().String()
	first, second := sampleGame(room), sampleGame(room)
	second.FinishedAt = first.FinishedAt.Add(time.Second)
	require.NoError(t, s.RecordGame(ctx, first))
	require.NoError(t, s.RecordGame(ctx, second))
	assert.NotZero(t, first.ID)
	assert.Greater(t, second.ID, first.ID)

	got, err := s.GetGameByID(ctx, first.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, first.Winner, got.Winner)
	assert.Equal(t, first.WinningCards, got.WinningCards)
	assert.Equal(t, first.NumbersDrawn, got.NumbersDrawn)
	assert.Equal(t, first.Prize, got.Prize)
	assert.WithinDuration(t, first.StartedAt, got.StartedAt, time.Millisecond)

	missing, err := s.GetGameByID(ctx, -1)
	require.NoError(t, err)
	assert.Nil(t, missing)

	games, err := s.GamesByRoom(ctx, room, 0)
	require.NoError(t, err)
	require.Len(t, games, 2)
	assert.Equal(t, second.ID, games[0].ID, "newest first")

	games, err = s.GamesByRoom(ctx, room, 1)
	require.NoError(t, err)
	assert.Len(t, games, 1)

	_, err = pool.Exec(ctx, "DELETE FROM games WHERE room_name = $1", room)
	require.NoError(t, err)
}

func TestEventStoreMongo(t *testing.T) {
	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		t.Skip("MONGODB_URI not set")
	}
	ctx := context.Background()
	mdb, err := mongodb.ConnectToDB(uri)
	require.NoError(t, err)
	t.Cleanup(func() { _ = mongodb.Disconnect(mdb) })
	require.NoError(t, mongodb.CreateTTLIndexForCollection(mdb, EventsCollection))

	s := NewEventStore(mdb, time.Hour)
	room := "room-" + uuid.New().String()
	base := time.Now().UTC().Truncate(time.Millisecond)
	for i, typ := range []string{"room-created", "player-joined", "game-started"} {
		require.NoError(t, s.LogEvent(ctx, models.RoomEvent{
			RoomName:  room,
			Type:      typ,
			Username:  "alice",
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	events, err := s.EventsByRoom(ctx, room, 2)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "game-started", events[0].Type, "newest first")
	assert.WithinDuration(t, events[0].CreatedAt.Add(time.Hour), events[0].ExpiresAt, time.Millisecond)

	events, err = s.EventsByRoom(ctx, room, 0)
	require.NoError(t, err)
	assert.Len(t, events, 3)

	_, err = mdb.Collection(EventsCollection).DeleteMany(ctx, map[string]string{"room_name": room})
	require.NoError(t, err)
}
