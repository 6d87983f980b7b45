package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/avvvet/bingo-rooms/internal/gamesvc/models"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const gamesSchema = `
CREATE TABLE IF NOT EXISTS games (
	id            BIGSERIAL PRIMARY KEY,
	room_id       TEXT        NOT NULL,
	room_name     TEXT        NOT NULL,
	winner        TEXT        NOT NULL,
	winning_cards INTEGER[]   NOT NULL,
	total_cards   INTEGER     NOT NULL,
	numbers_drawn INTEGER[]   NOT NULL,
	players       INTEGER     NOT NULL,
	prize         TEXT        NOT NULL DEFAULT '',
	started_at    TIMESTAMPTZ NOT NULL,
	finished_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS games_room_name_idx ON games (room_name, finished_at DESC);
`

const defaultHistoryLimit = 20

func historyLimit(limit int) int {
	if limit <= 0 {
		return defaultHistoryLimit
	}
	return limit
}

type GameStore struct {
	db *pgxpool.Pool
}

func NewGameStore(db *pgxpool.Pool) *GameStore {
	return &GameStore{db: db}
}

// EnsureSchema creates the games table when missing.
func (s *GameStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, gamesSchema); err != nil {
		return fmt.Errorf("failed to create games schema: %w", err)
	}
	return nil
}

// RecordGame archives a finished game and sets its ID.
func (s *GameStore) RecordGame(ctx context.Context, game *models.Game) error {
	query := `
		INSERT INTO games (room_id, room_name, winner, winning_cards, total_cards,
			numbers_drawn, players, prize, started_at, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`

	err := s.db.QueryRow(ctx, query,
		game.RoomID,
		game.RoomName,
		game.Winner,
		game.WinningCards,
		game.TotalCards,
		game.NumbersDrawn,
		game.Players,
		game.Prize,
		game.StartedAt,
		game.FinishedAt,
	).Scan(&game.ID)
	if err != nil {
		return fmt.Errorf("failed to record game: %w", err)
	}

	return nil
}

func (s *GameStore) GetGameByID(ctx context.Context, gameID int64) (*models.Game, error) {
	query := `
		SELECT id, room_id, room_name, winner, winning_cards, total_cards,
			numbers_drawn, players, prize, started_at, finished_at
		FROM games
		WHERE id = $1
	`

	game, err := scanGame(s.db.QueryRow(ctx, query, gameID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Game not found
		}
		return nil, fmt.Errorf("failed to get game by ID: %w", err)
	}

	return game, nil
}

// GamesByRoom returns the most recent finished games of a room, newest first.
func (s *GameStore) GamesByRoom(ctx context.Context, roomName string, limit int) ([]*models.Game, error) {
	limit = historyLimit(limit)
	query := `
		SELECT id, room_id, room_name, winner, winning_cards, total_cards,
			numbers_drawn, players, prize, started_at, finished_at
		FROM games
		WHERE room_name = $1
		ORDER BY finished_at DESC
		LIMIT $2
	`

	rows, err := s.db.Query(ctx, query, roomName, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query games: %w", err)
	}
	defer rows.Close()

	var games []*models.Game
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, game)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return games, nil
}

func scanGame(row pgx.Row) (*models.Game, error) {
	game := &models.Game{}
	err := row.Scan(
		&game.ID,
		&game.RoomID,
		&game.RoomName,
		&game.Winner,
		&game.WinningCards,
		&game.TotalCards,
		&game.NumbersDrawn,
		&game.Players,
		&game.Prize,
		&game.StartedAt,
		&game.FinishedAt,
	)
	if err != nil {
		return nil, err
	}
	return game, nil
}
