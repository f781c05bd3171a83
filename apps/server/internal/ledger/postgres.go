package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

type PostgresService struct {
	db          *sql.DB
	retainGames int
}

func NewPostgresService(dsn string) (*PostgresService, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, fmt.Errorf("empty postgres dsn")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensurePostgresLedgerSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &PostgresService{
		db:          db,
		retainGames: envIntOrDefault("LEDGER_RETAIN_GAMES", defaultRetainGames),
	}, nil
}

func (s *PostgresService) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *PostgresService) RecordGame(ctx context.Context, rec GameRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	specJSON, err := encodeSpec(rec.Spec)
	if err != nil {
		return err
	}
	if rec.EndedAt.IsZero() {
		rec.EndedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO ledger_games (
    game_id, room_code, seed, winner, turns, started_at, ended_at, spec_json
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb)
ON CONFLICT (game_id) DO UPDATE
SET
    winner = EXCLUDED.winner,
    turns = EXCLUDED.turns,
    ended_at = EXCLUDED.ended_at,
    spec_json = EXCLUDED.spec_json
`, rec.GameID, rec.RoomCode, rec.Seed, rec.Winner, rec.Turns, rec.StartedAt.UTC(), rec.EndedAt.UTC(), specJSON); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM ledger_game_players WHERE game_id = $1`, rec.GameID); err != nil {
		return err
	}
	for _, p := range rec.Players {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO ledger_game_players (
    game_id, player_id, seat, name, is_ai, difficulty, score, tiles_left, left_game
)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
`, rec.GameID, p.ID, p.Seat, p.Name, p.IsAI, p.Difficulty, p.Score, p.TilesLeft, p.Left); err != nil {
			return err
		}
	}

	if s.retainGames > 0 {
		if _, err := tx.ExecContext(ctx, `
DELETE FROM ledger_games
WHERE game_id IN (
    SELECT game_id
    FROM ledger_games
    ORDER BY ended_at DESC, game_id DESC
    OFFSET $1
)
`, s.retainGames); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *PostgresService) ListRecent(ctx context.Context, playerID string, limit int) ([]HistoryItem, error) {
	if strings.TrimSpace(playerID) == "" {
		return []HistoryItem{}, nil
	}
	limit = clampLimit(limit)

	rows, err := s.db.QueryContext(ctx, `
SELECT g.game_id, g.room_code, g.ended_at, g.turns, g.winner,
       p.player_id, p.seat, p.name, p.is_ai, p.difficulty, p.score, p.tiles_left, p.left_game
FROM ledger_games g
JOIN ledger_game_players p ON p.game_id = g.game_id
WHERE g.game_id IN (
    SELECT g2.game_id
    FROM ledger_games g2
    JOIN ledger_game_players me ON me.game_id = g2.game_id
    WHERE me.player_id = $1
    ORDER BY g2.ended_at DESC, g2.game_id DESC
    LIMIT $2
)
ORDER BY g.ended_at DESC, g.game_id DESC, p.seat ASC
`, playerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var collected []historyRow
	for rows.Next() {
		var row historyRow
		if err := rows.Scan(
			&row.item.GameID, &row.item.RoomCode, &row.item.EndedAt, &row.item.Turns, &row.item.Winner,
			&row.player.ID, &row.player.Seat, &row.player.Name, &row.player.IsAI, &row.player.Difficulty,
			&row.player.Score, &row.player.TilesLeft, &row.player.Left,
		); err != nil {
			return nil, err
		}
		collected = append(collected, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return foldHistory(collected, playerID), nil
}

func (s *PostgresService) GetGame(ctx context.Context, gameID string) (*GameRecord, error) {
	if strings.TrimSpace(gameID) == "" {
		return nil, ErrNotFound
	}
	rec := &GameRecord{GameID: gameID}
	var specJSON []byte
	err := s.db.QueryRowContext(ctx, `
SELECT room_code, seed, winner, turns, started_at, ended_at, spec_json
FROM ledger_games
WHERE game_id = $1
`, gameID).Scan(&rec.RoomCode, &rec.Seed, &rec.Winner, &rec.Turns, &rec.StartedAt, &rec.EndedAt, &specJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if err := decodeSpec(specJSON, rec); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT player_id, seat, name, is_ai, difficulty, score, tiles_left, left_game
FROM ledger_game_players
WHERE game_id = $1
ORDER BY seat ASC
`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var p PlayerRecord
		if err := rows.Scan(&p.ID, &p.Seat, &p.Name, &p.IsAI, &p.Difficulty, &p.Score, &p.TilesLeft, &p.Left); err != nil {
			return nil, err
		}
		rec.Players = append(rec.Players, p)
	}
	return rec, rows.Err()
}

func ensurePostgresLedgerSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`
CREATE TABLE IF NOT EXISTS ledger_games (
    game_id TEXT PRIMARY KEY,
    room_code TEXT NOT NULL,
    seed BIGINT NOT NULL,
    winner TEXT NOT NULL DEFAULT '',
    turns INTEGER NOT NULL DEFAULT 0,
    started_at TIMESTAMPTZ NOT NULL,
    ended_at TIMESTAMPTZ NOT NULL,
    spec_json JSONB NOT NULL DEFAULT '{}'::jsonb,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_games_ended ON ledger_games(ended_at DESC)`,
		`
CREATE TABLE IF NOT EXISTS ledger_game_players (
    game_id TEXT NOT NULL REFERENCES ledger_games(game_id) ON DELETE CASCADE,
    player_id TEXT NOT NULL,
    seat INTEGER NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    is_ai BOOLEAN NOT NULL DEFAULT FALSE,
    difficulty TEXT NOT NULL DEFAULT '',
    score INTEGER NOT NULL DEFAULT 0,
    tiles_left INTEGER NOT NULL DEFAULT 0,
    left_game BOOLEAN NOT NULL DEFAULT FALSE,
    PRIMARY KEY (game_id, player_id)
)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_game_players_player ON ledger_game_players(player_id)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
