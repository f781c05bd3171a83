package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

type SQLiteService struct {
	db          *sql.DB
	retainGames int
}

func NewSQLiteService(dbPath string) (*SQLiteService, error) {
	dbPath = strings.TrimSpace(dbPath)
	if dbPath == "" {
		return nil, fmt.Errorf("empty sqlite database path")
	}
	if dbPath != ":memory:" {
		parent := filepath.Dir(dbPath)
		if parent != "" && parent != "." {
			if err := os.MkdirAll(parent, 0o755); err != nil {
				return nil, err
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	for _, pragma := range []string{
		`PRAGMA busy_timeout = 5000;`,
		`PRAGMA journal_mode = WAL;`,
		`PRAGMA foreign_keys = ON;`,
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := ensureSQLiteLedgerSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLiteService{
		db:          db,
		retainGames: envIntOrDefault("LEDGER_RETAIN_GAMES", defaultRetainGames),
	}, nil
}

func (s *SQLiteService) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *SQLiteService) RecordGame(ctx context.Context, rec GameRecord) error {
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
	nowMs := time.Now().UTC().UnixMilli()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
INSERT INTO ledger_games (
    game_id, room_code, seed, winner, turns, started_at_ms, ended_at_ms, spec_json, created_at_ms
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT (game_id) DO UPDATE
SET
    winner = excluded.winner,
    turns = excluded.turns,
    ended_at_ms = excluded.ended_at_ms,
    spec_json = excluded.spec_json
`, rec.GameID, rec.RoomCode, rec.Seed, rec.Winner, rec.Turns,
		rec.StartedAt.UTC().UnixMilli(), rec.EndedAt.UTC().UnixMilli(), specJSON, nowMs); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM ledger_game_players WHERE game_id = ?`, rec.GameID); err != nil {
		return err
	}
	for _, p := range rec.Players {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO ledger_game_players (
    game_id, player_id, seat, name, is_ai, difficulty, score, tiles_left, left_game
)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`, rec.GameID, p.ID, p.Seat, p.Name, boolToInt(p.IsAI), p.Difficulty, p.Score, p.TilesLeft, boolToInt(p.Left)); err != nil {
			return err
		}
	}

	if s.retainGames > 0 {
		if _, err := tx.ExecContext(ctx, `
DELETE FROM ledger_games
WHERE game_id IN (
    SELECT game_id
    FROM ledger_games
    ORDER BY ended_at_ms DESC, game_id DESC
    LIMIT -1 OFFSET ?
)
`, s.retainGames); err != nil {
			log.Printf("[Ledger] trim games failed: err=%v", err)
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteService) ListRecent(ctx context.Context, playerID string, limit int) ([]HistoryItem, error) {
	if strings.TrimSpace(playerID) == "" {
		return []HistoryItem{}, nil
	}
	limit = clampLimit(limit)

	rows, err := s.db.QueryContext(ctx, `
SELECT g.game_id, g.room_code, g.ended_at_ms, g.turns, g.winner,
       p.player_id, p.seat, p.name, p.is_ai, p.difficulty, p.score, p.tiles_left, p.left_game
FROM ledger_games g
JOIN ledger_game_players p ON p.game_id = g.game_id
WHERE g.game_id IN (
    SELECT g2.game_id
    FROM ledger_games g2
    JOIN ledger_game_players me ON me.game_id = g2.game_id
    WHERE me.player_id = ?
    ORDER BY g2.ended_at_ms DESC, g2.game_id DESC
    LIMIT ?
)
ORDER BY g.ended_at_ms DESC, g.game_id DESC, p.seat ASC
`, playerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var collected []historyRow
	for rows.Next() {
		var row historyRow
		var endedAtMs int64
		var isAI, left int
		if err := rows.Scan(
			&row.item.GameID, &row.item.RoomCode, &endedAtMs, &row.item.Turns, &row.item.Winner,
			&row.player.ID, &row.player.Seat, &row.player.Name, &isAI, &row.player.Difficulty,
			&row.player.Score, &row.player.TilesLeft, &left,
		); err != nil {
			return nil, err
		}
		row.item.EndedAt = time.UnixMilli(endedAtMs).UTC()
		row.player.IsAI = isAI != 0
		row.player.Left = left != 0
		collected = append(collected, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return foldHistory(collected, playerID), nil
}

func (s *SQLiteService) GetGame(ctx context.Context, gameID string) (*GameRecord, error) {
	if strings.TrimSpace(gameID) == "" {
		return nil, ErrNotFound
	}
	rec := &GameRecord{GameID: gameID}
	var startedAtMs, endedAtMs int64
	var specJSON []byte
	err := s.db.QueryRowContext(ctx, `
SELECT room_code, seed, winner, turns, started_at_ms, ended_at_ms, spec_json
FROM ledger_games
WHERE game_id = ?
`, gameID).Scan(&rec.RoomCode, &rec.Seed, &rec.Winner, &rec.Turns, &startedAtMs, &endedAtMs, &specJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	rec.StartedAt = time.UnixMilli(startedAtMs).UTC()
	rec.EndedAt = time.UnixMilli(endedAtMs).UTC()
	if err := decodeSpec(specJSON, rec); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
SELECT player_id, seat, name, is_ai, difficulty, score, tiles_left, left_game
FROM ledger_game_players
WHERE game_id = ?
ORDER BY seat ASC
`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var p PlayerRecord
		var isAI, left int
		if err := rows.Scan(&p.ID, &p.Seat, &p.Name, &isAI, &p.Difficulty, &p.Score, &p.TilesLeft, &left); err != nil {
			return nil, err
		}
		p.IsAI = isAI != 0
		p.Left = left != 0
		rec.Players = append(rec.Players, p)
	}
	return rec, rows.Err()
}

func ensureSQLiteLedgerSchema(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`
CREATE TABLE IF NOT EXISTS ledger_games (
    game_id TEXT PRIMARY KEY,
    room_code TEXT NOT NULL,
    seed INTEGER NOT NULL,
    winner TEXT NOT NULL DEFAULT '',
    turns INTEGER NOT NULL DEFAULT 0,
    started_at_ms INTEGER NOT NULL,
    ended_at_ms INTEGER NOT NULL,
    spec_json TEXT NOT NULL DEFAULT '{}',
    created_at_ms INTEGER NOT NULL
)`,
		`CREATE INDEX IF NOT EXISTS idx_ledger_games_ended ON ledger_games(ended_at_ms DESC)`,
		`
CREATE TABLE IF NOT EXISTS ledger_game_players (
    game_id TEXT NOT NULL REFERENCES ledger_games(game_id) ON DELETE CASCADE,
    player_id TEXT NOT NULL,
    seat INTEGER NOT NULL,
    name TEXT NOT NULL DEFAULT '',
    is_ai INTEGER NOT NULL DEFAULT 0,
    difficulty TEXT NOT NULL DEFAULT '',
    score INTEGER NOT NULL DEFAULT 0,
    tiles_left INTEGER NOT NULL DEFAULT 0,
    left_game INTEGER NOT NULL DEFAULT 0,
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
