package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"rummy-lite/replay"
)

const (
	ModeNoop     = "noop"
	ModeSQLite   = "sqlite"
	ModePostgres = "postgres"

	defaultRetainGames = 5000
	defaultListLimit   = 20
	maxListLimit       = 100
)

var ErrNotFound = errors.New("not found")

// Service stores finished games and serves per-player history.
type Service interface {
	Close() error
	RecordGame(ctx context.Context, rec GameRecord) error
	ListRecent(ctx context.Context, playerID string, limit int) ([]HistoryItem, error)
	GetGame(ctx context.Context, gameID string) (*GameRecord, error)
}

// GameRecord is one finished game, including everything needed to replay it.
type GameRecord struct {
	GameID    string          `json:"game_id"`
	RoomCode  string          `json:"room_code"`
	Seed      int64           `json:"seed"`
	Players   []PlayerRecord  `json:"players"`
	Winner    string          `json:"winner"`
	Turns     int             `json:"turns"`
	StartedAt time.Time       `json:"started_at"`
	EndedAt   time.Time       `json:"ended_at"`
	Spec      replay.GameSpec `json:"-"`
}

type PlayerRecord struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Seat       int    `json:"seat"`
	IsAI       bool   `json:"is_ai,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
	Score      int    `json:"score"`
	TilesLeft  int    `json:"tiles_left"`
	Left       bool   `json:"left,omitempty"`
}

// Participant reports whether playerID was seated in the game.
func (g *GameRecord) Participant(playerID string) bool {
	for _, p := range g.Players {
		if p.ID == playerID {
			return true
		}
	}
	return false
}

// HistoryItem is a game as seen from one participant.
type HistoryItem struct {
	GameID   string         `json:"game_id"`
	RoomCode string         `json:"room_code"`
	EndedAt  time.Time      `json:"ended_at"`
	Turns    int            `json:"turns"`
	Winner   string         `json:"winner"`
	Won      bool           `json:"won"`
	Score    int            `json:"score"`
	Players  []PlayerRecord `json:"players"`
}

type noopService struct{}

// NewNoopService returns a ledger that keeps nothing.
func NewNoopService() Service { return &noopService{} }

func (n *noopService) Close() error { return nil }

func (n *noopService) RecordGame(_ context.Context, _ GameRecord) error { return nil }

func (n *noopService) ListRecent(_ context.Context, _ string, _ int) ([]HistoryItem, error) {
	return []HistoryItem{}, nil
}

func (n *noopService) GetGame(_ context.Context, _ string) (*GameRecord, error) {
	return nil, ErrNotFound
}

// NewService opens the ledger backend named by mode.
func NewService(mode, sqlitePath, dsn string) (Service, error) {
	switch mode {
	case "", ModeNoop:
		return NewNoopService(), nil
	case ModeSQLite:
		return NewSQLiteService(sqlitePath)
	case ModePostgres:
		return NewPostgresService(dsn)
	default:
		return nil, fmt.Errorf("invalid ledger mode %q (supported: %s, %s, %s)", mode, ModeNoop, ModeSQLite, ModePostgres)
	}
}

func validateRecord(rec GameRecord) error {
	if strings.TrimSpace(rec.GameID) == "" {
		return fmt.Errorf("game id is required")
	}
	if len(rec.Players) == 0 {
		return fmt.Errorf("game %s has no players", rec.GameID)
	}
	return nil
}

func encodeSpec(spec replay.GameSpec) (string, error) {
	raw, err := json.Marshal(spec)
	if err != nil {
		return "", err
	}
	return string(raw), nil
}

func decodeSpec(raw []byte, rec *GameRecord) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, &rec.Spec)
}

// historyRow is one (game, participant) pair in history query order.
type historyRow struct {
	item   HistoryItem
	player PlayerRecord
}

// foldHistory groups rows by game, preserving order, and fills in the
// viewer's own result.
func foldHistory(rows []historyRow, viewerID string) []HistoryItem {
	items := make([]HistoryItem, 0)
	index := make(map[string]int)
	for _, row := range rows {
		i, ok := index[row.item.GameID]
		if !ok {
			i = len(items)
			index[row.item.GameID] = i
			item := row.item
			item.Won = item.Winner != "" && item.Winner == viewerID
			items = append(items, item)
		}
		if row.player.ID == viewerID {
			items[i].Score = row.player.Score
		}
		items[i].Players = append(items[i].Players, row.player)
	}
	return items
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultListLimit
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}

func envIntOrDefault(key string, fallback int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
