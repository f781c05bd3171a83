package replay

import "encoding/json"

// GameSpec is everything needed to re-derive a game: seating, the RNG seed
// and the ordered list of committed intents.
type GameSpec struct {
	GameID     string       `json:"game_id"`
	Seed       int64        `json:"seed"`
	MeldPoints int          `json:"meld_points,omitempty"`
	HandSize   int          `json:"hand_size,omitempty"`
	MaxPlayers int          `json:"max_players,omitempty"`
	Players    []PlayerSpec `json:"players"`
	Deck       []int        `json:"deck,omitempty"` // tile ids, dealt from the end
	Hero       string       `json:"hero,omitempty"` // viewer for tape snapshots
	Actions    []ActionSpec `json:"actions"`
}

type PlayerSpec struct {
	ID         string `json:"id"`
	Name       string `json:"name,omitempty"`
	IsAI       bool   `json:"is_ai,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
}

type ActionSpec struct {
	Player  string  `json:"player"`
	Type    string  `json:"type"`
	TileIDs []int   `json:"tile_ids,omitempty"`
	Table   [][]int `json:"table,omitempty"`
}

type ReplayTape struct {
	TapeVersion int           `json:"tape_version"`
	GameID      string        `json:"game_id"`
	Hero        string        `json:"hero,omitempty"`
	Events      []ReplayEvent `json:"events"`
}

type ReplayEvent struct {
	Type        string          `json:"type"`
	Seq         uint64          `json:"seq"`
	Turn        int             `json:"turn"`
	PlayerID    string          `json:"player_id,omitempty"`
	Action      string          `json:"action,omitempty"`
	Value       json.RawMessage `json:"value,omitempty"`
	EnvelopeB64 string          `json:"envelope_b64,omitempty"`
}

const TapeVersion = 1

const (
	EventGameStart    = "gameStart"
	EventActionResult = "actionResult"
	EventGameEnd      = "gameEnd"
)
