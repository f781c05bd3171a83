package replay

import (
	"sync"

	"rummy-lite/rummy"
)

// Recorder accumulates a GameSpec from committed operations so a finished
// game can be stored and re-derived later.
type Recorder struct {
	mu   sync.Mutex
	spec GameSpec
}

// NewRecorder starts a spec for a game created with cfg and seed.
func NewRecorder(gameID string, seed int64, cfg rummy.Config) *Recorder {
	return &Recorder{spec: GameSpec{
		GameID:     gameID,
		Seed:       seed,
		MeldPoints: cfg.InitialMeldPoints,
		HandSize:   cfg.HandSize,
		MaxPlayers: cfg.MaxPlayers,
	}}
}

// Seat records a player joining before the start.
func (r *Recorder) Seat(info rummy.PlayerInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := PlayerSpec{ID: info.ID, Name: info.Name, IsAI: info.IsAI}
	if info.IsAI {
		p.Difficulty = info.Difficulty.String()
	}
	r.spec.Players = append(r.spec.Players, p)
}

// Unseat drops a player who left before the start.
func (r *Recorder) Unseat(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, p := range r.spec.Players {
		if p.ID == playerID {
			r.spec.Players = append(r.spec.Players[:i], r.spec.Players[i+1:]...)
			return
		}
	}
}

// Record appends a committed intent.
func (r *Recorder) Record(in rummy.Intent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := ActionSpec{Player: in.PlayerID, Type: in.Action.String()}
	if len(in.TileIDs) > 0 {
		a.TileIDs = append([]int(nil), in.TileIDs...)
	}
	for _, set := range in.Table {
		a.Table = append(a.Table, append([]int(nil), set...))
	}
	r.spec.Actions = append(r.spec.Actions, a)
}

// Spec returns a copy of what has been recorded so far.
func (r *Recorder) Spec() GameSpec {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.spec
	out.Players = append([]PlayerSpec(nil), r.spec.Players...)
	out.Actions = append([]ActionSpec(nil), r.spec.Actions...)
	return out
}
