package rummy

import (
	"fmt"
	"math/rand"
	"sync"
	"time"

	"rummy-lite/tile"
)

// Game is the authoritative state machine of one match. All methods are
// safe for concurrent use; each call validates against the current state
// and either commits a whole new state or returns a typed *Error.
type Game struct {
	id   string
	cfg  Config
	seed int64
	rng  *rand.Rand

	mu sync.Mutex
	st *state
}

func NewGame(id string, cfg Config) (*Game, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Game{
		id:   id,
		cfg:  cfg,
		seed: seed,
		rng:  rand.New(rand.NewSource(seed)),
		st:   &state{phase: PhaseWaiting},
	}, nil
}

func (g *Game) ID() string     { return g.id }
func (g *Game) Seed() int64    { return g.seed }
func (g *Game) Config() Config { return g.cfg }

// AddPlayer seats a player before the game starts. The first player seated
// becomes host.
func (g *Game) AddPlayer(info PlayerInfo) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if info.ID == "" {
		return fmt.Errorf("player id required")
	}
	if g.st.phase != PhaseWaiting {
		return ErrGameAlreadyStarted
	}
	if g.st.playerIndex(info.ID) >= 0 {
		return fmt.Errorf("player %s already seated", info.ID)
	}
	if len(g.st.players) >= g.cfg.MaxPlayers {
		return ErrRoomFull
	}
	ns := g.st.clone()
	p := &Player{
		ID:         info.ID,
		Name:       info.Name,
		IsAI:       info.IsAI,
		Difficulty: info.Difficulty,
		IsHost:     len(ns.players) == 0,
	}
	if p.IsAI && p.Difficulty == DifficultyNone {
		p.Difficulty = DifficultyMedium
	}
	ns.players = append(ns.players, p)
	g.st = ns
	return nil
}

// RemovePlayer takes a player out at any phase. See state.removePlayer.
func (g *Game) RemovePlayer(playerID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.commit(g.st.removePlayer(playerID))
}

// Start shuffles the deck, deals every player a hand and hands the first
// turn to seat 0.
func (g *Game) Start() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.st.phase != PhaseWaiting {
		return ErrGameAlreadyStarted
	}
	if len(g.st.players) < g.cfg.MinPlayers {
		return Errorf(KindNotEnoughPlayers, fmt.Sprintf("%d < %d", len(g.st.players), g.cfg.MinPlayers))
	}
	ns := g.st.clone()
	if g.cfg.DeckOverride != nil {
		ns.pool = tile.List(g.cfg.DeckOverride).Clone()
	} else {
		ns.pool = tile.NewDeck()
		ns.pool.Shuffle(g.rng)
	}
	for _, p := range ns.players {
		p.hand = make(tile.List, 0, g.cfg.HandSize+8)
		p.hasInitialMeld = false
	}
	ns.deal(g.cfg.HandSize)
	ns.table = nil
	ns.current = 0
	ns.turn = 0
	ns.phase = PhasePlaying
	g.st = ns
	return nil
}

func (g *Game) Draw(playerID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.commit(g.st.draw(playerID))
}

func (g *Game) PlaySet(playerID string, tileIDs []int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.commit(g.st.playSet(playerID, tileIDs, g.cfg.InitialMeldPoints))
}

func (g *Game) StartManipulation(playerID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.commit(g.st.startManipulation(playerID))
}

func (g *Game) MutateManipulation(playerID string, layout [][]int) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.commit(g.st.mutateManipulation(playerID, layout))
}

func (g *Game) ConfirmManipulation(playerID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.commit(g.st.confirmManipulation(playerID))
}

func (g *Game) CancelManipulation(playerID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.commit(g.st.cancelManipulation(playerID))
}

// Manipulate runs start, mutate and confirm as one step. On any failure
// the game is left exactly as it was.
func (g *Game) Manipulate(playerID string, layout [][]int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	ns, err := g.st.startManipulation(playerID)
	if err != nil {
		return err
	}
	if ns, err = ns.mutateManipulation(playerID, layout); err != nil {
		return err
	}
	return g.commit(ns.confirmManipulation(playerID))
}

// Apply dispatches an intent to the matching transition.
func (g *Game) Apply(in Intent) error {
	switch in.Action {
	case ActionDraw:
		return g.Draw(in.PlayerID)
	case ActionPlaySet:
		return g.PlaySet(in.PlayerID, in.TileIDs)
	case ActionStartManipulation:
		return g.StartManipulation(in.PlayerID)
	case ActionMutateManipulation:
		return g.MutateManipulation(in.PlayerID, in.Table)
	case ActionConfirmManipulation:
		return g.ConfirmManipulation(in.PlayerID)
	case ActionCancelManipulation:
		return g.CancelManipulation(in.PlayerID)
	case ActionLeave:
		return g.RemovePlayer(in.PlayerID)
	}
	return fmt.Errorf("unsupported action %v", in.Action)
}

// CheckEndConditions finishes a playing game whose pool is empty. It is a
// no-op once finished and reports whether the game is over.
func (g *Game) CheckEndConditions() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.st.phase != PhasePlaying {
		return g.st.phase == PhaseFinished
	}
	ns := g.st.clone()
	done := ns.checkEnd()
	g.st = ns
	return done
}

func (g *Game) commit(ns *state, err error) error {
	if err != nil {
		return err
	}
	g.st = ns
	return nil
}

func (g *Game) Phase() Phase {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.st.phase
}

func (g *Game) Turn() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.st.turn
}

// CurrentPlayerID is empty unless the game is playing.
func (g *Game) CurrentPlayerID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.st.phase != PhasePlaying || len(g.st.players) == 0 {
		return ""
	}
	return g.st.players[g.st.current].ID
}

func (g *Game) HasPlayer(playerID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.st.playerIndex(playerID) >= 0
}

func (g *Game) PlayerCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.st.players)
}

func (g *Game) IsHost(playerID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	idx := g.st.playerIndex(playerID)
	return idx >= 0 && g.st.players[idx].IsHost
}

// Player returns a copy of the seated player.
func (g *Game) Player(playerID string) (*Player, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	idx := g.st.playerIndex(playerID)
	if idx < 0 {
		return nil, false
	}
	return g.st.players[idx].clone(), true
}
