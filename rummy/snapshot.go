package rummy

import "rummy-lite/tile"

type PlayerSnapshot struct {
	ID             string
	Name           string
	IsAI           bool
	Difficulty     Difficulty
	IsHost         bool
	HasInitialMeld bool
	HandCount      int
	Hand           []tile.Tile // nil when redacted
}

type Snapshot struct {
	ID    string
	Phase Phase
	Turn  int

	MeldPoints int // initial meld floor

	CurrentPlayerIndex int
	CurrentPlayerID    string

	PoolCount int
	Table     [][]tile.Tile

	ManipulationInProgress bool
	Pending                [][]tile.Tile // acting player only after ForViewer

	Players []PlayerSnapshot

	Winner      string
	FinalScores map[string]int

	LastAction *ActionRecord
}

func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.snapshotLocked()
}

func (g *Game) snapshotLocked() Snapshot {
	st := g.st
	s := Snapshot{
		ID:                     g.id,
		Phase:                  st.phase,
		Turn:                   st.turn,
		MeldPoints:             g.cfg.InitialMeldPoints,
		CurrentPlayerIndex:     st.current,
		PoolCount:              len(st.pool),
		Table:                  copySets(st.table),
		ManipulationInProgress: st.manipulating,
		Pending:                copySets(st.pending),
		Winner:                 st.winner,
	}
	if st.phase == PhasePlaying && st.current < len(st.players) {
		s.CurrentPlayerID = st.players[st.current].ID
	}
	for i, p := range st.players {
		s.Players = append(s.Players, PlayerSnapshot{
			ID:             p.ID,
			Name:           p.Name,
			IsAI:           p.IsAI,
			Difficulty:     p.Difficulty,
			IsHost:         p.IsHost,
			HasInitialMeld: p.hasInitialMeld,
			HandCount:      len(p.hand),
			Hand:           append([]tile.Tile{}, p.hand...),
		})
		if st.finalScores != nil && i < len(st.finalScores) {
			if s.FinalScores == nil {
				s.FinalScores = make(map[string]int, len(st.players))
			}
			s.FinalScores[p.ID] = st.finalScores[i]
		}
	}
	if st.last != nil {
		last := *st.last
		last.TileIDs = append([]int(nil), st.last.TileIDs...)
		s.LastAction = &last
	}
	return s
}

func copySets(sets []tile.List) [][]tile.Tile {
	if sets == nil {
		return nil
	}
	out := make([][]tile.Tile, len(sets))
	for i, set := range sets {
		out[i] = append([]tile.Tile{}, set...)
	}
	return out
}

// ForViewer returns a copy safe to send to viewerID: other players' hands
// are removed, the pending layout is kept only for the acting player and a
// draw names its tile only to the drawer. An empty viewerID yields the
// public view.
func (s Snapshot) ForViewer(viewerID string) Snapshot {
	out := s
	out.Players = make([]PlayerSnapshot, len(s.Players))
	for i, p := range s.Players {
		if viewerID == "" || p.ID != viewerID {
			p.Hand = nil
		}
		out.Players[i] = p
	}
	if viewerID == "" || viewerID != s.CurrentPlayerID {
		out.Pending = nil
	}
	if last := s.LastAction; last != nil && last.Type == ActionDraw && (viewerID == "" || viewerID != last.PlayerID) {
		hidden := *last
		hidden.TileIDs = nil
		out.LastAction = &hidden
	}
	return out
}

// Self returns the snapshot entry of playerID.
func (s Snapshot) Self(playerID string) (PlayerSnapshot, bool) {
	for _, p := range s.Players {
		if p.ID == playerID {
			return p, true
		}
	}
	return PlayerSnapshot{}, false
}

// Stats is a cheap summary for logs and the lobby listing.
type Stats struct {
	Phase       Phase
	Turn        int
	Players     int
	PoolCount   int
	TableSets   int
	TableTiles  int
	Manipulated bool
}

func (g *Game) Stats() Stats {
	g.mu.Lock()
	defer g.mu.Unlock()
	st := g.st
	s := Stats{
		Phase:       st.phase,
		Turn:        st.turn,
		Players:     len(st.players),
		PoolCount:   len(st.pool),
		TableSets:   len(st.table),
		Manipulated: st.manipulating,
	}
	for _, set := range st.table {
		s.TableTiles += len(set)
	}
	return s
}
