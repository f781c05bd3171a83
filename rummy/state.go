package rummy

import (
	"fmt"
	"strings"

	"rummy-lite/tile"
)

// state is one game's full mutable state. Transitions clone it, mutate the
// clone and hand it back; the caller commits only on success, so a failed
// transition never leaves a partial write behind.
type state struct {
	players []*Player
	pool    tile.List
	table   []tile.List
	current int
	phase   Phase
	turn    int

	manipulating bool
	pending      []tile.List

	winner      string
	finalScores []int
	last        *ActionRecord
}

func cloneSets(sets []tile.List) []tile.List {
	if sets == nil {
		return nil
	}
	out := make([]tile.List, len(sets))
	for i, s := range sets {
		out[i] = s.Clone()
	}
	return out
}

func (s *state) clone() *state {
	cp := *s
	cp.players = make([]*Player, len(s.players))
	for i, p := range s.players {
		cp.players[i] = p.clone()
	}
	cp.pool = s.pool.Clone()
	cp.table = cloneSets(s.table)
	cp.pending = cloneSets(s.pending)
	if s.finalScores != nil {
		cp.finalScores = append([]int(nil), s.finalScores...)
	}
	if s.last != nil {
		last := *s.last
		cp.last = &last
	}
	return &cp
}

func (s *state) playerIndex(id string) int {
	for i, p := range s.players {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// actor returns the index of playerID if it holds the turn.
func (s *state) actor(playerID string) (int, error) {
	if s.phase != PhasePlaying {
		return -1, ErrGameNotPlaying
	}
	idx := s.playerIndex(playerID)
	if idx < 0 {
		return -1, ErrPlayerNotFound
	}
	if idx != s.current {
		return -1, ErrNotYourTurn
	}
	return idx, nil
}

func (s *state) advance() {
	s.current = (s.current + 1) % len(s.players)
	s.turn++
}

func (s *state) record(a ActionType, playerID string, ids []int) {
	s.last = &ActionRecord{Type: a, PlayerID: playerID, TileIDs: ids, Turn: s.turn}
}

// deal hands out handSize tiles round-robin, popping from the end of pool.
func (s *state) deal(handSize int) {
	for i := 0; i < handSize; i++ {
		for _, p := range s.players {
			t, ok := s.pool.Pop()
			if !ok {
				return
			}
			p.hand.Add(t)
		}
	}
}

// finish ends the game with winner at index w (or none when w < 0).
func (s *state) finish(w int) {
	hands := make([]tile.List, len(s.players))
	for i, p := range s.players {
		hands[i] = p.hand
	}
	s.phase = PhaseFinished
	s.manipulating = false
	s.pending = nil
	s.winner = ""
	if w < 0 || len(hands) == 0 {
		s.finalScores = nil
		return
	}
	s.finalScores, w = CalculateFinalScores(hands, w)
	s.winner = s.players[w].ID
}

// nextHost picks the first human seat, or seat 0 when only AIs remain.
func (s *state) nextHost() int {
	for i, p := range s.players {
		if !p.IsAI {
			return i
		}
	}
	return 0
}

// fewestTiles returns the seat with the smallest hand, first seat on ties.
func (s *state) fewestTiles() int {
	best := -1
	for i, p := range s.players {
		if best < 0 || len(p.hand) < len(s.players[best].hand) {
			best = i
		}
	}
	return best
}

// checkEnd finishes a playing game whose pool has run out. Reports whether
// the game is finished afterwards.
func (s *state) checkEnd() bool {
	if s.phase == PhaseFinished {
		return true
	}
	if s.phase != PhasePlaying {
		return false
	}
	if len(s.pool) == 0 {
		s.finish(s.fewestTiles())
		return true
	}
	return false
}

func (s *state) draw(playerID string) (*state, error) {
	if _, err := s.actor(playerID); err != nil {
		return nil, err
	}
	if s.manipulating {
		return nil, ErrManipulationInProgress
	}
	if len(s.pool) == 0 {
		return nil, ErrPoolEmpty
	}
	ns := s.clone()
	p := ns.players[ns.current]
	t, _ := ns.pool.Pop()
	p.hand.Add(t)
	ns.record(ActionDraw, playerID, []int{t.ID})
	ns.advance()
	ns.checkEnd()
	return ns, nil
}

// takeFromHand resolves ids against hand. Every id must be present once.
func takeFromHand(hand tile.List, ids []int) (tile.List, error) {
	if len(ids) == 0 {
		return nil, Errorf(KindInvalidTileSelection, "no tiles selected")
	}
	seen := make(map[int]struct{}, len(ids))
	out := make(tile.List, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			return nil, Errorf(KindInvalidTileSelection, fmt.Sprintf("tile %d selected twice", id))
		}
		seen[id] = struct{}{}
		t, ok := hand.Find(id)
		if !ok {
			return nil, Errorf(KindInvalidTileSelection, fmt.Sprintf("tile %d not in hand", id))
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *state) playSet(playerID string, ids []int, meldFloor int) (*state, error) {
	idx, err := s.actor(playerID)
	if err != nil {
		return nil, err
	}
	if s.manipulating {
		return nil, ErrManipulationInProgress
	}
	p := s.players[idx]
	set, err := takeFromHand(p.hand, ids)
	if err != nil {
		return nil, err
	}
	if !IsValidSet(set) {
		return nil, Errorf(KindInvalidSet, strings.Join(set.Faces(), " "))
	}
	if !p.hasInitialMeld {
		if pts := CalculateSetPoints(set); pts < meldFloor {
			return nil, Errorf(KindMeldBelowMinimum, fmt.Sprintf("%d < %d", pts, meldFloor))
		}
	}

	ns := s.clone()
	np := ns.players[idx]
	np.hand = np.hand.Without(tile.IDSet(ids))
	np.hasInitialMeld = true
	ns.table = append(ns.table, set)
	ns.record(ActionPlaySet, playerID, append([]int(nil), ids...))
	if len(np.hand) == 0 {
		ns.finish(idx)
		return ns, nil
	}
	ns.advance()
	return ns, nil
}

func (s *state) startManipulation(playerID string) (*state, error) {
	idx, err := s.actor(playerID)
	if err != nil {
		return nil, err
	}
	if !s.players[idx].hasInitialMeld {
		return nil, ErrMeldRequired
	}
	if s.manipulating {
		return nil, ErrManipulationInProgress
	}
	ns := s.clone()
	ns.manipulating = true
	ns.pending = cloneSets(ns.table)
	ns.record(ActionStartManipulation, playerID, nil)
	return ns, nil
}

// mutateManipulation replaces the pending layout. Ids resolve against the
// committed table plus the actor's hand; sets may be transiently invalid.
func (s *state) mutateManipulation(playerID string, layout [][]int) (*state, error) {
	idx, err := s.actor(playerID)
	if err != nil {
		return nil, err
	}
	if !s.manipulating {
		return nil, ErrNoManipulationInProgress
	}
	lookup := make(map[int]tile.Tile, 64)
	for _, set := range s.table {
		for _, t := range set {
			lookup[t.ID] = t
		}
	}
	for _, t := range s.players[idx].hand {
		lookup[t.ID] = t
	}
	seen := make(map[int]struct{}, len(lookup))
	pending := make([]tile.List, 0, len(layout))
	for _, ids := range layout {
		if len(ids) == 0 {
			continue
		}
		set := make(tile.List, 0, len(ids))
		for _, id := range ids {
			t, ok := lookup[id]
			if !ok {
				return nil, Errorf(KindInvalidTileSelection, fmt.Sprintf("tile %d not on table or in hand", id))
			}
			if _, dup := seen[id]; dup {
				return nil, Errorf(KindInvalidTileSelection, fmt.Sprintf("tile %d placed twice", id))
			}
			seen[id] = struct{}{}
			set = append(set, t)
		}
		pending = append(pending, set)
	}
	ns := s.clone()
	ns.pending = pending
	ns.record(ActionMutateManipulation, playerID, nil)
	return ns, nil
}

func (s *state) confirmManipulation(playerID string) (*state, error) {
	idx, err := s.actor(playerID)
	if err != nil {
		return nil, err
	}
	if !s.manipulating {
		return nil, ErrNoManipulationInProgress
	}
	for i, set := range s.pending {
		if !IsValidSet(set) {
			return nil, Errorf(KindInvalidTableConfiguration, fmt.Sprintf("set %d %v", i, set.Faces()))
		}
	}
	placed := make(map[int]struct{}, 64)
	for _, set := range s.pending {
		for _, t := range set {
			placed[t.ID] = struct{}{}
		}
	}
	for _, set := range s.table {
		for _, t := range set {
			if _, ok := placed[t.ID]; !ok {
				return nil, Errorf(KindInvalidTableConfiguration, fmt.Sprintf("table tile %v removed", t))
			}
		}
	}
	var fromHand []int
	for _, t := range s.players[idx].hand {
		if _, ok := placed[t.ID]; ok {
			fromHand = append(fromHand, t.ID)
		}
	}
	if len(fromHand) == 0 {
		return nil, Errorf(KindInvalidTableConfiguration, "no tile played from hand")
	}

	ns := s.clone()
	np := ns.players[idx]
	np.hand = np.hand.Without(tile.IDSet(fromHand))
	ns.table = ns.pending
	ns.pending = nil
	ns.manipulating = false
	ns.record(ActionConfirmManipulation, playerID, fromHand)
	if len(np.hand) == 0 {
		ns.finish(idx)
		return ns, nil
	}
	ns.advance()
	return ns, nil
}

// cancelManipulation discards the pending layout; the turn stays put.
// Cancelling with nothing open is a no-op.
func (s *state) cancelManipulation(playerID string) (*state, error) {
	if _, err := s.actor(playerID); err != nil {
		return nil, err
	}
	ns := s.clone()
	if ns.manipulating {
		ns.manipulating = false
		ns.pending = nil
		ns.record(ActionCancelManipulation, playerID, nil)
	}
	return ns, nil
}

// removePlayer takes a player out of the game. A playing player's hand goes
// to the bottom of the pool and the turn pointer is kept on a live seat.
func (s *state) removePlayer(playerID string) (*state, error) {
	idx := s.playerIndex(playerID)
	if idx < 0 {
		return nil, ErrPlayerNotFound
	}
	ns := s.clone()
	leaver := ns.players[idx]
	ns.players = append(ns.players[:idx], ns.players[idx+1:]...)
	if leaver.IsHost && len(ns.players) > 0 {
		ns.players[ns.nextHost()].IsHost = true
	}
	if ns.phase == PhaseWaiting {
		return ns, nil
	}

	if len(leaver.hand) > 0 {
		ns.pool = append(leaver.hand.Clone(), ns.pool...)
	}
	if ns.phase != PhasePlaying {
		return ns, nil
	}
	ns.record(ActionLeave, playerID, nil)
	switch {
	case idx < ns.current:
		ns.current--
	case idx == ns.current:
		ns.manipulating = false
		ns.pending = nil
		if ns.current >= len(ns.players) {
			ns.current = 0
		}
	}
	switch len(ns.players) {
	case 0:
		ns.current = 0
		ns.finish(-1)
	case 1:
		ns.finish(0)
	}
	return ns, nil
}
