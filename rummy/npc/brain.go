package npc

import (
	"fmt"

	"rummy-lite/rummy"
	"rummy-lite/tile"
)

// GameView is a read-only projection of the game state visible to the NPC.
type GameView struct {
	Hand           tile.List
	Table          []tile.List
	HasInitialMeld bool
	PoolCount      int
	MeldPoints     int // initial meld floor
	Turn           int
}

type DecisionKind byte

const (
	DecisionDraw       DecisionKind = 0
	DecisionPlaySet    DecisionKind = 1
	DecisionManipulate DecisionKind = 2
)

var DecisionKindDictionary = map[DecisionKind]string{
	DecisionDraw:       "draw",
	DecisionPlaySet:    "play_set",
	DecisionManipulate: "manipulate",
}

func (k DecisionKind) String() string { return DecisionKindDictionary[k] }

// Decision is what a BrainDecider returns.
type Decision struct {
	Kind    DecisionKind
	TileIDs []int   // play_set
	Table   [][]int // manipulate: complete replacement layout
	Reason  string
}

// Intents expands a decision into the state machine requests that carry it out.
func (d Decision) Intents(playerID string) []rummy.Intent {
	switch d.Kind {
	case DecisionPlaySet:
		return []rummy.Intent{{PlayerID: playerID, Action: rummy.ActionPlaySet, TileIDs: d.TileIDs}}
	case DecisionManipulate:
		return []rummy.Intent{
			{PlayerID: playerID, Action: rummy.ActionStartManipulation},
			{PlayerID: playerID, Action: rummy.ActionMutateManipulation, Table: d.Table},
			{PlayerID: playerID, Action: rummy.ActionConfirmManipulation},
		}
	}
	return []rummy.Intent{{PlayerID: playerID, Action: rummy.ActionDraw}}
}

// BrainDecider is the core interface all NPC tiers implement.
type BrainDecider interface {
	// Decide is called when it's the NPC's turn.
	Decide(view GameView) Decision
	// Name returns a human-readable identifier for debugging.
	Name() string
}

func drawDecision(reason string) Decision {
	return Decision{Kind: DecisionDraw, Reason: reason}
}

func playDecision(set tile.List, reason string) Decision {
	return Decision{Kind: DecisionPlaySet, TileIDs: set.IDs(), Reason: reason}
}

// Check re-validates a decision against the view the same way the state
// machine will. A nil error means the request is structurally legal.
func Check(view GameView, d Decision) error {
	switch d.Kind {
	case DecisionDraw:
		if view.PoolCount == 0 {
			return rummy.ErrPoolEmpty
		}
		return nil
	case DecisionPlaySet:
		seen := make(map[int]struct{}, len(d.TileIDs))
		set := make(tile.List, 0, len(d.TileIDs))
		for _, id := range d.TileIDs {
			if _, dup := seen[id]; dup {
				return rummy.ErrInvalidTileSelection
			}
			seen[id] = struct{}{}
			t, ok := view.Hand.Find(id)
			if !ok {
				return rummy.ErrInvalidTileSelection
			}
			set = append(set, t)
		}
		if !rummy.IsValidSet(set) {
			return rummy.ErrInvalidSet
		}
		if !view.HasInitialMeld && rummy.CalculateSetPoints(set) < view.MeldPoints {
			return rummy.ErrMeldBelowMinimum
		}
		return nil
	case DecisionManipulate:
		if !view.HasInitialMeld {
			return rummy.ErrMeldRequired
		}
		return checkLayout(view, d.Table)
	}
	return fmt.Errorf("unknown decision kind %d", d.Kind)
}

func checkLayout(view GameView, layout [][]int) error {
	lookup := make(map[int]tile.Tile)
	onTable := make(map[int]struct{})
	for _, set := range view.Table {
		for _, t := range set {
			lookup[t.ID] = t
			onTable[t.ID] = struct{}{}
		}
	}
	for _, t := range view.Hand {
		lookup[t.ID] = t
	}
	placed := make(map[int]struct{})
	fromHand := 0
	for _, ids := range layout {
		set := make(tile.List, 0, len(ids))
		for _, id := range ids {
			t, ok := lookup[id]
			if !ok {
				return rummy.ErrInvalidTileSelection
			}
			if _, dup := placed[id]; dup {
				return rummy.ErrInvalidTileSelection
			}
			placed[id] = struct{}{}
			if _, ok := onTable[id]; !ok {
				fromHand++
			}
			set = append(set, t)
		}
		if !rummy.IsValidSet(set) {
			return rummy.ErrInvalidTableConfiguration
		}
	}
	for id := range onTable {
		if _, ok := placed[id]; !ok {
			return rummy.ErrInvalidTableConfiguration
		}
	}
	if fromHand == 0 {
		return rummy.ErrInvalidTableConfiguration
	}
	return nil
}

// layoutIDs converts a table to ids, substituting set replace with the
// given sets in place.
func layoutIDs(table []tile.List, replace int, with ...tile.List) [][]int {
	out := make([][]int, 0, len(table)+len(with))
	for i, set := range table {
		if i != replace {
			out = append(out, set.IDs())
			continue
		}
		for _, w := range with {
			if len(w) > 0 {
				out = append(out, w.IDs())
			}
		}
	}
	return out
}

// NewBrain builds the decider for a difficulty tier.
func NewBrain(d rummy.Difficulty, seed int64, finder SetFinder) BrainDecider {
	if finder == nil {
		finder = DefaultSetFinder
	}
	switch d {
	case rummy.DifficultyEasy:
		return NewEasyBrain()
	case rummy.DifficultyHard:
		return NewHardBrain(finder)
	}
	return NewMediumBrain(seed, finder)
}

// SetFinder enumerates candidate sets for a hand.
type SetFinder func(hand []tile.Tile) []tile.List

func DefaultSetFinder(hand []tile.Tile) []tile.List {
	return rummy.FindAllPossibleSets(hand, rummy.DefaultMaxCandidateSets)
}

// BoundedSetFinder stops each search after limit sets.
func BoundedSetFinder(limit int) SetFinder {
	return func(hand []tile.Tile) []tile.List {
		return rummy.FindAllPossibleSets(hand, limit)
	}
}
