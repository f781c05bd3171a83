package npc

import (
	"math/rand"
	"sync"

	"rummy-lite/tile"
)

const (
	mediumLowPool     = 10
	mediumDrawChance  = 0.3
	mediumSmallHand   = 8
	mediumCrowdedHand = 12
)

// MediumBrain melds efficiently, tries single-tile additions to table sets
// and weighs drawing against holding jokers.
type MediumBrain struct {
	finder SetFinder

	mu  sync.Mutex
	rng *rand.Rand
}

func NewMediumBrain(seed int64, finder SetFinder) *MediumBrain {
	return &MediumBrain{finder: finder, rng: rand.New(rand.NewSource(seed))}
}

func (b *MediumBrain) Name() string { return "medium" }

func (b *MediumBrain) Decide(view GameView) Decision {
	sets := b.finder(view.Hand)

	if !view.HasInitialMeld {
		candidates := meldCandidates(sets, view.MeldPoints)
		if len(candidates) == 0 {
			return drawDecision("no initial meld")
		}
		return playDecision(argmax(candidates, efficiency), "most efficient meld")
	}

	if layout, ok := tryAddition(view.Hand, view.Table); ok {
		return Decision{Kind: DecisionManipulate, Table: layout, Reason: "extend table set"}
	}
	if len(sets) == 0 {
		return drawDecision("no playable set")
	}
	score := func(s tile.List) float64 { return setScore(s, len(view.Hand)) }
	best := argmax(sets, score)
	if best.JokerCount() == 0 {
		return playDecision(best, "best scoring set")
	}
	plain := jokerFree(sets)
	if !b.holdJoker(view, len(plain)) {
		return playDecision(best, "best scoring set")
	}
	if len(plain) > 0 {
		return playDecision(argmax(plain, score), "saving joker")
	}
	return drawDecision("holding joker")
}

func jokerFree(sets []tile.List) []tile.List {
	var out []tile.List
	for _, s := range sets {
		if s.JokerCount() == 0 {
			out = append(out, s)
		}
	}
	return out
}

// holdJoker decides whether to keep a joker back when the best set uses
// one; plays counts the joker-free sets. Never on a low pool; always when
// the hand is small with no plain play or crowded with at most one, and by
// chance the rest of the time.
func (b *MediumBrain) holdJoker(view GameView, plays int) bool {
	if view.PoolCount <= mediumLowPool {
		return false
	}
	hand := len(view.Hand)
	if hand <= mediumSmallHand && plays == 0 {
		return true
	}
	if hand >= mediumCrowdedHand && plays <= 1 {
		return true
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rng.Float64() < mediumDrawChance
}
