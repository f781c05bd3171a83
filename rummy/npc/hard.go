package npc

import (
	"rummy-lite/rummy"
	"rummy-lite/tile"
)

const (
	hardLowPool       = 5
	hardDrawThreshold = 0.5
	hardWeakSetPoints = 15
)

// HardBrain plans the initial meld around what it leaves behind, splits
// table sets to free tiles, and scores sets against the table.
type HardBrain struct {
	finder SetFinder
}

func NewHardBrain(finder SetFinder) *HardBrain {
	return &HardBrain{finder: finder}
}

func (b *HardBrain) Name() string { return "hard" }

func (b *HardBrain) Decide(view GameView) Decision {
	sets := b.finder(view.Hand)

	if !view.HasInitialMeld {
		candidates := meldCandidates(sets, view.MeldPoints)
		if len(candidates) == 0 {
			return drawDecision("no initial meld")
		}
		best := argmax(candidates, func(s tile.List) float64 {
			return float64(remainingPotential(view.Hand, s))
		})
		return playDecision(best, "meld keeping best remainder")
	}

	if layout, ok := b.manipulate(view); ok {
		return Decision{Kind: DecisionManipulate, Table: layout, Reason: "rearrange table"}
	}
	if len(sets) == 0 {
		return drawDecision("no playable set")
	}
	best := argmax(sets, func(s tile.List) float64 { return strategicScore(s, view) })
	if rummy.CalculateSetPoints(best) < hardWeakSetPoints && shouldDrawStrategically(view) {
		return drawDecision("holding weak set")
	}
	return playDecision(best, "strategic set")
}

func (b *HardBrain) manipulate(view GameView) ([][]int, bool) {
	if layout, ok := tryAddition(view.Hand, view.Table); ok {
		return layout, true
	}
	for i, set := range view.Table {
		if len(set) == 4 && rummy.IsValidGroup(set) {
			if layout, ok := trySplitGroup(i, set, view.Hand, view.Table, b.finder); ok {
				return layout, true
			}
		}
		if len(set) > 3 && rummy.IsValidRun(set) {
			if layout, ok := trySplitRun(i, set, view.Hand, view.Table, b.finder); ok {
				return layout, true
			}
		}
	}
	return nil, false
}

func strategicScore(set tile.List, view GameView) float64 {
	return setScore(set, len(view.Hand)) +
		float64(manipulationPotential(set, view.Table))*0.2 +
		jokerEfficiency(set)*0.1
}

// drawScore combines hand size, clustering, pool size and table split
// opportunities into [0, 1].
func drawScore(view GameView) float64 {
	score := float64(14-len(view.Hand)) * 0.1
	score += float64(5-potentialSets(view.Hand)) * 0.2
	score += min(float64(view.PoolCount)/50, 0.3)
	score += float64(splitOpportunities(view.Table)) * 0.1
	return max(0, min(1, score))
}

func shouldDrawStrategically(view GameView) bool {
	if view.PoolCount <= hardLowPool {
		return false
	}
	return drawScore(view) > hardDrawThreshold
}
