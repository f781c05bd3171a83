package npc

import (
	"rummy-lite/rummy"
	"rummy-lite/tile"
)

// setScore balances points, points-per-tile and hand reduction.
func setScore(set tile.List, handSize int) float64 {
	points := float64(rummy.CalculateSetPoints(set))
	efficiency := points / float64(len(set))
	reduction := 0.0
	if handSize > 0 {
		reduction = float64(len(set)) / float64(handSize)
	}
	return points*0.4 + efficiency*0.3 + reduction*0.3
}

func efficiency(set tile.List) float64 {
	return float64(rummy.CalculateSetPoints(set)) / float64(len(set))
}

// meldCandidates keeps the sets worth at least floor points.
func meldCandidates(sets []tile.List, floor int) []tile.List {
	var out []tile.List
	for _, s := range sets {
		if rummy.CalculateSetPoints(s) >= floor {
			out = append(out, s)
		}
	}
	return out
}

// argmax returns the first set with the strictly highest score.
func argmax(sets []tile.List, score func(tile.List) float64) tile.List {
	var best tile.List
	bestScore := 0.0
	for i, s := range sets {
		sc := score(s)
		if i == 0 || sc > bestScore {
			best, bestScore = s, sc
		}
	}
	return best
}

// remainingPotential scores what a hand keeps after playing used: color
// clusters of two or more earn 2 per tile, number clusters 3 per tile.
func remainingPotential(hand, used tile.List) int {
	drop := tile.IDSet(used.IDs())
	var byColor [5]int
	var byNumber [tile.MaxNumber + 1]int
	for _, t := range hand {
		if _, ok := drop[t.ID]; ok || t.IsJoker() {
			continue
		}
		byColor[t.Color]++
		byNumber[t.Number]++
	}
	score := 0
	for _, n := range byColor {
		if n >= 2 {
			score += n * 2
		}
	}
	for _, n := range byNumber {
		if n >= 2 {
			score += n * 3
		}
	}
	return score
}

// potentialSets counts color and number clusters of two or more.
func potentialSets(hand tile.List) int {
	var byColor [5]int
	var byNumber [tile.MaxNumber + 1]int
	for _, t := range hand {
		if t.IsJoker() {
			continue
		}
		byColor[t.Color]++
		byNumber[t.Number]++
	}
	n := 0
	for _, c := range byColor {
		if c >= 2 {
			n++
		}
	}
	for _, c := range byNumber {
		if c >= 2 {
			n++
		}
	}
	return n
}

// manipulationPotential counts table tiles sharing a number or color with
// a non-joker of set.
func manipulationPotential(set tile.List, table []tile.List) int {
	n := 0
	for _, t := range set {
		if t.IsJoker() {
			continue
		}
		for _, ts := range table {
			for _, tt := range ts {
				if !tt.IsJoker() && (tt.Number == t.Number || tt.Color == t.Color) {
					n++
				}
			}
		}
	}
	return n
}

func jokerEfficiency(set tile.List) float64 {
	j := set.JokerCount()
	if j == 0 {
		return 0
	}
	return float64(rummy.CalculateSetPoints(set)) / float64(j*rummy.JokerPenalty)
}

// splitOpportunities: +1 per 4-tile set, +2 per longer set.
func splitOpportunities(table []tile.List) int {
	n := 0
	for _, s := range table {
		switch {
		case len(s) == 4:
			n++
		case len(s) > 4:
			n += 2
		}
	}
	return n
}

// tryAddition looks for one non-joker hand tile that extends a table set
// while keeping it valid as the same kind of set.
func tryAddition(hand tile.List, table []tile.List) ([][]int, bool) {
	for _, t := range hand {
		if t.IsJoker() {
			continue
		}
		for i, set := range table {
			grown := append(set.Clone(), t)
			if (rummy.IsValidGroup(set) && rummy.IsValidGroup(grown)) ||
				(rummy.IsValidRun(set) && rummy.IsValidRun(grown)) {
				return layoutIDs(table, i, grown), true
			}
		}
	}
	return nil, false
}

// orderRun returns the tiles of a valid run sorted by position.
func orderRun(set tile.List) (tile.List, bool) {
	layout, ok := rummy.ArrangeRun(set)
	if !ok {
		return nil, false
	}
	faces := layout.Faces()
	slots := make(tile.List, len(faces))
	filled := make([]bool, len(faces))
	var jokers tile.List
	for _, t := range set {
		if t.IsJoker() {
			jokers = append(jokers, t)
			continue
		}
		for i, f := range faces {
			if f == t.Number && !filled[i] {
				slots[i], filled[i] = t, true
				break
			}
		}
	}
	for i := range slots {
		if !filled[i] {
			if len(jokers) == 0 {
				return nil, false
			}
			slots[i], filled[i] = jokers[0], true
			jokers = jokers[1:]
		}
	}
	return slots, true
}

// setWith returns the first set drawable from hand plus freed that uses freed.
func setWith(freed tile.Tile, hand tile.List, finder SetFinder) (tile.List, bool) {
	pool := append(tile.List{freed}, hand...)
	for _, s := range finder(pool) {
		if s.Contains(freed.ID) {
			return s, true
		}
	}
	return nil, false
}

// trySplitGroup frees one tile of a 4-tile group for a new set with hand tiles.
func trySplitGroup(i int, group tile.List, hand tile.List, table []tile.List, finder SetFinder) ([][]int, bool) {
	for k := range group {
		rest := append(group[:k:k].Clone(), group[k+1:]...)
		if !rummy.IsValidGroup(rest) {
			continue
		}
		if set, ok := setWith(group[k], hand, finder); ok {
			return layoutIDs(table, i, rest, set), true
		}
	}
	return nil, false
}

// trySplitRun frees one non-joker tile of a long run, leaving empty or
// valid runs on either side, for a new set with hand tiles.
func trySplitRun(i int, run tile.List, hand tile.List, table []tile.List, finder SetFinder) ([][]int, bool) {
	ordered, ok := orderRun(run)
	if !ok {
		return nil, false
	}
	for k, t := range ordered {
		if t.IsJoker() {
			continue
		}
		left := ordered[:k].Clone()
		right := ordered[k+1:].Clone()
		if !splitSideOK(left) || !splitSideOK(right) {
			continue
		}
		if set, ok := setWith(t, hand, finder); ok {
			return layoutIDs(table, i, left, right, set), true
		}
	}
	return nil, false
}

func splitSideOK(side tile.List) bool {
	return len(side) == 0 || rummy.IsValidRun(side)
}
