package rummy

import (
	"sort"

	"rummy-lite/tile"
)

// IsValidGroup: 3-4 tiles, one shared number, pairwise distinct colors
// among non-jokers, at least one non-joker.
func IsValidGroup(tiles []tile.Tile) bool {
	if len(tiles) < 3 || len(tiles) > 4 {
		return false
	}
	var seen [5]bool
	number := 0
	regular := 0
	for _, t := range tiles {
		if !t.Valid() {
			return false
		}
		if t.IsJoker() {
			continue
		}
		regular++
		if number == 0 {
			number = t.Number
		} else if t.Number != number {
			return false
		}
		if seen[t.Color] {
			return false
		}
		seen[t.Color] = true
	}
	return regular > 0
}

// IsValidRun: 3+ tiles of one color forming consecutive numbers with
// jokers filling gaps. A run may wrap 13->1 only when a real 13 and a real
// 1 are both present.
func IsValidRun(tiles []tile.Tile) bool {
	_, ok := ArrangeRun(tiles)
	return ok
}

// IsValidSet reports whether tiles form a valid group or run.
func IsValidSet(tiles []tile.Tile) bool {
	return IsValidGroup(tiles) || IsValidRun(tiles)
}

// RunLayout is the position of a run on the number line. Positions above 13
// belong to a wrapped run and read as position-13.
type RunLayout struct {
	Start  int
	Length int
}

// Face returns the number shown at offset i of the run.
func (r RunLayout) Face(i int) int {
	return (r.Start+i-1)%tile.MaxNumber + 1
}

// Faces lists the number at every position, lowest first.
func (r RunLayout) Faces() []int {
	out := make([]int, r.Length)
	for i := range out {
		out[i] = r.Face(i)
	}
	return out
}

// ArrangeRun places a candidate run on the number line. Jokers fill
// internal gaps first, then extend above the highest number (up to 13),
// then below the lowest.
func ArrangeRun(tiles []tile.Tile) (RunLayout, bool) {
	n := len(tiles)
	if n < 3 || n > tile.MaxNumber {
		return RunLayout{}, false
	}
	color := tile.ColorNone
	nums := make([]int, 0, n)
	jokers := 0
	for _, t := range tiles {
		if !t.Valid() {
			return RunLayout{}, false
		}
		if t.IsJoker() {
			jokers++
			continue
		}
		if color == tile.ColorNone {
			color = t.Color
		} else if t.Color != color {
			return RunLayout{}, false
		}
		nums = append(nums, t.Number)
	}
	if len(nums) == 0 {
		return RunLayout{}, false
	}
	sort.Ints(nums)
	for i := 1; i < len(nums); i++ {
		if nums[i] == nums[i-1] {
			return RunLayout{}, false
		}
	}

	lo, hi := nums[0], nums[len(nums)-1]
	if gaps := hi - lo + 1 - len(nums); gaps <= jokers {
		extra := jokers - gaps
		up := min(extra, tile.MaxNumber-hi)
		down := extra - up
		return RunLayout{Start: lo - down, Length: n}, true
	}

	if lo != tile.MinNumber || hi != tile.MaxNumber {
		return RunLayout{}, false
	}
	// Wrapped: break the circle at the widest internal gap.
	split := 0
	widest := -1
	for i := 0; i+1 < len(nums); i++ {
		if g := nums[i+1] - nums[i] - 1; g > widest {
			widest, split = g, i
		}
	}
	start := nums[split+1]
	end := nums[split] + tile.MaxNumber
	if gaps := end - start + 1 - len(nums); gaps > jokers {
		return RunLayout{}, false
	}
	return RunLayout{Start: start, Length: n}, true
}

// CalculateSetPoints scores a set. Group jokers take the group number; run
// jokers take the number of the position they fill. Jokers in an invalid
// set score 0.
func CalculateSetPoints(tiles []tile.Tile) int {
	if IsValidGroup(tiles) {
		for _, t := range tiles {
			if !t.IsJoker() {
				return t.Number * len(tiles)
			}
		}
	}
	if layout, ok := ArrangeRun(tiles); ok {
		total := 0
		for _, f := range layout.Faces() {
			total += f
		}
		return total
	}
	total := 0
	for _, t := range tiles {
		if !t.IsJoker() {
			total += t.Number
		}
	}
	return total
}

// JokerValues returns the number each joker of a valid set stands for, in
// the order the jokers appear in tiles. nil for invalid or joker-free sets.
func JokerValues(tiles []tile.Tile) []int {
	jokers := 0
	for _, t := range tiles {
		if t.IsJoker() {
			jokers++
		}
	}
	if jokers == 0 {
		return nil
	}
	if IsValidGroup(tiles) {
		out := make([]int, jokers)
		for _, t := range tiles {
			if !t.IsJoker() {
				for i := range out {
					out[i] = t.Number
				}
				break
			}
		}
		return out
	}
	layout, ok := ArrangeRun(tiles)
	if !ok {
		return nil
	}
	used := make(map[int]bool, len(tiles))
	for _, t := range tiles {
		if !t.IsJoker() {
			used[t.Number] = true
		}
	}
	out := make([]int, 0, jokers)
	for _, f := range layout.Faces() {
		if !used[f] {
			out = append(out, f)
		}
	}
	return out
}

// ValidateTableState reports whether every set is a valid group or run.
func ValidateTableState(sets []tile.List) bool {
	for _, s := range sets {
		if !IsValidSet(s) {
			return false
		}
	}
	return true
}

// HandPenalty is the face total of a hand, jokers counting JokerPenalty.
func HandPenalty(hand []tile.Tile) int {
	total := 0
	for _, t := range hand {
		if t.IsJoker() {
			total += JokerPenalty
		} else {
			total += t.Number
		}
	}
	return total
}

// CalculateFinalScores scores a finished game. Every loser scores minus
// their hand penalty; the winner scores the sum of the losers' penalties.
// When winner is out of range the lowest penalty wins, first seat on ties.
// The returned index is the seat that was scored as the winner, -1 for no
// hands.
func CalculateFinalScores(hands []tile.List, winner int) ([]int, int) {
	if len(hands) == 0 {
		return nil, -1
	}
	penalties := make([]int, len(hands))
	for i, h := range hands {
		penalties[i] = HandPenalty(h)
	}
	if winner < 0 || winner >= len(hands) {
		winner = 0
		for i, p := range penalties {
			if p < penalties[winner] {
				winner = i
			}
		}
	}
	scores := make([]int, len(hands))
	for i, p := range penalties {
		if i == winner {
			continue
		}
		scores[i] = -p
		scores[winner] += p
	}
	return scores, winner
}
